package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
)

// CouponService provides business logic for creating and previewing coupons.
// Redemption itself belongs to the booking transaction.
type CouponService struct {
	pool    TxBeginner
	coupons CouponRepositoryInterface
	trips   TripRepositoryInterface
	ledger  *CouponLedger
	auth    *Authorizer
	now     func() time.Time
	newID   func() uuid.UUID
}

// NewCouponService creates a CouponService from the shared dependencies.
func NewCouponService(d Deps) *CouponService {
	d = d.withDefaults()
	return &CouponService{
		pool:    d.Pool,
		coupons: d.Coupons,
		trips:   d.Trips,
		ledger:  NewCouponLedger(d.Coupons, d.CouponUses, d.Now),
		auth:    NewAuthorizer(d),
		now:     d.Now,
		newID:   d.NewID,
	}
}

// Create creates a new coupon from the request.
// Admins may create global or company coupons. Company managers may only
// create coupons scoped to their own company; a missing company id is filled in.
// Returns:
//   - ErrInvalidRequest if request data is nil, incomplete or already expired
//   - ErrInvalidDiscount if the percent is outside [0, 50]
//   - ErrForbidden if a manager targets another company
//   - ErrCouponExists if the code is taken
func (s *CouponService) Create(ctx context.Context, p model.Principal, req *model.CreateCouponRequest) (*model.Coupon, error) {
	// Defense-in-depth: check for nil pointers even though handler validates
	if req == nil || req.DiscountPercent == nil || req.UsageLimit == nil {
		return nil, ErrInvalidRequest
	}
	code := strings.TrimSpace(req.Code)
	if code == "" || *req.UsageLimit < 1 || !req.ExpireDate.After(s.now()) {
		return nil, ErrInvalidRequest
	}
	pct := model.Percent(*req.DiscountPercent)
	if !pct.Valid() {
		return nil, ErrInvalidDiscount
	}

	companyID := req.CompanyID
	switch p.Role {
	case model.RoleAdmin:
	case model.RoleCompany:
		own, err := s.auth.CompanyOf(ctx, p)
		if err != nil {
			return nil, err
		}
		if companyID != nil && *companyID != own {
			return nil, ErrForbidden
		}
		companyID = &own
	default:
		return nil, ErrForbidden
	}

	coupon := &model.Coupon{
		ID:              s.newID(),
		Code:            code,
		DiscountPercent: pct,
		CompanyID:       companyID,
		UsageLimit:      *req.UsageLimit,
		ExpireDate:      req.ExpireDate,
		CreatedAt:       s.now(),
	}
	if err := s.coupons.Insert(ctx, coupon); err != nil {
		return nil, storageErr("insert coupon", err)
	}
	return coupon, nil
}

// Update edits the fields present in req. The coupon row is locked so a
// concurrent redemption cannot interleave with the usage limit change.
// Admins may edit any coupon; company managers only their own company's.
// Returns:
//   - ErrInvalidRequest if nothing would change, the code is blank or the new expiry has passed
//   - ErrInvalidDiscount if the percent is outside [0, 50]
//   - ErrCouponNotFound, ErrForbidden, ErrCouponExists
func (s *CouponService) Update(ctx context.Context, p model.Principal, id uuid.UUID, req *model.UpdateCouponRequest) (*model.Coupon, error) {
	if req == nil || req.Empty() {
		return nil, ErrInvalidRequest
	}
	if req.Code != nil && strings.TrimSpace(*req.Code) == "" {
		return nil, ErrInvalidRequest
	}
	if req.UsageLimit != nil && *req.UsageLimit < 0 {
		return nil, ErrInvalidRequest
	}
	if req.ExpireDate != nil && !req.ExpireDate.After(s.now()) {
		return nil, ErrInvalidRequest
	}
	if req.DiscountPercent != nil && !model.Percent(*req.DiscountPercent).Valid() {
		return nil, ErrInvalidDiscount
	}

	var own *uuid.UUID
	switch p.Role {
	case model.RoleAdmin:
	case model.RoleCompany:
		companyID, err := s.auth.CompanyOf(ctx, p)
		if err != nil {
			return nil, err
		}
		own = &companyID
	default:
		return nil, ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storageErr("begin tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	coupon, err := s.coupons.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, storageErr("lock coupon", err)
	}
	if own != nil && (coupon.CompanyID == nil || *coupon.CompanyID != *own) {
		return nil, ErrForbidden
	}

	if req.Code != nil {
		coupon.Code = strings.TrimSpace(*req.Code)
	}
	if req.DiscountPercent != nil {
		coupon.DiscountPercent = model.Percent(*req.DiscountPercent)
	}
	if req.UsageLimit != nil {
		coupon.UsageLimit = *req.UsageLimit
	}
	if req.ExpireDate != nil {
		coupon.ExpireDate = *req.ExpireDate
	}

	if err := s.coupons.Update(ctx, tx, coupon); err != nil {
		return nil, storageErr("update coupon", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr("commit coupon", err)
	}
	return coupon, nil
}

// Check previews whether userID could redeem the coupon, optionally on a
// specific trip. Nothing is locked or changed.
func (s *CouponService) Check(ctx context.Context, userID uuid.UUID, req *model.CheckCouponRequest) (*model.Coupon, error) {
	if req == nil || strings.TrimSpace(req.Code) == "" {
		return nil, ErrInvalidRequest
	}

	var scope *uuid.UUID
	if req.TripID != nil {
		trip, err := s.trips.GetByID(ctx, *req.TripID)
		if err != nil {
			return nil, storageErr("get trip", err)
		}
		if trip == nil {
			return nil, ErrTripNotFound
		}
		scope = &trip.CompanyID
	}

	return s.ledger.Inspect(ctx, strings.TrimSpace(req.Code), userID, scope)
}
