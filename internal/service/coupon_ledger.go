package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
	"github.com/fairyhunter13/bus-ticket-booking/pkg/database"
)

var hundred = decimal.NewFromInt(100)

// Redemption is the outcome of applying a coupon to a subtotal.
type Redemption struct {
	CouponID uuid.UUID
	Percent  model.Percent
	Discount model.Money
}

// CouponLedger validates, redeems and restores coupons for one user.
type CouponLedger struct {
	coupons CouponRepositoryInterface
	uses    CouponUseRepositoryInterface
	now     func() time.Time
}

// NewCouponLedger creates a CouponLedger. A nil now defaults to time.Now.
func NewCouponLedger(coupons CouponRepositoryInterface, uses CouponUseRepositoryInterface, now func() time.Time) *CouponLedger {
	if now == nil {
		now = time.Now
	}
	return &CouponLedger{coupons: coupons, uses: uses, now: now}
}

// DiscountAmount returns subtotal*percent/100 rounded half away from zero.
// The percent is clamped to [0, 50] first.
func DiscountAmount(subtotal model.Money, percent model.Percent) model.Money {
	d := decimal.NewFromInt(int64(subtotal)).
		Mul(decimal.NewFromInt(int64(percent.Clamp()))).
		Div(hundred).
		Round(0)
	return model.Money(d.IntPart())
}

// Redeem applies the coupon with the given code to subtotal for userID on a
// trip owned by scopeCompanyID. The coupon row stays locked until tx ends.
// Checks run in order and the first failure wins:
//   - ErrCouponNotFound if no coupon has the code
//   - ErrCouponExpired if its expiry date has passed
//   - ErrCouponExhausted if no uses remain
//   - ErrCouponScopeMismatch if it belongs to another company
//   - ErrCouponAlreadyUsed if the user redeemed it before
func (l *CouponLedger) Redeem(ctx context.Context, tx database.TxQuerier, code string, userID, scopeCompanyID uuid.UUID, subtotal model.Money) (*Redemption, error) {
	coupon, err := l.coupons.GetByCodeForUpdate(ctx, tx, code)
	if err != nil {
		return nil, storageErr("lock coupon", err)
	}

	if err := l.checkUsable(coupon, &scopeCompanyID); err != nil {
		return nil, err
	}

	// The (coupon, user) key rejects a second redemption before any counter moves.
	if err := l.uses.Insert(ctx, tx, coupon.ID, userID); err != nil {
		return nil, storageErr("record coupon use", err)
	}

	if err := l.coupons.DecrementUsage(ctx, tx, coupon.ID); err != nil {
		return nil, storageErr("decrement coupon usage", err)
	}

	pct := coupon.DiscountPercent.Clamp()
	return &Redemption{
		CouponID: coupon.ID,
		Percent:  pct,
		Discount: DiscountAmount(subtotal, pct),
	}, nil
}

// Restore gives a redeemed coupon back to userID: the use record is removed
// and one unit of usage is returned. Any failure must abort the caller's
// transaction.
func (l *CouponLedger) Restore(ctx context.Context, tx database.TxQuerier, couponID, userID uuid.UUID) error {
	removed, err := l.uses.Delete(ctx, tx, couponID, userID)
	if err != nil {
		return storageErr("delete coupon use", err)
	}
	if removed != 1 {
		log.Warn().
			Str("coupon_id", couponID.String()).
			Str("user_id", userID.String()).
			Int64("uses_removed", removed).
			Msg("coupon use record missing on restore")
	}
	if err := l.coupons.IncrementUsage(ctx, tx, couponID); err != nil {
		return storageErr("restore coupon usage", err)
	}
	return nil
}

// Inspect runs the redemption checks without locking or mutating anything.
// Scope is only checked when scopeCompanyID is non-nil.
func (l *CouponLedger) Inspect(ctx context.Context, code string, userID uuid.UUID, scopeCompanyID *uuid.UUID) (*model.Coupon, error) {
	coupon, err := l.coupons.GetByCode(ctx, code)
	if err != nil {
		return nil, storageErr("get coupon", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}

	if err := l.checkUsable(coupon, scopeCompanyID); err != nil {
		return nil, err
	}

	used, err := l.uses.HasUsed(ctx, coupon.ID, userID)
	if err != nil {
		return nil, storageErr("check coupon use", err)
	}
	if used {
		return nil, ErrCouponAlreadyUsed
	}
	return coupon, nil
}

func (l *CouponLedger) checkUsable(coupon *model.Coupon, scopeCompanyID *uuid.UUID) error {
	if coupon.ExpireDate.Before(l.now()) {
		return ErrCouponExpired
	}
	if coupon.UsageLimit <= 0 {
		return ErrCouponExhausted
	}
	if !coupon.Global() && scopeCompanyID != nil && *coupon.CompanyID != *scopeCompanyID {
		return ErrCouponScopeMismatch
	}
	return nil
}
