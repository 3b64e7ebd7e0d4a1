package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/bus-ticket-booking/internal/middleware"
	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
)

// CouponServiceInterface defines the interface for coupon business logic.
type CouponServiceInterface interface {
	Create(ctx context.Context, p model.Principal, req *model.CreateCouponRequest) (*model.Coupon, error)
	Update(ctx context.Context, p model.Principal, id uuid.UUID, req *model.UpdateCouponRequest) (*model.Coupon, error)
	Check(ctx context.Context, userID uuid.UUID, req *model.CheckCouponRequest) (*model.Coupon, error)
}

// CouponHandler handles HTTP requests for coupon operations.
type CouponHandler struct {
	service   CouponServiceInterface
	validator *validator.Validate
}

// NewCouponHandler creates a new CouponHandler with the given service and validator.
func NewCouponHandler(svc CouponServiceInterface, v *validator.Validate) *CouponHandler {
	return &CouponHandler{service: svc, validator: v}
}

// CreateCoupon handles POST /api/coupons requests to create a new coupon.
func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	var req model.CreateCouponRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}

	coupon, err := h.service.Create(c.Context(), p, &req)
	if err != nil {
		return writeError(c, err)
	}

	log.Info().
		Str("request_id", requestID(c)).
		Str("coupon_code", coupon.Code).
		Int("discount_percent", int(coupon.DiscountPercent)).
		Int("usage_limit", coupon.UsageLimit).
		Bool("global", coupon.Global()).
		Msg("coupon created")

	return c.Status(fiber.StatusCreated).JSON(coupon)
}

// UpdateCoupon handles PATCH /api/coupons/:id. Only the fields present in the
// body are changed.
func (h *CouponHandler) UpdateCoupon(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthenticated(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "INVALID_REQUEST", "invalid request: id must be a UUID")
	}

	var req model.UpdateCouponRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}
	if req.Empty() {
		return badRequest(c, "INVALID_REQUEST", "invalid request: no fields to update")
	}

	coupon, err := h.service.Update(c.Context(), p, id, &req)
	if err != nil {
		return writeError(c, err)
	}

	log.Info().
		Str("request_id", requestID(c)).
		Str("coupon_id", coupon.ID.String()).
		Str("coupon_code", coupon.Code).
		Int("discount_percent", int(coupon.DiscountPercent)).
		Int("usage_limit", coupon.UsageLimit).
		Msg("coupon updated")

	return c.JSON(coupon)
}

// CheckCoupon handles POST /api/coupons/check. It previews a redemption
// without consuming the coupon.
func (h *CouponHandler) CheckCoupon(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	var req model.CheckCouponRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}

	coupon, err := h.service.Check(c.Context(), p.UserID, &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"valid": true, "coupon": coupon})
}
