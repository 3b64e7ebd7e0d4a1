package model

import (
	"time"

	"github.com/google/uuid"
)

// MaxDiscountPercent is the largest discount any coupon may grant.
const MaxDiscountPercent = 50

// Percent is a whole-number discount percentage (10 means 10%).
type Percent int

// Valid reports whether p lies in [0, MaxDiscountPercent].
func (p Percent) Valid() bool {
	return p >= 0 && p <= MaxDiscountPercent
}

// Clamp forces p into [0, MaxDiscountPercent].
func (p Percent) Clamp() Percent {
	if p < 0 {
		return 0
	}
	if p > MaxDiscountPercent {
		return MaxDiscountPercent
	}
	return p
}

// Coupon represents a discount coupon. A nil CompanyID makes the coupon global.
// UsageLimit is a consumable counter: it drops on every redemption and rises
// again when a redeemed ticket is canceled.
type Coupon struct {
	ID              uuid.UUID  `json:"id"`
	Code            string     `json:"code"`
	DiscountPercent Percent    `json:"discount_percent"`
	CompanyID       *uuid.UUID `json:"company_id"`
	UsageLimit      int        `json:"usage_limit"`
	ExpireDate      time.Time  `json:"expire_date"`
	CreatedAt       time.Time  `json:"-"`
}

// Global reports whether the coupon is usable with any company's trips.
func (c *Coupon) Global() bool {
	return c.CompanyID == nil
}

// CreateCouponRequest is the DTO for creating a coupon
type CreateCouponRequest struct {
	Code            string     `json:"code" validate:"required,notblank,max=64"`
	DiscountPercent *int       `json:"discount_percent" validate:"required,gte=0,lte=50"`
	CompanyID       *uuid.UUID `json:"company_id"`
	UsageLimit      *int       `json:"usage_limit" validate:"required,gte=1"`
	ExpireDate      time.Time  `json:"expire_date" validate:"required"`
}

// UpdateCouponRequest is the DTO for editing a coupon. Absent fields are left
// unchanged; the company scope cannot be changed.
type UpdateCouponRequest struct {
	Code            *string    `json:"code" validate:"omitempty,notblank,max=64"`
	DiscountPercent *int       `json:"discount_percent" validate:"omitempty,gte=0,lte=50"`
	UsageLimit      *int       `json:"usage_limit" validate:"omitempty,gte=0"`
	ExpireDate      *time.Time `json:"expire_date"`
}

// Empty reports whether the request changes nothing.
func (r *UpdateCouponRequest) Empty() bool {
	return r.Code == nil && r.DiscountPercent == nil && r.UsageLimit == nil && r.ExpireDate == nil
}

// CheckCouponRequest is the DTO for previewing a coupon before purchase
type CheckCouponRequest struct {
	Code   string     `json:"code" validate:"required,notblank,max=64"`
	TripID *uuid.UUID `json:"trip_id"`
}
