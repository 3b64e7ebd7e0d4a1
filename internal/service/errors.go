package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrTripNotFound is returned when a trip cannot be found
	ErrTripNotFound = errors.New("trip not found")

	// ErrTripDeparted is returned when seats are requested on a trip that already left
	ErrTripDeparted = errors.New("trip already departed")

	// ErrInvalidTrip is returned when trip fields are inconsistent
	ErrInvalidTrip = errors.New("invalid trip")

	// ErrNoSeatsRequested is returned when a booking names no seat at all
	ErrNoSeatsRequested = errors.New("at least one seat must be selected")

	// ErrInvalidSeat is returned when a seat number is outside [1, capacity]
	ErrInvalidSeat = errors.New("invalid seat number")

	// ErrSeatConflict is returned when a requested seat is held by an active ticket
	ErrSeatConflict = errors.New("seat already booked")

	// ErrCapacityDecrease is returned when a trip capacity update would shrink the trip
	ErrCapacityDecrease = errors.New("trip capacity cannot be decreased")

	// ErrCapacityBelowBooked is returned when a capacity is below the active booked seat count
	ErrCapacityBelowBooked = errors.New("trip capacity below booked seat count")

	// ErrCouponExists is returned when attempting to create a coupon whose code is taken
	ErrCouponExists = errors.New("coupon already exists")

	// ErrCouponNotFound is returned when a coupon cannot be found
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrCouponExpired is returned when a coupon's expiry date has passed
	ErrCouponExpired = errors.New("coupon expired")

	// ErrCouponExhausted is returned when a coupon has no remaining uses
	ErrCouponExhausted = errors.New("coupon usage limit reached")

	// ErrCouponScopeMismatch is returned when a company coupon is used on another company's trip
	ErrCouponScopeMismatch = errors.New("coupon not valid for this trip")

	// ErrCouponAlreadyUsed is returned when a user attempts to redeem a coupon twice
	ErrCouponAlreadyUsed = errors.New("coupon already used by user")

	// ErrInvalidDiscount is returned when a coupon percent is outside [0, 50]
	ErrInvalidDiscount = errors.New("discount percent must be between 0 and 50")

	// ErrPriceOutOfRange is returned when a price or a booking total exceeds what can be charged
	ErrPriceOutOfRange = errors.New("price out of range")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInsufficientBalance is returned when a user cannot afford a purchase
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount is returned for negative ledger amounts
	ErrInvalidAmount = errors.New("ledger amount must not be negative")

	// ErrUserNotFound is returned when a user row is missing
	ErrUserNotFound = errors.New("user not found")

	// ErrTicketNotFound is returned when a ticket cannot be found
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrTicketNotCancelable is returned when a ticket is not active
	ErrTicketNotCancelable = errors.New("ticket is not active")

	// ErrTooLateToCancel is returned inside the one hour window before departure
	ErrTooLateToCancel = errors.New("tickets cannot be canceled within one hour of departure")

	// ErrCompanyNotFound is returned when a bus company cannot be found
	ErrCompanyNotFound = errors.New("company not found")

	// ErrForbidden is returned when the caller may not act on a resource
	ErrForbidden = errors.New("forbidden")

	// ErrStorageFailure marks infrastructure errors from the data store
	ErrStorageFailure = errors.New("storage failure")
)

// SeatConflictError lists the requested seats already held by active tickets.
type SeatConflictError struct {
	Seats []int
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSeatConflict, joinSeats(e.Seats))
}

// Is makes errors.Is(err, ErrSeatConflict) hold.
func (e *SeatConflictError) Is(target error) bool {
	return target == ErrSeatConflict
}

// InvalidSeatError names the first seat outside the trip's seat range.
type InvalidSeatError struct {
	Seat     int
	Capacity int
}

func (e *InvalidSeatError) Error() string {
	return fmt.Sprintf("%s: %d (capacity %d)", ErrInvalidSeat, e.Seat, e.Capacity)
}

// Is makes errors.Is(err, ErrInvalidSeat) hold.
func (e *InvalidSeatError) Is(target error) bool {
	return target == ErrInvalidSeat
}

// storageErr wraps an infrastructure error with the failing operation.
// Domain errors pass through untouched so callers can still match them.
func storageErr(op string, err error) error {
	if isDomainError(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}

var domainErrors = []error{
	ErrTripNotFound, ErrTripDeparted, ErrInvalidTrip, ErrNoSeatsRequested, ErrInvalidSeat,
	ErrSeatConflict, ErrCapacityDecrease, ErrCapacityBelowBooked, ErrCouponExists, ErrCouponNotFound,
	ErrCouponExpired, ErrCouponExhausted, ErrCouponScopeMismatch, ErrCouponAlreadyUsed,
	ErrInvalidDiscount, ErrPriceOutOfRange, ErrInvalidRequest, ErrInsufficientBalance, ErrInvalidAmount,
	ErrUserNotFound, ErrTicketNotFound, ErrTicketNotCancelable, ErrTooLateToCancel,
	ErrCompanyNotFound, ErrForbidden, ErrStorageFailure,
}

func isDomainError(err error) bool {
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return true
		}
	}
	return false
}

func joinSeats(seats []int) string {
	parts := make([]string, len(seats))
	for i, s := range seats {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ", ")
}
