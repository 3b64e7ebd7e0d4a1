package model

import (
	"time"

	"github.com/google/uuid"
)

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	TicketActive   TicketStatus = "active"
	TicketCanceled TicketStatus = "canceled"
)

// Ticket groups the seats one rider holds on one trip.
type Ticket struct {
	ID         uuid.UUID    `json:"ticket_id"`
	TripID     uuid.UUID    `json:"trip_id"`
	UserID     uuid.UUID    `json:"user_id"`
	Status     TicketStatus `json:"status"`
	TotalPrice Money        `json:"total_price"`
	CouponID   *uuid.UUID   `json:"coupon_id,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// TicketDetail is a ticket joined with the trip fields the engines need.
type TicketDetail struct {
	Ticket
	TripCompanyID     uuid.UUID
	TripDepartureTime time.Time
}

// TicketView is a ticket as listed to its owner.
type TicketView struct {
	Ticket
	Seats []int `json:"seats"`
}

// BookingRequest is the DTO for purchasing seats on a trip
type BookingRequest struct {
	TripID     uuid.UUID `json:"trip_id" validate:"required"`
	Seats      []int     `json:"seats" validate:"required,min=1,max=100"`
	CouponCode string    `json:"coupon_code" validate:"max=64"`
}

// BookingResult is returned after a successful purchase.
type BookingResult struct {
	TicketID   uuid.UUID    `json:"ticket_id"`
	UserID     uuid.UUID    `json:"user_id"`
	TripID     uuid.UUID    `json:"trip_id"`
	Subtotal   Money        `json:"subtotal"`
	Discount   Money        `json:"discount"`
	TotalPrice Money        `json:"total_price"`
	Seats      []int        `json:"seats"`
	Status     TicketStatus `json:"status"`
	CouponID   *uuid.UUID   `json:"coupon_id,omitempty"`
}

// CancellationResult is returned after a ticket has been canceled.
type CancellationResult struct {
	TicketID      uuid.UUID    `json:"ticket_id"`
	Refunded      Money        `json:"refunded"`
	CouponRestore bool         `json:"coupon_restored"`
	Status        TicketStatus `json:"status"`
}

// RefundSummary describes the effect of a trip or company deletion.
type RefundSummary struct {
	TripsDeleted    int   `json:"trips_deleted"`
	TicketsRefunded int   `json:"tickets_refunded"`
	AmountRefunded  Money `json:"amount_refunded"`
	UsersDetached   int64 `json:"users_detached,omitempty"`
}
