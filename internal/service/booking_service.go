package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
)

// BookingService sells seats. Each purchase is one transaction that either
// creates the ticket with its seats, debits the rider and consumes the coupon,
// or changes nothing at all.
type BookingService struct {
	pool    TxBeginner
	trips   TripRepositoryInterface
	tickets TicketRepositoryInterface
	seats   SeatRepositoryInterface
	seatMap *SeatMap
	coupons *CouponLedger
	ledger  *Ledger
	now     func() time.Time
	newID   func() uuid.UUID
}

// NewBookingService creates a BookingService from the shared dependencies.
func NewBookingService(d Deps) *BookingService {
	d = d.withDefaults()
	return &BookingService{
		pool:    d.Pool,
		trips:   d.Trips,
		tickets: d.Tickets,
		seats:   d.Seats,
		seatMap: NewSeatMap(d.Seats),
		coupons: NewCouponLedger(d.Coupons, d.CouponUses, d.Now),
		ledger:  NewLedger(d.Users),
		now:     d.Now,
		newID:   d.NewID,
	}
}

// Book purchases the requested seats on a trip for userID.
// The trip row is locked first, then the coupon, then the user, which is the
// lock order every engine follows.
// Returns, first failure wins:
//   - ErrNoSeatsRequested if no seat was named
//   - ErrTripNotFound, ErrTripDeparted
//   - *InvalidSeatError for a seat outside [1, capacity]
//   - *SeatConflictError listing seats held by active tickets
//   - ErrPriceOutOfRange when the seat total does not fit in Money
//   - a coupon error from CouponLedger.Redeem
//   - ErrInsufficientBalance
func (s *BookingService) Book(ctx context.Context, userID uuid.UUID, req *model.BookingRequest) (*model.BookingResult, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	if len(req.Seats) == 0 {
		return nil, ErrNoSeatsRequested
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storageErr("begin tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // no-op after commit

	// 1. Lock the trip so bookings on it serialize
	trip, err := s.trips.GetForUpdate(ctx, tx, req.TripID)
	if err != nil {
		return nil, storageErr("lock trip", err)
	}

	// 2. Departure
	if !s.now().Before(trip.DepartureTime) {
		return nil, ErrTripDeparted
	}

	// 3. Seat range
	seats, err := NormalizeSeats(req.Seats, trip.Capacity)
	if err != nil {
		return nil, err
	}

	// 4. Seat conflicts
	if err := s.seatMap.CheckFree(ctx, tx, trip.ID, seats); err != nil {
		return nil, err
	}

	// 5. Pricing
	subtotal, err := SeatTotal(trip.Price, len(seats))
	if err != nil {
		return nil, err
	}
	final := subtotal
	var discount model.Money
	var couponID *uuid.UUID

	// 6. Coupon
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		r, err := s.coupons.Redeem(ctx, tx, code, userID, trip.CompanyID, subtotal)
		if err != nil {
			return nil, err
		}
		discount = r.Discount
		final = max(subtotal-discount, 0)
		couponID = &r.CouponID
	}

	// 7. Balance
	if err := s.ledger.Debit(ctx, tx, userID, final); err != nil {
		return nil, err
	}

	ticket := &model.Ticket{
		ID:         s.newID(),
		TripID:     trip.ID,
		UserID:     userID,
		Status:     model.TicketActive,
		TotalPrice: final,
		CouponID:   couponID,
		CreatedAt:  s.now(),
	}
	if err := s.tickets.Insert(ctx, tx, ticket); err != nil {
		return nil, storageErr("insert ticket", err)
	}

	// The (trip, seat) unique key backs up the conflict check above.
	if err := s.seats.InsertAll(ctx, tx, ticket.ID, trip.ID, seats, s.newID); err != nil {
		return nil, storageErr("insert seats", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr("commit booking", err)
	}

	return &model.BookingResult{
		TicketID:   ticket.ID,
		UserID:     userID,
		TripID:     trip.ID,
		Subtotal:   subtotal,
		Discount:   discount,
		TotalPrice: final,
		Seats:      seats,
		Status:     ticket.Status,
		CouponID:   couponID,
	}, nil
}

// SeatTotal returns price times seats, or ErrPriceOutOfRange when the price
// is not positive or the product overflows.
func SeatTotal(price model.Money, seats int) (model.Money, error) {
	if price <= 0 || seats < 0 {
		return 0, ErrPriceOutOfRange
	}
	if seats > 0 && price > math.MaxInt64/model.Money(seats) {
		return 0, ErrPriceOutOfRange
	}
	return price * model.Money(seats), nil
}
