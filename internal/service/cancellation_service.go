package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
)

// CancellationCutoff is the window before departure in which tickets can no
// longer be canceled. A trip leaving in exactly this long is already inside it.
const CancellationCutoff = time.Hour

// CancellationService reverses single tickets.
type CancellationService struct {
	pool    TxBeginner
	tickets TicketRepositoryInterface
	seats   SeatRepositoryInterface
	coupons *CouponLedger
	ledger  *Ledger
	now     func() time.Time
}

// NewCancellationService creates a CancellationService from the shared dependencies.
func NewCancellationService(d Deps) *CancellationService {
	d = d.withDefaults()
	return &CancellationService{
		pool:    d.Pool,
		tickets: d.Tickets,
		seats:   d.Seats,
		coupons: NewCouponLedger(d.Coupons, d.CouponUses, d.Now),
		ledger:  NewLedger(d.Users),
		now:     d.Now,
	}
}

// Cancel refunds the full ticket price to its owner, gives back the coupon if
// one was used, releases the seats and marks the ticket canceled. The ticket
// row is kept. The caller must have authorized the request.
// Returns ErrTicketNotFound, ErrTicketNotCancelable or ErrTooLateToCancel.
func (s *CancellationService) Cancel(ctx context.Context, ticketID uuid.UUID) (*model.CancellationResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storageErr("begin tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ticket, err := s.tickets.GetDetailForUpdate(ctx, tx, ticketID)
	if err != nil {
		return nil, storageErr("lock ticket", err)
	}

	if ticket.Status != model.TicketActive {
		return nil, ErrTicketNotCancelable
	}
	if ticket.TripDepartureTime.Sub(s.now()) <= CancellationCutoff {
		return nil, ErrTooLateToCancel
	}

	// Coupon before user keeps the same lock order as booking.
	restored := false
	if ticket.CouponID != nil {
		if err := s.coupons.Restore(ctx, tx, *ticket.CouponID, ticket.UserID); err != nil {
			return nil, err
		}
		restored = true
	}

	if err := s.ledger.Credit(ctx, tx, ticket.UserID, ticket.TotalPrice); err != nil {
		return nil, err
	}

	if _, err := s.seats.DeleteByTicket(ctx, tx, ticket.ID); err != nil {
		return nil, storageErr("release seats", err)
	}

	if err := s.tickets.MarkCanceled(ctx, tx, ticket.ID); err != nil {
		return nil, storageErr("mark ticket canceled", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr("commit cancellation", err)
	}

	return &model.CancellationResult{
		TicketID:      ticket.ID,
		Refunded:      ticket.TotalPrice,
		CouponRestore: restored,
		Status:        model.TicketCanceled,
	}, nil
}
