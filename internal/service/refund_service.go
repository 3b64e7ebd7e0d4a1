package service

import (
	"bytes"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
	"github.com/fairyhunter13/bus-ticket-booking/pkg/database"
)

// RefundService deletes trips and companies, refunding every active ticket
// on the affected trips first. Coupons used by refunded tickets are not
// given back, unlike single-ticket cancellation.
type RefundService struct {
	pool      TxBeginner
	trips     TripRepositoryInterface
	tickets   TicketRepositoryInterface
	seats     SeatRepositoryInterface
	users     UserRepositoryInterface
	companies CompanyRepositoryInterface
	ledger    *Ledger
	now       func() time.Time
}

// NewRefundService creates a RefundService from the shared dependencies.
func NewRefundService(d Deps) *RefundService {
	d = d.withDefaults()
	return &RefundService{
		pool:      d.Pool,
		trips:     d.Trips,
		tickets:   d.Tickets,
		seats:     d.Seats,
		users:     d.Users,
		companies: d.Companies,
		ledger:    NewLedger(d.Users),
		now:       d.Now,
	}
}

// DeleteTrip refunds all active tickets of the trip and deletes it.
// Returns ErrTripNotFound if the trip does not exist.
func (s *RefundService) DeleteTrip(ctx context.Context, tripID uuid.UUID) (*model.RefundSummary, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storageErr("begin tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	trip, err := s.trips.GetForUpdate(ctx, tx, tripID)
	if err != nil {
		return nil, storageErr("lock trip", err)
	}

	summary := &model.RefundSummary{}
	if err := s.refundTickets(ctx, tx, []uuid.UUID{trip.ID}, summary); err != nil {
		return nil, err
	}

	if err := s.trips.Delete(ctx, tx, trip.ID); err != nil {
		return nil, storageErr("delete trip", err)
	}
	summary.TripsDeleted = 1

	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr("commit trip deletion", err)
	}

	log.Info().
		Str("trip_id", trip.ID.String()).
		Int("tickets_refunded", summary.TicketsRefunded).
		Int64("amount_refunded", int64(summary.AmountRefunded)).
		Msg("trip deleted")

	return summary, nil
}

// DeleteCompany refunds the active tickets of the company's upcoming trips,
// deletes all of its trips, turns its managers back into plain users and
// deletes the company. Tickets on trips that already departed are not refunded.
// Returns ErrCompanyNotFound if the company does not exist.
func (s *RefundService) DeleteCompany(ctx context.Context, companyID uuid.UUID) (*model.RefundSummary, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storageErr("begin tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.companies.Lock(ctx, tx, companyID); err != nil {
		return nil, storageErr("lock company", err)
	}

	upcoming, err := s.trips.ListUpcomingByCompanyForUpdate(ctx, tx, companyID, s.now())
	if err != nil {
		return nil, storageErr("lock upcoming trips", err)
	}

	tripIDs := make([]uuid.UUID, len(upcoming))
	for i, t := range upcoming {
		tripIDs[i] = t.ID
	}

	summary := &model.RefundSummary{}
	if err := s.refundTickets(ctx, tx, tripIDs, summary); err != nil {
		return nil, err
	}

	deleted, err := s.trips.DeleteByCompany(ctx, tx, companyID)
	if err != nil {
		return nil, storageErr("delete company trips", err)
	}
	summary.TripsDeleted = int(deleted)

	detached, err := s.users.DetachCompany(ctx, tx, companyID)
	if err != nil {
		return nil, storageErr("detach company users", err)
	}
	summary.UsersDetached = detached

	if err := s.companies.Delete(ctx, tx, companyID); err != nil {
		return nil, storageErr("delete company", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr("commit company deletion", err)
	}

	log.Info().
		Str("company_id", companyID.String()).
		Int("trips_deleted", summary.TripsDeleted).
		Int("tickets_refunded", summary.TicketsRefunded).
		Int64("amount_refunded", int64(summary.AmountRefunded)).
		Int64("users_detached", summary.UsersDetached).
		Msg("company deleted")

	return summary, nil
}

// refundTickets releases, cancels and purges every active ticket on the
// trips, then credits each owner once with the sum of their tickets.
// Owners are credited in ascending id order.
func (s *RefundService) refundTickets(ctx context.Context, tx database.TxQuerier, tripIDs []uuid.UUID, summary *model.RefundSummary) error {
	if len(tripIDs) == 0 {
		return nil
	}

	tickets, err := s.tickets.ListActiveByTripsForUpdate(ctx, tx, tripIDs)
	if err != nil {
		return storageErr("lock active tickets", err)
	}

	credits := make(map[uuid.UUID]model.Money)
	for _, t := range tickets {
		if _, err := s.seats.DeleteByTicket(ctx, tx, t.ID); err != nil {
			return storageErr("release seats", err)
		}
		if err := s.tickets.MarkCanceled(ctx, tx, t.ID); err != nil {
			return storageErr("mark ticket canceled", err)
		}
		if err := s.tickets.Delete(ctx, tx, t.ID); err != nil {
			return storageErr("delete ticket", err)
		}
		credits[t.UserID] += t.TotalPrice
		summary.TicketsRefunded++
		summary.AmountRefunded += t.TotalPrice
	}

	owners := make([]uuid.UUID, 0, len(credits))
	for id := range credits {
		owners = append(owners, id)
	}
	slices.SortFunc(owners, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })

	for _, id := range owners {
		if err := s.ledger.Credit(ctx, tx, id, credits[id]); err != nil {
			return err
		}
	}
	return nil
}
