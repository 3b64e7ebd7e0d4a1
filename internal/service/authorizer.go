package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
)

// Authorizer performs the ownership checks that precede the engines.
type Authorizer struct {
	users   UserRepositoryInterface
	trips   TripRepositoryInterface
	tickets TicketRepositoryInterface
}

// NewAuthorizer creates an Authorizer from the shared dependencies.
func NewAuthorizer(d Deps) *Authorizer {
	return &Authorizer{users: d.Users, trips: d.Trips, tickets: d.Tickets}
}

// CompanyOf returns the company a company manager works for.
// Returns ErrForbidden for any other caller.
func (a *Authorizer) CompanyOf(ctx context.Context, p model.Principal) (uuid.UUID, error) {
	if p.Role != model.RoleCompany {
		return uuid.Nil, ErrForbidden
	}
	user, err := a.users.GetByID(ctx, p.UserID)
	if err != nil {
		return uuid.Nil, storageErr("get user", err)
	}
	if user == nil || user.CompanyID == nil {
		return uuid.Nil, ErrForbidden
	}
	return *user.CompanyID, nil
}

// CanManageTrip allows the manager of the company that owns the trip.
func (a *Authorizer) CanManageTrip(ctx context.Context, p model.Principal, tripID uuid.UUID) error {
	companyID, err := a.CompanyOf(ctx, p)
	if err != nil {
		return err
	}
	trip, err := a.trips.GetByID(ctx, tripID)
	if err != nil {
		return storageErr("get trip", err)
	}
	if trip == nil {
		return ErrTripNotFound
	}
	if trip.CompanyID != companyID {
		return ErrForbidden
	}
	return nil
}

// CanCancelTicket allows the ticket owner and the manager of the company
// running the ticket's trip.
func (a *Authorizer) CanCancelTicket(ctx context.Context, p model.Principal, ticketID uuid.UUID) error {
	ticket, err := a.tickets.GetDetail(ctx, ticketID)
	if err != nil {
		return storageErr("get ticket", err)
	}
	if ticket.UserID == p.UserID {
		return nil
	}

	companyID, err := a.CompanyOf(ctx, p)
	if err != nil {
		return err
	}
	if companyID != ticket.TripCompanyID {
		return ErrForbidden
	}
	return nil
}
