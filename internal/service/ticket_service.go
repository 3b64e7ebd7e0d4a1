package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
)

// TicketService answers ticket queries.
type TicketService struct {
	tickets TicketRepositoryInterface
	seats   SeatRepositoryInterface
}

// NewTicketService creates a TicketService from the shared dependencies.
func NewTicketService(d Deps) *TicketService {
	return &TicketService{tickets: d.Tickets, seats: d.Seats}
}

// ListForUser returns the user's tickets, newest first, each with its seats.
// Canceled tickets are listed with no seats because their seats were released.
func (s *TicketService) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.TicketView, error) {
	tickets, err := s.tickets.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageErr("list tickets", err)
	}

	views := make([]model.TicketView, 0, len(tickets))
	for _, t := range tickets {
		seats := []int{}
		if t.Status == model.TicketActive {
			seats, err = s.seats.ListByTicket(ctx, t.ID)
			if err != nil {
				return nil, storageErr("list ticket seats", err)
			}
		}
		views = append(views, model.TicketView{Ticket: t, Seats: seats})
	}
	return views, nil
}
