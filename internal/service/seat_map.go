package service

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
	"github.com/fairyhunter13/bus-ticket-booking/pkg/database"
)

// SeatMap answers which seats of a trip are held by active tickets.
// Seat rows are removed when their ticket is canceled, so every stored seat
// row belongs to an active ticket.
type SeatMap struct {
	seats SeatRepositoryInterface
}

// NewSeatMap creates a SeatMap over the given seat repository.
func NewSeatMap(seats SeatRepositoryInterface) *SeatMap {
	return &SeatMap{seats: seats}
}

// NormalizeSeats de-duplicates and sorts the requested seats and checks each
// one against [1, capacity].
// Returns ErrNoSeatsRequested for an empty request and *InvalidSeatError for
// the lowest out-of-range seat.
func NormalizeSeats(requested []int, capacity int) ([]int, error) {
	if len(requested) == 0 {
		return nil, ErrNoSeatsRequested
	}

	seats := slices.Clone(requested)
	slices.Sort(seats)
	seats = slices.Compact(seats)

	for _, n := range seats {
		if n < 1 || n > capacity {
			return nil, &InvalidSeatError{Seat: n, Capacity: capacity}
		}
	}
	return seats, nil
}

// ConflictsFor returns the subset of seats already held on the trip, ascending.
func (m *SeatMap) ConflictsFor(ctx context.Context, tx database.TxQuerier, tripID uuid.UUID, seats []int) ([]int, error) {
	taken, err := m.seats.FindConflicts(ctx, tx, tripID, seats)
	if err != nil {
		return nil, storageErr("find seat conflicts", err)
	}
	slices.Sort(taken)
	return taken, nil
}

// CheckFree fails with *SeatConflictError when any of the seats is held.
func (m *SeatMap) CheckFree(ctx context.Context, tx database.TxQuerier, tripID uuid.UUID, seats []int) error {
	taken, err := m.ConflictsFor(ctx, tx, tripID, seats)
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		return &SeatConflictError{Seats: taken}
	}
	return nil
}

// HeldCount returns the number of seats held by active tickets on the trip.
func (m *SeatMap) HeldCount(ctx context.Context, tx database.TxQuerier, tripID uuid.UUID) (int, error) {
	held, err := m.seats.CountActive(ctx, tx, tripID)
	if err != nil {
		return 0, storageErr("count booked seats", err)
	}
	return held, nil
}

// AvailableCount returns capacity minus the held seats, floored at zero.
func AvailableCount(capacity, held int) int {
	return max(capacity-held, 0)
}

// Availability builds the per-seat map of a trip outside any transaction.
func (m *SeatMap) Availability(ctx context.Context, trip *model.Trip) (*model.SeatAvailability, error) {
	occupied, err := m.seats.ListOccupied(ctx, trip.ID)
	if err != nil {
		return nil, storageErr("list booked seats", err)
	}

	held := make(map[int]bool, len(occupied))
	for _, n := range occupied {
		held[n] = true
	}

	out := &model.SeatAvailability{
		TripID:    trip.ID,
		Capacity:  trip.Capacity,
		Available: AvailableCount(trip.Capacity, len(held)),
		Seats:     make([]model.SeatStatus, 0, trip.Capacity),
	}
	for n := 1; n <= trip.Capacity; n++ {
		out.Seats = append(out.Seats, model.SeatStatus{SeatNumber: n, Booked: held[n]})
	}
	return out, nil
}
