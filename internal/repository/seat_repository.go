package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/bus-ticket-booking/internal/service"
	"github.com/fairyhunter13/bus-ticket-booking/pkg/database"
)

// seatKey is the unique (trip_id, seat_number) constraint on booked_seats.
const seatKey = "booked_seats_trip_seat_key"

// SeatRepository provides data access for booked seats using pgx.
// A seat row exists only while its ticket is active.
type SeatRepository struct {
	pool PoolInterface
}

// NewSeatRepository creates a new SeatRepository with the given pool.
func NewSeatRepository(pool *pgxpool.Pool) *SeatRepository {
	return &SeatRepository{pool: pool}
}

// NewSeatRepositoryWithPool creates a new SeatRepository with a custom pool interface.
// This is primarily used for testing.
func NewSeatRepositoryWithPool(pool PoolInterface) *SeatRepository {
	return &SeatRepository{pool: pool}
}

func collectSeats(rows pgx.Rows) ([]int, error) {
	defer rows.Close()

	seats := []int{}
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan seat number: %w", err)
		}
		seats = append(seats, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seat rows: %w", err)
	}
	return seats, nil
}

// ListOccupied returns the held seat numbers of a trip, ascending.
func (r *SeatRepository) ListOccupied(ctx context.Context, tripID uuid.UUID) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT seat_number FROM booked_seats WHERE trip_id = $1 ORDER BY seat_number`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list seats for trip %s: %w", tripID, err)
	}
	return collectSeats(rows)
}

// FindConflicts returns which of the seats are already held on the trip.
func (r *SeatRepository) FindConflicts(ctx context.Context, tx database.TxQuerier, tripID uuid.UUID, seats []int) ([]int, error) {
	rows, err := tx.Query(ctx,
		`SELECT seat_number FROM booked_seats WHERE trip_id = $1 AND seat_number = ANY($2) ORDER BY seat_number`,
		tripID, seats)
	if err != nil {
		return nil, fmt.Errorf("find seat conflicts: %w", err)
	}
	return collectSeats(rows)
}

// CountActive returns the number of held seats on the trip.
func (r *SeatRepository) CountActive(ctx context.Context, tx database.TxQuerier, tripID uuid.UUID) (int, error) {
	var n int
	err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM booked_seats WHERE trip_id = $1`, tripID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count seats for trip %s: %w", tripID, err)
	}
	return n, nil
}

// InsertAll stores one row per seat for the ticket in a single statement.
// A unique violation on (trip_id, seat_number) is reported as a
// *service.SeatConflictError naming the requested seats.
func (r *SeatRepository) InsertAll(ctx context.Context, tx database.TxQuerier, ticketID, tripID uuid.UUID, seats []int, newID func() uuid.UUID) error {
	ids := make([]uuid.UUID, len(seats))
	for i := range seats {
		ids[i] = newID()
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO booked_seats (id, ticket_id, trip_id, seat_number)
		 SELECT s.id, $2, $3, s.seat_number
		 FROM unnest($1::uuid[], $4::int[]) AS s(id, seat_number)`,
		ids, ticketID, tripID, seats)
	if err != nil {
		if name, ok := database.UniqueViolation(err); ok && name == seatKey {
			return &service.SeatConflictError{Seats: seats}
		}
		return fmt.Errorf("insert seats: %w", err)
	}
	return nil
}

// ListByTicket returns the seat numbers of a ticket, ascending.
func (r *SeatRepository) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT seat_number FROM booked_seats WHERE ticket_id = $1 ORDER BY seat_number`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list seats for ticket %s: %w", ticketID, err)
	}
	return collectSeats(rows)
}

// DeleteByTicket releases the ticket's seats and returns how many were held.
func (r *SeatRepository) DeleteByTicket(ctx context.Context, tx database.TxQuerier, ticketID uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM booked_seats WHERE ticket_id = $1`, ticketID)
	if err != nil {
		return 0, fmt.Errorf("release seats of %s: %w", ticketID, err)
	}
	return tag.RowsAffected(), nil
}
