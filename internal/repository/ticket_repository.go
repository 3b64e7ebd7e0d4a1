package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
	"github.com/fairyhunter13/bus-ticket-booking/internal/service"
	"github.com/fairyhunter13/bus-ticket-booking/pkg/database"
)

const ticketColumns = `id, trip_id, user_id, status, total_price, coupon_id, created_at`

const ticketDetailQuery = `SELECT tk.id, tk.trip_id, tk.user_id, tk.status, tk.total_price, tk.coupon_id, tk.created_at,
		tr.company_id, tr.departure_time
	FROM tickets tk
	JOIN trips tr ON tr.id = tk.trip_id
	WHERE tk.id = $1`

// TicketRepository provides data access for tickets using pgx.
type TicketRepository struct {
	pool PoolInterface
}

// NewTicketRepository creates a new TicketRepository with the given pool.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

// NewTicketRepositoryWithPool creates a new TicketRepository with a custom pool interface.
// This is primarily used for testing.
func NewTicketRepositoryWithPool(pool PoolInterface) *TicketRepository {
	return &TicketRepository{pool: pool}
}

func ticketDest(t *model.Ticket) []any {
	return []any{&t.ID, &t.TripID, &t.UserID, &t.Status, &t.TotalPrice, &t.CouponID, &t.CreatedAt}
}

func scanTicketDetail(row pgx.Row) (*model.TicketDetail, error) {
	var d model.TicketDetail
	dest := append(ticketDest(&d.Ticket), &d.TripCompanyID, &d.TripDepartureTime)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &d, nil
}

func collectTickets(rows pgx.Rows) ([]model.Ticket, error) {
	defer rows.Close()

	tickets := []model.Ticket{}
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(ticketDest(&t)...); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticket rows: %w", err)
	}
	return tickets, nil
}

// Insert inserts a new ticket within a transaction.
func (r *TicketRepository) Insert(ctx context.Context, tx database.TxQuerier, ticket *model.Ticket) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO tickets (`+ticketColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ticket.ID, ticket.TripID, ticket.UserID, string(ticket.Status),
		int64(ticket.TotalPrice), ticket.CouponID, ticket.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

// GetDetail retrieves a ticket with its trip's company and departure.
// Returns service.ErrTicketNotFound if the ticket doesn't exist.
func (r *TicketRepository) GetDetail(ctx context.Context, id uuid.UUID) (*model.TicketDetail, error) {
	d, err := scanTicketDetail(r.pool.QueryRow(ctx, ticketDetailQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrTicketNotFound
		}
		return nil, fmt.Errorf("get ticket %s: %w", id, err)
	}
	return d, nil
}

// GetDetailForUpdate is GetDetail with a lock on the ticket row only.
func (r *TicketRepository) GetDetailForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.TicketDetail, error) {
	d, err := scanTicketDetail(tx.QueryRow(ctx, ticketDetailQuery+` FOR UPDATE OF tk`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrTicketNotFound
		}
		return nil, fmt.Errorf("get ticket for update %s: %w", id, err)
	}
	return d, nil
}

// ListActiveByTripsForUpdate locks and returns the active tickets of the trips in id order.
func (r *TicketRepository) ListActiveByTripsForUpdate(ctx context.Context, tx database.TxQuerier, tripIDs []uuid.UUID) ([]model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
		WHERE trip_id = ANY($1) AND status = 'active'
		ORDER BY id
		FOR UPDATE`

	rows, err := tx.Query(ctx, query, tripIDs)
	if err != nil {
		return nil, fmt.Errorf("list active tickets: %w", err)
	}
	return collectTickets(rows)
}

// ListByUser returns a user's tickets, newest first.
func (r *TicketRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE user_id = $1 ORDER BY created_at DESC, id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list tickets for %s: %w", userID, err)
	}
	return collectTickets(rows)
}

// MarkCanceled moves an active ticket to canceled.
// Returns service.ErrTicketNotCancelable if the ticket is not active.
func (r *TicketRepository) MarkCanceled(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `UPDATE tickets SET status = 'canceled' WHERE id = $1 AND status = 'active'`, id)
	if err != nil {
		return fmt.Errorf("cancel ticket %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrTicketNotCancelable
	}
	return nil
}

// Delete removes a ticket and its seats.
func (r *TicketRepository) Delete(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete ticket %s: %w", id, err)
	}
	return nil
}
