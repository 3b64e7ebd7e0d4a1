package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
	"github.com/fairyhunter13/bus-ticket-booking/internal/service"
	"github.com/fairyhunter13/bus-ticket-booking/pkg/database"
)

const tripColumns = `id, company_id, departure_city, destination_city, departure_time, arrival_time, price, capacity, created_at`

// TripRepository provides data access for trips using pgx.
type TripRepository struct {
	pool PoolInterface
}

// NewTripRepository creates a new TripRepository with the given pool.
func NewTripRepository(pool *pgxpool.Pool) *TripRepository {
	return &TripRepository{pool: pool}
}

// NewTripRepositoryWithPool creates a new TripRepository with a custom pool interface.
// This is primarily used for testing.
func NewTripRepositoryWithPool(pool PoolInterface) *TripRepository {
	return &TripRepository{pool: pool}
}

func scanTrip(row pgx.Row) (*model.Trip, error) {
	var t model.Trip
	err := row.Scan(
		&t.ID,
		&t.CompanyID,
		&t.DepartureCity,
		&t.DestinationCity,
		&t.DepartureTime,
		&t.ArrivalTime,
		&t.Price,
		&t.Capacity,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Insert inserts a new trip.
// Returns service.ErrCompanyNotFound if the owning company does not exist.
func (r *TripRepository) Insert(ctx context.Context, trip *model.Trip) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO trips (id, company_id, departure_city, destination_city, departure_time, arrival_time, price, capacity, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		trip.ID, trip.CompanyID, trip.DepartureCity, trip.DestinationCity,
		trip.DepartureTime, trip.ArrivalTime, int64(trip.Price), trip.Capacity, trip.CreatedAt)
	if err != nil {
		if _, ok := database.ForeignKeyViolation(err); ok {
			return service.ErrCompanyNotFound
		}
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

// GetByID retrieves a trip by id.
// Returns nil, nil if the trip is not found (service layer handles this).
func (r *TripRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get trip %s: %w", id, err)
	}
	return trip, nil
}

// GetForUpdate retrieves a trip with a row lock (SELECT FOR UPDATE).
// Bookings, capacity changes and deletions of one trip serialize on this lock.
// Returns service.ErrTripNotFound if the trip doesn't exist.
func (r *TripRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 FOR UPDATE`

	trip, err := scanTrip(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrTripNotFound
		}
		return nil, fmt.Errorf("get trip for update %s: %w", id, err)
	}
	return trip, nil
}

// Search lists trips matching the filter with the number of seats held by
// active tickets. City filters are case-insensitive substring matches.
func (r *TripRepository) Search(ctx context.Context, filter model.TripSearch) ([]model.TripListing, error) {
	var (
		wheres []string
		args   []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	wheres = append(wheres, "t.departure_time >= "+arg(filter.DepartFrom))
	if filter.DepartUntil != nil {
		wheres = append(wheres, "t.departure_time < "+arg(*filter.DepartUntil))
	}
	if filter.DepartureCity != "" {
		wheres = append(wheres, "t.departure_city ILIKE "+arg(likePattern(filter.DepartureCity)))
	}
	if filter.DestinationCity != "" {
		wheres = append(wheres, "t.destination_city ILIKE "+arg(likePattern(filter.DestinationCity)))
	}
	if filter.CompanyID != nil {
		wheres = append(wheres, "t.company_id = "+arg(*filter.CompanyID))
	}
	if filter.MinPrice != nil {
		wheres = append(wheres, "t.price >= "+arg(int64(*filter.MinPrice)))
	}
	if filter.MaxPrice != nil {
		wheres = append(wheres, "t.price <= "+arg(int64(*filter.MaxPrice)))
	}

	order := "t.departure_time, t.id"
	if filter.SortBy == model.SortByPrice {
		order = "t.price, t.departure_time, t.id"
	}

	query := `SELECT t.id, t.company_id, t.departure_city, t.destination_city, t.departure_time,
			t.arrival_time, t.price, t.capacity, t.created_at,
			(SELECT COUNT(*) FROM booked_seats bs WHERE bs.trip_id = t.id)::int
		FROM trips t
		WHERE ` + strings.Join(wheres, " AND ") + `
		ORDER BY ` + order

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search trips: %w", err)
	}
	defer rows.Close()

	listings := []model.TripListing{}
	for rows.Next() {
		var l model.TripListing
		err := rows.Scan(
			&l.ID,
			&l.CompanyID,
			&l.DepartureCity,
			&l.DestinationCity,
			&l.DepartureTime,
			&l.ArrivalTime,
			&l.Price,
			&l.Capacity,
			&l.CreatedAt,
			&l.BookedSeats,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trip listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trip listings: %w", err)
	}
	return listings, nil
}

// likePattern turns s into a substring pattern with LIKE wildcards escaped.
func likePattern(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

// ListUpcomingByCompanyForUpdate locks and returns the company's trips that
// depart after now, in id order.
func (r *TripRepository) ListUpcomingByCompanyForUpdate(ctx context.Context, tx database.TxQuerier, companyID uuid.UUID, now time.Time) ([]model.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips
		WHERE company_id = $1 AND departure_time > $2
		ORDER BY id
		FOR UPDATE`

	rows, err := tx.Query(ctx, query, companyID, now)
	if err != nil {
		return nil, fmt.Errorf("list upcoming trips for %s: %w", companyID, err)
	}
	defer rows.Close()

	trips := []model.Trip{}
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, *trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trip rows: %w", err)
	}
	return trips, nil
}

// UpdateCapacity sets the capacity of a trip.
// Returns service.ErrTripNotFound if no row was updated.
func (r *TripRepository) UpdateCapacity(ctx context.Context, tx database.TxQuerier, id uuid.UUID, capacity int) error {
	tag, err := tx.Exec(ctx, `UPDATE trips SET capacity = $2 WHERE id = $1`, id, capacity)
	if err != nil {
		return fmt.Errorf("update capacity for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrTripNotFound
	}
	return nil
}

// Delete removes a trip. Its tickets and seats go with it.
// Returns service.ErrTripNotFound if no row was deleted.
func (r *TripRepository) Delete(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete trip %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrTripNotFound
	}
	return nil
}

// DeleteByCompany removes every trip of a company and returns how many went.
func (r *TripRepository) DeleteByCompany(ctx context.Context, tx database.TxQuerier, companyID uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM trips WHERE company_id = $1`, companyID)
	if err != nil {
		return 0, fmt.Errorf("delete trips of %s: %w", companyID, err)
	}
	return tag.RowsAffected(), nil
}
