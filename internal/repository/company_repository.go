package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/bus-ticket-booking/internal/service"
	"github.com/fairyhunter13/bus-ticket-booking/pkg/database"
)

// CompanyRepository provides data access for bus companies.
type CompanyRepository struct {
	pool PoolInterface
}

// NewCompanyRepository creates a new CompanyRepository with the given pool.
func NewCompanyRepository(pool *pgxpool.Pool) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

// NewCompanyRepositoryWithPool creates a new CompanyRepository with a custom pool interface.
// This is primarily used for testing.
func NewCompanyRepositoryWithPool(pool PoolInterface) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

// Lock takes a row lock on the company.
// Returns service.ErrCompanyNotFound if the company doesn't exist.
func (r *CompanyRepository) Lock(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	var locked uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM bus_companies WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.ErrCompanyNotFound
		}
		return fmt.Errorf("lock company %s: %w", id, err)
	}
	return nil
}

// Delete removes the company. Its coupons go with it.
// Returns service.ErrCompanyNotFound if no row was deleted.
func (r *CompanyRepository) Delete(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `DELETE FROM bus_companies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete company %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCompanyNotFound
	}
	return nil
}
