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

// UserRepository provides data access for user balances and company membership.
type UserRepository struct {
	pool PoolInterface
}

// NewUserRepository creates a new UserRepository with the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// NewUserRepositoryWithPool creates a new UserRepository with a custom pool interface.
// This is primarily used for testing.
func NewUserRepositoryWithPool(pool PoolInterface) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID retrieves a user by id.
// Returns nil, nil if the user is not found.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, role, company_id, balance FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Role, &u.CompanyID, &u.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

// GetBalanceForUpdate locks the user row and returns its balance.
// Returns service.ErrUserNotFound if the user doesn't exist.
func (r *UserRepository) GetBalanceForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (model.Money, error) {
	var balance model.Money
	err := tx.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, service.ErrUserNotFound
		}
		return 0, fmt.Errorf("lock balance of %s: %w", id, err)
	}
	return balance, nil
}

// AdjustBalance adds delta to the user's balance.
// Returns service.ErrUserNotFound if no row was updated and
// service.ErrInsufficientBalance if the balance check constraint rejects it.
func (r *UserRepository) AdjustBalance(ctx context.Context, tx database.TxQuerier, id uuid.UUID, delta model.Money) error {
	tag, err := tx.Exec(ctx, `UPDATE users SET balance = balance + $2 WHERE id = $1`, id, int64(delta))
	if err != nil {
		if _, ok := database.CheckViolation(err); ok {
			return service.ErrInsufficientBalance
		}
		return fmt.Errorf("adjust balance of %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrUserNotFound
	}
	return nil
}

// DetachCompany turns every manager of the company back into a plain user.
func (r *UserRepository) DetachCompany(ctx context.Context, tx database.TxQuerier, companyID uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx,
		`UPDATE users SET role = 'user', company_id = NULL WHERE company_id = $1`, companyID)
	if err != nil {
		return 0, fmt.Errorf("detach users of %s: %w", companyID, err)
	}
	return tag.RowsAffected(), nil
}
