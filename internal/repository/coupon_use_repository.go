package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/bus-ticket-booking/internal/service"
	"github.com/fairyhunter13/bus-ticket-booking/pkg/database"
)

// CouponUseRepository records which user redeemed which coupon.
type CouponUseRepository struct {
	pool PoolInterface
}

// NewCouponUseRepository creates a new CouponUseRepository with the given pool.
func NewCouponUseRepository(pool *pgxpool.Pool) *CouponUseRepository {
	return &CouponUseRepository{pool: pool}
}

// NewCouponUseRepositoryWithPool creates a new CouponUseRepository with a custom pool interface.
// This is primarily used for testing.
func NewCouponUseRepositoryWithPool(pool PoolInterface) *CouponUseRepository {
	return &CouponUseRepository{pool: pool}
}

// HasUsed reports whether the user already redeemed the coupon.
func (r *CouponUseRepository) HasUsed(ctx context.Context, couponID, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM user_coupon_uses WHERE coupon_id = $1 AND user_id = $2)`

	var used bool
	if err := r.pool.QueryRow(ctx, query, couponID, userID).Scan(&used); err != nil {
		return false, fmt.Errorf("check coupon use: %w", err)
	}
	return used, nil
}

// Insert records a redemption within a transaction.
// Returns service.ErrCouponAlreadyUsed if the user already redeemed this coupon.
func (r *CouponUseRepository) Insert(ctx context.Context, tx database.TxQuerier, couponID, userID uuid.UUID) error {
	query := `INSERT INTO user_coupon_uses (coupon_id, user_id) VALUES ($1, $2)`

	_, err := tx.Exec(ctx, query, couponID, userID)
	if err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			return service.ErrCouponAlreadyUsed
		}
		return fmt.Errorf("insert coupon use: %w", err)
	}
	return nil
}

// Delete removes the redemption record, returning the number of rows removed.
func (r *CouponUseRepository) Delete(ctx context.Context, tx database.TxQuerier, couponID, userID uuid.UUID) (int64, error) {
	query := `DELETE FROM user_coupon_uses WHERE coupon_id = $1 AND user_id = $2`

	tag, err := tx.Exec(ctx, query, couponID, userID)
	if err != nil {
		return 0, fmt.Errorf("delete coupon use: %w", err)
	}
	return tag.RowsAffected(), nil
}
