package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
	"github.com/fairyhunter13/bus-ticket-booking/internal/service"
	"github.com/fairyhunter13/bus-ticket-booking/pkg/database"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const couponColumns = `id, code, discount_percent, company_id, usage_limit, expire_date, created_at`

// CouponRepository provides data access for coupons using pgx.
type CouponRepository struct {
	pool PoolInterface
}

// NewCouponRepository creates a new CouponRepository with the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// NewCouponRepositoryWithPool creates a new CouponRepository with a custom pool interface.
// This is primarily used for testing.
func NewCouponRepositoryWithPool(pool PoolInterface) *CouponRepository {
	return &CouponRepository{pool: pool}
}

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.DiscountPercent,
		&c.CompanyID,
		&c.UsageLimit,
		&c.ExpireDate,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Insert inserts a new coupon into the database.
// Returns service.ErrCouponExists if the code is taken and
// service.ErrCompanyNotFound if the scoped company does not exist.
func (r *CouponRepository) Insert(ctx context.Context, coupon *model.Coupon) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO coupons (id, code, discount_percent, company_id, usage_limit, expire_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		coupon.ID, coupon.Code, int(coupon.DiscountPercent), coupon.CompanyID,
		coupon.UsageLimit, coupon.ExpireDate, coupon.CreatedAt)
	if err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			return service.ErrCouponExists
		}
		if _, ok := database.ForeignKeyViolation(err); ok {
			return service.ErrCompanyNotFound
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

// GetByCode retrieves a coupon by its code.
// Returns nil, nil if the coupon is not found (service layer handles this).
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	coupon, err := scanCoupon(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get coupon by code %s: %w", code, err)
	}
	return coupon, nil
}

// GetByCodeForUpdate retrieves a coupon with a row lock (SELECT FOR UPDATE).
// This locks the row until the transaction completes.
// Returns service.ErrCouponNotFound if the coupon doesn't exist.
func (r *CouponRepository) GetByCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1 FOR UPDATE`

	coupon, err := scanCoupon(tx.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon for update %s: %w", code, err)
	}
	return coupon, nil
}

// GetByIDForUpdate retrieves a coupon by id with a row lock.
// Returns service.ErrCouponNotFound if the coupon doesn't exist.
func (r *CouponRepository) GetByIDForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1 FOR UPDATE`

	coupon, err := scanCoupon(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon for update %s: %w", id, err)
	}
	return coupon, nil
}

// Update writes the editable fields of a coupon. The company scope is never changed.
// Returns service.ErrCouponExists if the new code is taken and
// service.ErrCouponNotFound if no row was updated.
func (r *CouponRepository) Update(ctx context.Context, tx database.TxQuerier, coupon *model.Coupon) error {
	query := `UPDATE coupons SET code = $2, discount_percent = $3, usage_limit = $4, expire_date = $5 WHERE id = $1`

	tag, err := tx.Exec(ctx, query,
		coupon.ID, coupon.Code, int(coupon.DiscountPercent), coupon.UsageLimit, coupon.ExpireDate)
	if err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			return service.ErrCouponExists
		}
		return fmt.Errorf("update coupon %s: %w", coupon.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCouponNotFound
	}
	return nil
}

// DecrementUsage consumes one use of a coupon.
// Must be called within a transaction after locking the row.
// Returns service.ErrCouponExhausted if no use is left.
func (r *CouponRepository) DecrementUsage(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	query := `UPDATE coupons SET usage_limit = usage_limit - 1 WHERE id = $1 AND usage_limit > 0`

	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("decrement usage for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCouponExhausted
	}
	return nil
}

// IncrementUsage gives one use back to a coupon.
// Returns service.ErrCouponNotFound if the coupon no longer exists.
func (r *CouponRepository) IncrementUsage(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	query := `UPDATE coupons SET usage_limit = usage_limit + 1 WHERE id = $1`

	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment usage for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCouponNotFound
	}
	return nil
}
