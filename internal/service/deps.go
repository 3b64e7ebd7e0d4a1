package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
	"github.com/fairyhunter13/bus-ticket-booking/pkg/database"
)

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TripRepositoryInterface defines the interface for trip data access.
type TripRepositoryInterface interface {
	Insert(ctx context.Context, trip *model.Trip) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Trip, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Trip, error)
	Search(ctx context.Context, filter model.TripSearch) ([]model.TripListing, error)
	ListUpcomingByCompanyForUpdate(ctx context.Context, tx database.TxQuerier, companyID uuid.UUID, now time.Time) ([]model.Trip, error)
	UpdateCapacity(ctx context.Context, tx database.TxQuerier, id uuid.UUID, capacity int) error
	Delete(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error
	DeleteByCompany(ctx context.Context, tx database.TxQuerier, companyID uuid.UUID) (int64, error)
}

// TicketRepositoryInterface defines the interface for ticket data access.
type TicketRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, ticket *model.Ticket) error
	GetDetail(ctx context.Context, id uuid.UUID) (*model.TicketDetail, error)
	GetDetailForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.TicketDetail, error)
	ListActiveByTripsForUpdate(ctx context.Context, tx database.TxQuerier, tripIDs []uuid.UUID) ([]model.Ticket, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Ticket, error)
	MarkCanceled(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error
	Delete(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error
}

// SeatRepositoryInterface defines the interface for booked seat data access.
type SeatRepositoryInterface interface {
	ListOccupied(ctx context.Context, tripID uuid.UUID) ([]int, error)
	FindConflicts(ctx context.Context, tx database.TxQuerier, tripID uuid.UUID, seats []int) ([]int, error)
	CountActive(ctx context.Context, tx database.TxQuerier, tripID uuid.UUID) (int, error)
	InsertAll(ctx context.Context, tx database.TxQuerier, ticketID, tripID uuid.UUID, seats []int, newID func() uuid.UUID) error
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]int, error)
	DeleteByTicket(ctx context.Context, tx database.TxQuerier, ticketID uuid.UUID) (int64, error)
}

// CouponRepositoryInterface defines the interface for coupon data access.
type CouponRepositoryInterface interface {
	Insert(ctx context.Context, coupon *model.Coupon) error
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	GetByCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error)
	GetByIDForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Coupon, error)
	Update(ctx context.Context, tx database.TxQuerier, coupon *model.Coupon) error
	DecrementUsage(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error
	IncrementUsage(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error
}

// CouponUseRepositoryInterface defines the interface for per-user coupon redemption records.
type CouponUseRepositoryInterface interface {
	HasUsed(ctx context.Context, couponID, userID uuid.UUID) (bool, error)
	Insert(ctx context.Context, tx database.TxQuerier, couponID, userID uuid.UUID) error
	Delete(ctx context.Context, tx database.TxQuerier, couponID, userID uuid.UUID) (int64, error)
}

// UserRepositoryInterface defines the interface for user balance and membership data access.
type UserRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetBalanceForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (model.Money, error)
	AdjustBalance(ctx context.Context, tx database.TxQuerier, id uuid.UUID, delta model.Money) error
	DetachCompany(ctx context.Context, tx database.TxQuerier, companyID uuid.UUID) (int64, error)
}

// CompanyRepositoryInterface defines the interface for bus company data access.
type CompanyRepositoryInterface interface {
	Lock(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error
	Delete(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error
}

// Deps bundles what the booking engines share. Now and NewID default to
// time.Now and uuid.New.
type Deps struct {
	Pool       TxBeginner
	Trips      TripRepositoryInterface
	Tickets    TicketRepositoryInterface
	Seats      SeatRepositoryInterface
	Coupons    CouponRepositoryInterface
	CouponUses CouponUseRepositoryInterface
	Users      UserRepositoryInterface
	Companies  CompanyRepositoryInterface
	Now        func() time.Time
	NewID      func() uuid.UUID
}

func (d Deps) withDefaults() Deps {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.New
	}
	return d
}
