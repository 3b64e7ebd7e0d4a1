package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
	"github.com/fairyhunter13/bus-ticket-booking/pkg/database"
)

// Ledger owns user balances. It never opens its own transaction: callers pass
// the transaction of the engine operation the balance change belongs to.
type Ledger struct {
	users UserRepositoryInterface
}

// NewLedger creates a Ledger over the given user repository.
func NewLedger(users UserRepositoryInterface) *Ledger {
	return &Ledger{users: users}
}

// Credit adds amount to the user's balance. A zero amount is a no-op.
// Returns ErrInvalidAmount for a negative amount.
func (l *Ledger) Credit(ctx context.Context, tx database.TxQuerier, userID uuid.UUID, amount model.Money) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	if amount == 0 {
		return nil
	}
	if err := l.users.AdjustBalance(ctx, tx, userID, amount); err != nil {
		return storageErr("credit balance", err)
	}
	return nil
}

// Debit removes amount from the user's balance after locking the user row.
// The balance read and the write happen in the same transaction, so concurrent
// purchases by one user cannot both spend the same funds.
// Returns ErrInsufficientBalance when the balance is below amount.
func (l *Ledger) Debit(ctx context.Context, tx database.TxQuerier, userID uuid.UUID, amount model.Money) error {
	if amount < 0 {
		return ErrInvalidAmount
	}

	balance, err := l.users.GetBalanceForUpdate(ctx, tx, userID)
	if err != nil {
		return storageErr("lock balance", err)
	}
	if balance < amount {
		return ErrInsufficientBalance
	}
	if amount == 0 {
		return nil
	}

	if err := l.users.AdjustBalance(ctx, tx, userID, -amount); err != nil {
		return storageErr("debit balance", err)
	}
	return nil
}
