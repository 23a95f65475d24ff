package postgres

import (
	"context"
	"fmt"
	"math"

	"vigri-presale/internal/storage"
)

// BalanceLedger implements storage.BalanceLedger using PostgreSQL.
// Balances are BIGINT, so amounts above math.MaxInt64 are rejected.
type BalanceLedger struct {
	q querier
}

// NewBalanceLedger creates a new BalanceLedger.
func NewBalanceLedger(pool *Pool) *BalanceLedger {
	return &BalanceLedger{q: pool}
}

// Compile-time interface check.
var _ storage.BalanceLedger = (*BalanceLedger)(nil)

// Balance returns the balance of owner. Unknown owners have zero balance.
func (l *BalanceLedger) Balance(ctx context.Context, owner string) (uint64, error) {
	if owner == "" {
		return 0, storage.ErrInvalidInput
	}

	var lamports int64
	err := l.q.QueryRow(ctx, `SELECT lamports FROM balances WHERE owner = $1`, owner).Scan(&lamports)
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return uint64(lamports), nil
}

// Credit adds lamports to owner.
func (l *BalanceLedger) Credit(ctx context.Context, owner string, lamports uint64) error {
	if owner == "" || lamports > math.MaxInt64 {
		return storage.ErrInvalidInput
	}

	_, err := l.q.Exec(ctx, `
		INSERT INTO balances (owner, lamports) VALUES ($1, $2)
		ON CONFLICT (owner) DO UPDATE SET lamports = balances.lamports + EXCLUDED.lamports
	`, owner, int64(lamports))
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	return nil
}

// Transfer moves lamports from one owner to another.
// Returns ErrInsufficientFunds if from cannot cover the amount.
func (l *BalanceLedger) Transfer(ctx context.Context, from, to string, lamports uint64) error {
	if from == "" || to == "" || lamports > math.MaxInt64 {
		return storage.ErrInvalidInput
	}

	tag, err := l.q.Exec(ctx, `
		UPDATE balances SET lamports = lamports - $2
		WHERE owner = $1 AND lamports >= $2
	`, from, int64(lamports))
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if lamports == 0 {
			// unknown payer with nothing to pay
			return nil
		}
		return storage.ErrInsufficientFunds
	}

	if err := l.Credit(ctx, to, lamports); err != nil {
		if isCheckViolation(err) {
			return storage.ErrInvalidInput
		}
		return err
	}
	return nil
}
