package memory

import (
	"context"
	"math"
	"sync"

	"vigri-presale/internal/storage"
)

// BalanceLedger is an in-memory implementation of storage.BalanceLedger.
type BalanceLedger struct {
	mu       sync.RWMutex
	balances map[string]uint64 // keyed by owner address
}

// NewBalanceLedger creates a new in-memory balance ledger.
func NewBalanceLedger() *BalanceLedger {
	return &BalanceLedger{
		balances: make(map[string]uint64),
	}
}

// Balance returns the balance of owner.
func (l *BalanceLedger) Balance(_ context.Context, owner string) (uint64, error) {
	if owner == "" {
		return 0, storage.ErrInvalidInput
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.balances[owner], nil
}

// Credit adds lamports to owner.
func (l *BalanceLedger) Credit(_ context.Context, owner string, lamports uint64) error {
	if owner == "" {
		return storage.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[owner] > math.MaxUint64-lamports {
		return storage.ErrInvalidInput
	}
	l.balances[owner] += lamports
	return nil
}

// Transfer moves lamports from one owner to another.
func (l *BalanceLedger) Transfer(_ context.Context, from, to string, lamports uint64) error {
	if from == "" || to == "" {
		return storage.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < lamports {
		return storage.ErrInsufficientFunds
	}
	if from == to {
		return nil
	}
	if l.balances[to] > math.MaxUint64-lamports {
		return storage.ErrInvalidInput
	}

	l.balances[from] -= lamports
	l.balances[to] += lamports
	return nil
}

func (l *BalanceLedger) clone() *BalanceLedger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cp := NewBalanceLedger()
	for k, v := range l.balances {
		cp.balances[k] = v
	}
	return cp
}

// Verify interface compliance at compile time.
var _ storage.BalanceLedger = (*BalanceLedger)(nil)
