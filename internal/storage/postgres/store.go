package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vigri-presale/internal/storage"
)

// Store implements storage.Store on a single Postgres transaction per unit.
// Lost updates on the sale aggregate are prevented by the version check in
// SaleConfigStore.CompareAndSwap.
type Store struct {
	pool *Pool
}

// NewStore creates a new Store.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)

// Atomic runs fn inside a transaction. Any error rolls back every write.
func (s *Store) Atomic(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&txStores{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if hasCode(err, pgErrSerializationFailed) {
			return storage.ErrVersionConflict
		}
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type txStores struct {
	q querier
}

func (t *txStores) SaleConfigs() storage.SaleConfigStore { return &SaleConfigStore{q: t.q} }
func (t *txStores) Balances() storage.BalanceLedger      { return &BalanceLedger{q: t.q} }
func (t *txStores) Tokens() storage.TokenStore           { return &TokenStore{q: t.q} }
func (t *txStores) Metadata() storage.MetadataStore      { return &MetadataStore{q: t.q} }
func (t *txStores) MintEvents() storage.MintEventStore   { return &MintEventStore{q: t.q} }
func (t *txStores) Nonces() storage.NonceStore           { return &NonceStore{q: t.q} }

var _ storage.Tx = (*txStores)(nil)
