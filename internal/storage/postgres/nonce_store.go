package postgres

import (
	"context"
	"fmt"

	"vigri-presale/internal/storage"
)

// NonceStore implements storage.NonceStore using PostgreSQL.
type NonceStore struct {
	q querier
}

// NewNonceStore creates a new NonceStore.
func NewNonceStore(pool *Pool) *NonceStore {
	return &NonceStore{q: pool}
}

// Compile-time interface check.
var _ storage.NonceStore = (*NonceStore)(nil)

// Claim records nonce for signer. Returns ErrDuplicateKey if already claimed.
//
// TODO: prune rows older than the signature skew window.
func (s *NonceStore) Claim(ctx context.Context, signer, nonce string, at int64) error {
	if signer == "" || nonce == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.q.Exec(ctx, `
		INSERT INTO request_nonces (signer, nonce, claimed_at) VALUES ($1, $2, $3)
	`, signer, nonce, at)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("claim nonce: %w", err)
	}
	return nil
}
