package memory

import (
	"context"
	"sync"

	"vigri-presale/internal/storage"
)

// NonceStore is an in-memory implementation of storage.NonceStore.
type NonceStore struct {
	mu     sync.RWMutex
	claims map[string]int64 // "signer|nonce" -> claimed at
}

// NewNonceStore creates a new in-memory nonce store.
func NewNonceStore() *NonceStore {
	return &NonceStore{
		claims: make(map[string]int64),
	}
}

// Claim records nonce for signer. Returns ErrDuplicateKey if already claimed.
func (s *NonceStore) Claim(_ context.Context, signer, nonce string, at int64) error {
	if signer == "" || nonce == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := signer + "|" + nonce
	if _, exists := s.claims[key]; exists {
		return storage.ErrDuplicateKey
	}
	s.claims[key] = at
	return nil
}

func (s *NonceStore) clone() *NonceStore {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := NewNonceStore()
	for k, v := range s.claims {
		cp.claims[k] = v
	}
	return cp
}

// Verify interface compliance at compile time.
var _ storage.NonceStore = (*NonceStore)(nil)
