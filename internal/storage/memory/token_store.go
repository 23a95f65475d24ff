package memory

import (
	"context"
	"sort"
	"sync"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Token // keyed by mint address
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.Token),
	}
}

// Insert adds a new token. Returns ErrDuplicateKey if the mint exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.Token) error {
	if t == nil || t.Mint.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := t.Mint.String()
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	tokenCopy := *t
	s.data[key] = &tokenCopy
	return nil
}

// GetByMint retrieves a token by mint address.
func (s *TokenStore) GetByMint(_ context.Context, mint string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tokenCopy := *t
	return &tokenCopy, nil
}

// GetByOwner retrieves all tokens held by owner, ordered by (tier, serial).
func (s *TokenStore) GetByOwner(_ context.Context, owner string) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Token
	for _, t := range s.data {
		if t.Owner.String() == owner {
			tokenCopy := *t
			result = append(result, &tokenCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TierID != result[j].TierID {
			return result[i].TierID < result[j].TierID
		}
		return result[i].Serial < result[j].Serial
	})

	return result, nil
}

func (s *TokenStore) clone() *TokenStore {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := NewTokenStore()
	for k, v := range s.data {
		cp.data[k] = v
	}
	return cp
}

// Verify interface compliance at compile time.
var _ storage.TokenStore = (*TokenStore)(nil)
