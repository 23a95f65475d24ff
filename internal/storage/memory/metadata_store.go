package memory

import (
	"context"
	"sync"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/storage"
)

// MetadataStore is an in-memory implementation of storage.MetadataStore.
type MetadataStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MetadataRecord // keyed by mint address
}

// NewMetadataStore creates a new in-memory metadata store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		data: make(map[string]*domain.MetadataRecord),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if the mint already has one.
func (s *MetadataStore) Insert(_ context.Context, m *domain.MetadataRecord) error {
	if m == nil || m.Mint.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := m.Mint.String()
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[key] = copyMetadata(m)
	return nil
}

// GetByMint retrieves the record for a mint.
func (s *MetadataStore) GetByMint(_ context.Context, mint string) (*domain.MetadataRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyMetadata(m), nil
}

func (s *MetadataStore) clone() *MetadataStore {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := NewMetadataStore()
	for k, v := range s.data {
		cp.data[k] = v
	}
	return cp
}

func copyMetadata(m *domain.MetadataRecord) *domain.MetadataRecord {
	cp := *m
	cp.Creators = append([]domain.Creator(nil), m.Creators...)
	return &cp
}

// Verify interface compliance at compile time.
var _ storage.MetadataStore = (*MetadataStore)(nil)
