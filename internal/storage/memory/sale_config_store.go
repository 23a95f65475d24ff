package memory

import (
	"context"
	"sync"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/storage"
)

type configRecord struct {
	data    []byte // encoded account
	version uint64
}

// SaleConfigStore is an in-memory implementation of storage.SaleConfigStore.
// Aggregates are kept in their encoded account form.
type SaleConfigStore struct {
	mu   sync.RWMutex
	data map[string]configRecord // keyed by address
}

// NewSaleConfigStore creates a new in-memory sale config store.
func NewSaleConfigStore() *SaleConfigStore {
	return &SaleConfigStore{
		data: make(map[string]configRecord),
	}
}

// Create stores cfg at address. Returns ErrDuplicateKey if populated.
func (s *SaleConfigStore) Create(_ context.Context, address string, cfg *domain.SaleConfig) error {
	if address == "" || cfg == nil {
		return storage.ErrInvalidInput
	}

	encoded, err := storage.EncodeSaleConfig(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[address]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[address] = configRecord{data: encoded, version: 1}
	cfg.Address = address
	cfg.Version = 1
	return nil
}

// Get retrieves the aggregate. Returns ErrNotFound if not initialized.
func (s *SaleConfigStore) Get(_ context.Context, address string) (*domain.SaleConfig, error) {
	s.mu.RLock()
	rec, exists := s.data[address]
	s.mu.RUnlock()

	if !exists {
		return nil, storage.ErrNotFound
	}

	cfg, err := storage.DecodeSaleConfig(rec.data)
	if err != nil {
		return nil, err
	}
	cfg.Address = address
	cfg.Version = rec.version
	return cfg, nil
}

// CompareAndSwap replaces the aggregate if cfg.Version matches the stored version.
func (s *SaleConfigStore) CompareAndSwap(_ context.Context, address string, cfg *domain.SaleConfig) error {
	if address == "" || cfg == nil {
		return storage.ErrInvalidInput
	}

	encoded, err := storage.EncodeSaleConfig(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.data[address]
	if !exists {
		return storage.ErrNotFound
	}
	if rec.version != cfg.Version {
		return storage.ErrVersionConflict
	}

	s.data[address] = configRecord{data: encoded, version: rec.version + 1}
	cfg.Version = rec.version + 1
	return nil
}

func (s *SaleConfigStore) clone() *SaleConfigStore {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := NewSaleConfigStore()
	for k, v := range s.data {
		// encoded slices are never mutated in place, sharing is safe
		cp.data[k] = v
	}
	return cp
}

// Verify interface compliance at compile time.
var _ storage.SaleConfigStore = (*SaleConfigStore)(nil)
