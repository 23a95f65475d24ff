package postgres

import (
	"context"
	"fmt"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/storage"
)

// SaleConfigStore implements storage.SaleConfigStore using PostgreSQL.
// The aggregate is persisted in its encoded account form.
type SaleConfigStore struct {
	q querier
}

// NewSaleConfigStore creates a new SaleConfigStore.
func NewSaleConfigStore(pool *Pool) *SaleConfigStore {
	return &SaleConfigStore{q: pool}
}

// Compile-time interface check.
var _ storage.SaleConfigStore = (*SaleConfigStore)(nil)

// Create stores cfg at address with version 1. Returns ErrDuplicateKey if populated.
func (s *SaleConfigStore) Create(ctx context.Context, address string, cfg *domain.SaleConfig) error {
	if address == "" || cfg == nil {
		return storage.ErrInvalidInput
	}

	data, err := storage.EncodeSaleConfig(cfg)
	if err != nil {
		return err
	}

	_, err = s.q.Exec(ctx,
		`INSERT INTO sale_configs (address, data, version) VALUES ($1, $2, 1)`,
		address, data,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert sale config: %w", err)
	}

	cfg.Address = address
	cfg.Version = 1
	return nil
}

// Get retrieves the aggregate. Returns ErrNotFound if not initialized.
func (s *SaleConfigStore) Get(ctx context.Context, address string) (*domain.SaleConfig, error) {
	var (
		data    []byte
		version int64
	)

	err := s.q.QueryRow(ctx,
		`SELECT data, version FROM sale_configs WHERE address = $1`,
		address,
	).Scan(&data, &version)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get sale config: %w", err)
	}

	cfg, err := storage.DecodeSaleConfig(data)
	if err != nil {
		return nil, err
	}
	cfg.Address = address
	cfg.Version = uint64(version)
	return cfg, nil
}

// CompareAndSwap replaces the aggregate if the stored version still equals cfg.Version.
func (s *SaleConfigStore) CompareAndSwap(ctx context.Context, address string, cfg *domain.SaleConfig) error {
	if address == "" || cfg == nil {
		return storage.ErrInvalidInput
	}

	data, err := storage.EncodeSaleConfig(cfg)
	if err != nil {
		return err
	}

	// Under READ COMMITTED a concurrent writer blocks this UPDATE and the
	// WHERE clause is re-evaluated after it commits, so a stale version
	// matches zero rows.
	tag, err := s.q.Exec(ctx, `
		UPDATE sale_configs
		SET data = $2, version = version + 1, updated_at = now()
		WHERE address = $1 AND version = $3
	`, address, data, int64(cfg.Version))
	if err != nil {
		return fmt.Errorf("update sale config: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.q.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM sale_configs WHERE address = $1)`, address,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check sale config: %w", err)
		}
		if !exists {
			return storage.ErrNotFound
		}
		return storage.ErrVersionConflict
	}

	cfg.Version++
	return nil
}
