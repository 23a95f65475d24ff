package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/solana"
	"vigri-presale/internal/storage"
)

// MetadataStore implements storage.MetadataStore using PostgreSQL.
// The creator list is stored as JSONB.
type MetadataStore struct {
	q querier
}

// NewMetadataStore creates a new MetadataStore.
func NewMetadataStore(pool *Pool) *MetadataStore {
	return &MetadataStore{q: pool}
}

// Compile-time interface check.
var _ storage.MetadataStore = (*MetadataStore)(nil)

type creatorRow struct {
	Address  solana.PublicKey `json:"address"`
	Verified bool             `json:"verified"`
	Share    uint8            `json:"share"`
}

// Insert adds a new record. Returns ErrDuplicateKey if the mint already has one.
func (s *MetadataStore) Insert(ctx context.Context, m *domain.MetadataRecord) error {
	if m == nil || m.Mint.IsZero() {
		return storage.ErrInvalidInput
	}

	creators := make([]creatorRow, len(m.Creators))
	for i, c := range m.Creators {
		creators[i] = creatorRow(c)
	}
	creatorsJSON, err := json.Marshal(creators)
	if err != nil {
		return fmt.Errorf("marshal creators: %w", err)
	}

	query := `
		INSERT INTO token_metadata (
			mint, address, update_authority, name, symbol, uri,
			seller_fee_basis_points, creators, is_mutable, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = s.q.Exec(ctx, query,
		m.Mint.String(),
		m.Address.String(),
		m.UpdateAuthority.String(),
		m.Name,
		m.Symbol,
		m.URI,
		int32(m.SellerFeeBasisPoints),
		creatorsJSON,
		m.IsMutable,
		m.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token metadata: %w", err)
	}
	return nil
}

// GetByMint retrieves the record for a mint. Returns ErrNotFound if not exists.
func (s *MetadataStore) GetByMint(ctx context.Context, mint string) (*domain.MetadataRecord, error) {
	query := `
		SELECT mint, address, update_authority, name, symbol, uri,
			seller_fee_basis_points, creators, is_mutable, created_at
		FROM token_metadata
		WHERE mint = $1
	`

	m, err := scanMetadata(s.q.QueryRow(ctx, query, mint))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token metadata by mint: %w", err)
	}
	return m, nil
}

// scanMetadata scans a single row into MetadataRecord.
func scanMetadata(row pgx.Row) (*domain.MetadataRecord, error) {
	var (
		m                              domain.MetadataRecord
		mint, address, updateAuthority string
		fee                            int32
		creatorsJSON                   []byte
	)

	err := row.Scan(
		&mint, &address, &updateAuthority,
		&m.Name, &m.Symbol, &m.URI,
		&fee, &creatorsJSON, &m.IsMutable, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if m.Mint, err = solana.ParsePublicKey(mint); err != nil {
		return nil, err
	}
	if m.Address, err = solana.ParsePublicKey(address); err != nil {
		return nil, err
	}
	if m.UpdateAuthority, err = solana.ParsePublicKey(updateAuthority); err != nil {
		return nil, err
	}
	m.SellerFeeBasisPoints = uint16(fee)

	var creators []creatorRow
	if err := json.Unmarshal(creatorsJSON, &creators); err != nil {
		return nil, fmt.Errorf("unmarshal creators: %w", err)
	}
	m.Creators = make([]domain.Creator, len(creators))
	for i, c := range creators {
		m.Creators[i] = domain.Creator(c)
	}
	return &m, nil
}
