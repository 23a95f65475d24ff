package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/solana"
	"vigri-presale/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	q querier
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{q: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Insert adds a new token. Returns ErrDuplicateKey if the mint or (tier, serial) exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.Token) error {
	if t == nil || t.Mint.IsZero() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (
			mint, owner, authority, tier_id, serial, transferable, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.q.Exec(ctx, query,
		t.Mint.String(),
		t.Owner.String(),
		t.Authority.String(),
		int16(t.TierID),
		int32(t.Serial),
		t.Transferable,
		t.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetByMint retrieves a token by mint address. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(ctx context.Context, mint string) (*domain.Token, error) {
	query := `
		SELECT mint, owner, authority, tier_id, serial, transferable, created_at
		FROM tokens
		WHERE mint = $1
	`

	t, err := scanToken(s.q.QueryRow(ctx, query, mint))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by mint: %w", err)
	}
	return t, nil
}

// GetByOwner retrieves all tokens held by owner, ordered by (tier, serial).
func (s *TokenStore) GetByOwner(ctx context.Context, owner string) ([]*domain.Token, error) {
	query := `
		SELECT mint, owner, authority, tier_id, serial, transferable, created_at
		FROM tokens
		WHERE owner = $1
		ORDER BY tier_id ASC, serial ASC
	`

	rows, err := s.q.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("query tokens by owner: %w", err)
	}
	defer rows.Close()

	var result []*domain.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return result, nil
}

// scanToken scans a single row into Token.
func scanToken(row pgx.Row) (*domain.Token, error) {
	var (
		t                      domain.Token
		mint, owner, authority string
		tierID                 int16
		serial                 int32
	)

	err := row.Scan(&mint, &owner, &authority, &tierID, &serial, &t.Transferable, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	if t.Mint, err = solana.ParsePublicKey(mint); err != nil {
		return nil, err
	}
	if t.Owner, err = solana.ParsePublicKey(owner); err != nil {
		return nil, err
	}
	if t.Authority, err = solana.ParsePublicKey(authority); err != nil {
		return nil, err
	}
	t.TierID = domain.TierID(tierID)
	t.Serial = uint16(serial)
	return &t, nil
}
