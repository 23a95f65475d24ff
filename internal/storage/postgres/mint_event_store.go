package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/solana"
	"vigri-presale/internal/storage"
)

// MintEventStore implements storage.MintEventStore using PostgreSQL.
type MintEventStore struct {
	q querier
}

// NewMintEventStore creates a new MintEventStore.
func NewMintEventStore(pool *Pool) *MintEventStore {
	return &MintEventStore{q: pool}
}

// Compile-time interface check.
var _ storage.MintEventStore = (*MintEventStore)(nil)

const mintEventColumns = `event_id, tier_id, serial, design_key, mint, owner, path, uri, timestamp`

// Append adds an event. Returns ErrDuplicateKey if (tier, serial) or event_id exists.
func (s *MintEventStore) Append(ctx context.Context, e *domain.MintEvent) error {
	if e == nil || e.Serial == 0 || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO mint_events (` + mintEventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.q.Exec(ctx, query,
		e.EventID,
		int16(e.TierID),
		int32(e.Serial),
		int32(e.DesignKey),
		e.Mint.String(),
		e.Owner.String(),
		string(e.Path),
		e.URI,
		e.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert mint event: %w", err)
	}
	return nil
}

// GetByTier retrieves events for a tier ordered by serial ASC.
func (s *MintEventStore) GetByTier(ctx context.Context, tier domain.TierID) ([]*domain.MintEvent, error) {
	query := `SELECT ` + mintEventColumns + ` FROM mint_events
		WHERE tier_id = $1
		ORDER BY serial ASC`

	return s.query(ctx, query, int16(tier))
}

// GetAll retrieves all events ordered by (timestamp, tier, serial) ASC.
func (s *MintEventStore) GetAll(ctx context.Context) ([]*domain.MintEvent, error) {
	query := `SELECT ` + mintEventColumns + ` FROM mint_events
		ORDER BY timestamp ASC, tier_id ASC, serial ASC`

	return s.query(ctx, query)
}

func (s *MintEventStore) query(ctx context.Context, query string, args ...any) ([]*domain.MintEvent, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mint events: %w", err)
	}
	defer rows.Close()

	var result []*domain.MintEvent
	for rows.Next() {
		e, err := scanMintEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mint event: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mint events: %w", err)
	}
	return result, nil
}

// scanMintEvent scans a single row into MintEvent.
func scanMintEvent(row pgx.Row) (*domain.MintEvent, error) {
	var (
		e                 domain.MintEvent
		tierID            int16
		serial, designKey int32
		mint, owner, path string
	)

	err := row.Scan(&e.EventID, &tierID, &serial, &designKey, &mint, &owner, &path, &e.URI, &e.Timestamp)
	if err != nil {
		return nil, err
	}

	if e.Mint, err = solana.ParsePublicKey(mint); err != nil {
		return nil, err
	}
	if e.Owner, err = solana.ParsePublicKey(owner); err != nil {
		return nil, err
	}
	e.TierID = domain.TierID(tierID)
	e.Serial = uint16(serial)
	e.DesignKey = uint16(designKey)
	e.Path = domain.MintPath(path)
	return &e, nil
}
