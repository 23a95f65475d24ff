package clickhouse

import (
	"context"
	"fmt"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/solana"
	"vigri-presale/internal/storage"
)

// MintEventStore implements storage.MintEventStore using ClickHouse.
// It is the analytics copy of the mint log, written after commit.
type MintEventStore struct {
	conn *Conn
}

// NewMintEventStore creates a new MintEventStore.
func NewMintEventStore(conn *Conn) *MintEventStore {
	return &MintEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MintEventStore = (*MintEventStore)(nil)

// Append adds an event. Returns ErrDuplicateKey if (tier, serial) exists.
func (s *MintEventStore) Append(ctx context.Context, e *domain.MintEvent) error {
	if e == nil || e.Serial == 0 {
		return storage.ErrInvalidInput
	}

	// MergeTree does not enforce uniqueness, check explicitly.
	exists, err := s.exists(ctx, e.TierID, e.Serial)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO mint_events (
			event_id, tier_id, tier_slug, serial, design_key,
			mint, owner, path, uri, timestamp
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		e.EventID, uint8(e.TierID), e.TierID.Slug(), e.Serial, e.DesignKey,
		e.Mint.String(), e.Owner.String(), string(e.Path), e.URI, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTier retrieves events for a tier ordered by serial ASC.
func (s *MintEventStore) GetByTier(ctx context.Context, tier domain.TierID) ([]*domain.MintEvent, error) {
	return s.query(ctx, `
		SELECT event_id, tier_id, serial, design_key, mint, owner, path, uri, timestamp
		FROM mint_events FINAL
		WHERE tier_id = ?
		ORDER BY serial ASC
	`, uint8(tier))
}

// GetAll retrieves all events ordered by (timestamp, tier, serial) ASC.
func (s *MintEventStore) GetAll(ctx context.Context) ([]*domain.MintEvent, error) {
	return s.query(ctx, `
		SELECT event_id, tier_id, serial, design_key, mint, owner, path, uri, timestamp
		FROM mint_events FINAL
		ORDER BY timestamp ASC, tier_id ASC, serial ASC
	`)
}

// CountByTier returns the number of recorded mints per tier and path.
func (s *MintEventStore) CountByTier(ctx context.Context) (map[domain.TierID]map[domain.MintPath]uint64, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT tier_id, path, count() AS n
		FROM mint_events FINAL
		GROUP BY tier_id, path
	`)
	if err != nil {
		return nil, fmt.Errorf("query tier counts: %w", err)
	}
	defer rows.Close()

	result := make(map[domain.TierID]map[domain.MintPath]uint64)
	for rows.Next() {
		var (
			tierID uint8
			path   string
			n      uint64
		)
		if err := rows.Scan(&tierID, &path, &n); err != nil {
			return nil, fmt.Errorf("scan tier count: %w", err)
		}
		tier := domain.TierID(tierID)
		if result[tier] == nil {
			result[tier] = make(map[domain.MintPath]uint64)
		}
		result[tier][domain.MintPath(path)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tier counts: %w", err)
	}
	return result, nil
}

func (s *MintEventStore) exists(ctx context.Context, tier domain.TierID, serial uint16) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count() FROM mint_events
		WHERE tier_id = ? AND serial = ?
	`, uint8(tier), serial).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *MintEventStore) query(ctx context.Context, query string, args ...any) ([]*domain.MintEvent, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mint events: %w", err)
	}
	defer rows.Close()

	var result []*domain.MintEvent
	for rows.Next() {
		var (
			e                 domain.MintEvent
			tierID            uint8
			mint, owner, path string
		)
		if err := rows.Scan(&e.EventID, &tierID, &e.Serial, &e.DesignKey, &mint, &owner, &path, &e.URI, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan mint event: %w", err)
		}
		if e.Mint, err = solana.ParsePublicKey(mint); err != nil {
			return nil, err
		}
		if e.Owner, err = solana.ParsePublicKey(owner); err != nil {
			return nil, err
		}
		e.TierID = domain.TierID(tierID)
		e.Path = domain.MintPath(path)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mint events: %w", err)
	}
	return result, nil
}
