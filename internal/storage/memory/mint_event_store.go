package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/storage"
)

// MintEventStore is an in-memory implementation of storage.MintEventStore.
type MintEventStore struct {
	mu     sync.RWMutex
	events []*domain.MintEvent
	keys   map[string]bool // "tier|serial"
}

// NewMintEventStore creates a new in-memory mint event store.
func NewMintEventStore() *MintEventStore {
	return &MintEventStore{
		keys: make(map[string]bool),
	}
}

// Append adds an event. Returns ErrDuplicateKey if (tier, serial) exists.
func (s *MintEventStore) Append(_ context.Context, e *domain.MintEvent) error {
	if e == nil || e.Serial == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := eventKey(e.TierID, e.Serial)
	if s.keys[key] {
		return storage.ErrDuplicateKey
	}

	eventCopy := *e
	s.events = append(s.events, &eventCopy)
	s.keys[key] = true
	return nil
}

// GetByTier retrieves events for a tier ordered by serial ASC.
func (s *MintEventStore) GetByTier(_ context.Context, tier domain.TierID) ([]*domain.MintEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MintEvent
	for _, e := range s.events {
		if e.TierID == tier {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Serial < result[j].Serial
	})

	return result, nil
}

// GetAll retrieves all events ordered by (timestamp, tier, serial) ASC.
func (s *MintEventStore) GetAll(_ context.Context) ([]*domain.MintEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.MintEvent, 0, len(s.events))
	for _, e := range s.events {
		eventCopy := *e
		result = append(result, &eventCopy)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		if result[i].TierID != result[j].TierID {
			return result[i].TierID < result[j].TierID
		}
		return result[i].Serial < result[j].Serial
	})

	return result, nil
}

func (s *MintEventStore) clone() *MintEventStore {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := NewMintEventStore()
	cp.events = append(cp.events, s.events...)
	for k, v := range s.keys {
		cp.keys[k] = v
	}
	return cp
}

func eventKey(tier domain.TierID, serial uint16) string {
	return fmt.Sprintf("%d|%d", tier, serial)
}

// Verify interface compliance at compile time.
var _ storage.MintEventStore = (*MintEventStore)(nil)
