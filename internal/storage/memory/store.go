package memory

import (
	"context"
	"sync"

	"vigri-presale/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
// Units are serialized by a single mutex. Each unit works on a cloned
// snapshot that replaces the committed state only if the unit succeeds.
type Store struct {
	mu    sync.Mutex
	state *snapshot
}

type snapshot struct {
	configs  *SaleConfigStore
	balances *BalanceLedger
	tokens   *TokenStore
	metadata *MetadataStore
	events   *MintEventStore
	nonces   *NonceStore
}

// NewStore creates an empty in-memory ledger.
func NewStore() *Store {
	return &Store{
		state: &snapshot{
			configs:  NewSaleConfigStore(),
			balances: NewBalanceLedger(),
			tokens:   NewTokenStore(),
			metadata: NewMetadataStore(),
			events:   NewMintEventStore(),
			nonces:   NewNonceStore(),
		},
	}
}

// Atomic runs fn against a private snapshot and commits it on success.
func (s *Store) Atomic(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(work); err != nil {
		return err
	}

	s.state = work
	return nil
}

func (s *snapshot) clone() *snapshot {
	return &snapshot{
		configs:  s.configs.clone(),
		balances: s.balances.clone(),
		tokens:   s.tokens.clone(),
		metadata: s.metadata.clone(),
		events:   s.events.clone(),
		nonces:   s.nonces.clone(),
	}
}

func (s *snapshot) SaleConfigs() storage.SaleConfigStore { return s.configs }
func (s *snapshot) Balances() storage.BalanceLedger      { return s.balances }
func (s *snapshot) Tokens() storage.TokenStore           { return s.tokens }
func (s *snapshot) Metadata() storage.MetadataStore      { return s.metadata }
func (s *snapshot) MintEvents() storage.MintEventStore   { return s.events }
func (s *snapshot) Nonces() storage.NonceStore           { return s.nonces }

// Verify interface compliance at compile time.
var (
	_ storage.Store = (*Store)(nil)
	_ storage.Tx    = (*snapshot)(nil)
)
