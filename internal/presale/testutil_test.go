package presale

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/solana"
	"vigri-presale/internal/storage"
	"vigri-presale/internal/storage/memory"
)

var (
	testAdmin      = testKey(1)
	testBuyer      = testKey(2)
	testRecipient  = testKey(3)
	testCollection = testKey(4)
	testPayment    = testKey(5)
)

// testKey derives a distinct public key from n.
func testKey(n byte) solana.PublicKey {
	var pk solana.PublicKey
	pk[0] = n
	pk[31] = 0xee
	return pk
}

func choice(c uint8) *uint8 { return &c }

type harness struct {
	svc   *Service
	store *memory.Store
}

// newHarness returns an initialized sale with deterministic ids and clock.
func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	store := memory.NewStore()
	seq := 0
	base := []Option{
		WithClock(func() time.Time { return time.UnixMilli(1_700_000_000_000) }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("evt-%d", seq)
		}),
	}

	svc, err := NewService(store, append(base, opts...)...)
	require.NoError(t, err)

	_, err = svc.Initialize(context.Background(), testAdmin, testCollection, testPayment)
	require.NoError(t, err)

	return &harness{svc: svc, store: store}
}

func (h *harness) fund(t *testing.T, owner solana.PublicKey, lamports uint64) {
	t.Helper()
	require.NoError(t, h.svc.Credit(context.Background(), testAdmin, owner, lamports))
}

func (h *harness) config(t *testing.T) *domain.SaleConfig {
	t.Helper()
	cfg, err := h.svc.Config(context.Background())
	require.NoError(t, err)
	return cfg
}

// mutateConfig edits the stored aggregate directly, for states the service
// cannot produce (e.g. a different supply_total).
func (h *harness) mutateConfig(t *testing.T, fn func(cfg *domain.SaleConfig)) {
	t.Helper()
	ctx := context.Background()
	addr := h.svc.ConfigAddress().String()

	err := h.store.Atomic(ctx, func(tx storage.Tx) error {
		cfg, err := tx.SaleConfigs().Get(ctx, addr)
		if err != nil {
			return err
		}
		fn(cfg)
		return tx.SaleConfigs().CompareAndSwap(ctx, addr, cfg)
	})
	require.NoError(t, err)
}

func (h *harness) balance(t *testing.T, owner solana.PublicKey) uint64 {
	t.Helper()
	bal, err := h.svc.Balance(context.Background(), owner)
	require.NoError(t, err)
	return bal
}

// ledgerState is everything a rejected operation must leave untouched.
type ledgerState struct {
	config   *domain.SaleConfig
	balances map[solana.PublicKey]uint64
	events   map[domain.TierID][]*domain.MintEvent
	tokens   map[solana.PublicKey][]*domain.Token
}

func (h *harness) state(t *testing.T) ledgerState {
	t.Helper()
	ctx := context.Background()

	st := ledgerState{
		config:   h.config(t),
		balances: make(map[solana.PublicKey]uint64),
		events:   make(map[domain.TierID][]*domain.MintEvent),
		tokens:   make(map[solana.PublicKey][]*domain.Token),
	}
	for _, owner := range []solana.PublicKey{testAdmin, testBuyer, testRecipient} {
		st.balances[owner] = h.balance(t, owner)

		tokens, err := h.svc.TokensByOwner(ctx, owner)
		require.NoError(t, err)
		st.tokens[owner] = tokens
	}
	for id := domain.TierID(0); id < domain.TierCount; id++ {
		evts, err := h.svc.EventsByTier(ctx, id)
		require.NoError(t, err)
		st.events[id] = evts
	}
	return st
}
