package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/storage"
)

func TestSaleConfigStore_CreateGetCAS(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSaleConfigStore(pool)
	admin := testKey(1)

	cfg := domain.NewSaleConfig("", admin, testKey(2), testKey(3))
	require.NoError(t, store.Create(ctx, "cfg", cfg))
	assert.Equal(t, uint64(1), cfg.Version)

	err := store.Create(ctx, "cfg", cfg)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	first, err := store.Get(ctx, "cfg")
	require.NoError(t, err)
	assert.Equal(t, admin, first.Admin)
	assert.Equal(t, domain.DefaultTiers(), first.Tiers)

	stale, err := store.Get(ctx, "cfg")
	require.NoError(t, err)

	first.IsSalesPaused = true
	require.NoError(t, store.CompareAndSwap(ctx, "cfg", first))
	assert.Equal(t, uint64(2), first.Version)

	err = store.CompareAndSwap(ctx, "cfg", stale)
	assert.ErrorIs(t, err, storage.ErrVersionConflict)

	got, err := store.Get(ctx, "cfg")
	require.NoError(t, err)
	assert.True(t, got.IsSalesPaused)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.CompareAndSwap(ctx, "missing", got), storage.ErrNotFound)
}

func TestBalanceLedger_Transfer(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	ledger := NewBalanceLedger(pool)
	buyer, admin := testKey(1).String(), testKey(2).String()

	require.NoError(t, ledger.Credit(ctx, buyer, 1_000))
	require.NoError(t, ledger.Transfer(ctx, buyer, admin, 600))

	err := ledger.Transfer(ctx, buyer, admin, 600)
	assert.ErrorIs(t, err, storage.ErrInsufficientFunds)

	b, err := ledger.Balance(ctx, buyer)
	require.NoError(t, err)
	a, err := ledger.Balance(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), b)
	assert.Equal(t, uint64(600), a)

	unknown, err := ledger.Balance(ctx, testKey(9).String())
	require.NoError(t, err)
	assert.Zero(t, unknown)
}

func TestTokenAndMetadataStores(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	tokens := NewTokenStore(pool)
	metadata := NewMetadataStore(pool)
	owner := testKey(7)

	for serial := uint16(2); serial >= 1; serial-- {
		tok := &domain.Token{
			Mint:         testKey(byte(10 + serial)),
			Owner:        owner,
			Authority:    testKey(4),
			TierID:       domain.TierGold,
			Serial:       serial,
			Transferable: true,
			CreatedAt:    1700000000000,
		}
		require.NoError(t, tokens.Insert(ctx, tok))
	}

	dup := &domain.Token{Mint: testKey(99), Owner: owner, Authority: owner, TierID: domain.TierGold, Serial: 1}
	assert.ErrorIs(t, tokens.Insert(ctx, dup), storage.ErrDuplicateKey, "(tier, serial) must be unique")

	held, err := tokens.GetByOwner(ctx, owner.String())
	require.NoError(t, err)
	require.Len(t, held, 2)
	assert.Equal(t, uint16(1), held[0].Serial)
	assert.Equal(t, uint16(2), held[1].Serial)

	record := &domain.MetadataRecord{
		Address:              testKey(20),
		Mint:                 testKey(11),
		UpdateAuthority:      testKey(21),
		Name:                 "VIGRI Mystery NFT",
		Symbol:               "VIGRI",
		URI:                  "https://vigri.example/metadata/nft/gold/GD/000001.json",
		SellerFeeBasisPoints: 500,
		Creators:             []domain.Creator{{Address: testKey(4), Share: 100}},
		IsMutable:            true,
		CreatedAt:            1700000000000,
	}
	require.NoError(t, metadata.Insert(ctx, record))
	assert.ErrorIs(t, metadata.Insert(ctx, record), storage.ErrDuplicateKey)

	got, err := metadata.GetByMint(ctx, record.Mint.String())
	require.NoError(t, err)
	assert.Equal(t, record, got)

	_, err = metadata.GetByMint(ctx, testKey(12).String())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMintEventStore_Ordering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMintEventStore(pool)

	events := []*domain.MintEvent{
		{EventID: "e3", TierID: domain.TierSilver, Serial: 2, DesignKey: 2, Timestamp: 300},
		{EventID: "e1", TierID: domain.TierSilver, Serial: 1, DesignKey: 1, Timestamp: 100},
		{EventID: "e2", TierID: domain.TierBronze, Serial: 1, DesignKey: 1, Timestamp: 200},
	}
	for _, e := range events {
		e.Mint, e.Owner, e.Path = testKey(byte(e.Timestamp/100)), testKey(50), domain.MintPathPublic
		require.NoError(t, store.Append(ctx, e))
	}

	err := store.Append(ctx, &domain.MintEvent{EventID: "e4", TierID: domain.TierSilver, Serial: 1, Mint: testKey(1), Owner: testKey(1)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	silver, err := store.GetByTier(ctx, domain.TierSilver)
	require.NoError(t, err)
	require.Len(t, silver, 2)
	assert.Equal(t, "e1", silver[0].EventID)
	assert.Equal(t, "e3", silver[1].EventID)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"e1", "e2", "e3"}, []string{all[0].EventID, all[1].EventID, all[2].EventID})
}

func TestStore_AtomicRollback(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStore(pool)
	buyer := testKey(1).String()
	boom := errors.New("boom")

	require.NoError(t, NewBalanceLedger(pool).Credit(ctx, buyer, 500))

	err := store.Atomic(ctx, func(tx storage.Tx) error {
		if err := tx.Balances().Transfer(ctx, buyer, testKey(2).String(), 500); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	bal, err := NewBalanceLedger(pool).Balance(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), bal)
}

func TestNonceStore_ClaimOnce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	nonces := NewNonceStore(pool)
	signer := testKey(1).String()

	require.NoError(t, nonces.Claim(ctx, signer, "n1", 1))
	assert.ErrorIs(t, nonces.Claim(ctx, signer, "n1", 2), storage.ErrDuplicateKey)
	assert.NoError(t, nonces.Claim(ctx, testKey(2).String(), "n1", 2))
	assert.ErrorIs(t, nonces.Claim(ctx, signer, "", 2), storage.ErrInvalidInput)

	err := NewStore(pool).Atomic(ctx, func(tx storage.Tx) error {
		if err := tx.Nonces().Claim(ctx, signer, "n2", 3); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.NoError(t, nonces.Claim(ctx, signer, "n2", 4))
}
