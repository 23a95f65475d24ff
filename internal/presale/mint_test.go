package presale

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/events"
	"vigri-presale/internal/solana"
	"vigri-presale/internal/storage"
)

func TestMint_FirstPurchase(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fund(t, testBuyer, 1_000_000_000)

	res, err := h.svc.Mint(ctx, MintRequest{Buyer: testBuyer, TierID: domain.TierTreeSteel, DesignChoice: choice(1)})
	require.NoError(t, err)

	assert.Equal(t, uint64(500_000_000), res.Paid)
	assert.Equal(t, uint64(500_000_000), h.balance(t, testBuyer))
	assert.Equal(t, uint64(500_000_000), h.balance(t, testAdmin))

	assert.Equal(t, domain.TierTreeSteel, res.Event.TierID)
	assert.Equal(t, uint16(1), res.Event.Serial)
	assert.Equal(t, uint16(1), res.Event.DesignKey)
	assert.Equal(t, domain.MintPathPublic, res.Event.Path)
	assert.True(t, strings.HasSuffix(res.Event.URI, "/TR/000001.json"), res.Event.URI)

	cfg := h.config(t)
	assert.Equal(t, uint16(1), cfg.Tiers[domain.TierTreeSteel].SupplyMinted)
	assert.Equal(t, uint16(0), cfg.Tiers[domain.TierTreeSteel].AdminMinted)

	// the buyer owns the token and is its authority
	assert.Equal(t, testBuyer, res.Token.Owner)
	assert.Equal(t, testBuyer, res.Token.Authority)
	assert.True(t, res.Token.Transferable)

	tokens, err := h.svc.TokensByOwner(ctx, testBuyer)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, res.Token.Mint, tokens[0].Mint)
}

func TestMint_InvalidChoiceRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fund(t, testBuyer, 1_000_000_000)

	_, err := h.svc.Mint(ctx, MintRequest{Buyer: testBuyer, TierID: domain.TierTreeSteel, DesignChoice: choice(1)})
	require.NoError(t, err)
	before := h.config(t)

	_, err = h.svc.Mint(ctx, MintRequest{Buyer: testBuyer, TierID: domain.TierTreeSteel, DesignChoice: choice(3)})
	require.ErrorIs(t, err, ErrInvalidDesignChoice)
	assert.Equal(t, CodeInvalidDesignChoice, Code(err))

	after := h.config(t)
	assert.Equal(t, before.Tiers, after.Tiers)
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, uint64(500_000_000), h.balance(t, testBuyer))
	assert.Equal(t, uint64(500_000_000), h.balance(t, testAdmin))

	evts, err := h.svc.EventsByTier(ctx, domain.TierTreeSteel)
	require.NoError(t, err)
	assert.Len(t, evts, 1)

	tokens, err := h.svc.TokensByOwner(ctx, testBuyer)
	require.NoError(t, err)
	assert.Len(t, tokens, 1)
}

func TestAdminMint_SilverCycles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// silver admin cap is 200/20 = 10, so lift supply for the 11th grant
	h.mutateConfig(t, func(cfg *domain.SaleConfig) {
		cfg.Tiers[domain.TierSilver].SupplyTotal = 400
	})

	var keys []uint16
	for i := 0; i < 11; i++ {
		res, err := h.svc.AdminMint(ctx, AdminMintRequest{Caller: testAdmin, TierID: domain.TierSilver, Recipient: testRecipient})
		require.NoError(t, err, "grant %d", i+1)
		keys = append(keys, res.Event.DesignKey)
	}

	assert.Equal(t, []uint16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 1}, keys)
	assert.Equal(t, uint16(11), h.config(t).Tiers[domain.TierSilver].AdminMinted)
}

func TestAdminMint_SilverDefaultSupplyStopsAtSubCap(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := AdminMintRequest{Caller: testAdmin, TierID: domain.TierSilver, Recipient: testRecipient}

	for i := 0; i < 10; i++ {
		res, err := h.svc.AdminMint(ctx, req)
		require.NoError(t, err, "grant %d", i+1)
		assert.Equal(t, uint16(i+1), res.Event.DesignKey)
	}
	before := h.state(t)

	// 200/20 = 10 grants, so the cycle cannot wrap through the admin path
	_, err := h.svc.AdminMint(ctx, req)
	require.ErrorIs(t, err, ErrTierSoldOut)
	assert.Equal(t, before, h.state(t))
}

func TestAdminMint_SoulboundIgnoresSubCap(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := AdminMintRequest{Caller: testAdmin, TierID: domain.TierWS20, Recipient: testRecipient}

	for i := 0; i < 20; i++ {
		res, err := h.svc.AdminMint(ctx, req)
		require.NoError(t, err, "grant %d", i+1)
		assert.False(t, res.Token.Transferable)
	}

	tier := h.config(t).Tiers[domain.TierWS20]
	assert.Equal(t, uint16(20), tier.AdminMinted)
	assert.Equal(t, uint16(20), tier.SupplyMinted)

	_, err := h.svc.AdminMint(ctx, req)
	assert.ErrorIs(t, err, ErrTierSoldOut)
}

func TestAdminMint_SubCap(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := AdminMintRequest{Caller: testAdmin, TierID: domain.TierPlatinum, Recipient: testRecipient}

	res, err := h.svc.AdminMint(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, testRecipient, res.Token.Owner)
	assert.Equal(t, testAdmin, res.Token.Authority)
	assert.Equal(t, domain.MintPathAdmin, res.Event.Path)
	assert.Zero(t, res.Paid)

	// floor(20/20) = 1
	_, err = h.svc.AdminMint(ctx, req)
	require.ErrorIs(t, err, ErrTierSoldOut)

	// public sales are unaffected by the sub-cap
	h.fund(t, testBuyer, 10_000_000_000)
	_, err = h.svc.Mint(ctx, MintRequest{Buyer: testBuyer, TierID: domain.TierPlatinum, KYCProof: []byte("kyc")})
	require.NoError(t, err)

	tier := h.config(t).Tiers[domain.TierPlatinum]
	assert.Equal(t, uint16(1), tier.AdminMinted)
	assert.Equal(t, uint16(2), tier.SupplyMinted)
}

func TestAdminMint_ZeroSubCapIsUnbounded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// 10/20 floors to zero, which applies no sub-cap
	h.mutateConfig(t, func(cfg *domain.SaleConfig) {
		cfg.Tiers[domain.TierGold].SupplyTotal = 10
	})

	req := AdminMintRequest{Caller: testAdmin, TierID: domain.TierGold, Recipient: testRecipient}
	for i := 0; i < 10; i++ {
		_, err := h.svc.AdminMint(ctx, req)
		require.NoError(t, err, "grant %d", i+1)
	}

	_, err := h.svc.AdminMint(ctx, req)
	assert.ErrorIs(t, err, ErrTierSoldOut)
	assert.Equal(t, uint16(10), h.config(t).Tiers[domain.TierGold].AdminMinted)
}

func TestAdminMint_BypassesPublicGates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	paused := true
	_, err := h.svc.UpdateConfig(ctx, testAdmin, ConfigPatch{IsSalesPaused: &paused})
	require.NoError(t, err)

	// ws20 has no price and requires kyc and invite
	res, err := h.svc.AdminMint(ctx, AdminMintRequest{Caller: testAdmin, TierID: domain.TierWS20, Recipient: testRecipient})
	require.NoError(t, err)
	assert.Equal(t, uint16(1), res.Event.Serial)
	assert.Zero(t, h.balance(t, testAdmin))
}

func TestAdminMint_Unauthorized(t *testing.T) {
	h := newHarness(t)
	before := h.config(t)

	_, err := h.svc.AdminMint(context.Background(), AdminMintRequest{Caller: testBuyer, TierID: domain.TierBronze, Recipient: testBuyer})
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, CodeUnauthorized, Code(err))
	assert.Equal(t, before, h.config(t))
}

func TestMint_AdmissionOrder(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		setup   func(cfg *domain.SaleConfig)
		req     MintRequest
		wantErr error
	}{
		{
			name:    "pause wins over invalid tier",
			setup:   func(cfg *domain.SaleConfig) { cfg.IsSalesPaused = true },
			req:     MintRequest{Buyer: testBuyer, TierID: 9},
			wantErr: ErrSalesPaused,
		},
		{
			name:    "invalid tier",
			req:     MintRequest{Buyer: testBuyer, TierID: 6},
			wantErr: ErrInvalidTierID,
		},
		{
			name: "sold out wins over price",
			setup: func(cfg *domain.SaleConfig) {
				cfg.Tiers[domain.TierWS20].SupplyMinted = 20
			},
			req:     MintRequest{Buyer: testBuyer, TierID: domain.TierWS20},
			wantErr: ErrTierSoldOut,
		},
		{
			name:    "price wins over kyc",
			req:     MintRequest{Buyer: testBuyer, TierID: domain.TierWS20},
			wantErr: ErrTierPriceNotSet,
		},
		{
			name: "kyc wins over invite",
			setup: func(cfg *domain.SaleConfig) {
				cfg.Tiers[domain.TierGold].InviteOnly = true
			},
			req:     MintRequest{Buyer: testBuyer, TierID: domain.TierGold},
			wantErr: ErrKYCRequired,
		},
		{
			name: "invite",
			setup: func(cfg *domain.SaleConfig) {
				cfg.Tiers[domain.TierGold].InviteOnly = true
			},
			req:     MintRequest{Buyer: testBuyer, TierID: domain.TierGold, KYCProof: []byte{}},
			wantErr: ErrInviteRequired,
		},
		{
			name:    "gates pass, payment fails",
			req:     MintRequest{Buyer: testBuyer, TierID: domain.TierGold, KYCProof: []byte("kyc")},
			wantErr: storage.ErrInsufficientFunds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			// too little for any tier, so a balance change would show
			h.fund(t, testBuyer, 1)
			if tt.setup != nil {
				h.mutateConfig(t, tt.setup)
			}
			before := h.state(t)

			_, err := h.svc.Mint(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, h.state(t))
		})
	}
}

func TestMint_PauseBlocksEveryTier(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fund(t, testBuyer, 100_000_000_000)

	_, err := h.svc.UpdateConfig(ctx, testAdmin, ConfigPatch{IsSalesPaused: ptr(true)})
	require.NoError(t, err)
	before := h.state(t)

	for id := domain.TierID(0); id < domain.TierCount; id++ {
		_, err := h.svc.Mint(ctx, MintRequest{
			Buyer:        testBuyer,
			TierID:       id,
			DesignChoice: choice(1),
			KYCProof:     []byte("kyc"),
			InviteProof:  []byte("invite"),
		})
		assert.ErrorIs(t, err, ErrSalesPaused, "tier %s", id)
	}
	assert.Equal(t, before, h.state(t))
}

func TestMint_TakenPositionIsConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fund(t, testBuyer, 2_000_000_000)

	_, err := h.svc.Mint(ctx, MintRequest{Buyer: testBuyer, TierID: domain.TierBronze})
	require.NoError(t, err)

	// a unit that read a stale counter derives a serial already issued
	h.mutateConfig(t, func(cfg *domain.SaleConfig) {
		cfg.Tiers[domain.TierBronze].SupplyMinted = 0
	})
	before := h.state(t)

	_, err = h.svc.Mint(ctx, MintRequest{Buyer: testBuyer, TierID: domain.TierBronze})
	require.ErrorIs(t, err, storage.ErrVersionConflict)
	assert.Equal(t, CodeConflict, Code(err))
	assert.Equal(t, before, h.state(t))
}

func TestMint_RequestNonceAppliesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := WithRequestNonce(context.Background(), testBuyer, "purchase-1")
	req := MintRequest{Buyer: testBuyer, TierID: domain.TierBronze}

	// rejected units release the nonce
	_, err := h.svc.Mint(ctx, req)
	require.ErrorIs(t, err, storage.ErrInsufficientFunds)

	h.fund(t, testBuyer, 5_000_000_000)
	res, err := h.svc.Mint(ctx, req)
	require.NoError(t, err)
	paid := res.Paid
	before := h.state(t)

	_, err = h.svc.Mint(ctx, req)
	require.ErrorIs(t, err, ErrReplayedRequest)
	assert.Equal(t, CodeReplayedRequest, Code(err))
	assert.True(t, IsRejection(err))
	assert.Equal(t, before, h.state(t))
	assert.Equal(t, 5_000_000_000-paid, h.balance(t, testBuyer))

	// the nonce is scoped to its signer
	h.fund(t, testRecipient, 5_000_000_000)
	other := WithRequestNonce(context.Background(), testRecipient, "purchase-1")
	_, err = h.svc.Mint(other, MintRequest{Buyer: testRecipient, TierID: domain.TierBronze})
	require.NoError(t, err)

	// reads never claim it
	_, err = h.svc.Config(ctx)
	require.NoError(t, err)
	_, err = h.svc.Balance(ctx, testBuyer)
	require.NoError(t, err)
}

func TestMint_InsufficientFundsCode(t *testing.T) {
	h := newHarness(t)
	h.fund(t, testBuyer, 499_999_999)

	_, err := h.svc.Mint(context.Background(), MintRequest{Buyer: testBuyer, TierID: domain.TierTreeSteel, DesignChoice: choice(2)})
	require.Error(t, err)
	assert.Equal(t, CodeInsufficientFunds, Code(err))
	assert.Equal(t, uint64(499_999_999), h.balance(t, testBuyer))
	assert.Zero(t, h.config(t).Tiers[domain.TierTreeSteel].SupplyMinted)
}

func TestMint_VerifierRejects(t *testing.T) {
	denied := errors.New("unknown attestation")
	var seen []ProofKind

	h := newHarness(t, WithVerifier(VerifierFunc(func(_ context.Context, kind ProofKind, holder solana.PublicKey, tier domain.TierID, proof []byte) error {
		seen = append(seen, kind)
		if string(proof) != "valid" {
			return denied
		}
		return nil
	})))
	h.fund(t, testBuyer, 10_000_000_000)
	ctx := context.Background()

	_, err := h.svc.Mint(ctx, MintRequest{Buyer: testBuyer, TierID: domain.TierSilver, KYCProof: []byte("forged")})
	require.ErrorIs(t, err, ErrKYCRequired)
	assert.ErrorIs(t, err, denied)
	assert.Equal(t, CodeKYCRequired, Code(err))

	res, err := h.svc.Mint(ctx, MintRequest{Buyer: testBuyer, TierID: domain.TierSilver, KYCProof: []byte("valid")})
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500_000_000), res.Paid)
	assert.Equal(t, []ProofKind{ProofKYC, ProofKYC}, seen)
}

func TestMint_ConcurrentBuyersNeverOversell(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fund(t, testBuyer, 30*10_000_000_000)

	const buyers = 30
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		soldOut int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Mint(ctx, MintRequest{Buyer: testBuyer, TierID: domain.TierPlatinum, KYCProof: []byte("kyc")})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrTierSoldOut):
				soldOut++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, ok)
	assert.Equal(t, 10, soldOut)
	assert.Equal(t, uint16(20), h.config(t).Tiers[domain.TierPlatinum].SupplyMinted)
	assert.Equal(t, uint64(20*10_000_000_000), h.balance(t, testAdmin))

	evts, err := h.svc.EventsByTier(ctx, domain.TierPlatinum)
	require.NoError(t, err)
	require.Len(t, evts, 20)
	for i, e := range evts {
		assert.Equal(t, uint16(i+1), e.Serial)
	}
}

func TestMint_MetadataRecord(t *testing.T) {
	h := newHarness(t, WithMetadataBaseURL("https://cdn.example.com/"))
	h.fund(t, testBuyer, 1_000_000_000)
	ctx := context.Background()

	res, err := h.svc.Mint(ctx, MintRequest{Buyer: testBuyer, TierID: domain.TierBronze})
	require.NoError(t, err)

	meta, err := h.svc.Metadata(ctx, res.Token.Mint)
	require.NoError(t, err)
	assert.Equal(t, MetadataName, meta.Name)
	assert.Equal(t, MetadataSymbol, meta.Symbol)
	assert.Equal(t, uint16(SellerFeeBasisPoints), meta.SellerFeeBasisPoints)
	assert.Equal(t, "https://cdn.example.com/metadata/nft/bronze/BR/000001.json", meta.URI)
	assert.Equal(t, h.svc.ConfigAddress(), meta.UpdateAuthority)
	assert.True(t, meta.IsMutable)
	require.Len(t, meta.Creators, 1)
	assert.Equal(t, testAdmin, meta.Creators[0].Address)
	assert.Equal(t, uint8(100), meta.Creators[0].Share)

	wantAddr, err := solana.MetadataAddress(res.Token.Mint)
	require.NoError(t, err)
	assert.Equal(t, wantAddr, meta.Address)
}

func TestMint_TokenAddressesAreDistinct(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seen := map[solana.PublicKey]bool{}

	for _, tier := range []domain.TierID{domain.TierBronze, domain.TierBronze, domain.TierGold} {
		res, err := h.svc.AdminMint(ctx, AdminMintRequest{Caller: testAdmin, TierID: tier, Recipient: testRecipient})
		require.NoError(t, err)
		assert.False(t, seen[res.Token.Mint], "duplicate mint %s", res.Token.Mint)
		seen[res.Token.Mint] = true
	}
}

func TestMint_PublishesAfterCommit(t *testing.T) {
	var published []*domain.MintEvent
	h := newHarness(t, WithPublisher(events.PublisherFunc(func(_ context.Context, e *domain.MintEvent) error {
		published = append(published, e)
		return nil
	})))

	_, err := h.svc.AdminMint(context.Background(), AdminMintRequest{Caller: testAdmin, TierID: domain.TierBronze, Recipient: testRecipient})
	require.NoError(t, err)
	_, err = h.svc.AdminMint(context.Background(), AdminMintRequest{Caller: testBuyer, TierID: domain.TierBronze, Recipient: testRecipient})
	require.Error(t, err)

	require.Len(t, published, 1)
	assert.Equal(t, "evt-1", published[0].EventID)
	assert.Equal(t, int64(1_700_000_000_000), published[0].Timestamp)
}

func TestMint_PublishFailureKeepsMint(t *testing.T) {
	h := newHarness(t, WithPublisher(events.PublisherFunc(func(context.Context, *domain.MintEvent) error {
		return errors.New("broker down")
	})))

	res, err := h.svc.AdminMint(context.Background(), AdminMintRequest{Caller: testAdmin, TierID: domain.TierBronze, Recipient: testRecipient})
	require.NoError(t, err)
	assert.Equal(t, uint16(1), res.Event.Serial)
	assert.Equal(t, uint16(1), h.config(t).Tiers[domain.TierBronze].SupplyMinted)
}

func TestMintSoulbound_NoOp(t *testing.T) {
	h := newHarness(t)
	before := h.config(t)

	require.NoError(t, h.svc.MintSoulbound(context.Background(), testBuyer, []byte("invite")))
	require.NoError(t, h.svc.MintSoulbound(context.Background(), testBuyer, nil))

	assert.Equal(t, before, h.config(t))
	tokens, err := h.svc.TokensByOwner(context.Background(), testBuyer)
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestEventsByTier_InvalidTier(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.EventsByTier(context.Background(), 6)
	assert.ErrorIs(t, err, ErrInvalidTierID)
}
