package presale

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/observability"
	"vigri-presale/internal/solana"
	"vigri-presale/internal/storage"
)

// MintRequest is a public purchase. A nil proof is absent; an empty one is present.
type MintRequest struct {
	Buyer        solana.PublicKey
	TierID       domain.TierID
	DesignChoice *uint8
	KYCProof     []byte
	InviteProof  []byte
}

// AdminMintRequest is an admin grant to recipient.
type AdminMintRequest struct {
	Caller       solana.PublicKey
	TierID       domain.TierID
	Recipient    solana.PublicKey
	DesignChoice *uint8
}

// MintResult is everything a committed mint produced.
type MintResult struct {
	Event    domain.MintEvent
	Token    domain.Token
	Metadata domain.MetadataRecord
	Design   Design
	Paid     uint64 // lamports moved buyer to admin, zero for grants
}

// mintDescriptor is the only thing that differs between the public and
// admin flows.
type mintDescriptor struct {
	path            domain.MintPath
	tier            domain.TierID
	choice          *uint8
	payer           solana.PublicKey
	recipient       solana.PublicKey
	tokenAuthority  solana.PublicKey
	requiresPayment bool
	adminCapApplies bool
	kycProof        []byte
	inviteProof     []byte
}

// Mint runs a public purchase: admission, payment, issuance to the buyer
// (who is also the token authority), metadata, counter commit and event.
func (s *Service) Mint(ctx context.Context, req MintRequest) (*MintResult, error) {
	return s.execute(ctx, "mint", func(_ *domain.SaleConfig) (*mintDescriptor, error) {
		return &mintDescriptor{
			path:            domain.MintPathPublic,
			tier:            req.TierID,
			choice:          req.DesignChoice,
			payer:           req.Buyer,
			recipient:       req.Buyer,
			tokenAuthority:  req.Buyer,
			requiresPayment: true,
			kycProof:        req.KYCProof,
			inviteProof:     req.InviteProof,
		}, nil
	}, zap.Stringer("caller", req.Buyer), zap.Stringer("tier", req.TierID))
}

// AdminMint grants one token of a tier to recipient without payment. Only
// the admin may call it. It ignores the pause flag, the price and the proof
// gates, but is bounded by supply and, for non-soulbound tiers, by the
// admin sub-cap.
func (s *Service) AdminMint(ctx context.Context, req AdminMintRequest) (*MintResult, error) {
	return s.execute(ctx, "admin_mint", func(cfg *domain.SaleConfig) (*mintDescriptor, error) {
		if err := requireAdmin(cfg, req.Caller); err != nil {
			return nil, err
		}
		return &mintDescriptor{
			path:            domain.MintPathAdmin,
			tier:            req.TierID,
			choice:          req.DesignChoice,
			payer:           cfg.Admin,
			recipient:       req.Recipient,
			tokenAuthority:  cfg.Admin,
			adminCapApplies: !req.TierID.Soulbound(),
		}, nil
	}, zap.Stringer("caller", req.Caller), zap.Stringer("tier", req.TierID))
}

// MintSoulbound is the entry point for invite-holders of the soulbound tier.
// It is not implemented: the proof is accepted unchecked, nothing is issued
// and nothing is stored.
func (s *Service) MintSoulbound(_ context.Context, caller solana.PublicKey, inviteProof []byte) error {
	s.log.Warn("soulbound mint is not implemented, request ignored",
		zap.Stringer("caller", caller),
		zap.Int("proof_len", len(inviteProof)),
	)
	return nil
}

// execute runs one mint unit. describe sees the loaded aggregate so
// privileged flows can authorize before anything else.
func (s *Service) execute(
	ctx context.Context,
	op string,
	describe func(cfg *domain.SaleConfig) (*mintDescriptor, error),
	fields ...zap.Field,
) (*MintResult, error) {
	start := time.Now()
	var (
		result    *MintResult
		remaining uint16
	)

	err := s.mutate(ctx, func(tx storage.Tx) error {
		cfg, err := s.loadConfig(ctx, tx)
		if err != nil {
			return err
		}

		d, err := describe(cfg)
		if err != nil {
			return err
		}

		result, err = s.issue(ctx, tx, cfg, d)
		if err != nil {
			return err
		}
		remaining = cfg.Tiers[d.tier].Remaining()
		return nil
	})
	if err != nil {
		s.reject(op, err, fields...)
		return nil, err
	}

	e := result.Event
	observability.RecordMint(e.TierID.Slug(), string(e.Path), remaining, time.Since(start).Seconds())
	if result.Paid > 0 {
		observability.RecordPayment(e.TierID.Slug(), result.Paid)
	}
	s.log.Info("token minted",
		zap.Stringer("tier", e.TierID),
		zap.Uint16("serial", e.Serial),
		zap.Uint16("design_key", e.DesignKey),
		zap.Stringer("mint", e.Mint),
		zap.Stringer("owner", e.Owner),
		zap.String("path", string(e.Path)),
	)

	// Delivery happens after commit and never undoes it.
	if err := s.publisher.Publish(ctx, &e); err != nil {
		s.log.Warn("mint event delivery failed", zap.String("event_id", e.EventID), zap.Error(err))
	}
	return result, nil
}

// issue performs the mutation steps of one mint on the unit's view.
func (s *Service) issue(ctx context.Context, tx storage.Tx, cfg *domain.SaleConfig, d *mintDescriptor) (*MintResult, error) {
	tier, err := s.admit(ctx, cfg, d)
	if err != nil {
		return nil, err
	}

	if d.requiresPayment {
		if err := collectPayment(ctx, tx, d.payer, cfg.Admin, tier); err != nil {
			return nil, err
		}
	}

	serial := tier.SupplyMinted + 1
	now := s.now().UnixMilli()

	mint, err := s.tokenAddress(d.tier, serial)
	if err != nil {
		return nil, err
	}
	token := domain.Token{
		Mint:         mint,
		Owner:        d.recipient,
		Authority:    d.tokenAuthority,
		TierID:       d.tier,
		Serial:       serial,
		Transferable: tier.Transferable,
		CreatedAt:    now,
	}
	if err := tx.Tokens().Insert(ctx, &token); err != nil {
		return nil, fmt.Errorf("issue token: %w", conflictOnDuplicate(err))
	}

	design, err := ResolveDesign(d.tier, serial, d.choice, s.baseURL)
	if err != nil {
		return nil, err
	}

	metaAddr, err := solana.MetadataAddress(mint)
	if err != nil {
		return nil, fmt.Errorf("derive metadata address: %w", err)
	}
	metadata := domain.MetadataRecord{
		Address:              metaAddr,
		Mint:                 mint,
		UpdateAuthority:      s.configAddress,
		Name:                 MetadataName,
		Symbol:               MetadataSymbol,
		URI:                  design.URI,
		SellerFeeBasisPoints: SellerFeeBasisPoints,
		Creators:             []domain.Creator{{Address: cfg.Admin, Share: 100}},
		IsMutable:            true,
		CreatedAt:            now,
	}
	if err := tx.Metadata().Insert(ctx, &metadata); err != nil {
		return nil, fmt.Errorf("create metadata: %w", conflictOnDuplicate(err))
	}

	tier.SupplyMinted++
	if d.path == domain.MintPathAdmin {
		tier.AdminMinted++
	}
	if err := tx.SaleConfigs().CompareAndSwap(ctx, cfg.Address, cfg); err != nil {
		return nil, fmt.Errorf("commit tier counters: %w", err)
	}

	event := domain.MintEvent{
		EventID:   s.newID(),
		TierID:    d.tier,
		Serial:    serial,
		DesignKey: design.Key,
		Mint:      mint,
		Owner:     d.recipient,
		Path:      d.path,
		URI:       design.URI,
		Timestamp: now,
	}
	if err := tx.MintEvents().Append(ctx, &event); err != nil {
		return nil, fmt.Errorf("append mint event: %w", conflictOnDuplicate(err))
	}

	result := &MintResult{Event: event, Token: token, Metadata: metadata, Design: design}
	if d.requiresPayment {
		result.Paid = tier.PriceLamports
	}
	return result, nil
}

// conflictOnDuplicate reports a taken (tier, serial) position as a version
// conflict: another unit issued it from the same aggregate version.
func conflictOnDuplicate(err error) error {
	if errors.Is(err, storage.ErrDuplicateKey) {
		return storage.ErrVersionConflict
	}
	return err
}

// tokenAddress derives the mint of (tier, serial): PDA of ["nft", tier, serial_le].
func (s *Service) tokenAddress(tier domain.TierID, serial uint16) (solana.PublicKey, error) {
	var serialLE [2]byte
	binary.LittleEndian.PutUint16(serialLE[:], serial)

	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("nft"), {byte(tier)}, serialLE[:]}, s.programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive token address: %w", err)
	}
	return addr, nil
}

// TokensByOwner lists the tokens held by owner, ordered by tier and serial.
func (s *Service) TokensByOwner(ctx context.Context, owner solana.PublicKey) ([]*domain.Token, error) {
	var tokens []*domain.Token
	err := s.atomic(ctx, func(tx storage.Tx) error {
		var err error
		tokens, err = tx.Tokens().GetByOwner(ctx, owner.String())
		return err
	})
	return tokens, err
}

// Metadata returns the metadata record of a mint.
func (s *Service) Metadata(ctx context.Context, mint solana.PublicKey) (*domain.MetadataRecord, error) {
	var m *domain.MetadataRecord
	err := s.atomic(ctx, func(tx storage.Tx) error {
		var err error
		m, err = tx.Metadata().GetByMint(ctx, mint.String())
		return err
	})
	return m, err
}

// EventsByTier returns the mint log of a tier ordered by serial.
func (s *Service) EventsByTier(ctx context.Context, tier domain.TierID) ([]*domain.MintEvent, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTierID, tier)
	}
	var out []*domain.MintEvent
	err := s.atomic(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.MintEvents().GetByTier(ctx, tier)
		return err
	})
	return out, err
}
