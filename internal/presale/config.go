package presale

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/solana"
	"vigri-presale/internal/storage"
)

// ConfigPatch is a partial update of the sale aggregate. Nil fields are left
// unchanged; present fields overwrite unconditionally.
type ConfigPatch struct {
	IsSalesPaused *bool `json:"is_sales_paused,omitempty"`

	// Per-tier fields apply only when TierID is present and are ignored otherwise.
	TierID        *uint8  `json:"tier_id,omitempty"`
	PriceLamports *uint64 `json:"new_price_lamports,omitempty"`
	KYCRequired   *bool   `json:"new_kyc_required,omitempty"`
	InviteOnly    *bool   `json:"new_invite_only,omitempty"`
	Transferable  *bool   `json:"new_transferable,omitempty"`
}

// Validate checks every field before anything is applied.
func (p *ConfigPatch) Validate() error {
	if p.TierID != nil && !domain.TierID(*p.TierID).Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidTierID, *p.TierID)
	}
	return nil
}

// apply mutates cfg. The patch must already be valid.
func (p *ConfigPatch) apply(cfg *domain.SaleConfig) {
	if p.IsSalesPaused != nil {
		cfg.IsSalesPaused = *p.IsSalesPaused
	}
	if p.TierID == nil {
		return
	}

	tier := cfg.Tier(domain.TierID(*p.TierID))
	if p.PriceLamports != nil {
		tier.PriceLamports = *p.PriceLamports
	}
	if p.KYCRequired != nil {
		tier.KYCRequired = *p.KYCRequired
	}
	if p.InviteOnly != nil {
		tier.InviteOnly = *p.InviteOnly
	}
	if p.Transferable != nil {
		tier.Transferable = *p.Transferable
	}
}

// Initialize creates the sale aggregate at the config address with default
// tiers and sales open. It succeeds at most once.
func (s *Service) Initialize(ctx context.Context, admin, collection, paymentMint solana.PublicKey) (*domain.SaleConfig, error) {
	cfg := domain.NewSaleConfig(s.configAddress.String(), admin, collection, paymentMint)

	err := s.mutate(ctx, func(tx storage.Tx) error {
		if err := tx.SaleConfigs().Create(ctx, cfg.Address, cfg); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				return ErrAlreadyInitialized
			}
			return fmt.Errorf("create sale config: %w", err)
		}
		return nil
	})
	if err != nil {
		s.reject("initialize", err, zap.Stringer("admin", admin))
		return nil, err
	}

	s.log.Info("sale initialized",
		zap.String("config", cfg.Address),
		zap.Stringer("admin", admin),
		zap.Stringer("collection", collection),
	)
	return cfg, nil
}

// UpdateConfig applies patch on behalf of caller, who must be the admin.
// Authorization is checked first, then the whole patch is validated, then
// applied. On any failure nothing changes.
func (s *Service) UpdateConfig(ctx context.Context, caller solana.PublicKey, patch ConfigPatch) (*domain.SaleConfig, error) {
	var updated *domain.SaleConfig

	err := s.mutate(ctx, func(tx storage.Tx) error {
		cfg, err := s.loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		if err := requireAdmin(cfg, caller); err != nil {
			return err
		}
		if err := patch.Validate(); err != nil {
			return err
		}

		patch.apply(cfg)
		if err := tx.SaleConfigs().CompareAndSwap(ctx, cfg.Address, cfg); err != nil {
			return fmt.Errorf("store sale config: %w", err)
		}
		updated = cfg
		return nil
	})
	if err != nil {
		s.reject("update_config", err, zap.Stringer("caller", caller))
		return nil, err
	}

	s.log.Info("sale config updated",
		zap.Bool("paused", updated.IsSalesPaused),
		zap.Uint64("version", updated.Version),
	)
	return updated, nil
}

// Config returns the current sale aggregate.
func (s *Service) Config(ctx context.Context) (*domain.SaleConfig, error) {
	var cfg *domain.SaleConfig
	err := s.atomic(ctx, func(tx storage.Tx) error {
		var err error
		cfg, err = s.loadConfig(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Credit adds lamports to owner's payment balance. The caller must be the admin.
// It funds buyers on substrates without an external payment asset.
func (s *Service) Credit(ctx context.Context, caller, owner solana.PublicKey, lamports uint64) error {
	err := s.mutate(ctx, func(tx storage.Tx) error {
		cfg, err := s.loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		if err := requireAdmin(cfg, caller); err != nil {
			return err
		}
		return tx.Balances().Credit(ctx, owner.String(), lamports)
	})
	if err != nil {
		s.reject("credit", err, zap.Stringer("caller", caller))
		return err
	}
	return nil
}

// Balance returns owner's payment balance.
func (s *Service) Balance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	var bal uint64
	err := s.atomic(ctx, func(tx storage.Tx) error {
		var err error
		bal, err = tx.Balances().Balance(ctx, owner.String())
		return err
	})
	return bal, err
}
