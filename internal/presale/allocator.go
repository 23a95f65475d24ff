package presale

import (
	"context"
	"fmt"

	"vigri-presale/internal/domain"
)

// admit runs admission control for one mint and returns the target tier.
// Checks run in a fixed order and the first failure is reported:
//
//	pause, tier id, supply, admin sub-cap, price, kyc, invite
//
// Pause, price and proof gates apply to the paying path only. The sub-cap
// applies only when d.adminCapApplies.
func (s *Service) admit(ctx context.Context, cfg *domain.SaleConfig, d *mintDescriptor) (*domain.TierConfig, error) {
	public := d.requiresPayment

	if public && cfg.IsSalesPaused {
		return nil, ErrSalesPaused
	}

	tier := cfg.Tier(d.tier)
	if tier == nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTierID, d.tier)
	}

	if tier.SoldOut() {
		return nil, fmt.Errorf("%w: %s %d/%d", ErrTierSoldOut, d.tier, tier.SupplyMinted, tier.SupplyTotal)
	}

	if d.adminCapApplies {
		// A zero cap (supply_total < 20) applies no ceiling at all.
		if limit := tier.AdminCap(); limit > 0 && tier.AdminMinted >= limit {
			return nil, fmt.Errorf("%w: %s admin cap %d reached", ErrTierSoldOut, d.tier, limit)
		}
	}

	if !public {
		return tier, nil
	}

	if tier.PriceLamports == 0 {
		return nil, ErrTierPriceNotSet
	}

	if tier.KYCRequired {
		if err := s.verifier.Verify(ctx, ProofKYC, d.payer, d.tier, d.kycProof); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKYCRequired, err)
		}
	}

	if tier.InviteOnly {
		if err := s.verifier.Verify(ctx, ProofInvite, d.payer, d.tier, d.inviteProof); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInviteRequired, err)
		}
	}

	return tier, nil
}
