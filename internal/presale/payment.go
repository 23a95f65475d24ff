package presale

import (
	"context"
	"errors"
	"fmt"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/solana"
	"vigri-presale/internal/storage"
)

// collectPayment moves the tier price from payer to admin inside the unit.
// It must run before any counter is touched.
func collectPayment(ctx context.Context, tx storage.Tx, payer, admin solana.PublicKey, tier *domain.TierConfig) error {
	err := tx.Balances().Transfer(ctx, payer.String(), admin.String(), tier.PriceLamports)
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientFunds) {
			return fmt.Errorf("pay %d lamports for %s: %w", tier.PriceLamports, domain.TierID(tier.ID), err)
		}
		return fmt.Errorf("collect payment: %w", err)
	}
	return nil
}
