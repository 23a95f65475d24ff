package domain

import "vigri-presale/internal/solana"

// SaleConfig is the singleton aggregate governing the whole sale.
// Address and Version are maintained by the store and are not part of the
// persisted account layout.
type SaleConfig struct {
	Address        string           // derived config location (base58)
	Version        uint64           // compare-and-swap token, bumped on every write
	Admin          solana.PublicKey // immutable after initialization
	CollectionMint solana.PublicKey
	PaymentMint    solana.PublicKey
	IsSalesPaused  bool
	Tiers          [TierCount]TierConfig
}

// NewSaleConfig builds a fresh aggregate with default tiers and sales open.
func NewSaleConfig(address string, admin, collection, payment solana.PublicKey) *SaleConfig {
	return &SaleConfig{
		Address:        address,
		Admin:          admin,
		CollectionMint: collection,
		PaymentMint:    payment,
		Tiers:          DefaultTiers(),
	}
}

// Tier returns a pointer into the inline tier table, or nil if id is out of range.
func (c *SaleConfig) Tier(id TierID) *TierConfig {
	if !id.Valid() {
		return nil
	}
	return &c.Tiers[id]
}

// Clone returns a deep copy. The tier table is inline, so a value copy suffices.
func (c *SaleConfig) Clone() *SaleConfig {
	cp := *c
	return &cp
}
