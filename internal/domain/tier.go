package domain

// TierID identifies one of the six fixed presale tiers.
// Values must match the frontend tier table.
type TierID uint8

const (
	TierTreeSteel TierID = 0 // two-variant choice tier
	TierBronze    TierID = 1 // single fixed variant
	TierSilver    TierID = 2 // cyclic 10-variant tier
	TierGold      TierID = 3
	TierPlatinum  TierID = 4
	TierWS20      TierID = 5 // invite-only, soulbound
)

// TierCount is the fixed size of the tier table.
const TierCount = 6

// AdminCapDivisor sets the admin grant sub-cap at supply_total/20 (5%).
const AdminCapDivisor = 20

// Valid reports whether id indexes the tier table.
func (id TierID) Valid() bool {
	return id < TierCount
}

// Soulbound reports whether id is the invite-only non-transferable tier.
func (id TierID) Soulbound() bool {
	return id == TierWS20
}

// Slug returns the path segment used in metadata locators.
func (id TierID) Slug() string {
	switch id {
	case TierTreeSteel:
		return "tree-steel"
	case TierBronze:
		return "bronze"
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	case TierPlatinum:
		return "platinum"
	case TierWS20:
		return "ws20"
	default:
		return ""
	}
}

// String returns the slug, or "unknown" for out-of-range ids.
func (id TierID) String() string {
	if s := id.Slug(); s != "" {
		return s
	}
	return "unknown"
}

// TierConfig is one entry of the inline tier table.
type TierConfig struct {
	ID            uint8  // equals the table index
	SupplyTotal   uint16 // capacity ceiling
	SupplyMinted  uint16 // issued through any path
	AdminMinted   uint16 // issued through the admin grant path
	PriceLamports uint64 // unit price in the payment asset's smallest denomination
	KYCRequired   bool
	InviteOnly    bool
	Transferable  bool // false for the soulbound tier
}

// Remaining returns how many units can still be issued.
func (t TierConfig) Remaining() uint16 {
	if t.SupplyMinted >= t.SupplyTotal {
		return 0
	}
	return t.SupplyTotal - t.SupplyMinted
}

// SoldOut reports whether the capacity ceiling has been reached.
func (t TierConfig) SoldOut() bool {
	return t.SupplyMinted >= t.SupplyTotal
}

// AdminCap returns floor(supply_total/20). Zero means no sub-cap is applied.
func (t TierConfig) AdminCap() uint16 {
	return t.SupplyTotal / AdminCapDivisor
}

// DefaultTier returns the launch economics for a tier.
func DefaultTier(id TierID) TierConfig {
	switch id {
	case TierTreeSteel:
		return TierConfig{ID: uint8(id), SupplyTotal: 2000, PriceLamports: 500_000_000, Transferable: true}
	case TierBronze:
		return TierConfig{ID: uint8(id), SupplyTotal: 1000, PriceLamports: 1_000_000_000, Transferable: true}
	case TierSilver:
		return TierConfig{ID: uint8(id), SupplyTotal: 200, PriceLamports: 2_500_000_000, KYCRequired: true, Transferable: true}
	case TierGold:
		return TierConfig{ID: uint8(id), SupplyTotal: 100, PriceLamports: 5_000_000_000, KYCRequired: true, Transferable: true}
	case TierPlatinum:
		return TierConfig{ID: uint8(id), SupplyTotal: 20, PriceLamports: 10_000_000_000, KYCRequired: true, Transferable: true}
	case TierWS20:
		return TierConfig{ID: uint8(id), SupplyTotal: 20, KYCRequired: true, InviteOnly: true}
	default:
		return TierConfig{ID: uint8(id)}
	}
}

// DefaultTiers returns the full default tier table.
func DefaultTiers() [TierCount]TierConfig {
	var tiers [TierCount]TierConfig
	for i := range tiers {
		tiers[i] = DefaultTier(TierID(i))
	}
	return tiers
}
