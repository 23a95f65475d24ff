package domain

import "vigri-presale/internal/solana"

// MintPath distinguishes the public sale from admin grants.
type MintPath string

const (
	MintPathPublic MintPath = "PUBLIC"
	MintPathAdmin  MintPath = "ADMIN"
)

// MintEvent is emitted exactly once per successful mint. Aborted attempts
// never produce one.
type MintEvent struct {
	EventID   string           // uuid, stable across redelivery
	TierID    TierID           // tier index
	Serial    uint16           // 1-indexed position within the tier
	DesignKey uint16           // variant selector within the tier
	Mint      solana.PublicKey // issued token reference
	Owner     solana.PublicKey // token recipient
	Path      MintPath         // PUBLIC or ADMIN
	URI       string           // metadata locator
	Timestamp int64            // unix ms
}

// Token is a single issued non-fungible unit.
type Token struct {
	Mint         solana.PublicKey // token address
	Owner        solana.PublicKey // holder of the single unit
	Authority    solana.PublicKey // mint and freeze authority
	TierID       TierID
	Serial       uint16
	Transferable bool
	CreatedAt    int64 // unix ms
}

// Creator is an entry in a metadata record's creator list.
type Creator struct {
	Address  solana.PublicKey
	Verified bool
	Share    uint8 // percent, shares sum to 100
}

// MetadataRecord is the descriptive record attached to an issued token.
type MetadataRecord struct {
	Address              solana.PublicKey // metadata account PDA
	Mint                 solana.PublicKey
	UpdateAuthority      solana.PublicKey // config PDA, so metadata can be revised collectively
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             []Creator
	IsMutable            bool
	CreatedAt            int64 // unix ms
}
