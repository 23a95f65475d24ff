package storage

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/near/borsh-go"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/solana"
)

// SaleConfigAccountSize is the encoded size of the sale config account:
// discriminator(8) | admin(32) | collection(32) | payment(32) | paused(1) |
// tiers(6*18) | reserved(32)
const SaleConfigAccountSize = 8 + 32*3 + 1 + domain.TierCount*tierAccountSize + reservedBytes

const (
	tierAccountSize = 1 + 2 + 2 + 2 + 8 + 1 + 1 + 1
	reservedBytes   = 32
)

// saleConfigDiscriminator prefixes every encoded account.
var saleConfigDiscriminator = func() [8]byte {
	sum := sha256.Sum256([]byte("account:GlobalConfig"))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}()

type tierAccount struct {
	ID            uint8
	SupplyTotal   uint16
	SupplyMinted  uint16
	AdminMinted   uint16
	PriceLamports uint64
	KYCRequired   bool
	InviteOnly    bool
	Transferable  bool
}

type saleConfigAccount struct {
	Discriminator  [8]byte
	Admin          [32]byte
	CollectionMint [32]byte
	PaymentMint    [32]byte
	IsSalesPaused  bool
	Tiers          [domain.TierCount]tierAccount
	Reserved       [reservedBytes]byte // forward-compatible field additions
}

// EncodeSaleConfig serializes the persisted part of cfg into the borsh account layout.
func EncodeSaleConfig(cfg *domain.SaleConfig) ([]byte, error) {
	if cfg == nil {
		return nil, ErrInvalidInput
	}

	acc := saleConfigAccount{
		Discriminator:  saleConfigDiscriminator,
		Admin:          cfg.Admin,
		CollectionMint: cfg.CollectionMint,
		PaymentMint:    cfg.PaymentMint,
		IsSalesPaused:  cfg.IsSalesPaused,
	}
	for i, t := range cfg.Tiers {
		acc.Tiers[i] = tierAccount(t)
	}

	data, err := borsh.Serialize(acc)
	if err != nil {
		return nil, fmt.Errorf("encode sale config: %w", err)
	}
	if len(data) != SaleConfigAccountSize {
		return nil, fmt.Errorf("encode sale config: size %d, want %d", len(data), SaleConfigAccountSize)
	}
	return data, nil
}

// DecodeSaleConfig parses an encoded account. Address and Version are left
// for the caller to fill in.
func DecodeSaleConfig(data []byte) (*domain.SaleConfig, error) {
	if len(data) != SaleConfigAccountSize {
		return nil, fmt.Errorf("decode sale config: size %d, want %d", len(data), SaleConfigAccountSize)
	}
	if !bytes.Equal(data[:8], saleConfigDiscriminator[:]) {
		return nil, fmt.Errorf("decode sale config: discriminator mismatch")
	}

	var acc saleConfigAccount
	if err := borsh.Deserialize(&acc, data); err != nil {
		return nil, fmt.Errorf("decode sale config: %w", err)
	}

	cfg := &domain.SaleConfig{
		Admin:          solana.PublicKey(acc.Admin),
		CollectionMint: solana.PublicKey(acc.CollectionMint),
		PaymentMint:    solana.PublicKey(acc.PaymentMint),
		IsSalesPaused:  acc.IsSalesPaused,
	}
	for i, t := range acc.Tiers {
		cfg.Tiers[i] = domain.TierConfig(t)
	}
	return cfg, nil
}
