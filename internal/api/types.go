package api

import (
	"vigri-presale/internal/domain"
	"vigri-presale/internal/events"
	"vigri-presale/internal/presale"
	"vigri-presale/internal/solana"
)

// InitializeRequest creates the sale. Admin defaults to the signer.
type InitializeRequest struct {
	Admin          *solana.PublicKey `json:"admin,omitempty"`
	CollectionMint solana.PublicKey  `json:"collection_mint"`
	PaymentMint    solana.PublicKey  `json:"payment_mint"`
}

// MintRequest is a public purchase by the signer.
type MintRequest struct {
	TierID       uint8  `json:"tier_id"`
	DesignChoice *uint8 `json:"design_choice,omitempty"`
	KYCProof     []byte `json:"kyc_proof,omitempty"`
	InviteProof  []byte `json:"invite_proof,omitempty"`
}

// AdminMintRequest grants a token to Recipient. The signer must be the admin.
type AdminMintRequest struct {
	TierID       uint8            `json:"tier_id"`
	Recipient    solana.PublicKey `json:"recipient"`
	DesignChoice *uint8           `json:"design_choice,omitempty"`
}

// SoulboundRequest is the invite-holder entry point of the soulbound tier.
type SoulboundRequest struct {
	InviteProof []byte `json:"invite_proof,omitempty"`
}

// AirdropRequest credits payment balance to Owner. Admin only.
type AirdropRequest struct {
	Owner    solana.PublicKey `json:"owner"`
	Lamports uint64           `json:"lamports"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TierView is the wire form of one tier entry.
type TierView struct {
	ID            uint8  `json:"id"`
	Slug          string `json:"slug"`
	SupplyTotal   uint16 `json:"supply_total"`
	SupplyMinted  uint16 `json:"supply_minted"`
	AdminMinted   uint16 `json:"admin_minted"`
	PriceLamports uint64 `json:"price_lamports"`
	KYCRequired   bool   `json:"kyc_required"`
	InviteOnly    bool   `json:"invite_only"`
	Transferable  bool   `json:"transferable"`
}

// ConfigView is the wire form of the sale aggregate.
type ConfigView struct {
	Address        string           `json:"address"`
	Version        uint64           `json:"version"`
	Admin          solana.PublicKey `json:"admin"`
	CollectionMint solana.PublicKey `json:"collection_mint"`
	PaymentMint    solana.PublicKey `json:"payment_mint"`
	IsSalesPaused  bool             `json:"is_sales_paused"`
	Tiers          []TierView       `json:"tiers"`
}

// TokenView is the wire form of an issued token.
type TokenView struct {
	Mint         solana.PublicKey `json:"mint"`
	Owner        solana.PublicKey `json:"owner"`
	Authority    solana.PublicKey `json:"authority"`
	TierID       uint8            `json:"tier_id"`
	Serial       uint16           `json:"serial"`
	Transferable bool             `json:"transferable"`
	CreatedAt    int64            `json:"created_at"`
}

// CreatorView is one creator entry of a metadata record.
type CreatorView struct {
	Address  solana.PublicKey `json:"address"`
	Verified bool             `json:"verified"`
	Share    uint8            `json:"share"`
}

// MetadataView is the wire form of a metadata record.
type MetadataView struct {
	Address              solana.PublicKey `json:"address"`
	Mint                 solana.PublicKey `json:"mint"`
	UpdateAuthority      solana.PublicKey `json:"update_authority"`
	Name                 string           `json:"name"`
	Symbol               string           `json:"symbol"`
	URI                  string           `json:"uri"`
	SellerFeeBasisPoints uint16           `json:"seller_fee_basis_points"`
	Creators             []CreatorView    `json:"creators"`
	IsMutable            bool             `json:"is_mutable"`
}

// MintResponse is returned by both mint paths.
type MintResponse struct {
	Event     events.Message `json:"event"`
	Token     TokenView      `json:"token"`
	Metadata  MetadataView   `json:"metadata"`
	DesignKey uint16         `json:"design_key"`
	Code      string         `json:"design_code"`
	Paid      uint64         `json:"paid_lamports"`
}

// BalanceResponse is a payment balance.
type BalanceResponse struct {
	Owner    solana.PublicKey `json:"owner"`
	Lamports uint64           `json:"lamports"`
}

// TierStats counts recorded mints of one tier by path.
type TierStats struct {
	TierID uint8  `json:"tier_id"`
	Slug   string `json:"slug"`
	Public uint64 `json:"public"`
	Admin  uint64 `json:"admin"`
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status        string           `json:"status"`
	Uptime        string           `json:"uptime"`
	ConfigAddress solana.PublicKey `json:"config_address"`
}

func newConfigView(cfg *domain.SaleConfig) ConfigView {
	v := ConfigView{
		Address:        cfg.Address,
		Version:        cfg.Version,
		Admin:          cfg.Admin,
		CollectionMint: cfg.CollectionMint,
		PaymentMint:    cfg.PaymentMint,
		IsSalesPaused:  cfg.IsSalesPaused,
		Tiers:          make([]TierView, 0, len(cfg.Tiers)),
	}
	for _, t := range cfg.Tiers {
		v.Tiers = append(v.Tiers, TierView{
			ID:            t.ID,
			Slug:          domain.TierID(t.ID).Slug(),
			SupplyTotal:   t.SupplyTotal,
			SupplyMinted:  t.SupplyMinted,
			AdminMinted:   t.AdminMinted,
			PriceLamports: t.PriceLamports,
			KYCRequired:   t.KYCRequired,
			InviteOnly:    t.InviteOnly,
			Transferable:  t.Transferable,
		})
	}
	return v
}

func newTokenView(t *domain.Token) TokenView {
	return TokenView{
		Mint:         t.Mint,
		Owner:        t.Owner,
		Authority:    t.Authority,
		TierID:       uint8(t.TierID),
		Serial:       t.Serial,
		Transferable: t.Transferable,
		CreatedAt:    t.CreatedAt,
	}
}

func newMetadataView(m *domain.MetadataRecord) MetadataView {
	v := MetadataView{
		Address:              m.Address,
		Mint:                 m.Mint,
		UpdateAuthority:      m.UpdateAuthority,
		Name:                 m.Name,
		Symbol:               m.Symbol,
		URI:                  m.URI,
		SellerFeeBasisPoints: m.SellerFeeBasisPoints,
		Creators:             make([]CreatorView, 0, len(m.Creators)),
		IsMutable:            m.IsMutable,
	}
	for _, c := range m.Creators {
		v.Creators = append(v.Creators, CreatorView{Address: c.Address, Verified: c.Verified, Share: c.Share})
	}
	return v
}

func newMintResponse(r *presale.MintResult) MintResponse {
	return MintResponse{
		Event:     events.NewMessage(&r.Event),
		Token:     newTokenView(&r.Token),
		Metadata:  newMetadataView(&r.Metadata),
		DesignKey: r.Design.Key,
		Code:      r.Design.Code,
		Paid:      r.Paid,
	}
}
