package storage

import (
	"context"

	"vigri-presale/internal/domain"
)

// Store is the ledger substrate. It serializes every unit that touches the
// sale aggregate.
type Store interface {
	// Atomic runs fn as one all-or-nothing unit. If fn returns an error,
	// every write made through tx is discarded.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes the stores participating in a single atomic unit.
type Tx interface {
	SaleConfigs() SaleConfigStore
	Balances() BalanceLedger
	Tokens() TokenStore
	Metadata() MetadataStore
	MintEvents() MintEventStore
	Nonces() NonceStore
}

// SaleConfigStore holds the singleton sale aggregate keyed by its derived address.
type SaleConfigStore interface {
	// Create stores cfg at address with version 1. Returns ErrDuplicateKey if
	// the address is already populated.
	Create(ctx context.Context, address string, cfg *domain.SaleConfig) error

	// Get retrieves the aggregate. Returns ErrNotFound if not initialized.
	Get(ctx context.Context, address string) (*domain.SaleConfig, error)

	// CompareAndSwap replaces the stored aggregate if its version still equals
	// cfg.Version, then bumps cfg.Version. Returns ErrVersionConflict otherwise.
	CompareAndSwap(ctx context.Context, address string, cfg *domain.SaleConfig) error
}

// BalanceLedger holds native payment-asset balances.
type BalanceLedger interface {
	// Balance returns the balance of owner. Unknown owners have zero balance.
	Balance(ctx context.Context, owner string) (uint64, error)

	// Credit adds lamports to owner.
	Credit(ctx context.Context, owner string, lamports uint64) error

	// Transfer moves lamports from one owner to another.
	// Returns ErrInsufficientFunds if from cannot cover the amount.
	Transfer(ctx context.Context, from, to string, lamports uint64) error
}

// TokenStore provides access to issued tokens.
type TokenStore interface {
	// Insert adds a new token. Returns ErrDuplicateKey if the mint exists.
	Insert(ctx context.Context, t *domain.Token) error

	// GetByMint retrieves a token by mint address. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.Token, error)

	// GetByOwner retrieves all tokens held by owner, ordered by (tier, serial).
	GetByOwner(ctx context.Context, owner string) ([]*domain.Token, error)
}

// MetadataStore provides access to token metadata records.
type MetadataStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if the mint already has one.
	Insert(ctx context.Context, m *domain.MetadataRecord) error

	// GetByMint retrieves the record for a mint. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.MetadataRecord, error)
}

// MintEventStore is the append-only mint event log.
type MintEventStore interface {
	// Append adds an event. Returns ErrDuplicateKey if (tier, serial) exists.
	Append(ctx context.Context, e *domain.MintEvent) error

	// GetByTier retrieves events for a tier ordered by serial ASC.
	GetByTier(ctx context.Context, tier domain.TierID) ([]*domain.MintEvent, error)

	// GetAll retrieves all events ordered by (timestamp, tier, serial) ASC.
	GetAll(ctx context.Context) ([]*domain.MintEvent, error)
}

// NonceStore remembers request nonces so a signed request is applied at most once.
type NonceStore interface {
	// Claim records nonce for signer at the given unix-millisecond time.
	// Returns ErrDuplicateKey if the pair was already claimed.
	Claim(ctx context.Context, signer, nonce string, at int64) error
}
