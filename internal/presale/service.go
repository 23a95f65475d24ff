// Package presale implements the VIGRI presale: sale configuration, tier
// admission, payment collection, design resolution and token issuance.
package presale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/events"
	"vigri-presale/internal/logger"
	"vigri-presale/internal/observability"
	"vigri-presale/internal/solana"
	"vigri-presale/internal/storage"
)

// ConfigSeed is the PDA seed of the sale config account.
const ConfigSeed = "vigri-presale-config"

// DefaultProgramID is the presale program id.
var DefaultProgramID = solana.MustParsePublicKey("GmrUAwBvC3ijaM2L7kjddQFMWHevxRnArngf7jFx1yEk")

// Metadata placeholders written to every new token.
const (
	MetadataName         = "VIGRI Mystery NFT"
	MetadataSymbol       = "VIGRI"
	SellerFeeBasisPoints = 500
)

// Service runs every presale operation as one atomic unit on the store.
type Service struct {
	store     storage.Store
	verifier  ProofVerifier
	publisher events.Publisher
	log       *zap.Logger

	programID     solana.PublicKey
	configAddress solana.PublicKey
	baseURL       string
	backend       string

	now   func() time.Time
	newID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithVerifier sets the proof verifier. Default: PresenceVerifier.
func WithVerifier(v ProofVerifier) Option {
	return func(s *Service) { s.verifier = v }
}

// WithPublisher sets where committed mint events are delivered.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithProgramID sets the program the config and token PDAs derive from.
func WithProgramID(id solana.PublicKey) Option {
	return func(s *Service) { s.programID = id }
}

// WithMetadataBaseURL sets the locator base.
func WithMetadataBaseURL(u string) Option {
	return func(s *Service) { s.baseURL = u }
}

// WithBackend labels substrate metrics.
func WithBackend(name string) Option {
	return func(s *Service) { s.backend = name }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator sets the event id source. Default: random UUIDs.
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// NewService creates a Service over store.
func NewService(store storage.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("presale: nil store")
	}

	s := &Service{
		store:     store,
		verifier:  PresenceVerifier{},
		publisher: events.Discard,
		log:       logger.Named("presale"),
		programID: DefaultProgramID,
		baseURL:   "https://vigri.io",
		backend:   "memory",
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(ConfigSeed)}, s.programID)
	if err != nil {
		return nil, fmt.Errorf("derive config address: %w", err)
	}
	s.configAddress = addr
	return s, nil
}

// ConfigAddress returns the derived location of the sale aggregate.
func (s *Service) ConfigAddress() solana.PublicKey {
	return s.configAddress
}

// atomic runs fn as one unit and records substrate metrics.
func (s *Service) atomic(ctx context.Context, fn func(tx storage.Tx) error) error {
	start := time.Now()
	err := s.store.Atomic(ctx, fn)

	var substrateErr error
	if err != nil && !IsRejection(err) {
		substrateErr = err
	}
	observability.RecordDBUnit(s.backend, time.Since(start).Seconds(), substrateErr)
	return err
}

// loadConfig reads the aggregate inside a unit.
func (s *Service) loadConfig(ctx context.Context, tx storage.Tx) (*domain.SaleConfig, error) {
	cfg, err := tx.SaleConfigs().Get(ctx, s.configAddress.String())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("load sale config: %w", err)
	}
	return cfg, nil
}

// reject logs and counts a failed operation.
func (s *Service) reject(op string, err error, fields ...zap.Field) {
	code := Code(err)
	observability.RecordRejection(op, code)

	fields = append(fields, zap.String("op", op), zap.String("code", code), zap.Error(err))
	if IsRejection(err) {
		s.log.Info("request rejected", fields...)
		return
	}
	s.log.Error("operation failed", fields...)
}

// requireAdmin is the single authorization predicate for privileged operations.
func requireAdmin(cfg *domain.SaleConfig, caller solana.PublicKey) error {
	if !cfg.Admin.Equals(caller) {
		return ErrUnauthorized
	}
	return nil
}
