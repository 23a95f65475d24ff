package presale

import (
	"context"
	"errors"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/solana"
)

// ProofKind names the gate a proof is presented for.
type ProofKind string

const (
	ProofKYC    ProofKind = "kyc"
	ProofInvite ProofKind = "invite"
)

// ErrProofMissing is returned by PresenceVerifier for an absent proof.
var ErrProofMissing = errors.New("proof not presented")

// ProofVerifier decides whether a presented proof opens a tier gate.
// A nil proof means none was presented; an empty non-nil proof was presented.
type ProofVerifier interface {
	Verify(ctx context.Context, kind ProofKind, holder solana.PublicKey, tier domain.TierID, proof []byte) error
}

// PresenceVerifier accepts any presented proof without checking its content.
// It is not a substitute for real KYC or invite verification.
type PresenceVerifier struct{}

// Verify implements ProofVerifier.
func (PresenceVerifier) Verify(_ context.Context, _ ProofKind, _ solana.PublicKey, _ domain.TierID, proof []byte) error {
	if proof == nil {
		return ErrProofMissing
	}
	return nil
}

// VerifierFunc adapts a function to ProofVerifier.
type VerifierFunc func(ctx context.Context, kind ProofKind, holder solana.PublicKey, tier domain.TierID, proof []byte) error

// Verify implements ProofVerifier.
func (f VerifierFunc) Verify(ctx context.Context, kind ProofKind, holder solana.PublicKey, tier domain.TierID, proof []byte) error {
	return f(ctx, kind, holder, tier, proof)
}

var _ ProofVerifier = PresenceVerifier{}
