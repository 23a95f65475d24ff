package presale

import (
	"context"
	"errors"
	"fmt"

	"vigri-presale/internal/solana"
	"vigri-presale/internal/storage"
)

type requestNonceKey struct{}

type requestNonce struct {
	signer solana.PublicKey
	nonce  string
}

// WithRequestNonce attaches the signed nonce of the current request to ctx.
// The next mutating operation run with ctx claims it in its own unit, so the
// request can change state at most once.
func WithRequestNonce(ctx context.Context, signer solana.PublicKey, nonce string) context.Context {
	return context.WithValue(ctx, requestNonceKey{}, requestNonce{signer: signer, nonce: nonce})
}

// mutate runs fn as one unit after claiming the request nonce carried by ctx,
// if any. A rejected unit releases the claim along with its other writes.
func (s *Service) mutate(ctx context.Context, fn func(tx storage.Tx) error) error {
	rn, ok := ctx.Value(requestNonceKey{}).(requestNonce)
	if !ok {
		return s.atomic(ctx, fn)
	}

	return s.atomic(ctx, func(tx storage.Tx) error {
		err := tx.Nonces().Claim(ctx, rn.signer.String(), rn.nonce, s.now().UnixMilli())
		if err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				return ErrReplayedRequest
			}
			return fmt.Errorf("claim request nonce: %w", err)
		}
		return fn(tx)
	})
}
