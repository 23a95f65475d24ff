// Package api exposes the presale over HTTP. Mutating requests are signed by
// the caller's ed25519 key; the verified signer is the caller identity.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"vigri-presale/internal/solana"
)

// Signature headers.
const (
	HeaderSigner    = "X-Signer"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
)

// MaxNonceLen bounds X-Nonce.
const MaxNonceLen = 64

// DefaultMaxSkew bounds how far X-Timestamp may drift from server time.
const DefaultMaxSkew = 5 * time.Minute

var errInvalidSignature = errors.New("invalid request signature")

// SigningMessage returns the bytes a caller signs: "<timestamp>.<nonce>.<body>".
func SigningMessage(timestamp, nonce string, body []byte) []byte {
	msg := make([]byte, 0, len(timestamp)+len(nonce)+2+len(body))
	msg = append(msg, timestamp...)
	msg = append(msg, '.')
	msg = append(msg, nonce...)
	msg = append(msg, '.')
	return append(msg, body...)
}

// SignRequest sets the signature headers on req for body. A request with a
// given nonce changes server state at most once, so retries of the same
// logical call must reuse it.
func SignRequest(req *http.Request, signer *solana.Keypair, nonce string, body []byte, now time.Time) {
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	req.Header.Set(HeaderSigner, signer.PublicKey.String())
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderNonce, nonce)
	req.Header.Set(HeaderSignature, signer.SignBase58(SigningMessage(ts, nonce, body)))
}

// validNonce accepts 1..MaxNonceLen printable ASCII characters other than '.'.
func validNonce(nonce string) bool {
	if nonce == "" || len(nonce) > MaxNonceLen || strings.Contains(nonce, ".") {
		return false
	}
	for i := 0; i < len(nonce); i++ {
		if nonce[i] < '!' || nonce[i] > '~' {
			return false
		}
	}
	return true
}

// verifySignature authenticates body against the signature headers and
// returns the signer and its nonce.
func verifySignature(h http.Header, body []byte, now time.Time, maxSkew time.Duration) (solana.PublicKey, string, error) {
	signer, err := solana.ParsePublicKey(h.Get(HeaderSigner))
	if err != nil {
		return solana.PublicKey{}, "", fmt.Errorf("%w: signer: %v", errInvalidSignature, err)
	}

	ts := h.Get(HeaderTimestamp)
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return solana.PublicKey{}, "", fmt.Errorf("%w: timestamp", errInvalidSignature)
	}
	if skew := now.Sub(time.UnixMilli(ms)); skew > maxSkew || skew < -maxSkew {
		return solana.PublicKey{}, "", fmt.Errorf("%w: timestamp outside %s window", errInvalidSignature, maxSkew)
	}

	nonce := h.Get(HeaderNonce)
	if !validNonce(nonce) {
		return solana.PublicKey{}, "", fmt.Errorf("%w: nonce", errInvalidSignature)
	}

	sig, err := base58.Decode(h.Get(HeaderSignature))
	if err != nil {
		return solana.PublicKey{}, "", fmt.Errorf("%w: signature encoding", errInvalidSignature)
	}
	if !signer.Verify(SigningMessage(ts, nonce, body), sig) {
		return solana.PublicKey{}, "", errInvalidSignature
	}
	return signer, nonce, nil
}
