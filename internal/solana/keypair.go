package solana

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mr-tron/base58"
)

// Keypair is an ed25519 signing key with its address.
type Keypair struct {
	PublicKey  PublicKey
	PrivateKey ed25519.PrivateKey
}

// KeypairFromSeed builds a keypair deterministically from a 32-byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	var pk PublicKey
	copy(pk[:], priv.Public().(ed25519.PublicKey))
	return &Keypair{PublicKey: pk, PrivateKey: priv}, nil
}

// LoadKeypairFile reads a solana-keygen keypair file (JSON array of 64 bytes).
func LoadKeypairFile(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair: %w", err)
	}
	return ParseKeypairJSON(data)
}

// ParseKeypairJSON decodes the solana-keygen format.
func ParseKeypairJSON(data []byte) (*Keypair, error) {
	var raw []int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode keypair json: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	b := make([]byte, len(raw))
	for i, v := range raw {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("keypair byte %d out of range: %d", i, v)
		}
		b[i] = byte(v)
	}

	kp, err := KeypairFromSeed(b[:ed25519.SeedSize])
	if err != nil {
		return nil, err
	}
	if string(kp.PublicKey[:]) != string(b[ed25519.SeedSize:]) {
		return nil, fmt.Errorf("keypair public half does not match secret")
	}
	return kp, nil
}

// Sign signs message and returns the raw signature.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.PrivateKey, message)
}

// SignBase58 signs message and returns the base58-encoded signature.
func (k *Keypair) SignBase58(message []byte) string {
	return base58.Encode(k.Sign(message))
}
