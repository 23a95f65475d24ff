package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

// PDA seed limits enforced by the runtime.
const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)

const pdaMarker = "ProgramDerivedAddress"

// ErrNoViableBump is returned when no bump seed yields an off-curve address.
var ErrNoViableBump = errors.New("unable to find a viable program address bump seed")

// CreateProgramAddress derives the address for seeds (bump already appended).
// Returns an error if the resulting point lies on the ed25519 curve.
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return PublicKey{}, fmt.Errorf("too many seeds: %d", len(seeds))
	}

	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return PublicKey{}, fmt.Errorf("seed too long: %d bytes", len(seed))
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var out PublicKey
	copy(out[:], h.Sum(nil))

	if isOnCurve(out[:]) {
		return PublicKey{}, errors.New("derived address is on curve")
	}
	return out, nil
}

// FindProgramAddress searches bump seeds from 255 downwards and returns the
// first off-curve address together with its bump.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	// One slot is reserved for the bump.
	if len(seeds) >= MaxSeeds {
		return PublicKey{}, 0, fmt.Errorf("too many seeds: %d", len(seeds))
	}
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return PublicKey{}, 0, fmt.Errorf("seed too long: %d bytes", len(seed))
		}
	}

	for bump := 255; bump > 0; bump-- {
		withBump := make([][]byte, 0, len(seeds)+1)
		withBump = append(withBump, seeds...)
		withBump = append(withBump, []byte{byte(bump)})

		if addr, err := CreateProgramAddress(withBump, programID); err == nil {
			return addr, uint8(bump), nil
		}
	}
	return PublicKey{}, 0, ErrNoViableBump
}

// MetadataAddress derives the Metaplex metadata account for a mint.
// Seeds: ["metadata", metaplex_program_id, mint]
func MetadataAddress(mint PublicKey) (PublicKey, error) {
	program := MustParsePublicKey(TokenMetadataProgramID)
	addr, _, err := FindProgramAddress([][]byte{
		[]byte("metadata"),
		program[:],
		mint[:],
	}, program)
	return addr, err
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
