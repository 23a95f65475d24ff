package presale

import (
	"fmt"
	"strings"

	"vigri-presale/internal/domain"
)

// Variant codes used in metadata locators.
const (
	codeTree     = "TR"
	codeSteel    = "ST"
	codeBronze   = "BR"
	codeSilver   = "SL"
	codeGold     = "GD"
	codePlatinum = "PT"
	codeWS20     = "WS"
)

// silverVariants is the cycle length of the silver tier.
const silverVariants = 10

// Design is the resolved variant of one serial.
type Design struct {
	Serial uint16
	Key    uint16 // design_key
	Code   string
	URI    string
}

// ResolveDesign maps (tier, serial, choice) to a design key and metadata
// locator. It is pure: equal inputs always give equal output.
//
// serial is 1-indexed. choice is required on the tree/steel tier and ignored
// elsewhere.
func ResolveDesign(tier domain.TierID, serial uint16, choice *uint8, baseURL string) (Design, error) {
	d := Design{Serial: serial}

	switch tier {
	case domain.TierTreeSteel:
		if choice == nil {
			return Design{}, fmt.Errorf("%w: tree/steel requires a choice of 1 or 2", ErrInvalidDesignChoice)
		}
		switch *choice {
		case 1:
			d.Key, d.Code = 1, codeTree
		case 2:
			d.Key, d.Code = 2, codeSteel
		default:
			return Design{}, fmt.Errorf("%w: %d", ErrInvalidDesignChoice, *choice)
		}
	case domain.TierBronze:
		d.Key, d.Code = 1, codeBronze
	case domain.TierSilver:
		// The locator keeps the plain serial; the indexer maps the cycled key.
		d.Key, d.Code = (serial-1)%silverVariants+1, codeSilver
	case domain.TierGold:
		d.Key, d.Code = serial, codeGold
	case domain.TierPlatinum:
		d.Key, d.Code = serial, codePlatinum
	case domain.TierWS20:
		d.Key, d.Code = serial, codeWS20
	default:
		return Design{}, fmt.Errorf("%w: %d", ErrInvalidTierID, tier)
	}

	d.URI = Locator(baseURL, tier, d.Code, serial)
	return d, nil
}

// Locator builds <base>/metadata/nft/<tier-slug>/<code>/<serial:06d>.json.
func Locator(baseURL string, tier domain.TierID, code string, serial uint16) string {
	return fmt.Sprintf("%s/metadata/nft/%s/%s/%06d.json",
		strings.TrimRight(baseURL, "/"), tier.Slug(), code, serial)
}
