package presale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigri-presale/internal/domain"
)

func TestResolveDesign(t *testing.T) {
	const base = "https://vigri.io/"

	tests := []struct {
		name    string
		tier    domain.TierID
		serial  uint16
		choice  *uint8
		wantKey uint16
		wantURI string
		wantErr error
	}{
		{"tree", domain.TierTreeSteel, 1, choice(1), 1, "https://vigri.io/metadata/nft/tree-steel/TR/000001.json", nil},
		{"steel", domain.TierTreeSteel, 42, choice(2), 2, "https://vigri.io/metadata/nft/tree-steel/ST/000042.json", nil},
		{"tree steel without choice", domain.TierTreeSteel, 1, nil, 0, "", ErrInvalidDesignChoice},
		{"tree steel choice zero", domain.TierTreeSteel, 1, choice(0), 0, "", ErrInvalidDesignChoice},
		{"tree steel choice three", domain.TierTreeSteel, 1, choice(3), 0, "", ErrInvalidDesignChoice},
		{"bronze ignores choice", domain.TierBronze, 7, choice(9), 1, "https://vigri.io/metadata/nft/bronze/BR/000007.json", nil},
		{"silver first", domain.TierSilver, 1, nil, 1, "https://vigri.io/metadata/nft/silver/SL/000001.json", nil},
		{"silver tenth", domain.TierSilver, 10, nil, 10, "https://vigri.io/metadata/nft/silver/SL/000010.json", nil},
		{"silver wraps", domain.TierSilver, 11, nil, 1, "https://vigri.io/metadata/nft/silver/SL/000011.json", nil},
		{"silver last", domain.TierSilver, 200, nil, 10, "https://vigri.io/metadata/nft/silver/SL/000200.json", nil},
		{"gold", domain.TierGold, 100, nil, 100, "https://vigri.io/metadata/nft/gold/GD/000100.json", nil},
		{"platinum", domain.TierPlatinum, 20, nil, 20, "https://vigri.io/metadata/nft/platinum/PT/000020.json", nil},
		{"ws20", domain.TierWS20, 3, nil, 3, "https://vigri.io/metadata/nft/ws20/WS/000003.json", nil},
		{"unknown tier", domain.TierID(6), 1, nil, 0, "", ErrInvalidTierID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDesign(tt.tier, tt.serial, tt.choice, base)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, got.Key)
			assert.Equal(t, tt.wantURI, got.URI)
			assert.Equal(t, tt.serial, got.Serial)
		})
	}
}

func TestResolveDesign_Deterministic(t *testing.T) {
	a, err := ResolveDesign(domain.TierSilver, 57, nil, "https://vigri.io")
	require.NoError(t, err)
	b, err := ResolveDesign(domain.TierSilver, 57, nil, "https://vigri.io")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
