package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/book"
	"github.com/alanyoungcy/crossarb/internal/domain"
)

func writeMapping(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mapping.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDerivesInverseCounterpart(t *testing.T) {
	path := writeMapping(t, `
[[pairs]]
polymarket = "game-home"
kalshi = "K-HOME"
kalshi_counterpart = "K-AWAY"
`)
	m, err := Load(path)
	require.NoError(t, err)

	pairs := m.Pairs()
	require.Len(t, pairs, 1)
	assert.Equal(t, "game-home-inverse", pairs[0].OtherPolyID)
}

func TestLoadKeepsExplicitCounterpart(t *testing.T) {
	path := writeMapping(t, `
[[pairs]]
polymarket = "game-home"
kalshi = "K-HOME"
kalshi_counterpart = "K-AWAY"
polymarket_counterpart = "game-away"
`)
	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "game-away", m.Pairs()[0].OtherPolyID)

	// An explicit counterpart is a real market that needs its own book.
	byID := make(map[string]book.Spec)
	for _, s := range m.Specs() {
		byID[s.ID] = s
	}
	require.Contains(t, byID, "game-away")
	assert.Equal(t, domain.VenuePolymarketUS, byID["game-away"].Venue)
	assert.True(t, byID["game-away"].WithInverse)
}

func TestLoadRejectsBadMappings(t *testing.T) {
	cases := map[string]string{
		"empty file": ``,
		"incomplete pair": `
[[pairs]]
polymarket = "game-home"
kalshi = "K-HOME"
`,
		"self mapping": `
[[pairs]]
polymarket = "game-home"
kalshi = "K-HOME"
kalshi_counterpart = "K-HOME"
`,
		"duplicate polymarket id": `
[[pairs]]
polymarket = "game-home"
kalshi = "K-HOME"
kalshi_counterpart = "K-AWAY"

[[pairs]]
polymarket = "game-home"
kalshi = "K-HOME2"
kalshi_counterpart = "K-AWAY2"
`,
		"self correlated": `
[correlated]
"K-HOME" = ["K-HOME"]
`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeMapping(t, content))
			require.Error(t, err)
		})
	}
}

func TestSpecsCoverFullUniverse(t *testing.T) {
	path := writeMapping(t, `
[[pairs]]
polymarket = "game-home"
kalshi = "K-HOME"
kalshi_counterpart = "K-AWAY"

[correlated]
"K-HOME" = ["K-AWAY"]
"K-OTHER" = ["K-OTHER2"]
`)
	m, err := Load(path)
	require.NoError(t, err)

	byID := make(map[string]book.Spec)
	for _, s := range m.Specs() {
		byID[s.ID] = s
	}

	// Polymarket market quoted one-sided: carries the synthetic inverse.
	require.Contains(t, byID, "game-home")
	assert.True(t, byID["game-home"].WithInverse)
	assert.Equal(t, domain.VenuePolymarketUS, byID["game-home"].Venue)

	// Kalshi tickers from both the pair and the correlated table.
	for _, id := range []string{"K-HOME", "K-AWAY", "K-OTHER", "K-OTHER2"} {
		require.Contains(t, byID, id)
		assert.Equal(t, domain.VenueKalshi, byID[id].Venue)
		assert.False(t, byID[id].WithInverse)
	}
}

func TestCorrelatedTickers(t *testing.T) {
	path := writeMapping(t, `
[correlated]
"K-HOME" = ["K-AWAY"]
`)
	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"K-AWAY"}, m.Correlated("K-HOME"))
	assert.Nil(t, m.Correlated("K-AWAY"))
	assert.Len(t, m.CorrelatedTickers(), 1)
}
