package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-advisor/internal/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "YAHOO", c.DataSource)
	assert.NotEmpty(t, c.UniverseFor(types.AssetEquity))
	assert.NotEmpty(t, c.UniverseFor(types.AssetFund))
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
data_source: KITE
period: 6mo
universe:
  equities:
    - { symbol: WIPRO.NS, name: Wipro }
engine:
  weights:
    equity: { technical: 0.5, fundamental: 0.3, sentiment: 0.2 }
  top_factors: 3
news:
  cache_ttl: 15m
`)
	c, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "KITE", c.DataSource)
	assert.Equal(t, "6mo", c.Period)
	require.Len(t, c.Universe.Equities, 1)
	assert.NotEmpty(t, c.Universe.Funds)
	assert.Equal(t, 15*time.Minute, c.News.CacheTTL)
	assert.Equal(t, 20, c.Indicators.ShortWindow)

	ec := c.EngineConfig()
	assert.Equal(t, 0.5, ec.Profiles[types.AssetEquity].Technical)
	assert.Equal(t, 0.5, ec.Profiles[types.AssetFund].Sentiment)
	assert.Equal(t, 3, ec.TopFactors)
	require.NoError(t, ec.Validate())
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown source": "data_source: BLOOMBERG\n",
		"weights":        "engine:\n  weights:\n    equity: { technical: 0.9, fundamental: 0.9, sentiment: 0 }\n",
		"bands gap":      "engine:\n  bands:\n    - { min: 60, action: Buy }\n    - { min: 20, action: Sell }\n",
		"windows":        "indicators:\n  short_window: 60\n  long_window: 50\n",
		"retry":          "market:\n  retry: { max_attempts: 3, initial_wait: 5s, max_wait: 1s }\n",
		"news source":    "news:\n  sources: [twitter]\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLookupInstrument(t *testing.T) {
	c := Default()
	in, class, ok := c.LookupInstrument("120503")
	require.True(t, ok)
	assert.Equal(t, types.AssetFund, class)
	assert.Equal(t, "Large Cap", in.Category)

	_, class, ok = c.LookupInstrument("TCS.NS")
	require.True(t, ok)
	assert.Equal(t, types.AssetEquity, class)

	_, _, ok = c.LookupInstrument("NOPE")
	assert.False(t, ok)
}
