package main

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-advisor/internal/news"
	"market-advisor/internal/store"
	"market-advisor/internal/types"
)

func TestResolveRequest(t *testing.T) {
	cfg := store.Default()

	req, err := resolveRequest(cfg, "tcs", "")
	require.NoError(t, err)
	assert.Equal(t, "TCS.NS", req.Symbol)
	assert.Equal(t, "Tata Consultancy Services", req.Name)
	assert.Equal(t, types.AssetEquity, req.AssetClass)

	req, err = resolveRequest(cfg, "122639", "")
	require.NoError(t, err)
	assert.Equal(t, types.AssetFund, req.AssetClass)
	assert.Equal(t, "Flexi Cap", req.Category)

	req, err = resolveRequest(cfg, "999999", "")
	require.NoError(t, err)
	assert.Equal(t, types.AssetFund, req.AssetClass)

	req, err = resolveRequest(cfg, "ZOMATO", "equity")
	require.NoError(t, err)
	assert.Equal(t, "ZOMATO.NS", req.Symbol)

	cfg.Exchange = "BSE"
	req, err = resolveRequest(cfg, "ZOMATO", "")
	require.NoError(t, err)
	assert.Equal(t, "ZOMATO.BO", req.Symbol)

	_, err = resolveRequest(cfg, "X", "bond")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = resolveRequest(cfg, "  ", "")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestScreenRequestUsesUniverse(t *testing.T) {
	cfg := store.Default()
	req := screenRequest(cfg, types.AssetFund, types.ScreenSell, 3, "3mo")
	assert.Len(t, req.Universe, len(cfg.Universe.Funds))
	assert.Equal(t, 3, req.TopN)
	assert.Equal(t, "3mo", req.Period)
}

func TestPrintScreenTable(t *testing.T) {
	res := &types.ScreenResult{
		AssetClass:  types.AssetEquity,
		Side:        types.ScreenBuy,
		GeneratedAt: time.Date(2025, 10, 17, 16, 30, 0, 0, time.UTC),
		Entries: []types.ScreenEntry{{
			Rank: 1, Symbol: "INFY.NS", Name: "Infosys",
			Recommendation: types.Recommendation{
				Action: types.ActionBuy, Score: 71.4, Confidence: 62,
				TargetPrice: decimal.RequireFromString("1712.5"),
			},
		}},
		Failures: []types.ScreenFailure{{Symbol: "WIPRO.NS", Error: "insufficient data"}},
	}
	var buf bytes.Buffer
	require.NoError(t, printScreen(&buf, res, false))

	out := buf.String()
	assert.Contains(t, out, "Top picks: equity")
	assert.Contains(t, out, "INFY.NS")
	assert.Contains(t, out, "₹1,712.5")
	assert.Contains(t, out, "WIPRO.NS: insufficient data")
}

type countingSource struct {
	mu    sync.Mutex
	calls map[string]int
	fail  string
}

func (s *countingSource) Name() string { return "stub" }

func (s *countingSource) Fetch(_ context.Context, query string, _ int) ([]types.NewsItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[query]++
	if query == s.fail {
		return nil, errors.New("timeout")
	}
	return []types.NewsItem{{
		Headline:    query + " shares rally on strong results",
		Source:      "stub",
		PublishedAt: time.Now().Add(-time.Hour),
	}}, nil
}

func TestRefreshNewsWarmsCache(t *testing.T) {
	cfg := store.Default()
	cfg.Universe.Funds = []store.Instrument{
		{Symbol: "122639", Name: "Parag Parikh Flexi Cap"},
		{Symbol: "118989", Name: "HDFC Mid-Cap Opportunities"},
		{Symbol: "120503", Name: "Axis ELSS Tax Saver"},
	}
	src := &countingSource{calls: map[string]int{}, fail: "Axis ELSS Tax Saver"}
	a := &app{cfg: cfg, news: news.NewService(news.DefaultConfig(), nil, src)}

	assert.Equal(t, 2, a.refreshNews(context.Background(), types.AssetFund))
	assert.Equal(t, 1, src.calls["Parag Parikh Flexi Cap"])

	// the scheduled screen then reads the refreshed entry from cache
	items, err := a.news.Headlines(context.Background(), news.Query{Symbol: "122639", Name: "Parag Parikh Flexi Cap"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, src.calls["Parag Parikh Flexi Cap"])

	// a second run fetches again even though the cache is still fresh
	a.refreshNews(context.Background(), types.AssetFund)
	assert.Equal(t, 2, src.calls["Parag Parikh Flexi Cap"])
}
