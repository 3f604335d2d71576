package advisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-advisor/internal/indicators"
	"market-advisor/internal/interfaces"
	"market-advisor/internal/news"
	"market-advisor/internal/recommend"
	"market-advisor/internal/sentiment"
	"market-advisor/internal/types"
)

var asOf = time.Date(2025, 10, 17, 16, 0, 0, 0, time.UTC)

// series builds n daily candles growing by step per session.
func series(symbol string, n int, start, step float64) types.PriceSeries {
	ps := types.PriceSeries{Symbol: symbol}
	for i := 0; i < n; i++ {
		c := start + step*float64(i)
		ps.Candles = append(ps.Candles, types.Candle{
			Ts:    asOf.AddDate(0, 0, i-n),
			Open:  c,
			High:  c * 1.01,
			Low:   c * 0.99,
			Close: c,
			Vol:   1e6 + float64(i%7)*1e5,
		})
	}
	return ps
}

type fakeMarket struct {
	mu      sync.Mutex
	prices  map[string]types.PriceSeries
	fund    map[string]*types.FundamentalSnapshot
	failFor map[string]error
}

func (f *fakeMarket) PriceHistory(_ context.Context, symbol, _ string) (types.PriceSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[symbol]; err != nil {
		return types.PriceSeries{}, err
	}
	ps, ok := f.prices[symbol]
	if !ok {
		return types.PriceSeries{}, errors.New("symbol not found")
	}
	return ps, nil
}

func (f *fakeMarket) Fundamentals(_ context.Context, symbol string) (*types.FundamentalSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.fund[symbol]
	if !ok {
		return nil, errors.New("quoteSummary timeout")
	}
	return snap, nil
}

type fakeNews struct {
	items map[string][]types.NewsItem
	err   error
}

func (f *fakeNews) Headlines(_ context.Context, q news.Query) ([]types.NewsItem, error) {
	return f.items[q.Symbol], f.err
}

type memSink struct {
	mu      sync.Mutex
	reports []*types.Report
	screens []*types.ScreenResult
}

func (m *memSink) Append(r *types.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return nil
}

func (m *memSink) AppendScreen(res *types.ScreenResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.screens = append(m.screens, res)
	return nil
}

func newAdvisor(t *testing.T, market *fakeMarket, nw Headlines, sink ReportSink) *Advisor {
	t.Helper()
	eng, err := recommend.New(recommend.DefaultConfig())
	require.NoError(t, err)
	a, err := New(Options{
		Markets:     map[types.AssetClass]interfaces.MarketData{types.AssetEquity: market, types.AssetFund: market},
		News:        nw,
		Calculator:  indicators.NewCalculator(indicators.DefaultConfig()),
		Scorer:      sentiment.NewScorer(sentiment.DefaultConfig(), sentiment.DefaultLexicon()),
		Engine:      eng,
		Sink:        sink,
		Concurrency: 3,
	})
	require.NoError(t, err)
	a.now = func() time.Time { return asOf }
	return a
}

func TestAnalyzeFullReport(t *testing.T) {
	market := &fakeMarket{
		prices: map[string]types.PriceSeries{"TCS.NS": series("TCS.NS", 120, 3000, 5)},
		fund: map[string]*types.FundamentalSnapshot{"TCS.NS": {
			Name: "Tata Consultancy Services", PE: 24, PB: 11, DividendYield: 0.018, DebtToEquity: 0.09, MarketCap: 1.1e13,
		}},
	}
	nw := &fakeNews{items: map[string][]types.NewsItem{"TCS.NS": {
		{Headline: "TCS beats estimates with record profit growth", Source: "Mint", PublishedAt: asOf.Add(-6 * time.Hour)},
		{Headline: "TCS shares surge on strong deal wins", Source: "ET", PublishedAt: asOf.Add(-30 * time.Hour)},
	}}}
	sink := &memSink{}
	a := newAdvisor(t, market, nw, sink)

	r, err := a.Analyze(context.Background(), types.AnalysisRequest{Symbol: "TCS.NS", AssetClass: types.AssetEquity})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, r.RequestID)
	assert.Equal(t, "Tata Consultancy Services", r.Name)
	assert.Equal(t, "1y", r.Period)
	assert.Equal(t, asOf, r.GeneratedAt)
	assert.Empty(t, r.Recommendation.Unavailable)
	assert.Equal(t, 2, r.Sentiment.ItemCount)
	assert.Greater(t, r.Sentiment.Score, 0.0)
	assert.True(t, r.Indicators.Trend.Available)
	assert.Greater(t, r.Recommendation.Score, 50.0)
	assert.False(t, r.Recommendation.TargetPrice.IsZero())
	require.Len(t, sink.reports, 1)
	assert.Same(t, r, sink.reports[0])
}

func TestAnalyzeDegradesOnProviderFailure(t *testing.T) {
	market := &fakeMarket{
		prices: map[string]types.PriceSeries{"ITC.NS": series("ITC.NS", 80, 400, -0.5)},
	}
	nw := &fakeNews{err: news.ErrAllSourcesFailed}
	a := newAdvisor(t, market, nw, nil)

	r, err := a.Analyze(context.Background(), types.AnalysisRequest{Symbol: "ITC.NS", AssetClass: types.AssetEquity})
	require.NoError(t, err)

	var missing []types.Category
	for _, u := range r.Recommendation.Unavailable {
		missing = append(missing, u.Category)
	}
	assert.ElementsMatch(t, []types.Category{types.CategoryFundamental, types.CategorySentiment}, missing)
	assert.Equal(t, 1.0, r.Recommendation.Weights[types.CategoryTechnical])
	assert.Zero(t, r.Recommendation.Weights[types.CategoryFundamental])
	assert.Nil(t, r.Fundamentals)
	assert.Empty(t, r.News)
	assert.InDelta(t, 50, r.Recommendation.Score, 50)
}

func TestAnalyzeErrors(t *testing.T) {
	bad := series("BAD.NS", 30, 100, 1)
	bad.Candles[10].Close = -1
	market := &fakeMarket{
		prices:  map[string]types.PriceSeries{"BAD.NS": bad},
		failFor: map[string]error{"GONE.NS": errors.New("404")},
	}
	a := newAdvisor(t, market, nil, nil)
	ctx := context.Background()

	_, err := a.Analyze(ctx, types.AnalysisRequest{Symbol: "BAD.NS", AssetClass: types.AssetEquity})
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = a.Analyze(ctx, types.AnalysisRequest{Symbol: "GONE.NS", AssetClass: types.AssetEquity})
	assert.ErrorIs(t, err, types.ErrInsufficientData)

	_, err = a.Analyze(ctx, types.AnalysisRequest{Symbol: " ", AssetClass: types.AssetEquity})
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = a.Analyze(ctx, types.AnalysisRequest{Symbol: "X", AssetClass: "bond"})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestScreenRanksAndReportsFailures(t *testing.T) {
	market := &fakeMarket{prices: map[string]types.PriceSeries{}, failFor: map[string]error{}}
	universe := []types.AnalysisRequest{}
	steps := map[string]float64{"UP.NS": 2, "FLAT.NS": 0.01, "DOWN.NS": -0.6, "DIP.NS": -0.2}
	for sym, step := range steps {
		market.prices[sym] = series(sym, 100, 200, step)
		universe = append(universe, types.AnalysisRequest{Symbol: sym})
	}
	universe = append(universe, types.AnalysisRequest{Symbol: "MISSING.NS"})
	sink := &memSink{}
	a := newAdvisor(t, market, nil, sink)

	buy, err := a.Screen(context.Background(), types.ScreenRequest{
		AssetClass: types.AssetEquity, Side: types.ScreenBuy, TopN: 3, Universe: universe,
	})
	require.NoError(t, err)
	require.Len(t, buy.Entries, 3)
	assert.Contains(t, []string{"UP.NS", "FLAT.NS"}, buy.Entries[0].Symbol)
	assert.Equal(t, 1, buy.Entries[0].Rank)
	for i := 1; i < len(buy.Entries); i++ {
		assert.GreaterOrEqual(t, buy.Entries[i-1].Recommendation.Score, buy.Entries[i].Recommendation.Score)
	}
	require.Len(t, buy.Failures, 1)
	assert.Equal(t, "MISSING.NS", buy.Failures[0].Symbol)

	sell, err := a.Screen(context.Background(), types.ScreenRequest{
		AssetClass: types.AssetEquity, Side: types.ScreenSell, TopN: 2, Universe: universe,
	})
	require.NoError(t, err)
	require.Len(t, sell.Entries, 2)
	assert.LessOrEqual(t, sell.Entries[0].Recommendation.Score, sell.Entries[1].Recommendation.Score)
	assert.NotEqual(t, "UP.NS", sell.Entries[0].Symbol)
	assert.Len(t, sink.screens, 2)

	_, err = a.Screen(context.Background(), types.ScreenRequest{AssetClass: types.AssetEquity, Side: "hold", Universe: universe})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestScreenAllFailed(t *testing.T) {
	a := newAdvisor(t, &fakeMarket{}, nil, nil)
	res, err := a.Screen(context.Background(), types.ScreenRequest{
		AssetClass: types.AssetFund, Side: types.ScreenBuy,
		Universe: []types.AnalysisRequest{{Symbol: "1"}, {Symbol: "2"}},
	})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Len(t, res.Failures, 2)
}

func TestRankTieBreak(t *testing.T) {
	e := func(sym string, score, conf float64) types.ScreenEntry {
		return types.ScreenEntry{Symbol: sym, Recommendation: types.Recommendation{Score: score, Confidence: conf}}
	}
	entries := []types.ScreenEntry{e("B", 70, 50), e("A", 70, 50), e("C", 70, 80), e("D", 40, 90)}
	Rank(entries, types.ScreenBuy)

	got := make([]string, len(entries))
	for i, en := range entries {
		got[i] = fmt.Sprintf("%d:%s", en.Rank, en.Symbol)
	}
	assert.Equal(t, []string{"1:C", "2:A", "3:B", "4:D"}, got)
}
