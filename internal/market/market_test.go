package market

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"github.com/zerodha/gokiteconnect/v4/models"
	"golang.org/x/time/rate"

	"market-advisor/internal/api"
	"market-advisor/internal/types"
)

var (
	fixedNow  = time.Date(2025, 10, 17, 16, 0, 0, 0, IST)
	fastRetry = &api.RetryConfig{MaxAttempts: 1}
)

const chartBody = `{"chart":{"result":[{
  "meta":{"symbol":"TCS.NS","currency":"INR"},
  "timestamp":[1760500800,1760587200,1760673600,1760673600],
  "indicators":{"quote":[{
    "open":[3010.5,null,3050,3051],
    "high":[3040,null,3080,3082],
    "low":[3000,null,3040,3041],
    "close":[3030,null,3070,3075.5],
    "volume":[1200000,null,900000,950000]}]}}],"error":null}}`

const summaryBody = `{"quoteSummary":{"result":[{
  "price":{"longName":"Tata Consultancy Services Limited"},
  "assetProfile":{"sector":"Technology"},
  "summaryDetail":{"trailingPE":{"raw":23.4},"dividendYield":{"raw":0.018},"marketCap":{"raw":11200000000000}},
  "defaultKeyStatistics":{"priceToBook":{"raw":12.1}},
  "financialData":{"debtToEquity":{"raw":9.5}}}],"error":null}}`

func yahooServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch {
		case r.URL.Path == "/v8/finance/chart/TCS.NS":
			assert.Equal(t, "1d", r.URL.Query().Get("interval"))
			w.Write([]byte(chartBody))
		case strings.HasPrefix(r.URL.Path, "/v10/finance/quoteSummary/TCS.NS"):
			w.Write([]byte(summaryBody))
		case strings.HasPrefix(r.URL.Path, "/v8/finance/chart/"):
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestYahoo(t *testing.T, srv *httptest.Server, cache *Cache) *Yahoo {
	y := NewYahoo(api.NewClient(api.WithBaseURL(srv.URL)), fastRetry, cache)
	y.now = func() time.Time { return fixedNow }
	return y
}

func TestYahooPriceHistory(t *testing.T) {
	var hits atomic.Int32
	y := newTestYahoo(t, yahooServer(t, &hits), nil)

	ps, err := y.PriceHistory(context.Background(), "TCS.NS", "1y")
	require.NoError(t, err)
	require.NoError(t, ps.Validate())

	// null bar dropped, repeated live bar replaces the earlier one
	require.Equal(t, 2, ps.Len())
	assert.Equal(t, 3030.0, ps.Candles[0].Close)
	assert.Equal(t, 3075.5, ps.Candles[1].Close)
	assert.Equal(t, 950000.0, ps.Candles[1].Vol)
}

func TestYahooUnknownSymbol(t *testing.T) {
	var hits atomic.Int32
	y := newTestYahoo(t, yahooServer(t, &hits), nil)

	_, err := y.PriceHistory(context.Background(), "NOPE.NS", "1y")
	require.Error(t, err)

	_, err = y.PriceHistory(context.Background(), "TCS.NS", "7y")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestYahooFundamentals(t *testing.T) {
	var hits atomic.Int32
	y := newTestYahoo(t, yahooServer(t, &hits), nil)

	f, err := y.Fundamentals(context.Background(), "TCS.NS")
	require.NoError(t, err)
	assert.Equal(t, "Tata Consultancy Services Limited", f.Name)
	assert.Equal(t, "Technology", f.Sector)
	assert.Equal(t, 23.4, f.PE)
	assert.InDelta(t, 0.095, f.DebtToEquity, 1e-12)
	assert.Equal(t, 1.12e13, f.MarketCap)
	assert.False(t, f.Empty())
}

func TestYahooUsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := yahooServer(t, &hits)
	cache, err := NewCache(t.TempDir(), time.Hour)
	require.NoError(t, err)
	y := newTestYahoo(t, srv, cache)

	first, err := y.PriceHistory(context.Background(), "TCS.NS", "1y")
	require.NoError(t, err)
	second, err := y.PriceHistory(context.Background(), "TCS.NS", "1y")
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
	require.Equal(t, first.Len(), second.Len())
	assert.True(t, first.Candles[1].Ts.Equal(second.Candles[1].Ts))
}

func TestMFAPIHistoryAndFundamentals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mf/120503", r.URL.Path)
		w.Write([]byte(`{"meta":{"fund_house":"Axis Mutual Fund","scheme_category":"Equity Scheme - Large Cap Fund",
		  "scheme_code":120503,"scheme_name":"Axis Bluechip Fund - Direct Plan - Growth"},
		  "data":[{"date":"17-10-2025","nav":"61.23450"},{"date":"16-10-2025","nav":"60.90000"},
		          {"date":"15-10-2025","nav":"60.10000"},{"date":"02-01-2020","nav":"30.00000"}],
		  "status":"SUCCESS"}`))
	}))
	defer srv.Close()

	m := NewMFAPI(api.NewClient(api.WithBaseURL(srv.URL)), fastRetry, nil)
	m.now = func() time.Time { return fixedNow }

	ps, err := m.PriceHistory(context.Background(), "120503", "1y")
	require.NoError(t, err)
	require.Equal(t, 3, ps.Len(), "NAVs before the period are dropped")
	assert.Equal(t, 60.1, ps.Candles[0].Close)
	last, ok := ps.Last()
	require.True(t, ok)
	assert.Equal(t, 61.2345, last.Close)
	assert.Zero(t, last.Vol)
	require.NoError(t, ps.Validate())

	f, err := m.Fundamentals(context.Background(), "120503")
	require.NoError(t, err)
	assert.Equal(t, "Large Cap Fund", f.Category)
	assert.Equal(t, "Axis Bluechip Fund - Direct Plan - Growth", f.Name)
}

type fakeKite struct {
	ltpCalls int
	bars     []kiteconnect.HistoricalData
}

func (f *fakeKite) GetLTP(instruments ...string) (kiteconnect.QuoteLTP, error) {
	f.ltpCalls++
	out := kiteconnect.QuoteLTP{}
	for _, in := range instruments {
		if in == "NSE:INFY" {
			err := json.Unmarshal([]byte(`{"NSE:INFY":{"instrument_token":408065,"last_price":1450}}`), &out)
			return out, err
		}
	}
	return out, nil
}

func (f *fakeKite) GetHistoricalData(token int, interval string, from, to time.Time, continuous, oi bool) ([]kiteconnect.HistoricalData, error) {
	if token != 408065 || interval != "day" {
		return nil, errors.New("unexpected request")
	}
	return f.bars, nil
}

func TestKitePriceHistory(t *testing.T) {
	day := func(d int) models.Time { return models.Time{Time: time.Date(2025, 10, d, 0, 0, 0, 0, IST)} }
	fk := &fakeKite{bars: []kiteconnect.HistoricalData{
		{Date: day(16), Open: 1440, High: 1460, Low: 1435, Close: 1455, Volume: 5_000_000},
		{Date: day(15), Open: 1420, High: 1445, Low: 1418, Close: 1441, Volume: 4_200_000},
	}}
	k := newKite(fk, "NSE")
	k.limiter = rate.NewLimiter(rate.Inf, 1)
	k.now = func() time.Time { return fixedNow }

	ps, err := k.PriceHistory(context.Background(), "INFY.NS", "6mo")
	require.NoError(t, err)
	require.Equal(t, 2, ps.Len())
	assert.Equal(t, 1441.0, ps.Candles[0].Close)

	_, err = k.PriceHistory(context.Background(), "INFY.NS", "6mo")
	require.NoError(t, err)
	assert.Equal(t, 1, fk.ltpCalls, "instrument token is cached")

	_, err = k.PriceHistory(context.Background(), "UNKNOWN.NS", "6mo")
	assert.ErrorIs(t, err, ErrSymbolNotFound)
}

func TestPeriodStart(t *testing.T) {
	start, err := PeriodStart("3mo", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, time.July, start.Month())

	_, err = PeriodStart("10d", fixedNow)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	assert.Equal(t, "RELIANCE", ExchangeSymbol("RELIANCE.NS"))
	assert.Equal(t, "120503", ExchangeSymbol("120503"))
}

func TestCachePrune(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Nanosecond)
	require.NoError(t, err)
	require.NoError(t, c.Set("k", []byte(`1`)))
	time.Sleep(time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
	n, err := c.Prune()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	disabled, err := NewCache("", time.Hour)
	require.NoError(t, err)
	assert.Nil(t, disabled)
	_, ok = disabled.Get("k")
	assert.False(t, ok)
}
