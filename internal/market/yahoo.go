package market

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"time"

	"market-advisor/internal/api"
	"market-advisor/internal/interfaces"
	"market-advisor/internal/types"
)

const YahooBaseURL = "https://query1.finance.yahoo.com"

// Yahoo reads daily bars from the chart API and fundamentals from
// quoteSummary. It serves both NSE/BSE equities and Yahoo-listed funds.
type Yahoo struct {
	client *api.Client
	retry  *api.RetryConfig
	cache  *Cache
	now    func() time.Time
}

var _ interfaces.MarketData = (*Yahoo)(nil)

// NewYahoo expects client to carry the Yahoo base URL and headers.
func NewYahoo(client *api.Client, retry *api.RetryConfig, cache *Cache) *Yahoo {
	return &Yahoo{client: client, retry: retry, cache: cache, now: time.Now}
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) PriceHistory(ctx context.Context, symbol, period string) (types.PriceSeries, error) {
	now := y.now()
	start, err := PeriodStart(period, now)
	if err != nil {
		return types.PriceSeries{}, err
	}
	key := cacheKey("yahoo-chart", symbol, period, dayKey(now))
	return cached(ctx, y.cache, key, func(ctx context.Context) (types.PriceSeries, error) {
		q := url.Values{
			"period1":  {strconv.FormatInt(start.Unix(), 10)},
			"period2":  {strconv.FormatInt(now.Unix(), 10)},
			"interval": {"1d"},
			"events":   {"history"},
		}
		var chart yahooChart
		if err := y.client.GetJSON(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), q, y.retry, &chart); err != nil {
			return types.PriceSeries{}, fmt.Errorf("yahoo chart %s: %w", symbol, err)
		}
		return chart.series(symbol)
	})
}

func (c *yahooChart) series(symbol string) (types.PriceSeries, error) {
	if e := c.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return types.PriceSeries{}, fmt.Errorf("yahoo %s: %w", symbol, ErrSymbolNotFound)
		}
		return types.PriceSeries{}, fmt.Errorf("yahoo api error: %s", e.Description)
	}
	if len(c.Chart.Result) == 0 || len(c.Chart.Result[0].Indicators.Quote) == 0 {
		return types.PriceSeries{}, fmt.Errorf("yahoo %s: %w", symbol, ErrSymbolNotFound)
	}

	res := c.Chart.Result[0]
	q := res.Indicators.Quote[0]
	at := func(vals []*float64, i int) (float64, bool) {
		if i >= len(vals) || vals[i] == nil || math.IsNaN(*vals[i]) {
			return 0, false
		}
		return *vals[i], true
	}

	candles := make([]types.Candle, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		cl, ok := at(q.Close, i)
		if !ok || cl <= 0 {
			continue // holiday or suspended session
		}
		op, ok := at(q.Open, i)
		if !ok {
			op = cl
		}
		hi, ok := at(q.High, i)
		if !ok {
			hi = max(op, cl)
		}
		lo, ok := at(q.Low, i)
		if !ok {
			lo = min(op, cl)
		}
		vol, _ := at(q.Volume, i)
		candles = append(candles, types.Candle{
			Ts:    time.Unix(ts, 0).In(IST),
			Open:  op,
			High:  hi,
			Low:   lo,
			Close: cl,
			Vol:   vol,
		})
	}

	return types.PriceSeries{Symbol: symbol, Candles: dedupeSorted(candles)}, nil
}

// dedupeSorted orders candles by time and keeps the last bar for any
// repeated timestamp (Yahoo repeats the live bar).
func dedupeSorted(candles []types.Candle) []types.Candle {
	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Ts.Before(candles[j].Ts) })
	out := candles[:0]
	for _, c := range candles {
		if n := len(out); n > 0 && !c.Ts.After(out[n-1].Ts) {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}
	return out
}

type rawValue struct {
	Raw float64 `json:"raw"`
}

type yahooSummary struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				LongName  string `json:"longName"`
				ShortName string `json:"shortName"`
			} `json:"price"`
			AssetProfile struct {
				Sector string `json:"sector"`
			} `json:"assetProfile"`
			SummaryDetail struct {
				TrailingPE    rawValue `json:"trailingPE"`
				DividendYield rawValue `json:"dividendYield"`
				MarketCap     rawValue `json:"marketCap"`
				TotalAssets   rawValue `json:"totalAssets"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				PriceToBook rawValue `json:"priceToBook"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				DebtToEquity rawValue `json:"debtToEquity"`
			} `json:"financialData"`
			FundProfile struct {
				CategoryName           string `json:"categoryName"`
				FeesExpensesInvestment struct {
					AnnualReportExpenseRatio rawValue `json:"annualReportExpenseRatio"`
				} `json:"feesExpensesInvestment"`
			} `json:"fundProfile"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}

const summaryModules = "price,assetProfile,summaryDetail,defaultKeyStatistics,financialData,fundProfile"

func (y *Yahoo) Fundamentals(ctx context.Context, symbol string) (*types.FundamentalSnapshot, error) {
	now := y.now()
	key := cacheKey("yahoo-summary", symbol, dayKey(now))
	snap, err := cached(ctx, y.cache, key, func(ctx context.Context) (*types.FundamentalSnapshot, error) {
		var sum yahooSummary
		q := url.Values{"modules": {summaryModules}}
		if err := y.client.GetJSON(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), q, y.retry, &sum); err != nil {
			return nil, fmt.Errorf("yahoo quoteSummary %s: %w", symbol, err)
		}
		return sum.snapshot(symbol, now)
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *yahooSummary) snapshot(symbol string, asOf time.Time) (*types.FundamentalSnapshot, error) {
	if e := s.QuoteSummary.Error; e != nil {
		if e.Code == "Not Found" {
			return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrSymbolNotFound)
		}
		return nil, fmt.Errorf("yahoo api error: %s", e.Description)
	}
	if len(s.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrSymbolNotFound)
	}
	r := s.QuoteSummary.Result[0]
	name := r.Price.LongName
	if name == "" {
		name = r.Price.ShortName
	}
	return &types.FundamentalSnapshot{
		AsOf:          asOf,
		Name:          name,
		Sector:        r.AssetProfile.Sector,
		Category:      r.FundProfile.CategoryName,
		PE:            r.SummaryDetail.TrailingPE.Raw,
		PB:            r.DefaultKeyStatistics.PriceToBook.Raw,
		DividendYield: r.SummaryDetail.DividendYield.Raw,
		MarketCap:     r.SummaryDetail.MarketCap.Raw,
		// Yahoo reports debt/equity as a percentage.
		DebtToEquity: r.FinancialData.DebtToEquity.Raw / 100,
		ExpenseRatio: r.FundProfile.FeesExpensesInvestment.AnnualReportExpenseRatio.Raw,
		TotalAssets:  r.SummaryDetail.TotalAssets.Raw,
	}, nil
}

// IndexQuote is the latest close of a market index and its daily change.
type IndexQuote struct {
	Symbol    string    `json:"symbol"`
	Close     float64   `json:"close"`
	ChangePct float64   `json:"change_pct"`
	AsOf      time.Time `json:"as_of"`
}

// Overview returns the last two sessions' move for each index. Indices
// that fail are skipped.
func (y *Yahoo) Overview(ctx context.Context, indices []string) ([]IndexQuote, error) {
	var (
		out     []IndexQuote
		lastErr error
	)
	for _, idx := range indices {
		ps, err := y.PriceHistory(ctx, idx, "1mo")
		if err != nil {
			lastErr = err
			continue
		}
		n := ps.Len()
		if n < 2 {
			continue
		}
		prev, last := ps.Candles[n-2], ps.Candles[n-1]
		out = append(out, IndexQuote{
			Symbol:    idx,
			Close:     last.Close,
			ChangePct: (last.Close/prev.Close - 1) * 100,
			AsOf:      last.Ts,
		})
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}
