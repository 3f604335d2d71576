package types

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type AssetClass string

const (
	AssetEquity AssetClass = "equity"
	AssetFund   AssetClass = "fund"
)

// ParseAssetClass accepts the CLI and config spellings of an asset class.
func ParseAssetClass(s string) (AssetClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equity", "stock", "stocks":
		return AssetEquity, nil
	case "fund", "funds", "mf", "mutual_fund":
		return AssetFund, nil
	}
	return "", fmt.Errorf("%w: unknown asset class %q: must be 'equity' or 'fund'", ErrInvalidInput, s)
}

type Candle struct {
	Ts                          time.Time
	Open, High, Low, Close, Vol float64
}

// PriceSeries is one candle per session, ascending by Ts.
type PriceSeries struct {
	Symbol  string
	Candles []Candle
}

func (ps PriceSeries) Len() int { return len(ps.Candles) }

func (ps PriceSeries) Closes() []float64 {
	out := make([]float64, len(ps.Candles))
	for i, c := range ps.Candles {
		out[i] = c.Close
	}
	return out
}

func (ps PriceSeries) Highs() []float64 {
	out := make([]float64, len(ps.Candles))
	for i, c := range ps.Candles {
		out[i] = c.High
	}
	return out
}

func (ps PriceSeries) Lows() []float64 {
	out := make([]float64, len(ps.Candles))
	for i, c := range ps.Candles {
		out[i] = c.Low
	}
	return out
}

func (ps PriceSeries) Volumes() []float64 {
	out := make([]float64, len(ps.Candles))
	for i, c := range ps.Candles {
		out[i] = c.Vol
	}
	return out
}

// Last returns the most recent candle. ok is false for an empty series.
func (ps PriceSeries) Last() (Candle, bool) {
	if len(ps.Candles) == 0 {
		return Candle{}, false
	}
	return ps.Candles[len(ps.Candles)-1], true
}

// Validate rejects series that no indicator may be computed from: timestamps
// that do not strictly increase, negative or non-finite values, and
// non-positive closes.
func (ps PriceSeries) Validate() error {
	for i, c := range ps.Candles {
		if c.Ts.IsZero() {
			return &InvalidInputError{Symbol: ps.Symbol, Index: i, Reason: "missing timestamp"}
		}
		if i > 0 && !c.Ts.After(ps.Candles[i-1].Ts) {
			return &InvalidInputError{Symbol: ps.Symbol, Index: i,
				Reason: fmt.Sprintf("non-monotonic timestamp %s after %s",
					c.Ts.Format(time.DateOnly), ps.Candles[i-1].Ts.Format(time.DateOnly))}
		}
		for _, f := range []struct {
			name string
			v    float64
		}{{"open", c.Open}, {"high", c.High}, {"low", c.Low}, {"close", c.Close}, {"volume", c.Vol}} {
			if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
				return &InvalidInputError{Symbol: ps.Symbol, Index: i, Reason: f.name + " is not finite"}
			}
			if f.v < 0 {
				return &InvalidInputError{Symbol: ps.Symbol, Index: i,
					Reason: fmt.Sprintf("negative %s %.4f", f.name, f.v)}
			}
		}
		if c.Close == 0 {
			return &InvalidInputError{Symbol: ps.Symbol, Index: i, Reason: "zero close"}
		}
	}
	return nil
}

// FundamentalSnapshot holds point-in-time valuation metrics. A zero metric
// means the provider did not report it. DividendYield, DebtToEquity and
// ExpenseRatio are ratios (0.02 means 2%).
type FundamentalSnapshot struct {
	AsOf          time.Time `json:"as_of"`
	Name          string    `json:"name,omitempty"`
	Sector        string    `json:"sector,omitempty"`
	Category      string    `json:"category,omitempty"`
	PE            float64   `json:"pe,omitempty"`
	PB            float64   `json:"pb,omitempty"`
	DividendYield float64   `json:"dividend_yield,omitempty"`
	MarketCap     float64   `json:"market_cap,omitempty"`
	DebtToEquity  float64   `json:"debt_to_equity,omitempty"`
	ExpenseRatio  float64   `json:"expense_ratio,omitempty"`
	TotalAssets   float64   `json:"total_assets,omitempty"`
}

// Empty reports whether no metric at all was populated.
func (f FundamentalSnapshot) Empty() bool {
	return f.PE == 0 && f.PB == 0 && f.DividendYield == 0 && f.MarketCap == 0 &&
		f.DebtToEquity == 0 && f.ExpenseRatio == 0 && f.TotalAssets == 0
}

type NewsItem struct {
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary,omitempty"`
	Source      string    `json:"source"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Text is the headline and summary joined, as scored by the lexicon.
func (n NewsItem) Text() string {
	if n.Summary == "" {
		return n.Headline
	}
	return n.Headline + ". " + n.Summary
}
