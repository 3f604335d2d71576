package recommend

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"market-advisor/internal/indicators"
	"market-advisor/internal/types"
)

// Sub-score keys for the fundamental and sentiment categories.
const (
	KeyValuation = "valuation"
	KeyBook      = "price_to_book"
	KeyDividend  = "dividend_yield"
	KeyLeverage  = "leverage"
	KeySize      = "size"
	KeyExpense   = "expense_ratio"
	KeySentiment = "news_sentiment"
)

type Weights struct {
	Technical   float64 `yaml:"technical" validate:"gte=0,lte=1"`
	Fundamental float64 `yaml:"fundamental" validate:"gte=0,lte=1"`
	Sentiment   float64 `yaml:"sentiment" validate:"gte=0,lte=1"`
}

func (w Weights) Of(c types.Category) float64 {
	switch c {
	case types.CategoryTechnical:
		return w.Technical
	case types.CategoryFundamental:
		return w.Fundamental
	case types.CategorySentiment:
		return w.Sentiment
	}
	return 0
}

func (w Weights) Sum() float64 { return w.Technical + w.Fundamental + w.Sentiment }

// Band maps every composite score >= Min (and below the previous band's
// Min) to Action.
type Band struct {
	Min    float64      `yaml:"min" validate:"gte=0,lte=100"`
	Action types.Action `yaml:"action" validate:"required"`
}

type Config struct {
	Profiles           map[types.AssetClass]Weights
	TechnicalWeights   map[string]float64
	FundamentalWeights map[string]float64
	// Bands are ordered by descending Min; the last Min must be 0.
	Bands      []Band
	TopFactors int
	// TargetSpan is the fraction of price a composite of 100 (or 0) moves
	// the target price away from the last close.
	TargetSpan map[types.AssetClass]float64
	Horizons   map[types.AssetClass]string
}

func DefaultBands() []Band {
	return []Band{
		{Min: 80, Action: types.ActionStrongBuy},
		{Min: 65, Action: types.ActionBuy},
		{Min: 45, Action: types.ActionHold},
		{Min: 30, Action: types.ActionSell},
		{Min: 0, Action: types.ActionStrongSell},
	}
}

func DefaultConfig() Config {
	return Config{
		Profiles: map[types.AssetClass]Weights{
			types.AssetEquity: {Technical: 0.40, Fundamental: 0.35, Sentiment: 0.25},
			types.AssetFund:   {Technical: 0.50, Fundamental: 0.00, Sentiment: 0.50},
		},
		TechnicalWeights: map[string]float64{
			indicators.KeyTrend:       0.35,
			indicators.KeyMomentum:    0.30,
			indicators.KeyVolatility:  0.15,
			indicators.KeyVolumeTrend: 0.20,
		},
		FundamentalWeights: map[string]float64{
			KeyValuation: 0.35,
			KeyBook:      0.20,
			KeyDividend:  0.15,
			KeyLeverage:  0.20,
			KeySize:      0.10,
			KeyExpense:   0.20,
		},
		Bands:      DefaultBands(),
		TopFactors: 5,
		TargetSpan: map[types.AssetClass]float64{
			types.AssetEquity: 0.40,
			types.AssetFund:   0.20,
		},
		Horizons: map[types.AssetClass]string{
			types.AssetEquity: "medium term",
			types.AssetFund:   "long term",
		},
	}
}

func (c Config) Validate() error {
	for _, class := range []types.AssetClass{types.AssetEquity, types.AssetFund} {
		w, ok := c.Profiles[class]
		if !ok {
			return fmt.Errorf("missing weight profile for %s", class)
		}
		for _, cat := range types.Categories {
			if v := w.Of(cat); v < 0 || v > 1 {
				return fmt.Errorf("%s weight for %s must be within [0,1], got %.3f", class, cat, v)
			}
		}
		if math.Abs(w.Sum()-1) > 1e-6 {
			return fmt.Errorf("%s weights must sum to 1, got %.4f", class, w.Sum())
		}
	}
	if err := checkInternal("technical", c.TechnicalWeights); err != nil {
		return err
	}
	if err := checkInternal("fundamental", c.FundamentalWeights); err != nil {
		return err
	}
	if err := ValidateBands(c.Bands); err != nil {
		return err
	}
	if c.TopFactors < 1 {
		return fmt.Errorf("top_factors must be at least 1, got %d", c.TopFactors)
	}
	for class, span := range c.TargetSpan {
		if span < 0 || span >= 2 {
			return fmt.Errorf("target span for %s must be within [0,2), got %.2f", class, span)
		}
	}
	return nil
}

func checkInternal(name string, w map[string]float64) error {
	if len(w) == 0 {
		return fmt.Errorf("%s sub-score weights are empty", name)
	}
	sum := 0.0
	for k, v := range w {
		if v < 0 {
			return fmt.Errorf("%s sub-score weight %q is negative", name, k)
		}
		sum += v
	}
	if sum <= 0 {
		return fmt.Errorf("%s sub-score weights sum to zero", name)
	}
	return nil
}

// ValidateBands checks that bands are contiguous and exhaustive over
// [0, 100]: strictly descending minimums ending at exactly 0.
func ValidateBands(bands []Band) error {
	if len(bands) == 0 {
		return errors.New("score bands are empty")
	}
	for i, b := range bands {
		if b.Min < 0 || b.Min > 100 {
			return fmt.Errorf("band %q minimum %.2f outside [0,100]", b.Action, b.Min)
		}
		if b.Action == "" {
			return fmt.Errorf("band %d has no action", i)
		}
		if i > 0 && b.Min >= bands[i-1].Min {
			return fmt.Errorf("band %q minimum %.2f must be below %q minimum %.2f",
				b.Action, b.Min, bands[i-1].Action, bands[i-1].Min)
		}
	}
	if last := bands[len(bands)-1]; last.Min != 0 {
		return fmt.Errorf("lowest band %q must start at 0, got %.2f", last.Action, last.Min)
	}
	return nil
}

// ActionFor returns the band containing score.
func (c Config) ActionFor(score float64) types.Action {
	for _, b := range c.Bands {
		if score >= b.Min {
			return b.Action
		}
	}
	return c.Bands[len(c.Bands)-1].Action
}

func (c Config) clone() Config {
	out := c
	out.Profiles = maps.Clone(c.Profiles)
	out.TechnicalWeights = maps.Clone(c.TechnicalWeights)
	out.FundamentalWeights = maps.Clone(c.FundamentalWeights)
	out.Bands = slices.Clone(c.Bands)
	out.TargetSpan = maps.Clone(c.TargetSpan)
	out.Horizons = maps.Clone(c.Horizons)
	return out
}
