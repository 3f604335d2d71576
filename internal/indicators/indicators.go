// Package indicators turns a validated price series into normalised
// technical sub-scores. Each sub-score checks its own window and is marked
// unavailable rather than computed from a partial window.
package indicators

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"market-advisor/internal/ta"
	"market-advisor/internal/types"
)

const (
	KeyTrend       = "trend"
	KeyMomentum    = "momentum"
	KeyVolatility  = "volatility"
	KeyVolumeTrend = "volume_trend"
)

type Config struct {
	ShortWindow      int     `yaml:"short_window" validate:"gt=0"`
	LongWindow       int     `yaml:"long_window" validate:"gtfield=ShortWindow"`
	RSIWindow        int     `yaml:"rsi_window" validate:"gt=1"`
	VolatilityWindow int     `yaml:"volatility_window" validate:"gt=1"`
	VolumeRecent     int     `yaml:"volume_recent" validate:"gt=0"`
	VolumeBaseline   int     `yaml:"volume_baseline" validate:"gt=0"`
	MinSessions      int     `yaml:"min_sessions" validate:"gt=0"`
	PeriodsPerYear   float64 `yaml:"periods_per_year" validate:"gt=0"`
	RiskFreeRate     float64 `yaml:"risk_free_rate" validate:"gte=0,lt=1"`
}

func DefaultConfig() Config {
	return Config{
		ShortWindow:      20,
		LongWindow:       50,
		RSIWindow:        14,
		VolatilityWindow: 20,
		VolumeRecent:     5,
		VolumeBaseline:   20,
		MinSessions:      14,
		PeriodsPerYear:   252,
		RiskFreeRate:     0.02,
	}
}

type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Compute validates the series and derives every sub-score. Only a
// malformed series is an error; short history yields unavailable
// sub-scores.
func (c *Calculator) Compute(ps types.PriceSeries) (types.IndicatorSet, error) {
	if err := ps.Validate(); err != nil {
		return types.IndicatorSet{}, err
	}

	set := types.IndicatorSet{Sessions: ps.Len()}
	if last, ok := ps.Last(); ok {
		set.LastClose = last.Close
		set.AsOf = last.Ts
	}

	if set.Sessions < c.cfg.MinSessions {
		missing := Missing(insufficient(c.cfg.MinSessions, set.Sessions))
		missing.Sessions, missing.LastClose, missing.AsOf = set.Sessions, set.LastClose, set.AsOf
		return missing, nil
	}

	closes := ps.Closes()
	set.Trend = c.trend(closes, &set)
	set.Momentum = c.momentum(closes, &set)
	set.Volatility = c.volatility(closes, &set)
	set.VolumeTrend = c.volumeTrend(closes, ps.Volumes(), &set)
	c.extras(ps, closes, &set)
	set.Perf = c.performance(closes)
	return set, nil
}

// Missing is an indicator set with every sub-score unavailable for reason,
// used when no price history could be obtained.
func Missing(reason string) types.IndicatorSet {
	return types.IndicatorSet{
		Trend:       types.Unavailable(KeyTrend, reason),
		Momentum:    types.Unavailable(KeyMomentum, reason),
		Volatility:  types.Unavailable(KeyVolatility, reason),
		VolumeTrend: types.Unavailable(KeyVolumeTrend, reason),
	}
}

func insufficient(need, have int) string {
	return fmt.Sprintf("insufficient data: need %d sessions, have %d", need, have)
}

// trend: close above both averages is +1, above the short only +0.5,
// below both -1, otherwise -0.5. Without the long average only +/-0.5
// against the short one is possible.
func (c *Calculator) trend(closes []float64, set *types.IndicatorSet) types.SubScore {
	if len(closes) < c.cfg.ShortWindow {
		return types.Unavailable(KeyTrend, insufficient(c.cfg.ShortWindow, len(closes)))
	}
	last := closes[len(closes)-1]
	short := ta.LastMovingAverage(closes, c.cfg.ShortWindow)
	set.SMAShort = short

	if len(closes) < c.cfg.LongWindow {
		score := -0.5
		if last > short {
			score = 0.5
		}
		return types.SubScore{Key: KeyTrend, Score: score, Raw: last/short - 1, Available: true}
	}

	long := ta.LastMovingAverage(closes, c.cfg.LongWindow)
	set.SMALong = long
	var score float64
	switch {
	case last > short && last > long:
		score = 1
	case last > short:
		score = 0.5
	case last < short && last < long:
		score = -1
	default:
		score = -0.5
	}
	return types.SubScore{Key: KeyTrend, Score: score, Raw: last/short - 1, Available: true}
}

func (c *Calculator) momentum(closes []float64, set *types.IndicatorSet) types.SubScore {
	if len(closes) < c.cfg.RSIWindow+1 {
		return types.Unavailable(KeyMomentum, insufficient(c.cfg.RSIWindow+1, len(closes)))
	}
	rsi := ta.RSI(closes, c.cfg.RSIWindow)
	set.RSI = rsi
	return types.SubScore{Key: KeyMomentum, Score: NormalizeRSI(rsi), Raw: rsi, Available: true}
}

// NormalizeRSI maps RSI onto [-1, 1]: oversold readings below 30 are
// bullish, overbought readings above 70 bearish, linear between. The curve
// is continuous with +/-0.5 at the band edges and +/-1 at 0 and 100.
func NormalizeRSI(rsi float64) float64 {
	switch {
	case rsi < 30:
		return clamp(0.5+(30-rsi)/60, -1, 1)
	case rsi > 70:
		return clamp(-0.5-(rsi-70)/60, -1, 1)
	default:
		return (50 - rsi) / 40
	}
}

func (c *Calculator) volatility(closes []float64, set *types.IndicatorSet) types.SubScore {
	if len(closes) < c.cfg.VolatilityWindow+1 {
		return types.Unavailable(KeyVolatility, insufficient(c.cfg.VolatilityWindow+1, len(closes)))
	}
	vol := ta.Volatility(closes, c.cfg.VolatilityWindow, c.cfg.PeriodsPerYear)
	set.AnnualizedVolatility = vol
	return types.SubScore{Key: KeyVolatility, Score: NormalizeVolatility(vol), Raw: vol, Available: true}
}

// NormalizeVolatility scores annualised volatility: 15% is +1, 30% is 0
// and 45% or more is -1.
func NormalizeVolatility(vol float64) float64 {
	return clamp((0.30-vol)/0.15, -1, 1)
}

// volumeTrend confirms the recent price direction: rising volume on a
// rising price is bullish, rising volume on a falling price bearish.
func (c *Calculator) volumeTrend(closes, vols []float64, set *types.IndicatorSet) types.SubScore {
	need := c.cfg.VolumeRecent + c.cfg.VolumeBaseline
	if len(vols) < need {
		return types.Unavailable(KeyVolumeTrend, insufficient(need, len(vols)))
	}
	pct := ta.VolumeTrend(vols, c.cfg.VolumeRecent, c.cfg.VolumeBaseline)
	if math.IsNaN(pct) {
		return types.Unavailable(KeyVolumeTrend, "no traded volume reported")
	}
	set.VolumeChangePct = pct

	move := ta.PeriodReturn(closes, c.cfg.VolumeRecent)
	sign := 0.0
	switch {
	case move > 0:
		sign = 1
	case move < 0:
		sign = -1
	}
	return types.SubScore{Key: KeyVolumeTrend, Score: clamp(pct/40, -1, 1) * sign, Raw: pct, Available: true}
}

// extras are display-only and never feed the composite.
func (c *Calculator) extras(ps types.PriceSeries, closes []float64, set *types.IndicatorSet) {
	if len(closes) >= 35 {
		line, signal, hist := talib.Macd(closes, 12, 26, 9)
		n := len(line) - 1
		set.MACD = &types.MACD{Line: line[n], Signal: signal[n], Histogram: hist[n]}
	}
	if len(closes) >= 20 {
		upper, middle, lower := talib.BBands(closes, 20, 2.0, 2.0, talib.SMA)
		n := len(middle) - 1
		set.Bollinger = &types.Bollinger{Middle: middle[n], Upper: upper[n], Lower: lower[n]}
	}
	if len(closes) >= 15 {
		atr := talib.Atr(ps.Highs(), ps.Lows(), closes, 14)
		set.ATR = atr[len(atr)-1]
	}
}

func (c *Calculator) performance(closes []float64) *types.FundPerformance {
	if len(closes) < 2 {
		return nil
	}
	p := &types.FundPerformance{SessionsInput: len(closes)}
	returns := ta.Returns(closes)

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	p.AnnualReturn = mean * c.cfg.PeriodsPerYear
	p.Volatility = ta.StdDev(returns, len(returns)) * math.Sqrt(c.cfg.PeriodsPerYear)
	if p.Volatility > 0 {
		p.SharpeRatio = (p.AnnualReturn - c.cfg.RiskFreeRate) / p.Volatility
	}
	p.MaxDrawdown = ta.MaxDrawdown(closes)

	if r := ta.PeriodReturn(closes, 21); !math.IsNaN(r) {
		p.Return1M, p.Has1M = r, true
	}
	if r := ta.PeriodReturn(closes, 63); !math.IsNaN(r) {
		p.Return3M, p.Has3M = r, true
	}
	if r := ta.PeriodReturn(closes, 252); !math.IsNaN(r) {
		p.Return1Y, p.Has1Y = r, true
	}
	return p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
