package recommend

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"market-advisor/internal/indicators"
	"market-advisor/internal/types"
)

// Market capitalisation thresholds in rupees.
const (
	largeCap = 2e12 // 2 lakh crore
	smallCap = 5e11 // 50,000 crore
)

func (e *Engine) technical(set types.IndicatorSet) categoryEval {
	c := categoryEval{cat: types.CategoryTechnical}
	var reasons []string
	for _, s := range set.SubScores() {
		if !s.Available {
			reasons = append(reasons, s.Reason)
			continue
		}
		w := e.cfg.TechnicalWeights[s.Key]
		if w == 0 {
			continue
		}
		c.parts = append(c.parts, part{
			key:    s.Key,
			name:   technicalName(s.Key),
			detail: technicalDetail(s, set),
			score:  s.Score,
			share:  w,
		})
	}
	c.finish(reasons)
	return c
}

func technicalName(key string) string {
	switch key {
	case indicators.KeyTrend:
		return "Price trend"
	case indicators.KeyMomentum:
		return "RSI momentum"
	case indicators.KeyVolatility:
		return "Volatility"
	case indicators.KeyVolumeTrend:
		return "Volume trend"
	}
	return key
}

func technicalDetail(s types.SubScore, set types.IndicatorSet) string {
	switch s.Key {
	case indicators.KeyTrend:
		if set.SMALong == 0 {
			return fmt.Sprintf("close %.2f vs short average %.2f", set.LastClose, set.SMAShort)
		}
		return fmt.Sprintf("close %.2f vs averages %.2f / %.2f", set.LastClose, set.SMAShort, set.SMALong)
	case indicators.KeyMomentum:
		state := "neutral"
		if s.Raw < 30 {
			state = "oversold"
		} else if s.Raw > 70 {
			state = "overbought"
		}
		return fmt.Sprintf("RSI %.1f (%s)", s.Raw, state)
	case indicators.KeyVolatility:
		return fmt.Sprintf("annualised volatility %.1f%%", s.Raw*100)
	case indicators.KeyVolumeTrend:
		return fmt.Sprintf("volume %+.1f%% vs baseline", s.Raw)
	}
	return ""
}

func (e *Engine) fundamental(f *types.FundamentalSnapshot) categoryEval {
	c := categoryEval{cat: types.CategoryFundamental}
	if f == nil {
		c.finish([]string{"no fundamentals reported"})
		return c
	}
	if f.Empty() {
		c.finish([]string{"no fundamental metric reported"})
		return c
	}

	add := func(key, name, detail string, score float64) {
		w := e.cfg.FundamentalWeights[key]
		if w == 0 {
			return
		}
		c.parts = append(c.parts, part{key: key, name: name, detail: detail, score: clamp(score, -1, 1), share: w})
	}

	switch {
	case f.PE < 0:
		add(KeyValuation, "Valuation (P/E)", fmt.Sprintf("P/E %.1f, loss-making", f.PE), -1)
	case f.PE > 0:
		add(KeyValuation, "Valuation (P/E)", fmt.Sprintf("P/E %.1f", f.PE), ScorePE(f.PE))
	}
	if f.PB > 0 {
		add(KeyBook, "Price to book", fmt.Sprintf("P/B %.2f", f.PB),
			interp(f.PB, []float64{1, 3, 8}, []float64{1, 0, -1}))
	}
	if f.DividendYield > 0 {
		add(KeyDividend, "Dividend yield", fmt.Sprintf("yield %.2f%%", f.DividendYield*100),
			clamp(f.DividendYield/0.04, 0, 1))
	}
	if f.DebtToEquity > 0 {
		add(KeyLeverage, "Leverage (D/E)", fmt.Sprintf("debt/equity %.2f", f.DebtToEquity),
			interp(f.DebtToEquity, []float64{0.3, 1, 2.5}, []float64{1, 0, -1}))
	}
	if f.MarketCap > 0 {
		add(KeySize, "Market size", "market cap ₹"+humanize.CommafWithDigits(f.MarketCap/1e7, 0)+" crore",
			interp(f.MarketCap, []float64{smallCap, largeCap}, []float64{-0.25, 0.5}))
	}
	if f.ExpenseRatio > 0 {
		add(KeyExpense, "Expense ratio", fmt.Sprintf("expense ratio %.2f%%", f.ExpenseRatio*100),
			interp(f.ExpenseRatio, []float64{0.005, 0.01, 0.02}, []float64{1, 0.25, -1}))
	}

	c.finish([]string{"no scorable fundamental metric reported"})
	return c
}

// ScorePE is 1 up to a P/E of 10 and falls to 0.5 at 25, -0.5 at 40 and -1
// from 80.
func ScorePE(pe float64) float64 {
	return interp(pe, []float64{10, 25, 40, 80}, []float64{1, 0.5, -0.5, -1})
}

func (e *Engine) sentiment(s types.SentimentResult) categoryEval {
	c := categoryEval{cat: types.CategorySentiment}
	if s.ItemCount > 0 {
		c.parts = []part{{
			key:  KeySentiment,
			name: "News sentiment",
			detail: fmt.Sprintf("%s across %d items (confidence %.2f)",
				s.Label, s.ItemCount, s.Confidence),
			score: clamp(s.Score, -1, 1),
			share: 1,
		}}
	}
	c.finish([]string{"no news items in lookback window"})
	return c
}

// interp is piecewise-linear through (xs[i], ys[i]) and flat outside.
func interp(x float64, xs, ys []float64) float64 {
	if x <= xs[0] {
		return ys[0]
	}
	for i := 1; i < len(xs); i++ {
		if x <= xs[i] {
			t := (x - xs[i-1]) / (xs[i] - xs[i-1])
			return ys[i-1] + t*(ys[i]-ys[i-1])
		}
	}
	return ys[len(ys)-1]
}
