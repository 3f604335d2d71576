// Package recommend combines technical, fundamental and sentiment scores
// into a banded recommendation. Recommend is a pure function of its input
// and the Config fixed at construction.
package recommend

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"market-advisor/internal/types"
)

type Input struct {
	Symbol       string
	AssetClass   types.AssetClass
	Indicators   types.IndicatorSet
	Fundamentals *types.FundamentalSnapshot
	Sentiment    types.SentimentResult
}

type Engine struct {
	cfg Config
}

func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	return &Engine{cfg: cfg.clone()}, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config { return e.cfg.clone() }

// part is one available sub-score with its share of the category.
type part struct {
	key    string
	name   string
	detail string
	score  float64
	share  float64
}

type categoryEval struct {
	cat       types.Category
	available bool
	reason    string
	score     float64
	parts     []part
}

// finish normalises part shares and derives the category score, or marks
// the category unavailable when no part survived.
func (c *categoryEval) finish(reasons []string) {
	total := 0.0
	for _, p := range c.parts {
		total += p.share
	}
	if len(c.parts) == 0 || total == 0 {
		c.parts = nil
		c.reason = joinUnique(reasons)
		if c.reason == "" {
			c.reason = "no usable data"
		}
		return
	}
	c.available = true
	for i := range c.parts {
		c.parts[i].share /= total
		c.score += c.parts[i].share * c.parts[i].score
	}
	c.score = clamp(c.score, -1, 1)
}

func (e *Engine) Recommend(in Input) (types.Recommendation, error) {
	profile, ok := e.cfg.Profiles[in.AssetClass]
	if !ok {
		return types.Recommendation{}, fmt.Errorf("%w: unknown asset class %q", types.ErrInvalidInput, in.AssetClass)
	}

	cats := []categoryEval{
		e.technical(in.Indicators),
		e.fundamental(in.Fundamentals),
		e.sentiment(in.Sentiment),
	}

	var unavailable []types.DataUnavailable
	applicable, covered, total := 0, 0, 0.0
	for _, c := range cats {
		w := profile.Of(c.cat)
		if w == 0 {
			continue
		}
		applicable++
		if !c.available {
			unavailable = append(unavailable, types.DataUnavailable{Category: c.cat, Reason: c.reason})
			continue
		}
		covered++
		total += w
	}
	if covered == 0 {
		return types.Recommendation{}, &types.InsufficientDataError{Symbol: in.Symbol, Unavailable: unavailable}
	}

	rec := types.Recommendation{
		AssetClass:  in.AssetClass,
		Weights:     make(map[types.Category]float64, len(cats)),
		Unavailable: unavailable,
		TimeHorizon: e.cfg.Horizons[in.AssetClass],
	}

	composite := 0.0
	for _, c := range cats {
		w := 0.0
		if c.available {
			w = profile.Of(c.cat) / total
		}
		rec.Weights[c.cat] = w
		rec.Categories = append(rec.Categories, types.CategoryScore{
			Category: c.cat, Score: c.score, Weight: w, Available: c.available,
		})
		composite += w * c.score
	}

	rec.Score = clamp((composite+1)*50, 0, 100)
	rec.Action = e.cfg.ActionFor(rec.Score)
	rec.Confidence = confidence(cats, rec.Weights, composite, covered, applicable)
	rec.Factors = e.factors(cats, rec.Weights)
	rec.TargetPrice = e.targetPrice(in.AssetClass, in.Indicators.LastClose, rec.Score)
	rec.RiskFactors = riskFactors(in)
	if in.AssetClass == types.AssetFund {
		rec.Strengths, rec.Weaknesses = fundProfile(in)
	}
	return rec, nil
}

// confidence scales coverage of the applicable categories by how closely
// the available category scores agree. Agreement averages sign concordance,
// |Σ w·s| / Σ w·|s|, with one minus the weighted standard deviation around
// the composite, so opposing categories cost more than a spread on one side.
func confidence(cats []categoryEval, weights map[types.Category]float64, mean float64, covered, applicable int) float64 {
	var variance, net, gross float64
	for _, c := range cats {
		if w := weights[c.cat]; w > 0 {
			d := c.score - mean
			variance += w * d * d
			net += w * c.score
			gross += w * math.Abs(c.score)
		}
	}
	concord := 1.0
	if gross > 0 {
		concord = math.Abs(net) / gross
	}
	dispersion := clamp(1-math.Sqrt(variance), 0, 1)
	agreement := 0.5*concord + 0.5*dispersion
	coverage := float64(covered) / float64(applicable)
	return clamp(100*coverage*(0.5+0.5*agreement), 0, 100)
}

func (e *Engine) factors(cats []categoryEval, weights map[types.Category]float64) []types.Factor {
	var out []types.Factor
	for _, c := range cats {
		w := weights[c.cat]
		if w == 0 {
			continue
		}
		for _, p := range c.parts {
			contrib := w * p.share * p.score * 50
			out = append(out, types.Factor{
				Name:         p.name,
				Category:     c.cat,
				Direction:    direction(p.score),
				Magnitude:    math.Abs(p.score),
				Contribution: contrib,
				Detail:       p.detail,
			})
		}
	}
	slices.SortStableFunc(out, func(a, b types.Factor) int {
		if c := cmp.Compare(math.Abs(b.Contribution), math.Abs(a.Contribution)); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(out) > e.cfg.TopFactors {
		out = out[:e.cfg.TopFactors]
	}
	return out
}

func (e *Engine) targetPrice(class types.AssetClass, last, score float64) decimal.Decimal {
	if last <= 0 {
		return decimal.Zero
	}
	mult := 1 + (score-50)/100*e.cfg.TargetSpan[class]
	return decimal.NewFromFloat(last).Mul(decimal.NewFromFloat(mult)).Round(2)
}

func direction(score float64) types.Direction {
	switch {
	case score > 0:
		return types.DirectionBullish
	case score < 0:
		return types.DirectionBearish
	}
	return types.DirectionNeutral
}

func joinUnique(reasons []string) string {
	var uniq []string
	for _, r := range reasons {
		if !slices.Contains(uniq, r) {
			uniq = append(uniq, r)
		}
	}
	return strings.Join(uniq, "; ")
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
