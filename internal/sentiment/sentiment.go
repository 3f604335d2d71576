// Package sentiment scores news items with a financial lexicon and
// aggregates them into a recency-weighted SentimentResult.
package sentiment

import (
	"math"
	"sort"
	"strings"
	"time"

	"market-advisor/internal/types"
)

type Config struct {
	HalfLife       time.Duration `yaml:"half_life" validate:"gt=0"`
	Lookback       time.Duration `yaml:"lookback" validate:"gt=0"`
	Saturation     int           `yaml:"saturation" validate:"gt=0"`
	LabelThreshold float64       `yaml:"label_threshold" validate:"gte=0,lt=1"`
	MaxThemes      int           `yaml:"max_themes" validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		HalfLife:       7 * 24 * time.Hour,
		Lookback:       30 * 24 * time.Hour,
		Saturation:     10,
		LabelThreshold: 0.1,
		MaxThemes:      5,
	}
}

var themeKeywords = []string{
	"earnings", "revenue", "profit", "growth", "acquisition", "merger",
	"dividend", "buyback", "expansion", "investment", "partnership",
	"regulation", "market", "competition", "innovation", "technology",
	"risk", "opportunity", "forecast", "outlook", "performance",
}

type Scorer struct {
	cfg Config
	lex *Lexicon
}

func NewScorer(cfg Config, lex *Lexicon) *Scorer {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Scorer{cfg: cfg, lex: lex}
}

// Score aggregates items as of asOf. Items older than the lookback are
// dropped, future-dated items count as fresh and undated items count as one
// half-life old. An empty result is neutral with zero confidence.
func (s *Scorer) Score(items []types.NewsItem, asOf time.Time) types.SentimentResult {
	res := types.NeutralSentiment()
	res.Distribution = map[types.SentimentLabel]int{
		types.SentimentPositive: 0,
		types.SentimentNeutral:  0,
		types.SentimentNegative: 0,
	}

	var weighted, total float64
	var corpus strings.Builder
	for _, it := range items {
		w, ok := s.recencyWeight(it.PublishedAt, asOf)
		if !ok {
			continue
		}
		pol, _ := s.lex.Polarity(it.Text())
		weighted += pol * w
		total += w

		res.Items = append(res.Items, types.ScoredItem{NewsItem: it, Polarity: pol, Weight: w})
		res.Distribution[s.label(pol)]++
		corpus.WriteString(strings.ToLower(it.Text()))
		corpus.WriteByte(' ')
	}

	res.ItemCount = len(res.Items)
	if res.ItemCount == 0 || total == 0 {
		return res
	}

	res.Score = math.Max(-1, math.Min(1, weighted/total))
	res.Confidence = math.Min(1, float64(res.ItemCount)/float64(s.cfg.Saturation))
	res.Label = s.label(res.Score)
	res.Themes = s.themes(corpus.String())
	return res
}

func (s *Scorer) recencyWeight(published, asOf time.Time) (float64, bool) {
	if published.IsZero() {
		return 0.5, true
	}
	age := asOf.Sub(published)
	if age < 0 {
		age = 0
	}
	if age > s.cfg.Lookback {
		return 0, false
	}
	return math.Exp2(-age.Hours() / s.cfg.HalfLife.Hours()), true
}

func (s *Scorer) label(score float64) types.SentimentLabel {
	switch {
	case score > s.cfg.LabelThreshold:
		return types.SentimentPositive
	case score < -s.cfg.LabelThreshold:
		return types.SentimentNegative
	}
	return types.SentimentNeutral
}

func (s *Scorer) themes(text string) []string {
	type count struct {
		word string
		n    int
	}
	var counts []count
	for _, k := range themeKeywords {
		if n := strings.Count(text, k); n > 0 {
			counts = append(counts, count{k, n})
		}
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].n > counts[j].n })

	out := make([]string, 0, s.cfg.MaxThemes)
	for _, c := range counts {
		if len(out) == s.cfg.MaxThemes {
			break
		}
		out = append(out, c.word)
	}
	return out
}
