package sentiment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-advisor/internal/types"
)

var asOf = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func item(headline string, age time.Duration) types.NewsItem {
	return types.NewsItem{Headline: headline, Source: "test", PublishedAt: asOf.Add(-age)}
}

func TestScoreEmpty(t *testing.T) {
	res := NewScorer(DefaultConfig(), nil).Score(nil, asOf)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, 0.0, res.Confidence)
	assert.Equal(t, types.SentimentNeutral, res.Label)
	assert.Zero(t, res.ItemCount)
}

func TestScoreDropsItemsOutsideLookback(t *testing.T) {
	items := []types.NewsItem{item("Shares surge on record profit", 45*24*time.Hour)}
	res := NewScorer(DefaultConfig(), nil).Score(items, asOf)
	assert.Zero(t, res.ItemCount)
	assert.Equal(t, types.SentimentNeutral, res.Label)
}

func TestScorePositiveAndNegative(t *testing.T) {
	s := NewScorer(DefaultConfig(), nil)

	pos := s.Score([]types.NewsItem{
		item("Reliance reports strong quarterly earnings, beats estimates", time.Hour),
		item("Analysts upgrade Reliance on robust revenue growth", 2*time.Hour),
	}, asOf)
	assert.Equal(t, types.SentimentPositive, pos.Label)
	assert.Greater(t, pos.Score, 0.1)
	assert.Equal(t, 2, pos.Distribution[types.SentimentPositive])
	assert.InDelta(t, 0.2, pos.Confidence, 1e-12)
	assert.Contains(t, pos.Themes, "earnings")

	neg := s.Score([]types.NewsItem{
		item("Stock plunges after SEBI notice over fraud probe", time.Hour),
	}, asOf)
	assert.Equal(t, types.SentimentNegative, neg.Label)
	assert.Less(t, neg.Score, -0.1)
	assert.GreaterOrEqual(t, neg.Score, -1.0)
}

func TestScoreRecencyWeighting(t *testing.T) {
	s := NewScorer(DefaultConfig(), nil)
	fresh := item("Strong growth", 0)
	old := item("Weak outlook and losses", 7*24*time.Hour)

	res := s.Score([]types.NewsItem{fresh, old}, asOf)
	require.Len(t, res.Items, 2)
	assert.InDelta(t, 1.0, res.Items[0].Weight, 1e-12)
	assert.InDelta(t, 0.5, res.Items[1].Weight, 1e-12)
	assert.Greater(t, res.Score, 0.0)
}

func TestScoreConfidenceSaturates(t *testing.T) {
	var items []types.NewsItem
	for i := 0; i < 25; i++ {
		items = append(items, item("Company holds annual meeting", time.Duration(i)*time.Hour))
	}
	res := NewScorer(DefaultConfig(), nil).Score(items, asOf)
	assert.Equal(t, 25, res.ItemCount)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, types.SentimentNeutral, res.Label)
	assert.Equal(t, 25, res.Distribution[types.SentimentNeutral])
}

func TestScoreIsDeterministic(t *testing.T) {
	items := []types.NewsItem{
		item("Record high as profit jumps", time.Hour),
		item("Profit warning issued amid slowdown", 30*time.Hour),
		item("Order win boosts outlook", 80*time.Hour),
	}
	s := NewScorer(DefaultConfig(), nil)
	first := s.Score(items, asOf)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.Score(items, asOf))
	}
}

func TestPolarityNegation(t *testing.T) {
	l := DefaultLexicon()
	p, n := l.Polarity("results were good")
	assert.Equal(t, 1, n)
	assert.Greater(t, p, 0.0)

	p, _ = l.Polarity("results were not good")
	assert.Less(t, p, 0.0)

	p, n = l.Polarity("board meeting scheduled")
	assert.Zero(t, n)
	assert.Zero(t, p)
}

func TestPolarityPhraseWordsNotCountedTwice(t *testing.T) {
	l := DefaultLexicon()

	p, n := l.Polarity("Infosys issues profit warning")
	assert.Equal(t, 1, n)
	assert.InDelta(t, -0.7/1.7, p, 1e-12)

	p, n = l.Polarity("Nifty closes at record high")
	assert.Equal(t, 1, n)
	assert.InDelta(t, 0.7/1.7, p, 1e-12)

	// the standalone word still counts outside the phrase
	_, n = l.Polarity("record quarter lifts stock to record high")
	assert.Equal(t, 2, n)
}
