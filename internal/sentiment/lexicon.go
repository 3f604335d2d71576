package sentiment

import (
	"strings"
	"unicode"
)

// Lexicon scores text against weighted financial word lists. Single words
// are matched on token boundaries, phrases as substrings of the normalised
// text. Words inside a matched phrase are not counted on their own. A negator
// directly before a word flips its sign.
type Lexicon struct {
	words    map[string]float64
	phrases  []phrase
	negators map[string]bool
}

type phrase struct {
	text   string
	weight float64
}

// DefaultLexicon combines Loughran-McDonald style positive and negative
// finance terms with market-news phrases common in Indian coverage.
func DefaultLexicon() *Lexicon {
	l := &Lexicon{
		words:    make(map[string]float64),
		negators: make(map[string]bool),
	}
	for _, w := range []string{
		"achieve", "benefit", "better", "competitive", "enhance", "excellent",
		"exceptional", "favorable", "favourable", "gain", "gains", "good", "great",
		"grew", "growth", "improve", "improved", "improvement", "innovation",
		"leader", "leading", "opportunity", "optimistic", "positive", "profitable",
		"progress", "record", "remarkable", "robust", "solid", "strength",
		"strong", "success", "successful", "superior", "upbeat",
	} {
		l.words[w] = 0.5
	}
	for _, w := range []string{
		"adverse", "challenging", "concern", "concerns", "crisis", "damage",
		"decline", "declines", "decrease", "deficit", "deteriorate", "difficult",
		"disappoint", "disappointing", "downturn", "fail", "failure", "falling",
		"fear", "headwind", "headwinds", "impairment", "loss", "losses",
		"negative", "poor", "problem", "recession", "slowdown", "uncertain",
		"uncertainty", "underperform", "unfavorable", "weak", "weakness", "worse",
		"worst",
	} {
		l.words[w] = -0.5
	}
	for w, v := range map[string]float64{
		"bullish": 0.7, "rally": 0.6, "rallies": 0.6, "surge": 0.7, "surges": 0.7,
		"soars": 0.7, "jumps": 0.5, "upgrade": 0.6, "upgraded": 0.6,
		"outperform": 0.6, "outperforms": 0.6, "recovery": 0.5, "breakout": 0.6,
		"beat": 0.5, "beats": 0.5, "exceeds": 0.5, "expansion": 0.4,
		"profit": 0.3, "dividend": 0.4, "buyback": 0.4, "accumulate": 0.5,
		"bearish": -0.7, "crash": -0.8, "plunge": -0.7, "plunges": -0.7,
		"slump": -0.6, "slumps": -0.6, "tumbles": -0.6, "downgrade": -0.6,
		"downgraded": -0.6, "selloff": -0.7, "correction": -0.5, "default": -0.7,
		"fraud": -0.8, "scam": -0.8, "probe": -0.5, "investigation": -0.5,
		"penalty": -0.5, "miss": -0.5, "misses": -0.5, "warning": -0.5,
		"lawsuit": -0.5, "resigns": -0.4, "pledge": -0.3,
	} {
		l.words[w] = v
	}
	l.phrases = []phrase{
		{"record high", 0.7},
		{"all-time high", 0.7},
		{"52-week high", 0.5},
		{"beats estimate", 0.6},
		{"order win", 0.5},
		{"target price raised", 0.5},
		{"52-week low", -0.5},
		{"profit warning", -0.7},
		{"target price cut", -0.5},
		{"rating cut", -0.6},
		{"sebi notice", -0.6},
	}
	for _, n := range []string{"not", "no", "never", "without", "despite", "hardly"} {
		l.negators[n] = true
	}
	return l
}

// Polarity returns (pos-neg)/(pos+neg+1) over the weighted matches, which
// is 0 when nothing matched and stays strictly inside (-1, 1).
func (l *Lexicon) Polarity(text string) (polarity float64, matches int) {
	lower := strings.ToLower(text)
	pos, neg := 0.0, 0.0
	add := func(v float64) {
		if v > 0 {
			pos += v
		} else {
			neg -= v
		}
		matches++
	}

	// matched phrases are blanked so their words are not scored again
	for _, p := range l.phrases {
		n := strings.Count(lower, p.text)
		if n == 0 {
			continue
		}
		for ; n > 0; n-- {
			add(p.weight)
		}
		lower = strings.ReplaceAll(lower, p.text, strings.Repeat(" ", len(p.text)))
	}

	tokens := tokenize(lower)
	for i, tok := range tokens {
		v, ok := l.words[tok]
		if !ok {
			continue
		}
		if i > 0 && l.negators[tokens[i-1]] {
			v = -v
		}
		add(v)
	}

	return (pos - neg) / (pos + neg + 1), matches
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '-'
	})
}
