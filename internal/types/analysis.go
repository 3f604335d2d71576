package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubScore is one normalised signal in [-1, 1]. Raw keeps the
// un-normalised input (an RSI value, a P/E ratio) for display.
type SubScore struct {
	Key       string  `json:"key"`
	Score     float64 `json:"score"`
	Raw       float64 `json:"raw"`
	Available bool    `json:"available"`
	Reason    string  `json:"reason,omitempty"`
}

func Unavailable(key, reason string) SubScore {
	return SubScore{Key: key, Reason: reason}
}

type MACD struct {
	Line, Signal, Histogram float64
}

type Bollinger struct {
	Middle, Upper, Lower float64
}

// FundPerformance is reported for presentation only and never feeds the
// composite score.
type FundPerformance struct {
	AnnualReturn  float64 `json:"annual_return"`
	Volatility    float64 `json:"volatility"`
	SharpeRatio   float64 `json:"sharpe_ratio"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	Return1M      float64 `json:"return_1m"`
	Return3M      float64 `json:"return_3m"`
	Return1Y      float64 `json:"return_1y"`
	Has1M         bool    `json:"has_1m"`
	Has3M         bool    `json:"has_3m"`
	Has1Y         bool    `json:"has_1y"`
	SessionsInput int     `json:"sessions"`
}

type IndicatorSet struct {
	Sessions  int       `json:"sessions"`
	LastClose float64   `json:"last_close"`
	AsOf      time.Time `json:"as_of"`

	Trend       SubScore `json:"trend"`
	Momentum    SubScore `json:"momentum"`
	Volatility  SubScore `json:"volatility"`
	VolumeTrend SubScore `json:"volume_trend"`

	SMAShort             float64 `json:"sma_short,omitempty"`
	SMALong              float64 `json:"sma_long,omitempty"`
	RSI                  float64 `json:"rsi,omitempty"`
	AnnualizedVolatility float64 `json:"annualized_volatility,omitempty"`
	VolumeChangePct      float64 `json:"volume_change_pct,omitempty"`

	MACD      *MACD            `json:"macd,omitempty"`
	Bollinger *Bollinger       `json:"bollinger,omitempty"`
	ATR       float64          `json:"atr,omitempty"`
	Perf      *FundPerformance `json:"performance,omitempty"`
}

// SubScores returns the technical sub-scores in their fixed order.
func (s IndicatorSet) SubScores() []SubScore {
	return []SubScore{s.Trend, s.Momentum, s.Volatility, s.VolumeTrend}
}

type SentimentLabel string

const (
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentPositive SentimentLabel = "positive"
)

type ScoredItem struct {
	NewsItem
	Polarity float64 `json:"polarity"`
	Weight   float64 `json:"weight"`
}

type SentimentResult struct {
	Score        float64                `json:"score"`
	Confidence   float64                `json:"confidence"`
	Label        SentimentLabel         `json:"label"`
	ItemCount    int                    `json:"item_count"`
	Distribution map[SentimentLabel]int `json:"distribution,omitempty"`
	Themes       []string               `json:"themes,omitempty"`
	Items        []ScoredItem           `json:"items,omitempty"`
}

// NeutralSentiment is the result for no usable news.
func NeutralSentiment() SentimentResult {
	return SentimentResult{Label: SentimentNeutral}
}

type Action string

const (
	ActionStrongBuy  Action = "Strong Buy"
	ActionBuy        Action = "Buy"
	ActionHold       Action = "Hold"
	ActionSell       Action = "Sell"
	ActionStrongSell Action = "Strong Sell"
)

type Direction string

const (
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
	DirectionNeutral Direction = "neutral"
)

// Factor is one rationale entry. Contribution is the signed amount the
// factor moved the composite, in composite points.
type Factor struct {
	Name         string    `json:"name"`
	Category     Category  `json:"category"`
	Direction    Direction `json:"direction"`
	Magnitude    float64   `json:"magnitude"`
	Contribution float64   `json:"contribution"`
	Detail       string    `json:"detail,omitempty"`
}

type CategoryScore struct {
	Category  Category `json:"category"`
	Score     float64  `json:"score"`
	Weight    float64  `json:"weight"`
	Available bool     `json:"available"`
}

type Recommendation struct {
	AssetClass  AssetClass           `json:"asset_class"`
	Action      Action               `json:"action"`
	Score       float64              `json:"score"`
	Confidence  float64              `json:"confidence"`
	Weights     map[Category]float64 `json:"weights"`
	Categories  []CategoryScore      `json:"categories"`
	Factors     []Factor             `json:"factors"`
	Unavailable []DataUnavailable    `json:"unavailable,omitempty"`
	RiskFactors []string             `json:"risk_factors,omitempty"`
	Strengths   []string             `json:"strengths,omitempty"`
	Weaknesses  []string             `json:"weaknesses,omitempty"`
	TargetPrice decimal.Decimal      `json:"target_price"`
	TimeHorizon string               `json:"time_horizon"`
}

// Report is the contract handed to the presentation layer.
type Report struct {
	RequestID      uuid.UUID            `json:"request_id"`
	Symbol         string               `json:"symbol"`
	Name           string               `json:"name,omitempty"`
	AssetClass     AssetClass           `json:"asset_class"`
	Period         string               `json:"period"`
	GeneratedAt    time.Time            `json:"generated_at"`
	Recommendation Recommendation       `json:"recommendation"`
	Indicators     IndicatorSet         `json:"indicators"`
	Sentiment      SentimentResult      `json:"sentiment"`
	Fundamentals   *FundamentalSnapshot `json:"fundamentals,omitempty"`
	News           []NewsItem           `json:"news,omitempty"`
}

type AnalysisRequest struct {
	Symbol     string
	Name       string
	Category   string
	AssetClass AssetClass
	Period     string
}

// ScreenSide selects which end of the ranking a screen returns.
type ScreenSide string

const (
	ScreenBuy  ScreenSide = "buy"
	ScreenSell ScreenSide = "sell"
)

type ScreenRequest struct {
	AssetClass AssetClass
	Side       ScreenSide
	TopN       int
	Period     string
	Universe   []AnalysisRequest
}

type ScreenEntry struct {
	Rank           int            `json:"rank"`
	Symbol         string         `json:"symbol"`
	Name           string         `json:"name,omitempty"`
	Recommendation Recommendation `json:"recommendation"`
}

type ScreenFailure struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

type ScreenResult struct {
	RequestID   uuid.UUID       `json:"request_id"`
	AssetClass  AssetClass      `json:"asset_class"`
	Side        ScreenSide      `json:"side"`
	GeneratedAt time.Time       `json:"generated_at"`
	Entries     []ScreenEntry   `json:"entries"`
	Failures    []ScreenFailure `json:"failures,omitempty"`
}
