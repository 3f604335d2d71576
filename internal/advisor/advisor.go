// Package advisor gathers market data, fundamentals and news for a symbol
// and runs them through the indicator calculator, the sentiment scorer and
// the recommendation engine.
package advisor

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"market-advisor/internal/indicators"
	"market-advisor/internal/interfaces"
	"market-advisor/internal/logger"
	"market-advisor/internal/news"
	"market-advisor/internal/recommend"
	"market-advisor/internal/sentiment"
	"market-advisor/internal/types"
)

// Headlines is the news lookup the advisor depends on.
type Headlines interface {
	Headlines(ctx context.Context, q news.Query) ([]types.NewsItem, error)
}

// ReportSink receives every completed report and screen.
type ReportSink interface {
	Append(r *types.Report) error
	AppendScreen(res *types.ScreenResult) error
}

type Options struct {
	Markets     map[types.AssetClass]interfaces.MarketData
	News        Headlines // nil disables news
	Calculator  *indicators.Calculator
	Scorer      *sentiment.Scorer
	Engine      *recommend.Engine
	Sink        ReportSink // optional
	Period      string
	Concurrency int
	// FetchTimeout bounds each data fetch; zero leaves only ctx.
	FetchTimeout time.Duration
}

type Advisor struct {
	opts Options
	now  func() time.Time
}

var _ interfaces.Advisor = (*Advisor)(nil)

func New(opts Options) (*Advisor, error) {
	switch {
	case len(opts.Markets) == 0:
		return nil, errors.New("advisor: no market data sources")
	case opts.Calculator == nil || opts.Scorer == nil || opts.Engine == nil:
		return nil, errors.New("advisor: calculator, scorer and engine are required")
	}
	if opts.Period == "" {
		opts.Period = "1y"
	}
	opts.Concurrency = max(opts.Concurrency, 1)
	return &Advisor{opts: opts, now: time.Now}, nil
}

type gathered struct {
	prices    types.PriceSeries
	pricesErr error
	fund      *types.FundamentalSnapshot
	fundErr   error
	news      []types.NewsItem
	newsErr   error
}

// gather fetches the three inputs concurrently. Failures are recorded, not
// returned: each becomes an unavailable category.
func (a *Advisor) gather(ctx context.Context, src interfaces.MarketData, req types.AnalysisRequest) gathered {
	var (
		g  gathered
		wg sync.WaitGroup
	)
	bounded := func(ctx context.Context) (context.Context, context.CancelFunc) {
		if a.opts.FetchTimeout > 0 {
			return context.WithTimeout(ctx, a.opts.FetchTimeout)
		}
		return context.WithCancel(ctx)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		ctx, cancel := bounded(ctx)
		defer cancel()
		g.prices, g.pricesErr = src.PriceHistory(ctx, req.Symbol, req.Period)
	}()
	go func() {
		defer wg.Done()
		ctx, cancel := bounded(ctx)
		defer cancel()
		g.fund, g.fundErr = src.Fundamentals(ctx, req.Symbol)
	}()
	if a.opts.News != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := bounded(ctx)
			defer cancel()
			g.news, g.newsErr = a.opts.News.Headlines(ctx, news.Query{Symbol: req.Symbol, Name: req.Name})
		}()
	}
	wg.Wait()
	return g
}

// Analyze produces a report for one symbol. Provider failures only mark
// their category unavailable; a malformed series, an unknown asset class and
// having no usable category at all are errors.
func (a *Advisor) Analyze(ctx context.Context, req types.AnalysisRequest) (*types.Report, error) {
	req.Symbol = strings.TrimSpace(req.Symbol)
	if req.Symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", types.ErrInvalidInput)
	}
	src, ok := a.opts.Markets[req.AssetClass]
	if !ok {
		return nil, fmt.Errorf("%w: no market data source for asset class %q", types.ErrInvalidInput, req.AssetClass)
	}
	if req.Period == "" {
		req.Period = a.opts.Period
	}

	asOf := a.now()
	g := a.gather(ctx, src, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var set types.IndicatorSet
	if g.pricesErr != nil {
		if errors.Is(g.pricesErr, types.ErrInvalidInput) {
			return nil, g.pricesErr
		}
		logger.Warn(ctx, "Price history unavailable", "symbol", req.Symbol, "error", g.pricesErr)
		set = indicators.Missing("price history unavailable: " + g.pricesErr.Error())
	} else {
		var err error
		if set, err = a.opts.Calculator.Compute(g.prices); err != nil {
			return nil, err
		}
	}

	if g.fundErr != nil {
		logger.Warn(ctx, "Fundamentals unavailable", "symbol", req.Symbol, "error", g.fundErr)
		g.fund = nil
	}
	if g.newsErr != nil {
		logger.Warn(ctx, "News unavailable", "symbol", req.Symbol, "error", g.newsErr)
		g.news = nil
	}
	sent := a.opts.Scorer.Score(g.news, asOf)

	rec, err := a.opts.Engine.Recommend(recommend.Input{
		Symbol:       req.Symbol,
		AssetClass:   req.AssetClass,
		Indicators:   set,
		Fundamentals: g.fund,
		Sentiment:    sent,
	})
	if err != nil {
		return nil, err
	}

	report := &types.Report{
		RequestID:      uuid.New(),
		Symbol:         req.Symbol,
		Name:           req.Name,
		AssetClass:     req.AssetClass,
		Period:         req.Period,
		GeneratedAt:    asOf,
		Recommendation: rec,
		Indicators:     set,
		Sentiment:      sent,
		Fundamentals:   g.fund,
		News:           g.news,
	}
	if report.Name == "" && g.fund != nil {
		report.Name = g.fund.Name
	}

	logger.Decision(ctx, req.Symbol, string(rec.Action), rec.Score, rec.Confidence,
		"request_id", report.RequestID.String(),
		"asset_class", string(req.AssetClass),
		"unavailable", len(rec.Unavailable),
	)
	if a.opts.Sink != nil {
		if err := a.opts.Sink.Append(report); err != nil {
			logger.Warn(ctx, "Failed to append report log", "symbol", req.Symbol, "error", err)
		}
	}
	return report, nil
}

// Screen analyses every instrument in the universe with bounded
// parallelism and returns the best (Side buy) or worst (Side sell) TopN.
// Instruments that fail are listed in Failures.
func (a *Advisor) Screen(ctx context.Context, req types.ScreenRequest) (*types.ScreenResult, error) {
	if req.Side != types.ScreenBuy && req.Side != types.ScreenSell {
		return nil, fmt.Errorf("%w: unknown screen side %q", types.ErrInvalidInput, req.Side)
	}
	if len(req.Universe) == 0 {
		return nil, fmt.Errorf("%w: empty universe", types.ErrInvalidInput)
	}
	topN := req.TopN
	if topN <= 0 {
		topN = 5
	}

	var (
		mu       sync.Mutex
		entries  []types.ScreenEntry
		failures []types.ScreenFailure
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(a.opts.Concurrency)
	for _, inst := range req.Universe {
		inst.AssetClass = req.AssetClass
		if req.Period != "" {
			inst.Period = req.Period
		}
		eg.Go(func() error {
			report, err := a.Analyze(egCtx, inst)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctxErr := egCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				failures = append(failures, types.ScreenFailure{Symbol: inst.Symbol, Error: err.Error()})
				return nil
			}
			entries = append(entries, types.ScreenEntry{
				Symbol:         report.Symbol,
				Name:           report.Name,
				Recommendation: report.Recommendation,
			})
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	Rank(entries, req.Side)
	if len(entries) > topN {
		entries = entries[:topN]
	}
	slices.SortFunc(failures, func(x, y types.ScreenFailure) int { return cmp.Compare(x.Symbol, y.Symbol) })

	res := &types.ScreenResult{
		RequestID:   uuid.New(),
		AssetClass:  req.AssetClass,
		Side:        req.Side,
		GeneratedAt: a.now(),
		Entries:     entries,
		Failures:    failures,
	}
	if len(entries) == 0 {
		return res, fmt.Errorf("screen: all %d instruments failed", len(failures))
	}

	logger.Info(ctx, "Screen completed",
		"asset_class", string(req.AssetClass),
		"side", string(req.Side),
		"ranked", len(entries),
		"failed", len(failures),
	)
	if a.opts.Sink != nil {
		if err := a.opts.Sink.AppendScreen(res); err != nil {
			logger.Warn(ctx, "Failed to append screen log", "error", err)
		}
	}
	return res, nil
}

// Rank orders entries best first for buy and worst first for sell. Ties go
// to the higher confidence, then the symbol. Ranks are assigned from 1.
func Rank(entries []types.ScreenEntry, side types.ScreenSide) {
	slices.SortStableFunc(entries, func(x, y types.ScreenEntry) int {
		xs, ys := x.Recommendation.Score, y.Recommendation.Score
		var c int
		if side == types.ScreenSell {
			c = cmp.Compare(xs, ys)
		} else {
			c = cmp.Compare(ys, xs)
		}
		if c != 0 {
			return c
		}
		if c = cmp.Compare(y.Recommendation.Confidence, x.Recommendation.Confidence); c != 0 {
			return c
		}
		return cmp.Compare(x.Symbol, y.Symbol)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}
