package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"golang.org/x/time/rate"

	"market-advisor/internal/interfaces"
	"market-advisor/internal/logger"
	"market-advisor/internal/types"
)

// kiteAPI is the subset of *kiteconnect.Client used here.
type kiteAPI interface {
	GetLTP(instruments ...string) (kiteconnect.QuoteLTP, error)
	GetHistoricalData(instrumentToken int, interval string, fromDate time.Time, toDate time.Time, continuous bool, oi bool) ([]kiteconnect.HistoricalData, error)
}

// Kite reads daily equity candles from Zerodha's historical API. It has no
// fundamentals; pair it with Yahoo through Composite.
type Kite struct {
	kc       kiteAPI
	exchange string
	tokens   *instrumentMapper
	limiter  *rate.Limiter
	now      func() time.Time
}

var _ interfaces.MarketData = (*Kite)(nil)

func NewKite(apiKey, accessToken, exchange string) (*Kite, error) {
	if apiKey == "" || accessToken == "" {
		return nil, errors.New("kite: missing API key/access token")
	}
	kc := kiteconnect.New(apiKey)
	kc.SetAccessToken(accessToken)
	return newKite(kc, exchange), nil
}

func newKite(kc kiteAPI, exchange string) *Kite {
	return &Kite{
		kc:       kc,
		exchange: exchange,
		tokens:   newInstrumentMapper(),
		// historical API allows 3 requests per second
		limiter: rate.NewLimiter(rate.Limit(3), 1),
		now:     time.Now,
	}
}

func (k *Kite) token(ctx context.Context, symbol string) (int, error) {
	tradingSymbol := k.exchange + ":" + ExchangeSymbol(symbol)
	if tok, ok := k.tokens.getToken(tradingSymbol); ok {
		return tok, nil
	}
	if err := k.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	ltp, err := k.kc.GetLTP(tradingSymbol)
	if err != nil {
		return 0, fmt.Errorf("kite ltp %s: %w", tradingSymbol, err)
	}
	q, ok := ltp[tradingSymbol]
	if !ok || q.InstrumentToken == 0 {
		return 0, fmt.Errorf("kite %s: %w", tradingSymbol, ErrSymbolNotFound)
	}
	k.tokens.addMapping(tradingSymbol, q.InstrumentToken)
	logger.Debug(ctx, "Resolved Kite instrument", "symbol", tradingSymbol, "token", q.InstrumentToken)
	return q.InstrumentToken, nil
}

func (k *Kite) PriceHistory(ctx context.Context, symbol, period string) (types.PriceSeries, error) {
	now := k.now()
	start, err := PeriodStart(period, now)
	if err != nil {
		return types.PriceSeries{}, err
	}
	tok, err := k.token(ctx, symbol)
	if err != nil {
		return types.PriceSeries{}, err
	}
	if err := k.limiter.Wait(ctx); err != nil {
		return types.PriceSeries{}, err
	}
	bars, err := k.kc.GetHistoricalData(tok, "day", start, now, false, false)
	if err != nil {
		return types.PriceSeries{}, fmt.Errorf("kite historical %s: %w", symbol, err)
	}

	candles := make([]types.Candle, 0, len(bars))
	for _, b := range bars {
		candles = append(candles, types.Candle{
			Ts:    b.Date.Time.In(IST),
			Open:  b.Open,
			High:  b.High,
			Low:   b.Low,
			Close: b.Close,
			Vol:   float64(b.Volume),
		})
	}
	return types.PriceSeries{Symbol: symbol, Candles: dedupeSorted(candles)}, nil
}

func (k *Kite) Fundamentals(ctx context.Context, symbol string) (*types.FundamentalSnapshot, error) {
	return nil, nil
}

// instrumentMapper caches exchange:symbol to instrument token lookups.
type instrumentMapper struct {
	symbolToToken map[string]int
	mu            sync.RWMutex
}

func newInstrumentMapper() *instrumentMapper {
	return &instrumentMapper{symbolToToken: make(map[string]int)}
}

func (im *instrumentMapper) addMapping(symbol string, token int) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.symbolToToken[symbol] = token
}

func (im *instrumentMapper) getToken(symbol string) (int, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	token, ok := im.symbolToToken[symbol]
	return token, ok
}

// Composite takes prices from one source and fundamentals from another.
type Composite struct {
	Prices      interfaces.MarketData
	Fundamental interfaces.MarketData
}

var _ interfaces.MarketData = Composite{}

func (c Composite) PriceHistory(ctx context.Context, symbol, period string) (types.PriceSeries, error) {
	return c.Prices.PriceHistory(ctx, symbol, period)
}

func (c Composite) Fundamentals(ctx context.Context, symbol string) (*types.FundamentalSnapshot, error) {
	if c.Fundamental == nil {
		return nil, nil
	}
	return c.Fundamental.Fundamentals(ctx, symbol)
}
