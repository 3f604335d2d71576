package market

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"market-advisor/internal/api"
	"market-advisor/internal/interfaces"
	"market-advisor/internal/types"
)

const MFAPIBaseURL = "https://api.mfapi.in"

// MFAPI serves Indian mutual fund NAV history keyed by AMFI scheme code.
// NAVs become candles with Open = High = Low = Close and no volume.
type MFAPI struct {
	client *api.Client
	retry  *api.RetryConfig
	cache  *Cache
	now    func() time.Time
}

var _ interfaces.MarketData = (*MFAPI)(nil)

func NewMFAPI(client *api.Client, retry *api.RetryConfig, cache *Cache) *MFAPI {
	return &MFAPI{client: client, retry: retry, cache: cache, now: time.Now}
}

type mfScheme struct {
	Meta struct {
		FundHouse      string `json:"fund_house"`
		SchemeType     string `json:"scheme_type"`
		SchemeCategory string `json:"scheme_category"`
		SchemeCode     int    `json:"scheme_code"`
		SchemeName     string `json:"scheme_name"`
	} `json:"meta"`
	Data []struct {
		Date string `json:"date"`
		NAV  string `json:"nav"`
	} `json:"data"`
	Status string `json:"status"`
}

func (m *MFAPI) scheme(ctx context.Context, code string) (mfScheme, error) {
	key := cacheKey("mfapi", code, dayKey(m.now()))
	return cached(ctx, m.cache, key, func(ctx context.Context) (mfScheme, error) {
		var s mfScheme
		if err := m.client.GetJSON(ctx, "/mf/"+code, nil, m.retry, &s); err != nil {
			return s, fmt.Errorf("mfapi %s: %w", code, err)
		}
		if len(s.Data) == 0 || (s.Status != "" && s.Status != "SUCCESS") {
			return s, fmt.Errorf("mfapi %s: %w", code, ErrSymbolNotFound)
		}
		return s, nil
	})
}

func (m *MFAPI) PriceHistory(ctx context.Context, code, period string) (types.PriceSeries, error) {
	start, err := PeriodStart(period, m.now())
	if err != nil {
		return types.PriceSeries{}, err
	}
	s, err := m.scheme(ctx, code)
	if err != nil {
		return types.PriceSeries{}, err
	}

	candles := make([]types.Candle, 0, len(s.Data))
	for i, d := range s.Data {
		ts, err := time.ParseInLocation("02-01-2006", d.Date, IST)
		if err != nil {
			return types.PriceSeries{}, &types.InvalidInputError{Symbol: code, Index: i, Reason: fmt.Sprintf("bad NAV date %q", d.Date)}
		}
		if ts.Before(start) {
			continue
		}
		nav, err := strconv.ParseFloat(strings.TrimSpace(d.NAV), 64)
		if err != nil || nav <= 0 {
			continue
		}
		candles = append(candles, types.Candle{Ts: ts, Open: nav, High: nav, Low: nav, Close: nav})
	}
	return types.PriceSeries{Symbol: code, Candles: dedupeSorted(candles)}, nil
}

// Fundamentals carries only the scheme name and category; MFAPI publishes no
// expense ratio or AUM.
func (m *MFAPI) Fundamentals(ctx context.Context, code string) (*types.FundamentalSnapshot, error) {
	s, err := m.scheme(ctx, code)
	if err != nil {
		return nil, err
	}
	category := s.Meta.SchemeCategory
	if _, after, ok := strings.Cut(category, " - "); ok {
		category = after
	}
	return &types.FundamentalSnapshot{
		AsOf:     m.now(),
		Name:     s.Meta.SchemeName,
		Category: category,
	}, nil
}
