package market

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"market-advisor/internal/types"
)

// IST is the exchange timezone; daily bars are stamped in it.
var IST = time.FixedZone("IST", 5*3600+1800)

// ErrSymbolNotFound is returned when a source has no instrument for a symbol.
var ErrSymbolNotFound = errors.New("symbol not found")

var periods = map[string][2]int{
	"1mo": {0, 1},
	"3mo": {0, 3},
	"6mo": {0, 6},
	"1y":  {1, 0},
	"2y":  {2, 0},
	"3y":  {3, 0},
	"5y":  {5, 0},
}

// PeriodStart returns the first instant covered by period ending at now.
func PeriodStart(period string, now time.Time) (time.Time, error) {
	p, ok := periods[period]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: unknown period %q", types.ErrInvalidInput, period)
	}
	return now.AddDate(-p[0], -p[1], 0), nil
}

// ExchangeSymbol strips a Yahoo exchange suffix: "TCS.NS" becomes "TCS".
func ExchangeSymbol(symbol string) string {
	for _, suffix := range []string{".NS", ".BO"} {
		if s, ok := strings.CutSuffix(symbol, suffix); ok {
			return s
		}
	}
	return symbol
}

// dayKey is the IST calendar day, used to roll cache keys daily.
func dayKey(t time.Time) string {
	return t.In(IST).Format(time.DateOnly)
}
