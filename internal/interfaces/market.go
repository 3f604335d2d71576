package interfaces

import (
	"context"

	"market-advisor/internal/types"
)

// MarketData supplies price history and fundamentals for one asset class.
type MarketData interface {
	// PriceHistory returns daily bars covering period ("1mo".."5y"), oldest first.
	PriceHistory(ctx context.Context, symbol, period string) (types.PriceSeries, error)

	// Fundamentals returns the latest snapshot, or nil when the source has none.
	Fundamentals(ctx context.Context, symbol string) (*types.FundamentalSnapshot, error)
}
