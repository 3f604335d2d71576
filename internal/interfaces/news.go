package interfaces

import (
	"context"

	"market-advisor/internal/types"
)

type NewsSource interface {
	Name() string
	Fetch(ctx context.Context, query string, limit int) ([]types.NewsItem, error)
}
