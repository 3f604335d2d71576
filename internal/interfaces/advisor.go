package interfaces

import (
	"context"

	"market-advisor/internal/types"
)

type Advisor interface {
	Analyze(ctx context.Context, req types.AnalysisRequest) (*types.Report, error)
	Screen(ctx context.Context, req types.ScreenRequest) (*types.ScreenResult, error)
}
