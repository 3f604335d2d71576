package advisorobs

import (
	"context"
	"time"

	"market-advisor/internal/interfaces"
	"market-advisor/internal/logger"
	"market-advisor/internal/trace"
	"market-advisor/internal/types"
)

type observableAdvisor struct {
	advisor interfaces.Advisor
}

var _ interfaces.Advisor = (*observableAdvisor)(nil)

func Wrap(a interfaces.Advisor) interfaces.Advisor {
	return &observableAdvisor{advisor: a}
}

func (oa *observableAdvisor) Analyze(ctx context.Context, req types.AnalysisRequest) (*types.Report, error) {
	ctx, span := trace.StartSpan(ctx, "advisor.Analyze",
		trace.AttrSymbol.String(req.Symbol),
		trace.AttrAssetClass.String(string(req.AssetClass)),
		trace.AttrPeriod.String(req.Period),
	)

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting analysis",
		"symbol", req.Symbol,
		"asset_class", string(req.AssetClass),
		"period", req.Period,
	)

	report, err := oa.advisor.Analyze(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Analysis failed", err,
			"symbol", req.Symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		trace.EndSpan(span, err)
		return nil, err
	}

	rec := report.Recommendation
	trace.EndSpan(span, nil,
		trace.AttrRequestID.String(report.RequestID.String()),
		trace.AttrAction.String(string(rec.Action)),
		trace.AttrScore.Float64(rec.Score),
		trace.AttrConfidence.Float64(rec.Confidence),
	)
	logger.InfoSkip(ctx, 1, "Analysis completed",
		"symbol", req.Symbol,
		"request_id", report.RequestID.String(),
		"action", string(rec.Action),
		"score", rec.Score,
		"confidence", rec.Confidence,
		"news_items", report.Sentiment.ItemCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

func (oa *observableAdvisor) Screen(ctx context.Context, req types.ScreenRequest) (*types.ScreenResult, error) {
	ctx, span := trace.StartSpan(ctx, "advisor.Screen",
		trace.AttrAssetClass.String(string(req.AssetClass)),
		trace.AttrSide.String(string(req.Side)),
		trace.AttrUniverse.Int(len(req.Universe)),
	)

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting screen",
		"asset_class", string(req.AssetClass),
		"side", string(req.Side),
		"universe", len(req.Universe),
		"top_n", req.TopN,
	)

	res, err := oa.advisor.Screen(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Screen failed", err,
			"asset_class", string(req.AssetClass),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		trace.EndSpan(span, err)
		return res, err
	}
	trace.EndSpan(span, nil,
		trace.AttrRequestID.String(res.RequestID.String()),
		trace.AttrFailures.Int(len(res.Failures)),
	)

	fields := []any{
		"request_id", res.RequestID.String(),
		"entries", len(res.Entries),
		"failures", len(res.Failures),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if len(res.Failures) > 0 {
		logger.WarnSkip(ctx, 1, "Screen completed with failures", fields...)
	} else {
		logger.InfoSkip(ctx, 1, "Screen completed", fields...)
	}
	return res, nil
}
