package trace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func record(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	InitProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { _ = Shutdown(context.Background()) })
	return rec
}

func attrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range s.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestStartSpanDisabled(t *testing.T) {
	require.False(t, Enabled())
	ctx := context.Background()
	got, span := StartSpan(ctx, "advisor.Analyze", AttrSymbol.String("TCS.NS"))
	assert.Equal(t, ctx, got)
	assert.False(t, span.IsRecording())

	_, _, ok := GetTraceFields(got)
	assert.False(t, ok)
	EndSpan(span, errors.New("ignored"))
}

func TestStartSpanCarriesAttributes(t *testing.T) {
	rec := record(t)

	ctx, span := StartSpan(context.Background(), "advisor.Analyze",
		AttrSymbol.String("INFY.NS"),
		AttrAssetClass.String("equity"),
	)
	traceID, spanID, ok := GetTraceFields(ctx)
	require.True(t, ok)
	assert.Len(t, traceID, 32)
	assert.Len(t, spanID, 16)

	EndSpan(span, nil, AttrAction.String("Buy"), AttrScore.Float64(71.5))

	ended := rec.Ended()
	require.Len(t, ended, 1)
	s := ended[0]
	assert.Equal(t, "advisor.Analyze", s.Name())
	assert.Equal(t, codes.Ok, s.Status().Code)

	a := attrs(s)
	assert.Equal(t, "INFY.NS", a[AttrSymbol].AsString())
	assert.Equal(t, "equity", a[AttrAssetClass].AsString())
	assert.Equal(t, "Buy", a[AttrAction].AsString())
	assert.InDelta(t, 71.5, a[AttrScore].AsFloat64(), 1e-12)
}

func TestEndSpanRecordsError(t *testing.T) {
	rec := record(t)

	_, span := StartSpan(context.Background(), "advisor.Screen", AttrUniverse.Int(3))
	EndSpan(span, errors.New("all 3 analyses failed"))

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "all 3 analyses failed", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "exception", ended[0].Events()[0].Name)
}

func TestShutdownDisables(t *testing.T) {
	record(t)
	require.True(t, Enabled())
	require.NoError(t, Shutdown(context.Background()))
	assert.False(t, Enabled())
}
