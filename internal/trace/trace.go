package trace

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "market-advisor"
	ServiceVersion = "1.0.0"
)

// Span attribute keys for advisor requests.
const (
	AttrSymbol     = attribute.Key("advisor.symbol")
	AttrAssetClass = attribute.Key("advisor.asset_class")
	AttrPeriod     = attribute.Key("advisor.period")
	AttrSide       = attribute.Key("advisor.screen.side")
	AttrUniverse   = attribute.Key("advisor.screen.universe")
	AttrRequestID  = attribute.Key("advisor.request_id")
	AttrAction     = attribute.Key("advisor.action")
	AttrScore      = attribute.Key("advisor.score")
	AttrConfidence = attribute.Key("advisor.confidence")
	AttrFailures   = attribute.Key("advisor.screen.failures")
)

var (
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
	enabled        bool
)

// Init installs a stdout span exporter writing to w (stderr when nil).
// Spans stay no-ops until Init succeeds.
func Init(w io.Writer) error {
	if w == nil {
		w = os.Stderr
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return err
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return err
	}

	InitProvider(sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	))
	return nil
}

// InitProvider enables tracing on an already configured provider.
func InitProvider(tp *sdktrace.TracerProvider) {
	tracerProvider = tp
	otel.SetTracerProvider(tp)
	tracer = tp.Tracer(ServiceName)
	enabled = true
}

// Shutdown flushes pending spans and turns tracing back off.
func Shutdown(ctx context.Context) error {
	tp := tracerProvider
	tracer, tracerProvider, enabled = nil, nil, false
	if tp != nil {
		return tp.Shutdown(ctx)
	}
	return nil
}

// StartSpan starts a child span carrying attrs. When tracing is off the
// context is returned as is.
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if !enabled || tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// EndSpan adds attrs, records err as the span status and ends the span.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if !enabled {
		return
	}
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func Enabled() bool {
	return enabled
}

func GetTraceFields(ctx context.Context) (traceID, spanID string, ok bool) {
	if !enabled {
		return "", "", false
	}
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return "", "", false
	}
	return span.SpanContext().TraceID().String(),
		span.SpanContext().SpanID().String(),
		true
}
