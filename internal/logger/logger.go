package logger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"market-advisor/internal/trace"
)

// callerSkip hides the package's own frames: the exported helper and logw.
const callerSkip = 2

var (
	// Global logger instance, a no-op until Init
	globalLogger = zap.NewNop().Sugar()
	// Whether detailed logging is enabled
	detailedLogging bool
)

// LogConfig holds logging configuration, read from the environment.
type LogConfig struct {
	Level           string `envconfig:"LOG_LEVEL" default:"INFO"`     // DEBUG, INFO, WARN, ERROR
	Format          string `envconfig:"LOG_FORMAT" default:"json"`    // json or console
	DetailedLogging bool   `envconfig:"LOG_DETAILED" default:"false"` // debug lines and caller info
	TracingEnabled  bool   `envconfig:"LOG_TRACING_ENABLED" default:"false"`
}

// Init initializes the global logger and tracer based on environment variables
func Init() error {
	config, err := LoadConfigFromEnv()
	if err != nil {
		return err
	}
	return InitWithConfig(config)
}

// LoadConfigFromEnv loads logging configuration from environment variables
func LoadConfigFromEnv() (LogConfig, error) {
	var config LogConfig
	if err := envconfig.Process("", &config); err != nil {
		return LogConfig{}, fmt.Errorf("failed to read logging environment: %w", err)
	}
	return config, nil
}

// InitWithConfig initializes the logger and tracer with specific configuration.
// Logs go to stderr so stdout stays free for reports.
func InitWithConfig(config LogConfig) error {
	level, err := zapcore.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		level = zapcore.InfoLevel
	}
	detailedLogging = config.DetailedLogging
	if detailedLogging {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if strings.EqualFold(config.Format, "json") {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	opts := []zap.Option{zap.AddCallerSkip(callerSkip)}
	if detailedLogging {
		opts = append(opts, zap.AddCaller())
	}
	base := zap.New(zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level), opts...)
	globalLogger = base.Sugar()
	zap.ReplaceGlobals(base)

	if config.TracingEnabled {
		if err := trace.Init(os.Stderr); err != nil {
			globalLogger.Warnw("Failed to initialize OpenTelemetry tracer, tracing disabled", "error", err)
		}
	}
	return nil
}

// Use swaps in an already-built zap logger and returns a function restoring
// the previous one.
func Use(l *zap.Logger, detailed bool) (restore func()) {
	prevLogger, prevDetailed := globalLogger, detailedLogging
	globalLogger = l.WithOptions(zap.AddCallerSkip(callerSkip)).Sugar()
	detailedLogging = detailed
	return func() {
		globalLogger, detailedLogging = prevLogger, prevDetailed
	}
}

// Shutdown flushes buffered log entries and stops the tracer provider
func Shutdown(ctx context.Context) error {
	_ = globalLogger.Sync()
	return trace.Shutdown(ctx)
}

// Debug logs a debug message
func Debug(ctx context.Context, msg string, args ...any) {
	if !detailedLogging {
		return
	}
	logw(ctx, zapcore.DebugLevel, 0, msg, args...)
}

// Info logs an info message
func Info(ctx context.Context, msg string, args ...any) {
	logw(ctx, zapcore.InfoLevel, 0, msg, args...)
}

// Warn logs a warning message
func Warn(ctx context.Context, msg string, args ...any) {
	logw(ctx, zapcore.WarnLevel, 0, msg, args...)
}

// Error logs an error message
func Error(ctx context.Context, msg string, args ...any) {
	logw(ctx, zapcore.ErrorLevel, 0, msg, args...)
}

// ErrorWithErr logs an error message with an error object
func ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	recordSpanError(ctx, err)
	logw(ctx, zapcore.ErrorLevel, 0, msg, append([]any{"error", err}, args...)...)
}

// InfoSkip logs at info level, attributing the line skip frames further up
// the stack. Used by the *obs wrappers so the caller is the business code.
func InfoSkip(ctx context.Context, skip int, msg string, args ...any) {
	logw(ctx, zapcore.InfoLevel, skip, msg, args...)
}

func WarnSkip(ctx context.Context, skip int, msg string, args ...any) {
	logw(ctx, zapcore.WarnLevel, skip, msg, args...)
}

func ErrorWithErrSkip(ctx context.Context, skip int, msg string, err error, args ...any) {
	recordSpanError(ctx, err)
	logw(ctx, zapcore.ErrorLevel, skip, msg, append([]any{"error", err}, args...)...)
}

func recordSpanError(ctx context.Context, err error) {
	if err == nil || !trace.Enabled() {
		return
	}
	span := oteltrace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// logw prefixes trace and span IDs when the context carries a span.
func logw(ctx context.Context, level zapcore.Level, skip int, msg string, args ...any) {
	l := globalLogger
	if skip > 0 {
		l = l.WithOptions(zap.AddCallerSkip(skip))
	}
	if traceID, spanID, ok := trace.GetTraceFields(ctx); ok {
		args = append([]any{"trace_id", traceID, "span_id", spanID}, args...)
	}

	switch level {
	case zapcore.DebugLevel:
		l.Debugw(msg, args...)
	case zapcore.WarnLevel:
		l.Warnw(msg, args...)
	case zapcore.ErrorLevel:
		l.Errorw(msg, args...)
	default:
		l.Infow(msg, args...)
	}
}

// OperationTimer helps measure operation duration with OpenTelemetry spans
type OperationTimer struct {
	ctx    context.Context
	span   oteltrace.Span
	start  time.Time
	fields []any
}

// StartOperation starts timing an operation with an OpenTelemetry span
func StartOperation(ctx context.Context, operation string, fields ...any) *OperationTimer {
	ctx, span := trace.StartSpan(ctx, operation, toAttributes(fields)...)

	Debug(ctx, "Operation started", append([]any{"operation", operation}, fields...)...)

	return &OperationTimer{
		ctx:    ctx,
		span:   span,
		start:  time.Now(),
		fields: fields,
	}
}

// End completes the operation timer and logs the duration
func (ot *OperationTimer) End(additionalFields ...any) {
	duration := time.Since(ot.start)

	trace.EndSpan(ot.span, nil, append(toAttributes(additionalFields),
		attribute.Int64("duration_ms", duration.Milliseconds()))...)

	if detailedLogging {
		fields := append(append([]any{}, ot.fields...), "duration_ms", duration.Milliseconds())
		fields = append(fields, additionalFields...)
		Debug(ot.ctx, "Operation completed", fields...)
	}
}

// EndWithError completes the operation timer with an error
func (ot *OperationTimer) EndWithError(err error, additionalFields ...any) {
	duration := time.Since(ot.start)

	trace.EndSpan(ot.span, err, attribute.Int64("duration_ms", duration.Milliseconds()))

	fields := append(append([]any{}, ot.fields...), "duration_ms", duration.Milliseconds(), "error", err)
	fields = append(fields, additionalFields...)
	Error(ot.ctx, "Operation failed", fields...)
}

// GetContext returns the context with the span
func (ot *OperationTimer) GetContext() context.Context {
	return ot.ctx
}

func toAttributes(fields []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case string:
			attrs = append(attrs, attribute.String(key, v))
		case int:
			attrs = append(attrs, attribute.Int(key, v))
		case int64:
			attrs = append(attrs, attribute.Int64(key, v))
		case float64:
			attrs = append(attrs, attribute.Float64(key, v))
		case bool:
			attrs = append(attrs, attribute.Bool(key, v))
		case fmt.Stringer:
			attrs = append(attrs, attribute.String(key, v.String()))
		}
	}
	return attrs
}

// Decision logs a produced recommendation (always logged regardless of level)
func Decision(ctx context.Context, symbol, action string, score, confidence float64, fields ...any) {
	if trace.Enabled() {
		span := oteltrace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			span.AddEvent("recommendation", oteltrace.WithAttributes(
				attribute.String("symbol", symbol),
				attribute.String("action", action),
				attribute.Float64("score", score),
				attribute.Float64("confidence", confidence),
			))
		}
	}

	allFields := append([]any{
		"type", "DECISION",
		"symbol", symbol,
		"action", action,
		"score", score,
		"confidence", confidence,
	}, fields...)
	logw(ctx, zapcore.InfoLevel, 0, "Recommendation made", allFields...)
}

// IsDebugEnabled returns whether debug logging is enabled
func IsDebugEnabled() bool {
	return detailedLogging
}

// IsTracingEnabled returns whether tracing is enabled
func IsTracingEnabled() bool {
	return trace.Enabled()
}
