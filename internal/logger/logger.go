// Package logger wraps slog with trace correlation and the scanner's event
// helpers (Tier, Macro, Scan). It is safe to use before Init.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	itrace "gem-scanner/internal/trace"
)

var (
	globalLogger = slog.Default()
	logLevel     slog.Level
	// adds caller source to every line and enables Debug
	detailedLogging bool
	tracingEnabled  bool

	// guards logFile and logFormat
	fileMu    sync.Mutex
	logFile   io.Closer
	logFormat string
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level           string // DEBUG, INFO, WARN, ERROR
	Format          string // json or text
	File            string // also append to this file when set
	DetailedLogging bool
	TracingEnabled  bool // attach trace_id/span_id
}

// Init configures the global logger from LOG_* environment variables.
func Init() error {
	return InitWithConfig(LoadConfigFromEnv())
}

func LoadConfigFromEnv() LogConfig {
	format := os.Getenv("LOG_FORMAT")
	if format == "" {
		format = "json"
	}
	return LogConfig{
		Level:           os.Getenv("LOG_LEVEL"),
		Format:          format,
		File:            os.Getenv("LOG_FILE"),
		DetailedLogging: os.Getenv("LOG_DETAILED") == "true",
		TracingEnabled:  os.Getenv("LOG_TRACING_ENABLED") != "false",
	}
}

// InitWithConfig installs a handler for config. Spans are owned by the trace
// package, which is initialized separately.
func InitWithConfig(config LogConfig) error {
	logLevel = parseLogLevel(config.Level)
	detailedLogging = config.DetailedLogging
	tracingEnabled = config.TracingEnabled

	var (
		out  io.Writer = os.Stdout
		file *os.File
	)
	if config.File != "" {
		f, err := os.OpenFile(config.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		file = f
		out = io.MultiWriter(os.Stdout, f)
	}

	fileMu.Lock()
	defer fileMu.Unlock()
	logFormat = config.Format
	install(out)

	// the previous file is closed only after the new handler is in place
	prev := logFile
	logFile = nil
	if file != nil {
		logFile = file
	}
	if prev != nil {
		return prev.Close()
	}
	return nil
}

// Shutdown switches logging back to stdout only and closes the LOG_FILE
// handle, if any.
func Shutdown() error {
	fileMu.Lock()
	defer fileMu.Unlock()
	if logFile == nil {
		return nil
	}
	install(os.Stdout)
	err := logFile.Close()
	logFile = nil
	return err
}

func install(out io.Writer) {
	// source is attached in logWithTrace so it skips the wrappers
	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler
	if strings.EqualFold(logFormat, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	globalLogger = slog.New(handler).With("service", "gem-scanner")
	slog.SetDefault(globalLogger)
}

// parseLogLevel accepts slog level names in any case. Unknown levels are INFO.
func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(level)))); err != nil {
		return slog.LevelInfo
	}
	return l
}

func getTraceAttrs(ctx context.Context) []any {
	if !tracingEnabled {
		return nil
	}
	traceID, spanID, ok := itrace.GetTraceFields(ctx)
	if !ok {
		return nil
	}
	return []any{"trace_id", traceID, "span_id", spanID}
}

// Debug logs only when LOG_DETAILED=true.
func Debug(ctx context.Context, msg string, args ...any) {
	if !detailedLogging {
		return
	}
	logWithTrace(ctx, slog.LevelDebug, msg, 2, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelInfo, msg, 2, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelWarn, msg, 2, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelError, msg, 2, args...)
}

// ErrorWithErr logs err and marks the current span failed.
func ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	recordSpanError(ctx, err)
	logWithTrace(ctx, slog.LevelError, msg, 2, append([]any{"error", err}, args...)...)
}

// The Skip variants are for decorators: skip extra frames so the source
// points at the decorator's caller.

func DebugSkip(ctx context.Context, skip int, msg string, args ...any) {
	if !detailedLogging {
		return
	}
	logWithTrace(ctx, slog.LevelDebug, msg, 2+skip, args...)
}

func WarnSkip(ctx context.Context, skip int, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelWarn, msg, 2+skip, args...)
}

func ErrorWithErrSkip(ctx context.Context, skip int, msg string, err error, args ...any) {
	recordSpanError(ctx, err)
	logWithTrace(ctx, slog.LevelError, msg, 2+skip, append([]any{"error", err}, args...)...)
}

func recordSpanError(ctx context.Context, err error) {
	if !itrace.Enabled() {
		return
	}
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		itrace.Fail(span, err)
	}
}

// logWithTrace logs a message with trace ID and span ID if available.
// skip is the number of frames between runtime.Caller and the real caller.
func logWithTrace(ctx context.Context, level slog.Level, msg string, skip int, args ...any) {
	if traceAttrs := getTraceAttrs(ctx); traceAttrs != nil {
		args = append(traceAttrs, args...)
	}

	if detailedLogging {
		if pc, file, line, ok := runtime.Caller(skip); ok {
			if fn := runtime.FuncForPC(pc); fn != nil {
				args = append(args, "source", slog.GroupValue(
					slog.String("function", fn.Name()),
					slog.String("file", file),
					slog.Int("line", line),
				))
			}
		}
	}

	globalLogger.Log(ctx, level, msg, args...)
}

// OperationTimer measures an operation and closes its span
type OperationTimer struct {
	ctx    context.Context
	span   trace.Span
	start  time.Time
	fields []any
}

// StartOperation starts timing an operation inside a new span
func StartOperation(ctx context.Context, operation string, fields ...any) *OperationTimer {
	ctx, span := itrace.StartSpan(ctx, operation)
	span.SetAttributes(toAttributes(fields)...)

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

	ot.span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
	ot.span.SetAttributes(toAttributes(additionalFields)...)
	ot.span.SetStatus(codes.Ok, "completed")
	ot.span.End()

	fields := append([]any{}, ot.fields...)
	fields = append(fields, "duration_ms", duration.Milliseconds())
	Debug(ot.ctx, "Operation completed", append(fields, additionalFields...)...)
}

// EndWithError completes the operation timer with an error
func (ot *OperationTimer) EndWithError(err error, additionalFields ...any) {
	duration := time.Since(ot.start)

	ot.span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
	itrace.Fail(ot.span, err)
	ot.span.End()

	fields := append([]any{}, ot.fields...)
	fields = append(fields, "duration_ms", duration.Milliseconds(), "error", err)
	Error(ot.ctx, "Operation failed", append(fields, additionalFields...)...)
}

// GetContext returns the context carrying the operation span
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
		}
	}
	return attrs
}

// Tier logs a tier assignment (always logged regardless of level)
func Tier(ctx context.Context, symbol, tier string, confidence int, qmScore int, fields ...any) {
	addSpanEvent(ctx, "tier_assigned",
		attribute.String("symbol", symbol),
		attribute.String("tier", tier),
		attribute.Int("confidence", confidence),
		attribute.Int("qm_score", qmScore),
	)

	allFields := append([]any{
		"type", "TIER",
		"symbol", symbol,
		"tier", tier,
		"confidence", confidence,
		"qm_score", qmScore,
	}, fields...)
	logWithTrace(ctx, slog.LevelInfo, "Tier assigned", 2, allFields...)
}

// Macro logs an administrative change to the macro environment
func Macro(ctx context.Context, phase, liquidity, sentiment string, fields ...any) {
	addSpanEvent(ctx, "macro_updated",
		attribute.String("phase", phase),
		attribute.String("liquidity", liquidity),
		attribute.String("sentiment", sentiment),
	)

	allFields := append([]any{
		"type", "MACRO",
		"phase", phase,
		"liquidity", liquidity,
		"sentiment", sentiment,
	}, fields...)
	logWithTrace(ctx, slog.LevelWarn, "Macro environment updated", 2, allFields...)
}

// Scan logs a scan session lifecycle event
func Scan(ctx context.Context, sessionID, market, status string, fields ...any) {
	addSpanEvent(ctx, "scan_"+status,
		attribute.String("session_id", sessionID),
		attribute.String("market", market),
	)

	allFields := append([]any{
		"type", "SCAN",
		"session_id", sessionID,
		"market", market,
		"status", status,
	}, fields...)
	logWithTrace(ctx, slog.LevelInfo, "Scan session "+status, 2, allFields...)
}

func addSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	if !itrace.Enabled() {
		return
	}
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}
