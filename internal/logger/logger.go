package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trade-relay-bot/internal/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global logger instance; a no-op until Init is called
	globalLogger = zap.NewNop()
	// Log level controlled by environment variable
	logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // json or console
	File   string // optional file tee
}

// Init initializes the global logger based on environment variables
func Init() error {
	return InitWithConfig(LoadConfigFromEnv())
}

// LoadConfigFromEnv loads logging configuration from environment variables
func LoadConfigFromEnv() LogConfig {
	return LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "INFO"),
		Format: getEnvOrDefault("LOG_FORMAT", "json"),
		File:   os.Getenv("LOG_FILE"),
	}
}

// InitWithConfig initializes the logger with specific configuration
func InitWithConfig(config LogConfig) error {
	logLevel.SetLevel(parseLogLevel(config.Level))

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(config.Format, "console") || strings.EqualFold(config.Format, "text") {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), logLevel)}

	if config.File != "" {
		if err := os.MkdirAll(filepath.Dir(config.File), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(config.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(file), logLevel))
	}

	globalLogger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(2))
	return nil
}

// Use replaces the global logger. Tests use it with zaptest/observer cores.
func Use(l *zap.Logger) {
	globalLogger = l.WithOptions(zap.AddCallerSkip(2))
}

// Sync flushes buffered log entries
func Sync() {
	_ = globalLogger.Sync()
}

// parseLogLevel converts string log level to a zap level
func parseLogLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zap.DebugLevel
	case "WARN":
		return zap.WarnLevel
	case "ERROR":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// fields converts key/value pairs into zap fields, prefixed with trace ids
// when the context carries a valid span.
func fields(ctx context.Context, args []any) []zap.Field {
	out := make([]zap.Field, 0, len(args)/2+2)
	if traceID, spanID, ok := trace.GetTraceFields(ctx); ok {
		out = append(out, zap.String("trace_id", traceID), zap.String("span_id", spanID))
	}
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if i+1 >= len(args) {
			out = append(out, zap.String("!BADKEY", key))
			break
		}
		if err, isErr := args[i+1].(error); isErr {
			out = append(out, zap.NamedError(key, err))
			continue
		}
		out = append(out, zap.Any(key, args[i+1]))
	}
	return out
}

func logSkip(ctx context.Context, level zapcore.Level, skip int, msg string, args ...any) {
	l := globalLogger
	if skip > 0 {
		l = l.WithOptions(zap.AddCallerSkip(skip))
	}
	if ce := l.Check(level, msg); ce != nil {
		ce.Write(fields(ctx, args)...)
	}
}

// Debug logs a debug message
func Debug(ctx context.Context, msg string, args ...any) {
	logSkip(ctx, zap.DebugLevel, 0, msg, args...)
}

// Info logs an info message
func Info(ctx context.Context, msg string, args ...any) {
	logSkip(ctx, zap.InfoLevel, 0, msg, args...)
}

// Warn logs a warning message
func Warn(ctx context.Context, msg string, args ...any) {
	logSkip(ctx, zap.WarnLevel, 0, msg, args...)
}

// Error logs an error message
func Error(ctx context.Context, msg string, args ...any) {
	logSkip(ctx, zap.ErrorLevel, 0, msg, args...)
}

// ErrorWithErr logs an error message with an error object and records it on
// the active span
func ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	recordSpanError(ctx, err)
	logSkip(ctx, zap.ErrorLevel, 0, msg, append([]any{"error", err}, args...)...)
}

// DebugSkip, InfoSkip, WarnSkip and ErrorWithErrSkip report the caller skip
// frames above the immediate one. Decorators use skip=1.

func DebugSkip(ctx context.Context, skip int, msg string, args ...any) {
	logSkip(ctx, zap.DebugLevel, skip, msg, args...)
}

func InfoSkip(ctx context.Context, skip int, msg string, args ...any) {
	logSkip(ctx, zap.InfoLevel, skip, msg, args...)
}

func WarnSkip(ctx context.Context, skip int, msg string, args ...any) {
	logSkip(ctx, zap.WarnLevel, skip, msg, args...)
}

func ErrorWithErrSkip(ctx context.Context, skip int, msg string, err error, args ...any) {
	recordSpanError(ctx, err)
	logSkip(ctx, zap.ErrorLevel, skip, msg, append([]any{"error", err}, args...)...)
}

func recordSpanError(ctx context.Context, err error) {
	if !trace.Enabled() || err == nil {
		return
	}
	span := oteltrace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
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
func StartOperation(ctx context.Context, operation string, kv ...any) *OperationTimer {
	ctx, span := trace.StartSpan(ctx, operation)
	span.SetAttributes(attributes(kv)...)

	Debug(ctx, "Operation started", append([]any{"operation", operation}, kv...)...)

	return &OperationTimer{
		ctx:    ctx,
		span:   span,
		start:  time.Now(),
		fields: append([]any{"operation", operation}, kv...),
	}
}

// End completes the operation timer and logs the duration
func (ot *OperationTimer) End(additionalFields ...any) {
	duration := time.Since(ot.start)

	ot.span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
	ot.span.SetAttributes(attributes(additionalFields)...)
	ot.span.SetStatus(codes.Ok, "completed")
	ot.span.End()

	kv := append(append([]any{}, ot.fields...), "duration_ms", duration.Milliseconds())
	logSkip(ot.ctx, zap.DebugLevel, 0, "Operation completed", append(kv, additionalFields...)...)
}

// EndWithError completes the operation timer with an error
func (ot *OperationTimer) EndWithError(err error, additionalFields ...any) {
	duration := time.Since(ot.start)

	ot.span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
	ot.span.RecordError(err)
	ot.span.SetStatus(codes.Error, err.Error())
	ot.span.End()

	kv := append(append([]any{}, ot.fields...), "duration_ms", duration.Milliseconds(), "error", err)
	logSkip(ot.ctx, zap.ErrorLevel, 0, "Operation failed", append(kv, additionalFields...)...)
}

// Context returns the context carrying the operation span
func (ot *OperationTimer) Context() context.Context {
	return ot.ctx
}

func attributes(kv []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		switch v := kv[i+1].(type) {
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

// Order logs an order submission (always logged at info)
func Order(ctx context.Context, symbol, leg, action string, orderID int64, status string, kv ...any) {
	span := oteltrace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent("order_submitted", oteltrace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.String("leg", leg),
			attribute.String("action", action),
			attribute.Int64("order_id", orderID),
			attribute.String("status", status),
		))
	}

	allFields := append([]any{
		"type", "ORDER",
		"symbol", symbol,
		"leg", leg,
		"action", action,
		"order_id", orderID,
		"status", status,
	}, kv...)
	logSkip(ctx, zap.InfoLevel, 0, "Order submitted", allFields...)
}

// Command logs an inbound chat command and the reply it produced
func Command(ctx context.Context, caller, name string, args []string, result string) {
	logSkip(ctx, zap.InfoLevel, 0, "Command handled",
		"type", "COMMAND",
		"caller", caller,
		"command", name,
		"args", args,
		"result", result,
	)
}

// IsDebugEnabled returns whether debug logging is enabled
func IsDebugEnabled() bool {
	return logLevel.Enabled(zap.DebugLevel)
}
