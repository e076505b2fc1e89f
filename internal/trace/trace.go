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
	ServiceName    = "trade-relay-bot"
	ServiceVersion = "1.0.0"
)

// Span attribute keys for relay operations.
const (
	ClientIDKey  = attribute.Key("relay.client_id")
	SymbolKey    = attribute.Key("relay.symbol")
	OrderIDKey   = attribute.Key("relay.order_id")
	ParentIDKey  = attribute.Key("relay.parent_id")
	LegKey       = attribute.Key("relay.leg")
	ActionKey    = attribute.Key("relay.action")
	QuantityKey  = attribute.Key("relay.quantity")
	TransmitKey  = attribute.Key("relay.transmit")
	OrderTypeKey = attribute.Key("relay.order_type")
	OutcomeKey   = attribute.Key("relay.outcome")
)

var (
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	enabled  bool
)

// Init installs the stdout span exporter. LOG_TRACING_ENABLED=false turns
// tracing off; TRACE_FILE sends spans to a file instead of stdout.
func Init() error {
	enabled = os.Getenv("LOG_TRACING_ENABLED") != "false"
	if !enabled {
		return nil
	}

	exporter, err := newExporter(os.Getenv("TRACE_FILE"))
	if err != nil {
		enabled = false
		return err
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	))
	if err != nil {
		enabled = false
		return err
	}

	provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	tracer = otel.Tracer(ServiceName)
	return nil
}

func newExporter(path string) (*stdouttrace.Exporter, error) {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		w = f
	}
	return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
}

// Shutdown flushes pending spans.
func Shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}

func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if !enabled || tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartLinkSpan starts a span for a call on the gateway link held by
// clientID.
func StartLinkSpan(ctx context.Context, name string, clientID int, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, name, append([]attribute.KeyValue{ClientIDKey.Int(clientID)}, attrs...)...)
}

// OrderAttributes describes one order submission.
func OrderAttributes(symbol string, orderID, parentID int64, action, orderType string, qty int, transmit bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		SymbolKey.String(symbol),
		OrderIDKey.Int64(orderID),
		ActionKey.String(action),
		OrderTypeKey.String(orderType),
		QuantityKey.Int(qty),
		TransmitKey.Bool(transmit),
	}
	if parentID != 0 {
		attrs = append(attrs, ParentIDKey.Int64(parentID))
	}
	return attrs
}

// Annotate adds attrs to the span carried by ctx.
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// End closes span, marking it failed when err is set.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func Enabled() bool {
	return enabled
}

// GetTraceFields returns the ids of the span in ctx, if any.
func GetTraceFields(ctx context.Context) (traceID, spanID string, ok bool) {
	if !enabled {
		return "", "", false
	}
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return "", "", false
	}
	return sc.TraceID().String(), sc.SpanID().String(), true
}
