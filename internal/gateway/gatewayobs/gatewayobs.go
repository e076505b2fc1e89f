package gatewayobs

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"trade-relay-bot/internal/interfaces"
	"trade-relay-bot/internal/logger"
	"trade-relay-bot/internal/trace"
	"trade-relay-bot/internal/types"
)

// observableGateway wraps a Gateway with observability (logging & tracing)
type observableGateway struct {
	gw interfaces.Gateway
}

// observableLink wraps every Link the gateway hands out
type observableLink struct {
	link interfaces.Link
}

// Compile-time interface checks
var (
	_ interfaces.Gateway = (*observableGateway)(nil)
	_ interfaces.Link    = (*observableLink)(nil)
)

// Wrap wraps a gateway with observability middleware
func Wrap(gw interfaces.Gateway) interfaces.Gateway {
	return &observableGateway{gw: gw}
}

// Dial connects with observability; the returned link is wrapped too
func (og *observableGateway) Dial(ctx context.Context, host string, port int, clientID int) (interfaces.Link, error) {
	ctx, span := trace.StartLinkSpan(ctx, "gateway.Dial", clientID,
		semconv.ServerAddress(host), semconv.ServerPort(port))

	logger.DebugSkip(ctx, 1, "Dialing gateway", "host", host, "port", port, "client_id", clientID)

	link, err := og.gw.Dial(ctx, host, port, clientID)
	if err != nil {
		logger.WarnSkip(ctx, 1, "Gateway dial failed", "host", host, "port", port, "client_id", clientID, "error", err)
		trace.End(span, err)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Gateway link established", "host", host, "port", port, "client_id", clientID)
	trace.End(span, nil)
	return &observableLink{link: link}, nil
}

func (ol *observableLink) ClientID() int {
	return ol.link.ClientID()
}

func (ol *observableLink) IsConnected() bool {
	return ol.link.IsConnected()
}

// Close closes the link with observability
func (ol *observableLink) Close() error {
	ctx, span := trace.StartLinkSpan(context.Background(), "gateway.Close", ol.link.ClientID())
	defer span.End()

	if err := ol.link.Close(); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to close gateway link", err, "client_id", ol.link.ClientID())
		return fmt.Errorf("gateway close failed: %w", err)
	}

	logger.InfoSkip(ctx, 1, "Gateway link closed", "client_id", ol.link.ClientID())
	return nil
}

// Qualify resolves an instrument with observability
func (ol *observableLink) Qualify(ctx context.Context, inst types.Instrument) ([]types.Instrument, error) {
	ctx, span := trace.StartLinkSpan(ctx, "gateway.Qualify", ol.link.ClientID(), trace.SymbolKey.String(inst.Symbol))
	defer span.End()

	logger.DebugSkip(ctx, 1, "Qualifying instrument", "symbol", inst.Symbol, "exchange", inst.Exchange, "currency", inst.Currency)

	got, err := ol.link.Qualify(ctx, inst)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to qualify instrument", err, "symbol", inst.Symbol)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Instrument qualified", "symbol", inst.Symbol, "matches", len(got))
	return got, nil
}

// NextOrderID reserves an order id with observability
func (ol *observableLink) NextOrderID(ctx context.Context) (int64, error) {
	ctx, span := trace.StartLinkSpan(ctx, "gateway.NextOrderID", ol.link.ClientID())
	defer span.End()

	id, err := ol.link.NextOrderID(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to reserve order id", err)
		return 0, err
	}

	logger.DebugSkip(ctx, 1, "Order id reserved", "order_id", id)
	return id, nil
}

// PlaceOrder submits an order with observability
func (ol *observableLink) PlaceOrder(ctx context.Context, inst types.Instrument, spec types.OrderSpec) (types.OrderStatus, error) {
	ctx, span := trace.StartLinkSpan(ctx, "gateway.PlaceOrder", ol.link.ClientID(),
		trace.OrderAttributes(inst.Symbol, spec.OrderID, spec.ParentID, spec.Action.String(), string(spec.Type), spec.Quantity, spec.Transmit)...)
	defer span.End()

	logger.DebugSkip(ctx, 1, "Submitting order",
		"symbol", inst.Symbol,
		"order_id", spec.OrderID,
		"parent_id", spec.ParentID,
		"action", spec.Action,
		"type", spec.Type,
		"qty", spec.Quantity,
		"transmit", spec.Transmit,
	)

	st, err := ol.link.PlaceOrder(ctx, inst, spec)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to submit order", err,
			"symbol", inst.Symbol,
			"order_id", spec.OrderID,
		)
		return types.OrderStatus{}, err
	}

	if st.Rejected {
		span.SetAttributes(attribute.Bool("relay.rejected", true))
		logger.WarnSkip(ctx, 1, "Order rejected by gateway",
			"symbol", inst.Symbol,
			"order_id", spec.OrderID,
			"message", st.LastMessage(),
		)
		return st, nil
	}

	logger.DebugSkip(ctx, 1, "Order accepted by gateway",
		"symbol", inst.Symbol,
		"order_id", st.OrderID,
		"status", st.Status,
	)
	return st, nil
}

// OpenOrders lists working orders with observability
func (ol *observableLink) OpenOrders(ctx context.Context) ([]types.WorkingOrder, error) {
	ctx, span := trace.StartLinkSpan(ctx, "gateway.OpenOrders", ol.link.ClientID())
	defer span.End()

	orders, err := ol.link.OpenOrders(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to list open orders", err)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Open orders listed", "count", len(orders))
	return orders, nil
}
