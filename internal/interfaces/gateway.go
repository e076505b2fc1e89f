package interfaces

import (
	"context"

	"trade-relay-bot/internal/types"
)

// Gateway opens links to a brokerage gateway.
type Gateway interface {
	// Dial connects with the given client identity. The context deadline
	// bounds the attempt. Returns types.ErrClientIDInUse when the identity
	// is already claimed.
	Dial(ctx context.Context, host string, port int, clientID int) (Link, error)
}

// Link is one authenticated session with the gateway.
type Link interface {
	ClientID() int
	IsConnected() bool
	Close() error

	// Qualify resolves an instrument. An empty result means the gateway does
	// not know the symbol.
	Qualify(ctx context.Context, inst types.Instrument) ([]types.Instrument, error)

	// NextOrderID reserves a fresh order identifier.
	NextOrderID(ctx context.Context) (int64, error)

	// PlaceOrder submits a new order, or resubmits an existing one when
	// spec.OrderID is already known to the gateway.
	PlaceOrder(ctx context.Context, inst types.Instrument, spec types.OrderSpec) (types.OrderStatus, error)

	// OpenOrders lists the orders the gateway still holds open.
	OpenOrders(ctx context.Context) ([]types.WorkingOrder, error)
}

// SessionProvider hands out the live link owned by the connection manager.
type SessionProvider interface {
	Link() (Link, error)
}
