package kite

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"trade-relay-bot/internal/interfaces"
	"trade-relay-bot/internal/types"
)

type Params struct {
	APIKey      string
	AccessToken string
	Product     string
	Currency    string
	// BaseURI overrides the Kite Connect root; empty uses the library default.
	BaseURI     string
	HTTPTimeout time.Duration
}

// api is the subset of *kiteconnect.Client the link drives.
type api interface {
	GetUserProfile() (kiteconnect.UserProfile, error)
	GetLTP(instruments ...string) (kiteconnect.QuoteLTP, error)
	PlaceOrder(variety string, orderParams kiteconnect.OrderParams) (kiteconnect.OrderResponse, error)
	ModifyOrder(variety string, orderID string, orderParams kiteconnect.OrderParams) (kiteconnect.OrderResponse, error)
	GetOrders() (kiteconnect.Orders, error)
	GetOrderHistory(orderID string) ([]kiteconnect.Order, error)
}

// Gateway opens Kite Connect sessions. Kite has no socket-level client
// identity, so the identity becomes the order tag of everything the link
// places.
type Gateway struct {
	p         Params
	newClient func(Params) api
}

var _ interfaces.Gateway = (*Gateway)(nil)

func NewGateway(p Params) *Gateway {
	if p.Product == "" {
		p.Product = kiteconnect.ProductCNC
	}
	if p.Currency == "" {
		p.Currency = "INR"
	}
	if p.HTTPTimeout == 0 {
		p.HTTPTimeout = 10 * time.Second
	}
	return &Gateway{p: p, newClient: newKiteClient}
}

func newKiteClient(p Params) api {
	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)
	kc.SetHTTPClient(&http.Client{Timeout: p.HTTPTimeout})
	if p.BaseURI != "" {
		kc.SetBaseURI(p.BaseURI)
	}
	return kc
}

// Dial validates the access token against the user profile endpoint. host
// and port are unused; Kite Connect is reached over its REST root.
func (g *Gateway) Dial(ctx context.Context, host string, port int, clientID int) (interfaces.Link, error) {
	if g.p.APIKey == "" || g.p.AccessToken == "" {
		return nil, errors.New("missing API key/access token")
	}

	kc := g.newClient(g.p)
	profile, err := call(ctx, kc.GetUserProfile)
	if err != nil {
		return nil, errors.Wrapf(err, "kite dial with client id %d", clientID)
	}

	return newLink(kc, g.p, clientID, profile.UserID), nil
}

// call runs a blocking Kite request and abandons it when ctx ends first.
// The HTTP client timeout bounds the abandoned request.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}

	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// rejection reports whether err is Kite declining the order itself rather
// than a transport or auth failure, and returns the broker's message.
func rejection(err error) (string, bool) {
	var kerr kiteconnect.Error
	if !errors.As(err, &kerr) {
		return "", false
	}
	switch kerr.ErrorType {
	case kiteconnect.InputError, kiteconnect.OrderError:
		return kerr.Message, true
	}
	return "", false
}

func rejected(orderID int64, msg string) types.OrderStatus {
	return types.OrderStatus{
		OrderID:  orderID,
		Status:   types.StatusRejected,
		Rejected: true,
		Log:      []string{msg},
	}
}
