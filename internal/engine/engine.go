package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"trade-relay-bot/internal/interfaces"
	"trade-relay-bot/internal/logger"
	"trade-relay-bot/internal/types"
)

type Params struct {
	Exchange    string
	Currency    string
	CallTimeout time.Duration
	// MinTick rounds exit prices when positive.
	MinTick float64
}

// Engine speaks the order protocol over the live session. Calls are
// serialised so one command's submissions never interleave with the next.
type Engine struct {
	p        Params
	sessions interfaces.SessionProvider

	mu sync.Mutex
}

var _ interfaces.Engine = (*Engine)(nil)

func newEngine(p Params, sessions interfaces.SessionProvider) *Engine {
	return &Engine{p: p, sessions: sessions}
}

// callCtx bounds one gateway round trip.
func (e *Engine) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.p.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.p.CallTimeout)
}

// begin takes the engine lock and the live link. Work started here runs to
// completion even if the caller goes away.
func (e *Engine) begin(ctx context.Context) (context.Context, interfaces.Link, func(), error) {
	e.mu.Lock()
	link, err := e.sessions.Link()
	if err != nil {
		e.mu.Unlock()
		return nil, nil, nil, err
	}
	return context.WithoutCancel(ctx), link, e.mu.Unlock, nil
}

func (e *Engine) ResolveInstrument(ctx context.Context, symbol string) (types.Instrument, error) {
	ctx, link, done, err := e.begin(ctx)
	if err != nil {
		return types.Instrument{}, err
	}
	defer done()
	return e.resolve(ctx, link, symbol)
}

func (e *Engine) resolve(ctx context.Context, link interfaces.Link, symbol string) (types.Instrument, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return types.Instrument{}, types.UnknownSymbol(symbol)
	}

	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	got, err := link.Qualify(cctx, types.Instrument{Symbol: symbol, Exchange: e.p.Exchange, Currency: e.p.Currency})
	if err != nil {
		return types.Instrument{}, types.ProtocolError("qualify", err)
	}
	if len(got) == 0 {
		logger.Warn(ctx, "Symbol did not qualify", "symbol", symbol, "exchange", e.p.Exchange, "currency", e.p.Currency)
		return types.Instrument{}, types.UnknownSymbol(symbol)
	}
	return got[0], nil
}

func (e *Engine) nextOrderID(ctx context.Context, link interfaces.Link) (int64, error) {
	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	id, err := link.NextOrderID(cctx)
	if err != nil {
		return 0, types.ProtocolError("next order id", err)
	}
	return id, nil
}

// submit sends one leg and records it.
func (e *Engine) submit(ctx context.Context, link interfaces.Link, inst types.Instrument, leg string, spec types.OrderSpec) (types.OrderStatus, error) {
	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	st, err := link.PlaceOrder(cctx, inst, spec)
	if err != nil {
		return types.OrderStatus{}, types.ProtocolError("place "+leg, err)
	}
	recordSubmission(ctx, inst, leg, spec, st)
	return st, nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
