package paper

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"trade-relay-bot/internal/interfaces"
	"trade-relay-bot/internal/types"
)

// Params configures the simulated terminal. An empty Symbols list accepts
// any well-formed ticker. StaleClientIDs are identities the terminal still
// considers claimed by a previous process.
type Params struct {
	Symbols        []string
	StaleClientIDs []int
}

type record struct {
	inst     types.Instrument
	spec     types.OrderSpec
	status   string
	clientID int
}

// Gateway is an in-process paper trading terminal. Orders live as long as
// the Gateway value, independent of the links that placed them.
type Gateway struct {
	mu          sync.Mutex
	symbols     map[string]int64
	stale       map[int]bool
	links       map[int]*link
	orders      map[int64]*record
	sequence    []int64
	nextOrderID int64
	nextConID   int64
	anySymbol   bool
}

var (
	_ interfaces.Gateway = (*Gateway)(nil)
	_ interfaces.Link    = (*link)(nil)

	tickerPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,11}$`)
)

func New(p Params) *Gateway {
	g := &Gateway{
		symbols:     make(map[string]int64),
		stale:       make(map[int]bool),
		links:       make(map[int]*link),
		orders:      make(map[int64]*record),
		nextOrderID: 1,
		nextConID:   1000,
		anySymbol:   len(p.Symbols) == 0,
	}
	for _, s := range p.Symbols {
		g.symbols[strings.ToUpper(strings.TrimSpace(s))] = g.conID()
	}
	for _, id := range p.StaleClientIDs {
		g.stale[id] = true
	}
	return g
}

func (g *Gateway) conID() int64 {
	g.nextConID++
	return g.nextConID
}

func (g *Gateway) Dial(ctx context.Context, host string, port int, clientID int) (interfaces.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stale[clientID] {
		return nil, fmt.Errorf("client id %d still draining: %w", clientID, types.ErrClientIDInUse)
	}
	if _, ok := g.links[clientID]; ok {
		return nil, fmt.Errorf("client id %d: %w", clientID, types.ErrClientIDInUse)
	}

	l := &link{gw: g, clientID: clientID, addr: fmt.Sprintf("%s:%d", host, port), connected: true}
	g.links[clientID] = l
	return l, nil
}

// Drop simulates the terminal closing a client's socket.
func (g *Gateway) Drop(clientID int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l, ok := g.links[clientID]; ok {
		l.connected = false
		delete(g.links, clientID)
	}
}

// ReleaseStale clears a draining identity so it can be claimed again.
func (g *Gateway) ReleaseStale(clientID int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.stale, clientID)
}

type link struct {
	gw        *Gateway
	clientID  int
	addr      string
	connected bool
}

func (l *link) ClientID() int {
	return l.clientID
}

func (l *link) IsConnected() bool {
	l.gw.mu.Lock()
	defer l.gw.mu.Unlock()
	return l.connected
}

func (l *link) Close() error {
	l.gw.mu.Lock()
	defer l.gw.mu.Unlock()
	if !l.connected {
		return nil
	}
	l.connected = false
	if l.gw.links[l.clientID] == l {
		delete(l.gw.links, l.clientID)
	}
	return nil
}

// check must be called with gw.mu held.
func (l *link) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !l.connected {
		return types.ErrNotConnected
	}
	return nil
}

func (l *link) Qualify(ctx context.Context, inst types.Instrument) ([]types.Instrument, error) {
	l.gw.mu.Lock()
	defer l.gw.mu.Unlock()
	if err := l.check(ctx); err != nil {
		return nil, err
	}

	symbol := strings.ToUpper(strings.TrimSpace(inst.Symbol))
	conID, ok := l.gw.symbols[symbol]
	if !ok {
		if !l.gw.anySymbol || !tickerPattern.MatchString(symbol) {
			return nil, nil
		}
		conID = l.gw.conID()
		l.gw.symbols[symbol] = conID
	}

	inst.Symbol = symbol
	inst.ConID = conID
	return []types.Instrument{inst}, nil
}

func (l *link) NextOrderID(ctx context.Context) (int64, error) {
	l.gw.mu.Lock()
	defer l.gw.mu.Unlock()
	if err := l.check(ctx); err != nil {
		return 0, err
	}
	id := l.gw.nextOrderID
	l.gw.nextOrderID++
	return id, nil
}

func (l *link) PlaceOrder(ctx context.Context, inst types.Instrument, spec types.OrderSpec) (types.OrderStatus, error) {
	l.gw.mu.Lock()
	defer l.gw.mu.Unlock()
	if err := l.check(ctx); err != nil {
		return types.OrderStatus{}, err
	}

	if reason := l.gw.validate(inst, spec); reason != "" {
		return rejected(spec.OrderID, reason), nil
	}

	if existing, ok := l.gw.orders[spec.OrderID]; ok {
		if existing.inst.Symbol != inst.Symbol {
			return rejected(spec.OrderID, fmt.Sprintf("Order %d belongs to %s, not %s", spec.OrderID, existing.inst.Symbol, inst.Symbol)), nil
		}
		existing.spec = spec
		return types.OrderStatus{
			OrderID: spec.OrderID,
			Status:  existing.status,
			Log:     []string{fmt.Sprintf("Order %d modified", spec.OrderID)},
		}, nil
	}

	status := types.StatusPreSubmitted
	if spec.Transmit {
		status = types.StatusSubmitted
	}
	l.gw.orders[spec.OrderID] = &record{inst: inst, spec: spec, status: status, clientID: l.clientID}
	l.gw.sequence = append(l.gw.sequence, spec.OrderID)
	if spec.OrderID >= l.gw.nextOrderID {
		l.gw.nextOrderID = spec.OrderID + 1
	}

	if spec.Transmit && spec.ParentID != 0 {
		l.gw.promoteGroup(spec.ParentID)
	}

	return types.OrderStatus{
		OrderID: spec.OrderID,
		Status:  status,
		Log:     []string{fmt.Sprintf("Order %d accepted as %s", spec.OrderID, status)},
	}, nil
}

// validate returns the rejection reason, or "" when the order is acceptable.
func (g *Gateway) validate(inst types.Instrument, spec types.OrderSpec) string {
	if spec.OrderID <= 0 {
		return fmt.Sprintf("Invalid order id %d", spec.OrderID)
	}
	if _, ok := g.symbols[inst.Symbol]; !ok {
		return fmt.Sprintf("No security definition has been found for %s", inst.Symbol)
	}
	if spec.Quantity <= 0 {
		return fmt.Sprintf("Order quantity %d must be positive", spec.Quantity)
	}
	if spec.LimitPrice < 0 || spec.StopPrice < 0 {
		return "Order price must not be negative"
	}
	if spec.Action != types.Buy && spec.Action != types.Sell {
		return fmt.Sprintf("Invalid action %s", spec.Action)
	}
	if spec.ParentID != 0 {
		if _, ok := g.orders[spec.ParentID]; !ok {
			return fmt.Sprintf("Invalid parent order id %d", spec.ParentID)
		}
	}
	return ""
}

// promoteGroup activates a held parent and its held children.
func (g *Gateway) promoteGroup(parentID int64) {
	for _, rec := range g.orders {
		if rec.spec.OrderID != parentID && rec.spec.ParentID != parentID {
			continue
		}
		if rec.status == types.StatusPreSubmitted {
			rec.status = types.StatusSubmitted
		}
	}
}

func rejected(orderID int64, reason string) types.OrderStatus {
	return types.OrderStatus{
		OrderID:  orderID,
		Status:   types.StatusRejected,
		Rejected: true,
		Log:      []string{reason},
	}
}

func (l *link) OpenOrders(ctx context.Context) ([]types.WorkingOrder, error) {
	l.gw.mu.Lock()
	defer l.gw.mu.Unlock()
	if err := l.check(ctx); err != nil {
		return nil, err
	}

	out := make([]types.WorkingOrder, 0, len(l.gw.sequence))
	for _, id := range l.gw.sequence {
		rec := l.gw.orders[id]
		out = append(out, types.WorkingOrder{Instrument: rec.inst, Spec: rec.spec, Status: rec.status})
	}
	return out, nil
}
