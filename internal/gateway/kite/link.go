package kite

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"trade-relay-bot/internal/interfaces"
	"trade-relay-bot/internal/types"
)

type held struct {
	inst types.Instrument
	spec types.OrderSpec
}

type link struct {
	kc       api
	p        Params
	clientID int
	userID   string
	tag      string

	mu        sync.Mutex
	connected bool
	nextID    int64
	// groups buffers held orders by the id of the group's root order.
	groups map[int64][]held
	// placed maps relay order ids to Kite order ids.
	placed map[int64]string
	local  map[string]int64
}

var _ interfaces.Link = (*link)(nil)

func newLink(kc api, p Params, clientID int, userID string) *link {
	return &link{
		kc:        kc,
		p:         p,
		clientID:  clientID,
		userID:    userID,
		tag:       fmt.Sprintf("relay%d", clientID),
		connected: true,
		nextID:    1,
		groups:    make(map[int64][]held),
		placed:    make(map[int64]string),
		local:     make(map[string]int64),
	}
}

func (l *link) ClientID() int {
	return l.clientID
}

func (l *link) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

// Close forgets the session. The access token stays valid; invalidating it
// would log the user out of every other Kite client.
func (l *link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = false
	l.groups = make(map[int64][]held)
	return nil
}

func (l *link) check() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return types.ErrNotConnected
	}
	return nil
}

func (l *link) Qualify(ctx context.Context, inst types.Instrument) ([]types.Instrument, error) {
	if err := l.check(); err != nil {
		return nil, err
	}

	key := inst.Exchange + ":" + inst.Symbol
	quotes, err := call(ctx, func() (kiteconnect.QuoteLTP, error) { return l.kc.GetLTP(key) })
	if err != nil {
		return nil, errors.Wrapf(err, "kite ltp %s", key)
	}

	q, ok := quotes[key]
	if !ok {
		return nil, nil
	}

	inst.ConID = int64(q.InstrumentToken)
	if inst.Currency == "" {
		inst.Currency = l.p.Currency
	}
	return []types.Instrument{inst}, nil
}

func (l *link) NextOrderID(ctx context.Context) (int64, error) {
	if err := l.check(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	return id, nil
}

// PlaceOrder buffers held orders and sends the whole group, in submission
// order, once a transmitted order of the group arrives. A rejected parent
// stops the group. An id Kite already
// lists among its orders is modified instead.
func (l *link) PlaceOrder(ctx context.Context, inst types.Instrument, spec types.OrderSpec) (types.OrderStatus, error) {
	if err := l.check(); err != nil {
		return types.OrderStatus{}, err
	}

	kiteID, exists, err := l.existing(ctx, spec.OrderID)
	if err != nil {
		return types.OrderStatus{}, err
	}
	if exists {
		return l.modify(ctx, inst, spec, kiteID)
	}

	root := spec.OrderID
	if spec.ParentID != 0 {
		root = spec.ParentID
	}

	l.mu.Lock()
	if !spec.Transmit {
		l.groups[root] = append(l.groups[root], held{inst: inst, spec: spec})
		l.mu.Unlock()
		return types.OrderStatus{
			OrderID: spec.OrderID,
			Status:  types.StatusPreSubmitted,
			Log:     []string{fmt.Sprintf("Order %d held until the group transmits", spec.OrderID)},
		}, nil
	}
	group := append(l.groups[root], held{inst: inst, spec: spec})
	delete(l.groups, root)
	l.mu.Unlock()

	// A rejected root leaves nothing to protect; a rejected exit does not
	// keep the remaining exits from going out. The first rejection is
	// reported.
	var last, first types.OrderStatus
	for _, h := range group {
		st, err := l.submit(ctx, h.inst, h.spec)
		if err != nil {
			return types.OrderStatus{}, err
		}
		if st.Rejected {
			if h.spec.OrderID == root {
				return st, nil
			}
			if !first.Rejected {
				first = st
			}
		}
		last = st
	}
	if first.Rejected {
		return first, nil
	}
	return last, nil
}

func (l *link) submit(ctx context.Context, inst types.Instrument, spec types.OrderSpec) (types.OrderStatus, error) {
	params := l.params(inst, spec)
	resp, err := call(ctx, func() (kiteconnect.OrderResponse, error) {
		return l.kc.PlaceOrder(kiteconnect.VarietyRegular, params)
	})
	if err != nil {
		if msg, ok := rejection(err); ok {
			return rejected(spec.OrderID, msg), nil
		}
		return types.OrderStatus{}, errors.Wrapf(err, "kite place order %d", spec.OrderID)
	}

	l.mu.Lock()
	l.placed[spec.OrderID] = resp.OrderID
	l.local[resp.OrderID] = spec.OrderID
	l.mu.Unlock()

	return l.status(ctx, spec.OrderID, resp.OrderID)
}

func (l *link) modify(ctx context.Context, inst types.Instrument, spec types.OrderSpec, kiteID string) (types.OrderStatus, error) {
	params := l.params(inst, spec)
	_, err := call(ctx, func() (kiteconnect.OrderResponse, error) {
		return l.kc.ModifyOrder(kiteconnect.VarietyRegular, kiteID, params)
	})
	if err != nil {
		if msg, ok := rejection(err); ok {
			return rejected(spec.OrderID, msg), nil
		}
		return types.OrderStatus{}, errors.Wrapf(err, "kite modify order %s", kiteID)
	}
	return l.status(ctx, spec.OrderID, kiteID)
}

// status reads the latest entry of the order's history.
func (l *link) status(ctx context.Context, orderID int64, kiteID string) (types.OrderStatus, error) {
	history, err := call(ctx, func() ([]kiteconnect.Order, error) { return l.kc.GetOrderHistory(kiteID) })
	if err != nil {
		return types.OrderStatus{}, errors.Wrapf(err, "kite order history %s", kiteID)
	}
	if len(history) == 0 {
		return types.OrderStatus{OrderID: orderID, Status: types.StatusSubmitted}, nil
	}

	last := history[len(history)-1]
	st := types.OrderStatus{OrderID: orderID, Status: mapStatus(last.Status)}
	for _, h := range history {
		if h.StatusMessage != "" {
			st.Log = append(st.Log, h.StatusMessage)
		}
	}
	st.Rejected = st.Status == types.StatusRejected
	return st, nil
}

// existing resolves orderID to a Kite order id when Kite still lists it.
// Ids this link handed out but never sent are new without asking Kite.
func (l *link) existing(ctx context.Context, orderID int64) (string, bool, error) {
	l.mu.Lock()
	kiteID, sent := l.placed[orderID]
	fresh := !sent && orderID < l.nextID
	l.mu.Unlock()
	if fresh {
		return "", false, nil
	}
	if !sent {
		kiteID = strconv.FormatInt(orderID, 10)
	}

	orders, err := call(ctx, l.kc.GetOrders)
	if err != nil {
		return "", false, errors.Wrap(err, "kite orders")
	}
	for _, o := range orders {
		if o.OrderID == kiteID {
			return kiteID, true, nil
		}
	}
	return "", false, nil
}

// relayID is the id an order is reported under: the relay id for orders this
// link placed, the numeric Kite id otherwise.
func (l *link) relayID(kiteID string) int64 {
	l.mu.Lock()
	id, ok := l.local[kiteID]
	l.mu.Unlock()
	if ok {
		return id
	}
	n, _ := strconv.ParseInt(kiteID, 10, 64)
	return n
}

func (l *link) OpenOrders(ctx context.Context) ([]types.WorkingOrder, error) {
	if err := l.check(); err != nil {
		return nil, err
	}

	orders, err := call(ctx, l.kc.GetOrders)
	if err != nil {
		return nil, errors.Wrap(err, "kite orders")
	}

	out := make([]types.WorkingOrder, 0, len(orders))
	for _, o := range orders {
		if !isOpen(o.Status) {
			continue
		}
		out = append(out, types.WorkingOrder{
			Instrument: types.Instrument{
				Symbol:   strings.ToUpper(o.TradingSymbol),
				Exchange: o.Exchange,
				Currency: l.p.Currency,
				ConID:    int64(o.InstrumentToken),
			},
			Spec: types.OrderSpec{
				OrderID:    l.relayID(o.OrderID),
				ParentID:   l.relayID(o.ParentOrderID),
				Action:     direction(o.TransactionType),
				Type:       orderType(o.OrderType),
				Quantity:   int(o.Quantity),
				LimitPrice: o.Price,
				StopPrice:  o.TriggerPrice,
				Transmit:   true,
			},
			Status: mapStatus(o.Status),
		})
	}
	return out, nil
}

func (l *link) params(inst types.Instrument, spec types.OrderSpec) kiteconnect.OrderParams {
	params := kiteconnect.OrderParams{
		Exchange:        inst.Exchange,
		Tradingsymbol:   inst.Symbol,
		Validity:        kiteconnect.ValidityDay,
		Product:         l.p.Product,
		OrderType:       kiteOrderType(spec.Type),
		TransactionType: spec.Action.String(),
		Quantity:        spec.Quantity,
		Tag:             l.tag,
	}
	switch spec.Type {
	case types.OrderTypeLimit:
		params.Price = spec.LimitPrice
	case types.OrderTypeStop:
		params.TriggerPrice = spec.StopPrice
	}
	return params
}
