package engine

import (
	"context"

	"trade-relay-bot/internal/interfaces"
	"trade-relay-bot/internal/types"
)

// PlaceBracket submits a market entry with take-profit and stop-loss exits.
//
// The exits carry the opposite direction and name the entry as parent. Legs
// go out entry, take-profit, stop-loss; only the stop-loss transmits, which
// releases the held group. All three legs are submitted even when one is
// rejected, so the gateway never keeps an untransmitted entry. The first
// rejected leg decides the Rejected outcome. A transport error stops the
// sequence.
func (e *Engine) PlaceBracket(ctx context.Context, req types.BracketRequest) (types.Outcome, error) {
	ctx, link, done, err := e.begin(ctx)
	if err != nil {
		return types.Outcome{}, err
	}
	defer done()

	inst, err := e.resolve(ctx, link, req.Symbol)
	if err != nil {
		return types.Outcome{}, err
	}

	tp := roundToTick(req.TakeProfit, e.p.MinTick)
	sl := roundToTick(req.StopLoss, e.p.MinTick)

	legs, err := e.bracketLegs(ctx, link, req, tp, sl)
	if err != nil {
		return types.Outcome{}, err
	}

	var rejected *types.Outcome
	for _, l := range legs {
		st, err := e.submit(ctx, link, inst, l.name, l.spec)
		if err != nil {
			return types.Outcome{}, err
		}
		if st.Rejected && rejected == nil {
			rejected = &types.Outcome{
				Kind:    types.OutcomeRejected,
				Symbol:  inst.Symbol,
				OrderID: l.spec.OrderID,
				Message: st.LastMessage(),
			}
		}
	}
	if rejected != nil {
		return *rejected, nil
	}

	return types.Outcome{
		Kind:       types.OutcomePlaced,
		Bracket:    true,
		Symbol:     inst.Symbol,
		Direction:  req.Direction,
		Quantity:   req.Quantity,
		OrderID:    legs[0].spec.OrderID,
		TakeProfit: tp,
		StopLoss:   sl,
	}, nil
}

type leg struct {
	name string
	spec types.OrderSpec
}

func (e *Engine) bracketLegs(ctx context.Context, link interfaces.Link, req types.BracketRequest, tp, sl float64) ([]leg, error) {
	ids := make([]int64, 3)
	for i := range ids {
		id, err := e.nextOrderID(ctx, link)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}

	exit := req.Direction.Opposite()
	return []leg{
		{legEntry, types.OrderSpec{
			OrderID:  ids[0],
			Action:   req.Direction,
			Type:     types.OrderTypeMarket,
			Quantity: req.Quantity,
		}},
		{legTakeProfit, types.OrderSpec{
			OrderID:    ids[1],
			ParentID:   ids[0],
			Action:     exit,
			Type:       types.OrderTypeLimit,
			Quantity:   req.Quantity,
			LimitPrice: tp,
		}},
		{legStopLoss, types.OrderSpec{
			OrderID:   ids[2],
			ParentID:  ids[0],
			Action:    exit,
			Type:      types.OrderTypeStop,
			Quantity:  req.Quantity,
			StopPrice: sl,
			Transmit:  true,
		}},
	}, nil
}

// PlaceMarket submits a single transmitted market order.
func (e *Engine) PlaceMarket(ctx context.Context, req types.MarketRequest) (types.Outcome, error) {
	ctx, link, done, err := e.begin(ctx)
	if err != nil {
		return types.Outcome{}, err
	}
	defer done()

	inst, err := e.resolve(ctx, link, req.Symbol)
	if err != nil {
		return types.Outcome{}, err
	}

	id, err := e.nextOrderID(ctx, link)
	if err != nil {
		return types.Outcome{}, err
	}

	spec := types.OrderSpec{
		OrderID:  id,
		Action:   req.Direction,
		Type:     types.OrderTypeMarket,
		Quantity: req.Quantity,
		Transmit: true,
	}
	st, err := e.submit(ctx, link, inst, legMarket, spec)
	if err != nil {
		return types.Outcome{}, err
	}
	if st.Rejected {
		return types.Outcome{Kind: types.OutcomeRejected, Symbol: inst.Symbol, OrderID: id, Message: st.LastMessage()}, nil
	}

	return types.Outcome{
		Kind:      types.OutcomePlaced,
		Symbol:    inst.Symbol,
		Direction: req.Direction,
		Quantity:  req.Quantity,
		OrderID:   id,
	}, nil
}
