package engine

import (
	"context"
	"strings"

	"trade-relay-bot/internal/logger"
	"trade-relay-bot/internal/types"
)

// ModifyExitLegs overwrites the limit and stop price of the one working
// order matching (OrderID, Symbol) and resubmits it. Only that order is
// touched, whichever leg of a bracket it is.
func (e *Engine) ModifyExitLegs(ctx context.Context, req types.ModifyRequest) (types.Outcome, error) {
	ctx, link, done, err := e.begin(ctx)
	if err != nil {
		return types.Outcome{}, err
	}
	defer done()

	inst, err := e.resolve(ctx, link, req.Symbol)
	if err != nil {
		return types.Outcome{}, err
	}

	cctx, cancel := e.callCtx(ctx)
	open, err := link.OpenOrders(cctx)
	cancel()
	if err != nil {
		return types.Outcome{}, types.ProtocolError("open orders", err)
	}

	var target *types.WorkingOrder
	for i := range open {
		if open[i].Spec.OrderID == req.OrderID && strings.EqualFold(open[i].Instrument.Symbol, inst.Symbol) {
			target = &open[i]
			break
		}
	}
	if target == nil {
		logger.Info(ctx, "No working order to modify", "symbol", inst.Symbol, "order_id", req.OrderID, "open_orders", len(open))
		return types.Outcome{Kind: types.OutcomeNotFound, Modify: true, Symbol: inst.Symbol, OrderID: req.OrderID}, nil
	}

	tp := roundToTick(req.TakeProfit, e.p.MinTick)
	sl := roundToTick(req.StopLoss, e.p.MinTick)

	spec := target.Spec
	spec.LimitPrice = tp
	spec.StopPrice = sl
	spec.Transmit = true

	st, err := e.submit(ctx, link, inst, legModify, spec)
	if err != nil {
		return types.Outcome{}, err
	}
	if st.Rejected {
		return types.Outcome{
			Kind:    types.OutcomeRejected,
			Modify:  true,
			Symbol:  inst.Symbol,
			OrderID: req.OrderID,
			Message: st.LastMessage(),
		}, nil
	}

	return types.Outcome{
		Kind:       types.OutcomeUpdated,
		Modify:     true,
		Symbol:     inst.Symbol,
		OrderID:    req.OrderID,
		TakeProfit: tp,
		StopLoss:   sl,
	}, nil
}
