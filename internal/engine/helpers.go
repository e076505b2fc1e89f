package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"trade-relay-bot/internal/logger"
	"trade-relay-bot/internal/metrics"
	"trade-relay-bot/internal/tradelog"
	"trade-relay-bot/internal/types"
)

const (
	legEntry      = "entry"
	legTakeProfit = "take_profit"
	legStopLoss   = "stop_loss"
	legMarket     = "market"
	legModify     = "modify"
)

// roundToTick snaps price to the nearest multiple of tick. Zero and a
// non-positive tick leave the price as is.
func roundToTick(price, tick float64) float64 {
	if tick <= 0 || price == 0 {
		return price
	}
	t := decimal.NewFromFloat(tick)
	rounded, _ := decimal.NewFromFloat(price).Div(t).Round(0).Mul(t).Float64()
	return rounded
}

func recordSubmission(ctx context.Context, inst types.Instrument, leg string, spec types.OrderSpec, st types.OrderStatus) {
	metrics.OrderSubmitted(leg, st.Status)
	logger.Order(ctx, inst.Symbol, leg, spec.Action.String(), spec.OrderID, st.Status,
		"type", string(spec.Type),
		"qty", spec.Quantity,
		"parent_id", spec.ParentID,
		"limit_price", spec.LimitPrice,
		"stop_price", spec.StopPrice,
		"transmit", spec.Transmit,
		"gateway_message", st.LastMessage(),
	)
	if err := tradelog.Append(tradelog.Entry{
		Symbol:     inst.Symbol,
		Leg:        leg,
		Action:     spec.Action.String(),
		Type:       string(spec.Type),
		OrderID:    spec.OrderID,
		ParentID:   spec.ParentID,
		Qty:        spec.Quantity,
		LimitPrice: spec.LimitPrice,
		StopPrice:  spec.StopPrice,
		Status:     st.Status,
		Message:    st.LastMessage(),
	}); err != nil {
		logger.WarnSkip(ctx, 1, "Journal write failed", "error", err)
	}
}
