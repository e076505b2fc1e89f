package engineobs

import (
	"context"
	"time"

	"trade-relay-bot/internal/interfaces"
	"trade-relay-bot/internal/logger"
	"trade-relay-bot/internal/trace"
	"trade-relay-bot/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) ResolveInstrument(ctx context.Context, symbol string) (types.Instrument, error) {
	ctx, span := trace.StartSpan(ctx, "engine.ResolveInstrument", trace.SymbolKey.String(symbol))
	defer span.End()

	inst, err := oe.engine.ResolveInstrument(ctx, symbol)
	if err != nil {
		logger.WarnSkip(ctx, 1, "Instrument resolution failed", "symbol", symbol, "error", err)
		return types.Instrument{}, err
	}

	logger.DebugSkip(ctx, 1, "Instrument resolved", "symbol", inst.Symbol, "con_id", inst.ConID)
	return inst, nil
}

func (oe *observableEngine) PlaceBracket(ctx context.Context, req types.BracketRequest) (types.Outcome, error) {
	ctx, span := trace.StartSpan(ctx, "engine.PlaceBracket",
		trace.SymbolKey.String(req.Symbol),
		trace.ActionKey.String(req.Direction.String()),
		trace.QuantityKey.Int(req.Quantity),
		trace.LegKey.StringSlice([]string{"entry", "take_profit", "stop_loss"}),
	)
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Placing bracket order",
		"symbol", req.Symbol,
		"direction", req.Direction,
		"qty", req.Quantity,
		"take_profit", req.TakeProfit,
		"stop_loss", req.StopLoss,
	)

	out, err := oe.engine.PlaceBracket(ctx, req)
	return oe.done(ctx, "Bracket order", start, out, err)
}

func (oe *observableEngine) PlaceMarket(ctx context.Context, req types.MarketRequest) (types.Outcome, error) {
	ctx, span := trace.StartSpan(ctx, "engine.PlaceMarket",
		trace.SymbolKey.String(req.Symbol),
		trace.ActionKey.String(req.Direction.String()),
		trace.QuantityKey.Int(req.Quantity),
		trace.LegKey.String("market"),
	)
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Placing market order",
		"symbol", req.Symbol,
		"direction", req.Direction,
		"qty", req.Quantity,
	)

	out, err := oe.engine.PlaceMarket(ctx, req)
	return oe.done(ctx, "Market order", start, out, err)
}

func (oe *observableEngine) ModifyExitLegs(ctx context.Context, req types.ModifyRequest) (types.Outcome, error) {
	ctx, span := trace.StartSpan(ctx, "engine.ModifyExitLegs",
		trace.SymbolKey.String(req.Symbol),
		trace.OrderIDKey.Int64(req.OrderID),
		trace.LegKey.String("modify"),
	)
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Modifying exit legs",
		"symbol", req.Symbol,
		"order_id", req.OrderID,
		"take_profit", req.TakeProfit,
		"stop_loss", req.StopLoss,
	)

	out, err := oe.engine.ModifyExitLegs(ctx, req)
	return oe.done(ctx, "Exit leg modification", start, out, err)
}

func (oe *observableEngine) done(ctx context.Context, what string, start time.Time, out types.Outcome, err error) (types.Outcome, error) {
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 2, what+" failed", err,
			"kind", types.KindOf(err).String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return types.Outcome{}, err
	}

	trace.Annotate(ctx, trace.OutcomeKey.String(out.Kind.String()))
	logger.InfoSkip(ctx, 2, what+" finished",
		"symbol", out.Symbol,
		"outcome", out.Kind.String(),
		"order_id", out.OrderID,
		"message", out.Message,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
