package interfaces

import (
	"context"

	"trade-relay-bot/internal/types"
)

type Engine interface {
	ResolveInstrument(ctx context.Context, symbol string) (types.Instrument, error)
	PlaceBracket(ctx context.Context, req types.BracketRequest) (types.Outcome, error)
	PlaceMarket(ctx context.Context, req types.MarketRequest) (types.Outcome, error)
	ModifyExitLegs(ctx context.Context, req types.ModifyRequest) (types.Outcome, error)
}
