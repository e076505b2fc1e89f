package engine

import (
	"trade-relay-bot/internal/interfaces"
	"trade-relay-bot/internal/store"
)

func New(cfg *store.Config, sessions interfaces.SessionProvider) interfaces.Engine {
	return newEngine(Params{
		Exchange:    cfg.Orders.Exchange,
		Currency:    cfg.Orders.Currency,
		CallTimeout: cfg.Orders.CallTimeout,
		MinTick:     cfg.Orders.MinTick,
	}, sessions)
}
