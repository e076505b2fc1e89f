package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"trade-relay-bot/internal/dispatch"
	"trade-relay-bot/internal/engine"
	"trade-relay-bot/internal/engine/engineobs"
	"trade-relay-bot/internal/gateway/gatewayobs"
	"trade-relay-bot/internal/gateway/kite"
	"trade-relay-bot/internal/gateway/paper"
	"trade-relay-bot/internal/httpapi"
	"trade-relay-bot/internal/interfaces"
	"trade-relay-bot/internal/logger"
	"trade-relay-bot/internal/session"
	"trade-relay-bot/internal/store"
	"trade-relay-bot/internal/telegram"
	"trade-relay-bot/internal/trace"
	"trade-relay-bot/internal/tradelog"
)

// initializeSystem loads .env and sets up logging and tracing
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

func configPath() string {
	if p := os.Getenv("RELAY_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func loadConfig(ctx context.Context) (*store.Config, error) {
	cfg, err := store.LoadConfig(configPath())
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// initializeGateway picks the backend for cfg.Mode and wraps it with
// observability
func initializeGateway(ctx context.Context, cfg *store.Config) (interfaces.Gateway, error) {
	var gw interfaces.Gateway

	switch cfg.Mode {
	case store.ModeKite:
		apiKey := os.Getenv(cfg.Gateway.Kite.APIKeyEnv)
		token := os.Getenv(cfg.Gateway.Kite.AccessTokenEnv)
		if apiKey == "" || token == "" {
			return nil, fmt.Errorf("KITE mode needs %s and %s", cfg.Gateway.Kite.APIKeyEnv, cfg.Gateway.Kite.AccessTokenEnv)
		}
		gw = kite.NewGateway(kite.Params{
			APIKey:      apiKey,
			AccessToken: token,
			Product:     cfg.Gateway.Kite.Product,
			Currency:    cfg.Orders.Currency,
			HTTPTimeout: cfg.Orders.CallTimeout,
		})
		logger.Warn(ctx, "Running in KITE mode - orders go to the live broker")
	default:
		gw = paper.New(paper.Params{
			Symbols:        cfg.Gateway.Paper.Symbols,
			StaleClientIDs: cfg.Gateway.Paper.StaleClientIDs,
		})
		logger.Info(ctx, "Running in PAPER mode - orders are simulated in process",
			"symbols", len(cfg.Gateway.Paper.Symbols))
	}

	return gatewayobs.Wrap(gw), nil
}

func initializeSession(cfg *store.Config, gw interfaces.Gateway) *session.Manager {
	return session.New(gw, session.Params{
		Host:           cfg.Gateway.Host,
		Port:           cfg.Gateway.Port,
		ClientIDs:      cfg.Gateway.ClientIDs,
		MaxRetries:     cfg.Gateway.MaxRetries,
		AttemptTimeout: cfg.Gateway.AttemptTimeout,
		Backoff:        cfg.Gateway.Backoff,
	})
}

// initializeEngine builds the order engine with observability
func initializeEngine(cfg *store.Config, sessions interfaces.SessionProvider) interfaces.Engine {
	return engineobs.Wrap(engine.New(cfg, sessions))
}

func initializeDispatcher(cfg *store.Config, eng interfaces.Engine) *dispatch.Dispatcher {
	return dispatch.New(eng, dispatch.Params{
		AllowedCaller: cfg.Chat.AllowedChatID,
		SellMode:      cfg.Orders.SellMode,
	})
}

func initializeTelegram(cfg *store.Config, h telegram.Handler) (*telegram.Bot, error) {
	token := os.Getenv(cfg.Chat.TokenEnv)
	if token == "" {
		return nil, errors.New(cfg.Chat.TokenEnv + " is not set")
	}
	return telegram.New(telegram.Params{
		Token:       token,
		APIBase:     cfg.Chat.APIBase,
		PollTimeout: cfg.Chat.PollTimeout,
	}, h), nil
}

// initializeHTTP returns nil when the status server is disabled
func initializeHTTP(cfg *store.Config, status httpapi.Status) *httpapi.Server {
	if cfg.HTTP.Addr == "" {
		return nil
	}
	return httpapi.NewServer(cfg.HTTP.Addr, cfg.Mode, status)
}

// initializeJournal points the order journal at cfg.Journal.Dir and gzips
// files past the retention window.
func initializeJournal(ctx context.Context, cfg *store.Config) {
	tradelog.Init(cfg.Journal.Dir)
	if !tradelog.Enabled() {
		return
	}
	n, err := tradelog.CompressOlder(cfg.Journal.RetentionDays)
	if err != nil {
		logger.Warn(ctx, "Journal compaction failed", "error", err)
		return
	}
	logger.Info(ctx, "Journal ready", "dir", cfg.Journal.Dir, "compressed", n)
}
