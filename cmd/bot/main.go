package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"trade-relay-bot/internal/logger"
	"trade-relay-bot/internal/session"
	"trade-relay-bot/internal/trace"
)

const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() (code int) {
	if err := initializeSystem(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = trace.Shutdown(sctx)
	}()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return 1
	}

	initializeJournal(ctx, cfg)

	gw, err := initializeGateway(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize gateway", err)
		return 1
	}

	sessions := initializeSession(cfg, gw)
	release := releaser(sessions)
	defer release()
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "Bot crashed", "panic", fmt.Sprint(r))
			release()
			code = 1
		}
	}()

	dispatcher := initializeDispatcher(cfg, initializeEngine(cfg, sessions))
	bot, err := initializeTelegram(cfg, dispatcher)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize chat transport", err)
		return 1
	}

	if _, err := sessions.Acquire(ctx); err != nil {
		logger.ErrorWithErr(ctx, "Failed to start bot", err)
		return 1
	}

	if srv := initializeHTTP(cfg, sessions); srv != nil {
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.ErrorWithErr(ctx, "Status server failed", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	logger.Info(ctx, "Bot started", "mode", cfg.Mode, "client_id", sessions.ClientID())

	if err := bot.Run(ctx); err != nil {
		logger.ErrorWithErr(ctx, "Chat transport stopped", err)
		return 1
	}

	logger.Info(ctx, "Shutting down")
	return 0
}

// releaser returns a function that releases the session once, however many
// shutdown paths call it.
func releaser(sessions *session.Manager) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := sessions.Release(ctx); err != nil {
				logger.ErrorWithErr(ctx, "Session release failed", err)
			}
		})
	}
}
