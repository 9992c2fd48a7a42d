// Package main is the entry point for the Finova Finanzas Telegram bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitlab.com/yelinaung/finova-bot/internal/api"
	"gitlab.com/yelinaung/finova-bot/internal/bot"
	"gitlab.com/yelinaung/finova-bot/internal/config"
	"gitlab.com/yelinaung/finova-bot/internal/database"
	"gitlab.com/yelinaung/finova-bot/internal/logger"
	"gitlab.com/yelinaung/finova-bot/internal/telemetry"
	"gitlab.com/yelinaung/finova-bot/internal/tokenstore"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("finova-bot %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.SetLevel(cfg.LogLevel)
	logger.SetFormat(cfg.LogFormat)
	logger.InitHashSalt()

	shutdown, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to set up telemetry")
	}
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	slots, closeSlots, err := openTokenStore(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("store", cfg.TokenStore).Msg("Failed to open token store")
	}
	defer closeSlots()

	client := api.NewClient(cfg.APIBaseURL, cfg.APITimeout)
	logger.Log.Info().
		Str("api", cfg.APIBaseURL).
		Str("store", cfg.TokenStore).
		Str("version", version).
		Msg("Backend client ready")

	telegramBot, err := bot.New(cfg, client, slots)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create bot")
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Log.Info().Msg("Shutting down...")
		cancel()
	}()

	telegramBot.Start(ctx)
}

// openTokenStore opens the durable session slots selected by TOKEN_STORE.
func openTokenStore(ctx context.Context, cfg *config.Config) (bot.SlotSource, func(), error) {
	switch cfg.TokenStore {
	case config.TokenStorePostgres:
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Log.Info().Msg("Database initialized successfully")
		return tokenstore.NewPostgres(pool), pool.Close, nil

	case config.TokenStoreSQLite:
		store, err := tokenstore.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Log.Warn().Err(err).Msg("Failed to close token store")
			}
		}, nil

	default:
		logger.Log.Warn().Msg("Sessions are kept in memory and will not survive a restart")
		return tokenstore.NewMemory(), func() {}, nil
	}
}
