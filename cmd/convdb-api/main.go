package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ambuj00/conversational-db/internal/api"
	"github.com/Ambuj00/conversational-db/internal/config"
	"github.com/Ambuj00/conversational-db/internal/nl2sql"
	"github.com/Ambuj00/conversational-db/internal/observability"
	"github.com/Ambuj00/conversational-db/internal/session"
	"github.com/Ambuj00/conversational-db/internal/store"
	"github.com/Ambuj00/conversational-db/internal/store/duckdb"
	"github.com/Ambuj00/conversational-db/internal/store/sqlite"
)

func main() {
	cfg, err := config.LoadFromEnv("convdb-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	openStore := duckdb.Open
	if cfg.Store.Driver == config.StoreDriverSQLite {
		openStore = sqlite.Open
	}

	translator, err := nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		MaxTokens:   cfg.AI.MaxTokens,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize query translator", slog.Any("error", err))
		os.Exit(1)
	}

	sessions, err := session.NewManager(session.Config{
		OpenStore: openStore,
		StoreOptions: store.Options{
			ReadOnly: cfg.Exec.ReadOnly,
			RowLimit: cfg.Exec.RowLimit,
		},
		Translator:     translator,
		FallbackAPIKey: cfg.AI.APIKey,
		MaxSessions:    cfg.Session.MaxSessions,
		IdleTTL:        cfg.Session.IdleTTL,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("failed to initialize session manager", slog.Any("error", err))
		os.Exit(1)
	}
	defer sessions.Close()

	handler := api.NewHandler(cfg, api.Dependencies{
		Logger:   logger,
		Sessions: sessions,
		Readiness: func(ctx context.Context) error {
			return store.VerifyDriver(ctx, openStore)
		},
		DependencyTimeout: time.Second,
	})
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sessions.RunJanitor(ctx, cfg.Session.SweepInterval)

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("store_driver", cfg.Store.Driver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
