package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cardledger/internal/amqp"
	"cardledger/internal/config"
	apphttp "cardledger/internal/http"
	applog "cardledger/internal/log"
	"cardledger/internal/services"
	"cardledger/internal/source"
	filesource "cardledger/internal/source/file"
	gsource "cardledger/internal/source/google"
	memsource "cardledger/internal/source/memory"
	"cardledger/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src, err := newSourceReader(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize data source", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	logger.Info("Initialized data source", "backend", cfg.DataBackend)

	// Snapshot persistence is optional: the dashboard serves from memory
	// either way.
	var repo services.SnapshotRepository
	if cfg.SQLiteDBPath != "" {
		sqliteRepo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer sqliteRepo.Close()
		repo = sqliteRepo
	}

	// Without AMQP, refresh requests run inline in the API process.
	var publisher services.RefreshPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, refreshes will run inline", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	dashboard := services.NewDashboard(src, repo, publisher)
	if err := dashboard.Initialize(ctx); err != nil {
		logger.Error("Initial load failed", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, dashboard, logger.WithComponent(applog.ComponentHTTP), cfg.CacheSize, cfg.CacheTTL)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting cardledger server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

func newSourceReader(ctx context.Context, cfg *config.Config) (source.Reader, error) {
	switch cfg.DataBackend {
	case "sheets":
		return gsource.New(ctx, gsource.Config{
			SpreadsheetID:     cfg.GoogleSpreadsheetID,
			APIKey:            cfg.GoogleAPIKey,
			CardsSheet:        cfg.GoogleCardsSheet,
			TransactionsSheet: cfg.GoogleTransactionsSheet,
			RewardsSheet:      cfg.GoogleRewardsSheet,
		})
	case "memory":
		return memsource.New(nil, nil, nil), nil
	default:
		return filesource.New(cfg.DataDir)
	}
}
