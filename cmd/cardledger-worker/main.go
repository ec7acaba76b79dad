package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cardledger/internal/amqp"
	"cardledger/internal/config"
	applog "cardledger/internal/log"
	"cardledger/internal/services"
	"cardledger/internal/source"
	filesource "cardledger/internal/source/file"
	gsource "cardledger/internal/source/google"
	"cardledger/internal/storage"
	"cardledger/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.DefaultConfig().Level,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting cardledger-worker")

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

	sqliteRepo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer sqliteRepo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	dashboard := services.NewDashboard(src, sqliteRepo, nil)
	if err := dashboard.Initialize(ctx); err != nil {
		logger.Error("Initial load failed", "error", err)
		os.Exit(1)
	}

	refreshWorker := worker.NewRefreshWorker(dashboard, cfg.RefreshInterval)

	go func() {
		err := amqpClient.ConsumeRefreshRequests(ctx, func(msg *amqp.RefreshRequestMessage) error {
			return refreshWorker.HandleRefreshRequest(ctx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
			cancel()
		}
	}()

	// Periodic refresh covers lost messages and keeps snapshots current
	// even when nobody hits the API.
	go func() {
		if err := refreshWorker.RunPeriodic(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Periodic refresh stopped", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()

	// Give in-flight refreshes a moment to finish before the deferred
	// closes tear down AMQP and SQLite.
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
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
	default:
		return filesource.New(cfg.DataDir)
	}
}
