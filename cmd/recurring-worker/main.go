package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"monea/internal/config"
	"monea/internal/log"
	"monea/internal/services"
	"monea/internal/storage"
	"monea/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logCfg := log.DefaultConfig()
	logCfg.Component = log.ComponentRecurring
	if cfg.Debug {
		logCfg.Level = slog.LevelDebug
		logCfg.Handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := log.New(logCfg)
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize storage", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	transactions := services.NewTransactionService(repo, nil, logger)
	budgets := services.NewBudgetService(repo, logger)
	creditCards := services.NewCreditCardService(repo, transactions, logger)
	recurring := services.NewRecurringService(repo, transactions, logger)
	alerts := services.NewAlertService(repo, budgets, creditCards, logger)

	recurringWorker := worker.NewRecurringWorker(repo, recurring, alerts, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Recurring worker started", "interval", cfg.RecurringInterval)
	if err := recurringWorker.Run(ctx, cfg.RecurringInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
