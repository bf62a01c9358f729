package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"monea/internal/amqp"
	"monea/internal/auth"
	"monea/internal/cache"
	"monea/internal/config"
	apphttp "monea/internal/http"
	"monea/internal/log"
	"monea/internal/services"
	"monea/internal/storage"
)

func main() {
	// Load .env for local development; production sets real env vars.
	_ = godotenv.Load()

	cfg := config.Load()

	logCfg := log.DefaultConfig()
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

	tokens := auth.NewTokenService(cfg.SecretKey, cfg.TokenTTL)

	// Transaction events go to the queue only when AMQP is configured; the
	// API works standalone without it.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, transaction events will not be published")
	}

	authSvc := services.NewAuthService(repo, tokens, logger)
	transactions := services.NewTransactionService(repo, publisher, logger)
	budgets := services.NewBudgetService(repo, logger)
	creditCards := services.NewCreditCardService(repo, transactions, logger)
	recurring := services.NewRecurringService(repo, transactions, logger)
	alerts := services.NewAlertService(repo, budgets, creditCards, logger)
	goals := services.NewGoalService(repo, alerts, logger)
	analytics := services.NewAnalyticsService(repo, budgets, logger)
	canSpend := services.NewCanSpendService(repo, budgets, creditCards, analytics, logger)
	subscriptions := services.NewSubscriptionService(repo, logger)
	investments := services.NewInvestmentService(repo, logger)
	exports := services.NewExportService(repo, logger)

	cacheManager := cache.NewManager()
	cacheManager.Register(analytics.Cache())
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, repo, tokens, apphttp.Services{
		Auth:          authSvc,
		Transactions:  transactions,
		Budgets:       budgets,
		Goals:         goals,
		CreditCards:   creditCards,
		Recurring:     recurring,
		Alerts:        alerts,
		Analytics:     analytics,
		CanSpend:      canSpend,
		Subscriptions: subscriptions,
		Investments:   investments,
		Exports:       exports,
	}, logger)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting monea server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
