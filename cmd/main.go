package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"paygate/internal/bootstrap"
	"paygate/internal/config"
	cronpkg "paygate/internal/cron"
	"paygate/internal/handler"
	"paygate/internal/notify"
	"paygate/internal/payment"
	"paygate/internal/repository"
	"paygate/internal/router"
	"paygate/internal/service"
	"paygate/internal/webhook"
)

func main() {
	// --- Logger ---
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if hasArg("--bootstrap-db") {
		if err := runDBBootstrap(); err != nil {
			logger.Fatal("Database bootstrap failed", zap.Error(err))
		}
		logger.Info("Database bootstrap completed")
		return
	}

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// --- Payment gateway ---
	registry := payment.NewRegistry(cfg.Payment, logger)
	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	_, err = registry.Initialize(initCtx)
	cancelInit()
	if err != nil {
		logger.Fatal("Failed to initialize payment gateway", zap.Error(err))
	}

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database, cfg.Server.Env == "development")
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := bootstrap.Migrate(db); err != nil {
		logger.Fatal("Failed to bootstrap database schema", zap.Error(err))
	}

	payments := repository.NewPaymentRepository(db)

	// --- Webhook pipeline ---
	ledger, err := newLedger(cfg, db, logger)
	if err != nil {
		logger.Fatal("Failed to create webhook ledger", zap.Error(err))
	}

	var events webhook.EventHandler = payments
	if cfg.Bot.Token != "" && cfg.Bot.ReportChatID != 0 {
		tb, err := notify.NewBot(cfg.Bot.Token)
		if err != nil {
			logger.Warn("Telegram reporting disabled", zap.Error(err))
		} else {
			events = notify.NewTelegramReporter(payments, tb, cfg.Bot.ReportChatID, logger)
		}
	}

	dispatcher := webhook.NewDispatcher(ledger, events, logger)
	processor := webhook.NewProcessor(registry, dispatcher)
	checkout := service.NewCheckoutService(registry, payments, logger)

	// --- Echo ---
	e := echo.New()
	e.HideBanner = true

	// --- Routes ---
	router.Setup(e, router.Handlers{
		Payment: handler.NewPaymentHandler(checkout, payments, logger),
		Webhook: handler.NewWebhookHandler(processor, registry, logger),
	}, logger, cfg.API.Key, cfg.API.KeyHash)
	if cfg.API.Key == "" && cfg.API.KeyHash == "" {
		logger.Warn("API_KEY and API_KEY_HASH are empty, /api rejects every request")
	}

	// --- Cron Scheduler ---
	scheduler := cronpkg.New(checkout, cronpkg.Options{
		Schedule:    cfg.Cron.ReconcileSchedule,
		StaleAfter:  cfg.Cron.StaleAfter,
		ExpireAfter: cfg.Cron.ExpireAfter,
	}, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// --- Start Server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting paygate server", zap.String("addr", addr))
		if err := e.Start(addr); err != nil {
			logger.Info("Server stopped", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	// Stop cron
	ctx := scheduler.Stop()
	<-ctx.Done()

	// Stop HTTP server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	registry.Reset()
	logger.Info("Server exited")
}

func newLedger(cfg *config.Config, db *gorm.DB, logger *zap.Logger) (webhook.Ledger, error) {
	switch cfg.Ledger.Backend {
	case config.LedgerRedis:
		ledger, err := webhook.NewRedisLedger(cfg.Redis.Addr, cfg.Redis.Pass, cfg.Redis.DB, cfg.Ledger.TTL)
		if err != nil {
			logger.Warn("Redis unavailable for webhook ledger, using in-memory fallback", zap.Error(err))
		}
		return ledger, nil
	case config.LedgerMySQL:
		return webhook.NewGormLedger(db), nil
	case config.LedgerDynamoDB:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := webhook.NewDynamoClient(ctx, cfg.Ledger.AWSRegion, cfg.Ledger.DynamoEndpoint, cfg.Ledger.AWSAccessKey, cfg.Ledger.AWSSecretKey)
		if err != nil {
			return nil, err
		}
		return webhook.NewDynamoLedger(client, cfg.Ledger.DynamoTable, cfg.Ledger.TTL), nil
	default:
		return webhook.NewMemoryLedger(cfg.Ledger.TTL), nil
	}
}

func hasArg(name string) bool {
	for _, arg := range os.Args[1:] {
		if arg == name {
			return true
		}
	}
	return false
}

func runDBBootstrap() error {
	dbCfg, err := config.LoadDatabaseOnly()
	if err != nil {
		return err
	}
	db, err := config.NewDatabase(dbCfg, false)
	if err != nil {
		return err
	}
	return bootstrap.Migrate(db)
}
