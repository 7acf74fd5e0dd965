package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"monbudget/internal/amqp"
	"monbudget/internal/backend"
	"monbudget/internal/config"
	applog "monbudget/internal/log"
	"monbudget/internal/sheets"
	"monbudget/internal/sheets/google"
	sheetsmem "monbudget/internal/sheets/memory"
	"monbudget/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logCfg := applog.DefaultConfig()
	logCfg.Component = applog.ComponentWorker
	logger := applog.New(logCfg)
	applog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the sync worker")
		os.Exit(1)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			logger.Error("Failed to initialize Sentry", "error", err)
			os.Exit(1)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger)
	result, err := factory.CreateStore(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	// Overview sink. Without a spreadsheet the worker still runs and
	// keeps an in-memory copy, which is useful for local development.
	var overviews sheets.OverviewWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := google.NewClient(ctx, google.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetBase:       cfg.GoogleSheetBase,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		overviews = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		overviews = sheetsmem.NewStore()
		logger.Info("No spreadsheet configured, overview export disabled")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewSyncWorker(result.Store, overviews, logger.Logger)

	// Catch up on anything missed while the worker was down.
	if err := w.StartupSyncCheck(ctx); err != nil {
		logger.Error("Startup sync check failed", "error", err)
		sentry.CaptureException(err)
	}

	go func() {
		logger.Info("Waiting for snapshot sync messages", "queue", cfg.AMQPQueue)
		if err := amqpClient.ConsumeSnapshotSync(ctx, func(msg *amqp.SnapshotSyncMessage) error {
			return w.HandleSyncMessage(ctx, msg)
		}); err != nil {
			logger.Error("AMQP consumer stopped", "error", err)
			sentry.CaptureException(err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Consumer context cancelled")
	}

	cancel()
	logger.Info("Sync worker stopped")
}
