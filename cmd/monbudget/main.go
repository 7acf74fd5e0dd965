package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"monbudget/internal/amqp"
	"monbudget/internal/backend"
	"monbudget/internal/cache"
	"monbudget/internal/config"
	"monbudget/internal/core"
	"monbudget/internal/httpapi"
	"monbudget/internal/ledger"
	applog "monbudget/internal/log"
	"monbudget/internal/remote/httpkv"
	"monbudget/internal/savings"
	"monbudget/internal/syncer"
)

// lazyRecorder breaks the construction cycle between the ledger store
// and the savings service: the store is built first, the service is
// plugged in afterwards.
type lazyRecorder struct {
	svc *savings.Service
}

func (r *lazyRecorder) RecordTransaction(ctx context.Context, accountID string, amount core.Money, entryType core.SavingsEntryType, description string) error {
	if r.svc == nil {
		return nil
	}
	return r.svc.RecordTransaction(ctx, accountID, amount, entryType, description)
}

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
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

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			logger.Error("Failed to initialize Sentry", "error", err)
			os.Exit(1)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistence backend.
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

	// Ledger store with savings recording plugged in after the service
	// exists.
	recorder := &lazyRecorder{}
	var snapSyncer *syncer.Syncer
	store := ledger.NewStore(
		ledger.WithIDGenerator(uuid.NewString),
		ledger.WithSavingsRecorder(recorder),
		ledger.WithOnChange(func() {
			if snapSyncer != nil {
				snapSyncer.Notify()
			}
		}),
	)

	if snap, err := result.Store.LoadSnapshot(ctx); err == nil {
		store.Restore(snap)
		logger.Info("Ledger restored from backend", "backend", cfg.DataBackend, "budgets", len(snap.Budgets))
	} else if !errors.Is(err, core.ErrNotFound) {
		logger.Error("Failed to load snapshot", "error", err)
		os.Exit(1)
	}

	// Savings service and distribution planner.
	planner := savings.NewPlanner(result.Store, result.Store, func(key core.MonthKey) core.Money {
		return store.CurrentBudget(key).MonthlySavings
	}, cfg.DefaultAccountRouting, logger.WithComponent(applog.ComponentSavings).Logger)
	savingsService := savings.NewService(result.Store, planner, logger.WithComponent(applog.ComponentSavings).Logger)
	recorder.svc = savingsService

	cacheManager := cache.NewManager()
	cacheManager.Register(planner.CacheCleaner())
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	// Optional AMQP announcer.
	var syncOpts []syncer.Option
	syncOpts = append(syncOpts, syncer.WithDebounce(cfg.SyncDebounce),
		syncer.WithMaxErrors(cfg.SyncMaxErrors),
		syncer.WithLogger(logger.WithComponent(applog.ComponentSyncer).Logger))
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		syncOpts = append(syncOpts, syncer.WithPublisher(amqpClient))
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	// Optional remote mirror used to park snapshots when the primary
	// store is down.
	if cfg.RemoteBaseURL != "" {
		remote, err := httpkv.NewClient(httpkv.Options{
			BaseURL:   cfg.RemoteBaseURL,
			LedgerKey: cfg.RemoteLedgerKey,
			AuthToken: cfg.RemoteAuthToken,
		})
		if err != nil {
			logger.Error("Failed to initialize remote snapshot mirror", "error", err)
			os.Exit(1)
		}
		syncOpts = append(syncOpts, syncer.WithFallback(remote))
		logger.Info("Remote snapshot mirror initialized", "base_url", cfg.RemoteBaseURL)
	}

	snapSyncer = syncer.New(store.Snapshot, result.Store, syncOpts...)

	srv := httpapi.NewServer(":"+cfg.Port, store, savingsService, snapSyncer, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting monbudget server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := snapSyncer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Final snapshot sync failed", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
