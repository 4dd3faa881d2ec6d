package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/giftledger-backend/internal/cron"
	"github.com/angelmondragon/giftledger-backend/internal/ledger"
	"github.com/angelmondragon/giftledger-backend/internal/orders"
	"github.com/angelmondragon/giftledger-backend/pkg/config"
	"github.com/angelmondragon/giftledger-backend/pkg/db"
	"github.com/angelmondragon/giftledger-backend/pkg/logger"
	"github.com/angelmondragon/giftledger-backend/pkg/metrics"
	"github.com/angelmondragon/giftledger-backend/pkg/migrate"
	"github.com/angelmondragon/giftledger-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)
	jobMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	conn := dbClient.DB()
	ledgerService, err := ledger.NewService(ledger.NewRepository(conn), dbClient, logg, ledgerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:       orders.NewRepository(conn),
		Ledger:     ledgerService,
		Tx:         dbClient,
		Logger:     logg,
		ReadyAfter: cfg.Orders.ReadyAfter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	readyJob, err := cron.NewReadyForGiftingJob(orderService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ready-for-gifting job", err)
		os.Exit(1)
	}
	reconcileJob, err := cron.NewLedgerReconcileJob(ledgerService, logg, ledgerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger reconcile job", err)
		os.Exit(1)
	}
	registry, err := cron.NewRegistry(readyJob, reconcileJob)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron"), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Cron.Interval.String(),
		"once":     *once,
	})
	logg.Info(ctx, "starting cron worker")

	if *once {
		err = service.RunOnce(ctx)
	} else {
		err = service.Run(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
