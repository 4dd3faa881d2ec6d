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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/giftledger-backend/api/controllers"
	"github.com/angelmondragon/giftledger-backend/api/routes"
	"github.com/angelmondragon/giftledger-backend/internal/auth"
	"github.com/angelmondragon/giftledger-backend/internal/ledger"
	"github.com/angelmondragon/giftledger-backend/internal/orders"
	"github.com/angelmondragon/giftledger-backend/internal/playerid"
	"github.com/angelmondragon/giftledger-backend/internal/sheets"
	"github.com/angelmondragon/giftledger-backend/internal/suppliers"
	"github.com/angelmondragon/giftledger-backend/internal/users"
	"github.com/angelmondragon/giftledger-backend/pkg/auth/session"
	"github.com/angelmondragon/giftledger-backend/pkg/config"
	"github.com/angelmondragon/giftledger-backend/pkg/db"
	"github.com/angelmondragon/giftledger-backend/pkg/logger"
	"github.com/angelmondragon/giftledger-backend/pkg/metrics"
	"github.com/angelmondragon/giftledger-backend/pkg/migrate"
	"github.com/angelmondragon/giftledger-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)

	ledgerService, err := ledger.NewService(ledger.NewRepository(conn), dbClient, logg, ledgerMetrics)
	if err != nil {
		return err
	}

	orderParams := orders.ServiceParams{
		Repo:        orders.NewRepository(conn),
		Ledger:      ledgerService,
		Tx:          dbClient,
		Logger:      logg,
		ReadyAfter:  cfg.Orders.ReadyAfter,
		SweepOnList: cfg.Orders.SweepOnList,
	}
	if cfg.Sheets.Enabled {
		notifier, sheetsErr := newSheetNotifier(ctx, cfg, logg, ledgerMetrics)
		if sheetsErr != nil {
			return sheetsErr
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			err = multierr.Append(err, notifier.Close(closeCtx))
		}()
		orderParams.Sheets = notifier
	}
	orderService, err := orders.NewService(orderParams)
	if err != nil {
		return err
	}

	supplierService, err := suppliers.NewService(suppliers.ServiceParams{
		Repo:     suppliers.NewRepository(conn),
		Users:    userRepo,
		Ledger:   ledgerService,
		Tx:       dbClient,
		Password: cfg.Password,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	profileService, err := users.NewProfileService(userRepo, dbClient, cfg.Password, logg)
	if err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		Logger:         logg,
	})
	if err != nil {
		return err
	}

	router := routes.NewRouter(routes.Params{
		Config: cfg,
		Logger: logg,
		Pingers: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Sessions:       sessionManager,
		RateLimiter:    redisClient,
		Gatherer:       registry,
		Auth:           authService,
		Profiles:       profileService,
		Orders:         orderService,
		Suppliers:      supplierService,
		PlayerVerifier: playerid.NewClient(cfg.PlayerID),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "api server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newSheetNotifier(ctx context.Context, cfg *config.Config, logg *logger.Logger, m *metrics.LedgerMetrics) (*sheets.Notifier, error) {
	mirror, err := sheets.NewClient(ctx, cfg.GCP, cfg.Sheets, logg)
	if err != nil {
		return nil, err
	}
	return sheets.NewNotifier(mirror, cfg.Sheets, logg, m)
}
