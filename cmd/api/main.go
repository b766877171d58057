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

	"github.com/poltekatipdg/sipbmn-backend/api/routes"
	authsvc "github.com/poltekatipdg/sipbmn-backend/internal/auth"
	"github.com/poltekatipdg/sipbmn-backend/internal/documents"
	"github.com/poltekatipdg/sipbmn-backend/internal/inventory"
	"github.com/poltekatipdg/sipbmn-backend/internal/letterconfig"
	loansvc "github.com/poltekatipdg/sipbmn-backend/internal/loans"
	usersvc "github.com/poltekatipdg/sipbmn-backend/internal/users"
	"github.com/poltekatipdg/sipbmn-backend/pkg/auth/session"
	"github.com/poltekatipdg/sipbmn-backend/pkg/config"
	"github.com/poltekatipdg/sipbmn-backend/pkg/db"
	"github.com/poltekatipdg/sipbmn-backend/pkg/logger"
	"github.com/poltekatipdg/sipbmn-backend/pkg/metrics"
	"github.com/poltekatipdg/sipbmn-backend/pkg/migrate"
	"github.com/poltekatipdg/sipbmn-backend/pkg/redis"
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
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	lifecycleMetrics := metrics.NewLifecycleMetrics(registry)

	itemRepo := inventory.NewRepository(dbClient.DB())
	loanRepo := loansvc.NewRepository(dbClient.DB())
	userRepo := usersvc.NewRepository(dbClient.DB())
	letterRepo := letterconfig.NewRepository(dbClient.DB())

	inventoryService, err := inventory.NewService(itemRepo, loanRepo, dbClient.DB(), cfg.Inventory.LowStockThreshold)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	loanService, err := loansvc.NewService(loanRepo, inventoryService, inventoryService, dbClient.DB(), logg, lifecycleMetrics, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create loan service", err)
		os.Exit(1)
	}

	userService, err := usersvc.NewService(userRepo, cfg.Password, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	authService, err := authsvc.NewService(userRepo, sessionManager, cfg.JWT, cfg.Password, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	letterConfigService, err := letterconfig.NewService(letterRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create letter config service", err)
		os.Exit(1)
	}

	signer, err := documents.NewSigner(cfg.Document.Secret)
	if err != nil {
		logg.Error(context.Background(), "failed to create document signer", err)
		os.Exit(1)
	}

	documentService, err := documents.NewService(loanRepo, letterConfigService, signer, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create document service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, registry, routes.Services{
			Auth:         authService,
			Users:        userService,
			Inventory:    inventoryService,
			Loans:        loanService,
			Documents:    documentService,
			LetterConfig: letterConfigService,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
