package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/poltekatipdg/sipbmn-backend/pkg/config"
	"github.com/poltekatipdg/sipbmn-backend/pkg/db"
	"github.com/poltekatipdg/sipbmn-backend/pkg/logger"
	"github.com/poltekatipdg/sipbmn-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

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

	if err := migrate.Run(context.Background(), dbClient); err != nil {
		logg.Error(context.Background(), "schema migration failed", err)
		os.Exit(1)
	}

	logg.Info(context.Background(), "schema migration completed")
}
