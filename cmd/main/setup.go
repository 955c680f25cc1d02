package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"portfolio-dashboard/src/config"
	"portfolio-dashboard/src/format"
	"portfolio-dashboard/src/interfaces"
	"portfolio-dashboard/src/logger"
	"portfolio-dashboard/src/models"
	"portfolio-dashboard/src/network"
	"portfolio-dashboard/src/publisher"
	"portfolio-dashboard/src/refresher"
	"portfolio-dashboard/src/storage"
)

const defaultConfigPath = "config/default.yaml"

// -----------------------------------------------------------------------------

// loadConfig reads the configuration and builds the root logger.
func loadConfig(configPath string) (*config.Config, *logger.Logger, error) {
	conf, err := config.NewConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return nil, nil, err
	}
	return conf, logger.NewLogger(conf.LogLevel, conf.Name), nil
}

// -----------------------------------------------------------------------------

// setupDatabase initializes the payload archive database based on config.
// It returns nil when storage is disabled.
func setupDatabase(cfg *models.MConfig, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	var db interfaces.IDatabase
	var err error

	switch cfg.Storage.DBType {
	case "none":
		return nil, nil
	case "postgres":
		db, err = storage.NewPostgresDB(cfg, appLogger.Named("PostgresDB"))
	case "mysql":
		db, err = storage.NewMySQLDB(cfg, appLogger.Named("MySQLDB"))
	default:
		db, err = storage.NewAsyncSQLiteDB(cfg, appLogger.Named("SQLiteDB"))
	}

	if err != nil {
		return nil, fmt.Errorf("failed to init db: %w", err)
	}
	if err := db.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize %s archive: %w", cfg.Storage.DBType, err)
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// setupPublisher connects the Redis publisher when one is configured.
func setupPublisher(cfg *models.MConfig, appLogger *logger.Logger) *publisher.RedisPublisher {
	if cfg.Publish.RedisAddr == "" {
		return nil
	}

	pub := publisher.NewRedisPublisher(cfg, appLogger.Named("RedisPublisher"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pub.Ping(ctx); err != nil {
		// Publishing failures are reported per refresh; startup goes on
		appLogger.Warning("Redis not reachable yet: %v", err)
	}
	return pub
}

// -----------------------------------------------------------------------------

// setupRefresher wires the API client, formatter and sink into a Refresher.
func setupRefresher(cfg *models.MConfig, sink interfaces.IDashboardSink, appLogger *logger.Logger) (*refresher.Refresher, error) {
	fetcher, err := network.NewAPINetworkManager(cfg, appLogger.Named("NetworkManager"))
	if err != nil {
		return nil, err
	}

	formatter := format.NewFormatter(cfg.Display.Currency, cfg.Display.Locale)
	refreshLogger := appLogger.Named("Refresher")

	return refresher.NewRefresher(
		fetcher,
		sink,
		refreshLogger,
		formatter,
		refresher.EndpointsFromConfig(cfg),
		refreshLogger,
	), nil
}
