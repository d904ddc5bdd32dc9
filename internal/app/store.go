// Package app holds process wiring shared by the server and worker binaries.
package app

import (
	"context"
	"fmt"

	"tourpack-service/config"
	"tourpack-service/internal/store"
	"tourpack-service/internal/store/memory"
	"tourpack-service/internal/store/mongo"
	"tourpack-service/internal/store/postgres"
	"tourpack-service/internal/util"

	"go.uber.org/zap"
)

// OpenStore connects the configured database driver and applies its schema.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	logger := util.GetLogger()

	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewStore(cfg.URL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("Database connected", zap.String("driver", cfg.Driver))
		return db, nil

	case config.DriverMongo:
		db, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("Database connected", zap.String("driver", cfg.Driver), zap.String("database", cfg.MongoDatabase))
		return db, nil

	case config.DriverMemory:
		logger.Warn("Using in-memory store, data is lost on restart")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
