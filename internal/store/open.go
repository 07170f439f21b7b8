package store

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/i474232898/agri-weather/internal/forecast"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Open returns the repository for driver. dsn is a file path for sqlite and a
// connection string for postgres; it is ignored for memory.
func Open(driver, dsn string, strategy Strategy, logger *zap.Logger) (forecast.Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch driver {
	case DriverSQLite, "":
		repo, err := NewSQLite(dsn, strategy, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("store opened", zap.String("driver", DriverSQLite), zap.String("path", dsn))
		return repo, nil
	case DriverPostgres:
		repo, err := NewPostgres(dsn, strategy, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("store opened", zap.String("driver", DriverPostgres))
		return repo, nil
	case DriverMemory:
		logger.Info("store opened", zap.String("driver", DriverMemory))
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}
}
