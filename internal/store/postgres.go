package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const (
	defaultMaxOpenConns = 5
	defaultMaxIdleConns = 2
	defaultConnLifetime = time.Hour
)

var postgresDialect = dialect{
	name: "postgres",
	createTable: `CREATE TABLE IF NOT EXISTS ` + TableName + ` (
		id BIGSERIAL PRIMARY KEY,
		location TEXT NOT NULL,
		forecast_date TEXT NOT NULL,
		min_temp DOUBLE PRECISION,
		max_temp DOUBLE PRECISION,
		description TEXT NOT NULL DEFAULT '',
		weather_condition TEXT NOT NULL DEFAULT 'unknown',
		sync_id TEXT NOT NULL,
		UNIQUE (location, forecast_date)
	)`,
	existsQuery: `SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = ?`,
	positional: true,
}

// NewPostgres creates a pgx/stdlib backed repository and validates the connection.
func NewPostgres(dsn string, strategy Strategy, logger *zap.Logger) (*SQLRepository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("store: empty postgres DSN")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}

	return newSQLRepository(db, postgresDialect, strategy, logger), nil
}
