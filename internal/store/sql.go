package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/i474232898/agri-weather/internal/forecast"
)

// Strategy selects how Replace rewrites the forecast table.
type Strategy string

const (
	// StrategyRecreate drops and recreates the table on every sync.
	StrategyRecreate Strategy = "recreate"
	// StrategyUpsert keeps the table, upserts on (location, forecast_date) and
	// deletes rows the current sync did not write.
	StrategyUpsert Strategy = "upsert"
)

// TableName is the single table owned by the sync job.
const TableName = "weather"

// dialect holds the statements that differ between database engines.
type dialect struct {
	name        string
	createTable string
	existsQuery string
	positional  bool // $1, $2, ... instead of ?
}

// SQLRepository implements forecast.Repository on top of database/sql.
type SQLRepository struct {
	db       *sql.DB
	dialect  dialect
	strategy Strategy
	logger   *zap.Logger
}

func newSQLRepository(db *sql.DB, d dialect, strategy Strategy, logger *zap.Logger) *SQLRepository {
	if strategy == "" {
		strategy = StrategyRecreate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLRepository{
		db:       db,
		dialect:  d,
		strategy: strategy,
		logger:   logger.With(zap.String("driver", d.name), zap.String("strategy", string(strategy))),
	}
}

// DB exposes the underlying connection pool.
func (r *SQLRepository) DB() *sql.DB {
	return r.db
}

// Exists reports whether the forecast table is present.
func (r *SQLRepository) Exists(ctx context.Context) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, r.rebind(r.dialect.existsQuery), TableName).Scan(&n); err != nil {
		return false, &forecast.StoreError{Op: "exists", Err: err}
	}
	return n > 0, nil
}

// Replace rewrites the table so it holds exactly records. Everything runs in one
// transaction: on any error the previous table content is kept.
func (r *SQLRepository) Replace(ctx context.Context, runID string, records []forecast.Record) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &forecast.StoreError{Op: "begin", Err: err}
	}
	defer tx.Rollback()

	if err := r.prepareSchema(ctx, tx); err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, r.rebind(r.insertQuery()))
	if err != nil {
		return 0, &forecast.StoreError{Op: "prepare insert", Err: err}
	}
	defer stmt.Close()

	count := 0
	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.Location,
			rec.Date,
			nullFloat(rec.MinTemp),
			nullFloat(rec.MaxTemp),
			rec.Description,
			string(rec.Condition),
			runID,
		)
		if err != nil {
			return 0, &forecast.StoreError{Op: "insert", Err: fmt.Errorf("%s %s: %w", rec.Location, rec.Date, err)}
		}
		count++
	}

	if r.strategy == StrategyUpsert {
		res, err := tx.ExecContext(ctx, r.rebind("DELETE FROM "+TableName+" WHERE sync_id <> ?"), runID)
		if err != nil {
			return 0, &forecast.StoreError{Op: "delete stale", Err: err}
		}
		if stale, err := res.RowsAffected(); err == nil && stale > 0 {
			r.logger.Info("removed stale rows", zap.Int64("rows", stale))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &forecast.StoreError{Op: "commit", Err: err}
	}

	r.logger.Info("forecast table written", zap.Int("rows", count))
	return count, nil
}

func (r *SQLRepository) prepareSchema(ctx context.Context, tx *sql.Tx) error {
	if r.strategy == StrategyRecreate {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+TableName); err != nil {
			return &forecast.StoreError{Op: "drop table", Err: err}
		}
		r.logger.Debug("dropped forecast table")
	}
	if _, err := tx.ExecContext(ctx, r.dialect.createTable); err != nil {
		return &forecast.StoreError{Op: "create table", Err: err}
	}
	return nil
}

func (r *SQLRepository) insertQuery() string {
	query := `INSERT INTO ` + TableName + ` (location, forecast_date, min_temp, max_temp, description, weather_condition, sync_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if r.strategy == StrategyUpsert {
		query += `
		ON CONFLICT (location, forecast_date) DO UPDATE SET
			min_temp = excluded.min_temp,
			max_temp = excluded.max_temp,
			description = excluded.description,
			weather_condition = excluded.weather_condition,
			sync_id = excluded.sync_id`
	}
	return query
}

// Records returns the stored rows ordered by date, then location.
func (r *SQLRepository) Records(ctx context.Context, filter forecast.Filter) ([]forecast.Record, error) {
	query := `SELECT location, forecast_date, min_temp, max_temp, description, weather_condition FROM ` + TableName
	var args []any
	if filter.Location != "" {
		query += ` WHERE location = ?`
		args = append(args, filter.Location)
	}
	query += ` ORDER BY forecast_date, location`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, &forecast.StoreError{Op: "query records", Err: err}
	}
	defer rows.Close()

	var records []forecast.Record
	for rows.Next() {
		var (
			rec        forecast.Record
			minT, maxT sql.NullFloat64
			cond       string
		)
		if err := rows.Scan(&rec.Location, &rec.Date, &minT, &maxT, &rec.Description, &cond); err != nil {
			return nil, &forecast.StoreError{Op: "scan record", Err: err}
		}
		rec.MinTemp = floatPtr(minT)
		rec.MaxTemp = floatPtr(maxT)
		rec.Condition = forecast.Condition(cond)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &forecast.StoreError{Op: "query records", Err: err}
	}
	return records, nil
}

// Locations returns the distinct stored locations, sorted.
func (r *SQLRepository) Locations(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT location FROM `+TableName+` ORDER BY location`)
	if err != nil {
		return nil, &forecast.StoreError{Op: "query locations", Err: err}
	}
	defer rows.Close()

	var locs []string
	for rows.Next() {
		var loc string
		if err := rows.Scan(&loc); err != nil {
			return nil, &forecast.StoreError{Op: "scan location", Err: err}
		}
		locs = append(locs, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, &forecast.StoreError{Op: "query locations", Err: err}
	}
	return locs, nil
}

// Count returns the number of stored rows.
func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+TableName).Scan(&n); err != nil {
		return 0, &forecast.StoreError{Op: "count", Err: err}
	}
	return n, nil
}

// Close closes the connection pool.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind rewrites ? placeholders to $n for engines that need positional ones.
func (r *SQLRepository) rebind(query string) string {
	if !r.dialect.positional {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
