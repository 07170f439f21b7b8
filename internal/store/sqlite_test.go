package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/i474232898/agri-weather/internal/forecast"
)

var testLocations = []string{"北部地區", "中部地區", "南部地區", "東北部地區", "東部地區", "東南部地區"}

func weeklyRecords(offset float64) []forecast.Record {
	var records []forecast.Record
	for i, loc := range testLocations {
		for d := 0; d < 7; d++ {
			minT := 20 + float64(i) + offset
			maxT := 30 + float64(d) + offset
			records = append(records, forecast.Record{
				Location:    loc,
				Date:        fmt.Sprintf("2024-06-%02d", 3+d),
				MinTemp:     &minT,
				MaxTemp:     &maxT,
				Description: "多雲",
				Condition:   forecast.ConditionCloudy,
			})
		}
	}
	return records
}

func setupSQLite(t *testing.T, strategy Strategy) *SQLRepository {
	t.Helper()

	repo, err := NewSQLite(filepath.Join(t.TempDir(), "data.db"), strategy, nil)
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteReplaceFullRefresh(t *testing.T) {
	ctx := context.Background()
	repo := setupSQLite(t, StrategyRecreate)

	exists, err := repo.Exists(ctx)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Fatal("expected table to be absent before first sync")
	}

	for run := 0; run < 2; run++ {
		n, err := repo.Replace(ctx, fmt.Sprintf("run-%d", run), weeklyRecords(float64(run)))
		if err != nil {
			t.Fatalf("Replace run %d failed: %v", run, err)
		}
		if n != 42 {
			t.Fatalf("expected 42 inserted rows, got %d", n)
		}

		count, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count != 42 {
			t.Fatalf("expected 42 stored rows after run %d, got %d", run, count)
		}
	}

	exists, err = repo.Exists(ctx)
	if err != nil || !exists {
		t.Fatalf("expected table to exist, got %v (err %v)", exists, err)
	}

	records, err := repo.Records(ctx, forecast.Filter{Location: "北部地區"})
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(records) != 7 {
		t.Fatalf("expected 7 records for one location, got %d", len(records))
	}
	dates := make(map[string]bool)
	for _, r := range records {
		dates[r.Date] = true
		if r.MinTemp == nil || *r.MinTemp != 21 {
			t.Errorf("expected latest run values, got min %v", r.MinTemp)
		}
	}
	if len(dates) != 7 {
		t.Errorf("expected 7 distinct dates, got %d", len(dates))
	}
}

func TestSQLiteNullTemperaturesRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := setupSQLite(t, StrategyRecreate)

	_, err := repo.Replace(ctx, "run", []forecast.Record{
		{Location: "北部地區", Date: "2024-06-03", Condition: forecast.ConditionUnknown},
	})
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	records, err := repo.Records(ctx, forecast.Filter{})
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].MinTemp != nil || records[0].MaxTemp != nil {
		t.Errorf("expected NULL temperatures to come back nil, got %+v", records[0])
	}
	if records[0].Condition != forecast.ConditionUnknown {
		t.Errorf("unexpected condition %q", records[0].Condition)
	}
}

func TestSQLiteUpsertRemovesStaleRows(t *testing.T) {
	ctx := context.Background()
	repo := setupSQLite(t, StrategyUpsert)

	if _, err := repo.Replace(ctx, "run-1", weeklyRecords(0)); err != nil {
		t.Fatalf("first Replace failed: %v", err)
	}

	// Second fetch only covers the first location.
	latest := weeklyRecords(5)[:7]
	n, err := repo.Replace(ctx, "run-2", latest)
	if err != nil {
		t.Fatalf("second Replace failed: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 written rows, got %d", n)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 7 {
		t.Fatalf("expected stale rows to be removed, got %d rows", count)
	}

	locs, err := repo.Locations(ctx)
	if err != nil {
		t.Fatalf("Locations failed: %v", err)
	}
	if len(locs) != 1 || locs[0] != "北部地區" {
		t.Fatalf("unexpected locations: %v", locs)
	}

	records, err := repo.Records(ctx, forecast.Filter{Location: "北部地區"})
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if *records[0].MinTemp != 25 {
		t.Errorf("expected upserted value 25, got %v", *records[0].MinTemp)
	}
}

func TestSQLiteFailedReplaceKeepsPreviousTable(t *testing.T) {
	repo := setupSQLite(t, StrategyRecreate)

	if _, err := repo.Replace(context.Background(), "run-1", weeklyRecords(0)); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Replace(ctx, "run-2", weeklyRecords(1))
	var storeErr *forecast.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %v", err)
	}

	count, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 42 {
		t.Fatalf("expected previous 42 rows to survive, got %d", count)
	}
}

func TestSQLiteReadsBeforeFirstSync(t *testing.T) {
	repo := setupSQLite(t, StrategyRecreate)

	_, err := repo.Count(context.Background())
	var storeErr *forecast.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError for missing table, got %v", err)
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name     string
		d        dialect
		query    string
		expected string
	}{
		{
			name:     "sqlite keeps question marks",
			d:        sqliteDialect,
			query:    "SELECT * FROM weather WHERE location = ? AND forecast_date = ?",
			expected: "SELECT * FROM weather WHERE location = ? AND forecast_date = ?",
		},
		{
			name:     "postgres numbers placeholders",
			d:        postgresDialect,
			query:    "SELECT * FROM weather WHERE location = ? AND forecast_date = ?",
			expected: "SELECT * FROM weather WHERE location = $1 AND forecast_date = $2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &SQLRepository{dialect: tt.d}
			if got := r.rebind(tt.query); got != tt.expected {
				t.Errorf("rebind() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open("mysql", "x", StrategyRecreate, nil); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestNewSQLiteEmptyPath(t *testing.T) {
	if _, err := NewSQLite("  ", StrategyRecreate, nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}
