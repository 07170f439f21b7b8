package forecast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service orchestrates the sync job (fetch, normalize, replace) and the read
// queries the dashboard is built on.
type Service struct {
	source       Source
	repo         Repository
	logger       *zap.Logger
	expectedRows int

	// mu serializes Sync within a process; the dashboard and the scheduler may
	// both trigger it.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for progress messages.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithExpectedRows makes Sync warn when the written row count differs from n.
// Zero disables the check.
func WithExpectedRows(n int) Option {
	return func(s *Service) {
		s.expectedRows = n
	}
}

// NewService creates a new Service.
func NewService(source Source, repo Repository, opts ...Option) *Service {
	s := &Service{
		source: source,
		repo:   repo,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync runs one full refresh: fetch the payload, flatten it, and replace the
// stored table with the result. Any failure aborts the run before the table is
// touched, or rolls the table back to its previous content.
func (s *Service) Sync(ctx context.Context) (SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runID := uuid.NewString()
	started := time.Now()
	log := s.logger.With(zap.String("run_id", runID))
	result := SyncResult{RunID: runID}

	log.Info("sync started", zap.String("source", s.source.Name()))

	payload, err := s.source.Fetch(ctx)
	if err != nil {
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			err = &FetchError{Err: err}
		}
		log.Error("sync aborted: fetch failed", zap.Error(err))
		return result, err
	}
	result.Origin = payload.Origin
	log.Info("payload fetched", zap.String("origin", payload.Origin), zap.Int("bytes", len(payload.Body)))

	records, err := Normalize(payload.Body)
	if err == nil && len(records) == 0 {
		err = &ParseError{Reason: "payload yielded no records"}
	}
	if err != nil {
		log.Error("sync aborted: payload malformed", zap.Error(err))
		return result, err
	}
	result.Locations = countLocations(records)
	log.Info("payload normalized", zap.Int("records", len(records)), zap.Int("locations", result.Locations))

	rows, err := s.repo.Replace(ctx, runID, records)
	if err != nil {
		var storeErr *StoreError
		if !errors.As(err, &storeErr) {
			err = &StoreError{Op: "replace", Err: err}
		}
		log.Error("sync aborted: store write failed", zap.Error(err))
		return result, err
	}
	result.Rows = rows
	result.Duration = time.Since(started)

	if s.expectedRows > 0 && rows != s.expectedRows {
		log.Warn("row count differs from expected",
			zap.Int("rows", rows),
			zap.Int("expected", s.expectedRows),
		)
	}

	log.Info("sync finished",
		zap.Int("rows", rows),
		zap.Int("locations", result.Locations),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// EnsureSynced runs Sync when the forecast table does not exist yet. It reports
// whether a sync was attempted.
func (s *Service) EnsureSynced(ctx context.Context) (bool, error) {
	exists, err := s.repo.Exists(ctx)
	if err != nil {
		return false, asStoreError("exists", err)
	}
	if exists {
		return false, nil
	}

	s.logger.Info("forecast table missing; running initial sync")
	if _, err := s.Sync(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Locations returns the distinct stored locations, sorted.
func (s *Service) Locations(ctx context.Context) ([]string, error) {
	locs, err := s.repo.Locations(ctx)
	if err != nil {
		return nil, asStoreError("locations", err)
	}
	return locs, nil
}

// Forecasts returns the stored records for location, or for every location when
// location is empty. ErrNoData is returned for an empty selection.
func (s *Service) Forecasts(ctx context.Context, location string) ([]Record, error) {
	records, err := s.repo.Records(ctx, Filter{Location: location})
	if err != nil {
		return nil, asStoreError("records", err)
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}
	return records, nil
}

// Summary aggregates the selection returned by Forecasts.
func (s *Service) Summary(ctx context.Context, location string) (Summary, error) {
	records, err := s.Forecasts(ctx, location)
	if err != nil {
		return Summary{Location: location}, err
	}
	return Summarize(location, records), nil
}

// Trend returns per-day mean temperatures for the selection returned by Forecasts.
func (s *Service) Trend(ctx context.Context, location string) ([]DayPoint, error) {
	records, err := s.Forecasts(ctx, location)
	if err != nil {
		return nil, err
	}
	return DailyTrend(records), nil
}

func asStoreError(op string, err error) error {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func countLocations(records []Record) int {
	seen := make(map[string]struct{})
	for _, r := range records {
		seen[r.Location] = struct{}{}
	}
	return len(seen)
}
