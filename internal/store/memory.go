package store

import (
	"context"
	"sort"
	"sync"

	"github.com/i474232898/agri-weather/internal/forecast"
)

// MemoryStore is a concurrency-safe in-memory implementation of forecast.Repository.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location, value: records ordered by date
	data    map[string][]forecast.Record
	created bool
}

// NewMemoryStore creates an empty MemoryStore. Exists reports false until the
// first Replace.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]forecast.Record),
	}
}

// Exists reports whether Replace has been called at least once.
func (s *MemoryStore) Exists(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.created, nil
}

// Replace swaps the whole content for records.
func (s *MemoryStore) Replace(ctx context.Context, runID string, records []forecast.Record) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, &forecast.StoreError{Op: "replace", Err: err}
	}

	next := make(map[string][]forecast.Record)
	seen := make(map[string]struct{}, len(records))
	count := 0
	for _, rec := range records {
		if _, dup := seen[rec.Key()]; dup {
			continue
		}
		seen[rec.Key()] = struct{}{}
		next[rec.Location] = append(next[rec.Location], rec)
		count++
	}
	for _, history := range next {
		sort.SliceStable(history, func(i, j int) bool { return history[i].Date < history[j].Date })
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = next
	s.created = true
	return count, nil
}

// Records returns the stored records ordered by date, then location.
func (s *MemoryStore) Records(ctx context.Context, filter forecast.Filter) ([]forecast.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []forecast.Record
	if filter.Location != "" {
		result = append(result, s.data[filter.Location]...)
	} else {
		for _, history := range s.data {
			result = append(result, history...)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].Location < result[j].Location
	})
	return result, nil
}

// Locations returns the distinct stored locations, sorted.
func (s *MemoryStore) Locations(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	locs := make([]string, 0, len(s.data))
	for loc := range s.data {
		locs = append(locs, loc)
	}
	sort.Strings(locs)
	return locs, nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, history := range s.data {
		n += len(history)
	}
	return n, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
