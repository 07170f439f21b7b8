package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/agri-weather/internal/config"
	"github.com/i474232898/agri-weather/internal/forecast"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()

	cfg := config.Defaults()
	cfg.LocalPayloadPath = filepath.Join("..", "forecast", "testdata", "F-A0010-001.json")
	cfg.StoreDSN = filepath.Join(t.TempDir(), "data.db")
	cfg.HTTPTimeout = 2 * time.Second
	return cfg
}

func TestSyncFromLocalFile(t *testing.T) {
	var remoteCalls atomic.Int32
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remoteCalls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(t)
	cfg.CWAEndpoint = server.URL

	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	for run := 0; run < 2; run++ {
		result, err := a.Service.Sync(context.Background())
		if err != nil {
			t.Fatalf("sync: %v", err)
		}
		if result.Rows != 42 {
			t.Errorf("expected 42 rows, got %d", result.Rows)
		}
	}

	count, err := a.Repo.Count(context.Background())
	if err != nil || count != 42 {
		t.Errorf("expected 42 stored rows, got %d (%v)", count, err)
	}
	if n := remoteCalls.Load(); n != 0 {
		t.Errorf("remote API contacted %d times", n)
	}
}

func TestSyncFallsBackToRemote(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join("..", "forecast", "testdata", "F-A0010-001.json"))
	}))
	defer server.Close()

	cfg := testConfig(t)
	cfg.StoreDriver = "memory"
	cfg.LocalPayloadPath = filepath.Join(t.TempDir(), "absent.json")
	cfg.CWAEndpoint = server.URL
	cfg.CWAAPIKey = "test-key"

	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	result, err := a.Service.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if result.Rows != 42 || result.Origin != server.URL {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestNewStoreFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreDriver = "oracle"

	_, err := New(cfg, nil)

	var storeErr *forecast.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
}
