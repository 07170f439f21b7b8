package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/agri-weather/internal/forecast"
	"github.com/i474232898/agri-weather/internal/store"
)

type fixtureSource struct {
	body []byte
	err  error
}

func (f *fixtureSource) Name() string { return "fixture" }

func (f *fixtureSource) Fetch(ctx context.Context) (forecast.Payload, error) {
	if f.err != nil {
		return forecast.Payload{}, f.err
	}
	return forecast.Payload{Origin: "fixture", Body: f.body}, nil
}

func newTestApp(t *testing.T, src *fixtureSource) (*fiber.App, *Dashboard, *forecast.Service) {
	t.Helper()

	if src.body == nil && src.err == nil {
		body, err := os.ReadFile(filepath.Join("..", "..", "forecast", "testdata", "F-A0010-001.json"))
		if err != nil {
			t.Fatalf("failed to read fixture: %v", err)
		}
		src.body = body
	}

	svc := forecast.NewService(src, store.NewMemoryStore())
	dash := NewDashboard(svc, nil)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler, Views: NewViews()})
	RegisterRoutes(app, dash)
	return app, dash, svc
}

func doRequest(t *testing.T, app *fiber.App, method, target string) (*http.Response, []byte) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(method, target, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func TestForecastsForLocation(t *testing.T) {
	app, _, svc := newTestApp(t, &fixtureSource{})
	if _, err := svc.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	resp, body := doRequest(t, app, http.MethodGet, "/api/v1/forecasts?location="+url.QueryEscape("中部地區"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, resp.StatusCode, body)
	}

	var out struct {
		Count   int               `json:"count"`
		Records []forecast.Record `json:"records"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 7 || len(out.Records) != 7 {
		t.Fatalf("expected 7 records, got %d", len(out.Records))
	}
	for _, r := range out.Records {
		if r.Location != "中部地區" {
			t.Errorf("unexpected location %s", r.Location)
		}
	}
}

func TestDataEndpoints(t *testing.T) {
	app, _, svc := newTestApp(t, &fixtureSource{})
	if _, err := svc.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	tests := []struct {
		name   string
		target string
		status int
	}{
		{name: "locations", target: "/api/v1/locations", status: http.StatusOK},
		{name: "all forecasts", target: "/api/v1/forecasts", status: http.StatusOK},
		{name: "summary", target: "/api/v1/summary", status: http.StatusOK},
		{name: "trend", target: "/api/v1/trend?location=" + url.QueryEscape("東部地區"), status: http.StatusOK},
		{name: "unknown location", target: "/api/v1/forecasts?location=nowhere", status: http.StatusNotFound},
		{name: "location too long", target: "/api/v1/summary?location=" + strings.Repeat("x", 65), status: http.StatusBadRequest},
		{name: "health", target: "/health", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doRequest(t, app, http.MethodGet, tt.target)
			if resp.StatusCode != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, resp.StatusCode, body)
			}
		})
	}
}

func TestStartupFailure(t *testing.T) {
	src := &fixtureSource{err: errors.New("remote unreachable")}
	app, dash, svc := newTestApp(t, src)

	_, err := svc.EnsureSynced(context.Background())
	if err == nil {
		t.Fatal("expected startup sync to fail")
	}
	dash.SetStartupError(err)

	resp, body := doRequest(t, app, http.MethodGet, "/api/v1/forecasts")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, resp.StatusCode)
	}
	if !strings.Contains(string(body), "remote unreachable") {
		t.Errorf("expected failure text in body, got %s", body)
	}

	resp, body = doRequest(t, app, http.MethodGet, "/")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, resp.StatusCode)
	}
	if !strings.Contains(string(body), "remote unreachable") {
		t.Errorf("expected failure text in page, got %s", body)
	}

	_, body = doRequest(t, app, http.MethodGet, "/health")
	if !strings.Contains(string(body), "degraded") {
		t.Errorf("expected degraded health, got %s", body)
	}
}

func TestManualSyncClearsStartupFailure(t *testing.T) {
	app, dash, _ := newTestApp(t, &fixtureSource{})
	dash.SetStartupError(errors.New("earlier failure"))

	resp, body := doRequest(t, app, http.MethodPost, "/api/v1/sync")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, resp.StatusCode, body)
	}

	var result forecast.SyncResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Rows != 42 {
		t.Errorf("expected 42 rows, got %d", result.Rows)
	}

	resp, _ = doRequest(t, app, http.MethodGet, "/api/v1/locations")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected data endpoints to recover, got %d", resp.StatusCode)
	}
}

func TestManualSyncFailure(t *testing.T) {
	app, _, _ := newTestApp(t, &fixtureSource{body: []byte(`{"unexpected":true}`)})

	resp, body := doRequest(t, app, http.MethodPost, "/api/v1/sync")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d: %s", http.StatusBadGateway, resp.StatusCode, body)
	}
}

func TestIndexPage(t *testing.T) {
	app, _, svc := newTestApp(t, &fixtureSource{})
	if _, err := svc.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	resp, body := doRequest(t, app, http.MethodGet, "/?location="+url.QueryEscape("南部地區"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("unexpected content type %s", ct)
	}

	page := string(body)
	for _, want := range []string{"南部地區", "Daily trend", "Forecast details", "2024-06-03", "2024-06-09"} {
		if !strings.Contains(page, want) {
			t.Errorf("expected page to contain %q", want)
		}
	}
	if strings.Contains(page, "中部地區</td>") {
		t.Error("detail table must only list the selected location")
	}
}

func TestFormatTemp(t *testing.T) {
	v := 23.26
	tests := []struct {
		in   *float64
		want string
	}{
		{nil, "n/a"},
		{&v, "23.3 °C"},
	}

	for _, tt := range tests {
		if got := formatTemp(tt.in); got != tt.want {
			t.Errorf("formatTemp() = %q, want %q", got, tt.want)
		}
	}
}

func TestViewsLoad(t *testing.T) {
	if err := NewViews().Load(); err != nil {
		t.Fatalf("failed to load templates: %v", err)
	}
}
