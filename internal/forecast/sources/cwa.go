package sources

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/agri-weather/internal/forecast"
)

// DefaultCWAEndpoint serves the CWA agricultural weekly forecast (F-A0010-001).
const DefaultCWAEndpoint = "https://opendata.cwa.gov.tw/fileapi/v1/opendataapi/F-A0010-001"

// CWAConfig configures the remote CWA source.
type CWAConfig struct {
	Endpoint   string
	APIKey     string
	MaxRetries int
}

// CWASource implements forecast.Source for the CWA open data file API.
type CWASource struct {
	name     string
	endpoint string
	apiKey   string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

// NewCWAClient returns the HTTP client used for the CWA API. The CWA certificate
// chain does not verify against common trust stores, so insecure is normally true.
func NewCWAClient(timeout time.Duration, insecure bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: insecure} //nolint:gosec
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

func NewCWASource(client *http.Client, cfg CWAConfig) *CWASource {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cwa",
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultCWAEndpoint
	}

	return &CWASource{
		name:     "cwa",
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      cfg.MaxRetries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

func (s *CWASource) Name() string {
	return s.name
}

func (s *CWASource) Fetch(ctx context.Context) (forecast.Payload, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("Authorization", s.apiKey)
		values.Set("downloadType", "WEB")
		values.Set("format", "JSON")

		u := fmt.Sprintf("%s?%s", s.endpoint, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, s.httpCfg, s.circuit, buildRequest)
	if err != nil {
		return forecast.Payload{}, fmt.Errorf("cwa request: %w", err)
	}
	defer resp.Body.Close()

	body, err := readJSON(resp.Body)
	if err != nil {
		return forecast.Payload{}, fmt.Errorf("cwa response: %w", err)
	}

	return forecast.Payload{Origin: s.endpoint, Body: body}, nil
}
