// Package app assembles the forecast service from configuration. Both commands
// build on it.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/i474232898/agri-weather/internal/config"
	"github.com/i474232898/agri-weather/internal/forecast"
	"github.com/i474232898/agri-weather/internal/forecast/sources"
	"github.com/i474232898/agri-weather/internal/store"
)

type App struct {
	Config  *config.AppConfig
	Logger  *zap.Logger
	Repo    forecast.Repository
	Service *forecast.Service
}

// New opens the configured store and builds the local-then-remote source chain.
// The returned error is a *forecast.StoreError when the store cannot be opened.
func New(cfg *config.AppConfig, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	repo, err := store.Open(cfg.StoreDriver, cfg.StoreDSN, store.Strategy(cfg.SyncStrategy), logger.Named("store"))
	if err != nil {
		return nil, &forecast.StoreError{Op: "open", Err: err}
	}

	local := sources.NewLocalFileSource(cfg.LocalPayloadPath)
	remote := sources.NewCWASource(
		sources.NewCWAClient(cfg.HTTPTimeout, cfg.CWAInsecureSkipVerify),
		sources.CWAConfig{
			Endpoint:   cfg.CWAEndpoint,
			APIKey:     cfg.CWAAPIKey,
			MaxRetries: cfg.CWAMaxRetries,
		},
	)
	if cfg.CWAAPIKey == "" {
		logger.Warn("CWA_API_KEY is empty; remote requests will be rejected")
	}
	source := sources.NewFallbackSource(local, remote, logger.Named("source"))

	service := forecast.NewService(source, repo,
		forecast.WithLogger(logger.Named("sync")),
		forecast.WithExpectedRows(cfg.ExpectedRows),
	)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Repo:    repo,
		Service: service,
	}, nil
}

func (a *App) Close() error {
	if err := a.Repo.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
