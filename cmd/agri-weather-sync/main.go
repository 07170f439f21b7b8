package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/i474232898/agri-weather/internal/app"
	"github.com/i474232898/agri-weather/internal/config"
	"github.com/i474232898/agri-weather/internal/forecast"
	"github.com/i474232898/agri-weather/internal/logging"
)

const (
	exitOK = iota
	exitFetch
	exitParse
	exitStore
	exitConfig
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return exitConfig
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Printf("failed to build logger: %v", err)
		return exitConfig
	}
	defer logger.Sync() //nolint:errcheck

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to open store", zap.Error(err))
		return exitStore
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := a.Service.Sync(ctx)
	if err != nil {
		return exitCode(err)
	}

	fmt.Printf("inserted %d rows into %s\n", result.Rows, cfg.StoreDriver)
	return exitOK
}

func exitCode(err error) int {
	var fetchErr *forecast.FetchError
	var parseErr *forecast.ParseError
	switch {
	case errors.As(err, &fetchErr):
		return exitFetch
	case errors.As(err, &parseErr):
		return exitParse
	default:
		return exitStore
	}
}
