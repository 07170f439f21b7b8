package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/agri-weather/internal/api/http"
	"github.com/i474232898/agri-weather/internal/app"
	"github.com/i474232898/agri-weather/internal/config"
	"github.com/i474232898/agri-weather/internal/logging"
	"github.com/i474232898/agri-weather/internal/scheduler"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	a, err := app.New(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to open store", zap.Error(err))
	}
	defer a.Close()

	dash := httpapi.NewDashboard(a.Service, zlog.Named("http"))

	// Sync once before listening when the table is missing; a failure is shown instead of data.
	syncCtx, cancelSync := context.WithTimeout(context.Background(), 2*cfg.HTTPTimeout)
	if ran, err := a.Service.EnsureSynced(syncCtx); err != nil {
		zlog.Error("startup sync failed", zap.Error(err))
		dash.SetStartupError(err)
	} else if ran {
		zlog.Info("startup sync completed")
	}
	cancelSync()

	sched := scheduler.New(cfg.SyncInterval, a.Service, zlog.Named("scheduler"))
	if err := sched.Start(); err != nil {
		zlog.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	server := fiber.New(fiber.Config{
		AppName:               "agri-weather",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * cfg.HTTPTimeout,
		ErrorHandler:          httpapi.ErrorHandler,
		Views:                 httpapi.NewViews(),
	})

	// Global middleware
	server.Use(logger.New())
	server.Use(recover.New())

	httpapi.RegisterRoutes(server, dash)

	go func() {
		zlog.Info("dashboard listening", zap.String("port", cfg.Port))
		if err := server.Listen(":" + cfg.Port); err != nil {
			zlog.Error("fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Error("error during shutdown", zap.Error(err))
	}
}
