package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/agri-weather/internal/forecast"
)

// Syncer runs one full refresh of the forecast table.
type Syncer interface {
	Sync(ctx context.Context) (forecast.SyncResult, error)
}

// Scheduler periodically re-runs the forecast sync.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Syncer
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a new Scheduler. A non-positive interval disables it.
func New(interval time.Duration, service Syncer, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		interval:  interval,
		timeout:   5 * time.Minute,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run happens one interval after Start.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("scheduler: no sync interval configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().WaitForSchedule().Do(func() {
		s.logger.Info("scheduler: running forecast sync")

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		result, err := s.service.Sync(ctx)
		if err != nil {
			s.logger.Error("scheduler: sync failed", zap.Error(err))
			return
		}
		s.logger.Info("scheduler: sync completed", zap.Int("rows", result.Rows))
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Running reports whether periodic syncs are scheduled.
func (s *Scheduler) Running() bool {
	return s.scheduler.IsRunning()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
