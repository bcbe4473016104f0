package worker

import (
	"context"
	"time"

	"gymkapp-server/internal/service"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const sweepBatchSize = 100

// Sweeper periodically abandons sessions that have been inactive for longer
// than the configured threshold.
type Sweeper struct {
	service   service.ProgressionService
	olderThan time.Duration
	interval  time.Duration
	scheduler gocron.Scheduler
	logger    *zap.Logger
}

// NewSweeper creates the sweeper. olderThan zero disables it entirely:
// Start becomes a no-op and sessions are only closed explicitly.
func NewSweeper(s service.ProgressionService, olderThan, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		service:   s,
		olderThan: olderThan,
		interval:  interval,
		logger:    logger.Named("Sweeper"),
	}
}

// Start schedules the periodic sweep. Returns immediately; the job runs on
// the scheduler's own goroutine until Stop is called.
func (w *Sweeper) Start(ctx context.Context) error {
	if w.olderThan <= 0 {
		w.logger.Info("Inactivity sweeper disabled")
		return nil
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	w.scheduler = sched

	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() {
			count, err := w.service.AbandonStaleSessions(ctx, w.olderThan, sweepBatchSize)
			if err != nil {
				w.logger.Error("Stale session sweep failed", zap.Error(err))
				return
			}
			if count > 0 {
				w.logger.Info("Abandoned stale sessions", zap.Int("count", count))
			}
		}),
	)
	if err != nil {
		return err
	}

	sched.Start()
	w.logger.Info("Inactivity sweeper started",
		zap.Duration("olderThan", w.olderThan),
		zap.Duration("interval", w.interval))
	return nil
}

// Stop shuts the scheduler down and waits for a running sweep to finish.
func (w *Sweeper) Stop() error {
	if w.scheduler == nil {
		return nil
	}
	return w.scheduler.Shutdown()
}
