package actor

import (
	"context"
	"time"

	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const WATCHDOG_JOB_KEY = "availability-watchdog"

// Watchdog fires tick on a fixed interval from a quartz scheduler.
type Watchdog struct {
	scheduler quartz.Scheduler
	interval  time.Duration
	tick      func()
	cancel    context.CancelFunc
	logger    *zap.Logger
}

func NewWatchdog(interval time.Duration, tick func(), logger *zap.Logger) *Watchdog {
	return &Watchdog{
		scheduler: quartz.NewStdScheduler(),
		interval:  interval,
		tick:      tick,
		logger:    logger,
	}
}

func (w *Watchdog) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.scheduler.Start(ctx)

	fn := job.NewFunctionJob(func(_ context.Context) (bool, error) {
		w.tick()
		return true, nil
	})
	detail := quartz.NewJobDetail(fn, quartz.NewJobKey(WATCHDOG_JOB_KEY))
	if err := w.scheduler.ScheduleJob(detail, quartz.NewSimpleTrigger(w.interval)); err != nil {
		cancel()
		return err
	}
	w.logger.Debug("watchdog started", zap.Duration("interval", w.interval))
	return nil
}

func (w *Watchdog) Stop() {
	if w.cancel == nil {
		return
	}
	w.scheduler.Stop()
	w.cancel()
	w.cancel = nil
	w.logger.Debug("watchdog stopped")
}
