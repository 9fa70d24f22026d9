// Package scheduler runs a periodic check against config.Schedule and
// triggers a scan/sync callback when the configured interval has
// elapsed, grounded on original_source/scheduler_service.py's
// SchedulerService (a ticking goroutine checking elapsed hours against
// an enabled flag, skipping the trigger entirely while a run is already
// in flight).
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/shah0006/syncd/config"
	"github.com/shah0006/syncd/logging"
)

// Trigger runs one scheduled scan/sync and returns the new last-run
// timestamp. The Scheduler keeps the newest such value in memory and
// measures the interval from it when it is later than Schedule.LastRun.
type Trigger func(ctx context.Context) (lastRun float64, err error)

// Scheduler polls its Schedule on a fixed tick and calls Trigger when
// due, skipping the check entirely while a prior trigger is still
// running (mirrors the Python predecessor's app_state busy-flag guard).
type Scheduler struct {
	get     func() config.Schedule
	trigger Trigger
	busy    atomic.Bool
	tick    time.Duration
	lastRun float64 // newest timestamp returned by trigger; only touched by Run's goroutine
}

// New builds a Scheduler. get is called on every tick so config changes
// (enabling the schedule, changing the interval) take effect without a
// restart. tick defaults to one minute, matching the Python predecessor.
func New(get func() config.Schedule, trigger Trigger, tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = time.Minute
	}
	return &Scheduler{get: get, trigger: trigger, tick: tick}
}

// Run blocks, checking the schedule every tick interval, until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	log := logging.Sub("scheduler")
	log.Info("scheduler started")
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.checkOnce(ctx, log)
		}
	}
}

func (s *Scheduler) checkOnce(ctx context.Context, log interface {
	Info(string, ...any)
	Error(string, ...any)
}) {
	sched := s.get()
	if !sched.Enabled {
		return
	}
	last := sched.LastRun
	if s.lastRun > last {
		last = s.lastRun
	}
	elapsedHours := (nowSeconds() - last) / 3600
	if elapsedHours < sched.IntervalHours {
		return
	}

	if !s.busy.CompareAndSwap(false, true) {
		log.Info("skipping scheduled run, system busy")
		return
	}
	defer s.busy.Store(false)

	log.Info("scheduled run due, triggering")
	lastRun, err := s.trigger(ctx)
	if err != nil {
		log.Error("scheduled run failed", "err", err)
	}
	if lastRun > s.lastRun {
		s.lastRun = lastRun
	}
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
