// Package scheduler triggers the daily pipeline run at a configured local
// time.
package scheduler

import (
	"context"
	"time"

	"aipulse/internal/config"
	"aipulse/internal/logger"
)

// Daily fires the job once a day at the configured hour and minute.
type Daily struct {
	cfg config.ScheduleConfig
	now func() time.Time
}

func NewDaily(cfg config.ScheduleConfig) *Daily {
	return &Daily{cfg: cfg, now: time.Now}
}

// NextFire returns the next scheduled time strictly after now.
func (d *Daily) NextFire(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), d.cfg.Hour, d.cfg.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run blocks, invoking job at every scheduled time until ctx is cancelled.
// Job errors are logged; the schedule keeps going.
func (d *Daily) Run(ctx context.Context, job func(context.Context) error) error {
	for {
		next := d.NextFire(d.now())
		wait := next.Sub(d.now())
		logger.Info("scheduler: next run", "at", next.Format(time.RFC3339), "in", wait.Round(time.Second).String())

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := job(ctx); err != nil {
			logger.Error("scheduler: run failed", "error", err)
		}
	}
}
