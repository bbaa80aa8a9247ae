// Package jobs runs background work on a wall-clock schedule.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DailyRunner invokes a callback once per day at a fixed local time.
type DailyRunner struct {
	hour     int
	minute   int
	location *time.Location
	run      func(ctx context.Context, now time.Time)
	logger   zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewDailyRunner creates a runner that fires at hour:minute in the given
// location.
func NewDailyRunner(hour, minute int, location *time.Location, logger zerolog.Logger, run func(ctx context.Context, now time.Time)) *DailyRunner {
	return &DailyRunner{
		hour:     hour,
		minute:   minute,
		location: location,
		run:      run,
		logger:   logger,
		now:      time.Now,
	}
}

// nextRun returns the first hour:minute instant in the runner's location that
// is strictly after the given time.
func (r *DailyRunner) nextRun(after time.Time) time.Time {
	local := after.In(r.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), r.hour, r.minute, 0, 0, r.location)
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start runs the daily loop. It blocks until ctx is cancelled, so callers
// usually run it in its own goroutine.
func (r *DailyRunner) Start(ctx context.Context) {
	for {
		now := r.now()
		next := r.nextRun(now)
		r.logger.Info().
			Time("next_run", next).
			Msg("daily runner scheduled")

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case fired := <-timer.C:
			// The timer yields a server-local time. The callback derives its
			// calendar date from the value's location, so convert to the
			// configured zone or a tick near midnight lands on the wrong day.
			r.run(ctx, fired.In(r.location))
		}
	}
}
