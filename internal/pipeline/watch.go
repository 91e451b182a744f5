package pipeline

import (
	"context"
	"time"

	"driveingest/internal/logging"
)

// Clock supplies time to the orchestrator.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Watch runs the pipeline repeatedly, starting a cycle every rc.Interval
// measured start to start. A cycle that overruns the interval is followed
// immediately by the next one; cycles never overlap. Cancellation is observed
// only between cycles, and a cancelled ctx ends the loop with a nil error.
// report, when non-nil, receives every cycle's summary.
func (o *Orchestrator) Watch(ctx context.Context, rc RunConfiguration, report func(Summary)) error {
	rc.Watch = true
	if err := rc.Validate(); err != nil {
		return err
	}

	cycle := 0
	for {
		if ctx.Err() != nil {
			o.logger.Info("watch stopped", logging.String(logging.FieldEventType, "watch_stop"), logging.Int("cycles", cycle))
			return nil
		}
		cycle++
		start := o.clock.Now()
		summary, err := o.Run(ctx, rc)
		if err != nil {
			return err
		}
		if report != nil {
			report(summary)
		}

		wait := rc.Interval - o.clock.Now().Sub(start)
		if wait <= 0 {
			o.logger.Info("cycle overran interval; starting next cycle now",
				logging.String(logging.FieldEventType, "watch_overrun"),
				logging.Int("cycle", cycle),
				logging.Duration("interval", rc.Interval),
			)
			continue
		}
		o.logger.Debug("waiting for next cycle", logging.Duration("wait", wait))
		select {
		case <-ctx.Done():
			o.logger.Info("watch stopped", logging.String(logging.FieldEventType, "watch_stop"), logging.Int("cycles", cycle))
			return nil
		case <-o.clock.After(wait):
		}
	}
}
