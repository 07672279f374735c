package crawler

import (
	"context"
	"math/rand/v2"
	"time"
)

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Governor spaces out outbound requests with randomized pauses
type Governor struct {
	min   time.Duration
	max   time.Duration
	sleep SleepFunc
}

// NewGovernor creates a governor pausing between min and max
func NewGovernor(min, max time.Duration) *Governor {
	if max < min {
		max = min
	}
	return &Governor{min: min, max: max, sleep: sleepContext}
}

// WithSleeper replaces the blocking sleep, used by tests
func (g *Governor) WithSleeper(sleep SleepFunc) *Governor {
	g.sleep = sleep
	return g
}

// Pause blocks for a random duration within the request delay bounds
func (g *Governor) Pause(ctx context.Context) error {
	return g.PauseBetween(ctx, g.min, g.max)
}

// PauseBetween blocks for a random duration within [min, max]
func (g *Governor) PauseBetween(ctx context.Context, min, max time.Duration) error {
	return g.sleep(ctx, Jitter(min, max))
}

// Jitter returns a uniformly random duration within [min, max]
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)+1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
