// Package ratelimit implements the pacing policy applied between successive
// page requests for one title.
package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultPageDelay is the pause between two pages of the same title.
const DefaultPageDelay = 200 * time.Millisecond

var pacingWaitSeconds = promauto.NewCounter(prometheus.CounterOpts{
	Name: "release_api_pacing_wait_seconds_total",
	Help: "Total time spent waiting between page requests",
})

// Pacer decides how long to wait before the next page request.
type Pacer interface {
	// Wait blocks until the next request may be sent. It returns the
	// context error if ctx is done first.
	Wait(ctx context.Context) error
}

// Fixed returns a Pacer that always waits d. A non-positive d never waits.
func Fixed(d time.Duration) Pacer {
	if d <= 0 {
		return None()
	}
	return fixed{delay: d}
}

// None returns a Pacer that never waits.
func None() Pacer {
	return none{}
}

type fixed struct {
	delay time.Duration
}

func (f fixed) Wait(ctx context.Context) error {
	timer := time.NewTimer(f.delay)
	defer timer.Stop()

	start := time.Now()
	select {
	case <-ctx.Done():
		pacingWaitSeconds.Add(time.Since(start).Seconds())
		return ctx.Err()
	case <-timer.C:
		pacingWaitSeconds.Add(f.delay.Seconds())
		return nil
	}
}

type none struct{}

func (none) Wait(ctx context.Context) error {
	return ctx.Err()
}
