package util

import (
	"context"
	"time"

	"github.com/onflow/evm-fleet/utils/rand"
)

// Pacer pauses for a random delay drawn uniformly from [Min, Max], modelling human
// pacing between transactions.
type Pacer struct {
	rng rand.Source
	Min time.Duration
	Max time.Duration
}

// NewPacer returns a Pacer drawing delays from rng.
func NewPacer(rng rand.Source, min, max time.Duration) Pacer {
	return Pacer{rng: rng, Min: min, Max: max}
}

// Next returns the next delay without sleeping.
func (p Pacer) Next() time.Duration {
	if p.rng == nil {
		return p.Min
	}
	return rand.DurationRange(p.rng, p.Min, p.Max)
}

// Pause sleeps for the next delay. It returns early with the context error if ctx
// is done first.
func (p Pacer) Pause(ctx context.Context) error {
	return Sleep(ctx, p.Next())
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
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
