package utils

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Backoff kinds accepted by simulator.backoff.
const (
	BackoffExponential = "exponential"
	BackoffLinear      = "linear"
	BackoffConstant    = "constant"
)

const defaultMaxDelay = 30 * time.Second

// Backoff spaces out retries of a remote engine call.
type Backoff struct {
	Kind string
	Base time.Duration
	Max  time.Duration
	// Jitter scales exponential delays by a factor in [0.5, 1.5).
	Jitter bool
}

// NewBackoff builds a jittered backoff from the millisecond settings in the
// simulator config. Unknown kinds are exponential.
func NewBackoff(kind string, baseMs, maxMs int) Backoff {
	b := Backoff{
		Kind: kind,
		Base: time.Duration(baseMs) * time.Millisecond,
		Max:  time.Duration(maxMs) * time.Millisecond,
	}
	if b.Max <= 0 {
		b.Max = defaultMaxDelay
	}
	if kind != BackoffConstant && kind != BackoffLinear {
		b.Kind = BackoffExponential
		b.Jitter = true
	}
	return b
}

// Delay is the wait before retry number attempt, counted from zero.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	var d float64
	switch b.Kind {
	case BackoffConstant:
		return b.Base
	case BackoffLinear:
		d = float64(b.Base) * float64(attempt+1)
	default:
		d = float64(b.Base) * math.Exp2(float64(attempt))
	}
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	if b.Jitter && b.Kind == BackoffExponential {
		// shared by concurrent calls, so the global generator
		d *= 0.5 + rand.Float64()
	}
	return time.Duration(d)
}

// Wait sleeps for Delay(attempt) or until ctx is done.
func (b Backoff) Wait(ctx context.Context, attempt int) error {
	t := time.NewTimer(b.Delay(attempt))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
