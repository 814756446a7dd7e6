package thread

import (
	"context"
	"math/rand"
	"time"

	"threadcast/internal/domain"
)

// Sampler picks the pause before the next reply.
type Sampler func(r domain.DelayRange) time.Duration

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// UniformDelay samples whole milliseconds uniformly from [r.Min, r.Max],
// both ends included.
func UniformDelay(r domain.DelayRange) time.Duration {
	minMs, maxMs := r.Min.Milliseconds(), r.Max.Milliseconds()
	if maxMs <= minMs {
		return time.Duration(minMs) * time.Millisecond
	}
	return time.Duration(minMs+rand.Int63n(maxMs-minMs+1)) * time.Millisecond
}

func SleepContext(ctx context.Context, d time.Duration) error {
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
