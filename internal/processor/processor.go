package processor

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/ricirt/pulse/internal/domain"
)

// Processor turns one work item into its Result.
// Implementations must honour ctx: the scheduler bounds every call with a
// deadline and treats expiry as a processing failure.
type Processor interface {
	Process(ctx context.Context, item domain.WorkItem) (domain.Result, error)
}

// Func adapts an ordinary function to the Processor interface.
type Func func(ctx context.Context, item domain.WorkItem) (domain.Result, error)

func (f Func) Process(ctx context.Context, item domain.WorkItem) (domain.Result, error) {
	return f(ctx, item)
}

// Latency decides how long one simulated computation takes.
type Latency interface {
	Next() time.Duration
}

// Fixed always returns the same delay.
type Fixed time.Duration

func (f Fixed) Next() time.Duration { return time.Duration(f) }

// Uniform returns a delay drawn uniformly from [Min, Max].
type Uniform struct {
	Min time.Duration
	Max time.Duration
}

func (u Uniform) Next() time.Duration {
	if u.Max <= u.Min {
		return u.Min
	}
	return u.Min + time.Duration(rand.Int64N(int64(u.Max-u.Min)+1))
}

// NewLatency returns Fixed(base) when jitter is zero and
// Uniform{base-jitter, base+jitter} (floored at zero) otherwise.
func NewLatency(base, jitter time.Duration) Latency {
	if jitter <= 0 {
		return Fixed(base)
	}
	lo := base - jitter
	if lo < 0 {
		lo = 0
	}
	return Uniform{Min: lo, Max: base + jitter}
}

// sleep waits for d or until ctx ends, releasing the timer either way.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	_ Processor = Func(nil)
	_ Latency   = Fixed(0)
	_ Latency   = Uniform{}
)
