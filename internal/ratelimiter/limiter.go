package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ClientLimiters holds one token bucket per client key (the client IP).
// Buckets are created on first use and evicted by Sweep once idle, so the
// map stays proportional to the number of recently active clients.
type ClientLimiters struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates ClientLimiters granting ratePerSec tokens per second per client
// with the given burst. ratePerSec <= 0 disables limiting.
func New(ratePerSec float64, burst int) *ClientLimiters {
	limit := rate.Limit(ratePerSec)
	if ratePerSec <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &ClientLimiters{
		limiters: make(map[string]*clientLimiter),
		limit:    limit,
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether the client identified by key may proceed now.
func (cl *ClientLimiters) Allow(key string) bool {
	if cl.limit == rate.Inf {
		return true
	}

	cl.mu.Lock()
	now := cl.now()
	c, ok := cl.limiters[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.limiters[key] = c
	}
	c.lastSeen = now
	cl.mu.Unlock()

	return c.limiter.AllowN(now, 1)
}

// Sweep evicts clients not seen for longer than idle and returns how many were removed.
func (cl *ClientLimiters) Sweep(idle time.Duration) int {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cutoff := cl.now().Add(-idle)
	removed := 0
	for key, c := range cl.limiters {
		if c.lastSeen.Before(cutoff) {
			delete(cl.limiters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (cl *ClientLimiters) Len() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.limiters)
}
