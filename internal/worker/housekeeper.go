package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ricirt/pulse/internal/queue"
	"github.com/ricirt/pulse/internal/ratelimiter"
)

// Housekeeper samples the queue depth for the metrics gauge and evicts idle
// per-client rate limiters on a fixed interval.
type Housekeeper struct {
	q        *queue.FIFO
	limiters *ratelimiter.ClientLimiters
	idleTTL  time.Duration
	interval time.Duration
	onDepth  func(int)
	logger   *zap.Logger
}

func NewHousekeeper(
	q *queue.FIFO,
	limiters *ratelimiter.ClientLimiters,
	idleTTL time.Duration,
	interval time.Duration,
	onDepth func(int),
	logger *zap.Logger,
) *Housekeeper {
	if onDepth == nil {
		onDepth = func(int) {}
	}
	return &Housekeeper{q: q, limiters: limiters, idleTTL: idleTTL, interval: interval, onDepth: onDepth, logger: logger}
}

// Run ticks every interval until ctx is cancelled.
func (h *Housekeeper) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.logger.Info("housekeeper started", zap.Duration("interval", h.interval))

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("housekeeper stopping")
			return
		case <-ticker.C:
			h.tick()
		}
	}
}

func (h *Housekeeper) tick() {
	h.onDepth(h.q.Len())

	if h.limiters == nil {
		return
	}
	if n := h.limiters.Sweep(h.idleTTL); n > 0 {
		h.logger.Debug("evicted idle rate limiters", zap.Int("count", n), zap.Int("remaining", h.limiters.Len()))
	}
}
