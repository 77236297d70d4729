// Package broadcast fans completion events out to every live subscriber.
//
// The Hub owns the subscriber registry. Publish holds the read lock while it
// walks the registry and Subscribe/Unsubscribe take the write lock, so a
// subscriber is either fully registered or fully gone for any given publish,
// and no channel is closed while a publish may still send on it.
//
// Delivery is fire-and-forget. Each subscriber has its own bounded buffer;
// when that buffer is full the event is dropped for that subscriber alone,
// so one slow client never stalls the others.
package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ricirt/pulse/internal/domain"
)

// DefaultBufferSize is used when New is given a non-positive buffer size.
const DefaultBufferSize = 64

// Hooks carries the metric callbacks injected by main. Nil fields are no-ops.
type Hooks struct {
	OnDropped     func()
	OnSubscribers func(n int)
}

// Subscription is one registered receiver of published results.
type Subscription struct {
	ID string

	ch      chan domain.Result
	hub     *Hub
	dropped atomic.Uint64
}

// C returns the channel results are delivered on. It is closed when the
// subscription is removed or the hub shuts down.
func (s *Subscription) C() <-chan domain.Result { return s.ch }

// Dropped reports how many results were discarded because the buffer was full.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() { s.hub.Unsubscribe(s) }

// Hub is a process-wide publish/subscribe registry for results.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]*Subscription
	bufSize int
	closed  bool

	logger *zap.Logger
	hooks  Hooks
}

func New(bufSize int, logger *zap.Logger, hooks Hooks) *Hub {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	if hooks.OnDropped == nil {
		hooks.OnDropped = func() {}
	}
	if hooks.OnSubscribers == nil {
		hooks.OnSubscribers = func(int) {}
	}
	return &Hub{
		subs:    make(map[string]*Subscription),
		bufSize: bufSize,
		logger:  logger,
		hooks:   hooks,
	}
}

// Subscribe registers a new subscriber. It only sees results published
// after this call returns. On a closed hub the returned channel is already closed.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		ID:  uuid.NewString(),
		ch:  make(chan domain.Result, h.bufSize),
		hub: h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.ch)
		return sub
	}
	h.subs[sub.ID] = sub
	h.hooks.OnSubscribers(len(h.subs))
	h.logger.Debug("subscriber added", zap.String("subscriber_id", sub.ID), zap.Int("subscribers", len(h.subs)))
	return sub
}

// Unsubscribe removes sub and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.ID]; !ok {
		return
	}
	delete(h.subs, sub.ID)
	close(sub.ch)
	h.hooks.OnSubscribers(len(h.subs))
	h.logger.Debug("subscriber removed",
		zap.String("subscriber_id", sub.ID),
		zap.Uint64("dropped", sub.Dropped()),
		zap.Int("subscribers", len(h.subs)),
	)
}

// Publish delivers res to every subscriber registered right now and returns
// how many accepted it. It never blocks on a subscriber.
func (h *Hub) Publish(res domain.Result) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, sub := range h.subs {
		select {
		case sub.ch <- res:
			delivered++
		default:
			sub.dropped.Add(1)
			h.hooks.OnDropped()
			h.logger.Warn("subscriber buffer full, result dropped",
				zap.String("subscriber_id", sub.ID),
				zap.String("request_id", res.RequestID),
			)
		}
	}
	return delivered
}

// Count returns the number of registered subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close removes every subscriber and closes their channels.
// Later Subscribe calls return closed subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
	h.hooks.OnSubscribers(0)
}
