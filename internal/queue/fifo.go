package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/ricirt/pulse/internal/domain"
)

// OverflowPolicy decides what Enqueue does when the queue is at its maximum depth.
type OverflowPolicy string

const (
	// OverflowReject fails the enqueue immediately with domain.ErrQueueFull.
	OverflowReject OverflowPolicy = "reject"
	// OverflowBlock makes the caller wait for space until its context ends.
	OverflowBlock OverflowPolicy = "block"
)

func (p OverflowPolicy) IsValid() bool {
	switch p {
	case OverflowReject, OverflowBlock:
		return true
	}
	return false
}

// FIFO is an ordered list of pending work items.
//
// Enqueue is safe for any number of concurrent producers; dequeue is meant
// for a single consumer (the scheduler loop). Items leave the queue in the
// exact order they entered it unless the consumer asks for the first item
// matching a predicate via DequeueWhere.
//
// Waiters block on a "changed" channel that is closed and replaced on every
// state change, so one close wakes every goroutine waiting on the old value.
type FIFO struct {
	mu       sync.Mutex
	items    []domain.WorkItem
	maxDepth int
	policy   OverflowPolicy
	changed  chan struct{}
	closed   bool
}

// New creates a FIFO. maxDepth <= 0 means unbounded.
func New(maxDepth int, policy OverflowPolicy) (*FIFO, error) {
	if !policy.IsValid() {
		return nil, fmt.Errorf("unknown overflow policy %q", policy)
	}
	return &FIFO{
		maxDepth: maxDepth,
		policy:   policy,
		changed:  make(chan struct{}),
	}, nil
}

// Enqueue appends item at the tail.
//
// When the queue is full, OverflowReject returns domain.ErrQueueFull at once
// and OverflowBlock waits for space, returning ctx.Err() if ctx ends first.
// Enqueue on a closed queue returns domain.ErrQueueClosed.
func (q *FIFO) Enqueue(ctx context.Context, item domain.WorkItem) error {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return domain.ErrQueueClosed
		}
		if q.maxDepth <= 0 || len(q.items) < q.maxDepth {
			q.items = append(q.items, item)
			q.signalLocked()
			q.mu.Unlock()
			return nil
		}
		if q.policy != OverflowBlock {
			q.mu.Unlock()
			return domain.ErrQueueFull
		}
		wait := q.changed
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Dequeue removes and returns the head, blocking until an item is available.
// Returns (WorkItem{}, false) when ctx is cancelled or the queue is closed and drained.
func (q *FIFO) Dequeue(ctx context.Context) (domain.WorkItem, bool) {
	return q.DequeueWhere(ctx, nil)
}

// DequeueWhere removes and returns the first pending item for which eligible
// returns true (nil accepts everything). It blocks while no item qualifies.
// eligible is called with the queue lock held and must not call back into the queue.
func (q *FIFO) DequeueWhere(ctx context.Context, eligible func(domain.WorkItem) bool) (domain.WorkItem, bool) {
	for {
		q.mu.Lock()
		for i, it := range q.items {
			if eligible == nil || eligible(it) {
				q.removeLocked(i)
				q.mu.Unlock()
				return it, true
			}
		}
		if q.closed && len(q.items) == 0 {
			q.mu.Unlock()
			return domain.WorkItem{}, false
		}
		wait := q.changed
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return domain.WorkItem{}, false
		}
	}
}

// TryDequeue removes and returns the head without blocking.
// The boolean is false when nothing is pending.
func (q *FIFO) TryDequeue() (domain.WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return domain.WorkItem{}, false
	}
	it := q.items[0]
	q.removeLocked(0)
	return it, true
}

// Remove withdraws a still-pending item by request ID.
func (q *FIFO) Remove(requestID string) (domain.WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, it := range q.items {
		if it.RequestID == requestID {
			q.removeLocked(i)
			return it, true
		}
	}
	return domain.WorkItem{}, false
}

// Notify wakes blocked consumers so they re-evaluate their eligibility predicate.
// The scheduler calls it when a subject stops being in flight.
func (q *FIFO) Notify() {
	q.mu.Lock()
	q.signalLocked()
	q.mu.Unlock()
}

// Len returns the number of pending items.
func (q *FIFO) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further enqueues and wakes every waiter.
// Pending items can still be dequeued.
func (q *FIFO) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.signalLocked()
}

func (q *FIFO) removeLocked(i int) {
	copy(q.items[i:], q.items[i+1:])
	q.items[len(q.items)-1] = domain.WorkItem{}
	q.items = q.items[:len(q.items)-1]
	q.signalLocked()
}

func (q *FIFO) signalLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}
