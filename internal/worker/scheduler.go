package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ricirt/pulse/internal/domain"
	"github.com/ricirt/pulse/internal/processor"
	"github.com/ricirt/pulse/internal/queue"
)

// State is the scheduler's position in its Idle/Busy state machine.
type State string

const (
	StateIdle State = "idle"
	StateBusy State = "busy"
)

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the scheduler constructor signature clean.
type MetricHooks struct {
	OnStarted  func(queueWait time.Duration)
	OnFinished func(status domain.Status, latency time.Duration)
	OnInFlight func(n int)
}

// Publisher receives every finished Result. *broadcast.Hub implements it.
type Publisher interface {
	Publish(res domain.Result) int
}

// Scheduler drains the queue into the processor.
//
// Concurrency is a slot semaphore: the loop takes a slot before it dequeues
// and the slot comes back only after the Result has been published. With the
// default single slot this makes "at most one item in flight" and "results in
// enqueue order" structural rather than a convention. With more slots, items
// sharing a subject are still never in flight together: the loop only
// dequeues items whose subject is idle, and every release wakes the queue so
// skipped items are reconsidered.
type Scheduler struct {
	q           *queue.FIFO
	proc        processor.Processor
	pub         Publisher
	concurrency int
	timeout     time.Duration
	logger      *zap.Logger
	hooks       MetricHooks
	now         func() time.Time

	mu       sync.Mutex
	inFlight int
	subjects map[string]struct{}

	wg sync.WaitGroup
}

// NewScheduler builds a scheduler. concurrency < 1 is treated as 1 and
// timeout <= 0 disables the processing deadline.
func NewScheduler(
	q *queue.FIFO,
	proc processor.Processor,
	pub Publisher,
	concurrency int,
	timeout time.Duration,
	logger *zap.Logger,
	hooks MetricHooks,
) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	if hooks.OnStarted == nil {
		hooks.OnStarted = func(time.Duration) {}
	}
	if hooks.OnFinished == nil {
		hooks.OnFinished = func(domain.Status, time.Duration) {}
	}
	if hooks.OnInFlight == nil {
		hooks.OnInFlight = func(int) {}
	}
	return &Scheduler{
		q:           q,
		proc:        proc,
		pub:         pub,
		concurrency: concurrency,
		timeout:     timeout,
		logger:      logger,
		hooks:       hooks,
		now:         time.Now,
		subjects:    make(map[string]struct{}),
	}
}

// Start launches the dispatch loop. Cancelling ctx stops dequeuing; items
// already in flight run to completion and are still published.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Wait blocks until the loop has returned and every in-flight item has been
// published. Call it after cancelling the context passed to Start.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// State reports Idle when nothing is in flight and Busy otherwise.
func (s *Scheduler) State() State {
	if s.InFlight() == 0 {
		return StateIdle
	}
	return StateBusy
}

// InFlight returns the number of items currently being processed.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

func (s *Scheduler) run(ctx context.Context) {
	s.logger.Info("scheduler started", zap.Int("concurrency", s.concurrency))

	var eligible func(domain.WorkItem) bool
	if s.concurrency > 1 {
		eligible = s.subjectIdle
	}

	slots := make(chan struct{}, s.concurrency)
	for {
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return
		}

		item, ok := s.q.DequeueWhere(ctx, eligible)
		if !ok {
			<-slots
			s.logger.Info("scheduler stopping")
			return
		}

		s.claim(item)
		s.wg.Add(1)
		go func(item domain.WorkItem) {
			defer s.wg.Done()
			defer func() {
				s.release(item)
				<-slots
			}()
			s.process(ctx, item)
		}(item)
	}
}

// subjectIdle is called by the queue with its lock held.
func (s *Scheduler) subjectIdle(item domain.WorkItem) bool {
	if item.SubjectID == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.subjects[item.SubjectID]
	return !busy
}

func (s *Scheduler) claim(item domain.WorkItem) {
	s.mu.Lock()
	s.inFlight++
	if item.SubjectID != "" {
		s.subjects[item.SubjectID] = struct{}{}
	}
	n := s.inFlight
	s.mu.Unlock()
	s.hooks.OnInFlight(n)
}

func (s *Scheduler) release(item domain.WorkItem) {
	s.mu.Lock()
	s.inFlight--
	delete(s.subjects, item.SubjectID)
	n := s.inFlight
	s.mu.Unlock()
	s.hooks.OnInFlight(n)

	if s.concurrency > 1 {
		s.q.Notify()
	}
}
