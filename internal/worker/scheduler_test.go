package worker_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ricirt/pulse/internal/broadcast"
	"github.com/ricirt/pulse/internal/domain"
	"github.com/ricirt/pulse/internal/processor"
	"github.com/ricirt/pulse/internal/queue"
	"github.com/ricirt/pulse/internal/worker"
)

type harness struct {
	q     *queue.FIFO
	hub   *broadcast.Hub
	sched *worker.Scheduler
	sub   *broadcast.Subscription
	stop  context.CancelFunc
}

func newHarness(t *testing.T, proc processor.Processor, concurrency int, timeout time.Duration) *harness {
	t.Helper()
	q, err := queue.New(0, queue.OverflowReject)
	if err != nil {
		t.Fatal(err)
	}
	hub := broadcast.New(256, zap.NewNop(), broadcast.Hooks{})
	sub := hub.Subscribe()
	sched := worker.NewScheduler(q, proc, hub, concurrency, timeout, zap.NewNop(), worker.MetricHooks{})

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)

	h := &harness{q: q, hub: hub, sched: sched, sub: sub, stop: cancel}
	t.Cleanup(func() {
		cancel()
		sched.Wait()
	})
	return h
}

func (h *harness) enqueue(t *testing.T, id, subject string) {
	t.Helper()
	err := h.q.Enqueue(context.Background(), domain.WorkItem{
		RequestID:  id,
		SubjectID:  subject,
		Payload:    "payload " + id,
		EnqueuedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func (h *harness) collect(t *testing.T, n int) []domain.Result {
	t.Helper()
	out := make([]domain.Result, 0, n)
	timeout := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case r := <-h.sub.C():
			out = append(out, r)
		case <-timeout:
			t.Fatalf("timed out after %d/%d results", len(out), n)
		}
	}
	return out
}

// concurrencyProbe records the highest number of simultaneous Process calls.
type concurrencyProbe struct {
	current atomic.Int64
	max     atomic.Int64
	delay   time.Duration
}

func (p *concurrencyProbe) Process(ctx context.Context, item domain.WorkItem) (domain.Result, error) {
	n := p.current.Add(1)
	defer p.current.Add(-1)
	for {
		m := p.max.Load()
		if n <= m || p.max.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(p.delay)
	return domain.Result{Payload: item.Payload, Score: 1, Summary: "ok", Status: domain.StatusCompleted}, nil
}

func TestScheduler_FIFOAndSingleFlight(t *testing.T) {
	probe := &concurrencyProbe{delay: 2 * time.Millisecond}
	h := newHarness(t, probe, 1, time.Second)

	const n = 20
	for i := 1; i <= n; i++ {
		h.enqueue(t, fmt.Sprintf("r%d", i), "")
	}

	results := h.collect(t, n)
	for i, r := range results {
		if want := fmt.Sprintf("r%d", i+1); r.RequestID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, r.RequestID)
		}
		if r.Status != domain.StatusCompleted {
			t.Fatalf("%s: expected completed, got %s", r.RequestID, r.Status)
		}
	}
	if probe.max.Load() != 1 {
		t.Fatalf("expected at most one item in flight, observed %d", probe.max.Load())
	}
}

func TestScheduler_CorrelationIntegrity(t *testing.T) {
	// The processor lies about correlation keys; the scheduler must not.
	proc := processor.Func(func(ctx context.Context, item domain.WorkItem) (domain.Result, error) {
		return domain.Result{RequestID: "bogus", SubjectID: "bogus", Payload: item.Payload}, nil
	})
	h := newHarness(t, proc, 1, time.Second)

	h.enqueue(t, "r1", "u1")
	h.enqueue(t, "r2", "")

	results := h.collect(t, 2)
	if results[0].RequestID != "r1" || results[0].SubjectID != "u1" {
		t.Fatalf("unexpected correlation: %+v", results[0])
	}
	if results[1].RequestID != "r2" || results[1].SubjectID != "" {
		t.Fatalf("unexpected correlation: %+v", results[1])
	}
	if results[0].Status != domain.StatusCompleted {
		t.Fatalf("expected default status completed, got %s", results[0].Status)
	}
}

// TestScheduler_FailureDoesNotStall verifies a failing item yields a failed
// Result and the next item still runs.
func TestScheduler_FailureDoesNotStall(t *testing.T) {
	proc := processor.Func(func(ctx context.Context, item domain.WorkItem) (domain.Result, error) {
		if item.RequestID == "r2" {
			return domain.Result{}, domain.ErrSimulatedFailure
		}
		return domain.Result{Status: domain.StatusCompleted}, nil
	})
	h := newHarness(t, proc, 1, time.Second)

	for _, id := range []string{"r1", "r2", "r3"} {
		h.enqueue(t, id, "u1")
	}

	results := h.collect(t, 3)
	wantStatus := []domain.Status{domain.StatusCompleted, domain.StatusFailed, domain.StatusCompleted}
	for i, r := range results {
		if r.Status != wantStatus[i] {
			t.Fatalf("%s: expected %s, got %s", r.RequestID, wantStatus[i], r.Status)
		}
	}
	if !strings.Contains(results[1].Error, domain.ErrSimulatedFailure.Error()) {
		t.Fatalf("expected failure reason, got %q", results[1].Error)
	}
	if results[1].SubjectID != "u1" || results[1].Payload != "payload r2" {
		t.Fatalf("failed result lost correlation: %+v", results[1])
	}
}

func TestScheduler_TimeoutIsProcessingError(t *testing.T) {
	proc := processor.Func(func(ctx context.Context, item domain.WorkItem) (domain.Result, error) {
		<-ctx.Done()
		return domain.Result{}, ctx.Err()
	})
	h := newHarness(t, proc, 1, 20*time.Millisecond)

	h.enqueue(t, "r1", "")
	res := h.collect(t, 1)[0]

	if res.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", res.Status)
	}
	if !strings.Contains(res.Error, domain.ErrProcessingTimeout.Error()) {
		t.Fatalf("expected timeout reason, got %q", res.Error)
	}
}

func TestScheduler_StateTransitions(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	proc := processor.Func(func(ctx context.Context, item domain.WorkItem) (domain.Result, error) {
		started <- struct{}{}
		<-release
		return domain.Result{}, nil
	})
	h := newHarness(t, proc, 1, time.Second)

	if h.sched.State() != worker.StateIdle {
		t.Fatalf("expected idle, got %s", h.sched.State())
	}

	h.enqueue(t, "r1", "")
	h.enqueue(t, "r2", "")
	<-started

	if h.sched.State() != worker.StateBusy || h.sched.InFlight() != 1 {
		t.Fatalf("expected busy with one in flight, got %s/%d", h.sched.State(), h.sched.InFlight())
	}
	if h.q.Len() != 1 {
		t.Fatalf("second item must wait in the queue, depth=%d", h.q.Len())
	}

	close(release)
	h.collect(t, 2)

	deadline := time.Now().Add(time.Second)
	for h.sched.State() != worker.StateIdle {
		if time.Now().After(deadline) {
			t.Fatal("scheduler did not return to idle")
		}
		time.Sleep(time.Millisecond)
	}
}

// TestScheduler_PerSubjectOrdering runs several slots and verifies items of
// one subject never overlap and finish in enqueue order.
func TestScheduler_PerSubjectOrdering(t *testing.T) {
	var mu sync.Mutex
	active := make(map[string]int)
	overlap := false

	proc := processor.Func(func(ctx context.Context, item domain.WorkItem) (domain.Result, error) {
		mu.Lock()
		active[item.SubjectID]++
		if item.SubjectID != "" && active[item.SubjectID] > 1 {
			overlap = true
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active[item.SubjectID]--
		mu.Unlock()
		return domain.Result{}, nil
	})
	h := newHarness(t, proc, 3, time.Second)

	subjects := []string{"a", "a", "b", "c", "a", "", "b", "a"}
	for i, s := range subjects {
		h.enqueue(t, fmt.Sprintf("r%d", i+1), s)
	}

	results := h.collect(t, len(subjects))

	mu.Lock()
	defer mu.Unlock()
	if overlap {
		t.Fatal("two items of the same subject were in flight together")
	}

	var order []string
	for _, r := range results {
		if r.SubjectID == "a" {
			order = append(order, r.RequestID)
		}
	}
	if strings.Join(order, ",") != "r1,r2,r5,r8" {
		t.Fatalf("subject a completed out of order: %v", order)
	}
}

func TestScheduler_ShutdownFinishesInFlight(t *testing.T) {
	started := make(chan struct{})
	proc := processor.Func(func(ctx context.Context, item domain.WorkItem) (domain.Result, error) {
		close(started)
		time.Sleep(30 * time.Millisecond)
		if err := ctx.Err(); err != nil {
			return domain.Result{}, err
		}
		return domain.Result{}, nil
	})
	h := newHarness(t, proc, 1, time.Second)

	h.enqueue(t, "r1", "")
	<-started
	h.stop()
	h.sched.Wait()

	select {
	case r := <-h.sub.C():
		if r.RequestID != "r1" || r.Status != domain.StatusCompleted {
			t.Fatalf("unexpected result after shutdown: %+v", r)
		}
	default:
		t.Fatal("in-flight item was not published before Wait returned")
	}
}
