package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ricirt/pulse/internal/domain"
	"github.com/ricirt/pulse/internal/queue"
	"github.com/ricirt/pulse/internal/ratelimiter"
	"github.com/ricirt/pulse/internal/worker"
)

func TestHousekeeper_SamplesDepthAndSweeps(t *testing.T) {
	q, _ := queue.New(0, queue.OverflowReject)
	_ = q.Enqueue(context.Background(), domain.WorkItem{RequestID: "r1"})
	_ = q.Enqueue(context.Background(), domain.WorkItem{RequestID: "r2"})

	limiters := ratelimiter.New(10, 10)
	limiters.Allow("10.0.0.1")

	var depth atomic.Int64
	depth.Store(-1)
	hk := worker.NewHousekeeper(q, limiters, 0, 5*time.Millisecond,
		func(n int) { depth.Store(int64(n)) }, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hk.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for depth.Load() != 2 || limiters.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("depth=%d limiters=%d", depth.Load(), limiters.Len())
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	<-done
}
