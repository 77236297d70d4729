package processor

import (
	"context"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/ricirt/pulse/internal/domain"
)

const (
	minScore = 1
	maxScore = 1000
)

// Simulated stands in for real analysis: it waits for a latency drawn from
// its strategy, then fabricates a score and a summary sentence.
// With a non-zero failure rate a matching share of items fails instead.
type Simulated struct {
	latency     Latency
	failureRate float64
	now         func() time.Time

	mu    sync.Mutex // guards faker
	faker *gofakeit.Faker
}

func NewSimulated(latency Latency, failureRate float64, faker *gofakeit.Faker) *Simulated {
	if faker == nil {
		faker = gofakeit.New(0)
	}
	return &Simulated{
		latency:     latency,
		failureRate: failureRate,
		now:         time.Now,
		faker:       faker,
	}
}

func (p *Simulated) Process(ctx context.Context, item domain.WorkItem) (domain.Result, error) {
	if err := sleep(ctx, p.latency.Next()); err != nil {
		return domain.Result{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failureRate > 0 && p.faker.Float64() < p.failureRate {
		return domain.Result{}, domain.ErrSimulatedFailure
	}

	return domain.Result{
		RequestID:   item.RequestID,
		SubjectID:   item.SubjectID,
		Payload:     item.Payload,
		CompletedAt: p.now().UTC(),
		Score:       p.faker.Number(minScore, maxScore),
		Summary:     p.faker.LoremIpsumSentence(p.faker.Number(6, 12)),
		Status:      domain.StatusCompleted,
	}, nil
}

var _ Processor = (*Simulated)(nil)
