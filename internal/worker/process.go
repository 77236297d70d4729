package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ricirt/pulse/internal/domain"
)

// process runs one item through the processor and publishes exactly one
// Result for it, whether processing succeeded, failed or timed out.
func (s *Scheduler) process(ctx context.Context, item domain.WorkItem) {
	start := s.now()
	log := s.logger.With(
		zap.String("request_id", item.RequestID),
		zap.String("subject_id", item.SubjectID),
	)

	if !item.EnqueuedAt.IsZero() {
		s.hooks.OnStarted(start.Sub(item.EnqueuedAt))
	}

	// In-flight work outlives a shutdown signal; only the processing deadline bounds it.
	pctx, cancel := s.processingContext(ctx)
	defer cancel()

	res, err := s.proc.Process(pctx, item)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = domain.ErrProcessingTimeout
		}
		perr := &domain.ProcessingError{RequestID: item.RequestID, Err: err}
		log.Warn("processing failed", zap.Error(perr))
		res = domain.FailedResult(item, perr, s.now().UTC())
	} else {
		res.RequestID = item.RequestID
		res.SubjectID = item.SubjectID
		if res.Status == "" {
			res.Status = domain.StatusCompleted
		}
	}

	elapsed := s.now().Sub(start)
	delivered := s.pub.Publish(res)
	s.hooks.OnFinished(res.Status, elapsed)

	log.Info("analysis finished",
		zap.String("status", string(res.Status)),
		zap.Duration("latency", elapsed),
		zap.Int("subscribers", delivered),
	)
}

func (s *Scheduler) processingContext(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if s.timeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, s.timeout)
}
