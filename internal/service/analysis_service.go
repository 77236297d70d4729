package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ricirt/pulse/internal/domain"
	"github.com/ricirt/pulse/internal/idgen"
	"github.com/ricirt/pulse/internal/queue"
	"github.com/ricirt/pulse/internal/repository"
	"github.com/ricirt/pulse/internal/stream"
	"github.com/ricirt/pulse/internal/worker"
)

// SubjectPolicy decides what happens when a request names a subject the
// directory does not know.
type SubjectPolicy string

const (
	SubjectAllow  SubjectPolicy = "allow"
	SubjectReject SubjectPolicy = "reject"
)

const queuedMessage = "Request queued for processing"

// Broadcaster is the part of the hub the service needs. *broadcast.Hub implements it.
type Broadcaster interface {
	Publish(res domain.Result) int
	Count() int
}

// SchedulerStatus reports what the scheduler is doing. *worker.Scheduler implements it.
type SchedulerStatus interface {
	State() worker.State
	InFlight() int
}

// Options holds the tunables of AnalysisService.
type Options struct {
	MaxPayload     int
	UnknownSubject SubjectPolicy

	// Metric callbacks, given the queue depth after the change. Nil is a no-op.
	OnEnqueued  func(depth int)
	OnCancelled func(depth int)
}

// AnalysisService coordinates the queue, the subject directory and the
// stream transport. HTTP handlers depend on this service, not on the
// components behind it.
type AnalysisService struct {
	q         *queue.FIFO
	ids       idgen.Generator
	subjects  repository.SubjectRepository
	hub       Broadcaster
	sched     SchedulerStatus
	transport *stream.Transport
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
}

func NewAnalysisService(
	q *queue.FIFO,
	ids idgen.Generator,
	subjects repository.SubjectRepository,
	hub Broadcaster,
	sched SchedulerStatus,
	transport *stream.Transport,
	opts Options,
	logger *zap.Logger,
) *AnalysisService {
	if opts.UnknownSubject == "" {
		opts.UnknownSubject = SubjectAllow
	}
	if opts.OnEnqueued == nil {
		opts.OnEnqueued = func(int) {}
	}
	if opts.OnCancelled == nil {
		opts.OnCancelled = func(int) {}
	}
	return &AnalysisService{
		q:         q,
		ids:       ids,
		subjects:  subjects,
		hub:       hub,
		sched:     sched,
		transport: transport,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Enqueue validates req, assigns a request ID and appends the item to the
// queue. It returns as soon as the item is queued; the outcome arrives later
// through the hub.
func (s *AnalysisService) Enqueue(ctx context.Context, req domain.EnqueueRequest) (*domain.EnqueueReceipt, error) {
	if err := req.Validate(s.opts.MaxPayload); err != nil {
		return nil, err
	}

	subjectID := req.Subject()
	if subjectID != "" && s.opts.UnknownSubject == SubjectReject {
		if err := s.checkSubject(ctx, subjectID); err != nil {
			return nil, err
		}
	}

	id := s.ids.NewID()
	payload := req.Payload
	if payload == "" {
		payload = defaultPayload(id)
	}

	item := domain.WorkItem{
		RequestID:  id,
		SubjectID:  subjectID,
		Payload:    payload,
		EnqueuedAt: s.now().UTC(),
	}
	if err := s.q.Enqueue(ctx, item); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", id, err)
	}

	depth := s.q.Len()
	s.opts.OnEnqueued(depth)
	s.logger.Info("analysis queued",
		zap.String("request_id", id),
		zap.String("subject_id", subjectID),
		zap.Int("queue_depth", depth),
	)

	return &domain.EnqueueReceipt{
		RequestID: id,
		SubjectID: subjectID,
		Status:    domain.StatusPending,
		Message:   queuedMessage,
	}, nil
}

// Cancel withdraws a request that is still waiting in the queue and
// publishes its cancelled Result. In-flight and finished requests return
// domain.ErrNotFound.
func (s *AnalysisService) Cancel(_ context.Context, requestID string) error {
	item, ok := s.q.Remove(requestID)
	if !ok {
		return domain.ErrNotFound
	}

	depth := s.q.Len()
	s.opts.OnCancelled(depth)
	delivered := s.hub.Publish(domain.CancelledResult(item, s.now().UTC()))

	s.logger.Info("analysis cancelled",
		zap.String("request_id", requestID),
		zap.Int("subscribers", delivered),
	)
	return nil
}

// OpenStream starts an activity stream for subjectID. A malformed or
// unknown subject gets the generic text.
func (s *AnalysisService) OpenStream(ctx context.Context, subjectID string) (*stream.Stream, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID != "" && !domain.ValidSubjectID(subjectID) {
		s.logger.Debug("malformed subject id on stream, using generic text", zap.String("subject_id", subjectID))
		subjectID = ""
	}
	return s.transport.Open(ctx, subjectID)
}

func (s *AnalysisService) Stats() domain.QueueStats {
	return domain.QueueStats{
		QueueDepth:  s.q.Len(),
		InFlight:    s.sched.InFlight(),
		State:       string(s.sched.State()),
		Subscribers: s.hub.Count(),
	}
}

func (s *AnalysisService) checkSubject(ctx context.Context, id string) error {
	_, err := s.subjects.GetByID(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return &domain.EnqueueError{Field: "subjectId", Err: domain.ErrSubjectNotFound}
	default:
		return fmt.Errorf("lookup subject %s: %w", id, err)
	}
}

func defaultPayload(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return "Request " + id
}
