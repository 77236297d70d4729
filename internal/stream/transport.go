package stream

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/ricirt/pulse/internal/domain"
	"github.com/ricirt/pulse/internal/repository"
)

// Outcomes reported to Hooks.OnFinish.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
)

// Options controls chunking and pacing.
type Options struct {
	Mode      ChunkMode
	BlockSize int
	MinDelay  time.Duration
	MaxDelay  time.Duration
}

// Hooks carries the metric callbacks injected by main. Nil fields are no-ops.
type Hooks struct {
	OnOpen   func()
	OnChunk  func()
	OnFinish func(outcome string)
}

// Transport opens activity streams. It holds no per-stream state, so one
// Transport serves any number of concurrent connections.
type Transport struct {
	subjects repository.SubjectRepository
	narrator *Narrator
	opts     Options
	hooks    Hooks
	logger   *zap.Logger
}

func NewTransport(
	subjects repository.SubjectRepository,
	narrator *Narrator,
	opts Options,
	hooks Hooks,
	logger *zap.Logger,
) *Transport {
	if hooks.OnOpen == nil {
		hooks.OnOpen = func() {}
	}
	if hooks.OnChunk == nil {
		hooks.OnChunk = func() {}
	}
	if hooks.OnFinish == nil {
		hooks.OnFinish = func(string) {}
	}
	return &Transport{subjects: subjects, narrator: narrator, opts: opts, hooks: hooks, logger: logger}
}

// Open builds the text for subjectID and returns a Stream over it.
// An empty or unknown subject gets generic filler. A directory failure is
// returned as a *domain.TransportError.
func (t *Transport) Open(ctx context.Context, subjectID string) (*Stream, error) {
	var subject *domain.Subject
	if subjectID != "" {
		s, err := t.subjects.GetByID(ctx, subjectID)
		switch {
		case err == nil:
			subject = s
		case errors.Is(err, domain.ErrNotFound):
			t.logger.Debug("unknown subject, streaming generic text", zap.String("subject_id", subjectID))
		default:
			return nil, &domain.TransportError{Op: "open", Err: err}
		}
	}

	text := t.narrator.Narrate(subject)
	chunks, err := Split(text, t.opts.Mode, t.opts.BlockSize)
	if err != nil {
		return nil, &domain.TransportError{Op: "open", Err: err}
	}

	t.hooks.OnOpen()
	return newStream(text, chunks, t.delayFunc(), t.hooks), nil
}

func (t *Transport) delayFunc() func() time.Duration {
	lo, hi := t.opts.MinDelay, t.opts.MaxDelay
	return func() time.Duration {
		if hi <= lo {
			return lo
		}
		return lo + time.Duration(rand.Int64N(int64(hi-lo)+1))
	}
}
