package stream

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("stream closed")

// Stream is a lazy, finite, non-restartable sequence of text chunks.
// Next must be called from one goroutine; Close may be called from any.
type Stream struct {
	text   string
	chunks []string
	pos    int
	delay  func() time.Duration
	hooks  Hooks

	err        error
	done       chan struct{}
	closeOnce  sync.Once
	finishOnce sync.Once
}

func newStream(text string, chunks []string, delay func() time.Duration, hooks Hooks) *Stream {
	return &Stream{
		text:   text,
		chunks: chunks,
		delay:  delay,
		hooks:  hooks,
		done:   make(chan struct{}),
	}
}

// Text returns the complete payload the stream emits.
func (s *Stream) Text() string { return s.text }

// Len returns the total number of chunks.
func (s *Stream) Len() int { return len(s.chunks) }

// Next waits the pacing delay and returns the next chunk.
// It returns io.EOF once every chunk has been emitted, ctx.Err() if ctx ends,
// or ErrClosed after Close. Once Next has returned an error it keeps
// returning that error.
func (s *Stream) Next(ctx context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if err := s.cancelled(ctx); err != nil {
		return "", s.fail(err)
	}
	if s.pos >= len(s.chunks) {
		s.err = io.EOF
		s.finish(OutcomeCompleted)
		return "", io.EOF
	}

	if d := s.delay(); d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", s.fail(ctx.Err())
		case <-s.done:
			timer.Stop()
			return "", s.fail(ErrClosed)
		}
	}

	// Cancellation may have raced the timer.
	if err := s.cancelled(ctx); err != nil {
		return "", s.fail(err)
	}

	chunk := s.chunks[s.pos]
	s.pos++
	s.hooks.OnChunk()
	return chunk, nil
}

// Close abandons the stream. Pending and future Next calls return ErrClosed.
func (s *Stream) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	s.finish(OutcomeCancelled)
}

func (s *Stream) cancelled(ctx context.Context) error {
	select {
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (s *Stream) fail(err error) error {
	s.err = err
	s.finish(OutcomeCancelled)
	return err
}

func (s *Stream) finish(outcome string) {
	s.finishOnce.Do(func() { s.hooks.OnFinish(outcome) })
}
