package stream_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/ricirt/pulse/internal/domain"
	"github.com/ricirt/pulse/internal/repository"
	"github.com/ricirt/pulse/internal/stream"
)

type outcomes struct {
	mu       sync.Mutex
	opened   int
	chunks   int
	finished []string
}

func (o *outcomes) hooks() stream.Hooks {
	return stream.Hooks{
		OnOpen:  func() { o.mu.Lock(); o.opened++; o.mu.Unlock() },
		OnChunk: func() { o.mu.Lock(); o.chunks++; o.mu.Unlock() },
		OnFinish: func(outcome string) {
			o.mu.Lock()
			o.finished = append(o.finished, outcome)
			o.mu.Unlock()
		},
	}
}

func newTransport(t *testing.T, opts stream.Options, o *outcomes) (*stream.Transport, *repository.MemorySubjectRepository) {
	t.Helper()
	repo := repository.NewMemorySubjectRepository()
	_ = repo.Seed(context.Background(), []domain.Subject{{
		ID:          "u1",
		Name:        "Ada Lovelace",
		Nationality: "British",
		Hobbies:     []string{"Chess", "Astronomy", "Music"},
	}})
	var hooks stream.Hooks
	if o != nil {
		hooks = o.hooks()
	}
	return stream.NewTransport(repo, stream.NewNarrator(gofakeit.New(3)), opts, hooks, zap.NewNop()), repo
}

func drain(t *testing.T, s *stream.Stream) []string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var chunks []string
	for {
		c, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			return chunks
		}
		if err != nil {
			t.Fatalf("unexpected error after %d chunks: %v", len(chunks), err)
		}
		chunks = append(chunks, c)
	}
}

func TestTransport_SubjectNarrativeExhausts(t *testing.T) {
	o := &outcomes{}
	tr, _ := newTransport(t, stream.Options{Mode: stream.ChunkChar}, o)

	s, err := tr.Open(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	text := s.Text()
	if !strings.HasPrefix(text, "Ada Lovelace has been actively exploring") {
		t.Fatalf("expected personalised narrative, got %q", text[:40])
	}
	if !strings.Contains(text, "Shows strong interest in Chess and Astronomy.") {
		t.Fatalf("expected the first two hobbies: %q", text)
	}
	if n := len(strings.Split(text, "\n\n")); n != 10 {
		t.Fatalf("expected 10 paragraphs, got %d", n)
	}

	chunks := drain(t, s)
	if strings.Join(chunks, "") != text {
		t.Fatal("concatenated chunks differ from the text")
	}
	if len(chunks) != s.Len() {
		t.Fatalf("expected %d chunks, got %d", s.Len(), len(chunks))
	}

	// Exhausted streams stay exhausted.
	if _, err := s.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF again, got %v", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.opened != 1 || o.chunks != len(chunks) || len(o.finished) != 1 || o.finished[0] != stream.OutcomeCompleted {
		t.Fatalf("unexpected hooks: opened=%d chunks=%d finished=%v", o.opened, o.chunks, o.finished)
	}
}

func TestTransport_UnknownSubjectGetsGenericParagraphs(t *testing.T) {
	tr, _ := newTransport(t, stream.Options{Mode: stream.ChunkWord}, nil)

	for _, id := range []string{"", "missing"} {
		s, err := tr.Open(context.Background(), id)
		if err != nil {
			t.Fatal(err)
		}
		paragraphs := strings.Split(s.Text(), "\n\n")
		if len(paragraphs) != stream.GenericParagraphs {
			t.Fatalf("subject %q: expected %d paragraphs, got %d", id, stream.GenericParagraphs, len(paragraphs))
		}
		for i, p := range paragraphs {
			if strings.TrimSpace(p) == "" {
				t.Fatalf("subject %q: paragraph %d empty", id, i)
			}
		}
		if strings.Join(drain(t, s), "") != s.Text() {
			t.Fatalf("subject %q: concatenated chunks differ", id)
		}
	}
}

func TestTransport_DirectoryFailureIsTransportError(t *testing.T) {
	tr, repo := newTransport(t, stream.Options{Mode: stream.ChunkChar}, nil)
	repo.GetByIDErr = errors.New("connection refused")

	_, err := tr.Open(context.Background(), "u1")
	var te *domain.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestTransport_InvalidChunkMode(t *testing.T) {
	tr, _ := newTransport(t, stream.Options{Mode: stream.ChunkBlock}, nil)
	if _, err := tr.Open(context.Background(), ""); err == nil {
		t.Fatal("expected error for zero block size")
	}
}

// TestStream_NoChunkAfterCancellation cancels mid-stream and verifies the
// stream stops at once and stays stopped.
func TestStream_NoChunkAfterCancellation(t *testing.T) {
	o := &outcomes{}
	tr, _ := newTransport(t, stream.Options{Mode: stream.ChunkChar, MinDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}, o)
	s, _ := tr.Open(context.Background(), "u1")

	ctx, cancel := context.WithCancel(context.Background())
	var got []string
	for i := 0; i < 5; i++ {
		c, err := s.Next(ctx)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, c)
	}
	cancel()

	for i := 0; i < 3; i++ {
		c, err := s.Next(ctx)
		if !errors.Is(err, context.Canceled) || c != "" {
			t.Fatalf("expected cancellation, got chunk=%q err=%v", c, err)
		}
	}
	// A fresh context cannot restart the stream.
	if _, err := s.Next(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("stream restarted after cancellation: %v", err)
	}
	if strings.Join(got, "") != s.Text()[:len(strings.Join(got, ""))] {
		t.Fatal("emitted prefix does not match the text")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.finished) != 1 || o.finished[0] != stream.OutcomeCancelled {
		t.Fatalf("expected one cancelled outcome, got %v", o.finished)
	}
}

func TestStream_CloseInterruptsPendingDelay(t *testing.T) {
	tr, _ := newTransport(t, stream.Options{Mode: stream.ChunkChar, MinDelay: time.Hour, MaxDelay: time.Hour}, nil)
	s, _ := tr.Open(context.Background(), "u1")

	errc := make(chan error, 1)
	go func() {
		_, err := s.Next(context.Background())
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	s.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, stream.ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not interrupt the pacing delay")
	}
}

func TestStream_PacingDelayApplied(t *testing.T) {
	tr, _ := newTransport(t, stream.Options{Mode: stream.ChunkBlock, BlockSize: 1 << 20, MinDelay: 20 * time.Millisecond, MaxDelay: 20 * time.Millisecond}, nil)
	s, _ := tr.Open(context.Background(), "")

	start := time.Now()
	if _, err := s.Next(context.Background()); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("expected at least 20ms pacing, got %v", elapsed)
	}
}
