package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidPayload    = errors.New("payload exceeds the maximum length")
	ErrInvalidSubject    = errors.New("subjectId must be 1-128 printable characters without spaces")
	ErrSubjectNotFound   = errors.New("subject does not exist")
	ErrQueueFull         = errors.New("queue is at capacity, try again later")
	ErrQueueClosed       = errors.New("queue is closed")
	ErrRateLimited       = errors.New("too many requests, slow down")
	ErrProcessingTimeout = errors.New("processing exceeded its time budget")
	ErrSimulatedFailure  = errors.New("simulated processing failure")
	ErrStreamUnsupported = errors.New("response writer does not support streaming")
)

// EnqueueError reports a request rejected before it entered the queue.
type EnqueueError struct {
	Field string
	Err   error
}

func (e *EnqueueError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *EnqueueError) Unwrap() error { return e.Err }

// ProcessingError reports a work item that could not be completed.
// It is surfaced asynchronously as a failed Result, never to the submitter.
type ProcessingError struct {
	RequestID string
	Err       error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("process %s: %v", e.RequestID, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// TransportError reports a stream that could not start or was aborted.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
