package domain

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Status is the terminal state carried by a Result.
// Items waiting in the queue are reported to submitters as StatusPending.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// maxSubjectIDLength bounds subject identifiers accepted from clients.
const maxSubjectIDLength = 128

// WorkItem is a unit of queued analysis work. It is never mutated after creation.
type WorkItem struct {
	RequestID  string
	SubjectID  string
	Payload    string
	EnqueuedAt time.Time
}

// Result is the terminal outcome of processing one WorkItem.
type Result struct {
	RequestID   string    `json:"requestId"`
	SubjectID   string    `json:"subjectId,omitempty"`
	Payload     string    `json:"payload"`
	CompletedAt time.Time `json:"timestamp"`
	Score       int       `json:"score"`
	Summary     string    `json:"summary"`
	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
}

// FailedResult builds the Result published for an item whose processing failed.
func FailedResult(item WorkItem, err error, at time.Time) Result {
	return Result{
		RequestID:   item.RequestID,
		SubjectID:   item.SubjectID,
		Payload:     item.Payload,
		CompletedAt: at,
		Status:      StatusFailed,
		Error:       err.Error(),
	}
}

// CancelledResult builds the Result published for an item withdrawn while pending.
func CancelledResult(item WorkItem, at time.Time) Result {
	return Result{
		RequestID:   item.RequestID,
		SubjectID:   item.SubjectID,
		Payload:     item.Payload,
		CompletedAt: at,
		Status:      StatusCancelled,
	}
}

// EnqueueRequest is the inbound payload for POST /api/queue.
// UserID is accepted as an alias of SubjectID for older dashboard clients.
type EnqueueRequest struct {
	Payload   string `json:"payload,omitempty"`
	SubjectID string `json:"subjectId,omitempty"`
	UserID    string `json:"userId,omitempty"`
}

// Subject returns the effective subject identifier of the request.
func (r *EnqueueRequest) Subject() string {
	if s := strings.TrimSpace(r.SubjectID); s != "" {
		return s
	}
	return strings.TrimSpace(r.UserID)
}

// Validate checks the request against the configured payload limit.
func (r *EnqueueRequest) Validate(maxPayload int) error {
	if maxPayload > 0 && utf8.RuneCountInString(r.Payload) > maxPayload {
		return &EnqueueError{Field: "payload", Err: ErrInvalidPayload}
	}
	if s := r.Subject(); s != "" && !ValidSubjectID(s) {
		return &EnqueueError{Field: "subjectId", Err: ErrInvalidSubject}
	}
	return nil
}

// ValidSubjectID reports whether id is usable as a subject identifier.
func ValidSubjectID(id string) bool {
	if id == "" || len(id) > maxSubjectIDLength {
		return false
	}
	for _, r := range id {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// EnqueueReceipt is returned to the submitter immediately after enqueue.
type EnqueueReceipt struct {
	RequestID string `json:"requestId"`
	SubjectID string `json:"subjectId,omitempty"`
	Status    Status `json:"status"`
	Message   string `json:"message"`
}

// QueueStats is a point-in-time snapshot of the processing pipeline.
type QueueStats struct {
	QueueDepth  int    `json:"queue_depth"`
	InFlight    int    `json:"in_flight"`
	State       string `json:"state"`
	Subscribers int    `json:"subscribers"`
}
