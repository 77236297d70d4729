package domain

import "time"

// EventRequestResult names the push event carrying a finished Result.
const EventRequestResult = "request-result"

// ResultEvent is the envelope pushed to live clients and external webhooks.
type ResultEvent struct {
	Event string        `json:"event"`
	Data  ResultMessage `json:"data"`
}

// ResultMessage is the data of a request-result event.
type ResultMessage struct {
	RequestID string       `json:"requestId"`
	SubjectID string       `json:"subjectId,omitempty"`
	Result    ResultDetail `json:"result"`
	Status    Status       `json:"status"`
	Error     string       `json:"error,omitempty"`
}

// ResultDetail is the analysis output inside a request-result event.
type ResultDetail struct {
	Payload   string    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
	Score     int       `json:"score"`
	Summary   string    `json:"summary"`
}

func NewResultEvent(res Result) ResultEvent {
	return ResultEvent{
		Event: EventRequestResult,
		Data: ResultMessage{
			RequestID: res.RequestID,
			SubjectID: res.SubjectID,
			Result: ResultDetail{
				Payload:   res.Payload,
				Timestamp: res.CompletedAt,
				Score:     res.Score,
				Summary:   res.Summary,
			},
			Status: res.Status,
			Error:  res.Error,
		},
	}
}
