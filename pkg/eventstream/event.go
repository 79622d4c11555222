// Package eventstream publishes an event for every answered question so that
// downstream consumers can analyse questions, gaps and provider health.
package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeAnswerServed is emitted after the composer returns an answer.
	EventTypeAnswerServed = "docqa.answer.served"
)

// AnswerServedEvent is a transport-neutral event payload for one answered
// question.
type AnswerServedEvent struct {
	SchemaVersion int               `json:"schema_version"`
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	EmittedAt     time.Time         `json:"emitted_at"`
	Source        EventSource       `json:"source"`
	RequestMeta   AnswerRequestMeta `json:"request_meta"`
	Answer        AnswerPayload     `json:"answer"`
}

// EventSource identifies which backends produced the answer.
type EventSource struct {
	Provider   string `json:"provider"`
	Collection string `json:"collection"`
}

// AnswerRequestMeta captures request lifecycle metadata for the event.
type AnswerRequestMeta struct {
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
	DurationMs   int64     `json:"duration_ms"`
	HistoryTurns int       `json:"history_turns"`
}

// AnswerPayload is the question and the answer returned to the caller.
type AnswerPayload struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`

	// Degraded is set when the answer is an error message.
	Degraded bool   `json:"degraded"`
	Error    string `json:"error,omitempty"`
}

// NewAnswerServedEvent stamps a payload with a fresh event ID and timing.
func NewAnswerServedEvent(source EventSource, started time.Time, historyTurns int, answer AnswerPayload) *AnswerServedEvent {
	now := time.Now().UTC()
	return &AnswerServedEvent{
		SchemaVersion: SchemaVersionV1,
		EventID:       uuid.NewString(),
		EventType:     EventTypeAnswerServed,
		EmittedAt:     now,
		Source:        source,
		RequestMeta: AnswerRequestMeta{
			StartedAt:    started.UTC(),
			CompletedAt:  now,
			DurationMs:   now.Sub(started).Milliseconds(),
			HistoryTurns: historyTurns,
		},
		Answer: answer,
	}
}
