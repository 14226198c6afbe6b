// Package kafka publishes pipeline lifecycle events.  The only producer-side
// contract the pipeline depends on is the batch summary topic; consumers are
// external dashboards and alerting.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Topic constants.
const (
	// TopicExtractionSummary carries one BatchSummary event per finished
	// batch run.
	TopicExtractionSummary = "docintel.extraction.summary"

	// TopicDocumentFailed carries per-document failure notices so operators
	// can re-queue without re-running the whole batch.
	TopicDocumentFailed = "docintel.document.failed"
)

// schemaVersion stamps every envelope; bump on breaking payload changes.
const schemaVersion = "1.0"

// EventEnvelope is the uniform wrapper around every published payload.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewEnvelope wraps a payload in a stamped envelope.
func NewEnvelope(eventType string, payload interface{}) (*EventEnvelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        "docintel",
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		Payload:       body,
	}, nil
}

// DocumentFailedPayload reports one document the batch could not process.
type DocumentFailedPayload struct {
	WorkflowID string    `json:"workflow_id"`
	RunID      string    `json:"run_id"`
	DocumentID string    `json:"document_id"`
	Reason     string    `json:"reason"`
	FailedAt   time.Time `json:"failed_at"`
}
