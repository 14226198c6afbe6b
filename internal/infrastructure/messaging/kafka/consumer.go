package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/bpointel/docintel/internal/config"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/internal/pipeline"
	"github.com/bpointel/docintel/pkg/errors"
)

// TopicDocumentIngest carries documents queued for extraction.  The worker
// consumes it and feeds the pipeline driver.
const TopicDocumentIngest = "docintel.document.ingest"

// DocumentIngestPayload is the wire form of one queued document.
type DocumentIngestPayload struct {
	WorkflowID string                 `json:"workflow_id"`
	ID         string                 `json:"id,omitempty"`
	URL        string                 `json:"url,omitempty"`
	Title      string                 `json:"title,omitempty"`
	Language   string                 `json:"language,omitempty"`
	Text       string                 `json:"text"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Input converts the payload to the driver's input type.
func (p DocumentIngestPayload) Input() pipeline.DocumentInput {
	return pipeline.DocumentInput{
		ID:       p.ID,
		URL:      p.URL,
		Title:    p.Title,
		Language: p.Language,
		Text:     p.Text,
		Metadata: p.Metadata,
	}
}

// IngestHandler processes one queued document.  A returned error is logged
// and the message is skipped; the handler is expected to report the failure
// on the failed-document topic.
type IngestHandler func(ctx context.Context, workflowID string, input pipeline.DocumentInput) error

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads the document ingest topic and dispatches to the handler.
type Consumer struct {
	reader  ReaderInterface
	handler IngestHandler
	logger  logging.Logger
}

// NewConsumer constructs a group consumer on the ingest topic.
func NewConsumer(cfg config.KafkaConfig, handler IngestHandler, logger logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		GroupID: cfg.GroupID,
		Topic:   TopicDocumentIngest,
	})
	return &Consumer{reader: reader, handler: handler, logger: logger}
}

// NewConsumerWithReader injects a reader, for tests.
func NewConsumerWithReader(r ReaderInterface, handler IngestHandler, logger logging.Logger) *Consumer {
	return &Consumer{reader: r, handler: handler, logger: logger}
}

// Run consumes until ctx is cancelled.  Every fetched message is committed,
// including malformed ones and handler failures, so one poison message cannot
// stall the partition.  Failures surface on the failed-document topic, not
// through offset replay.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, errors.CodeMessageQueueError, "fetch failed")
		}

		var env EventEnvelope
		var payload DocumentIngestPayload
		if err := json.Unmarshal(msg.Value, &env); err == nil && len(env.Payload) > 0 {
			err = json.Unmarshal(env.Payload, &payload)
		} else {
			// Bare payloads without an envelope are accepted too.
			err = json.Unmarshal(msg.Value, &payload)
		}
		if err != nil {
			c.logger.Warn("skipping malformed ingest message",
				logging.Int64("offset", msg.Offset), logging.Err(err))
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return errors.Wrap(err, errors.CodeMessageQueueError, "commit failed")
			}
			continue
		}

		if err := c.handler(ctx, payload.WorkflowID, payload.Input()); err != nil {
			// Commit anyway: leaving the offset uncommitted would be voided
			// by the next successful commit, so a skipped offset is not a
			// redelivery guarantee.  The handler reports failures on the
			// failed-document topic; that event is the durable signal.
			c.logger.Error("ingest handler failed, skipping message",
				logging.String("workflow_id", payload.WorkflowID),
				logging.Int64("offset", msg.Offset),
				logging.Err(err))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return errors.Wrap(err, errors.CodeMessageQueueError, "commit failed")
		}
	}
}

// Close shuts the reader down.
func (c *Consumer) Close() error { return c.reader.Close() }
