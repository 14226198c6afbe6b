package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bpointel/docintel/internal/config"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/internal/pipeline"
	"github.com/bpointel/docintel/pkg/errors"
)

// ErrProducerClosed is returned by publishes after Close.
var ErrProducerClosed = errors.New(errors.ErrCodeInternal, "producer closed")

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventMetrics counts publish outcomes per topic; satisfied by
// prometheus.PipelineMetrics.
type EventMetrics interface {
	RecordEventPublish(topic string, err error)
}

// Producer publishes pipeline events.  It implements
// pipeline.SummaryPublisher; a publish failure is reported to the caller but
// never blocks or retries beyond the writer's own attempt budget, since the
// summary is advisory and the batch results are already persisted.
type Producer struct {
	writer       WriterInterface
	summaryTopic string
	logger       logging.Logger
	metrics      EventMetrics
	closed       atomic.Bool
	sent         atomic.Int64
	failed       atomic.Int64
}

// NewProducer constructs a Producer from configuration.
func NewProducer(cfg config.KafkaConfig, logger logging.Logger) *Producer {
	retries := cfg.ProducerRetries
	if retries == 0 {
		retries = 3
	}
	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = 100
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = time.Second
	}

	var acks kafka.RequiredAcks
	switch cfg.RequiredAcks {
	case 0:
		acks = kafka.RequireNone
	case -1:
		acks = kafka.RequireAll
	default:
		acks = kafka.RequireOne
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  retries + 1,
		BatchSize:    batchSize,
		BatchTimeout: batchTimeout,
		RequiredAcks: acks,
	}

	return &Producer{
		writer:       writer,
		summaryTopic: cfg.SummaryTopic,
		logger:       logger,
	}
}

// WithMetrics records per-topic publish outcomes.
func (p *Producer) WithMetrics(m EventMetrics) *Producer {
	p.metrics = m
	return p
}

// NewProducerWithWriter injects a writer, for tests.
func NewProducerWithWriter(w WriterInterface, summaryTopic string, logger logging.Logger) *Producer {
	return &Producer{writer: w, summaryTopic: summaryTopic, logger: logger}
}

// PublishSummary emits the batch summary event, keyed by workflow id so all
// runs of one workflow land on the same partition in order.
func (p *Producer) PublishSummary(ctx context.Context, s *pipeline.BatchSummary) error {
	env, err := NewEnvelope("extraction.summary", s)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode batch summary")
	}
	return p.publish(ctx, p.summaryTopic, []byte(s.WorkflowID), env)
}

// PublishDocumentFailed emits a per-document failure notice.
func (p *Producer) PublishDocumentFailed(ctx context.Context, payload DocumentFailedPayload) error {
	env, err := NewEnvelope("document.failed", payload)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode failure notice")
	}
	return p.publish(ctx, TopicDocumentFailed, []byte(payload.DocumentID), env)
}

func (p *Producer) publish(ctx context.Context, topic string, key []byte, env *EventEnvelope) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	value, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode event envelope")
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "schema_version", Value: []byte(env.SchemaVersion)},
		},
	})
	if p.metrics != nil {
		p.metrics.RecordEventPublish(topic, err)
	}
	if err != nil {
		p.failed.Add(1)
		p.logger.Error("event publish failed",
			logging.String("topic", topic), logging.Err(err))
		return errors.Wrap(err, errors.CodeMessageQueueError, "event publish failed")
	}

	p.sent.Add(1)
	p.logger.Debug("event published",
		logging.String("topic", topic),
		logging.String("event_type", env.EventType),
		logging.Int64("latency_ms", time.Since(start).Milliseconds()))
	return nil
}

// Sent and Failed expose producer counters for metrics exposition.
func (p *Producer) Sent() int64   { return p.sent.Load() }
func (p *Producer) Failed() int64 { return p.failed.Load() }

// Close flushes and closes the underlying writer.  Idempotent.
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.writer.Close()
}
