// Package pipeline drives the extraction flow: chunk the document, run the
// generator tiers, fuse candidates, infer relationships, and persist through
// the idempotent gateway.  Chunks are processed by a bounded worker pool;
// correctness never depends on chunk ordering because entity identity and
// the gateway's confidence-max upserts are commutative.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bpointel/docintel/internal/classify"
	"github.com/bpointel/docintel/internal/domain/document"
	"github.com/bpointel/docintel/internal/domain/entity"
	"github.com/bpointel/docintel/internal/extraction"
	"github.com/bpointel/docintel/internal/fusion"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/internal/relationship"
	"github.com/bpointel/docintel/pkg/errors"
)

// checkpointEvery is how many documents pass between checkpoint writes.
const checkpointEvery = 25

// DocumentInput is one raw document handed to the driver by the batch
// source.  ID and URL may be empty; identity falls back to the text prefix.
type DocumentInput struct {
	ID       string                 `json:"id,omitempty"`
	URL      string                 `json:"url,omitempty"`
	Title    string                 `json:"title,omitempty"`
	Language string                 `json:"language,omitempty"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SummaryPublisher emits the finished batch summary to operators; the Kafka
// producer implements it.
type SummaryPublisher interface {
	PublishSummary(ctx context.Context, s *BatchSummary) error
}

// Driver orchestrates the tiers over documents and chunks.
type Driver struct {
	gateway document.Gateway

	// base tiers always run; embedding runs over uncovered spans; llm runs
	// only for under-covered chunks the budget admits.
	base      []extraction.Generator
	embedding extraction.Generator
	llm       extraction.Generator
	guard     extraction.BudgetGuard

	fuser      *fusion.Engine
	inferencer *relationship.Inferencer
	classifier *classify.Classifier
	chunker    Splitter

	checkpoints CheckpointStore
	publisher   SummaryPublisher
	metrics     Metrics

	heuristicsVersion string
	confidenceFloor   float64
	maxChunkWorkers   int

	logger logging.Logger
}

// DriverOptions wires the driver's collaborators.  Classifier, Checkpoints,
// Publisher and Metrics are optional.
type DriverOptions struct {
	Gateway    document.Gateway
	Base       []extraction.Generator
	Embedding  extraction.Generator
	LLM        extraction.Generator
	Guard      extraction.BudgetGuard
	Fuser      *fusion.Engine
	Inferencer *relationship.Inferencer
	Classifier *classify.Classifier
	Chunker    Splitter

	Checkpoints CheckpointStore
	Publisher   SummaryPublisher
	Metrics     Metrics

	HeuristicsVersion string
	ConfidenceFloor   float64
	MaxChunkWorkers   int

	Logger logging.Logger
}

func NewDriver(opts DriverOptions) *Driver {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewNopMetrics()
	}
	chunker := opts.Chunker
	if chunker == nil {
		chunker = NewChunker(0)
	}
	workers := opts.MaxChunkWorkers
	if workers <= 0 {
		workers = 4
	}
	return &Driver{
		gateway:           opts.Gateway,
		base:              opts.Base,
		embedding:         opts.Embedding,
		llm:               opts.LLM,
		guard:             opts.Guard,
		fuser:             opts.Fuser,
		inferencer:        opts.Inferencer,
		classifier:        opts.Classifier,
		chunker:           chunker,
		checkpoints:       opts.Checkpoints,
		publisher:         opts.Publisher,
		metrics:           metrics,
		heuristicsVersion: opts.HeuristicsVersion,
		confidenceFloor:   opts.ConfidenceFloor,
		maxChunkWorkers:   workers,
		logger:            opts.Logger.Named("pipeline"),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Batch processing
// ─────────────────────────────────────────────────────────────────────────────

// ProcessBatch runs the pipeline over inputs starting at startOffset,
// checkpointing progress and publishing the summary when done.  A failing
// document is recorded in the summary and skipped; only context cancellation
// aborts the batch.
func (d *Driver) ProcessBatch(ctx context.Context, workflowID, runID string, inputs []DocumentInput, startOffset int) (*BatchSummary, error) {
	summary := newBatchSummary(workflowID, runID, d.heuristicsVersion)

	for i, input := range inputs {
		if i < startOffset {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if err := d.ProcessDocument(ctx, input, summary); err != nil {
			id := input.ID
			if id == "" {
				id = document.DeriveID(input.ID, input.URL, input.Text).String()
			}
			summary.FailedDocuments = append(summary.FailedDocuments, id)
			d.logger.Error("document processing failed",
				logging.String("document", id),
				logging.Err(err))
		}

		if d.checkpoints != nil && (i+1)%checkpointEvery == 0 {
			d.saveCheckpoint(ctx, workflowID, runID, i+1)
		}
	}

	if d.checkpoints != nil {
		d.saveCheckpoint(ctx, workflowID, runID, len(inputs))
	}

	summary.FinishedAt = time.Now().UTC()
	if d.publisher != nil {
		if err := d.publisher.PublishSummary(ctx, summary); err != nil {
			d.logger.Warn("batch summary publish failed", logging.Err(err))
		}
	}
	return summary, nil
}

func (d *Driver) saveCheckpoint(ctx context.Context, workflowID, runID string, offset int) {
	cp := Checkpoint{
		WorkflowID: workflowID,
		RunID:      runID,
		Phase:      PhaseExtraction,
		Offset:     offset,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := d.checkpoints.Save(ctx, cp); err != nil {
		d.logger.Warn("checkpoint save failed",
			logging.Int("offset", offset),
			logging.Err(err))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Document processing
// ─────────────────────────────────────────────────────────────────────────────

// ProcessDocument runs the full flow for one document and accumulates into
// summary.
func (d *Driver) ProcessDocument(ctx context.Context, input DocumentInput, summary *BatchSummary) error {
	doc, err := document.NewDocument(input.ID, input.URL, input.Text, input.Language, input.Metadata)
	if err != nil {
		return err
	}

	if d.classifier != nil && d.classifier.Enabled() {
		if verdict := d.classifier.Classify(input.URL, input.Title, input.Text); verdict != nil {
			doc.ContentType = verdict.Label
			if doc.Metadata == nil {
				doc.Metadata = make(map[string]interface{})
			}
			doc.Metadata["classification"] = verdict
		}
	}

	docID, err := d.gateway.UpsertDocument(ctx, doc)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeUpsertFailed, "document upsert failed")
	}
	doc.ID = docID

	texts := d.chunker.Split(document.NormalizeText(input.Text))

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	sem := make(chan struct{}, d.maxChunkWorkers)

	for seq, text := range texts {
		chunk, err := document.NewChunk(docID, seq, text, nil)
		if err != nil {
			// Stop launching, but drain in-flight workers before returning
			// so none outlives the call still writing to summary.
			wg.Wait()
			return err
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(chunk *document.Chunk) {
			defer wg.Done()
			defer func() { <-sem }()

			entCount, relCount, err := d.processChunk(ctx, chunk, summary, &mu)
			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			summary.Chunks++
			summary.Entities += entCount
			summary.Relationships += relCount
		}(chunk)
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	summary.Documents++
	d.metrics.DocumentProcessed()
	return nil
}

// processChunk runs the tiers, fuses, infers and persists one chunk.  mu
// guards the shared summary for tier-failure accounting.
func (d *Driver) processChunk(ctx context.Context, chunk *document.Chunk, summary *BatchSummary, mu *sync.Mutex) (int, int, error) {
	chunkID, err := d.gateway.UpsertChunk(ctx, chunk)
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrCodeUpsertFailed, "chunk upsert failed")
	}
	chunk.ID = chunkID

	candidates := d.generate(ctx, chunk, summary, mu)

	resolved := d.fuser.Fuse(candidates)
	now := time.Now().UTC()
	for i := range resolved {
		resolved[i].ID = uuid.New()
		resolved[i].DocumentID = chunk.DocumentID
		resolved[i].ChunkID = &chunk.ID
		resolved[i].HeuristicsVersion = d.heuristicsVersion
		resolved[i].CreatedAt = now
		resolved[i].UpdatedAt = now
	}

	for i := range resolved {
		if err := d.gateway.UpsertEntity(ctx, &resolved[i]); err != nil {
			return 0, 0, errors.Wrap(err, errors.ErrCodeUpsertFailed, "entity upsert failed")
		}
	}
	d.metrics.EntitiesPersisted(len(resolved))

	relationships := d.inferencer.Infer(resolved)
	for _, rel := range relationships {
		if err := d.gateway.UpsertRelationship(ctx, rel); err != nil {
			return 0, 0, errors.Wrap(err, errors.ErrCodeUpsertFailed, "relationship upsert failed")
		}
	}
	d.metrics.RelationshipsPersisted(len(relationships))

	return len(resolved), len(relationships), nil
}

// generate runs the tiers in coverage order and returns the aggregated
// candidate list.  Tier errors are recoverable: counted, logged, skipped.
func (d *Driver) generate(ctx context.Context, chunk *document.Chunk, summary *BatchSummary, mu *sync.Mutex) []entity.Candidate {
	req := extraction.Request{Chunk: chunk}

	var candidates []entity.Candidate
	for _, gen := range d.base {
		cands, err := gen.Generate(ctx, req)
		if err != nil {
			d.recordTierFailure(gen.Tier(), err, summary, mu)
			continue
		}
		d.metrics.CandidatesObserved(gen.Tier(), len(cands))
		candidates = append(candidates, cands...)
	}

	if d.embedding != nil {
		embReq := extraction.Request{Chunk: chunk, Claimed: spansOf(candidates)}
		cands, err := d.embedding.Generate(ctx, embReq)
		if err != nil {
			d.recordTierFailure(d.embedding.Tier(), err, summary, mu)
		} else {
			d.metrics.CandidatesObserved(d.embedding.Tier(), len(cands))
		}
		candidates = append(candidates, cands...)
	}

	if d.llm != nil && d.needsFallback(candidates) {
		admitted, err := d.guard.Allow(ctx)
		if err != nil {
			d.recordTierFailure(d.llm.Tier(), err, summary, mu)
			return candidates
		}
		if !admitted {
			d.metrics.LLMBudgetRejected()
			mu.Lock()
			summary.LLMBudgetSkips++
			mu.Unlock()
			d.logger.Info("llm fallback skipped, budget exhausted",
				logging.Int("chunk_seq", chunk.Seq))
			return candidates
		}

		mu.Lock()
		summary.LLMInvocations++
		mu.Unlock()

		llmReq := extraction.Request{Chunk: chunk, Claimed: spansOf(candidates)}
		cands, err := d.llm.Generate(ctx, llmReq)
		if err != nil {
			d.recordTierFailure(d.llm.Tier(), err, summary, mu)
			return candidates
		}
		d.metrics.CandidatesObserved(d.llm.Tier(), len(cands))
		candidates = append(candidates, cands...)
	}

	return candidates
}

// needsFallback reports whether the chunk's best coverage after tiers 1-4 is
// still below the global confidence floor.
func (d *Driver) needsFallback(candidates []entity.Candidate) bool {
	best := 0.0
	for _, c := range candidates {
		if c.Confidence > best {
			best = c.Confidence
		}
	}
	return best < d.confidenceFloor
}

func (d *Driver) recordTierFailure(tier entity.Tier, err error, summary *BatchSummary, mu *sync.Mutex) {
	mu.Lock()
	summary.recordTierFailure(tier)
	mu.Unlock()
	d.metrics.TierFailure(tier)
	d.logger.Warn("tier failed, continuing without its candidates",
		logging.String("tier", string(tier)),
		logging.Err(err))
}

func spansOf(candidates []entity.Candidate) []entity.Span {
	spans := make([]entity.Span, 0, len(candidates))
	for _, c := range candidates {
		spans = append(spans, c.Span)
	}
	return spans
}
