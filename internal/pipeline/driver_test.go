package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpointel/docintel/internal/domain/document"
	"github.com/bpointel/docintel/internal/domain/entity"
	"github.com/bpointel/docintel/internal/extraction"
	"github.com/bpointel/docintel/internal/fusion"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/internal/relationship"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeGateway struct {
	mu            sync.Mutex
	documents     []*document.Document
	chunks        []*document.Chunk
	entities      []*entity.Entity
	relationships []*entity.Relationship
}

func (g *fakeGateway) UpsertDocument(_ context.Context, doc *document.Document) (uuid.UUID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.documents = append(g.documents, doc)
	return doc.ID, nil
}

func (g *fakeGateway) UpsertChunk(_ context.Context, chunk *document.Chunk) (uuid.UUID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chunks = append(g.chunks, chunk)
	return chunk.ID, nil
}

func (g *fakeGateway) UpsertEntity(_ context.Context, e *entity.Entity) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entities = append(g.entities, e)
	return nil
}

func (g *fakeGateway) UpsertRelationship(_ context.Context, r *entity.Relationship) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.relationships = append(g.relationships, r)
	return nil
}

type stubGenerator struct {
	tier  entity.Tier
	conf  float64
	typ   entity.Type
	fail  error
	calls int
	mu    sync.Mutex
}

func (s *stubGenerator) Tier() entity.Tier { return s.tier }

func (s *stubGenerator) Generate(_ context.Context, req extraction.Request) ([]entity.Candidate, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	if len(req.Chunk.Text) < 4 {
		return nil, nil
	}
	cand, err := entity.NewCandidate(
		entity.Span{ChunkSeq: req.Chunk.Seq, Start: 0, End: 4},
		req.Chunk.Text, s.typ, entity.Normalized{"canonical": req.Chunk.Text[:4]},
		s.conf, s.tier)
	if err != nil {
		return nil, err
	}
	return []entity.Candidate{cand}, nil
}

type fakeGuard struct {
	admit bool
	calls int
}

func (f *fakeGuard) Allow(context.Context) (bool, error) {
	f.calls++
	return f.admit, nil
}

type fakeCheckpoints struct {
	mu    sync.Mutex
	saved []Checkpoint
}

func (f *fakeCheckpoints) Save(_ context.Context, cp Checkpoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, cp)
	return nil
}

func (f *fakeCheckpoints) Load(context.Context, string, string) (Checkpoint, bool, error) {
	return Checkpoint{}, false, nil
}

type fakePublisher struct {
	summaries []*BatchSummary
}

func (f *fakePublisher) PublishSummary(_ context.Context, s *BatchSummary) error {
	f.summaries = append(f.summaries, s)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func newTestDriver(gw *fakeGateway, opts DriverOptions) *Driver {
	opts.Gateway = gw
	if opts.Fuser == nil {
		opts.Fuser = fusion.NewEngine(0.05, logging.NewNopLogger())
	}
	if opts.Inferencer == nil {
		opts.Inferencer = relationship.NewInferencerFromStrings(nil, logging.NewNopLogger())
	}
	if opts.ConfidenceFloor == 0 {
		opts.ConfidenceFloor = 0.50
	}
	opts.HeuristicsVersion = "test-1"
	opts.Logger = logging.NewNopLogger()
	return NewDriver(opts)
}

func TestProcessBatch_HappyPath(t *testing.T) {
	gw := &fakeGateway{}
	gen := &stubGenerator{tier: entity.TierHeuristics, conf: 0.90, typ: entity.TypeCompany}
	checkpoints := &fakeCheckpoints{}
	publisher := &fakePublisher{}

	d := newTestDriver(gw, DriverOptions{
		Base:        []extraction.Generator{gen},
		Checkpoints: checkpoints,
		Publisher:   publisher,
	})

	inputs := []DocumentInput{
		{ID: uuid.NewString(), Text: "Acme announced a new product line."},
		{ID: uuid.NewString(), Text: "Initech expanded to Berlin."},
	}
	summary, err := d.ProcessBatch(context.Background(), "wf-1", "run-1", inputs, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Documents)
	assert.Equal(t, 2, summary.Chunks)
	assert.Equal(t, 2, summary.Entities)
	assert.Empty(t, summary.FailedDocuments)
	assert.Equal(t, "test-1", summary.HeuristicsVersion)
	assert.False(t, summary.FinishedAt.IsZero())

	require.Len(t, gw.entities, 2)
	for _, e := range gw.entities {
		assert.Equal(t, "test-1", e.HeuristicsVersion)
		assert.NotNil(t, e.ChunkID)
		assert.NotEqual(t, uuid.Nil, e.DocumentID)
	}

	// Final checkpoint at end of batch.
	require.NotEmpty(t, checkpoints.saved)
	last := checkpoints.saved[len(checkpoints.saved)-1]
	assert.Equal(t, 2, last.Offset)
	assert.Equal(t, PhaseExtraction, last.Phase)

	require.Len(t, publisher.summaries, 1)
	assert.Same(t, summary, publisher.summaries[0])
}

func TestProcessBatch_StartOffsetSkips(t *testing.T) {
	gw := &fakeGateway{}
	d := newTestDriver(gw, DriverOptions{
		Base: []extraction.Generator{&stubGenerator{tier: entity.TierHeuristics, conf: 0.9, typ: entity.TypeCompany}},
	})

	inputs := []DocumentInput{
		{ID: uuid.NewString(), Text: "first document text"},
		{ID: uuid.NewString(), Text: "second document text"},
	}
	summary, err := d.ProcessBatch(context.Background(), "wf", "run", inputs, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Documents)
	assert.Len(t, gw.documents, 1)
}

func TestProcessBatch_EmptyDocumentFails(t *testing.T) {
	gw := &fakeGateway{}
	d := newTestDriver(gw, DriverOptions{
		Base: []extraction.Generator{&stubGenerator{tier: entity.TierHeuristics, conf: 0.9, typ: entity.TypeCompany}},
	})

	summary, err := d.ProcessBatch(context.Background(), "wf", "run",
		[]DocumentInput{{ID: "doc-1", Text: "   "}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Documents)
	assert.Equal(t, []string{"doc-1"}, summary.FailedDocuments)
}

func TestProcessDocument_TierFailureIsRecoverable(t *testing.T) {
	gw := &fakeGateway{}
	good := &stubGenerator{tier: entity.TierHeuristics, conf: 0.90, typ: entity.TypeCompany}
	bad := &stubGenerator{tier: entity.TierStatistical, fail: assert.AnError}

	d := newTestDriver(gw, DriverOptions{Base: []extraction.Generator{good, bad}})

	summary := newBatchSummary("wf", "run", "v")
	err := d.ProcessDocument(context.Background(),
		DocumentInput{ID: uuid.NewString(), Text: "Acme carries on regardless."}, summary)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TierFailures[entity.TierStatistical])
	assert.Equal(t, 1, summary.Entities)
}

func TestProcessDocument_LLMSkippedWhenCovered(t *testing.T) {
	gw := &fakeGateway{}
	guard := &fakeGuard{admit: true}
	llm := &stubGenerator{tier: entity.TierLLM, conf: 0.60, typ: entity.TypePerson}

	d := newTestDriver(gw, DriverOptions{
		Base:  []extraction.Generator{&stubGenerator{tier: entity.TierHeuristics, conf: 0.90, typ: entity.TypeCompany}},
		LLM:   llm,
		Guard: guard,
	})

	summary := newBatchSummary("wf", "run", "v")
	err := d.ProcessDocument(context.Background(),
		DocumentInput{ID: uuid.NewString(), Text: "well covered chunk"}, summary)
	require.NoError(t, err)

	assert.Equal(t, 0, guard.calls, "covered chunk must not consult the budget")
	assert.Equal(t, 0, llm.calls)
	assert.Equal(t, 0, summary.LLMInvocations)
}

func TestProcessDocument_LLMInvokedWhenUncovered(t *testing.T) {
	gw := &fakeGateway{}
	guard := &fakeGuard{admit: true}
	llm := &stubGenerator{tier: entity.TierLLM, conf: 0.60, typ: entity.TypePerson}

	d := newTestDriver(gw, DriverOptions{
		Base:  []extraction.Generator{&stubGenerator{tier: entity.TierStatistical, conf: 0.30, typ: entity.TypeCompany}},
		LLM:   llm,
		Guard: guard,
	})

	summary := newBatchSummary("wf", "run", "v")
	err := d.ProcessDocument(context.Background(),
		DocumentInput{ID: uuid.NewString(), Text: "barely covered chunk"}, summary)
	require.NoError(t, err)

	assert.Equal(t, 1, guard.calls)
	assert.Equal(t, 1, llm.calls)
	assert.Equal(t, 1, summary.LLMInvocations)
	assert.Equal(t, 0, summary.LLMBudgetSkips)
}

func TestProcessDocument_LLMBudgetSkipCounted(t *testing.T) {
	gw := &fakeGateway{}
	guard := &fakeGuard{admit: false}
	llm := &stubGenerator{tier: entity.TierLLM, conf: 0.60, typ: entity.TypePerson}

	d := newTestDriver(gw, DriverOptions{
		Base:  []extraction.Generator{&stubGenerator{tier: entity.TierStatistical, conf: 0.30, typ: entity.TypeCompany}},
		LLM:   llm,
		Guard: guard,
	})

	summary := newBatchSummary("wf", "run", "v")
	err := d.ProcessDocument(context.Background(),
		DocumentInput{ID: uuid.NewString(), Text: "barely covered chunk"}, summary)
	require.NoError(t, err)

	assert.Equal(t, 0, llm.calls)
	assert.Equal(t, 1, summary.LLMBudgetSkips)
	assert.Equal(t, 0, summary.LLMInvocations)
}

func TestProcessDocument_RelationshipsPersisted(t *testing.T) {
	gw := &fakeGateway{}
	// Two nearby entities of linkable types produce a proximity link.
	company := &stubGenerator{tier: entity.TierHeuristics, conf: 0.90, typ: entity.TypeCompany}
	person := &personGenerator{}

	d := newTestDriver(gw, DriverOptions{Base: []extraction.Generator{company, person}})

	summary := newBatchSummary("wf", "run", "v")
	err := d.ProcessDocument(context.Background(),
		DocumentInput{ID: uuid.NewString(), Text: "Acme hired Jane Doe this year."}, summary)
	require.NoError(t, err)

	require.Len(t, gw.relationships, 1)
	assert.Equal(t, entity.RelationWorksFor, gw.relationships[0].Type)
	assert.Equal(t, 1, summary.Relationships)
}

// personGenerator emits a PERSON candidate at a fixed offset.
type personGenerator struct{}

func (personGenerator) Tier() entity.Tier { return entity.TierStatistical }

func (personGenerator) Generate(_ context.Context, req extraction.Request) ([]entity.Candidate, error) {
	cand, err := entity.NewCandidate(
		entity.Span{ChunkSeq: req.Chunk.Seq, Start: 11, End: 19},
		req.Chunk.Text, entity.TypePerson,
		entity.Normalized{"canonical": "Jane Doe"}, 0.75, entity.TierStatistical)
	if err != nil {
		return nil, err
	}
	return []entity.Candidate{cand}, nil
}

// fixedSplitter returns a canned chunk list regardless of input.
type fixedSplitter struct {
	chunks []string
}

func (s fixedSplitter) Split(string) []string { return s.chunks }

// slowGateway delays chunk upserts so in-flight workers are observable.
type slowGateway struct {
	fakeGateway
	delay time.Duration
}

func (g *slowGateway) UpsertChunk(ctx context.Context, chunk *document.Chunk) (uuid.UUID, error) {
	time.Sleep(g.delay)
	return g.fakeGateway.UpsertChunk(ctx, chunk)
}

func TestProcessDocument_BadChunkDrainsWorkers(t *testing.T) {
	// The second chunk text is invalid; the first chunk's worker is still
	// mid-upsert when the loop fails.  ProcessDocument must not return until
	// that worker has finished writing to the summary.
	gw := &slowGateway{delay: 50 * time.Millisecond}
	gen := &stubGenerator{tier: entity.TierHeuristics, conf: 0.90, typ: entity.TypeCompany}

	d := newTestDriver(&gw.fakeGateway, DriverOptions{
		Base:    []extraction.Generator{gen},
		Chunker: fixedSplitter{chunks: []string{"Acme Corp announced results.", "   "}},
	})
	d.gateway = gw

	summary := newBatchSummary("wf", "run", "v")
	err := d.ProcessDocument(context.Background(),
		DocumentInput{ID: uuid.NewString(), Text: "ignored by the fixed splitter"}, summary)
	require.Error(t, err)

	assert.Equal(t, 1, summary.Chunks)
	require.Len(t, gw.chunks, 1)
	assert.Equal(t, 0, gw.chunks[0].Seq)
}
