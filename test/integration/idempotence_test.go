//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpointel/docintel/internal/domain/document"
	"github.com/bpointel/docintel/internal/domain/entity"
	"github.com/bpointel/docintel/internal/infrastructure/database/postgres/repositories"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/internal/pipeline"
)

const sampleText = "Acme Corp announced a partnership with Globex Corporation in March 2024."

func buildEntity(docID uuid.UUID, chunkID *uuid.UUID, seq, start, end int, typ entity.Type, surface string, confidence float64) *entity.Entity {
	now := time.Now().UTC()
	span := entity.Span{ChunkSeq: seq, Start: start, End: end}
	return &entity.Entity{
		ID:                uuid.New(),
		DocumentID:        docID,
		ChunkID:           chunkID,
		Span:              span,
		SpanHash:          span.Hash(typ),
		Type:              typ,
		Surface:           surface,
		Confidence:        confidence,
		Sources:           []entity.Tier{entity.TierHeuristics},
		Method:            entity.MethodTierMax,
		HeuristicsVersion: "v-test",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// TestUpsertIdempotence persists the same document, chunk, entities, and
// relationship twice and verifies the second pass creates zero new rows.
func TestUpsertIdempotence(t *testing.T) {
	pool := startPostgres(t)
	repo := repositories.NewDocumentRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	persist := func() (docID uuid.UUID, entityIDs []uuid.UUID) {
		doc, err := document.NewDocument("", "https://example.com/report", sampleText, "en", nil)
		require.NoError(t, err)
		docID, err = repo.UpsertDocument(ctx, doc)
		require.NoError(t, err)

		chunk, err := document.NewChunk(docID, 0, sampleText, nil)
		require.NoError(t, err)
		chunkID, err := repo.UpsertChunk(ctx, chunk)
		require.NoError(t, err)

		head := buildEntity(docID, &chunkID, 0, 0, 9, entity.TypeCompany, "Acme Corp", 0.95)
		tail := buildEntity(docID, &chunkID, 0, 40, 58, entity.TypeCompany, "Globex Corporation", 0.90)
		require.NoError(t, repo.UpsertEntity(ctx, head))
		require.NoError(t, repo.UpsertEntity(ctx, tail))

		rel := &entity.Relationship{
			ID:           uuid.New(),
			DocumentID:   docID,
			HeadEntityID: head.ID,
			TailEntityID: tail.ID,
			Type:         entity.RelationRelatedTo,
			Confidence:   0.80,
			Evidence: entity.Evidence{
				Pattern: "partnership with",
				Matched: "partnership with Globex",
			},
			Source: "rules",
		}
		require.NoError(t, repo.UpsertRelationship(ctx, rel))
		return docID, []uuid.UUID{head.ID, tail.ID}
	}

	firstDoc, firstEntities := persist()
	docs, chunks := countRows(t, pool, "documents"), countRows(t, pool, "chunks")
	ents, rels := countRows(t, pool, "entities"), countRows(t, pool, "relationships")

	secondDoc, secondEntities := persist()

	assert.Equal(t, docs, countRows(t, pool, "documents"))
	assert.Equal(t, chunks, countRows(t, pool, "chunks"))
	assert.Equal(t, ents, countRows(t, pool, "entities"))
	assert.Equal(t, rels, countRows(t, pool, "relationships"))

	// The stored ids win on conflict, so re-runs reference the same rows.
	assert.Equal(t, firstDoc, secondDoc)
	assert.ElementsMatch(t, firstEntities, secondEntities)
}

// TestUpsertEntity_ConfidenceNeverDecreases replays the same span with lower
// and then higher confidence and checks the stored value only moves up.
func TestUpsertEntity_ConfidenceNeverDecreases(t *testing.T) {
	pool := startPostgres(t)
	repo := repositories.NewDocumentRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	doc, err := document.NewDocument("", "", sampleText, "en", nil)
	require.NoError(t, err)
	docID, err := repo.UpsertDocument(ctx, doc)
	require.NoError(t, err)

	readConfidence := func() float64 {
		list, err := repo.ListEntities(ctx, docID, 10, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		return list[0].Confidence
	}

	e := buildEntity(docID, nil, 0, 0, 9, entity.TypeCompany, "Acme Corp", 0.70)
	require.NoError(t, repo.UpsertEntity(ctx, e))
	require.InDelta(t, 0.70, readConfidence(), 1e-9)

	lower := buildEntity(docID, nil, 0, 0, 9, entity.TypeCompany, "Acme Corp", 0.40)
	require.NoError(t, repo.UpsertEntity(ctx, lower))
	assert.InDelta(t, 0.70, readConfidence(), 1e-9, "lower confidence must not overwrite")
	assert.Equal(t, e.ID, lower.ID, "replay must adopt the stored row id")

	higher := buildEntity(docID, nil, 0, 0, 9, entity.TypeCompany, "Acme Corp", 0.99)
	require.NoError(t, repo.UpsertEntity(ctx, higher))
	assert.InDelta(t, 0.99, readConfidence(), 1e-9, "higher confidence must win")
}

// TestCheckpointRoundTrip verifies the (workflow, phase) keyed upsert.
func TestCheckpointRoundTrip(t *testing.T) {
	pool := startPostgres(t)
	repo := repositories.NewCheckpointRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	_, ok, err := repo.Load(ctx, "wf-1", pipeline.PhaseExtraction)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Save(ctx, pipeline.Checkpoint{
		WorkflowID: "wf-1",
		RunID:      "run-1",
		Phase:      pipeline.PhaseExtraction,
		Offset:     25,
		State:      map[string]interface{}{"documents": float64(25)},
	}))
	require.NoError(t, repo.Save(ctx, pipeline.Checkpoint{
		WorkflowID: "wf-1",
		RunID:      "run-2",
		Phase:      pipeline.PhaseExtraction,
		Offset:     50,
	}))

	cp, ok, err := repo.Load(ctx, "wf-1", pipeline.PhaseExtraction)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-2", cp.RunID)
	assert.Equal(t, 50, cp.Offset)
	assert.Equal(t, 1, countRows(t, pool, "pipeline_checkpoints"))
}
