package milvus

import (
	"context"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bpointel/docintel/internal/domain/entity"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
)

type stubEmbedder struct {
	vector []float32
	err    error
	calls  []string
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls = append(e.calls, text)
	if e.err != nil {
		return nil, e.err
	}
	return e.vector, nil
}

func hitResult(id, canonical, typ string, score float32) client.SearchResult {
	return client.SearchResult{
		ResultCount: 1,
		Scores:      []float32{score},
		Fields: []milvusentity.Column{
			milvusentity.NewColumnVarChar(FieldID, []string{id}),
			milvusentity.NewColumnVarChar(FieldCanonical, []string{canonical}),
			milvusentity.NewColumnVarChar(FieldType, []string{typ}),
		},
	}
}

func TestNearest_MapsHit(t *testing.T) {
	sdk := &mockSDK{
		search: func(_ context.Context, collName string, _ []string, _ string, outputFields []string, vectors []milvusentity.Vector, vectorField string, metricType milvusentity.MetricType, topK int, _ milvusentity.SearchParam, _ ...client.SearchQueryOptionFunc) ([]client.SearchResult, error) {
			assert.Equal(t, "docintel_reference_entities", collName)
			assert.Equal(t, FieldEmbedding, vectorField)
			assert.Equal(t, milvusentity.COSINE, metricType)
			assert.Equal(t, 1, topK)
			assert.Len(t, vectors, 1)
			assert.ElementsMatch(t, []string{FieldID, FieldCanonical, FieldType}, outputFields)
			return []client.SearchResult{hitResult("ref-42", "Acme Corporation", "COMPANY", 0.91)}, nil
		},
	}
	embedder := &stubEmbedder{vector: []float32{0.1, 0.2}}
	s := NewReferenceSearcher(testMilvusClient(t, sdk), embedder, logging.NewNopLogger())

	m, ok, err := s.Nearest(context.Background(), "Acme Corp")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ref-42", m.ID)
	assert.Equal(t, "Acme Corporation", m.Canonical)
	assert.Equal(t, domain.TypeCompany, m.Type)
	assert.InDelta(t, 0.91, m.Similarity, 1e-6)
	assert.Equal(t, []string{"Acme Corp"}, embedder.calls)
}

func TestNearest_EmptyIndex(t *testing.T) {
	sdk := &mockSDK{
		search: func(context.Context, string, []string, string, []string, []milvusentity.Vector, string, milvusentity.MetricType, int, milvusentity.SearchParam, ...client.SearchQueryOptionFunc) ([]client.SearchResult, error) {
			return []client.SearchResult{{ResultCount: 0}}, nil
		},
	}
	s := NewReferenceSearcher(testMilvusClient(t, sdk), &stubEmbedder{vector: []float32{0.1}}, logging.NewNopLogger())

	_, ok, err := s.Nearest(context.Background(), "Unknown Phrase")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNearest_EmbedderError(t *testing.T) {
	s := NewReferenceSearcher(testMilvusClient(t, &mockSDK{}), &stubEmbedder{err: assert.AnError},
		logging.NewNopLogger())

	_, _, err := s.Nearest(context.Background(), "Acme")
	assert.Error(t, err)
}

func TestIndexReferenceEntities_EmbedsMissingVectors(t *testing.T) {
	var gotColumns []milvusentity.Column
	sdk := &mockSDK{
		upsert: func(_ context.Context, collName string, _ string, columns ...milvusentity.Column) (milvusentity.Column, error) {
			assert.Equal(t, "docintel_reference_entities", collName)
			gotColumns = columns
			return nil, nil
		},
	}
	embedder := &stubEmbedder{vector: make([]float32, 384)}
	s := NewReferenceSearcher(testMilvusClient(t, sdk), embedder, logging.NewNopLogger())

	entries := []ReferenceEntity{
		{ID: "ref-1", Canonical: "Acme Corporation", Type: domain.TypeCompany},
		{ID: "ref-2", Canonical: "Kubernetes", Type: domain.TypeTechnology, Embedding: make([]float32, 384)},
	}
	require.NoError(t, s.IndexReferenceEntities(context.Background(), entries))

	// Only the entry without a vector goes through the embedder.
	assert.Equal(t, []string{"Acme Corporation"}, embedder.calls)

	require.Len(t, gotColumns, 4)
	assert.Equal(t, FieldID, gotColumns[0].Name())
	assert.Equal(t, 2, gotColumns[0].Len())
}

func TestIndexReferenceEntities_Empty(t *testing.T) {
	s := NewReferenceSearcher(testMilvusClient(t, &mockSDK{}), &stubEmbedder{}, logging.NewNopLogger())
	assert.NoError(t, s.IndexReferenceEntities(context.Background(), nil))
}
