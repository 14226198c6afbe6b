package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCandidate_Valid(t *testing.T) {
	text := "IBM provides CX Operations"
	c, err := NewCandidate(Span{ChunkSeq: 0, Start: 0, End: 3}, text, TypeCompany, nil, 0.90, TierHeuristics)
	require.NoError(t, err)
	assert.Equal(t, "IBM", c.Surface)
	assert.Equal(t, TypeCompany, c.Type)
	assert.Equal(t, 0.90, c.Confidence)
}

func TestNewCandidate_InvalidType(t *testing.T) {
	_, err := NewCandidate(Span{Start: 0, End: 3}, "IBM", Type("WIDGET"), nil, 0.9, TierHeuristics)
	assert.Error(t, err)
}

func TestNewCandidate_SpanOutOfRange(t *testing.T) {
	cases := []Span{
		{Start: -1, End: 3},
		{Start: 0, End: 100},
		{Start: 3, End: 3},
		{Start: 5, End: 2},
	}
	for _, s := range cases {
		_, err := NewCandidate(s, "IBM", TypeCompany, nil, 0.9, TierHeuristics)
		assert.Error(t, err, "span %+v should be rejected", s)
	}
}

func TestNewCandidate_ConfidenceRange(t *testing.T) {
	_, err := NewCandidate(Span{Start: 0, End: 3}, "IBM", TypeCompany, nil, 1.5, TierHeuristics)
	assert.Error(t, err)
	_, err = NewCandidate(Span{Start: 0, End: 3}, "IBM", TypeCompany, nil, -0.1, TierHeuristics)
	assert.Error(t, err)
}

func TestCandidate_SpanHash(t *testing.T) {
	c, err := NewCandidate(Span{ChunkSeq: 7, Start: 2, End: 5}, "0123456789", TypeDate, nil, 0.88, TierRegex)
	require.NoError(t, err)
	assert.Equal(t, SpanHash(7, 2, 5, TypeDate), c.SpanHash())
}

func TestJoinSources_And_ParseSources(t *testing.T) {
	sources := []Tier{TierHeuristics, TierStatistical}
	label := JoinSources(sources)
	assert.Equal(t, "heuristics+statistical", label)
	assert.Equal(t, sources, ParseSources(label))
	assert.Nil(t, ParseSources(""))
}

func TestEntity_SourceLabel(t *testing.T) {
	e := &Entity{Sources: []Tier{TierHeuristics, TierLLM}}
	assert.Equal(t, "heuristics+llm", e.SourceLabel())
}

func TestNewRelationship_SameDocument(t *testing.T) {
	docID := uuid.New()
	head := &Entity{ID: uuid.New(), DocumentID: docID, Type: TypeProduct}
	tail := &Entity{ID: uuid.New(), DocumentID: docID, Type: TypeCompany}

	rel, err := NewRelationship(head, tail, RelationBelongsTo, 0.85, Evidence{Pattern: "belongs_to_string", Distance: 42})
	require.NoError(t, err)
	assert.Equal(t, docID, rel.DocumentID)
	assert.Equal(t, head.ID, rel.HeadEntityID)
	assert.Equal(t, tail.ID, rel.TailEntityID)
	assert.Equal(t, RelationBelongsTo, rel.Type)
	assert.Equal(t, "rules", rel.Source)
}

func TestNewRelationship_CrossDocumentRejected(t *testing.T) {
	head := &Entity{ID: uuid.New(), DocumentID: uuid.New()}
	tail := &Entity{ID: uuid.New(), DocumentID: uuid.New()}
	_, err := NewRelationship(head, tail, RelationBelongsTo, 0.85, Evidence{})
	assert.Error(t, err)
}

func TestNewRelationship_NilEndpoints(t *testing.T) {
	_, err := NewRelationship(nil, &Entity{}, RelationBelongsTo, 0.85, Evidence{})
	assert.Error(t, err)
}

func TestNewRelationship_ConfidenceRange(t *testing.T) {
	docID := uuid.New()
	head := &Entity{ID: uuid.New(), DocumentID: docID}
	tail := &Entity{ID: uuid.New(), DocumentID: docID}
	_, err := NewRelationship(head, tail, RelationRelatedTo, 1.2, Evidence{})
	assert.Error(t, err)
}
