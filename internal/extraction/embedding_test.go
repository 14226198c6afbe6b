package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpointel/docintel/internal/domain/entity"
	"github.com/bpointel/docintel/pkg/errors"
)

type stubSearcher struct {
	matches map[string]Match
	err     error
	probes  []string
}

func (s *stubSearcher) Nearest(_ context.Context, text string) (Match, bool, error) {
	s.probes = append(s.probes, text)
	if s.err != nil {
		return Match{}, false, s.err
	}
	m, ok := s.matches[text]
	return m, ok, nil
}

func TestEmbeddingAdapter_EmitsAboveCutoff(t *testing.T) {
	text := "We compared Zendash against the incumbents"
	searcher := &stubSearcher{matches: map[string]Match{
		"Zendash": {ID: "ref-42", Canonical: "Zendash Inc", Type: entity.TypeCompany, Similarity: 0.81},
	}}
	a := NewEmbeddingAdapter(searcher, 0.62, nopLogger())

	cands, err := a.Generate(context.Background(), Request{Chunk: testChunk(t, 1, text)})
	require.NoError(t, err)
	require.Len(t, cands, 1)

	assert.Equal(t, entity.TypeCompany, cands[0].Type)
	assert.Equal(t, "Zendash", cands[0].Surface)
	assert.InDelta(t, 0.81, cands[0].Confidence, 1e-9)
	assert.Equal(t, "Zendash Inc", cands[0].Normalized["canonical"])
	assert.Equal(t, "ref-42", cands[0].Normalized["reference_id"])
	assert.Equal(t, entity.TierEmbedding, cands[0].Tier)
}

func TestEmbeddingAdapter_BelowCutoffDiscarded(t *testing.T) {
	searcher := &stubSearcher{matches: map[string]Match{
		"Zendash": {Canonical: "Zendash Inc", Type: entity.TypeCompany, Similarity: 0.55},
	}}
	a := NewEmbeddingAdapter(searcher, 0.62, nopLogger())

	cands, err := a.Generate(context.Background(), Request{Chunk: testChunk(t, 0, "about Zendash again")})
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestEmbeddingAdapter_SkipsClaimedSpans(t *testing.T) {
	text := "Zendash and Novaretti compete"
	searcher := &stubSearcher{matches: map[string]Match{}}
	a := NewEmbeddingAdapter(searcher, 0.62, nopLogger())

	_, err := a.Generate(context.Background(), Request{
		Chunk:   testChunk(t, 0, text),
		Claimed: []entity.Span{{ChunkSeq: 0, Start: 0, End: 7}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Novaretti"}, searcher.probes)
}

func TestEmbeddingAdapter_MultiWordPhrases(t *testing.T) {
	searcher := &stubSearcher{matches: map[string]Match{}}
	a := NewEmbeddingAdapter(searcher, 0.62, nopLogger())

	_, err := a.Generate(context.Background(), Request{
		Chunk: testChunk(t, 0, "they hired Northwind Trading Group last year"),
	})
	require.NoError(t, err)
	assert.Contains(t, searcher.probes, "Northwind Trading Group")
}

func TestEmbeddingAdapter_IndexError(t *testing.T) {
	a := NewEmbeddingAdapter(&stubSearcher{err: assert.AnError}, 0.62, nopLogger())

	_, err := a.Generate(context.Background(), Request{Chunk: testChunk(t, 0, "about Zendash")})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmbeddingIndexDown))
	assert.True(t, errors.IsRecoverable(err))
}
