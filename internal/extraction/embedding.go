package extraction

import (
	"context"

	"github.com/bpointel/docintel/internal/domain/entity"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/pkg/errors"
)

// Match is the nearest reference entity for a probe string.
type Match struct {
	ID         string
	Canonical  string
	Type       entity.Type
	Similarity float64
}

// Searcher is the black-box vector-similarity capability over the reference
// entity index.  ok is false when the index holds no neighbor at all.
type Searcher interface {
	Nearest(ctx context.Context, text string) (m Match, ok bool, err error)
}

// EmbeddingAdapter is the fourth tier: probe phrases left uncovered by the
// earlier tiers against the reference index and emit a candidate when the
// nearest neighbor clears the similarity cutoff.  Probing already-claimed
// text would be harmless, fusion deduplicates, but skipping it saves index
// round-trips.
type EmbeddingAdapter struct {
	searcher      Searcher
	similarityMin float64
	logger        logging.Logger
}

func NewEmbeddingAdapter(searcher Searcher, similarityMin float64, logger logging.Logger) *EmbeddingAdapter {
	return &EmbeddingAdapter{
		searcher:      searcher,
		similarityMin: similarityMin,
		logger:        logger.Named("extraction.embedding"),
	}
}

func (a *EmbeddingAdapter) Tier() entity.Tier { return entity.TierEmbedding }

func (a *EmbeddingAdapter) Generate(ctx context.Context, req Request) ([]entity.Candidate, error) {
	var out []entity.Candidate
	for _, span := range probeSpans(req.Chunk.Text, req.Chunk.Seq, req.Claimed) {
		surface := req.Chunk.Text[span.Start:span.End]
		m, ok, err := a.searcher.Nearest(ctx, surface)
		if err != nil {
			return out, errors.Wrap(err, errors.ErrCodeEmbeddingIndexDown, "reference index lookup failed")
		}
		if !ok || m.Similarity < a.similarityMin {
			continue
		}
		cand, err := entity.NewCandidate(span, req.Chunk.Text, m.Type,
			entity.Normalized{"canonical": m.Canonical, "reference_id": m.ID},
			m.Similarity, entity.TierEmbedding)
		if err != nil {
			a.logger.Warn("dropping embedding candidate", logging.String("surface", surface), logging.Err(err))
			continue
		}
		out = append(out, cand)
	}
	return out, nil
}

// probeSpans extracts capitalized word runs (up to four words) from the text
// regions not claimed by earlier tiers.  These are the phrases worth probing
// against the reference index.
func probeSpans(text string, chunkSeq int, claimedSet []entity.Span) []entity.Span {
	const maxPhraseWords = 4

	var spans []entity.Span
	i := 0
	for i < len(text) {
		if !upperAlpha(text[i]) || (i > 0 && wordChar(text[i-1])) {
			i++
			continue
		}

		// Extend over consecutive capitalized words.
		start := i
		end := i
		words := 0
		j := i
		for words < maxPhraseWords {
			if j >= len(text) || !upperAlpha(text[j]) {
				break
			}
			for j < len(text) && wordChar(text[j]) {
				j++
			}
			end = j
			words++
			if j < len(text) && text[j] == ' ' && j+1 < len(text) && upperAlpha(text[j+1]) {
				j++
				continue
			}
			break
		}

		span := entity.Span{ChunkSeq: chunkSeq, Start: start, End: end}
		if !claimed(span, claimedSet) {
			spans = append(spans, span)
		}
		i = end + 1
	}
	return spans
}

func upperAlpha(b byte) bool { return b >= 'A' && b <= 'Z' }
