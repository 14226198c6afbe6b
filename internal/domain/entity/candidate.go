package entity

import (
	"fmt"

	"github.com/bpointel/docintel/pkg/errors"
)

// Normalized is the type-specific structured form of an entity's value, e.g.
// MONEY → {"amount": 1234.56, "currency": "USD"}.  It is persisted as JSONB.
type Normalized map[string]interface{}

// Candidate is one tier's proposal for an entity span.  Candidates are
// ephemeral: they exist only between generation and fusion and are never
// persisted.  Multiple candidates may describe the same logical entity (same
// or overlapping span) — that is expected and resolved by fusion, not
// prevented upstream.
type Candidate struct {
	Span       Span
	Surface    string
	Type       Type
	Normalized Normalized
	Confidence float64
	Tier       Tier
}

// NewCandidate constructs a validated Candidate.  chunkText is the text the
// span indexes into; a span outside it is a generator defect and rejected.
func NewCandidate(span Span, chunkText string, typ Type, norm Normalized, confidence float64, tier Tier) (Candidate, error) {
	if !IsValidType(typ) {
		return Candidate{}, errors.New(errors.ErrCodeTierUnknown,
			fmt.Sprintf("entity type %q is not in the closed type set", typ))
	}
	if span.Start < 0 || span.End > len(chunkText) || span.Start >= span.End {
		return Candidate{}, errors.New(errors.ErrCodeSpanOutOfRange,
			fmt.Sprintf("span [%d,%d) is invalid for chunk of length %d", span.Start, span.End, len(chunkText)))
	}
	if confidence < 0 || confidence > 1 {
		return Candidate{}, errors.InvalidParam(
			fmt.Sprintf("confidence %.3f is out of range [0, 1]", confidence))
	}
	return Candidate{
		Span:       span,
		Surface:    chunkText[span.Start:span.End],
		Type:       typ,
		Normalized: norm,
		Confidence: confidence,
		Tier:       tier,
	}, nil
}

// SpanHash returns the span-identity hash grouping this candidate with every
// other candidate describing the same span+type.
func (c Candidate) SpanHash() string {
	return c.Span.Hash(c.Type)
}
