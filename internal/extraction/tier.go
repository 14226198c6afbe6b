// Package extraction holds the five candidate generator tiers: curated
// heuristics, deterministic regex, statistical tagger, embedding similarity
// and LLM fallback.  Each tier produces confidence-scored entity candidates
// over one chunk; merging and conflict resolution happen downstream in
// internal/fusion, never here.
package extraction

import (
	"context"
	"strings"

	"github.com/bpointel/docintel/internal/domain/document"
	"github.com/bpointel/docintel/internal/domain/entity"
)

// Request carries one chunk through a generator tier.  Claimed lists the
// spans already confidently held by earlier tiers; the embedding and LLM
// tiers use it to focus on uncovered text.  Tiers that ignore it must stay
// correct anyway, duplicate candidates are resolved by fusion.
type Request struct {
	Chunk   *document.Chunk
	Claimed []entity.Span
}

// Generator is one extraction tier.  Generate returns the tier's candidates
// for the chunk; an empty slice is a normal outcome, not an error.  Errors
// are tier-local and recoverable, the pipeline logs them and moves on.
type Generator interface {
	Tier() entity.Tier
	Generate(ctx context.Context, req Request) ([]entity.Candidate, error)
}

// claimed reports whether the span overlaps any span in the claimed set.
func claimed(s entity.Span, set []entity.Span) bool {
	for _, c := range set {
		if s.Overlaps(c) {
			return true
		}
	}
	return false
}

// foldASCII lowercases the ASCII letters of s and leaves every other byte
// untouched.  Unlike strings.ToLower it never changes byte length, so offsets
// found in the folded text index the original text exactly.  The curated term
// lists are ASCII, so this is all the folding phrase matching needs.
func foldASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// wordChar mirrors the \w boundary used for whole-phrase matching.
func wordChar(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z')
}

// findPhrase returns the start offsets of every whole-word occurrence of
// needle in haystack.  Both arguments must already be lowercased.
func findPhrase(haystack, needle string) []int {
	if needle == "" {
		return nil
	}
	var offsets []int
	for from := 0; from < len(haystack); {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			return offsets
		}
		idx += from
		end := idx + len(needle)
		boundedLeft := idx == 0 || !wordChar(haystack[idx-1])
		boundedRight := end == len(haystack) || !wordChar(haystack[end])
		if boundedLeft && boundedRight {
			offsets = append(offsets, idx)
		}
		from = idx + 1
	}
	return offsets
}
