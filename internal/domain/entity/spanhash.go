package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Span is a character range within a chunk identifying where a candidate's
// surface text occurs.  Offsets are rune-agnostic byte positions into the
// chunk text; End is exclusive.
type Span struct {
	ChunkSeq int `json:"chunk_seq"`
	Start    int `json:"start"`
	End      int `json:"end"`
}

// Len returns the span length in characters.
func (s Span) Len() int { return s.End - s.Start }

// Contains reports whether s strictly contains other: other lies within s and
// the two spans are not identical.
func (s Span) Contains(other Span) bool {
	if s.ChunkSeq != other.ChunkSeq {
		return false
	}
	return s.Start <= other.Start && s.End >= other.End && s.Len() > other.Len()
}

// Overlaps reports whether s and other share at least one character.
func (s Span) Overlaps(other Span) bool {
	if s.ChunkSeq != other.ChunkSeq {
		return false
	}
	return s.Start < other.End && other.Start < s.End
}

// SpanHash computes the deterministic identity hash of a span+type pair:
// sha256 over "<chunkSeq>:<start>:<end>:<type>", hex-encoded.  It is the
// entity identity key for deduplication: identical spans collapse to one
// stored row across repeated runs, and any difference in any of the four
// fields yields a different hash.
func SpanHash(chunkSeq, start, end int, typ Type) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%d:%d:%s", chunkSeq, start, end, typ)))
	return hex.EncodeToString(sum[:])
}

// Hash returns the span-identity hash for s with the given type.
func (s Span) Hash(typ Type) string {
	return SpanHash(s.ChunkSeq, s.Start, s.End, typ)
}
