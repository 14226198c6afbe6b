package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entity is a resolved, persisted extraction result: one fused record per
// unique (document, type, span-hash) triple.  On re-processing of the same
// document producing the same span+type, the existing row is updated with
// confidence = max(old, new) rather than duplicated.
//
// Consumers must not modify fields directly after construction; the
// persistence gateway owns updates.
type Entity struct {
	ID         uuid.UUID  `json:"id"`
	DocumentID uuid.UUID  `json:"document_id"`
	ChunkID    *uuid.UUID `json:"chunk_id,omitempty"`

	Span       Span       `json:"span"`
	SpanHash   string     `json:"span_hash"`
	Type       Type       `json:"type"`
	Surface    string     `json:"surface"`
	Normalized Normalized `json:"normalized,omitempty"`

	// Confidence is the maximum confidence observed across all tiers that
	// proposed this exact span+type.
	Confidence float64 `json:"confidence"`

	// Sources lists the contributing tiers in first-seen pipeline order.
	Sources []Tier `json:"sources"`

	// Method labels how the confidence was assigned (e.g. "tier_max",
	// "human_correction").
	Method string `json:"method"`

	// HeuristicsVersion stamps the reference-data version active when this
	// entity was produced.
	HeuristicsVersion string `json:"heuristics_version,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MethodTierMax marks confidences assigned by max-across-tiers fusion.
const MethodTierMax = "tier_max"

// MethodHumanCorrection marks confidences written back by the review tool.
// Corrections travel the same upsert path as automated writes.
const MethodHumanCorrection = "human_correction"

// SourceLabel renders the contributing tiers as the canonical provenance
// string, e.g. "heuristics+statistical".
func (e *Entity) SourceLabel() string {
	return JoinSources(e.Sources)
}

// JoinSources renders a tier list as a "+"-joined provenance label.
func JoinSources(sources []Tier) string {
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, "+")
}

// ParseSources is the inverse of JoinSources: it splits a stored provenance
// label back into its tier list.  Empty input yields nil.
func ParseSources(label string) []Tier {
	if label == "" {
		return nil
	}
	parts := strings.Split(label, "+")
	out := make([]Tier, 0, len(parts))
	for _, p := range parts {
		out = append(out, Tier(p))
	}
	return out
}
