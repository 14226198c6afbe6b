package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/bpointel/docintel/pkg/errors"
)

// Evidence is the structured justification attached to an inferred
// relationship: which rule fired and how far apart the endpoints were.
type Evidence struct {
	// Pattern names the rule that produced the link, e.g.
	// "belongs_to_string" or "proximity:COMPANY+PRODUCT".
	Pattern string `json:"pattern"`

	// Distance is the character distance between head and tail surfaces
	// within the chunk at inference time.
	Distance int `json:"distance"`

	// Matched is the surface text that triggered a lexical-pattern rule,
	// empty for pure proximity rules.
	Matched string `json:"matched,omitempty"`
}

// Relationship is a typed, directed link between two resolved entities of the
// same document.  Relationships are chunk-scoped at inference time but
// persisted at document scope; the chunk association is implicit via the
// entities they point to.
type Relationship struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`

	HeadEntityID uuid.UUID `json:"head_entity_id"`
	TailEntityID uuid.UUID `json:"tail_entity_id"`

	Type       RelationType `json:"type"`
	Confidence float64      `json:"confidence"`
	Evidence   Evidence     `json:"evidence"`

	// Source identifies the producer, "rules" for the inference engine or
	// "human_correction" for review writebacks.
	Source string `json:"source"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRelationship constructs a validated Relationship between two resolved
// entities.  Head and tail must belong to the same document.
func NewRelationship(head, tail *Entity, typ RelationType, confidence float64, ev Evidence) (*Relationship, error) {
	if head == nil || tail == nil {
		return nil, errors.New(errors.ErrCodeRelationEntityMissing,
			"relationship endpoints must be resolved entities")
	}
	if head.DocumentID != tail.DocumentID {
		return nil, errors.New(errors.ErrCodeRelationCrossDocument,
			"relationship endpoints must belong to the same document")
	}
	if confidence < 0 || confidence > 1 {
		return nil, errors.InvalidParam("relationship confidence is out of range [0, 1]")
	}
	return &Relationship{
		ID:           uuid.New(),
		DocumentID:   head.DocumentID,
		HeadEntityID: head.ID,
		TailEntityID: tail.ID,
		Type:         typ,
		Confidence:   confidence,
		Evidence:     ev,
		Source:       "rules",
	}, nil
}
