// Package relationship proposes typed links between the resolved entities of
// one chunk.  Two rule families run: curated relation strings from the
// heuristics store ("<product> belongs to <company>") and typed proximity
// rules over entity pairs.  Confidence is fixed per rule, never computed.
package relationship

import (
	"github.com/bpointel/docintel/internal/domain/entity"
	"github.com/bpointel/docintel/internal/heuristics"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
)

const (
	// relationStringMaxDistance bounds how far apart both surfaces of a
	// curated relation string may sit and still count as co-occurrence.
	relationStringMaxDistance = 500

	// proximityMaxDistance bounds the generic entity-pair rules.
	proximityMaxDistance = 300

	relationStringConfidence = 0.85
)

// proximityRule fixes the relation type and confidence for one ordered
// head/tail type pair.
type proximityRule struct {
	relType    entity.RelationType
	confidence float64
}

var proximityRules = map[[2]entity.Type]proximityRule{
	{entity.TypeProduct, entity.TypeCompany}:    {entity.RelationBelongsTo, 0.75},
	{entity.TypeCompany, entity.TypeProduct}:    {entity.RelationHasProduct, 0.75},
	{entity.TypePerson, entity.TypeCompany}:     {entity.RelationWorksFor, 0.65},
	{entity.TypeTechnology, entity.TypeProduct}: {entity.RelationUsesTechnology, 0.70},
	{entity.TypeCompany, entity.TypeLocation}:   {entity.RelationLocatedIn, 0.70},
	{entity.TypeProduct, entity.TypeTechnology}: {entity.RelationImplements, 0.70},
}

// fallbackTypes are the entity types generic enough to co-relate when no
// typed rule matches; the catch-all RELATED_TO link at low confidence.
var fallbackTypes = map[entity.Type]bool{
	entity.TypeCompany:    true,
	entity.TypeProduct:    true,
	entity.TypePerson:     true,
	entity.TypeTechnology: true,
	entity.TypeLocation:   true,
}

// Inferencer derives relationship candidates from a chunk's resolved
// entities.  Stateless apart from the read-only relation strings.
type Inferencer struct {
	relationStrings []heuristics.RelationString
	logger          logging.Logger
}

func NewInferencer(store *heuristics.Store, logger logging.Logger) *Inferencer {
	return NewInferencerFromStrings(store.RelationStrings(), logger)
}

// NewInferencerFromStrings builds an Inferencer over an explicit relation
// string set, without a loaded store.
func NewInferencerFromStrings(relationStrings []heuristics.RelationString, logger logging.Logger) *Inferencer {
	return &Inferencer{
		relationStrings: relationStrings,
		logger:          logger.Named("relationship"),
	}
}

// Infer proposes relationships among the chunk's entities.  Entities must
// carry their document id and span; the caller persists the results through
// the same GREATEST-confidence upsert path as entities.
func (inf *Inferencer) Infer(entities []entity.Entity) []*entity.Relationship {
	if len(entities) < 2 {
		return nil
	}

	var out []*entity.Relationship
	out = append(out, inf.fromRelationStrings(entities)...)
	out = append(out, inf.fromProximity(entities)...)
	return out
}

// fromRelationStrings links every (head, tail) surface pair asserted by a
// curated relation string when both appear in the chunk within range.
func (inf *Inferencer) fromRelationStrings(entities []entity.Entity) []*entity.Relationship {
	byCanonical := make(map[string][]*entity.Entity)
	for i := range entities {
		e := &entities[i]
		byCanonical[canonicalOf(e)] = append(byCanonical[canonicalOf(e)], e)
	}

	var out []*entity.Relationship
	for _, rs := range inf.relationStrings {
		heads, tails := byCanonical[rs.Head], byCanonical[rs.Tail]
		for _, head := range heads {
			for _, tail := range tails {
				dist := distance(head.Span, tail.Span)
				if dist >= relationStringMaxDistance {
					continue
				}
				rel, err := entity.NewRelationship(head, tail, entity.RelationBelongsTo,
					relationStringConfidence, entity.Evidence{
						Pattern:  "relationship_string",
						Distance: dist,
						Matched:  rs.Raw,
					})
				if err != nil {
					inf.logger.Warn("dropping relation-string link", logging.Err(err))
					continue
				}
				out = append(out, rel)
			}
		}
	}
	return out
}

// fromProximity links entity pairs within range using the typed rules, or
// the RELATED_TO fallback for otherwise-unmatched linkable pairs.
func (inf *Inferencer) fromProximity(entities []entity.Entity) []*entity.Relationship {
	var out []*entity.Relationship
	for i := range entities {
		for j := i + 1; j < len(entities); j++ {
			head, tail := &entities[i], &entities[j]
			dist := distance(head.Span, tail.Span)
			if dist >= proximityMaxDistance {
				continue
			}

			rule, ok := proximityRules[[2]entity.Type{head.Type, tail.Type}]
			if !ok {
				// Pair order is span order, not rule order; retry reversed.
				if reversed, found := proximityRules[[2]entity.Type{tail.Type, head.Type}]; found {
					head, tail = tail, head
					rule, ok = reversed, true
				}
			}
			if !ok {
				if !fallbackTypes[head.Type] || !fallbackTypes[tail.Type] {
					continue
				}
				rule = proximityRule{entity.RelationRelatedTo, 0.60}
			}

			rel, err := entity.NewRelationship(head, tail, rule.relType, rule.confidence,
				entity.Evidence{
					Pattern:  "proximity:" + string(head.Type) + "+" + string(tail.Type),
					Distance: dist,
				})
			if err != nil {
				inf.logger.Warn("dropping proximity link", logging.Err(err))
				continue
			}
			out = append(out, rel)
		}
	}
	return out
}

func canonicalOf(e *entity.Entity) string {
	if c, ok := e.Normalized["canonical"].(string); ok && c != "" {
		return c
	}
	return e.Surface
}

func distance(a, b entity.Span) int {
	d := a.Start - b.Start
	if d < 0 {
		return -d
	}
	return d
}
