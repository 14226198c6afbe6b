// Package entity implements the extraction bounded context's value objects:
// entity types, extraction tiers, span identity, candidates, resolved
// entities, and relationships.  All invariants concerning span identity and
// tier precedence live here; infrastructure concerns (persistence, search)
// are handled by separate repository and adapter layers.
package entity

// ─────────────────────────────────────────────────────────────────────────────
// Entity types (closed set)
// ─────────────────────────────────────────────────────────────────────────────

// Type is the closed set of entity types the pipeline can produce.
type Type string

const (
	TypeCompany             Type = "COMPANY"
	TypePerson              Type = "PERSON"
	TypeDate                Type = "DATE"
	TypeTechnology          Type = "TECHNOLOGY"
	TypeMoney               Type = "MONEY"
	TypePercent             Type = "PERCENT"
	TypeProduct             Type = "PRODUCT"
	TypeBusinessTitle       Type = "BUSINESS_TITLE"
	TypeLocation            Type = "LOCATION"
	TypeTimeRange           Type = "TIME_RANGE"
	TypeRelationshipContext Type = "RELATIONSHIP_CONTEXT"
	TypeTemporalContext     Type = "TEMPORAL_CONTEXT"
	TypeSkill               Type = "SKILL"

	// Taxonomy-derived types emitted by the heuristics tier.
	TypeIndustry Type = "INDUSTRY"
	TypeService  Type = "SERVICE"
	TypeCategory Type = "CATEGORY"
)

// validTypes is the set of types accepted by IsValidType.
var validTypes = map[Type]bool{
	TypeCompany:             true,
	TypePerson:              true,
	TypeDate:                true,
	TypeTechnology:          true,
	TypeMoney:               true,
	TypePercent:             true,
	TypeProduct:             true,
	TypeBusinessTitle:       true,
	TypeLocation:            true,
	TypeTimeRange:           true,
	TypeRelationshipContext: true,
	TypeTemporalContext:     true,
	TypeSkill:               true,
	TypeIndustry:            true,
	TypeService:             true,
	TypeCategory:            true,
}

// IsValidType reports whether t belongs to the closed entity-type set.
func IsValidType(t Type) bool { return validTypes[t] }

// AllTypes returns every valid entity type in a stable order.
func AllTypes() []Type {
	return []Type{
		TypeCompany, TypePerson, TypeDate, TypeTechnology, TypeMoney,
		TypePercent, TypeProduct, TypeBusinessTitle, TypeLocation,
		TypeTimeRange, TypeRelationshipContext, TypeTemporalContext,
		TypeSkill, TypeIndustry, TypeService, TypeCategory,
	}
}

func (t Type) String() string { return string(t) }

// ─────────────────────────────────────────────────────────────────────────────
// Extraction tiers
// ─────────────────────────────────────────────────────────────────────────────

// Tier identifies the extraction stage that produced a candidate.  The fixed
// pipeline order is heuristics, regex, statistical, embedding, llm; fusion
// applies this precedence at merge time so tiers may run concurrently.
type Tier string

const (
	TierHeuristics  Tier = "heuristics"
	TierRegex       Tier = "regex"
	TierStatistical Tier = "statistical"
	TierEmbedding   Tier = "embedding"
	TierLLM         Tier = "llm"
)

// tierRanks maps each tier to its position in the fixed pipeline order.
// Lower rank wins confidence ties during fusion.
var tierRanks = map[Tier]int{
	TierHeuristics:  0,
	TierRegex:       1,
	TierStatistical: 2,
	TierEmbedding:   3,
	TierLLM:         4,
}

// unknownTierRank sorts unrecognised tiers after every known tier.
const unknownTierRank = 100

// TierRank returns the tier's position in the fixed pipeline order.
// Unknown tiers rank last so a malformed candidate can never win a tie.
func TierRank(t Tier) int {
	if r, ok := tierRanks[t]; ok {
		return r
	}
	return unknownTierRank
}

// Tiers returns the five tiers in fixed pipeline order.
func Tiers() []Tier {
	return []Tier{TierHeuristics, TierRegex, TierStatistical, TierEmbedding, TierLLM}
}

func (t Tier) String() string { return string(t) }

// ─────────────────────────────────────────────────────────────────────────────
// Relationship types
// ─────────────────────────────────────────────────────────────────────────────

// RelationType is the closed set of typed, directed links between entities.
type RelationType string

const (
	RelationBelongsTo      RelationType = "BELONGS_TO"
	RelationHasProduct     RelationType = "HAS_PRODUCT"
	RelationWorksFor       RelationType = "WORKS_FOR"
	RelationUsesTechnology RelationType = "USES_TECHNOLOGY"
	RelationLocatedIn      RelationType = "LOCATED_IN"
	RelationImplements     RelationType = "IMPLEMENTS"
	RelationRelatedTo      RelationType = "RELATED_TO"
)

func (r RelationType) String() string { return string(r) }
