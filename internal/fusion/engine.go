// Package fusion merges the candidate lists produced by the extraction tiers
// for one chunk into the resolved entity set.  Identity is the span hash over
// (chunk sequence, start, end, type): candidates sharing it are one logical
// entity seen by multiple tiers.  Fusion keeps the maximum confidence,
// concatenates tier provenance in fixed pipeline order, and resolves
// same-type containment conflicts; overlapping spans of different types are
// both kept, ambiguity stays visible for review.
package fusion

import (
	"sort"

	"github.com/bpointel/docintel/internal/domain/entity"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
)

// Engine fuses candidates into resolved entities.  Safe for concurrent use,
// Fuse holds no state between calls.
type Engine struct {
	// containmentTolerance is the confidence margin within which a longer
	// same-type span beats a span it strictly contains.
	containmentTolerance float64
	logger               logging.Logger
}

func NewEngine(containmentTolerance float64, logger logging.Logger) *Engine {
	return &Engine{
		containmentTolerance: containmentTolerance,
		logger:               logger.Named("fusion"),
	}
}

// Fuse resolves the full candidate list of one chunk.  An empty candidate
// list yields an empty entity set, never an error.
func (e *Engine) Fuse(candidates []entity.Candidate) []entity.Entity {
	if len(candidates) == 0 {
		return nil
	}

	groups := groupBySpanHash(candidates)

	fused := make([]entity.Entity, 0, len(groups))
	for _, group := range groups {
		fused = append(fused, fuseGroup(group))
	}

	fused = e.resolveContainment(fused)

	// Deterministic output order regardless of tier arrival order.
	sort.Slice(fused, func(i, j int) bool {
		a, b := fused[i], fused[j]
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		if a.Span.End != b.Span.End {
			return a.Span.End < b.Span.End
		}
		return a.Type < b.Type
	})
	return fused
}

// ─────────────────────────────────────────────────────────────────────────────
// Span-identity grouping and within-group fusion
// ─────────────────────────────────────────────────────────────────────────────

func groupBySpanHash(candidates []entity.Candidate) map[string][]entity.Candidate {
	groups := make(map[string][]entity.Candidate)
	for _, c := range candidates {
		h := c.SpanHash()
		groups[h] = append(groups[h], c)
	}
	return groups
}

// fuseGroup merges the candidates describing one span+type.  Confidence is
// the group maximum; normalized value and surface come from the best member,
// ties broken by earliest tier in the fixed pipeline order; sources are the
// distinct contributing tiers in pipeline order.
func fuseGroup(group []entity.Candidate) entity.Entity {
	best := group[0]
	for _, c := range group[1:] {
		if c.Confidence > best.Confidence ||
			(c.Confidence == best.Confidence && entity.TierRank(c.Tier) < entity.TierRank(best.Tier)) {
			best = c
		}
	}

	seen := make(map[entity.Tier]bool, len(group))
	sources := make([]entity.Tier, 0, len(group))
	for _, c := range group {
		if !seen[c.Tier] {
			seen[c.Tier] = true
			sources = append(sources, c.Tier)
		}
	}
	sort.Slice(sources, func(i, j int) bool {
		return entity.TierRank(sources[i]) < entity.TierRank(sources[j])
	})

	return entity.Entity{
		Span:       best.Span,
		SpanHash:   best.SpanHash(),
		Type:       best.Type,
		Surface:    best.Surface,
		Normalized: best.Normalized,
		Confidence: best.Confidence,
		Sources:    sources,
		Method:     entity.MethodTierMax,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Containment resolution
// ─────────────────────────────────────────────────────────────────────────────

// resolveContainment drops the losing side of every same-type strict
// containment pair.  The longer span wins when its confidence is within the
// tolerance of the shorter one's; otherwise plain confidence wins.  This
// keeps a multi-word canonical match from being shadowed by a shorter
// fragment of the same type.
func (e *Engine) resolveContainment(entities []entity.Entity) []entity.Entity {
	if len(entities) < 2 {
		return entities
	}

	dropped := make(map[int]bool)
	for i := range entities {
		if dropped[i] {
			continue
		}
		for j := range entities {
			if i == j || dropped[i] || dropped[j] {
				continue
			}
			a, b := &entities[i], &entities[j]
			if a.Type != b.Type || !a.Span.Contains(b.Span) {
				continue
			}

			// a strictly contains b.
			loser := j
			if a.Confidence < b.Confidence-e.containmentTolerance {
				loser = i
			}
			dropped[loser] = true
			e.logger.Debug("containment conflict resolved",
				logging.String("type", string(a.Type)),
				logging.String("winner", entities[i+j-loser].Surface),
				logging.String("dropped", entities[loser].Surface))
		}
	}

	if len(dropped) == 0 {
		return entities
	}
	kept := make([]entity.Entity, 0, len(entities)-len(dropped))
	for i, ent := range entities {
		if !dropped[i] {
			kept = append(kept, ent)
		}
	}
	return kept
}
