package extraction

import (
	"context"

	"github.com/bpointel/docintel/internal/config"
	"github.com/bpointel/docintel/internal/domain/entity"
	"github.com/bpointel/docintel/internal/heuristics"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
)

// HeuristicMatcher is the first tier: exact whole-phrase matching against the
// curated term lists, canonicalised through the alias tables.  Pure function
// over the read-only store; a lookup miss is simply no candidate.
type HeuristicMatcher struct {
	store  *heuristics.Store
	conf   config.ConfidenceConfig
	logger logging.Logger
}

func NewHeuristicMatcher(store *heuristics.Store, conf config.ConfidenceConfig, logger logging.Logger) *HeuristicMatcher {
	return &HeuristicMatcher{
		store:  store,
		conf:   conf,
		logger: logger.Named("extraction.heuristics"),
	}
}

func (m *HeuristicMatcher) Tier() entity.Tier { return entity.TierHeuristics }

// Generate matches every term list against the chunk.  Longest-match-wins is
// enforced per list (term lists are sorted longest-surface-first, and a span
// claimed by a longer term of the same list blocks shorter ones), while
// candidates from different lists may overlap freely; cross-type overlap is
// fusion's concern.
func (m *HeuristicMatcher) Generate(_ context.Context, req Request) ([]entity.Candidate, error) {
	text := req.Chunk.Text
	lower := foldASCII(text)

	var out []entity.Candidate
	for _, list := range m.store.Lists() {
		typ, ok := listEntityType(list.Name)
		if !ok {
			continue
		}
		var listClaimed []entity.Span
		for _, term := range list.Terms {
			for _, start := range findPhrase(lower, term.Surface) {
				span := entity.Span{
					ChunkSeq: req.Chunk.Seq,
					Start:    start,
					End:      start + len(term.Surface),
				}
				if claimed(span, listClaimed) {
					continue
				}
				cand, err := entity.NewCandidate(span, text, typ,
					m.normalize(list.Name, term, text[span.Start:span.End]),
					m.confidence(list.Name, term), entity.TierHeuristics)
				if err != nil {
					m.logger.Warn("dropping heuristic candidate",
						logging.String("list", string(list.Name)),
						logging.String("term", term.Surface),
						logging.Err(err))
					continue
				}
				out = append(out, cand)
				listClaimed = append(listClaimed, span)
			}
		}
	}
	return out, nil
}

func (m *HeuristicMatcher) normalize(list heuristics.ListName, term heuristics.Term, surface string) entity.Normalized {
	canonical := term.Canonical
	if canonical == "" {
		canonical = surface
	}
	return entity.Normalized{"canonical": canonical}
}

func (m *HeuristicMatcher) confidence(list heuristics.ListName, term heuristics.Term) float64 {
	switch list {
	case heuristics.ListCompanyAlias:
		return m.conf.CompanyAlias
	case heuristics.ListCountry:
		return m.conf.Country
	case heuristics.ListTechTerm:
		return m.conf.Technology
	case heuristics.ListIndustry:
		return m.conf.TaxonomyIndustry
	case heuristics.ListService:
		return m.conf.TaxonomyService
	case heuristics.ListProduct:
		if term.IsAlias {
			return m.conf.ProductAlias
		}
		return m.conf.Product
	case heuristics.ListPartnership:
		return m.conf.Partnership
	case heuristics.ListBusinessTitle:
		return m.conf.BusinessTitle
	case heuristics.ListSkill:
		return m.conf.Skill
	case heuristics.ListTimeRange:
		return m.conf.TimeRange
	case heuristics.ListTemporalDescriptor:
		return m.conf.TemporalDescriptor
	default:
		return 0
	}
}

func listEntityType(name heuristics.ListName) (entity.Type, bool) {
	switch name {
	case heuristics.ListCompanyAlias:
		return entity.TypeCompany, true
	case heuristics.ListCountry:
		return entity.TypeLocation, true
	case heuristics.ListTechTerm:
		return entity.TypeTechnology, true
	case heuristics.ListIndustry:
		return entity.TypeIndustry, true
	case heuristics.ListService:
		return entity.TypeService, true
	case heuristics.ListProduct:
		return entity.TypeProduct, true
	case heuristics.ListPartnership:
		return entity.TypeRelationshipContext, true
	case heuristics.ListBusinessTitle:
		return entity.TypeBusinessTitle, true
	case heuristics.ListSkill:
		return entity.TypeSkill, true
	case heuristics.ListTimeRange:
		return entity.TypeTimeRange, true
	case heuristics.ListTemporalDescriptor:
		return entity.TypeTemporalContext, true
	default:
		return "", false
	}
}
