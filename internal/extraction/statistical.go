package extraction

import (
	"context"

	"github.com/bpointel/docintel/internal/config"
	"github.com/bpointel/docintel/internal/domain/entity"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/pkg/errors"
)

// TagSpan is one prediction from the sequence tagger: character offsets plus
// the tagger's coarse label.  The tagger emits no confidence of its own.
type TagSpan struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
}

// Tagger is the black-box sequence tagging capability.
type Tagger interface {
	Tag(ctx context.Context, text string) ([]TagSpan, error)
}

// coarse tagger labels mapped onto the entity type set.  Labels absent from
// the map carry no usable type and are dropped.
var taggerTypeMap = map[string]entity.Type{
	"PERSON":  entity.TypePerson,
	"DATE":    entity.TypeDate,
	"ORG":     entity.TypeCompany,
	"COMPANY": entity.TypeCompany,
	"GPE":     entity.TypeLocation,
	"LOC":     entity.TypeLocation,
	"PRODUCT": entity.TypeProduct,
	"MONEY":   entity.TypeMoney,
	"PERCENT": entity.TypePercent,
}

// StatisticalAdapter is the third tier.  It performs no matching itself: it
// maps the tagger's coarse labels onto the entity type set and assigns the
// tier-fixed confidence per mapped type.
type StatisticalAdapter struct {
	tagger Tagger
	conf   config.ConfidenceConfig
	logger logging.Logger
}

func NewStatisticalAdapter(tagger Tagger, conf config.ConfidenceConfig, logger logging.Logger) *StatisticalAdapter {
	return &StatisticalAdapter{
		tagger: tagger,
		conf:   conf,
		logger: logger.Named("extraction.statistical"),
	}
}

func (a *StatisticalAdapter) Tier() entity.Tier { return entity.TierStatistical }

func (a *StatisticalAdapter) Generate(ctx context.Context, req Request) ([]entity.Candidate, error) {
	tags, err := a.tagger.Tag(ctx, req.Chunk.Text)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTaggerUnavailable, "sequence tagger call failed")
	}

	out := make([]entity.Candidate, 0, len(tags))
	for _, tag := range tags {
		typ, ok := taggerTypeMap[tag.Label]
		if !ok {
			a.logger.Debug("dropping unmapped tagger label", logging.String("label", tag.Label))
			continue
		}
		span := entity.Span{ChunkSeq: req.Chunk.Seq, Start: tag.Start, End: tag.End}
		cand, err := entity.NewCandidate(span, req.Chunk.Text, typ,
			entity.Normalized{"canonical": safeSlice(req.Chunk.Text, tag.Start, tag.End)},
			a.typeConfidence(typ), entity.TierStatistical)
		if err != nil {
			a.logger.Warn("dropping tagger candidate out of chunk bounds",
				logging.String("label", tag.Label),
				logging.Int("start", tag.Start),
				logging.Int("end", tag.End))
			continue
		}
		out = append(out, cand)
	}
	return out, nil
}

func (a *StatisticalAdapter) typeConfidence(typ entity.Type) float64 {
	switch typ {
	case entity.TypePerson, entity.TypeDate:
		return a.conf.TaggerPersonDate
	case entity.TypeMoney, entity.TypePercent:
		return a.conf.TaggerNumeric
	default:
		return a.conf.TaggerOther
	}
}

func safeSlice(text string, start, end int) string {
	if start < 0 || end > len(text) || start >= end {
		return ""
	}
	return text[start:end]
}
