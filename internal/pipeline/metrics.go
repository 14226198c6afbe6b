package pipeline

import (
	"github.com/bpointel/docintel/internal/domain/entity"
)

// Metrics is the observability hook the driver reports into; the prometheus
// implementation lives in infrastructure/monitoring/prometheus.
type Metrics interface {
	CandidatesObserved(tier entity.Tier, count int)
	TierFailure(tier entity.Tier)
	LLMBudgetRejected()
	DocumentProcessed()
	EntitiesPersisted(count int)
	RelationshipsPersisted(count int)
}

type nopMetrics struct{}

func (nopMetrics) CandidatesObserved(entity.Tier, int) {}
func (nopMetrics) TierFailure(entity.Tier)             {}
func (nopMetrics) LLMBudgetRejected()                  {}
func (nopMetrics) DocumentProcessed()                  {}
func (nopMetrics) EntitiesPersisted(int)               {}
func (nopMetrics) RelationshipsPersisted(int)          {}

// NewNopMetrics returns a Metrics that records nothing.
func NewNopMetrics() Metrics { return nopMetrics{} }
