package pipeline

import (
	"time"

	"github.com/bpointel/docintel/internal/domain/entity"
)

// BatchSummary accumulates what happened across one batch run.  The per-tier
// failure and budget-skip counts exist so operators can tell throttling from
// defects: a run with many LLM budget skips is healthy back-pressure, a run
// with many tier failures is not.
type BatchSummary struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`

	Documents     int `json:"documents"`
	Chunks        int `json:"chunks"`
	Entities      int `json:"entities"`
	Relationships int `json:"relationships"`

	// FailedDocuments lists the ids of documents that could not be
	// processed at all; individual tier failures do not put a document here.
	FailedDocuments []string `json:"failed_documents,omitempty"`

	// TierFailures counts recoverable generator errors per tier.
	TierFailures map[entity.Tier]int `json:"tier_failures,omitempty"`

	// LLMInvocations counts admitted fallback calls; LLMBudgetSkips counts
	// chunks that qualified for fallback but were rejected by the budget.
	LLMInvocations int `json:"llm_invocations"`
	LLMBudgetSkips int `json:"llm_budget_skips"`

	HeuristicsVersion string    `json:"heuristics_version"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
}

// NewBatchSummary starts an empty summary.  The streaming worker uses it to
// accumulate per-message ProcessDocument results outside a batch run.
func NewBatchSummary(workflowID, runID, heuristicsVersion string) *BatchSummary {
	return newBatchSummary(workflowID, runID, heuristicsVersion)
}

func newBatchSummary(workflowID, runID, heuristicsVersion string) *BatchSummary {
	return &BatchSummary{
		WorkflowID:        workflowID,
		RunID:             runID,
		HeuristicsVersion: heuristicsVersion,
		TierFailures:      make(map[entity.Tier]int),
		StartedAt:         time.Now().UTC(),
	}
}

func (s *BatchSummary) recordTierFailure(tier entity.Tier) {
	s.TierFailures[tier]++
}
