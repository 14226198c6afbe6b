package pipeline

import (
	"context"
	"time"
)

// PhaseExtraction is the only checkpointed phase this worker owns.
const PhaseExtraction = "extraction"

// Checkpoint records how far a batch run progressed.  The external scheduler
// restarts a failed run from Offset; everything before it was persisted
// through idempotent upserts, so replaying a partially-processed document is
// harmless.
type Checkpoint struct {
	WorkflowID string                 `json:"workflow_id"`
	RunID      string                 `json:"run_id"`
	Phase      string                 `json:"phase"`
	Offset     int                    `json:"offset"`
	State      map[string]interface{} `json:"state,omitempty"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// CheckpointStore persists checkpoints; the Postgres implementation keeps
// them in the pipeline_checkpoints table.
type CheckpointStore interface {
	// Save upserts the checkpoint keyed by (workflow id, phase).
	Save(ctx context.Context, cp Checkpoint) error

	// Load returns the most recent checkpoint for the workflow and phase;
	// ok is false when none exists.
	Load(ctx context.Context, workflowID, phase string) (cp Checkpoint, ok bool, err error)
}
