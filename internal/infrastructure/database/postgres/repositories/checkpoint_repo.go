package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/internal/pipeline"
	"github.com/bpointel/docintel/pkg/errors"
)

// CheckpointRepository is the PostgreSQL implementation of
// pipeline.CheckpointStore.  One row per (workflow_id, phase); resuming a
// workflow reads the stored offset and skips everything before it.
type CheckpointRepository struct {
	db     querier
	logger Logger
}

// NewCheckpointRepository constructs a ready-to-use CheckpointRepository.
func NewCheckpointRepository(db querier, logger Logger) *CheckpointRepository {
	return &CheckpointRepository{db: db, logger: logger}
}

// Save persists the checkpoint, replacing any previous row for the same
// workflow and phase.
func (r *CheckpointRepository) Save(ctx context.Context, cp pipeline.Checkpoint) error {
	r.logger.Debug("CheckpointRepository.Save",
		logging.String("workflow_id", cp.WorkflowID),
		logging.String("phase", cp.Phase),
		logging.Int("offset", cp.Offset))

	stateJSON, _ := json.Marshal(cp.State)
	updatedAt := cp.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO pipeline_checkpoints (
			workflow_id, run_id, phase, resume_offset, state, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (workflow_id, phase) DO UPDATE SET
			run_id        = EXCLUDED.run_id,
			resume_offset = EXCLUDED.resume_offset,
			state         = EXCLUDED.state,
			updated_at    = EXCLUDED.updated_at`,
		cp.WorkflowID, cp.RunID, cp.Phase, cp.Offset, stateJSON, updatedAt,
	)
	if err != nil {
		r.logger.Error("CheckpointRepository.Save", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save checkpoint")
	}
	return nil
}

// Load returns the stored checkpoint for the workflow and phase, with found
// reporting whether one exists.
func (r *CheckpointRepository) Load(ctx context.Context, workflowID, phase string) (pipeline.Checkpoint, bool, error) {
	r.logger.Debug("CheckpointRepository.Load",
		logging.String("workflow_id", workflowID),
		logging.String("phase", phase))

	var (
		cp        pipeline.Checkpoint
		stateJSON []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT workflow_id, run_id, phase, resume_offset, state, updated_at
		FROM pipeline_checkpoints
		WHERE workflow_id = $1 AND phase = $2`, workflowID, phase,
	).Scan(&cp.WorkflowID, &cp.RunID, &cp.Phase, &cp.Offset, &stateJSON, &cp.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return pipeline.Checkpoint{}, false, nil
		}
		r.logger.Error("CheckpointRepository.Load", logging.Err(err))
		return pipeline.Checkpoint{}, false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load checkpoint")
	}
	if len(stateJSON) > 0 {
		_ = json.Unmarshal(stateJSON, &cp.State)
	}
	return cp, true, nil
}
