package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpointel/docintel/internal/pipeline"
)

func TestCheckpointSave_UpsertsOnWorkflowPhase(t *testing.T) {
	db := &fakeDB{}
	repo := NewCheckpointRepository(db, testLogger())

	cp := pipeline.Checkpoint{
		WorkflowID: "batch-2026-08",
		RunID:      "run-7",
		Phase:      pipeline.PhaseExtraction,
		Offset:     50,
		State:      map[string]interface{}{"heuristics_version": "2026-08-01"},
		UpdatedAt:  time.Now().UTC(),
	}

	require.NoError(t, repo.Save(context.Background(), cp))

	require.Len(t, db.execSQL, 1)
	assert.Contains(t, db.execSQL[0], "ON CONFLICT (workflow_id, phase)")
	assert.Contains(t, db.execArgs[0], "batch-2026-08")
	assert.Contains(t, db.execArgs[0], 50)
}

func TestCheckpointSave_StampsUpdatedAtWhenZero(t *testing.T) {
	db := &fakeDB{}
	repo := NewCheckpointRepository(db, testLogger())

	cp := pipeline.Checkpoint{WorkflowID: "w", Phase: pipeline.PhaseExtraction}
	require.NoError(t, repo.Save(context.Background(), cp))

	args := db.execArgs[0]
	ts, ok := args[len(args)-1].(time.Time)
	require.True(t, ok)
	assert.False(t, ts.IsZero())
}

func TestCheckpointLoad_Missing(t *testing.T) {
	db := &fakeDB{} // QueryRow yields pgx.ErrNoRows by default
	repo := NewCheckpointRepository(db, testLogger())

	_, found, err := repo.Load(context.Background(), "batch-2026-08", pipeline.PhaseExtraction)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCheckpointLoad_Found(t *testing.T) {
	db := &fakeDB{rowScan: func(dest ...any) error {
		*(dest[0].(*string)) = "batch-2026-08"
		*(dest[1].(*string)) = "run-7"
		*(dest[2].(*string)) = pipeline.PhaseExtraction
		*(dest[3].(*int)) = 75
		*(dest[4].(*[]byte)) = []byte(`{"note":"mid-batch"}`)
		*(dest[5].(*time.Time)) = time.Now().UTC()
		return nil
	}}
	repo := NewCheckpointRepository(db, testLogger())

	cp, found, err := repo.Load(context.Background(), "batch-2026-08", pipeline.PhaseExtraction)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 75, cp.Offset)
	assert.Equal(t, "run-7", cp.RunID)
	assert.Equal(t, "mid-batch", cp.State["note"])
}
