package extraction

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bpointel/docintel/internal/config"
	"github.com/bpointel/docintel/internal/domain/document"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
)

func testConfidence() config.ConfidenceConfig {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg.Extraction.Confidence
}

func testChunk(t *testing.T, seq int, text string) *document.Chunk {
	t.Helper()
	chunk, err := document.NewChunk(uuid.New(), seq, text, nil)
	require.NoError(t, err)
	return chunk
}

func nopLogger() logging.Logger { return logging.NewNopLogger() }
