package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpointel/docintel/internal/domain/entity"
)

func writeReferenceFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reference.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadReferenceEntries(t *testing.T) {
	path := writeReferenceFile(t, `[
		{"id": "ref-1", "canonical": "Acme Corporation", "type": "COMPANY"},
		{"canonical": "Kubernetes", "type": "TECHNOLOGY", "embedding": [0.1, 0.2]}
	]`)

	entries, err := readReferenceEntries(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "ref-1", entries[0].ID)
	assert.Equal(t, "Acme Corporation", entries[0].Canonical)
	assert.Equal(t, entity.TypeCompany, entries[0].Type)
	assert.Empty(t, entries[0].Embedding)

	// An entry without an id gets one assigned.
	assert.NotEmpty(t, entries[1].ID)
	assert.Equal(t, []float32{0.1, 0.2}, entries[1].Embedding)
}

func TestReadReferenceEntries_UnknownType(t *testing.T) {
	path := writeReferenceFile(t, `[{"canonical": "Acme", "type": "STARSHIP"}]`)

	_, err := readReferenceEntries(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestReadReferenceEntries_MissingCanonical(t *testing.T) {
	path := writeReferenceFile(t, `[{"type": "COMPANY"}]`)

	_, err := readReferenceEntries(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canonical is required")
}

func TestReadReferenceEntries_MissingFile(t *testing.T) {
	_, err := readReferenceEntries(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
