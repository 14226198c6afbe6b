package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope_Stamps(t *testing.T) {
	payload := DocumentFailedPayload{DocumentID: "doc-1", Reason: "empty"}

	env, err := NewEnvelope("document.failed", payload)
	require.NoError(t, err)

	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "document.failed", env.EventType)
	assert.Equal(t, "docintel", env.Source)
	assert.Equal(t, schemaVersion, env.SchemaVersion)
	assert.WithinDuration(t, time.Now().UTC(), env.Timestamp, time.Minute)

	var decoded DocumentFailedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &decoded))
	assert.Equal(t, "doc-1", decoded.DocumentID)
}

func TestNewEnvelope_UniqueEventIDs(t *testing.T) {
	a, err := NewEnvelope("x", map[string]string{})
	require.NoError(t, err)
	b, err := NewEnvelope("x", map[string]string{})
	require.NoError(t, err)
	assert.NotEqual(t, a.EventID, b.EventID)
}

func TestDocumentIngestPayload_Input(t *testing.T) {
	p := DocumentIngestPayload{
		WorkflowID: "batch-1",
		ID:         "ext-42",
		URL:        "https://example.com/report",
		Title:      "Q2 Report",
		Language:   "en",
		Text:       "Revenue grew by 17%.",
		Metadata:   map[string]interface{}{"source": "crawler"},
	}

	in := p.Input()
	assert.Equal(t, "ext-42", in.ID)
	assert.Equal(t, "https://example.com/report", in.URL)
	assert.Equal(t, "Q2 Report", in.Title)
	assert.Equal(t, "Revenue grew by 17%.", in.Text)
	assert.Equal(t, "crawler", in.Metadata["source"])
}
