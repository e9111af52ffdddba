package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, ERROR, ParseLevel(" error "))
	assert.Equal(t, FATAL, ParseLevel("FATAL"))
	assert.Equal(t, INFO, ParseLevel(""))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WARN, &buf, false)

	l.Log(INFO, "ignored", nil)
	assert.Empty(t, buf.String())

	l.Log(WARN, "kept", nil)
	assert.Contains(t, buf.String(), "kept")
}

func TestStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(DEBUG, &buf, true)

	l.LogError(ERROR, "agent request failed", errors.New("connection refused"), map[string]interface{}{
		"node_id": 7,
	})

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "agent request failed", entry.Message)
	assert.Equal(t, "connection refused", entry.Error)
	assert.Equal(t, float64(7), entry.Fields["node_id"])
	assert.NotEmpty(t, entry.Timestamp)
}
