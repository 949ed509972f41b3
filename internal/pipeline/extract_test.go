package pipeline

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONBareObject(t *testing.T) {
	raw, err := ExtractJSON(`{"key": "value"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"key": "value"}`, string(raw))
}

func TestExtractJSONSurroundingProse(t *testing.T) {
	response := `Sure, here is the analysis you asked for:

{"root_cause": "disk full", "confidence_score": 0.9}

Let me know if you need anything else.`

	raw, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"root_cause": "disk full", "confidence_score": 0.9}`, string(raw))
}

func TestExtractJSONMarkdownFence(t *testing.T) {
	response := "Here you go:\n```json\n{\"a\": 1}\n```\nDone."
	raw, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, string(raw))
}

func TestExtractJSONPlainFence(t *testing.T) {
	response := "```\n{\"a\": [1, 2, 3]}\n```"
	raw, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": [1, 2, 3]}`, string(raw))
}

func TestExtractJSONUnclosedFence(t *testing.T) {
	// A fence with no closing marker falls through to brace scanning.
	response := "```json\n{\"a\": 1}"
	raw, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, string(raw))
}

func TestExtractJSONNoObject(t *testing.T) {
	_, err := ExtractJSON("I could not produce any structured output, sorry.")
	var extractErr *ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, ReasonNoObject, extractErr.Reason)
}

func TestExtractJSONUnterminatedObject(t *testing.T) {
	_, err := ExtractJSON(`{"key": "value"`)
	var extractErr *ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, ReasonUnterminated, extractErr.Reason)
}

func TestExtractJSONInvalidJSON(t *testing.T) {
	_, err := ExtractJSON(`{"key": value without quotes}`)
	var extractErr *ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, ReasonInvalidJSON, extractErr.Reason)
	assert.Error(t, errors.Unwrap(err))
}

func TestExtractJSONTrimsToBraces(t *testing.T) {
	// Prose after the closing brace is discarded along with the prose before
	// the opening one.
	raw, err := ExtractJSON(`prefix {"nested": {"deep": true}} suffix`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nested": {"deep": true}}`, string(raw))
}

func TestExtractJSONResultIsRawMessage(t *testing.T) {
	raw, err := ExtractJSON(`{"count": 3}`)
	require.NoError(t, err)

	var decoded struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 3, decoded.Count)
}
