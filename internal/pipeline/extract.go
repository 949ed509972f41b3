package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractionReason distinguishes the ways a response can fail extraction.
type ExtractionReason string

const (
	ReasonNoObject     ExtractionReason = "no_json_object"
	ReasonUnterminated ExtractionReason = "unterminated_object"
	ReasonInvalidJSON  ExtractionReason = "invalid_json"
)

// ExtractionError reports that the agent's raw text contained no locatable,
// parsable JSON object.
type ExtractionError struct {
	Reason ExtractionReason
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("response extraction failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("response extraction failed (%s)", e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ExtractJSON pulls a single JSON object out of a model's free-text turn,
// tolerating markdown code fences and surrounding prose. Best effort: text
// with multiple objects or nested fences may yield the wrong span, which is
// acceptable given the upstream text is model-generated and usually
// well-behaved.
func ExtractJSON(response string) (json.RawMessage, error) {
	content := strings.TrimSpace(response)

	if idx := strings.Index(content, "```json"); idx != -1 {
		start := idx + len("```json")
		end := strings.Index(content[start:], "```")
		if end != -1 {
			content = strings.TrimSpace(content[start : start+end])
		}
	} else if idx := strings.Index(content, "```"); idx != -1 {
		start := idx + len("```")
		end := strings.Index(content[start:], "```")
		if end != -1 {
			content = strings.TrimSpace(content[start : start+end])
		}
	}

	if !strings.HasPrefix(content, "{") {
		start := strings.Index(content, "{")
		if start == -1 {
			return nil, &ExtractionError{Reason: ReasonNoObject}
		}
		content = content[start:]
	}

	if !strings.HasSuffix(content, "}") {
		end := strings.LastIndex(content, "}")
		if end == -1 {
			return nil, &ExtractionError{Reason: ReasonUnterminated}
		}
		content = content[:end+1]
	}

	if !json.Valid([]byte(content)) {
		// Re-parse for the position detail in the error.
		var probe any
		err := json.Unmarshal([]byte(content), &probe)
		return nil, &ExtractionError{Reason: ReasonInvalidJSON, Err: err}
	}
	return json.RawMessage(content), nil
}
