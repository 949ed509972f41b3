package pipeline

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opssage/opssage/internal/models"
)

const validPrimaryContextJSON = `{
  "primary_context_package": {
    "alert_metadata": {
      "alert_name": "HighCPUUsage",
      "severity": "critical",
      "firing_condition": "cpu_usage > 90% for 5m",
      "trigger_time": "2025-01-15T10:30:00Z"
    },
    "affected_components": {"service": "api-server", "namespace": "production"},
    "evidence_collected": {
      "metrics": [{"metric": "cpu_usage", "value": 94.2}],
      "logs": [],
      "events": []
    },
    "preliminary_analysis": {
      "observations": ["CPU pinned above 90%"],
      "hypotheses": ["Runaway request loop"],
      "missing_information": []
    }
  }
}`

func validDiagnosticReportJSON(confidence float64) string {
	return fmt.Sprintf(`{
  "incident_diagnostic_report": {
    "root_cause": "CPU limits dropped during rollout",
    "reasoning_steps": ["Saturation started right after the rollout"],
    "supporting_evidence": ["cpu_usage 94.2%%"],
    "confidence_score": %v,
    "recommended_remediation": {
      "short_term_actions": ["Scale out"],
      "long_term_actions": ["Add limit linting"]
    }
  }
}`, confidence)
}

func TestValidatePrimaryContext(t *testing.T) {
	pc, err := ValidatePrimaryContext(json.RawMessage(validPrimaryContextJSON))
	require.NoError(t, err)
	assert.Equal(t, "HighCPUUsage", pc.AlertMetadata.AlertName)
	assert.Equal(t, "api-server", pc.AffectedComponents.Service)
	assert.Len(t, pc.EvidenceCollected.Metrics, 1)
}

func TestValidatePrimaryContextMissingEnvelopeKey(t *testing.T) {
	_, err := ValidatePrimaryContext(json.RawMessage(`{"something_else": {}}`))
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "stageA", valErr.Stage)
	assert.NotEmpty(t, valErr.Violations)
}

func TestValidatePrimaryContextMissingAlertMetadataField(t *testing.T) {
	payload := `{
	  "primary_context_package": {
	    "alert_metadata": {
	      "alert_name": "HighCPUUsage",
	      "severity": "critical",
	      "firing_condition": "cpu_usage > 90%"
	    },
	    "affected_components": {},
	    "evidence_collected": {"metrics": [], "logs": [], "events": []},
	    "preliminary_analysis": {"observations": [], "hypotheses": [], "missing_information": []}
	  }
	}`
	_, err := ValidatePrimaryContext(json.RawMessage(payload))
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Len(t, valErr.Violations, 1)
	assert.Contains(t, valErr.Violations[0], "trigger_time")
}

func TestValidatePrimaryContextWrongType(t *testing.T) {
	payload := `{"primary_context_package": {"alert_metadata": "not an object"}}`
	_, err := ValidatePrimaryContext(json.RawMessage(payload))
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Violations[0], "wrong type")
}

func TestValidateDiagnosticReportConfidenceBoundaries(t *testing.T) {
	for _, confidence := range []float64{0, 0.5, 1} {
		report, err := ValidateDiagnosticReport(json.RawMessage(validDiagnosticReportJSON(confidence)))
		require.NoError(t, err, "confidence %v should be accepted", confidence)
		assert.Equal(t, confidence, report.ConfidenceScore)
	}

	for _, confidence := range []float64{-0.0001, 1.0001, 2} {
		_, err := ValidateDiagnosticReport(json.RawMessage(validDiagnosticReportJSON(confidence)))
		var valErr *ValidationError
		require.ErrorAs(t, err, &valErr, "confidence %v should be rejected", confidence)
		assert.Contains(t, valErr.Violations[0], "confidence_score")
	}
}

func TestValidateDiagnosticReportEmptyReasoningSteps(t *testing.T) {
	payload := `{
	  "incident_diagnostic_report": {
	    "root_cause": "something",
	    "reasoning_steps": [],
	    "supporting_evidence": [],
	    "confidence_score": 0.5,
	    "recommended_remediation": {"short_term_actions": [], "long_term_actions": []}
	  }
	}`
	_, err := ValidateDiagnosticReport(json.RawMessage(payload))
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Violations[0], "reasoning_steps")
}

func TestValidateDiagnosticReportCollectsAllViolations(t *testing.T) {
	payload := `{
	  "incident_diagnostic_report": {
	    "reasoning_steps": [],
	    "supporting_evidence": [],
	    "confidence_score": 1.5,
	    "recommended_remediation": {"short_term_actions": [], "long_term_actions": []}
	  }
	}`
	_, err := ValidateDiagnosticReport(json.RawMessage(payload))
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Len(t, valErr.Violations, 3)
}

func TestValidateEnhancedContextRelevanceRange(t *testing.T) {
	payload := fmt.Sprintf(`{
	  "enhanced_context_package": {
	    "primary_context_reference": %s,
	    "retrieved_knowledge": [
	      {"source_id": "kb-001", "excerpt": "known pattern", "relevance": 1.2}
	    ],
	    "knowledge_summary": "one hit",
	    "contextual_enrichment": {
	      "failure_patterns": [], "possible_causes": [],
	      "related_incidents": [], "known_remediation_actions": []
	    }
	  }
	}`, innerPrimaryContext(t))
	_, err := ValidateEnhancedContext(json.RawMessage(payload))
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Violations[0], "relevance")
}

func TestValidateRoundTrip(t *testing.T) {
	// A validated value re-marshalled into its envelope validates again.
	report, err := ValidateDiagnosticReport(json.RawMessage(validDiagnosticReportJSON(0.85)))
	require.NoError(t, err)

	encoded, err := json.Marshal(models.DiagnosticReportEnvelope{IncidentDiagnosticReport: report})
	require.NoError(t, err)

	again, err := ValidateDiagnosticReport(encoded)
	require.NoError(t, err)
	assert.Equal(t, report, again)
}

func innerPrimaryContext(t *testing.T) string {
	t.Helper()
	var envelope struct {
		Inner json.RawMessage `json:"primary_context_package"`
	}
	require.NoError(t, json.Unmarshal([]byte(validPrimaryContextJSON), &envelope))
	return string(envelope.Inner)
}
