package llm

import (
	"context"
	"strings"
)

// MockProvider is a deterministic model backend for development and tests.
// It inspects the prompt to decide which stage is asking and answers with a
// plausible, schema-valid payload wrapped in a markdown fence plus
// surrounding prose, the same shape real model output arrives in.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Name() string {
	return "mock"
}

func (p *MockProvider) IsAvailable() bool {
	return true
}

func (p *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return &CompletionResponse{
		Content:      p.generateResponse(req.Prompt),
		FinishReason: "stop",
	}, nil
}

func (p *MockProvider) generateResponse(prompt string) string {
	lower := strings.ToLower(prompt)

	switch {
	case strings.Contains(lower, "root cause analysis"):
		return "Here is my diagnostic report:\n\n```json\n" + mockDiagnosticReport + "\n```\n"
	case strings.Contains(lower, "enrich"):
		return "I searched the knowledge base and found the following:\n\n```json\n" + mockEnhancedContext + "\n```\n"
	default:
		return "```json\n" + mockPrimaryContext + "\n```"
	}
}

const mockPrimaryContext = `{
  "primary_context_package": {
    "alert_metadata": {
      "alert_name": "HighCPUUsage",
      "severity": "critical",
      "firing_condition": "cpu_usage > 90% for 5m",
      "trigger_time": "2025-01-15T10:30:00Z"
    },
    "affected_components": {
      "service": "api-server",
      "namespace": "production",
      "pod": "api-server-7d9f8b6c5-x2x4q",
      "node": "node-3"
    },
    "evidence_collected": {
      "metrics": [{"metric": "cpu_usage", "value": 94.2}],
      "logs": [{"level": "error", "message": "request queue saturated"}],
      "events": [{"reason": "BackOff", "message": "Back-off restarting failed container"}]
    },
    "preliminary_analysis": {
      "observations": ["CPU pinned above 90% since 10:25", "Request latency climbing"],
      "hypotheses": ["Runaway request loop", "Undersized CPU limits"],
      "missing_information": ["Recent deployment diff"]
    }
  }
}`

const mockEnhancedContext = `{
  "enhanced_context_package": {
    "primary_context_reference": ` + mockPrimaryContextInner + `,
    "retrieved_knowledge": [
      {"source_id": "runbook-cpu-01", "excerpt": "Sustained CPU above 90% usually follows a config rollout without limit review.", "relevance": 0.92}
    ],
    "knowledge_summary": "One runbook matches this failure signature.",
    "contextual_enrichment": {
      "failure_patterns": ["cpu-saturation-after-rollout"],
      "possible_causes": ["Missing CPU limit on new replica set"],
      "related_incidents": ["INC-2091"],
      "known_remediation_actions": ["Scale out the deployment", "Restore previous CPU limits"]
    }
  }
}`

const mockPrimaryContextInner = `{
      "alert_metadata": {
        "alert_name": "HighCPUUsage",
        "severity": "critical",
        "firing_condition": "cpu_usage > 90% for 5m",
        "trigger_time": "2025-01-15T10:30:00Z"
      },
      "affected_components": {"service": "api-server", "namespace": "production"},
      "evidence_collected": {"metrics": [], "logs": [], "events": []},
      "preliminary_analysis": {"observations": [], "hypotheses": [], "missing_information": []}
    }`

const mockDiagnosticReport = `{
  "incident_diagnostic_report": {
    "root_cause": "CPU limits were dropped during the last rollout, letting a hot request path saturate the node.",
    "reasoning_steps": [
      "CPU saturation started within minutes of the rollout",
      "The new replica set manifest carries no CPU limit",
      "Runbook runbook-cpu-01 documents this exact failure signature"
    ],
    "supporting_evidence": [
      "cpu_usage 94.2% on api-server pods",
      "BackOff events on the affected node"
    ],
    "confidence_score": 0.85,
    "recommended_remediation": {
      "short_term_actions": ["Scale the deployment to 5 replicas", "Reapply the previous CPU limits"],
      "long_term_actions": ["Add limit linting to the deploy pipeline"]
    }
  }
}`
