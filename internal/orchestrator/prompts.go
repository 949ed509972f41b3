package orchestrator

import (
	"fmt"
)

// Each stage gets a self-contained prompt: role instructions, the exact
// output schema, and the serialized inputs. No conversational history crosses
// stages; every piece of state a stage needs is embedded here.

const contextStageInstructions = `You are an alert ingestion and context agent for an incident-response system.
Ingest the alert below, interpret its meaning, and construct the Primary Context Package
describing what is happening in the system at the time of the alert.

- Extract key entities: affected service, namespace, node, pod, severity, alert rule, firing condition.
- Integrate the supplied telemetry evidence into a coherent narrative.
- Identify temporal correlations, anomalies, and behaviors relevant to the alert.
- Record what information is still missing.

Output strictly the following JSON structure and nothing else:

{
  "primary_context_package": {
    "alert_metadata": {
      "alert_name": "string",
      "severity": "string",
      "firing_condition": "string",
      "trigger_time": "string"
    },
    "affected_components": {
      "service": "string",
      "namespace": "string",
      "pod": "string",
      "node": "string"
    },
    "evidence_collected": {
      "metrics": [{"key": "value"}],
      "logs": [{"key": "value"}],
      "events": [{"key": "value"}]
    },
    "preliminary_analysis": {
      "observations": ["string"],
      "hypotheses": ["string"],
      "missing_information": ["string"]
    }
  }
}

metrics, logs, and events must be arrays of objects. observations, hypotheses,
and missing_information must be arrays of plain strings. The response must be
valid JSON matching this exact structure.`

const knowledgeStageInstructions = `You are a knowledge retrieval and enrichment agent for an incident-response system.
Enrich the Primary Context Package below with the supplied knowledge-base results.
Focus on actionable knowledge that will help diagnose the incident: known failure
patterns, possible causes, similar past incidents, and remediation strategies.

Output strictly the following JSON structure and nothing else:

{
  "enhanced_context_package": {
    "primary_context_reference": { ...the primary context package, copied verbatim... },
    "retrieved_knowledge": [
      {"source_id": "string", "excerpt": "string", "relevance": 0.0}
    ],
    "knowledge_summary": "string",
    "contextual_enrichment": {
      "failure_patterns": ["string"],
      "possible_causes": ["string"],
      "related_incidents": ["string"],
      "known_remediation_actions": ["string"]
    }
  }
}

relevance must be a number between 0.0 and 1.0. The response must be valid JSON
matching this exact structure.`

const diagnosisStageInstructions = `You are a root cause analysis and remediation agent for an incident-response system.
Perform root cause analysis over the two context packages below using structured
reasoning, and produce specific, actionable remediation recommendations.

Output strictly the following JSON structure and nothing else:

{
  "incident_diagnostic_report": {
    "root_cause": "string",
    "reasoning_steps": ["string"],
    "supporting_evidence": ["string"],
    "confidence_score": 0.0,
    "recommended_remediation": {
      "short_term_actions": ["string"],
      "long_term_actions": ["string"]
    }
  }
}

reasoning_steps must contain at least one step. confidence_score must be a number
between 0.0 and 1.0. The response must be valid JSON matching this exact structure.`

func contextStagePrompt(alertJSON, evidenceJSON string) string {
	return fmt.Sprintf(`%s

Analyze the following alert and build a comprehensive Primary Context Package.

Alert:
%s

Telemetry evidence gathered for this alert:
%s`, contextStageInstructions, alertJSON, evidenceJSON)
}

func knowledgeStagePrompt(primaryJSON, knowledgeJSON, neighborsJSON string) string {
	return fmt.Sprintf(`%s

Enrich the following Primary Context Package with relevant knowledge from the knowledge base.

Primary Context Package:
%s

Knowledge-base search results:
%s

Topology neighbors of the affected component:
%s`, knowledgeStageInstructions, primaryJSON, knowledgeJSON, neighborsJSON)
}

func diagnosisStagePrompt(primaryJSON, enhancedJSON string) string {
	return fmt.Sprintf(`%s

Perform root cause analysis and generate remediation recommendations.

Primary Context Package:
%s

Enhanced Context Package:
%s`, diagnosisStageInstructions, primaryJSON, enhancedJSON)
}
