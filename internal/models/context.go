package models

// Message contracts between the pipeline stages. Each stage emits one of the
// packages below as strict JSON; the wrapper types mirror the top-level key
// the agents are instructed to produce.

// AlertMetadata is the alert subset carried into the primary context.
type AlertMetadata struct {
	AlertName       string `bson:"alert_name" json:"alert_name" validate:"required"`
	Severity        string `bson:"severity" json:"severity" validate:"required"`
	FiringCondition string `bson:"firing_condition" json:"firing_condition" validate:"required"`
	TriggerTime     string `bson:"trigger_time" json:"trigger_time" validate:"required"`
}

// AffectedComponents identifies where the incident is happening. All fields
// optional; the agent leaves out what it cannot determine.
type AffectedComponents struct {
	Service   string `bson:"service,omitempty" json:"service,omitempty"`
	Namespace string `bson:"namespace,omitempty" json:"namespace,omitempty"`
	Pod       string `bson:"pod,omitempty" json:"pod,omitempty"`
	Node      string `bson:"node,omitempty" json:"node,omitempty"`
}

// EvidenceCollected holds the raw telemetry records gathered during the
// context stage. Records are opaque string-keyed maps.
type EvidenceCollected struct {
	Metrics []map[string]any `bson:"metrics" json:"metrics"`
	Logs    []map[string]any `bson:"logs" json:"logs"`
	Events  []map[string]any `bson:"events" json:"events"`
}

type PreliminaryAnalysis struct {
	Observations       []string `bson:"observations" json:"observations"`
	Hypotheses         []string `bson:"hypotheses" json:"hypotheses"`
	MissingInformation []string `bson:"missing_information" json:"missing_information"`
}

// PrimaryContext is the Stage A output: what is happening at alert time.
type PrimaryContext struct {
	AlertMetadata       AlertMetadata       `bson:"alert_metadata" json:"alert_metadata" validate:"required"`
	AffectedComponents  AffectedComponents  `bson:"affected_components" json:"affected_components"`
	EvidenceCollected   EvidenceCollected   `bson:"evidence_collected" json:"evidence_collected"`
	PreliminaryAnalysis PreliminaryAnalysis `bson:"preliminary_analysis" json:"preliminary_analysis"`
}

// RetrievedKnowledge is one knowledge-base hit attached to the enhanced
// context. Relevance is constrained to [0, 1].
type RetrievedKnowledge struct {
	SourceID  string  `bson:"source_id" json:"source_id" validate:"required"`
	Excerpt   string  `bson:"excerpt" json:"excerpt" validate:"required"`
	Relevance float64 `bson:"relevance" json:"relevance" validate:"gte=0,lte=1"`
}

type ContextualEnrichment struct {
	FailurePatterns         []string `bson:"failure_patterns" json:"failure_patterns"`
	PossibleCauses          []string `bson:"possible_causes" json:"possible_causes"`
	RelatedIncidents        []string `bson:"related_incidents" json:"related_incidents"`
	KnownRemediationActions []string `bson:"known_remediation_actions" json:"known_remediation_actions"`
}

// EnhancedContext is the Stage B output. It embeds a copy of the primary
// context it enriches rather than referencing it, so the two records never
// share mutable state.
type EnhancedContext struct {
	PrimaryContextReference PrimaryContext       `bson:"primary_context_reference" json:"primary_context_reference" validate:"required"`
	RetrievedKnowledge      []RetrievedKnowledge `bson:"retrieved_knowledge" json:"retrieved_knowledge" validate:"dive"`
	KnowledgeSummary        string               `bson:"knowledge_summary" json:"knowledge_summary"`
	ContextualEnrichment    ContextualEnrichment `bson:"contextual_enrichment" json:"contextual_enrichment"`
}

type Remediation struct {
	ShortTermActions []string `bson:"short_term_actions" json:"short_term_actions"`
	LongTermActions  []string `bson:"long_term_actions" json:"long_term_actions"`
}

// DiagnosticReport is the Stage C output and the terminal artifact returned
// to the caller. At least one reasoning step is required for the report to be
// considered valid.
type DiagnosticReport struct {
	RootCause              string      `bson:"root_cause" json:"root_cause" validate:"required"`
	ReasoningSteps         []string    `bson:"reasoning_steps" json:"reasoning_steps" validate:"min=1,dive,required"`
	SupportingEvidence     []string    `bson:"supporting_evidence" json:"supporting_evidence"`
	ConfidenceScore        float64     `bson:"confidence_score" json:"confidence_score" validate:"gte=0,lte=1"`
	RecommendedRemediation Remediation `bson:"recommended_remediation" json:"recommended_remediation"`
}

// Stage output envelopes. The agents are prompted to emit exactly one
// top-level key; validation happens on the envelope so a missing key is
// reported as a violation rather than silently producing a zero value.

type PrimaryContextEnvelope struct {
	PrimaryContextPackage PrimaryContext `json:"primary_context_package" validate:"required"`
}

type EnhancedContextEnvelope struct {
	EnhancedContextPackage EnhancedContext `json:"enhanced_context_package" validate:"required"`
}

type DiagnosticReportEnvelope struct {
	IncidentDiagnosticReport DiagnosticReport `json:"incident_diagnostic_report" validate:"required"`
}
