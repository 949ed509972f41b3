package models

import (
	"time"
)

// IncidentStatus is the incident lifecycle state machine. Transitions are
// one-directional; Failed is reachable from any in-progress state.
type IncidentStatus string

const (
	StatusPending          IncidentStatus = "pending"
	StatusRunningStageA    IncidentStatus = "running_stageA"
	StatusContextCollected IncidentStatus = "context_collected"
	StatusRunningStageB    IncidentStatus = "running_stageB"
	StatusContextEnriched  IncidentStatus = "context_enriched"
	StatusRunningStageC    IncidentStatus = "running_stageC"
	StatusCompleted        IncidentStatus = "completed"
	StatusFailed           IncidentStatus = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s IncidentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Known reports whether s is one of the defined lifecycle states.
func (s IncidentStatus) Known() bool {
	switch s {
	case StatusPending, StatusRunningStageA, StatusContextCollected,
		StatusRunningStageB, StatusContextEnriched, StatusRunningStageC,
		StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Incident is the root record tracking one alert's analysis. The store owns
// the canonical copy; callers only ever see snapshots.
type Incident struct {
	IncidentID       string            `bson:"_id" json:"incident_id"`
	Alert            Alert             `bson:"alert" json:"alert"`
	PrimaryContext   *PrimaryContext   `bson:"primary_context,omitempty" json:"primary_context,omitempty"`
	EnhancedContext  *EnhancedContext  `bson:"enhanced_context,omitempty" json:"enhanced_context,omitempty"`
	DiagnosticReport *DiagnosticReport `bson:"diagnostic_report,omitempty" json:"diagnostic_report,omitempty"`
	Status           IncidentStatus    `bson:"status" json:"status"`
	CreatedAt        time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `bson:"updated_at" json:"updated_at"`

	// Denormalized for filtering without unpacking the blobs.
	AlertName       string   `bson:"alert_name" json:"-"`
	Severity        string   `bson:"severity" json:"-"`
	Namespace       string   `bson:"namespace,omitempty" json:"-"`
	Service         string   `bson:"service,omitempty" json:"-"`
	RootCause       string   `bson:"root_cause,omitempty" json:"-"`
	ConfidenceScore *float64 `bson:"confidence_score,omitempty" json:"-"`
}

// Denormalize refreshes the derived query fields from the owned blobs.
func (i *Incident) Denormalize() {
	i.AlertName = i.Alert.AlertName
	i.Severity = i.Alert.Severity
	i.Namespace = i.Alert.Namespace()
	i.Service = i.Alert.Service()
	if i.DiagnosticReport != nil {
		i.RootCause = i.DiagnosticReport.RootCause
		score := i.DiagnosticReport.ConfidenceScore
		i.ConfidenceScore = &score
	}
}

// Clone returns a deep copy decoupled from the store's internal record.
func (i *Incident) Clone() *Incident {
	out := *i
	out.Alert = i.Alert.Clone()
	if i.PrimaryContext != nil {
		pc := i.PrimaryContext.Clone()
		out.PrimaryContext = &pc
	}
	if i.EnhancedContext != nil {
		ec := i.EnhancedContext.Clone()
		out.EnhancedContext = &ec
	}
	if i.DiagnosticReport != nil {
		dr := i.DiagnosticReport.Clone()
		out.DiagnosticReport = &dr
	}
	if i.ConfidenceScore != nil {
		score := *i.ConfidenceScore
		out.ConfidenceScore = &score
	}
	return &out
}

func (p PrimaryContext) Clone() PrimaryContext {
	out := p
	out.EvidenceCollected = EvidenceCollected{
		Metrics: cloneRecords(p.EvidenceCollected.Metrics),
		Logs:    cloneRecords(p.EvidenceCollected.Logs),
		Events:  cloneRecords(p.EvidenceCollected.Events),
	}
	out.PreliminaryAnalysis = PreliminaryAnalysis{
		Observations:       cloneStrings(p.PreliminaryAnalysis.Observations),
		Hypotheses:         cloneStrings(p.PreliminaryAnalysis.Hypotheses),
		MissingInformation: cloneStrings(p.PreliminaryAnalysis.MissingInformation),
	}
	return out
}

func (e EnhancedContext) Clone() EnhancedContext {
	out := e
	out.PrimaryContextReference = e.PrimaryContextReference.Clone()
	out.RetrievedKnowledge = append([]RetrievedKnowledge(nil), e.RetrievedKnowledge...)
	out.ContextualEnrichment = ContextualEnrichment{
		FailurePatterns:         cloneStrings(e.ContextualEnrichment.FailurePatterns),
		PossibleCauses:          cloneStrings(e.ContextualEnrichment.PossibleCauses),
		RelatedIncidents:        cloneStrings(e.ContextualEnrichment.RelatedIncidents),
		KnownRemediationActions: cloneStrings(e.ContextualEnrichment.KnownRemediationActions),
	}
	return out
}

func (d DiagnosticReport) Clone() DiagnosticReport {
	out := d
	out.ReasoningSteps = cloneStrings(d.ReasoningSteps)
	out.SupportingEvidence = cloneStrings(d.SupportingEvidence)
	out.RecommendedRemediation = Remediation{
		ShortTermActions: cloneStrings(d.RecommendedRemediation.ShortTermActions),
		LongTermActions:  cloneStrings(d.RecommendedRemediation.LongTermActions),
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneRecords(in []map[string]any) []map[string]any {
	if in == nil {
		return nil
	}
	out := make([]map[string]any, len(in))
	for idx, rec := range in {
		cp := make(map[string]any, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		out[idx] = cp
	}
	return out
}
