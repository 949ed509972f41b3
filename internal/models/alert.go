package models

import (
	"time"
)

// Alert is the inbound alert that triggers an incident analysis.
// It is copied into the incident record at creation and never mutated after.
type Alert struct {
	AlertName       string            `bson:"alert_name" json:"alert_name" validate:"required"`
	Severity        string            `bson:"severity" json:"severity" validate:"required"`
	Message         string            `bson:"message" json:"message" validate:"required"`
	Labels          map[string]string `bson:"labels" json:"labels"`
	Annotations     map[string]string `bson:"annotations" json:"annotations"`
	FiringCondition string            `bson:"firing_condition" json:"firing_condition"`
	Timestamp       time.Time         `bson:"timestamp" json:"timestamp"`
}

// Normalize fills defaults the caller may omit. The timestamp defaults to
// ingestion time.
func (a *Alert) Normalize() {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	if a.Labels == nil {
		a.Labels = map[string]string{}
	}
	if a.Annotations == nil {
		a.Annotations = map[string]string{}
	}
}

// Namespace returns the namespace label, empty if unset.
func (a *Alert) Namespace() string {
	return a.Labels["namespace"]
}

// Service returns the service label, empty if unset.
func (a *Alert) Service() string {
	return a.Labels["service"]
}

func (a *Alert) Clone() Alert {
	out := *a
	out.Labels = cloneStringMap(a.Labels)
	out.Annotations = cloneStringMap(a.Annotations)
	return out
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
