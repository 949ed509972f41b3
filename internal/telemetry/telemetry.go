package telemetry

import (
	"context"
	"time"
)

// Record is one opaque telemetry datum (a metric sample, log line, or
// cluster event).
type Record = map[string]any

// MetricsAdapter queries the monitoring system.
type MetricsAdapter interface {
	QueryMetrics(ctx context.Context, metricName string, labels map[string]string, start, end time.Time) ([]Record, error)
}

// LogAdapter searches the logging system.
type LogAdapter interface {
	SearchLogs(ctx context.Context, query, namespace, pod string, start, end time.Time, limit int) ([]Record, error)
}

// EventAdapter looks up cluster events.
type EventAdapter interface {
	LookupEvents(ctx context.Context, namespace, resourceType, resourceName string, start, end time.Time) ([]Record, error)
}

// Adapters bundles the telemetry sources consulted while gathering Stage A
// evidence.
type Adapters struct {
	Metrics MetricsAdapter
	Logs    LogAdapter
	Events  EventAdapter
}

// MockAdapters returns canned-data implementations for environments without
// live monitoring backends.
func MockAdapters() Adapters {
	return Adapters{
		Metrics: mockMetrics{},
		Logs:    mockLogs{},
		Events:  mockEvents{},
	}
}

type mockMetrics struct{}

func (mockMetrics) QueryMetrics(ctx context.Context, metricName string, labels map[string]string, start, end time.Time) ([]Record, error) {
	return []Record{
		{
			"timestamp": start.Format(time.RFC3339),
			"metric":    metricName,
			"labels":    labels,
			"value":     85.5,
		},
		{
			"timestamp": start.Add(time.Minute).Format(time.RFC3339),
			"metric":    metricName,
			"labels":    labels,
			"value":     92.3,
		},
	}, nil
}

type mockLogs struct{}

func (mockLogs) SearchLogs(ctx context.Context, query, namespace, pod string, start, end time.Time, limit int) ([]Record, error) {
	if pod == "" {
		pod = "test-pod"
	}
	return []Record{
		{
			"timestamp": start.Format(time.RFC3339),
			"namespace": namespace,
			"pod":       pod,
			"message":   "Sample log entry matching query: " + query,
			"level":     "ERROR",
		},
		{
			"timestamp": start.Add(30 * time.Second).Format(time.RFC3339),
			"namespace": namespace,
			"pod":       pod,
			"message":   "Connection timeout occurred",
			"level":     "ERROR",
		},
	}, nil
}

type mockEvents struct{}

func (mockEvents) LookupEvents(ctx context.Context, namespace, resourceType, resourceName string, start, end time.Time) ([]Record, error) {
	if resourceType == "" {
		resourceType = "Pod"
	}
	if resourceName == "" {
		resourceName = "test-pod"
	}
	return []Record{
		{
			"timestamp": start.Format(time.RFC3339),
			"namespace": namespace,
			"type":      "Warning",
			"reason":    "BackOff",
			"message":   "Back-off restarting failed container",
			"involved_object": map[string]any{
				"kind": resourceType,
				"name": resourceName,
			},
		},
	}, nil
}
