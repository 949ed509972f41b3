package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opssage/opssage/internal/agent"
	"github.com/opssage/opssage/internal/models"
	"github.com/opssage/opssage/internal/notify"
	"github.com/opssage/opssage/internal/pipeline"
	"github.com/opssage/opssage/internal/rag"
	"github.com/opssage/opssage/internal/store"
	"github.com/opssage/opssage/internal/telemetry"
	"github.com/opssage/opssage/internal/topology"
)

const (
	stageContext   = "context-collection"
	stageKnowledge = "knowledge-enrichment"
	stageDiagnosis = "diagnosis"

	defaultStageTimeout  = 2 * time.Minute
	defaultKnowledgeTopK = 5

	// Evidence window around the alert trigger time.
	evidenceLookback  = 15 * time.Minute
	evidenceLookahead = 5 * time.Minute
)

// StageTimeoutError reports that a stage did not finish within its allotted
// time.
type StageTimeoutError struct {
	StageID string
	Timeout time.Duration
}

func (e *StageTimeoutError) Error() string {
	return fmt.Sprintf("stage %s timed out after %s", e.StageID, e.Timeout)
}

// Options tune the pipeline. Zero values fall back to defaults.
type Options struct {
	StageTimeout  time.Duration
	KnowledgeTopK int
}

// Orchestrator drives an alert through the three analysis stages, persisting
// the output of each stage before starting the next. Every run produces a
// durable incident record whether it succeeds or fails.
type Orchestrator struct {
	store     store.ContextStore
	invoker   agent.Invoker
	notifier  notify.Notifier
	telemetry telemetry.Adapters
	knowledge rag.Searcher
	topology  topology.Lookup
	opts      Options
	log       *zap.SugaredLogger
}

func New(
	st store.ContextStore,
	invoker agent.Invoker,
	notifier notify.Notifier,
	adapters telemetry.Adapters,
	knowledge rag.Searcher,
	topo topology.Lookup,
	opts Options,
	log *zap.SugaredLogger,
) *Orchestrator {
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = defaultStageTimeout
	}
	if opts.KnowledgeTopK <= 0 {
		opts.KnowledgeTopK = defaultKnowledgeTopK
	}
	return &Orchestrator{
		store:     st,
		invoker:   invoker,
		notifier:  notifier,
		telemetry: adapters,
		knowledge: knowledge,
		topology:  topo,
		opts:      opts,
		log:       log,
	}
}

// Analyze runs the full pipeline for one alert. It always returns the
// incident ID once the incident record exists; the report is non-nil only on
// full success. On a stage failure the incident is marked failed, with every
// output produced before the failure already persisted, and the stage error
// is returned unchanged.
func (o *Orchestrator) Analyze(ctx context.Context, alert models.Alert) (string, *models.DiagnosticReport, error) {
	alert.Normalize()

	incidentID, err := o.store.Create(ctx, alert)
	if err != nil {
		return "", nil, err
	}
	start := time.Now()

	log := o.log.With("incident_id", incidentID, "alert_name", alert.AlertName)
	log.Infow("incident created, starting analysis")
	o.notifier.SendIncidentStart(ctx, incidentID, alert)

	primary, err := o.runContextStage(ctx, incidentID, alert)
	if err != nil {
		return incidentID, nil, o.fail(ctx, incidentID, alert, err, start)
	}

	enhanced, err := o.runKnowledgeStage(ctx, incidentID, primary)
	if err != nil {
		return incidentID, nil, o.fail(ctx, incidentID, alert, err, start)
	}

	report, err := o.runDiagnosisStage(ctx, incidentID, primary, enhanced)
	if err != nil {
		return incidentID, nil, o.fail(ctx, incidentID, alert, err, start)
	}

	duration := time.Since(start)
	log.Infow("analysis completed",
		"duration", duration,
		"root_cause", report.RootCause,
		"confidence", report.ConfidenceScore,
	)
	o.notifier.SendIncidentComplete(ctx, incidentID, alert, report, duration)
	return incidentID, &report, nil
}

func (o *Orchestrator) runContextStage(ctx context.Context, incidentID string, alert models.Alert) (models.PrimaryContext, error) {
	var zero models.PrimaryContext

	if err := o.store.UpdateStatus(ctx, incidentID, models.StatusRunningStageA); err != nil {
		return zero, err
	}

	alertJSON, err := json.MarshalIndent(alert, "", "  ")
	if err != nil {
		return zero, fmt.Errorf("serialize alert: %w", err)
	}
	evidence := o.gatherEvidence(ctx, alert)
	evidenceJSON, err := json.MarshalIndent(evidence, "", "  ")
	if err != nil {
		return zero, fmt.Errorf("serialize evidence: %w", err)
	}

	raw, err := o.runStage(ctx, stageContext, contextStagePrompt(string(alertJSON), string(evidenceJSON)))
	if err != nil {
		return zero, err
	}
	primary, err := pipeline.ValidatePrimaryContext(raw)
	if err != nil {
		return zero, err
	}
	if err := o.store.UpdatePrimaryContext(ctx, incidentID, primary); err != nil {
		return zero, err
	}
	return primary, nil
}

func (o *Orchestrator) runKnowledgeStage(ctx context.Context, incidentID string, primary models.PrimaryContext) (models.EnhancedContext, error) {
	var zero models.EnhancedContext

	if err := o.store.UpdateStatus(ctx, incidentID, models.StatusRunningStageB); err != nil {
		return zero, err
	}

	primaryJSON, err := json.MarshalIndent(primary, "", "  ")
	if err != nil {
		return zero, fmt.Errorf("serialize primary context: %w", err)
	}

	query := fmt.Sprintf("%s %s %s",
		primary.AlertMetadata.AlertName,
		primary.AffectedComponents.Service,
		primary.AlertMetadata.FiringCondition,
	)
	hits, err := o.knowledge.Search(ctx, query, o.opts.KnowledgeTopK)
	if err != nil {
		o.log.Warnw("knowledge search failed, continuing without results",
			"incident_id", incidentID, "error", err)
		hits = nil
	}
	hitsJSON, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return zero, fmt.Errorf("serialize knowledge hits: %w", err)
	}

	neighbors := o.lookupNeighbors(ctx, primary.AffectedComponents.Service)
	neighborsJSON, err := json.MarshalIndent(neighbors, "", "  ")
	if err != nil {
		return zero, fmt.Errorf("serialize topology neighbors: %w", err)
	}

	raw, err := o.runStage(ctx, stageKnowledge, knowledgeStagePrompt(string(primaryJSON), string(hitsJSON), string(neighborsJSON)))
	if err != nil {
		return zero, err
	}
	enhanced, err := pipeline.ValidateEnhancedContext(raw)
	if err != nil {
		return zero, err
	}
	if err := o.store.UpdateEnhancedContext(ctx, incidentID, enhanced); err != nil {
		return zero, err
	}
	return enhanced, nil
}

func (o *Orchestrator) runDiagnosisStage(ctx context.Context, incidentID string, primary models.PrimaryContext, enhanced models.EnhancedContext) (models.DiagnosticReport, error) {
	var zero models.DiagnosticReport

	if err := o.store.UpdateStatus(ctx, incidentID, models.StatusRunningStageC); err != nil {
		return zero, err
	}

	primaryJSON, err := json.MarshalIndent(primary, "", "  ")
	if err != nil {
		return zero, fmt.Errorf("serialize primary context: %w", err)
	}
	enhancedJSON, err := json.MarshalIndent(enhanced, "", "  ")
	if err != nil {
		return zero, fmt.Errorf("serialize enhanced context: %w", err)
	}

	raw, err := o.runStage(ctx, stageDiagnosis, diagnosisStagePrompt(string(primaryJSON), string(enhancedJSON)))
	if err != nil {
		return zero, err
	}
	report, err := pipeline.ValidateDiagnosticReport(raw)
	if err != nil {
		return zero, err
	}
	if err := o.store.UpdateDiagnosticReport(ctx, incidentID, report); err != nil {
		return zero, err
	}
	return report, nil
}

// runStage invokes the model under the per-stage timeout and extracts the
// JSON document from its response.
func (o *Orchestrator) runStage(ctx context.Context, stageID, prompt string) (json.RawMessage, error) {
	stageCtx, cancel := context.WithTimeout(ctx, o.opts.StageTimeout)
	defer cancel()

	response, err := o.invoker.Run(stageCtx, stageID, prompt)
	if err != nil {
		if errors.Is(stageCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &StageTimeoutError{StageID: stageID, Timeout: o.opts.StageTimeout}
		}
		return nil, err
	}
	return pipeline.ExtractJSON(response)
}

// fail marks the incident failed and notifies. The original stage error is
// returned so callers see the real cause; bookkeeping failures are only
// logged.
func (o *Orchestrator) fail(ctx context.Context, incidentID string, alert models.Alert, stageErr error, start time.Time) error {
	o.log.Errorw("analysis failed", "incident_id", incidentID, "error", stageErr)
	if err := o.store.UpdateStatus(ctx, incidentID, models.StatusFailed); err != nil {
		o.log.Errorw("could not mark incident failed", "incident_id", incidentID, "error", err)
	}
	o.notifier.SendIncidentError(ctx, incidentID, alert, stageErr.Error(), time.Since(start))
	return stageErr
}

// gatherEvidence queries the telemetry backends around the alert trigger
// time. Missing adapters and query failures yield empty sections rather than
// aborting the run; the model is told what is absent.
func (o *Orchestrator) gatherEvidence(ctx context.Context, alert models.Alert) map[string][]telemetry.Record {
	start := alert.Timestamp.Add(-evidenceLookback)
	end := alert.Timestamp.Add(evidenceLookahead)

	evidence := map[string][]telemetry.Record{
		"metrics": {},
		"logs":    {},
		"events":  {},
	}

	metricName := alert.Labels["metric"]
	if metricName == "" {
		metricName = alert.AlertName
	}

	if o.telemetry.Metrics != nil {
		records, err := o.telemetry.Metrics.QueryMetrics(ctx, metricName, alert.Labels, start, end)
		if err != nil {
			o.log.Warnw("metrics query failed", "alert_name", alert.AlertName, "error", err)
		} else {
			evidence["metrics"] = records
		}
	}
	if o.telemetry.Logs != nil {
		records, err := o.telemetry.Logs.SearchLogs(ctx, alert.Message, alert.Namespace(), alert.Labels["pod"], start, end, 50)
		if err != nil {
			o.log.Warnw("log search failed", "alert_name", alert.AlertName, "error", err)
		} else {
			evidence["logs"] = records
		}
	}
	if o.telemetry.Events != nil {
		records, err := o.telemetry.Events.LookupEvents(ctx, alert.Namespace(), "pod", alert.Labels["pod"], start, end)
		if err != nil {
			o.log.Warnw("event lookup failed", "alert_name", alert.AlertName, "error", err)
		} else {
			evidence["events"] = records
		}
	}
	return evidence
}

func (o *Orchestrator) lookupNeighbors(ctx context.Context, entity string) []topology.Neighbor {
	if o.topology == nil || entity == "" {
		return nil
	}
	neighbors, err := o.topology.Neighbors(ctx, entity)
	if err != nil {
		o.log.Warnw("topology lookup failed", "entity", entity, "error", err)
		return nil
	}
	return neighbors
}
