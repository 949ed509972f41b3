package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opssage/opssage/internal/models"
)

// MemoryStore is the in-process ContextStore variant. It shares the Mongo
// store's contract but keeps records in a map, which makes it the store of
// choice for tests and dependency-free development runs.
//
// A single coarse mutex serializes every read-modify-write sequence; update
// rates are one pipeline per incident, so contention is not a concern.
type MemoryStore struct {
	mu        sync.Mutex
	incidents map[string]*models.Incident
	subs      *subscribers
	publisher Publisher
	log       *zap.SugaredLogger
}

func NewMemoryStore(log *zap.SugaredLogger, publisher Publisher) *MemoryStore {
	return &MemoryStore{
		incidents: make(map[string]*models.Incident),
		subs:      newSubscribers(log),
		publisher: publisher,
		log:       log,
	}
}

func (s *MemoryStore) Create(ctx context.Context, alert models.Alert) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert.Normalize()
	now := time.Now().UTC()
	incident := &models.Incident{
		IncidentID: uuid.NewString(),
		Alert:      alert,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	incident.Denormalize()
	s.incidents[incident.IncidentID] = incident
	s.log.Infow("created incident", "incident_id", incident.IncidentID, "alert", alert.AlertName)

	s.fanOut(ctx, incident)
	return incident.IncidentID, nil
}

func (s *MemoryStore) Get(ctx context.Context, incidentID string) (*models.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	incident, ok := s.incidents[incidentID]
	if !ok {
		return nil, nil
	}
	return incident.Clone(), nil
}

func (s *MemoryStore) UpdatePrimaryContext(ctx context.Context, incidentID string, pc models.PrimaryContext) error {
	return s.mutate(ctx, incidentID, func(incident *models.Incident) error {
		if incident.PrimaryContext != nil {
			return ErrStageOutputSet
		}
		cp := pc.Clone()
		incident.PrimaryContext = &cp
		incident.Status = models.StatusContextCollected
		return nil
	})
}

func (s *MemoryStore) UpdateEnhancedContext(ctx context.Context, incidentID string, ec models.EnhancedContext) error {
	return s.mutate(ctx, incidentID, func(incident *models.Incident) error {
		if incident.EnhancedContext != nil {
			return ErrStageOutputSet
		}
		cp := ec.Clone()
		incident.EnhancedContext = &cp
		incident.Status = models.StatusContextEnriched
		return nil
	})
}

func (s *MemoryStore) UpdateDiagnosticReport(ctx context.Context, incidentID string, report models.DiagnosticReport) error {
	return s.mutate(ctx, incidentID, func(incident *models.Incident) error {
		if incident.DiagnosticReport != nil {
			return ErrStageOutputSet
		}
		cp := report.Clone()
		incident.DiagnosticReport = &cp
		incident.Status = models.StatusCompleted
		return nil
	})
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, incidentID string, status models.IncidentStatus) error {
	return s.mutate(ctx, incidentID, func(incident *models.Incident) error {
		if incident.Status.Terminal() {
			return ErrTerminalStatus
		}
		incident.Status = status
		return nil
	})
}

func (s *MemoryStore) List(ctx context.Context, status models.IncidentStatus) ([]*models.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Incident, 0, len(s.incidents))
	for _, incident := range s.incidents {
		if status != "" && incident.Status != status {
			continue
		}
		out = append(out, incident.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, incidentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.incidents[incidentID]; !ok {
		return &NotFoundError{IncidentID: incidentID}
	}
	delete(s.incidents, incidentID)
	s.subs.drop(incidentID)
	s.log.Infow("deleted incident", "incident_id", incidentID)
	return nil
}

func (s *MemoryStore) Subscribe(incidentID string, l Listener) {
	s.subs.add(incidentID, l)
}

// mutate runs the whole load-mutate-persist-notify sequence under the store
// lock so concurrent updates to the same incident cannot interleave.
func (s *MemoryStore) mutate(ctx context.Context, incidentID string, apply func(*models.Incident) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	incident, ok := s.incidents[incidentID]
	if !ok {
		return &NotFoundError{IncidentID: incidentID}
	}
	if err := apply(incident); err != nil {
		return err
	}

	now := time.Now().UTC()
	if !now.After(incident.UpdatedAt) {
		// Coarse clocks must not produce equal consecutive timestamps.
		now = incident.UpdatedAt.Add(time.Nanosecond)
	}
	incident.UpdatedAt = now
	incident.Denormalize()

	s.fanOut(ctx, incident)
	return nil
}

func (s *MemoryStore) fanOut(ctx context.Context, incident *models.Incident) {
	s.subs.notify(incident)
	if s.publisher != nil {
		s.publisher.PublishIncident(ctx, incident.Clone())
	}
}
