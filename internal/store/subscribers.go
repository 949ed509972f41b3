package store

import (
	"sync"

	"go.uber.org/zap"

	"github.com/opssage/opssage/internal/models"
)

// subscribers is the per-incident listener registry shared by both store
// implementations. Listeners fire synchronously in registration order; a
// panicking listener is logged and skipped so it cannot fail the mutation or
// starve the listeners registered after it.
type subscribers struct {
	mu        sync.Mutex
	listeners map[string][]Listener
	log       *zap.SugaredLogger
}

func newSubscribers(log *zap.SugaredLogger) *subscribers {
	return &subscribers{
		listeners: make(map[string][]Listener),
		log:       log,
	}
}

func (s *subscribers) add(incidentID string, l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[incidentID] = append(s.listeners[incidentID], l)
}

func (s *subscribers) drop(incidentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, incidentID)
}

func (s *subscribers) notify(incident *models.Incident) {
	s.mu.Lock()
	registered := append([]Listener(nil), s.listeners[incident.IncidentID]...)
	s.mu.Unlock()

	for _, l := range registered {
		// Every listener gets its own snapshot so one cannot see
		// another's mutations.
		s.invoke(l, incident.Clone())
	}
}

func (s *subscribers) invoke(l Listener, snapshot *models.Incident) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("incident listener panicked",
				"incident_id", snapshot.IncidentID, "panic", r)
		}
	}()
	l.IncidentUpdated(snapshot)
}
