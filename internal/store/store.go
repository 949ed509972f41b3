package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/opssage/opssage/internal/models"
)

// NotFoundError reports an operation against an incident id that does not
// exist. Callers map it to a 404.
type NotFoundError struct {
	IncidentID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("incident %s not found", e.IncidentID)
}

// IsNotFound reports whether err is a store NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// StorageError wraps an underlying persistence fault (connection, disk).
// These are fatal and not expected during normal operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ErrTerminalStatus is returned when a status update would leave a terminal
// state. Incident status transitions are one-directional.
var ErrTerminalStatus = errors.New("incident already in terminal status")

// ErrStageOutputSet is returned when a stage update targets an incident that
// already holds that stage's output. Stage outputs are set at most once; a
// retried analysis creates a new incident instead of overwriting.
var ErrStageOutputSet = errors.New("stage output already set")

// Listener receives post-mutation incident snapshots.
type Listener interface {
	IncidentUpdated(incident *models.Incident)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(incident *models.Incident)

func (f ListenerFunc) IncidentUpdated(incident *models.Incident) { f(incident) }

// ContextStore is the single source of truth for incident records. All
// mutations are atomic per call; reads return snapshot copies decoupled from
// the stored record.
//
// Get returns (nil, nil) for an unknown id: a missing incident is an
// expected answer, not an error. The update and delete operations return
// NotFoundError instead, since those callers must hold a valid id.
type ContextStore interface {
	Create(ctx context.Context, alert models.Alert) (string, error)
	Get(ctx context.Context, incidentID string) (*models.Incident, error)
	UpdatePrimaryContext(ctx context.Context, incidentID string, pc models.PrimaryContext) error
	UpdateEnhancedContext(ctx context.Context, incidentID string, ec models.EnhancedContext) error
	UpdateDiagnosticReport(ctx context.Context, incidentID string, report models.DiagnosticReport) error
	UpdateStatus(ctx context.Context, incidentID string, status models.IncidentStatus) error
	List(ctx context.Context, status models.IncidentStatus) ([]*models.Incident, error)
	Delete(ctx context.Context, incidentID string) error
	Subscribe(incidentID string, l Listener)
}

// Publisher receives post-mutation snapshots for fan-out beyond in-process
// listeners. Implementations must never fail the mutation path.
type Publisher interface {
	PublishIncident(ctx context.Context, incident *models.Incident)
}
