package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opssage/opssage/internal/models"
)

func testAlert(name string) models.Alert {
	return models.Alert{
		AlertName: name,
		Severity:  "critical",
		Message:   "CPU usage above 90%",
		Labels:    map[string]string{"namespace": "production", "service": "api-server"},
	}
}

func testPrimaryContext() models.PrimaryContext {
	return models.PrimaryContext{
		AlertMetadata: models.AlertMetadata{
			AlertName:       "HighCPUUsage",
			Severity:        "critical",
			FiringCondition: "cpu_usage > 90%",
			TriggerTime:     "2025-01-15T10:30:00Z",
		},
		AffectedComponents: models.AffectedComponents{
			Service:   "api-server",
			Namespace: "production",
		},
	}
}

func testReport(confidence float64) models.DiagnosticReport {
	return models.DiagnosticReport{
		RootCause:       "CPU limits dropped during rollout",
		ReasoningSteps:  []string{"saturation started right after the rollout"},
		ConfidenceScore: confidence,
	}
}

func newTestStore() *MemoryStore {
	return NewMemoryStore(zap.NewNop().Sugar(), nil)
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	id, err := s.Create(ctx, testAlert("HighCPUUsage"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	incident, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, incident)
	assert.Equal(t, id, incident.IncidentID)
	assert.Equal(t, models.StatusPending, incident.Status)
	assert.Equal(t, "HighCPUUsage", incident.AlertName)
	assert.Equal(t, "production", incident.Namespace)
	assert.Equal(t, "api-server", incident.Service)
	assert.Nil(t, incident.PrimaryContext)
	assert.Equal(t, incident.CreatedAt, incident.UpdatedAt)
}

func TestGetMissingReturnsNilNil(t *testing.T) {
	s := newTestStore()

	incident, err := s.Get(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, incident)
}

func TestGetReturnsSnapshot(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	id, err := s.Create(ctx, testAlert("HighCPUUsage"))
	require.NoError(t, err)

	first, err := s.Get(ctx, id)
	require.NoError(t, err)
	first.Status = models.StatusFailed
	first.Alert.Labels["namespace"] = "mutated"

	second, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, second.Status)
	assert.Equal(t, "production", second.Alert.Labels["namespace"])
}

func TestUpdateMissingIncident(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	err := s.UpdateStatus(ctx, "does-not-exist", models.StatusRunningStageA)
	assert.True(t, IsNotFound(err))

	err = s.UpdatePrimaryContext(ctx, "does-not-exist", testPrimaryContext())
	assert.True(t, IsNotFound(err))

	incidents, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, incidents)
}

func TestStageOutputsAreSetOnce(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	id, err := s.Create(ctx, testAlert("HighCPUUsage"))
	require.NoError(t, err)

	require.NoError(t, s.UpdatePrimaryContext(ctx, id, testPrimaryContext()))
	err = s.UpdatePrimaryContext(ctx, id, testPrimaryContext())
	assert.ErrorIs(t, err, ErrStageOutputSet)

	incident, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusContextCollected, incident.Status)
}

func TestTerminalStatusIsLocked(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	id, err := s.Create(ctx, testAlert("HighCPUUsage"))
	require.NoError(t, err)

	require.NoError(t, s.UpdateStatus(ctx, id, models.StatusRunningStageA))
	require.NoError(t, s.UpdateStatus(ctx, id, models.StatusFailed))

	err = s.UpdateStatus(ctx, id, models.StatusRunningStageB)
	assert.ErrorIs(t, err, ErrTerminalStatus)

	incident, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, incident.Status)
}

func TestDiagnosticReportCompletesIncident(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	id, err := s.Create(ctx, testAlert("HighCPUUsage"))
	require.NoError(t, err)

	require.NoError(t, s.UpdateDiagnosticReport(ctx, id, testReport(0.85)))

	incident, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, incident.Status)
	assert.Equal(t, "CPU limits dropped during rollout", incident.RootCause)
	require.NotNil(t, incident.ConfidenceScore)
	assert.Equal(t, 0.85, *incident.ConfidenceScore)
}

func TestUpdatedAtStrictlyIncreases(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	id, err := s.Create(ctx, testAlert("HighCPUUsage"))
	require.NoError(t, err)

	prev, err := s.Get(ctx, id)
	require.NoError(t, err)

	for _, status := range []models.IncidentStatus{
		models.StatusRunningStageA,
		models.StatusContextCollected,
		models.StatusRunningStageB,
	} {
		require.NoError(t, s.UpdateStatus(ctx, id, status))
		current, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, current.UpdatedAt.After(prev.UpdatedAt),
			"updated_at must strictly increase on every mutation")
		prev = current
	}
}

func TestConcurrentUpdatesToDistinctIncidents(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	const n = 50
	ids := make([]string, n)
	for i := range ids {
		id, err := s.Create(ctx, testAlert(fmt.Sprintf("Alert-%d", i)))
		require.NoError(t, err)
		ids[i] = id
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = s.UpdateStatus(ctx, id, models.StatusRunningStageA)
			_ = s.UpdatePrimaryContext(ctx, id, testPrimaryContext())
			_ = s.UpdateDiagnosticReport(ctx, id, testReport(0.7))
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		incident, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, incident.Status)
		assert.NotNil(t, incident.PrimaryContext)
		assert.NotNil(t, incident.DiagnosticReport)
	}
}

func TestListNewestFirstWithFilter(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := s.Create(ctx, testAlert(fmt.Sprintf("Alert-%d", i)))
		require.NoError(t, err)
		ids = append(ids, id)
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, s.UpdateStatus(ctx, ids[1], models.StatusFailed))

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i-1].CreatedAt.Before(all[i].CreatedAt))
	}

	failed, err := s.List(ctx, models.StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, ids[1], failed[0].IncidentID)
}

func TestDelete(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	id, err := s.Create(ctx, testAlert("HighCPUUsage"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, id))
	assert.True(t, IsNotFound(s.Delete(ctx, id)))

	incident, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, incident)
}

func TestSubscribersFireInOrderWithSnapshots(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	id, err := s.Create(ctx, testAlert("HighCPUUsage"))
	require.NoError(t, err)

	var order []string
	s.Subscribe(id, ListenerFunc(func(incident *models.Incident) {
		order = append(order, "first")
		// Mutating the snapshot must not leak into other listeners.
		incident.Status = models.StatusFailed
	}))
	s.Subscribe(id, ListenerFunc(func(incident *models.Incident) {
		order = append(order, "second")
		assert.Equal(t, models.StatusRunningStageA, incident.Status)
	}))

	require.NoError(t, s.UpdateStatus(ctx, id, models.StatusRunningStageA))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestPanickingSubscriberDoesNotFailUpdate(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	id, err := s.Create(ctx, testAlert("HighCPUUsage"))
	require.NoError(t, err)

	var survived bool
	s.Subscribe(id, ListenerFunc(func(incident *models.Incident) {
		panic("listener bug")
	}))
	s.Subscribe(id, ListenerFunc(func(incident *models.Incident) {
		survived = true
	}))

	require.NoError(t, s.UpdateStatus(ctx, id, models.StatusRunningStageA))
	assert.True(t, survived)
}

type capturingPublisher struct {
	mu        sync.Mutex
	incidents []*models.Incident
}

func (p *capturingPublisher) PublishIncident(ctx context.Context, incident *models.Incident) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.incidents = append(p.incidents, incident)
}

func TestPublisherReceivesEveryMutation(t *testing.T) {
	publisher := &capturingPublisher{}
	s := NewMemoryStore(zap.NewNop().Sugar(), publisher)
	ctx := context.Background()

	id, err := s.Create(ctx, testAlert("HighCPUUsage"))
	require.NoError(t, err)
	require.NoError(t, s.UpdateStatus(ctx, id, models.StatusRunningStageA))
	require.NoError(t, s.UpdatePrimaryContext(ctx, id, testPrimaryContext()))

	require.Len(t, publisher.incidents, 3)
	assert.Equal(t, models.StatusPending, publisher.incidents[0].Status)
	assert.Equal(t, models.StatusRunningStageA, publisher.incidents[1].Status)
	assert.Equal(t, models.StatusContextCollected, publisher.incidents[2].Status)
}
