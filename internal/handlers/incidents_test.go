package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opssage/opssage/internal/agent"
	"github.com/opssage/opssage/internal/llm"
	"github.com/opssage/opssage/internal/models"
	"github.com/opssage/opssage/internal/orchestrator"
	"github.com/opssage/opssage/internal/rag"
	"github.com/opssage/opssage/internal/store"
	"github.com/opssage/opssage/internal/telemetry"
	"github.com/opssage/opssage/internal/topology"
)

type notifierStub struct{}

func (notifierStub) SendIncidentStart(ctx context.Context, incidentID string, alert models.Alert) bool {
	return false
}

func (notifierStub) SendIncidentComplete(ctx context.Context, incidentID string, alert models.Alert, report models.DiagnosticReport, duration time.Duration) bool {
	return false
}

func (notifierStub) SendIncidentError(ctx context.Context, incidentID string, alert models.Alert, errText string, duration time.Duration) bool {
	return false
}

func newTestRouter(t *testing.T) (*gin.Engine, store.ContextStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop().Sugar()

	st := store.NewMemoryStore(log, nil)
	runner := agent.NewRunner(llm.NewMockProvider(), log)
	orch := orchestrator.New(st, runner, notifierStub{}, telemetry.MockAdapters(),
		rag.MockSearcher{}, topology.NoopLookup{}, orchestrator.Options{}, log)
	h := NewIncidentHandler(orch, st, log)

	r := gin.New()
	r.GET("/", Health)
	r.POST("/api/v1/alerts", h.HandleAlert)
	r.GET("/api/v1/incidents", h.ListIncidents)
	r.GET("/api/v1/incidents/:id", h.GetIncident)
	r.DELETE("/api/v1/incidents/:id", h.DeleteIncident)
	return r, st
}

func TestHandleAlertEndToEnd(t *testing.T) {
	r, _ := newTestRouter(t)

	body := `{"alert_name": "HighCPUUsage", "severity": "critical",
		"message": "CPU above 90%", "labels": {"namespace": "production", "service": "api-server"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		IncidentID string                   `json:"incident_id"`
		Status     string                   `json:"status"`
		Report     *models.DiagnosticReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.IncidentID)
	assert.Equal(t, string(models.StatusCompleted), resp.Status)
	require.NotNil(t, resp.Report)
	assert.NotEmpty(t, resp.Report.RootCause)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/incidents/"+resp.IncidentID, nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleAlertRejectsIncompletePayload(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts",
		strings.NewReader(`{"severity": "critical"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUnknownIncident(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/incidents/nope", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListIncidentsRejectsUnknownStatus(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/incidents?status=bogus", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteIncident(t *testing.T) {
	r, st := newTestRouter(t)

	id, err := st.Create(context.Background(), models.Alert{
		AlertName: "HighCPUUsage", Severity: "critical", Message: "cpu high",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/incidents/"+id, nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/incidents/"+id, nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
