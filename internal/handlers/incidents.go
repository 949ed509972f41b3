package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opssage/opssage/internal/models"
	"github.com/opssage/opssage/internal/orchestrator"
	"github.com/opssage/opssage/internal/store"
)

// IncidentHandler exposes the analysis pipeline and the incident store over
// HTTP.
type IncidentHandler struct {
	orch  *orchestrator.Orchestrator
	store store.ContextStore
	log   *zap.SugaredLogger
}

func NewIncidentHandler(orch *orchestrator.Orchestrator, st store.ContextStore, log *zap.SugaredLogger) *IncidentHandler {
	return &IncidentHandler{orch: orch, store: st, log: log}
}

// HandleAlert ingests an alert and runs the full analysis pipeline before
// responding.
func (h *IncidentHandler) HandleAlert(c *gin.Context) {
	var alert models.Alert
	if err := c.ShouldBindJSON(&alert); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert payload"})
		return
	}
	if alert.AlertName == "" || alert.Severity == "" || alert.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "alert_name, severity and message are required"})
		return
	}

	incidentID, report, err := h.orch.Analyze(c.Request.Context(), alert)
	if err != nil {
		if incidentID == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"incident_id": incidentID,
			"status":      models.StatusFailed,
			"error":       err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"incident_id": incidentID,
		"status":      models.StatusCompleted,
		"report":      report,
	})
}

func (h *IncidentHandler) ListIncidents(c *gin.Context) {
	var status models.IncidentStatus
	if raw := c.Query("status"); raw != "" {
		status = models.IncidentStatus(raw)
		if !status.Known() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status filter"})
			return
		}
	}

	incidents, err := h.store.List(c.Request.Context(), status)
	if err != nil {
		h.log.Errorw("list incidents failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"incidents": incidents, "count": len(incidents)})
}

func (h *IncidentHandler) GetIncident(c *gin.Context) {
	incident, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Errorw("get incident failed", "incident_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	if incident == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
		return
	}
	c.JSON(http.StatusOK, incident)
}

func (h *IncidentHandler) DeleteIncident(c *gin.Context) {
	err := h.store.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if store.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
			return
		}
		h.log.Errorw("delete incident failed", "incident_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Incident deleted"})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "opssage"})
}
