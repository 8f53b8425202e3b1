package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dataing-sh/investigator/pkg/domain"
	"github.com/dataing-sh/investigator/pkg/version"
)

// healthHandler handles GET /health.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: version.Full()})
}

// startInvestigationHandler handles POST /api/v1/investigations. It
// validates the submitted alert, kicks off the orchestrator run in the
// background, and returns immediately with an investigation ID to poll.
func (s *Server) startInvestigationHandler(c *gin.Context) {
	var req StartInvestigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	alert := domain.AnomalyAlert{
		DatasetID: req.DatasetID,
		MetricSpec: domain.MetricSpec{
			Type:        domain.MetricType(req.MetricType),
			DisplayName: req.MetricName,
			Expression:  req.MetricName,
		},
		AnomalyType:   req.AnomalyType,
		ExpectedValue: req.ExpectedValue,
		ActualValue:   req.ActualValue,
		DeviationPct:  req.DeviationPct,
		AnomalyDate:   req.AnomalyDate,
		Severity:      req.Severity,
		SourceSystem:  req.SourceSystem,
		SourceAlertID: req.SourceAlertID,
		SourceURL:     req.SourceURL,
		Metadata:      req.Metadata,
	}
	if err := alert.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	investigationID := uuid.NewString()

	s.mu.Lock()
	s.running[investigationID] = true
	s.mu.Unlock()

	go s.runInvestigation(investigationID, req.TenantID, alert)

	c.JSON(http.StatusAccepted, StartInvestigationResponse{
		InvestigationID: investigationID,
		Status:          "running",
	})
}

// runInvestigation runs one investigation to completion and persists the
// resulting Finding. It is the background counterpart to
// startInvestigationHandler's immediate response.
func (s *Server) runInvestigation(investigationID, tenantID string, alert domain.AnomalyAlert) {
	defer func() {
		s.mu.Lock()
		delete(s.running, investigationID)
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result := s.orchestrator.Run(ctx, investigationID, tenantID, alert, s.adapter)
	if result.Err != nil {
		s.logger.Error("investigation failed", "investigation_id", investigationID, "error", result.Err)
		return
	}

	if err := s.store.SaveFinding(ctx, result.Finding); err != nil {
		s.logger.Error("failed to persist finding", "investigation_id", investigationID, "error", err)
	}
}

// getInvestigationHandler handles GET /api/v1/investigations/:id.
func (s *Server) getInvestigationHandler(c *gin.Context) {
	investigationID := c.Param("id")

	finding, ok, err := s.store.FindingByInvestigationID(c.Request.Context(), investigationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if ok {
		c.JSON(http.StatusOK, InvestigationStatusResponse{
			InvestigationID: investigationID,
			Status:          string(finding.Status),
			Finding:         &finding,
		})
		return
	}

	s.mu.RLock()
	stillRunning := s.running[investigationID]
	s.mu.RUnlock()

	if stillRunning {
		c.JSON(http.StatusOK, InvestigationStatusResponse{
			InvestigationID: investigationID,
			Status:          "running",
		})
		return
	}

	c.JSON(http.StatusNotFound, ErrorResponse{Error: "investigation not found"})
}
