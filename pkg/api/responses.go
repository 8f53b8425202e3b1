package api

import "github.com/dataing-sh/investigator/pkg/domain"

// StartInvestigationResponse is returned immediately on submission; the
// investigation runs asynchronously and is polled via GetInvestigation.
type StartInvestigationResponse struct {
	InvestigationID string `json:"investigation_id"`
	Status          string `json:"status"`
}

// InvestigationStatusResponse is returned by GET
// /api/v1/investigations/:id. Status is "running" until a Finding has
// been persisted, then mirrors the Finding's own status.
type InvestigationStatusResponse struct {
	InvestigationID string          `json:"investigation_id"`
	Status          string          `json:"status"`
	Finding         *domain.Finding `json:"finding,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is the uniform error envelope for non-2xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}
