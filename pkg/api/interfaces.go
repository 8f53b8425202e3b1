package api

import (
	"context"

	"github.com/dataing-sh/investigator/pkg/adapters"
	"github.com/dataing-sh/investigator/pkg/domain"
	"github.com/dataing-sh/investigator/pkg/orchestrator"
)

// Investigator runs one investigation to completion. *orchestrator.Orchestrator
// satisfies this directly; tests substitute a stub.
type Investigator interface {
	Run(ctx context.Context, investigationID, tenantID string, alert domain.AnomalyAlert, adapter adapters.DataSourceAdapter) orchestrator.Result
}

// FindingStore is the subset of *persistence.Store the API needs to persist
// and poll investigation outcomes.
type FindingStore interface {
	SaveFinding(ctx context.Context, f domain.Finding) error
	FindingByInvestigationID(ctx context.Context, investigationID string) (domain.Finding, bool, error)
}
