package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dataing-sh/investigator/pkg/domain"
)

// SaveFinding persists the terminal output of one investigation.
func (s *Store) SaveFinding(ctx context.Context, f domain.Finding) error {
	evidence, err := json.Marshal(f.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}
	recommendations, err := json.Marshal(f.Recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}
	causalChain, err := json.Marshal(f.CausalChain)
	if err != nil {
		return fmt.Errorf("marshal causal chain: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO findings (investigation_id, status, root_cause, confidence, evidence,
			recommendations, causal_chain, estimated_onset, affected_scope, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		f.InvestigationID, string(f.Status), f.RootCause, f.Confidence, evidence,
		recommendations, causalChain, f.EstimatedOnset, f.AffectedScope, f.DurationSeconds)
	if err != nil {
		return fmt.Errorf("insert finding: %w", err)
	}
	return nil
}

// FindingByInvestigationID loads the most recently written Finding for an
// investigation, or (domain.Finding{}, false, nil) if none exists.
func (s *Store) FindingByInvestigationID(ctx context.Context, investigationID string) (domain.Finding, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT status, root_cause, confidence, evidence, recommendations, causal_chain,
			estimated_onset, affected_scope, duration_seconds
		FROM findings WHERE investigation_id = $1
		ORDER BY created_at DESC LIMIT 1`, investigationID)

	var (
		status, estimatedOnset, affectedScope        string
		rootCause                                    *string
		confidence, durationSeconds                  float64
		evidenceJSON, recommendationsJSON, causalJSON []byte
	)
	if err := row.Scan(&status, &rootCause, &confidence, &evidenceJSON, &recommendationsJSON,
		&causalJSON, &estimatedOnset, &affectedScope, &durationSeconds); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Finding{}, false, nil
		}
		return domain.Finding{}, false, fmt.Errorf("query finding: %w", err)
	}

	var evidence []domain.Evidence
	var recommendations, causalChain []string
	if err := json.Unmarshal(evidenceJSON, &evidence); err != nil {
		return domain.Finding{}, false, fmt.Errorf("unmarshal evidence: %w", err)
	}
	if err := json.Unmarshal(recommendationsJSON, &recommendations); err != nil {
		return domain.Finding{}, false, fmt.Errorf("unmarshal recommendations: %w", err)
	}
	if err := json.Unmarshal(causalJSON, &causalChain); err != nil {
		return domain.Finding{}, false, fmt.Errorf("unmarshal causal chain: %w", err)
	}

	return domain.Finding{
		InvestigationID: investigationID,
		Status:          domain.FindingStatus(status),
		RootCause:       rootCause,
		Confidence:      confidence,
		Evidence:        evidence,
		Recommendations: recommendations,
		CausalChain:     causalChain,
		EstimatedOnset:  estimatedOnset,
		AffectedScope:   affectedScope,
		DurationSeconds: durationSeconds,
	}, true, nil
}

// Record persists one quality assessment as a training signal. It
// implements orchestrator.TrainingSignalSink; a failure here is always
// logged by the caller and never affects a Finding.
func (s *Store) Record(ctx context.Context, kind string, assessment domain.QualityAssessment, meta map[string]any) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal training signal meta: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO training_signals (kind, causal_depth, specificity, actionability,
			composite_score, lowest_dimension, improvement_suggestion, passed, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		kind, assessment.CausalDepth, assessment.Specificity, assessment.Actionability,
		assessment.CompositeScore, assessment.LowestDimension, assessment.ImprovementSuggestion,
		assessment.Passed, metaJSON)
	if err != nil {
		return fmt.Errorf("insert training signal: %w", err)
	}
	return nil
}

// Emit appends one feedback event. It implements adapters.FeedbackEmitter.
func (s *Store) Emit(ctx context.Context, tenantID, eventType string, eventData map[string]any, investigationID, datasetID, actorID *string, actorType string) error {
	dataJSON, err := json.Marshal(eventData)
	if err != nil {
		return fmt.Errorf("marshal feedback event data: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO feedback_events (tenant_id, event_type, event_data, investigation_id,
			dataset_id, actor_id, actor_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tenantID, eventType, dataJSON, investigationID, datasetID, actorID, actorType)
	if err != nil {
		return fmt.Errorf("insert feedback event: %w", err)
	}
	return nil
}
