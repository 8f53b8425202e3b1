package quality

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataing-sh/investigator/pkg/agent"
	"github.com/dataing-sh/investigator/pkg/domain"
)

type stubProvider struct {
	json string
	err  error
}

func (s stubProvider) Complete(ctx context.Context, req agent.Request) (agent.Response, error) {
	if s.err != nil {
		return agent.Response{}, s.err
	}
	return agent.Response{JSON: s.json}, nil
}

func TestScoreFromWeightsDimensionsCorrectly(t *testing.T) {
	r := judgeResponse{CausalDepth: 0.9, Specificity: 0.6, Actionability: 0.5}
	got := scoreFrom(r, 0.5, DefaultPassThreshold)
	assert.InDelta(t, 0.5*0.9+0.3*0.6+0.2*0.5, got.CompositeScore, 1e-9)
	assert.Equal(t, "actionability", got.LowestDimension)
}

func TestScoreFromDifferentiationBonus(t *testing.T) {
	r := judgeResponse{CausalDepth: 0.5, Specificity: 0.5, Actionability: 0.5, DifferentiationPresent: true, DifferentiationSpecific: true}
	got := scoreFrom(r, 0.9, DefaultPassThreshold)
	assert.InDelta(t, 0.6, got.CompositeScore, 1e-9)
}

func TestScoreFromDifferentiationPenalty(t *testing.T) {
	r := judgeResponse{CausalDepth: 0.5, Specificity: 0.5, Actionability: 0.5}
	got := scoreFrom(r, 0.9, DefaultPassThreshold)
	assert.InDelta(t, 0.4, got.CompositeScore, 1e-9)
}

func TestScoreFromClampsToUnitRange(t *testing.T) {
	r := judgeResponse{CausalDepth: 1, Specificity: 1, Actionability: 1, DifferentiationPresent: true, DifferentiationSpecific: true}
	got := scoreFrom(r, 0.9, DefaultPassThreshold)
	assert.Equal(t, 1.0, got.CompositeScore)
}

func TestValidateInterpretationNeverPropagatesJudgeFailure(t *testing.T) {
	v := New(stubProvider{err: assert.AnError}, nil)
	e := domain.Evidence{HypothesisID: "h1", Confidence: 0.5}
	got := v.ValidateInterpretation(context.Background(), e, "title", "select 1")
	assert.False(t, got.Passed)
}

func TestValidateSynthesisPassesThreshold(t *testing.T) {
	payload, err := json.Marshal(judgeResponse{CausalDepth: 0.9, Specificity: 0.9, Actionability: 0.9})
	require.NoError(t, err)
	v := New(stubProvider{json: string(payload)}, nil)
	f := domain.Finding{InvestigationID: "inv1", Confidence: 0.9}
	got := v.ValidateSynthesis(context.Background(), f, "summary")
	assert.True(t, got.Passed)
}
