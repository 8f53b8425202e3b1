package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricSpecValidate(t *testing.T) {
	t.Run("valid column spec", func(t *testing.T) {
		spec := NewColumnMetricSpec("user_id")
		require.NoError(t, spec.Validate())
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		spec := MetricSpec{Type: "bogus", DisplayName: "x", Expression: "x"}
		assert.Error(t, spec.Validate())
	})

	t.Run("rejects empty expression", func(t *testing.T) {
		spec := MetricSpec{Type: MetricTypeDescription, DisplayName: "x"}
		assert.Error(t, spec.Validate())
	})
}

func TestAnomalyAlertValidate(t *testing.T) {
	valid := AnomalyAlert{
		DatasetID:   "sales.orders",
		MetricSpec:  NewColumnMetricSpec("user_id"),
		AnomalyType: "null_rate",
		AnomalyDate: "2024-01-15",
	}
	require.NoError(t, valid.Validate())

	missingDataset := valid
	missingDataset.DatasetID = ""
	assert.Error(t, missingDataset.Validate())
}

func TestHypothesisValidate(t *testing.T) {
	valid := Hypothesis{
		ID:              "h1",
		Title:           "users ETL job stalled before the anomaly window",
		Category:        CategoryUpstreamDependency,
		Reasoning:       "the stg_users table looked stale during the affected window",
		SuggestedQuery:  "SELECT * FROM sales.orders LIMIT 100",
		ExpectedIfTrue:  "NULL user_ids clustered after 03:00 UTC",
		ExpectedIfFalse: "NULLs evenly distributed or absent",
	}
	require.NoError(t, valid.Validate())

	t.Run("rejects short title", func(t *testing.T) {
		h := valid
		h.Title = "too short"
		assert.Error(t, h.Validate())
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		h := valid
		h.Category = "not_a_category"
		assert.Error(t, h.Validate())
	})

	t.Run("rejects missing testability fields", func(t *testing.T) {
		h := valid
		h.ExpectedIfTrue = ""
		assert.Error(t, h.Validate())
	})
}

func TestNewSynthesizedFindingStatus(t *testing.T) {
	t.Run("completed when root cause present", func(t *testing.T) {
		cause := "users ETL job timed out"
		f := NewSynthesizedFinding("inv1", &cause, 0.88, nil, nil, nil, "", "")
		assert.Equal(t, FindingCompleted, f.Status)
		assert.Equal(t, &cause, f.RootCause)
	})

	t.Run("inconclusive when root cause nil", func(t *testing.T) {
		f := NewSynthesizedFinding("inv1", nil, 0.4, nil, nil, nil, "", "")
		assert.Equal(t, FindingInconclusive, f.Status)
		assert.Nil(t, f.RootCause)
	})

	t.Run("clamps root cause to nil when confidence is below threshold", func(t *testing.T) {
		cause := "users ETL job timed out"
		f := NewSynthesizedFinding("inv1", &cause, 0.4, nil, nil, nil, "", "")
		assert.Equal(t, FindingInconclusive, f.Status)
		assert.Nil(t, f.RootCause)
	})
}

func TestFailedFinding(t *testing.T) {
	f := FailedFinding("inv1", "Investigation was stopped due to safety limits", 12.5)
	assert.Equal(t, FindingFailed, f.Status)
	assert.Equal(t, []string{"Investigation was stopped due to safety limits"}, f.Recommendations)
	assert.Empty(t, f.Evidence)
}
