// Package prompt builds the system/user prompt pairs for the four agent
// roles, grounded on
// original_source/dataing/src/dataing/agents/prompts/*.py.
package prompt

import (
	"fmt"
	"strings"

	"github.com/dataing-sh/investigator/pkg/discovery"
	"github.com/dataing-sh/investigator/pkg/domain"
)

const hypothesisSystemTemplate = `You are a data quality investigator. Given an anomaly alert and database context,
generate %d hypotheses about what could have caused the anomaly.

CRITICAL: Pay close attention to the METRIC NAME in the alert:
- "null_count": Investigate what causes NULL values (app bugs, missing required fields, ETL drops)
- "row_count" or "volume": Investigate missing/extra records (filtering bugs, data loss, duplicates)
- "duplicate_count": Investigate what causes duplicate records
- Other metrics: Investigate value changes, data corruption, calculation errors

HYPOTHESIS CATEGORIES:
- upstream_dependency: Source table missing data, late arrival, schema change
- transformation_bug: ETL logic error, incorrect aggregation, wrong join
- data_quality: Nulls, duplicates, invalid values, schema drift
- infrastructure: Job failure, timeout, resource exhaustion
- expected_variance: Seasonality, holiday, known business event

REQUIRED FIELDS FOR EACH HYPOTHESIS:

1. id: Unique identifier like 'h1', 'h2', etc.
2. title: Short, specific title describing the potential cause (10-200 chars)
3. category: One of the categories listed above
4. reasoning: Why this could be the cause (20+ chars)
5. suggested_query: SQL query to investigate (must include LIMIT, SELECT only)
6. expected_if_true: What query results would CONFIRM this hypothesis
7. expected_if_false: What query results would REFUTE this hypothesis

TESTABILITY IS CRITICAL:
- A good hypothesis is FALSIFIABLE - the query can definitively prove it wrong
- The expected_if_true and expected_if_false should be mutually exclusive
- Avoid vague expectations like "some issues found" or "data looks wrong"

DIMENSIONAL ANALYSIS IS ESSENTIAL:
- Use GROUP BY on categorical columns to segment the data and find patterns
- Common dimensions: channel, platform, version, region, source, type, category
- If anomalies cluster in ONE segment, that's the root cause

Only SELECT statements. Never suggest DROP, DELETE, UPDATE, INSERT, ALTER, or TRUNCATE.

Generate diverse hypotheses covering multiple categories when plausible.`

// HypothesisSystem builds the system prompt for generate_hypotheses
// (spec.md §4.4a).
func HypothesisSystem(numHypotheses int) string {
	return fmt.Sprintf(hypothesisSystemTemplate, numHypotheses)
}

func metricContext(spec domain.MetricSpec, datasetID string) string {
	switch spec.Type {
	case domain.MetricTypeColumn:
		return fmt.Sprintf(`The anomaly is on column `+"`%s`"+` in table `+"`%s`"+`.
Investigate why this column's value changed.
Focus on: NULL introduction, upstream joins, filtering changes, application bugs.
All hypotheses MUST focus on the `+"`%s`"+` column specifically.`, spec.Expression, datasetID, spec.Expression)
	case domain.MetricTypeSQLExpression:
		cols := "unknown"
		if len(spec.ColumnsReferenced) > 0 {
			cols = strings.Join(spec.ColumnsReferenced, ", ")
		}
		return fmt.Sprintf(`The anomaly is on a computed metric: %s
This expression references columns: %s
Investigate why this calculation's result changed.
Focus on: input column changes, expression logic errors, upstream data shifts.`, spec.Expression, cols)
	case domain.MetricTypeDBTMetric:
		urlInfo := ""
		if spec.SourceURL != "" {
			urlInfo = "\nDefinition: " + spec.SourceURL
		}
		return fmt.Sprintf(`The anomaly is on dbt metric `+"`%s`"+`.%s
Investigate the metric's upstream models and their data quality.
Focus on: upstream model failures, source data changes, metric definition issues.`, spec.Expression, urlInfo)
	default:
		return fmt.Sprintf(`The anomaly is described as: %s
This is a free-text description. Infer which columns/tables are involved
from the schema and investigate accordingly.
Focus on: matching the description to actual schema elements.`, spec.Expression)
	}
}

// HypothesisUser builds the user prompt for generate_hypotheses.
func HypothesisUser(alert domain.AnomalyAlert, ctx discovery.InvestigationContext) string {
	lineageSection := ""
	if ctx.Lineage != nil {
		lineageSection = "\n## Data Lineage\n" + ctx.Lineage.ToPromptString() + "\n"
	}
	enrichedSection := enrichmentSection(ctx.Enriched)

	return fmt.Sprintf(`## Anomaly Alert
- Dataset: %s
- Metric: %s
- Anomaly Type: %s
- Expected: %v
- Actual: %v
- Deviation: %v%%
- Anomaly Date: %s
- Severity: %s

## What To Investigate
%s

## Available Schema
%s
%s%s
Generate hypotheses to investigate why %s deviated from %v to %v (%v%% change).`,
		alert.DatasetID, alert.MetricSpec.DisplayName, alert.AnomalyType,
		alert.ExpectedValue, alert.ActualValue, alert.DeviationPct, alert.AnomalyDate, alert.Severity,
		metricContext(alert.MetricSpec, alert.DatasetID),
		ctx.Schema.ToPromptString(),
		lineageSection,
		enrichedSection,
		alert.MetricSpec.DisplayName, alert.ExpectedValue, alert.ActualValue, alert.DeviationPct)
}

// enrichmentSection renders the optional anomaly-confirmation/correlation
// supplement (SPEC_FULL.md §12.1) as an additional prompt section. Returns
// "" when enriched is nil or carries neither a confirmation nor any
// correlations, so the prompt shape is unchanged when the Engine has
// neither collaborator configured.
func enrichmentSection(enriched *discovery.EnrichedContext) string {
	if enriched == nil || (enriched.Confirmation == nil && len(enriched.Correlations) == 0) {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n## Enriched Context\n")
	if enriched.Confirmation != nil {
		status := "not confirmed"
		if enriched.AnomalyConfirmed {
			status = "confirmed"
		}
		fmt.Fprintf(&b, "Anomaly re-query: %s - %s\n", status, enriched.Confirmation.Detail)
	}
	if len(enriched.Correlations) > 0 {
		b.WriteString("Correlated metrics moving at the same time:\n")
		for _, c := range enriched.Correlations {
			fmt.Fprintf(&b, "- %s: %s\n", c.Table, c.Description)
		}
	}
	return b.String()
}
