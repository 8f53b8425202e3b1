// Package adapters defines the external collaborator contracts named in
// spec.md §6: the data-source (warehouse) adapter, the lineage adapter, and
// the feedback emitter. These are explicitly out of core scope per
// spec.md §1 — only the contracts live here; concrete implementations
// (SQL dialects, lineage providers, a Postgres-backed feedback log) are
// replaceable strategies behind them.
package adapters

import (
	"context"

	"github.com/dataing-sh/investigator/pkg/discovery/contextdata"
)

// QueryErrorCode is the closed set of typed error codes a data-source
// adapter may report (spec.md §6.1). The orchestrator treats every one of
// them identically: a non-terminal query failure feeding the reflexion
// loop.
type QueryErrorCode string

const (
	ErrConnectionFailed     QueryErrorCode = "CONNECTION_FAILED"
	ErrAuthenticationFailed QueryErrorCode = "AUTHENTICATION_FAILED"
	ErrQuerySyntaxError     QueryErrorCode = "QUERY_SYNTAX_ERROR"
	ErrQueryTimeout         QueryErrorCode = "QUERY_TIMEOUT"
	ErrAccessDenied         QueryErrorCode = "ACCESS_DENIED"
	ErrRateLimited          QueryErrorCode = "RATE_LIMITED"
	ErrSchemaFetchFailed    QueryErrorCode = "SCHEMA_FETCH_FAILED"
	ErrNotImplemented       QueryErrorCode = "NOT_IMPLEMENTED"
	ErrInternal             QueryErrorCode = "INTERNAL_ERROR"
)

// QueryError wraps a data-source adapter fault with its closed-set code.
type QueryError struct {
	Code    QueryErrorCode
	Message string
}

func (e *QueryError) Error() string { return string(e.Code) + ": " + e.Message }

// Row is one result row, keyed by column name.
type Row map[string]any

// QueryResult is the outcome of one execute_query call (spec.md §6.1).
type QueryResult struct {
	Columns         []contextdata.Column
	Rows            []Row
	RowCount        int
	Truncated       bool
	ExecutionTimeMS int64
}

// ToSummary renders a compact, truncated textual summary of the result for
// inclusion in the interpretation prompt (spec.md §4.4c).
func (r QueryResult) ToSummary() string {
	return summarizeRows(r.Columns, r.Rows, r.RowCount, r.Truncated)
}

// SchemaFilter optionally narrows schema discovery (spec.md §6.1).
type SchemaFilter struct {
	TableNamePrefix string
}

// DataSourceAdapter is the warehouse-side contract the orchestrator depends
// on: read-only query execution and schema discovery (spec.md §6.1).
type DataSourceAdapter interface {
	ExecuteQuery(ctx context.Context, sql string, params map[string]any, timeoutSeconds int, limit *int) (QueryResult, error)
	GetSchema(ctx context.Context, filter *SchemaFilter) (*contextdata.SchemaContext, error)
}

// Dataset is one node in a lineage graph (spec.md §6.2).
type Dataset struct {
	QualifiedName string
	Platform      string
}

// LineageAdapter is the lineage-provider contract (spec.md §6.2). The
// context engine only calls GetUpstream/GetDownstream with depth 1;
// GetDataset/SearchDatasets exist for completeness of the named contract.
type LineageAdapter interface {
	GetUpstream(ctx context.Context, datasetID string, depth int) ([]Dataset, error)
	GetDownstream(ctx context.Context, datasetID string, depth int) ([]Dataset, error)
	GetDataset(ctx context.Context, datasetID string) (*Dataset, error)
	SearchDatasets(ctx context.Context, query string, limit int) ([]Dataset, error)
}

// FeedbackEmitter is the append-only audit/training-signal sink (spec.md
// §6.3). Failures are expected to be swallowed by callers, not by the
// emitter itself — it reports errors faithfully; it is the orchestrator's
// job to treat them as fire-and-forget.
type FeedbackEmitter interface {
	Emit(ctx context.Context, tenantID string, eventType string, eventData map[string]any, investigationID, datasetID, actorID *string, actorType string) error
}
