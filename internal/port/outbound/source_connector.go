package outbound

import (
	"context"

	"vectorsync/internal/domain/entity"
)

// ConnectionStatus reports the outcome of a source connection probe.
type ConnectionStatus struct {
	Success bool
	Message string
	Version string
}

// QueryResult is one bounded page of source rows. Columns preserves the
// select-list order; Rows maps column name to value.
type QueryResult struct {
	Columns []string
	Rows    []map[string]any
}

// SourceConnector executes parameterized queries against a relational source.
// Query params substitute {{name}} placeholders textually before execution.
type SourceConnector interface {
	TestConnection(ctx context.Context, ds *entity.Datasource) (*ConnectionStatus, error)
	ExecuteQuery(ctx context.Context, ds *entity.Datasource, query string, params map[string]string) (*QueryResult, error)
}
