// Package datasource defines the execution-side interfaces of the engine:
// the bounded query executor implemented per database dialect, and the
// error-class taxonomy the translation layer keys its retry policy on.
package datasource

import "context"

// MaxQueryLimit is the hard cap on rows returned by Query.
// This protects against unbounded queries regardless of caller input.
const MaxQueryLimit = 1000

// QueryExecutor executes generated SELECT statements against a target
// database. Each implementation owns its connection and must be closed
// when done.
type QueryExecutor interface {
	// Query runs a SELECT statement and returns bounded results. The
	// query is ALWAYS wrapped with a dialect-specific limit:
	//   - PostgreSQL: SELECT * FROM (query) AS _limited LIMIT n
	//   - SQL Server: SELECT TOP (n) * FROM (query) AS _limited
	//
	// Limit behavior:
	//   - limit <= 0: uses MaxQueryLimit
	//   - limit > MaxQueryLimit: capped to MaxQueryLimit
	//   - otherwise: uses the specified limit
	Query(ctx context.Context, sqlQuery string, limit int) (*QueryExecutionResult, error)

	// QuoteIdentifier safely quotes a SQL identifier using the dialect's
	// quoting rules.
	QuoteIdentifier(name string) string

	// Close releases any resources held by the executor.
	Close() error
}

// ColumnInfo describes a result column with database-agnostic type information.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"` // Database type name (e.g., "TEXT", "INT4", "VARCHAR")
}

// QueryExecutionResult holds the results from executing a query.
type QueryExecutionResult struct {
	Columns  []ColumnInfo     `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// ColumnNames returns just the column names, in result order.
func (r *QueryExecutionResult) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}
