//go:build mssql || all_adapters

package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/reconcile-labs/query-engine/pkg/adapters/datasource"
	"github.com/reconcile-labs/query-engine/pkg/retry"
)

// QueryExecutor provides SQL Server query execution.
type QueryExecutor struct {
	db *sql.DB
}

// NewQueryExecutor creates a SQL Server query executor. The initial ping is
// retried with backoff since target databases may still be warming up.
func NewQueryExecutor(ctx context.Context, cfg *Config) (*QueryExecutor, error) {
	connStr := buildConnectionString(cfg)

	db, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*sql.DB, error) {
		d, err := sql.Open("sqlserver", connStr)
		if err != nil {
			return nil, err
		}
		if err := d.PingContext(ctx); err != nil {
			d.Close()
			return nil, err
		}
		return d, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to sqlserver: %w", err)
	}

	return &QueryExecutor{db: db}, nil
}

// Query runs a SELECT statement and returns bounded results.
// See datasource.QueryExecutor.Query for limit behavior.
func (e *QueryExecutor) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryExecutionResult, error) {
	effectiveLimit := limit
	if effectiveLimit <= 0 || effectiveLimit > datasource.MaxQueryLimit {
		effectiveLimit = datasource.MaxQueryLimit
	}
	queryToRun := fmt.Sprintf("SELECT TOP (%d) * FROM (%s) AS _limited", effectiveLimit, sqlQuery)

	rows, err := e.db.QueryContext(ctx, queryToRun)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columnNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read column names: %w", err)
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	columns := make([]datasource.ColumnInfo, len(columnNames))
	for i, name := range columnNames {
		columns[i] = datasource.ColumnInfo{
			Name: name,
			Type: columnTypes[i].DatabaseTypeName(),
		}
	}

	resultRows := make([]map[string]any, 0)
	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]any)
		for i, col := range columns {
			v := values[i]
			// The driver returns string-typed columns as []byte.
			if b, ok := v.([]byte); ok && isStringType(col.Type) {
				v = string(b)
			}
			rowMap[col.Name] = v
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &datasource.QueryExecutionResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// QuoteIdentifier safely quotes a SQL identifier using SQL Server's
// bracket quoting.
func (e *QueryExecutor) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// Close releases the underlying database handle.
func (e *QueryExecutor) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

func isStringType(dbType string) bool {
	switch strings.ToUpper(dbType) {
	case "VARCHAR", "NVARCHAR", "CHAR", "NCHAR", "TEXT", "NTEXT", "XML", "UNIQUEIDENTIFIER":
		return true
	default:
		return false
	}
}

// Ensure QueryExecutor implements datasource.QueryExecutor at compile time.
var _ datasource.QueryExecutor = (*QueryExecutor)(nil)
