package translate

import "fmt"

// Dialect abstracts the per-database pieces of SQL generation. The only
// divergence the engine cares about is how the hard row cap is expressed.
type Dialect interface {
	Name() string
	ApplyRowCap(sqlText string, limit int) string
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) ApplyRowCap(sqlText string, limit int) string {
	return fmt.Sprintf("%s\nLIMIT %d", sqlText, limit)
}

type mssqlDialect struct{}

func (mssqlDialect) Name() string { return "mssql" }

func (mssqlDialect) ApplyRowCap(sqlText string, limit int) string {
	return fmt.Sprintf("SELECT TOP (%d) * FROM (\n%s\n) AS _capped", limit, sqlText)
}

// DialectFor returns the dialect for a datasource type. Unknown types fall
// back to PostgreSQL syntax.
func DialectFor(dbType string) Dialect {
	if dbType == "mssql" {
		return mssqlDialect{}
	}
	return postgresDialect{}
}
