package datasource

import "strings"

// ErrorClass categorizes execution failures. The translation layer retries
// exactly once, and only for ErrorClassObjectNotFound against
// schema-qualified identifiers; everything else propagates immediately.
type ErrorClass string

const (
	ErrorClassObjectNotFound ErrorClass = "object_not_found"
	ErrorClassInvalidColumn  ErrorClass = "invalid_column"
	ErrorClassOther          ErrorClass = "other"
)

// ClassifyExecError maps a driver error onto the error-class taxonomy.
// Patterns cover PostgreSQL (SQLSTATE 42P01/42703) and SQL Server message
// text, plus the generic phrasings both emit.
func ClassifyExecError(err error) ErrorClass {
	if err == nil {
		return ErrorClassOther
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)

	switch {
	case strings.Contains(errStr, "42P01"), // undefined_table
		strings.Contains(lower, "invalid object name"),
		strings.Contains(lower, "relation") && strings.Contains(lower, "does not exist"),
		strings.Contains(lower, "table") && strings.Contains(lower, "does not exist"),
		strings.Contains(lower, "no such table"):
		return ErrorClassObjectNotFound

	case strings.Contains(errStr, "42703"), // undefined_column
		strings.Contains(lower, "invalid column name"),
		strings.Contains(lower, "column") && strings.Contains(lower, "does not exist"),
		strings.Contains(lower, "unknown column"):
		return ErrorClassInvalidColumn

	default:
		return ErrorClassOther
	}
}
