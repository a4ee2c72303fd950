package apperrors

import "errors"

var (
	ErrTableNotResolved  = errors.New("table could not be resolved")
	ErrColumnNotFound    = errors.New("column not found on table")
	ErrUnjoinableTables  = errors.New("no join path between tables")
	ErrLowConfidence     = errors.New("intent confidence below threshold")
	ErrInjectionDetected = errors.New("filter value failed injection screening")
	ErrExecutionFailed   = errors.New("query execution failed")
)
