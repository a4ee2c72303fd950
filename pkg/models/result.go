package models

// Error classes surfaced in a TranslationResult when recovery is exhausted.
const (
	ErrorClassResolutionFailure = "resolution_failure"
	ErrorClassUnjoinableTables  = "unjoinable_tables"
	ErrorClassLowConfidence     = "low_confidence"
	ErrorClassGeneration        = "generation_inconsistency"
	ErrorClassExecution         = "execution_failure"
)

// TranslationResult is the output of one translation request. SQL is a
// first-class artifact: it is always populated when generation succeeded,
// on dry-run and executed requests alike, so callers can audit what ran.
type TranslationResult struct {
	// SQL is the generated statement with schema-qualified identifiers.
	SQL string `json:"sql,omitempty"`

	// ExecutedSQL is the statement form that actually ran, which differs
	// from SQL when the schema-prefix fallback retry kicked in. Empty on
	// dry-run or when execution was not attempted.
	ExecutedSQL string `json:"executed_sql,omitempty"`

	Columns []string         `json:"columns,omitempty"`
	Rows    []map[string]any `json:"rows,omitempty"`

	// Intent echoes the parsed interpretation for auditability.
	Intent *QueryIntent `json:"intent,omitempty"`

	// ErrorClass and Explanation are set when the engine stopped short of
	// producing or executing SQL. A result never silently comes back
	// empty: either rows were fetched, or these fields say why not.
	ErrorClass  string `json:"error_class,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}
