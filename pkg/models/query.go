package models

// Query types produced by classification.
const (
	QueryTypeComparison = "comparison" // two tables related by a join
	QueryTypeFilter     = "filter"     // single table with predicates
	QueryTypeLookup     = "lookup"     // plain projection, default on ambiguity
)

// Operations carried by a parsed intent.
const (
	OperationMatched = "matched" // equality join between source and target
	OperationNotIn   = "not_in"  // set difference: source rows absent from target
	OperationIn      = "in"      // set membership: source rows present in target
	OperationFilter  = "filter"  // plain predicate filtering, no second table
)

// Filter is one WHERE predicate extracted from the query text.
// Value may be a scalar or a []any for IN lists.
type Filter struct {
	Column   string `json:"column"`
	Operator string `json:"operator"` // "=", "!=", "IN", "NOT IN"
	Value    any    `json:"value"`
	// Table is the canonical table identifier the predicate is bound to.
	// For comparison intents this is the target table unless the parser
	// found evidence to the contrary.
	Table string `json:"table,omitempty"`
}

// JoinColumnPair names the columns joining source to target.
type JoinColumnPair struct {
	SourceColumn string `json:"source_column"`
	TargetColumn string `json:"target_column"`
}

// JoinStep is one traversal in an additional column's join path, expressed
// as plain table/column names so it survives serialization.
type JoinStep struct {
	FromTable  string `json:"from_table"`
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
}

// AdditionalColumn is a column requested from a table beyond the primary
// source/target pair, reached through its own join path.
type AdditionalColumn struct {
	Column     string     `json:"column"`
	Table      string     `json:"table"` // canonical identifier of the owning table
	Alias      string     `json:"alias"` // output alias, auto-derived when empty
	Confidence float64    `json:"confidence"`
	JoinPath   []JoinStep `json:"join_path,omitempty"`
}

// QueryIntent is the parsed representation of one natural-language
// definition. It is immutable once handed to SQL generation and is not
// persisted. Filters and JoinColumns are always non-nil; an empty slice
// means nothing was extracted.
type QueryIntent struct {
	RawText           string             `json:"raw_text"`
	QueryType         string             `json:"query_type"`
	SourceTable       string             `json:"source_table"` // canonical identifier
	TargetTable       string             `json:"target_table,omitempty"`
	Operation         string             `json:"operation"`
	Filters           []Filter           `json:"filters"`
	JoinColumns       []JoinColumnPair   `json:"join_columns"`
	AdditionalColumns []AdditionalColumn `json:"additional_columns,omitempty"`
	Confidence        float64            `json:"confidence"`
	Reasoning         string             `json:"reasoning,omitempty"`
}

// NewQueryIntent returns an intent with the slice invariants established.
func NewQueryIntent(text string) *QueryIntent {
	return &QueryIntent{
		RawText:     text,
		QueryType:   QueryTypeLookup,
		Operation:   OperationFilter,
		Filters:     []Filter{},
		JoinColumns: []JoinColumnPair{},
	}
}
