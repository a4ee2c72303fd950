package translate

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/reconcile-labs/query-engine/pkg/apperrors"
	"github.com/reconcile-labs/query-engine/pkg/graph"
	"github.com/reconcile-labs/query-engine/pkg/models"
	"github.com/reconcile-labs/query-engine/pkg/sqlcheck"
)

// Generator turns a validated intent plus a resolved join path into an
// executable statement. Generation is deterministic: the same intent and
// graph always yield byte-identical SQL.
type Generator struct {
	g        *graph.Graph
	dialect  Dialect
	rowLimit int
	logger   *zap.Logger
}

// NewGenerator creates a generator. rowLimit is the hard cap appended to
// every statement.
func NewGenerator(g *graph.Graph, dialect Dialect, rowLimit int, logger *zap.Logger) *Generator {
	if rowLimit <= 0 {
		rowLimit = 500
	}
	return &Generator{
		g:        g,
		dialect:  dialect,
		rowLimit: rowLimit,
		logger:   logger.Named("generator"),
	}
}

// aliasTable assigns short table aliases in join order, source first.
type aliasTable struct {
	byTable map[string]string // lowercase canonical -> alias
	next    int
}

func newAliasTable() *aliasTable {
	return &aliasTable{byTable: make(map[string]string)}
}

func (a *aliasTable) assign(canonical string) string {
	key := strings.ToLower(canonical)
	if alias, ok := a.byTable[key]; ok {
		return alias
	}
	var alias string
	if a.next < 26 {
		alias = string(rune('a' + a.next))
	} else {
		alias = fmt.Sprintf("t%d", a.next+1)
	}
	a.next++
	a.byTable[key] = alias
	return alias
}

func (a *aliasTable) lookup(canonical string) (string, bool) {
	alias, ok := a.byTable[strings.ToLower(canonical)]
	return alias, ok
}

// Generate produces the SQL statement for an intent and its resolved join
// path. The path must run from the intent's source table to its target; an
// empty path means the tables are unified and no join clause is emitted.
func (gen *Generator) Generate(intent *models.QueryIntent, path []graph.Edge) (string, error) {
	if intent.SourceTable == "" {
		return "", &Error{
			Class:       models.ErrorClassGeneration,
			Explanation: "intent has no source table",
			Err:         apperrors.ErrTableNotResolved,
		}
	}

	if hits := sqlcheck.CheckFilters(intent.Filters); len(hits) > 0 {
		gen.logger.Warn("filter value failed injection screening",
			zap.String("column", hits[0].Column),
			zap.String("fingerprint", hits[0].Fingerprint))
		return "", &Error{
			Class:       models.ErrorClassGeneration,
			Explanation: fmt.Sprintf("filter value for column %q failed injection screening", hits[0].Column),
			Err:         apperrors.ErrInjectionDetected,
		}
	}

	aliases := newAliasTable()
	srcAlias := aliases.assign(intent.SourceTable)

	// The final edge of a not_in path becomes an anti-join.
	antiJoin := intent.Operation == models.OperationNotIn && len(path) > 0

	var joins []string
	for i, edge := range path {
		fromAlias, ok := aliases.lookup(edge.SourceTable)
		if !ok {
			fromAlias = aliases.assign(edge.SourceTable)
		}
		toAlias := aliases.assign(edge.TargetTable)

		joinKind := "INNER JOIN"
		if antiJoin && i == len(path)-1 {
			joinKind = "LEFT JOIN"
		}
		joins = append(joins, fmt.Sprintf("%s %s AS %s ON %s.%s = %s.%s",
			joinKind, edge.TargetTable, toAlias,
			fromAlias, edge.SourceColumn, toAlias, edge.TargetColumn))
	}

	defaultTable := intent.SourceTable
	if intent.QueryType == models.QueryTypeComparison && intent.TargetTable != "" {
		defaultTable = intent.TargetTable
	}

	var conditions []string
	filters := intent.Filters
	if antiJoin {
		last := path[len(path)-1]
		lastAlias, _ := aliases.lookup(last.TargetTable)

		// Filters bound to the anti-joined table go into the join's ON
		// clause. On unmatched rows every column of that table is NULL, so
		// a WHERE predicate on it can never hold alongside the IS NULL
		// check and would reject every row.
		var remaining []models.Filter
		for _, filter := range filters {
			bound := filter.Table
			if bound == "" {
				bound = defaultTable
			}
			if strings.EqualFold(gen.canonicalName(bound), last.TargetTable) {
				joins[len(joins)-1] += " AND " + gen.renderFilter(filter, aliases, defaultTable, srcAlias)
			} else {
				remaining = append(remaining, filter)
			}
		}
		filters = remaining
		conditions = append(conditions, fmt.Sprintf("%s.%s IS NULL", lastAlias, last.TargetColumn))
	}
	for _, filter := range filters {
		conditions = append(conditions, gen.renderFilter(filter, aliases, defaultTable, srcAlias))
	}

	selectCols := []string{srcAlias + ".*"}
	selectCols = append(selectCols, gen.renderAdditionalColumns(intent, aliases, &joins)...)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selectCols, ", "))
	sb.WriteString("\nFROM ")
	sb.WriteString(gen.canonicalName(intent.SourceTable))
	sb.WriteString(" AS ")
	sb.WriteString(srcAlias)
	for _, join := range joins {
		sb.WriteString("\n")
		sb.WriteString(join)
	}
	if len(conditions) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}

	return gen.dialect.ApplyRowCap(sb.String(), gen.rowLimit), nil
}

// canonicalName returns the graph's exact-cased canonical identifier so
// casing is never normalized or guessed.
func (gen *Generator) canonicalName(table string) string {
	if t, ok := gen.g.Table(table); ok {
		return t.Canonical
	}
	return table
}

// renderFilter emits one WHERE predicate. Unknown columns are logged but do
// not block generation; existence is re-checked at execution.
func (gen *Generator) renderFilter(filter models.Filter, aliases *aliasTable, defaultTable, srcAlias string) string {
	boundTable := filter.Table
	if boundTable == "" {
		boundTable = defaultTable
	}

	alias, ok := aliases.lookup(boundTable)
	if !ok {
		alias = srcAlias
	}

	column := filter.Column
	if t, ok := gen.g.Table(boundTable); ok {
		if exact, found := t.Column(column); found {
			column = exact
		} else {
			gen.logger.Warn("filter references a column not on the resolved table",
				zap.String("column", column),
				zap.String("table", boundTable))
		}
	}

	operator := filter.Operator
	value := filter.Value
	if list, isList := value.([]any); isList {
		if operator == "" || operator == "=" {
			operator = "IN"
		}
		rendered := make([]string, len(list))
		for i, item := range list {
			rendered[i] = renderValue(item)
		}
		return fmt.Sprintf("%s.%s %s (%s)", alias, column, operator, strings.Join(rendered, ", "))
	}

	if operator == "" {
		operator = "="
	}
	if value == nil {
		if operator == "!=" {
			return fmt.Sprintf("%s.%s IS NOT NULL", alias, column)
		}
		return fmt.Sprintf("%s.%s IS NULL", alias, column)
	}
	return fmt.Sprintf("%s.%s %s %s", alias, column, operator, renderValue(value))
}

// renderAdditionalColumns appends projections for requested columns beyond
// the source/target pair, joining each column's own path. Tables already
// joined are reused; new tables come in as LEFT JOINs so an unmatched
// lookup never drops source rows.
func (gen *Generator) renderAdditionalColumns(intent *models.QueryIntent, aliases *aliasTable, joins *[]string) []string {
	var cols []string
	used := make(map[string]bool)
	for _, t := range []string{intent.SourceTable, intent.TargetTable} {
		if table, ok := gen.g.Table(t); ok {
			for _, name := range table.ColumnNames() {
				used[strings.ToLower(name)] = true
			}
		}
	}

	for _, ac := range intent.AdditionalColumns {
		for _, step := range ac.JoinPath {
			fromAlias, ok := aliases.lookup(step.FromTable)
			if !ok {
				gen.logger.Warn("additional column path does not connect to a joined table",
					zap.String("column", ac.Column),
					zap.String("from_table", step.FromTable))
				break
			}
			if _, joined := aliases.lookup(step.ToTable); joined {
				continue
			}
			toAlias := aliases.assign(step.ToTable)
			*joins = append(*joins, fmt.Sprintf("LEFT JOIN %s AS %s ON %s.%s = %s.%s",
				gen.canonicalName(step.ToTable), toAlias,
				fromAlias, step.FromColumn, toAlias, step.ToColumn))
		}

		owningAlias, ok := aliases.lookup(ac.Table)
		if !ok {
			gen.logger.Warn("additional column skipped: owning table not joined",
				zap.String("column", ac.Column),
				zap.String("table", ac.Table))
			continue
		}

		column := ac.Column
		if t, found := gen.g.Table(ac.Table); found {
			if exact, hasCol := t.Column(column); hasCol {
				column = exact
			} else {
				gen.logger.Warn("additional column not on its table",
					zap.String("column", column),
					zap.String("table", ac.Table))
			}
		}

		outAlias := ac.Alias
		if outAlias == "" {
			outAlias = deriveColumnAlias(ac.Table, column, used)
		}
		used[strings.ToLower(outAlias)] = true
		cols = append(cols, fmt.Sprintf("%s.%s AS %s", owningAlias, column, outAlias))
	}
	return cols
}

// deriveColumnAlias builds the default output alias <table>_<column> from
// the bare table name, de-collided against columns already projected.
func deriveColumnAlias(table, column string, used map[string]bool) string {
	bare := table
	if idx := strings.LastIndex(bare, "."); idx >= 0 {
		bare = bare[idx+1:]
	}
	base := strings.ToLower(bare) + "_" + strings.ToLower(column)
	alias := base
	for n := 2; used[alias]; n++ {
		alias = fmt.Sprintf("%s_%d", base, n)
	}
	return alias
}

// renderValue renders a filter value as a SQL literal. String literals are
// single-quote escaped; they were already screened for injection patterns.
func renderValue(v any) string {
	switch value := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(value, "'", "''") + "'"
	case bool:
		if value {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return "'" + strings.ReplaceAll(fmt.Sprintf("%v", value), "'", "''") + "'"
	}
}
