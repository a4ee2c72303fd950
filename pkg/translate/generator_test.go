package translate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reconcile-labs/query-engine/pkg/apperrors"
	"github.com/reconcile-labs/query-engine/pkg/graph"
	"github.com/reconcile-labs/query-engine/pkg/models"
)

func comparisonIntent(operation string) *models.QueryIntent {
	intent := models.NewQueryIntent("test")
	intent.QueryType = models.QueryTypeComparison
	intent.Operation = operation
	intent.SourceTable = "RBP.Products"
	intent.TargetTable = "OPS.Excel"
	intent.Confidence = 0.8
	return intent
}

func directPath(t *testing.T, g *graph.Graph) []graph.Edge {
	t.Helper()
	path, err := g.FindPath("RBP.Products", "OPS.Excel", 0)
	require.NoError(t, err)
	return path
}

func TestGenerateMembershipWithStatusFilter(t *testing.T) {
	g := testGraph(t)
	gen := testGenerator(t, g)

	intent := comparisonIntent(models.OperationIn)
	intent.Filters = append(intent.Filters, models.Filter{
		Column: "Active_Inactive", Operator: "=", Value: "Active", Table: "OPS.Excel",
	})

	sql, err := gen.Generate(intent, directPath(t, g))
	require.NoError(t, err)

	expected := "SELECT a.*\n" +
		"FROM RBP.Products AS a\n" +
		"INNER JOIN OPS.Excel AS b ON a.Material = b.PLANNING_SKU\n" +
		"WHERE b.Active_Inactive = 'Active'\n" +
		"LIMIT 500"
	assert.Equal(t, expected, sql)
}

func TestGenerateMatchedHasNoExtraPredicate(t *testing.T) {
	g := testGraph(t)
	gen := testGenerator(t, g)

	sql, err := gen.Generate(comparisonIntent(models.OperationMatched), directPath(t, g))
	require.NoError(t, err)

	assert.Contains(t, sql, "INNER JOIN OPS.Excel AS b ON a.Material = b.PLANNING_SKU")
	assert.NotContains(t, sql, "WHERE")
}

func TestGenerateNotInIsAntiJoin(t *testing.T) {
	g := testGraph(t)
	gen := testGenerator(t, g)

	intent := comparisonIntent(models.OperationNotIn)
	intent.Filters = append(intent.Filters, models.Filter{
		Column: "Active_Inactive", Operator: "=", Value: "Active", Table: "OPS.Excel",
	})

	sql, err := gen.Generate(intent, directPath(t, g))
	require.NoError(t, err)

	// The target filter belongs in the LEFT JOIN's ON clause: unmatched
	// rows null every b column, so b.Active_Inactive = 'Active' in the
	// outer WHERE could never hold alongside the IS NULL check.
	expected := "SELECT a.*\n" +
		"FROM RBP.Products AS a\n" +
		"LEFT JOIN OPS.Excel AS b ON a.Material = b.PLANNING_SKU AND b.Active_Inactive = 'Active'\n" +
		"WHERE b.PLANNING_SKU IS NULL\n" +
		"LIMIT 500"
	assert.Equal(t, expected, sql)
}

func TestGenerateNotInKeepsAntiJoinedFiltersOutOfWhere(t *testing.T) {
	g := testGraph(t)
	gen := testGenerator(t, g)

	intent := comparisonIntent(models.OperationNotIn)
	intent.Filters = append(intent.Filters,
		models.Filter{Column: "Active_Inactive", Operator: "=", Value: "Active", Table: "OPS.Excel"},
		models.Filter{Column: "Division", Operator: "=", Value: "Chemicals", Table: "RBP.Products"},
	)

	sql, err := gen.Generate(intent, directPath(t, g))
	require.NoError(t, err)

	whereIdx := strings.Index(sql, "WHERE")
	require.GreaterOrEqual(t, whereIdx, 0)
	whereClause := sql[whereIdx:]

	// No predicate on the anti-joined alias may appear in the WHERE clause
	// except the IS NULL check; anything else is unsatisfiable.
	assert.Contains(t, whereClause, "b.PLANNING_SKU IS NULL")
	assert.NotContains(t, whereClause, "b.Active_Inactive")
	assert.Contains(t, whereClause, "a.Division = 'Chemicals'")
	assert.Contains(t, sql, "ON a.Material = b.PLANNING_SKU AND b.Active_Inactive = 'Active'")
}

func TestGenerateFilterBindsToTargetAlias(t *testing.T) {
	g := testGraph(t)
	gen := testGenerator(t, g)

	// A filter with no explicit table binds to the target for comparison
	// intents, never the source.
	intent := comparisonIntent(models.OperationNotIn)
	intent.Filters = append(intent.Filters, models.Filter{
		Column: "Active_Inactive", Operator: "=", Value: "Active",
	})

	sql, err := gen.Generate(intent, directPath(t, g))
	require.NoError(t, err)
	assert.Contains(t, sql, "b.Active_Inactive = 'Active'")
	assert.NotContains(t, sql, "a.Active_Inactive")
}

func TestGenerateUnifiedTablesEmitNoSelfJoin(t *testing.T) {
	g := testGraph(t)
	gen := testGenerator(t, g)

	intent := comparisonIntent(models.OperationMatched)
	intent.TargetTable = "RBP.Products"
	intent.Filters = append(intent.Filters, models.Filter{
		Column: "Division", Operator: "=", Value: "Chemicals",
	})

	// Same canonical id on both ends resolves to an empty unified path.
	path, err := g.FindPath("RBP.Products", "rbp.products", 0)
	require.NoError(t, err)
	require.Empty(t, path)

	sql, err := gen.Generate(intent, path)
	require.NoError(t, err)
	assert.NotContains(t, sql, "JOIN")
	assert.Contains(t, sql, "WHERE a.Division = 'Chemicals'")
}

func TestGenerateIsDeterministic(t *testing.T) {
	g := testGraph(t)
	gen := testGenerator(t, g)

	intent := comparisonIntent(models.OperationIn)
	intent.Filters = append(intent.Filters, models.Filter{
		Column: "Active_Inactive", Operator: "=", Value: "Active", Table: "OPS.Excel",
	})
	path := directPath(t, g)

	first, err := gen.Generate(intent, path)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := gen.Generate(intent, path)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestGenerateAdditionalColumnReusesJoinedTables(t *testing.T) {
	g := testGraph(t)
	gen := testGenerator(t, g)

	intent := comparisonIntent(models.OperationIn)
	intent.AdditionalColumns = append(intent.AdditionalColumns, models.AdditionalColumn{
		Column: "OPS_PLANNER",
		Table:  "MASTER.Master",
		JoinPath: []models.JoinStep{
			{FromTable: "RBP.Products", FromColumn: "Material", ToTable: "OPS.Excel", ToColumn: "PLANNING_SKU"},
			{FromTable: "OPS.Excel", FromColumn: "PLANNING_SKU", ToTable: "MASTER.Master", ToColumn: "PLANNING_SKU"},
		},
	})

	sql, err := gen.Generate(intent, directPath(t, g))
	require.NoError(t, err)

	// The bridge (OPS.Excel) is already joined as b and must not repeat.
	assert.Equal(t, 1, strings.Count(sql, "OPS.Excel AS"))
	assert.Contains(t, sql, "LEFT JOIN MASTER.Master AS c ON b.PLANNING_SKU = c.PLANNING_SKU")
	assert.Contains(t, sql, "c.OPS_PLANNER AS master_ops_planner")
}

func TestGenerateAdditionalColumnAliasDeCollides(t *testing.T) {
	used := map[string]bool{"master_ops_planner": true}
	alias := deriveColumnAlias("MASTER.Master", "OPS_PLANNER", used)
	assert.Equal(t, "master_ops_planner_2", alias)
}

func TestGenerateRejectsInjectionValues(t *testing.T) {
	g := testGraph(t)
	gen := testGenerator(t, g)

	intent := comparisonIntent(models.OperationIn)
	intent.Filters = append(intent.Filters, models.Filter{
		Column: "Active_Inactive", Operator: "=", Value: "x' OR '1'='1", Table: "OPS.Excel",
	})

	_, err := gen.Generate(intent, directPath(t, g))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInjectionDetected)

	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, models.ErrorClassGeneration, terr.Class)
}

func TestGenerateUnknownFilterColumnStillProceeds(t *testing.T) {
	g := testGraph(t)
	gen := testGenerator(t, g)

	intent := comparisonIntent(models.OperationIn)
	intent.Filters = append(intent.Filters, models.Filter{
		Column: "Not_A_Column", Operator: "=", Value: "x", Table: "OPS.Excel",
	})

	sql, err := gen.Generate(intent, directPath(t, g))
	require.NoError(t, err)
	assert.Contains(t, sql, "b.Not_A_Column = 'x'")
}

func TestGenerateListValue(t *testing.T) {
	g := testGraph(t)
	gen := testGenerator(t, g)

	intent := models.NewQueryIntent("test")
	intent.QueryType = models.QueryTypeFilter
	intent.SourceTable = "RBP.Products"
	intent.Filters = append(intent.Filters, models.Filter{
		Column: "Division", Value: []any{"Chemicals", "Polymers"},
	})

	sql, err := gen.Generate(intent, nil)
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE a.Division IN ('Chemicals', 'Polymers')")
}

func TestRenderValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "Active", "'Active'"},
		{"string with quote", "O'Neil", "'O''Neil'"},
		{"int", 42, "42"},
		{"float", 42.5, "42.5"},
		{"whole float", float64(500), "500"},
		{"bool", true, "TRUE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderValue(tt.value))
		})
	}
}

func TestMSSQLDialectRowCap(t *testing.T) {
	g := testGraph(t)
	gen := NewGenerator(g, DialectFor("mssql"), 100, zap.NewNop())

	sql, err := gen.Generate(comparisonIntent(models.OperationMatched), directPath(t, g))
	require.NoError(t, err)
	assert.Contains(t, sql, "SELECT TOP (100) * FROM (")
	assert.Contains(t, sql, ") AS _capped")
	assert.NotContains(t, sql, "LIMIT")
}
