package translate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reconcile-labs/query-engine/pkg/adapters/datasource"
	"github.com/reconcile-labs/query-engine/pkg/config"
	"github.com/reconcile-labs/query-engine/pkg/graph"
	"github.com/reconcile-labs/query-engine/pkg/models"
)

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		RowLimit:       500,
		MaxJoinHops:    4,
		FuzzyThreshold: 0.72,
		MinConfidence:  0.4,
	}
}

func newTestEngine(t *testing.T, g *graph.Graph, exec datasource.QueryExecutor, engCfg config.EngineConfig) *Engine {
	t.Helper()
	logger := zap.NewNop()
	parser := newTestParser(t, g, nil)
	generator := NewGenerator(g, DialectFor("postgres"), engCfg.RowLimit, logger)

	var runner *Runner
	if exec != nil {
		runner = NewRunner(exec, g.SchemaNames(), engCfg.RowLimit, logger)
	}
	return NewEngine(g, parser, generator, runner, engCfg, logger)
}

func TestEngineEndToEndMembership(t *testing.T) {
	g := testGraph(t)
	exec := &fakeExecutor{respond: func(string) (*datasource.QueryExecutionResult, error) {
		return oneRowResult(), nil
	}}
	e := newTestEngine(t, g, exec, testEngineConfig())

	result := e.Translate(context.Background(), Request{
		Text: "show me all products in rbp which are in active ops excel",
	})

	require.Empty(t, result.ErrorClass, "explanation: %s", result.Explanation)
	assert.Contains(t, result.SQL, "INNER JOIN OPS.Excel AS b ON a.Material = b.PLANNING_SKU")
	assert.Contains(t, result.SQL, "WHERE b.Active_Inactive = 'Active'")
	assert.Contains(t, result.SQL, "LIMIT 500")
	assert.Equal(t, result.SQL, result.ExecutedSQL)
	assert.Equal(t, []string{"Material"}, result.Columns)
	require.Len(t, result.Rows, 1)
	require.NotNil(t, result.Intent)
	assert.Equal(t, "RBP.Products", result.Intent.SourceTable)
}

func TestEngineEndToEndSetDifference(t *testing.T) {
	g := testGraph(t)
	e := newTestEngine(t, g, nil, testEngineConfig())

	result := e.Translate(context.Background(), Request{
		Text: "show me all products in rbp which are not in active ops excel",
	})

	require.Empty(t, result.ErrorClass, "explanation: %s", result.Explanation)
	assert.Equal(t, models.OperationNotIn, result.Intent.Operation)

	// The status filter rides on the LEFT JOIN so the anti-join can still
	// match; a WHERE predicate on the anti-joined alias would reject every
	// row once its columns are NULL.
	assert.Contains(t, result.SQL, "LEFT JOIN OPS.Excel AS b ON a.Material = b.PLANNING_SKU AND b.Active_Inactive = 'Active'")
	assert.Contains(t, result.SQL, "WHERE b.PLANNING_SKU IS NULL")
	assert.NotContains(t, result.SQL, "IS NULL AND")
}

func TestEngineDryRunReturnsSQLOnly(t *testing.T) {
	g := testGraph(t)
	exec := &fakeExecutor{respond: func(string) (*datasource.QueryExecutionResult, error) {
		t.Fatal("dry run must not execute")
		return nil, nil
	}}
	e := newTestEngine(t, g, exec, testEngineConfig())

	result := e.Translate(context.Background(), Request{
		Text:   "show me all products in rbp which are in active ops excel",
		DryRun: true,
	})

	assert.Empty(t, result.ErrorClass)
	assert.NotEmpty(t, result.SQL)
	assert.Empty(t, result.ExecutedSQL)
	assert.Empty(t, result.Rows)
	assert.Empty(t, exec.queries)
}

func TestEngineWithoutRunnerBehavesAsDryRun(t *testing.T) {
	g := testGraph(t)
	e := newTestEngine(t, g, nil, testEngineConfig())

	result := e.Translate(context.Background(), Request{
		Text: "show me all products in rbp which are in active ops excel",
	})

	assert.Empty(t, result.ErrorClass)
	assert.NotEmpty(t, result.SQL)
	assert.Empty(t, result.ExecutedSQL)
}

func TestEngineUnregisteredTableIsResolutionFailure(t *testing.T) {
	g := testGraph(t)
	e := newTestEngine(t, g, nil, testEngineConfig())

	result := e.Translate(context.Background(), Request{
		Text: "summarize warehouse_zeta shipments",
	})

	assert.Equal(t, models.ErrorClassResolutionFailure, result.ErrorClass)
	assert.NotEmpty(t, result.Explanation)
	assert.Empty(t, result.SQL, "no statement may be generated from a guessed table name")
}

func TestEngineUnjoinableTables(t *testing.T) {
	g := testGraph(t)
	e := newTestEngine(t, g, nil, testEngineConfig())

	result := e.Translate(context.Background(), Request{
		Text: "show products in rbp which are in orphan",
	})

	assert.Equal(t, models.ErrorClassUnjoinableTables, result.ErrorClass)
	assert.Contains(t, result.Explanation, "ISLAND.Orphan")
	assert.Empty(t, result.SQL)
}

func TestEngineLowConfidenceGate(t *testing.T) {
	g := testGraph(t)
	cfg := testEngineConfig()
	cfg.MinConfidence = 0.95
	e := newTestEngine(t, g, nil, cfg)

	result := e.Translate(context.Background(), Request{
		Text: "show me all products in rbp which are in active ops excel",
	})

	assert.Equal(t, models.ErrorClassLowConfidence, result.ErrorClass)
	assert.Contains(t, result.Explanation, "below")
	assert.Empty(t, result.SQL)
}

func TestEngineSchemaPrefixFallback(t *testing.T) {
	g := testGraph(t)
	exec := &fakeExecutor{respond: func(sqlQuery string) (*datasource.QueryExecutionResult, error) {
		if strings.Contains(sqlQuery, "RBP.") || strings.Contains(sqlQuery, "OPS.") {
			return nil, errors.New(`relation "rbp.products" does not exist`)
		}
		return oneRowResult(), nil
	}}
	e := newTestEngine(t, g, exec, testEngineConfig())

	result := e.Translate(context.Background(), Request{
		Text: "show me all products in rbp which are in active ops excel",
	})

	require.Empty(t, result.ErrorClass, "explanation: %s", result.Explanation)
	require.Len(t, exec.queries, 2)

	// SQL keeps the qualified artifact; ExecutedSQL is what actually ran.
	assert.Contains(t, result.SQL, "RBP.Products")
	assert.NotContains(t, result.ExecutedSQL, "RBP.")
	assert.Contains(t, result.ExecutedSQL, "FROM Products AS a")
	require.Len(t, result.Rows, 1)
}

func TestEngineExecutionFailureSurfacesSQL(t *testing.T) {
	g := testGraph(t)
	exec := &fakeExecutor{respond: func(string) (*datasource.QueryExecutionResult, error) {
		return nil, errors.New("permission denied for table products")
	}}
	e := newTestEngine(t, g, exec, testEngineConfig())

	result := e.Translate(context.Background(), Request{
		Text: "show me all products in rbp which are in active ops excel",
	})

	assert.Equal(t, models.ErrorClassExecution, result.ErrorClass)
	assert.Contains(t, result.Explanation, "permission denied")
	assert.NotEmpty(t, result.SQL)
	assert.Len(t, exec.queries, 1)
}

func TestEngineAdditionalColumnScenario(t *testing.T) {
	g := testGraph(t)
	e := newTestEngine(t, g, nil, testEngineConfig())

	result := e.Translate(context.Background(), Request{
		Text: "show me all products in rbp which are in active ops excel and also include ops_planner from the master table",
	})

	require.Empty(t, result.ErrorClass, "explanation: %s", result.Explanation)
	assert.Equal(t, 1, strings.Count(result.SQL, "OPS.Excel AS"))
	assert.Contains(t, result.SQL, "LEFT JOIN MASTER.Master AS c ON b.PLANNING_SKU = c.PLANNING_SKU")
	assert.Contains(t, result.SQL, "c.OPS_PLANNER AS master_ops_planner")
}

func TestEngineAdditionalColumnUnreachableIsDropped(t *testing.T) {
	g := testGraph(t)
	e := newTestEngine(t, g, nil, testEngineConfig())

	result := e.Translate(context.Background(), Request{
		Text: "show me all products in rbp which are in active ops excel and also include orphan_key from the orphan table",
	})

	// The unreachable column is dropped; the main query still generates.
	require.Empty(t, result.ErrorClass, "explanation: %s", result.Explanation)
	assert.NotContains(t, result.SQL, "Orphan")
	assert.Empty(t, result.Intent.AdditionalColumns)
}

func TestEngineConcurrentTranslations(t *testing.T) {
	g := testGraph(t)
	e := newTestEngine(t, g, nil, testEngineConfig())

	done := make(chan *models.TranslationResult, 16)
	for i := 0; i < 16; i++ {
		go func() {
			done <- e.Translate(context.Background(), Request{
				Text: "show me all products in rbp which are in active ops excel",
			})
		}()
	}

	var first string
	for i := 0; i < 16; i++ {
		result := <-done
		require.Empty(t, result.ErrorClass)
		if first == "" {
			first = result.SQL
		}
		assert.Equal(t, first, result.SQL)
	}
}
