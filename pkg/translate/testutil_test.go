package translate

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reconcile-labs/query-engine/pkg/graph"
	"github.com/reconcile-labs/query-engine/pkg/models"
)

// testSchemaInput is the reconciliation-style fixture shared by the
// translate tests: products joined to a planning sheet across schemas,
// with a master lookup one hop behind it and an unconnected island table.
func testSchemaInput() models.SchemaInput {
	return models.SchemaInput{
		Name: "reconciliation",
		Schemas: []models.SchemaDef{
			{
				Name: "RBP",
				Tables: []models.TableDef{
					{
						Name:    "Products",
						Aliases: []string{"products", "rbp products"},
						Columns: []models.ColumnDef{
							{Name: "Material", DataType: "varchar", IsPrimaryKey: true},
							{Name: "Product_Name", DataType: "varchar"},
							{Name: "Division", DataType: "varchar"},
						},
						ForeignKeys: []models.ForeignKeyDef{
							{Column: "Material", TargetTable: "OPS.Excel", TargetColumn: "PLANNING_SKU"},
						},
					},
				},
			},
			{
				Name: "OPS",
				Tables: []models.TableDef{
					{
						Name:    "Excel",
						Aliases: []string{"ops excel", "ops"},
						Columns: []models.ColumnDef{
							{Name: "PLANNING_SKU", DataType: "varchar", IsPrimaryKey: true},
							{Name: "Active_Inactive", DataType: "varchar"},
						},
						ForeignKeys: []models.ForeignKeyDef{
							{Column: "PLANNING_SKU", TargetTable: "MASTER.Master", TargetColumn: "PLANNING_SKU"},
						},
					},
				},
			},
			{
				Name: "MASTER",
				Tables: []models.TableDef{
					{
						Name:    "Master",
						Aliases: []string{"master"},
						Columns: []models.ColumnDef{
							{Name: "PLANNING_SKU", DataType: "varchar", IsPrimaryKey: true},
							{Name: "OPS_PLANNER", DataType: "varchar"},
						},
					},
				},
			},
			{
				Name: "ISLAND",
				Tables: []models.TableDef{
					{
						Name: "Orphan",
						Columns: []models.ColumnDef{
							{Name: "Orphan_Key", DataType: "varchar", IsPrimaryKey: true},
						},
					},
				},
			},
		},
	}
}

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.Build(testSchemaInput(), graph.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	return g
}

func testResolver(t *testing.T, g *graph.Graph) *graph.Resolver {
	t.Helper()
	return graph.NewResolver(g, 0.72, zap.NewNop())
}

func testGenerator(t *testing.T, g *graph.Graph) *Generator {
	t.Helper()
	return NewGenerator(g, DialectFor("postgres"), 500, zap.NewNop())
}
