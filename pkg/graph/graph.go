// Package graph holds the in-memory schema knowledge graph: table nodes,
// relationship edges, and the alias machinery used to resolve business
// phrases to canonical table identifiers. A graph is built once per
// knowledge-graph name and is read-only afterwards, so any number of
// queries may resolve against it concurrently without coordination.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/reconcile-labs/query-engine/pkg/models"
)

// Relationship edge kinds.
const (
	EdgeKindForeignKey = "foreign_key" // declared FK constraint
	EdgeKindInferred   = "inferred"    // cross-schema reference inferred from column names
	EdgeKindLearned    = "learned"     // confirmed by a user or the model
)

// Table is a graph node. Canonical is schema-qualified and case-preserving;
// it is stable for the lifetime of the graph.
type Table struct {
	Canonical   string
	Schema      string
	Name        string
	Columns     []models.ColumnDef
	Description string

	columnsByLower map[string]string // lower name -> exact-cased name
}

// Column returns the exact-cased column name for a case-insensitive lookup.
func (t *Table) Column(name string) (string, bool) {
	exact, ok := t.columnsByLower[strings.ToLower(name)]
	return exact, ok
}

// ColumnNames returns the exact-cased column names in definition order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Edge is a relationship between two table nodes. Both columns are
// guaranteed to exist on their tables at edge-creation time.
type Edge struct {
	SourceTable  string  `json:"source_table"`
	SourceColumn string  `json:"source_column"`
	TargetTable  string  `json:"target_table"`
	TargetColumn string  `json:"target_column"`
	Kind         string  `json:"kind"`
	Confidence   float64 `json:"confidence"`
}

func (e Edge) reversed() Edge {
	return Edge{
		SourceTable:  e.TargetTable,
		SourceColumn: e.TargetColumn,
		TargetTable:  e.SourceTable,
		TargetColumn: e.SourceColumn,
		Kind:         e.Kind,
		Confidence:   e.Confidence,
	}
}

// Graph is the schema knowledge graph for one named knowledge graph.
type Graph struct {
	name    string
	tables  map[string]*Table // keyed by lowercase canonical id
	adj     map[string][]Edge // keyed by lowercase canonical id, edges oriented outward
	aliases *AliasMap
	schemas []string
	logger  *zap.Logger
}

// BuildOption customizes graph construction.
type BuildOption func(*buildOptions)

type buildOptions struct {
	logger    *zap.Logger
	overrides []Override
}

// WithLogger sets the construction and resolution logger.
func WithLogger(logger *zap.Logger) BuildOption {
	return func(o *buildOptions) { o.logger = logger }
}

// WithOverrides installs the curated alias override list. Overrides always
// win over learned and fuzzy matches.
func WithOverrides(overrides []Override) BuildOption {
	return func(o *buildOptions) { o.overrides = overrides }
}

// Build constructs the schema graph and its alias map from a set of named
// schemas. Declared foreign keys become edges with confidence 1.0;
// cross-schema references are inferred from matching key columns with lower
// confidence.
func Build(input models.SchemaInput, opts ...BuildOption) (*Graph, error) {
	options := &buildOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(options)
	}

	g := &Graph{
		name:    input.Name,
		tables:  make(map[string]*Table),
		adj:     make(map[string][]Edge),
		aliases: NewAliasMap(),
		logger:  options.logger.Named("graph"),
	}
	g.aliases.SetOverrides(options.overrides)

	for _, schema := range input.Schemas {
		g.schemas = append(g.schemas, schema.Name)
		for _, tableDef := range schema.Tables {
			if err := g.addTable(schema.Name, tableDef); err != nil {
				return nil, err
			}
		}
	}
	sort.Strings(g.schemas)

	// Declared FKs second, so every referenced table already exists.
	for _, schema := range input.Schemas {
		for _, tableDef := range schema.Tables {
			for _, fk := range tableDef.ForeignKeys {
				if err := g.addDeclaredForeignKey(schema.Name, tableDef.Name, fk); err != nil {
					return nil, err
				}
			}
		}
	}

	g.inferCrossSchemaReferences()

	g.logger.Info("knowledge graph built",
		zap.String("name", g.name),
		zap.Int("tables", len(g.tables)),
		zap.Int("aliases", g.aliases.Len()))

	return g, nil
}

func (g *Graph) addTable(schemaName string, def models.TableDef) error {
	canonical := fmt.Sprintf("%s.%s", schemaName, def.Name)
	key := strings.ToLower(canonical)
	if _, exists := g.tables[key]; exists {
		return fmt.Errorf("duplicate table %s", canonical)
	}

	table := &Table{
		Canonical:      canonical,
		Schema:         schemaName,
		Name:           def.Name,
		Columns:        def.Columns,
		Description:    def.Description,
		columnsByLower: make(map[string]string, len(def.Columns)),
	}
	for _, col := range def.Columns {
		table.columnsByLower[strings.ToLower(col.Name)] = col.Name
	}
	g.tables[key] = table

	g.registerNameAliases(table, def.Aliases)
	return nil
}

// registerNameAliases seeds the alias map with the canonical name, the bare
// table name, spacing/underscore variants, and singular/plural forms.
// Business aliases from the upload are learned last so an upload cannot
// shadow a structural name.
func (g *Graph) registerNameAliases(table *Table, businessAliases []string) {
	g.aliases.Learn(table.Canonical, table.Canonical)
	g.aliases.Learn(table.Name, table.Canonical)

	spaced := strings.ReplaceAll(table.Name, "_", " ")
	if spaced != table.Name {
		g.aliases.Learn(spaced, table.Canonical)
	}

	singular := inflection.Singular(table.Name)
	if singular != table.Name {
		g.aliases.Learn(singular, table.Canonical)
	}
	plural := inflection.Plural(table.Name)
	if plural != table.Name {
		g.aliases.Learn(plural, table.Canonical)
	}

	for _, alias := range businessAliases {
		if !g.aliases.Learn(alias, table.Canonical) {
			g.logger.Warn("business alias already mapped, keeping existing",
				zap.String("alias", alias),
				zap.String("table", table.Canonical))
		}
	}
}

func (g *Graph) addDeclaredForeignKey(schemaName, tableName string, fk models.ForeignKeyDef) error {
	source := fmt.Sprintf("%s.%s", schemaName, tableName)

	target := fk.TargetTable
	if !strings.Contains(target, ".") {
		// Bare target name: prefer same schema, else any schema with that table.
		if _, ok := g.Table(fmt.Sprintf("%s.%s", schemaName, target)); ok {
			target = fmt.Sprintf("%s.%s", schemaName, target)
		} else if resolved, ok := g.tableByBareName(target); ok {
			target = resolved.Canonical
		}
	}

	return g.AddEdge(Edge{
		SourceTable:  source,
		SourceColumn: fk.Column,
		TargetTable:  target,
		TargetColumn: fk.TargetColumn,
		Kind:         EdgeKindForeignKey,
		Confidence:   1.0,
	})
}

// genericColumnNames are too common to be treated as cross-schema references.
var genericColumnNames = map[string]bool{
	"id": true, "name": true, "created_at": true, "updated_at": true,
	"created_by": true, "updated_by": true, "description": true, "status": true,
}

// inferCrossSchemaReferences links tables in different schemas whose key
// columns share a name. Confidence stays well below declared FKs so path
// ranking prefers the real constraints.
func (g *Graph) inferCrossSchemaReferences() {
	tables := g.Tables()
	for i, src := range tables {
		for _, tgt := range tables[i+1:] {
			if strings.EqualFold(src.Schema, tgt.Schema) {
				continue
			}
			for _, col := range src.Columns {
				lower := strings.ToLower(col.Name)
				if genericColumnNames[lower] {
					continue
				}
				tgtCol, ok := tgt.Column(col.Name)
				if !ok {
					continue
				}
				var tgtDef models.ColumnDef
				for _, c := range tgt.Columns {
					if c.Name == tgtCol {
						tgtDef = c
						break
					}
				}
				if !col.IsPrimaryKey && !tgtDef.IsPrimaryKey {
					continue
				}
				if _, exists := g.edgeBetweenOnColumns(src.Canonical, tgt.Canonical, col.Name, tgtCol); exists {
					continue
				}
				edge := Edge{
					SourceTable:  src.Canonical,
					SourceColumn: col.Name,
					TargetTable:  tgt.Canonical,
					TargetColumn: tgtCol,
					Kind:         EdgeKindInferred,
					Confidence:   0.6,
				}
				if err := g.AddEdge(edge); err == nil {
					g.logger.Debug("inferred cross-schema reference",
						zap.String("source", src.Canonical+"."+col.Name),
						zap.String("target", tgt.Canonical+"."+tgtCol))
				}
			}
		}
	}
}

// AddEdge validates and inserts a relationship edge. Both endpoint columns
// must exist on their tables at edge-creation time.
func (g *Graph) AddEdge(e Edge) error {
	src, ok := g.Table(e.SourceTable)
	if !ok {
		return fmt.Errorf("edge source table %s not in graph", e.SourceTable)
	}
	tgt, ok := g.Table(e.TargetTable)
	if !ok {
		return fmt.Errorf("edge target table %s not in graph", e.TargetTable)
	}

	srcCol, ok := src.Column(e.SourceColumn)
	if !ok {
		return fmt.Errorf("edge column %s not on table %s", e.SourceColumn, src.Canonical)
	}
	tgtCol, ok := tgt.Column(e.TargetColumn)
	if !ok {
		return fmt.Errorf("edge column %s not on table %s", e.TargetColumn, tgt.Canonical)
	}

	// Store canonical forms so generation never guesses casing.
	e.SourceTable = src.Canonical
	e.SourceColumn = srcCol
	e.TargetTable = tgt.Canonical
	e.TargetColumn = tgtCol
	if e.Confidence <= 0 {
		e.Confidence = 0.5
	}

	srcKey := strings.ToLower(src.Canonical)
	tgtKey := strings.ToLower(tgt.Canonical)
	g.adj[srcKey] = append(g.adj[srcKey], e)
	g.adj[tgtKey] = append(g.adj[tgtKey], e.reversed())
	return nil
}

// Name returns the knowledge-graph name.
func (g *Graph) Name() string { return g.name }

// Aliases returns the table alias map (read-only after construction).
func (g *Graph) Aliases() *AliasMap { return g.aliases }

// SchemaNames returns the sorted schema names in this graph.
func (g *Graph) SchemaNames() []string { return g.schemas }

// Table looks up a table by canonical id, case-insensitively.
func (g *Graph) Table(id string) (*Table, bool) {
	t, ok := g.tables[strings.ToLower(strings.TrimSpace(id))]
	return t, ok
}

// Tables returns all tables sorted by canonical id for deterministic iteration.
func (g *Graph) Tables() []*Table {
	out := make([]*Table, 0, len(g.tables))
	for _, t := range g.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Canonical < out[j].Canonical })
	return out
}

func (g *Graph) tableByBareName(name string) (*Table, bool) {
	lower := strings.ToLower(name)
	for _, t := range g.Tables() {
		if strings.ToLower(t.Name) == lower {
			return t, true
		}
	}
	return nil, false
}

// EdgeBetween returns the best direct edge between two tables: declared FKs
// beat inferred edges, then higher confidence wins.
func (g *Graph) EdgeBetween(a, b string) (Edge, bool) {
	ta, ok := g.Table(a)
	if !ok {
		return Edge{}, false
	}
	tb, ok := g.Table(b)
	if !ok {
		return Edge{}, false
	}

	var best Edge
	found := false
	for _, e := range g.adj[strings.ToLower(ta.Canonical)] {
		if !strings.EqualFold(e.TargetTable, tb.Canonical) {
			continue
		}
		if !found || edgeRank(e) < edgeRank(best) {
			best = e
			found = true
		}
	}
	return best, found
}

func (g *Graph) edgeBetweenOnColumns(a, b, aCol, bCol string) (Edge, bool) {
	ta, ok := g.Table(a)
	if !ok {
		return Edge{}, false
	}
	for _, e := range g.adj[strings.ToLower(ta.Canonical)] {
		if strings.EqualFold(e.TargetTable, b) &&
			strings.EqualFold(e.SourceColumn, aCol) &&
			strings.EqualFold(e.TargetColumn, bCol) {
			return e, true
		}
	}
	return Edge{}, false
}

// edgeRank orders edges for preference: lower is better.
func edgeRank(e Edge) float64 {
	rank := 1.0 - e.Confidence
	if e.Kind != EdgeKindForeignKey {
		rank += 10
	}
	return rank
}
