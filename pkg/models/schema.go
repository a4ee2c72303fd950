package models

// SchemaInput is the construction input for one knowledge graph: a set of
// named schemas, each with its tables and columns plus optional business
// metadata supplied at upload time.
type SchemaInput struct {
	Name    string      `json:"name" yaml:"name"`
	Schemas []SchemaDef `json:"schemas" yaml:"schemas"`
}

// SchemaDef is one named database schema.
type SchemaDef struct {
	Name   string     `json:"name" yaml:"name"`
	Tables []TableDef `json:"tables" yaml:"tables"`
}

// TableDef describes a table as uploaded. Casing of Name is preserved
// end to end; the target database may resolve identifiers case-sensitively.
type TableDef struct {
	Name        string          `json:"name" yaml:"name"`
	Columns     []ColumnDef     `json:"columns" yaml:"columns"`
	Aliases     []string        `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	ForeignKeys []ForeignKeyDef `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty"`
}

// ColumnDef describes a column as uploaded.
type ColumnDef struct {
	Name         string `json:"name" yaml:"name"`
	DataType     string `json:"data_type" yaml:"data_type"`
	IsPrimaryKey bool   `json:"is_primary_key,omitempty" yaml:"is_primary_key,omitempty"`
	IsNullable   bool   `json:"is_nullable,omitempty" yaml:"is_nullable,omitempty"`
}

// ForeignKeyDef is a declared foreign key from a column of this table to a
// column of another table. Target may be schema-qualified or bare.
type ForeignKeyDef struct {
	Column       string `json:"column" yaml:"column"`
	TargetTable  string `json:"target_table" yaml:"target_table"`
	TargetColumn string `json:"target_column" yaml:"target_column"`
}
