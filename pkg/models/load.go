package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadSchemaInput reads a knowledge-graph construction input from a YAML
// file. JSON files parse too, since YAML is a superset.
func LoadSchemaInput(path string) (SchemaInput, error) {
	var input SchemaInput

	data, err := os.ReadFile(path)
	if err != nil {
		return input, fmt.Errorf("read schema file: %w", err)
	}
	if err := yaml.Unmarshal(data, &input); err != nil {
		return input, fmt.Errorf("parse schema file: %w", err)
	}

	if input.Name == "" {
		return input, fmt.Errorf("schema file %s: name is required", path)
	}
	if len(input.Schemas) == 0 {
		return input, fmt.Errorf("schema file %s: at least one schema is required", path)
	}
	for _, schema := range input.Schemas {
		if schema.Name == "" {
			return input, fmt.Errorf("schema file %s: every schema needs a name", path)
		}
		for _, table := range schema.Tables {
			if table.Name == "" {
				return input, fmt.Errorf("schema %s: every table needs a name", schema.Name)
			}
			if len(table.Columns) == 0 {
				return input, fmt.Errorf("table %s.%s has no columns", schema.Name, table.Name)
			}
		}
	}
	return input, nil
}
