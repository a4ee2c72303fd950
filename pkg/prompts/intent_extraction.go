// Package prompts builds the prompt text sent to the language model. Each
// builder pairs a markdown prompt with an explicit JSON output contract so
// responses can be validated mechanically.
package prompts

import (
	"fmt"
	"strings"
)

// TableExcerpt is the condensed schema view embedded in prompts: enough for
// the model to ground table and column references, small enough to keep
// prompts cheap.
type TableExcerpt struct {
	Canonical string
	Columns   []string
	Aliases   []string
}

// BuildIntentExtractionPrompt creates the prompt for the model-assisted
// parse pass. It embeds the natural-language definition, the schema
// excerpt, a worked-example guide for mapping phrases to real columns, and
// the exact JSON shape expected back.
func BuildIntentExtractionPrompt(text string, tables []TableExcerpt) string {
	var prompt strings.Builder

	prompt.WriteString("# Query Intent Extraction\n\n")
	prompt.WriteString("Extract a structured query intent from the following natural-language data question.\n\n")
	prompt.WriteString("## Question\n\n")
	prompt.WriteString(text)
	prompt.WriteString("\n\n")

	prompt.WriteString("## Available Tables\n\n")
	for _, table := range tables {
		prompt.WriteString(fmt.Sprintf("### %s\n", table.Canonical))
		prompt.WriteString(fmt.Sprintf("Columns: %s\n", strings.Join(table.Columns, ", ")))
		if len(table.Aliases) > 0 {
			prompt.WriteString(fmt.Sprintf("Also known as: %s\n", strings.Join(table.Aliases, ", ")))
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("## Extraction Rules\n\n")
	prompt.WriteString("- `source_table` is the table the question starts from; `target_table` is the table it compares against (omit for single-table questions).\n")
	prompt.WriteString("- Use table identifiers exactly as listed above, schema-qualified.\n")
	prompt.WriteString("- `operation` is one of \"matched\" (rows present in both tables), \"not_in\" (rows of source absent from target), \"in\" (membership test), \"filter\" (single-table predicates).\n")
	prompt.WriteString("- Filters belong to the TARGET table in two-table questions: \"products in A which are in active B\" filters B, not A.\n")
	prompt.WriteString("- Map filter phrases to columns that actually exist on that table. \"active\" maps to whatever status column the table really has (e.g. Active_Inactive, is_active, status) - never invent a column name.\n")
	prompt.WriteString("- Phrases like \"also include X from Y\" or \"show also the Z\" become additional_columns entries.\n")
	prompt.WriteString("- `join_columns` only when you can name the real joining columns from the schema above.\n\n")

	prompt.WriteString("## Worked Examples\n\n")
	prompt.WriteString("- \"products in rbp which are in active ops excel\" -> comparison, operation \"matched\", filter {column: the ops table's status column, operator: \"=\", value: \"Active\"} on the target.\n")
	prompt.WriteString("- \"materials in plan A not in plan B\" -> comparison, operation \"not_in\", no filters.\n")
	prompt.WriteString("- \"orders where region is EMEA\" -> filter, operation \"filter\", filter {column: region column, operator: \"=\", value: \"EMEA\"}.\n\n")

	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("Respond in JSON with exactly these fields:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(`{
  "query_type": "comparison | filter | lookup",
  "source_table": "Schema.Table",
  "target_table": "Schema.Table or empty",
  "operation": "matched | not_in | in | filter",
  "filters": [{"column": "...", "operator": "=", "value": "..."}],
  "join_columns": [{"source_column": "...", "target_column": "..."}],
  "additional_columns": [{"column": "...", "source_table": "Schema.Table"}],
  "confidence": 0.0,
  "reasoning": "1-2 sentences"
}
`)
	prompt.WriteString("```\n\n")
	prompt.WriteString("Return ONLY the JSON, no additional text.\n")

	return prompt.String()
}

// BuildIntentExtractionSystemMessage returns the system message for the
// intent extraction call.
func BuildIntentExtractionSystemMessage() string {
	return `You are a SQL analyst. Your task is to turn natural-language data questions into structured query intents against the provided schema, using only tables and columns that exist.`
}

// BuildAliasSuggestionPrompt asks the model for business-friendly aliases
// per table, used to enrich the alias map during graph construction.
func BuildAliasSuggestionPrompt(tables []TableExcerpt) string {
	var prompt strings.Builder

	prompt.WriteString("# Table Alias Suggestions\n\n")
	prompt.WriteString("Suggest short business-friendly aliases users might say when referring to each table.\n\n")
	prompt.WriteString("## Tables\n\n")
	for _, table := range tables {
		prompt.WriteString(fmt.Sprintf("- %s (columns: %s)\n", table.Canonical, strings.Join(table.Columns, ", ")))
	}
	prompt.WriteString("\n")

	prompt.WriteString("Guidelines: 2-4 aliases per table, lowercase, no punctuation beyond spaces, ")
	prompt.WriteString("derived from the table name and obvious business vocabulary. Do not suggest aliases that could refer to more than one table.\n\n")

	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("Respond in JSON mapping each canonical table identifier to its alias list:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString("{\"Schema.Table\": [\"alias one\", \"alias two\"]}\n")
	prompt.WriteString("```\n\n")
	prompt.WriteString("Return ONLY the JSON, no additional text.\n")

	return prompt.String()
}

// BuildAliasSuggestionSystemMessage returns the system message for alias
// enrichment.
func BuildAliasSuggestionSystemMessage() string {
	return `You are a data catalog assistant. You propose the informal names business users employ for database tables.`
}
