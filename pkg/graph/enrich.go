package graph

import (
	"context"

	"go.uber.org/zap"

	"github.com/reconcile-labs/query-engine/pkg/llm"
	"github.com/reconcile-labs/query-engine/pkg/prompts"
)

// EnrichAliases asks the language model for business-friendly aliases per
// table and learns them into the alias map. It runs during knowledge-graph
// construction only; any failure is logged and skipped, never fatal, since
// the model pass is an optional enhancement.
func (g *Graph) EnrichAliases(ctx context.Context, client llm.Client) {
	if client == nil {
		return
	}

	excerpts := g.Excerpts()
	prompt := prompts.BuildAliasSuggestionPrompt(excerpts)
	system := prompts.BuildAliasSuggestionSystemMessage()

	response, err := client.GenerateResponse(ctx, prompt, system, 0.2)
	if err != nil {
		g.logger.Warn("alias enrichment skipped: model call failed", zap.Error(err))
		return
	}

	suggestions, err := llm.ParseJSONResponse[map[string][]string](response)
	if err != nil {
		g.logger.Warn("alias enrichment skipped: malformed response", zap.Error(err))
		return
	}

	learned := 0
	for tableID, aliases := range suggestions {
		table, ok := g.Table(tableID)
		if !ok {
			g.logger.Debug("enrichment proposed alias for unknown table",
				zap.String("table", tableID))
			continue
		}
		for _, alias := range aliases {
			if g.aliases.Learn(alias, table.Canonical) {
				learned++
			}
		}
	}

	g.logger.Info("alias enrichment completed",
		zap.Int("suggested_tables", len(suggestions)),
		zap.Int("aliases_learned", learned))
}

// Excerpts returns the condensed schema view embedded in model prompts.
func (g *Graph) Excerpts() []prompts.TableExcerpt {
	tables := g.Tables()
	excerpts := make([]prompts.TableExcerpt, 0, len(tables))

	aliasesByTable := make(map[string][]string)
	for _, e := range g.aliases.Entries() {
		key := e.Canonical
		// Structural variants of the name itself add noise to prompts.
		if normalizeAlias(e.Alias) == normalizeAlias(key) {
			continue
		}
		aliasesByTable[key] = append(aliasesByTable[key], e.Alias)
	}

	for _, t := range tables {
		excerpts = append(excerpts, prompts.TableExcerpt{
			Canonical: t.Canonical,
			Columns:   t.ColumnNames(),
			Aliases:   aliasesByTable[t.Canonical],
		})
	}
	return excerpts
}
