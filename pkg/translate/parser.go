package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reconcile-labs/query-engine/pkg/graph"
	"github.com/reconcile-labs/query-engine/pkg/jsonutil"
	"github.com/reconcile-labs/query-engine/pkg/llm"
	"github.com/reconcile-labs/query-engine/pkg/models"
	"github.com/reconcile-labs/query-engine/pkg/prompts"
)

// Parser extracts a structured intent from a natural-language definition.
// A deterministic pass always runs; a model-assisted pass refines it when a
// client is configured and the caller opts in. The model call is bounded by
// a timeout and never retried; any failure falls back to the deterministic
// intent.
type Parser struct {
	g          *graph.Graph
	resolver   *graph.Resolver
	client     llm.Client
	llmTimeout time.Duration
	logger     *zap.Logger
}

// NewParser creates a parser. client may be nil; the model pass is then
// skipped regardless of useModel.
func NewParser(g *graph.Graph, resolver *graph.Resolver, client llm.Client, llmTimeout time.Duration, logger *zap.Logger) *Parser {
	if llmTimeout <= 0 {
		llmTimeout = 30 * time.Second
	}
	return &Parser{
		g:          g,
		resolver:   resolver,
		client:     client,
		llmTimeout: llmTimeout,
		logger:     logger.Named("parser"),
	}
}

// Parse produces the intent for one definition. The deterministic baseline
// is computed first and published only after the optional model pass fully
// returns, so cancellation never leaks a half-built intent.
func (p *Parser) Parse(ctx context.Context, text string, cls Classification, useModel bool) *models.QueryIntent {
	intent := p.parseDeterministic(text, cls)

	if !useModel || p.client == nil {
		return intent
	}

	modelIntent, err := p.parseWithModel(ctx, text)
	if err != nil {
		p.logger.Warn("model pass failed, keeping deterministic intent", zap.Error(err))
		return intent
	}

	// Backfill join columns the deterministic pass found in the graph when
	// the model omitted them.
	if len(modelIntent.JoinColumns) == 0 && len(intent.JoinColumns) > 0 {
		modelIntent.JoinColumns = intent.JoinColumns
	}
	return modelIntent
}

// tableRef is one resolved table mention in the text.
type tableRef struct {
	match      graph.Match
	statusWord string // "Active" or "Inactive" when the mention was qualified
}

// Words never tried as single-token table references. Multi-word phrases
// containing them are still tried, so "ops excel" resolves while "the"
// alone does not.
var tableStopwords = map[string]bool{
	"a": true, "all": true, "also": true, "and": true, "are": true,
	"active": true, "but": true, "both": true, "find": true, "for": true,
	"from": true, "give": true, "in": true, "inactive": true, "include": true,
	"is": true, "list": true, "me": true, "my": true, "not": true, "of": true,
	"or": true, "records": true, "rows": true, "show": true, "table": true,
	"tables": true, "that": true, "the": true, "to": true, "which": true,
	"where": true, "with": true,
}

var additionalColumnPattern = regexp.MustCompile(
	`(?i)(?:also include|include also|and also include|also show|show also|and include|include)\s+(?:the\s+)?([A-Za-z0-9_]+)\s+from\s+(?:the\s+)?([A-Za-z0-9_ ]+?)(?:\s+table)?\s*(?:[.,;]|$)`)

var wherePattern = regexp.MustCompile(
	`(?i)\bwhere\s+([A-Za-z0-9_]+)\s+(?:is|=|equals)\s+'?([A-Za-z0-9_ \-]+?)'?\s*(?:[.,;]|$)`)

var wordPattern = regexp.MustCompile(`[A-Za-z0-9_]+`)

var (
	activeWordPattern   = regexp.MustCompile(`\bactive\b`)
	inactiveWordPattern = regexp.MustCompile(`\binactive\b`)
)

func (p *Parser) parseDeterministic(text string, cls Classification) *models.QueryIntent {
	intent := models.NewQueryIntent(text)
	intent.QueryType = cls.QueryType
	intent.Operation = cls.Operation
	intent.Confidence = cls.Confidence

	var notes []string

	// Additional-column phrases first, removed from the working text so
	// their table mentions are not mistaken for source or target.
	working := text
	for _, m := range additionalColumnPattern.FindAllStringSubmatch(text, -1) {
		column, tablePhrase := m[1], strings.TrimSpace(m[2])
		match, ok := p.resolver.Resolve(tablePhrase)
		if !ok {
			p.logger.Debug("additional column table did not resolve",
				zap.String("phrase", tablePhrase))
			intent.Confidence -= 0.05
			continue
		}
		exact := column
		if t, found := p.g.Table(match.Canonical); found {
			if c, hasCol := t.Column(column); hasCol {
				exact = c
			}
		}
		intent.AdditionalColumns = append(intent.AdditionalColumns, models.AdditionalColumn{
			Column:     exact,
			Table:      match.Canonical,
			Confidence: match.Score,
		})
		working = strings.Replace(working, m[0], " ", 1)
	}

	refs := p.extractTableRefs(working)
	if len(refs) == 0 {
		intent.Confidence -= 0.3
		notes = append(notes, "no table references resolved")
	} else {
		intent.SourceTable = refs[0].match.Canonical
		if refs[0].match.Kind != graph.MatchExact {
			intent.Confidence -= 0.1
		}
		if len(refs) > 1 {
			intent.TargetTable = refs[1].match.Canonical
			if refs[1].match.Kind != graph.MatchExact {
				intent.Confidence -= 0.1
			}
		} else if intent.QueryType == models.QueryTypeComparison {
			intent.Confidence -= 0.2
			notes = append(notes, "comparison phrasing but only one table resolved")
		}
	}

	p.extractStatusFilters(intent, refs, working, &notes)

	for _, m := range wherePattern.FindAllStringSubmatch(working, -1) {
		boundTable := intent.SourceTable
		if intent.QueryType == models.QueryTypeComparison && intent.TargetTable != "" {
			boundTable = intent.TargetTable
		}
		intent.Filters = append(intent.Filters, models.Filter{
			Column:   p.exactColumn(boundTable, m[1]),
			Operator: "=",
			Value:    strings.TrimSpace(m[2]),
			Table:    boundTable,
		})
	}

	if intent.SourceTable != "" && intent.TargetTable != "" {
		if edge, ok := p.g.EdgeBetween(intent.SourceTable, intent.TargetTable); ok {
			intent.JoinColumns = append(intent.JoinColumns, models.JoinColumnPair{
				SourceColumn: edge.SourceColumn,
				TargetColumn: edge.TargetColumn,
			})
			intent.Confidence += 0.15
		}
	}

	intent.Confidence = clamp01(intent.Confidence)
	intent.Reasoning = deterministicReasoning(intent, notes)
	return intent
}

// extractTableRefs scans the text for table mentions, trying longest
// n-grams first so "ops excel" wins over "excel". Consecutive mentions of
// the same table collapse into one.
func (p *Parser) extractTableRefs(text string) []tableRef {
	tokens := wordPattern.FindAllString(strings.ToLower(text), -1)

	var refs []tableRef
	i := 0
	for i < len(tokens) {
		matched := false
		maxN := 4
		if rest := len(tokens) - i; rest < maxN {
			maxN = rest
		}
		for n := maxN; n >= 1; n-- {
			if n == 1 && tableStopwords[tokens[i]] {
				continue
			}
			phrase := strings.Join(tokens[i:i+n], " ")
			match, ok := p.resolver.Resolve(phrase)
			if !ok {
				continue
			}

			ref := tableRef{match: match}
			// Look back past filler words so "active ops excel" and
			// "active table B" both qualify their table.
			j := i - 1
			for j >= 0 && (tokens[j] == "table" || tokens[j] == "tables" || tokens[j] == "the") {
				j--
			}
			if j >= 0 {
				switch tokens[j] {
				case "active":
					ref.statusWord = "Active"
				case "inactive":
					ref.statusWord = "Inactive"
				}
			}

			if len(refs) > 0 && strings.EqualFold(refs[len(refs)-1].match.Canonical, match.Canonical) {
				if ref.statusWord != "" {
					refs[len(refs)-1].statusWord = ref.statusWord
				}
			} else {
				refs = append(refs, ref)
			}
			i += n
			matched = true
			break
		}
		if !matched {
			i++
		}
	}
	return refs
}

// extractStatusFilters turns "active"/"inactive" qualifiers into predicates
// on the real status column of the table they qualify. A bare status word
// with no adjacent table defaults to the target table; when the source
// table also carries a status column that default is flagged as ambiguous
// and confidence drops instead of silently choosing.
func (p *Parser) extractStatusFilters(intent *models.QueryIntent, refs []tableRef, text string, notes *[]string) {
	adjacentSeen := false
	for _, ref := range refs {
		if ref.statusWord == "" {
			continue
		}
		adjacentSeen = true
		p.appendStatusFilter(intent, ref.match.Canonical, ref.statusWord, notes)
	}
	if adjacentSeen {
		return
	}

	lower := strings.ToLower(text)
	statusWord := ""
	if inactiveWordPattern.MatchString(lower) {
		statusWord = "Inactive"
	} else if activeWordPattern.MatchString(lower) {
		statusWord = "Active"
	}
	if statusWord == "" {
		return
	}

	boundTable := intent.SourceTable
	if intent.QueryType == models.QueryTypeComparison && intent.TargetTable != "" {
		boundTable = intent.TargetTable
		if srcTable, ok := p.g.Table(intent.SourceTable); ok {
			if _, srcHas := statusColumn(srcTable); srcHas {
				intent.Confidence -= 0.1
				*notes = append(*notes, "both tables carry a status column; filter bound to target by policy")
			}
		}
	}
	if boundTable == "" {
		return
	}
	p.appendStatusFilter(intent, boundTable, statusWord, notes)
}

func (p *Parser) appendStatusFilter(intent *models.QueryIntent, table, statusWord string, notes *[]string) {
	t, ok := p.g.Table(table)
	if !ok {
		return
	}
	column, found := statusColumn(t)
	if !found {
		*notes = append(*notes, fmt.Sprintf("no status column found on %s for %q qualifier", t.Canonical, statusWord))
		intent.Confidence -= 0.05
		return
	}
	intent.Filters = append(intent.Filters, models.Filter{
		Column:   column,
		Operator: "=",
		Value:    statusWord,
		Table:    t.Canonical,
	})
}

// statusColumn finds the column that actually encodes active/inactive state
// on a table, preferring exact well-known names over substring matches.
func statusColumn(t *graph.Table) (string, bool) {
	for _, candidate := range []string{"active_inactive", "is_active", "active", "status"} {
		if exact, ok := t.Column(candidate); ok {
			return exact, true
		}
	}
	for _, c := range t.Columns {
		lower := strings.ToLower(c.Name)
		if strings.Contains(lower, "active") || strings.Contains(lower, "status") {
			return c.Name, true
		}
	}
	return "", false
}

func (p *Parser) exactColumn(table, column string) string {
	if t, ok := p.g.Table(table); ok {
		if exact, found := t.Column(column); found {
			return exact
		}
	}
	return column
}

func deterministicReasoning(intent *models.QueryIntent, notes []string) string {
	var sb strings.Builder
	sb.WriteString("deterministic parse: ")
	sb.WriteString(intent.QueryType)
	sb.WriteString("/")
	sb.WriteString(intent.Operation)
	if intent.SourceTable != "" {
		sb.WriteString(", source ")
		sb.WriteString(intent.SourceTable)
	}
	if intent.TargetTable != "" {
		sb.WriteString(", target ")
		sb.WriteString(intent.TargetTable)
	}
	for _, note := range notes {
		sb.WriteString("; ")
		sb.WriteString(note)
	}
	return sb.String()
}

// llmIntentResponse mirrors the JSON contract of the extraction prompt.
// Raw messages tolerate models returning numbers or booleans where strings
// are expected.
type llmIntentResponse struct {
	QueryType         json.RawMessage       `json:"query_type"`
	SourceTable       json.RawMessage       `json:"source_table"`
	TargetTable       json.RawMessage       `json:"target_table"`
	Operation         json.RawMessage       `json:"operation"`
	Filters           []llmFilter           `json:"filters"`
	JoinColumns       []llmJoinPair         `json:"join_columns"`
	AdditionalColumns []llmAdditionalColumn `json:"additional_columns"`
	Confidence        json.RawMessage       `json:"confidence"`
	Reasoning         json.RawMessage       `json:"reasoning"`
}

type llmFilter struct {
	Column   json.RawMessage `json:"column"`
	Operator json.RawMessage `json:"operator"`
	Value    json.RawMessage `json:"value"`
}

type llmJoinPair struct {
	SourceColumn json.RawMessage `json:"source_column"`
	TargetColumn json.RawMessage `json:"target_column"`
}

type llmAdditionalColumn struct {
	Column      json.RawMessage `json:"column"`
	SourceTable json.RawMessage `json:"source_table"`
}

// parseWithModel runs the model-assisted pass: one bounded call, no retry,
// structured output validated against the graph before acceptance.
func (p *Parser) parseWithModel(ctx context.Context, text string) (*models.QueryIntent, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.llmTimeout)
	defer cancel()

	prompt := prompts.BuildIntentExtractionPrompt(text, p.g.Excerpts())
	system := prompts.BuildIntentExtractionSystemMessage()

	response, err := p.client.GenerateResponse(callCtx, prompt, system, 0.1)
	if err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}

	parsed, err := llm.ParseJSONResponse[llmIntentResponse](response)
	if err != nil {
		return nil, fmt.Errorf("model response: %w", err)
	}

	return p.validateModelIntent(text, parsed)
}

// validateModelIntent turns the model's structured output into a
// graph-validated intent. Any violation of the contract is an error; the
// caller falls back to the deterministic intent.
func (p *Parser) validateModelIntent(text string, parsed llmIntentResponse) (*models.QueryIntent, error) {
	intent := models.NewQueryIntent(text)

	queryType := jsonutil.FlexibleStringValue(parsed.QueryType)
	switch queryType {
	case models.QueryTypeComparison, models.QueryTypeFilter, models.QueryTypeLookup:
		intent.QueryType = queryType
	default:
		return nil, fmt.Errorf("unknown query type %q", queryType)
	}

	operation := jsonutil.FlexibleStringValue(parsed.Operation)
	switch operation {
	case models.OperationMatched, models.OperationNotIn, models.OperationIn, models.OperationFilter:
		intent.Operation = operation
	default:
		return nil, fmt.Errorf("unknown operation %q", operation)
	}

	source := jsonutil.FlexibleStringValue(parsed.SourceTable)
	match, ok := p.resolveModelTable(source)
	if !ok {
		return nil, fmt.Errorf("source table %q not in schema", source)
	}
	intent.SourceTable = match

	if target := jsonutil.FlexibleStringValue(parsed.TargetTable); target != "" {
		match, ok := p.resolveModelTable(target)
		if !ok {
			return nil, fmt.Errorf("target table %q not in schema", target)
		}
		intent.TargetTable = match
	}

	boundTable := intent.SourceTable
	if intent.QueryType == models.QueryTypeComparison && intent.TargetTable != "" {
		boundTable = intent.TargetTable
	}
	for _, f := range parsed.Filters {
		column := jsonutil.FlexibleStringValue(f.Column)
		if column == "" {
			continue
		}
		operator := jsonutil.FlexibleStringValue(f.Operator)
		if operator == "" {
			operator = "="
		}
		intent.Filters = append(intent.Filters, models.Filter{
			Column:   p.exactColumn(boundTable, column),
			Operator: operator,
			Value:    jsonutil.FlexibleValue(f.Value),
			Table:    boundTable,
		})
	}

	for _, jc := range parsed.JoinColumns {
		src := jsonutil.FlexibleStringValue(jc.SourceColumn)
		tgt := jsonutil.FlexibleStringValue(jc.TargetColumn)
		if src == "" || tgt == "" {
			continue
		}
		intent.JoinColumns = append(intent.JoinColumns, models.JoinColumnPair{
			SourceColumn: p.exactColumn(intent.SourceTable, src),
			TargetColumn: p.exactColumn(intent.TargetTable, tgt),
		})
	}

	for _, ac := range parsed.AdditionalColumns {
		column := jsonutil.FlexibleStringValue(ac.Column)
		tableName := jsonutil.FlexibleStringValue(ac.SourceTable)
		if column == "" || tableName == "" {
			continue
		}
		canonical, ok := p.resolveModelTable(tableName)
		if !ok {
			p.logger.Debug("model proposed additional column from unknown table",
				zap.String("table", tableName))
			continue
		}
		intent.AdditionalColumns = append(intent.AdditionalColumns, models.AdditionalColumn{
			Column:     p.exactColumn(canonical, column),
			Table:      canonical,
			Confidence: 0.8,
		})
	}

	intent.Confidence = clamp01(jsonutil.FlexibleFloat(parsed.Confidence, 0.6))
	intent.Reasoning = "model-assisted: " + jsonutil.FlexibleStringValue(parsed.Reasoning)
	return intent, nil
}

// resolveModelTable accepts either an exact canonical id or anything the
// resolver can map, so minor casing drift in model output does not reject
// an otherwise valid intent.
func (p *Parser) resolveModelTable(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	if t, ok := p.g.Table(name); ok {
		return t.Canonical, true
	}
	if match, ok := p.resolver.Resolve(name); ok {
		return match.Canonical, true
	}
	return "", false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
