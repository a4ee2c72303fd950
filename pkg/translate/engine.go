// Package translate implements the natural-language-to-SQL pipeline:
// classification, two-tier intent parsing, join-path resolution, SQL
// generation, and bounded execution with the schema-prefix fallback. All
// state shared across queries is read-only, so one Engine serves any
// number of concurrent requests.
package translate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/reconcile-labs/query-engine/pkg/apperrors"
	"github.com/reconcile-labs/query-engine/pkg/config"
	"github.com/reconcile-labs/query-engine/pkg/graph"
	"github.com/reconcile-labs/query-engine/pkg/models"
)

// Request is one translation request.
type Request struct {
	// Text is the natural-language definition to translate.
	Text string `json:"text"`

	// DryRun returns the generated SQL without executing it.
	DryRun bool `json:"dry_run"`

	// UseModel enables the model-assisted parse pass when a model service
	// is configured.
	UseModel bool `json:"use_model"`
}

// Engine is the translation facade. Stages run strictly in order: classify,
// parse, confidence gate, join resolution, generation, execution.
type Engine struct {
	g             *graph.Graph
	classifier    *Classifier
	parser        *Parser
	generator     *Generator
	runner        *Runner // nil when no target database is configured
	minConfidence float64
	maxHops       int
	logger        *zap.Logger
}

// NewEngine wires the pipeline. runner may be nil; every request then
// behaves as a dry run.
func NewEngine(g *graph.Graph, parser *Parser, generator *Generator, runner *Runner, engCfg config.EngineConfig, logger *zap.Logger) *Engine {
	return &Engine{
		g:             g,
		classifier:    NewClassifier(),
		parser:        parser,
		generator:     generator,
		runner:        runner,
		minConfidence: engCfg.MinConfidence,
		maxHops:       engCfg.MaxJoinHops,
		logger:        logger.Named("engine"),
	}
}

// Translate runs one definition through the pipeline. The result always
// explains itself: either SQL (and rows, unless dry-run) or an error class
// with a human-readable explanation. It never returns silently empty.
func (e *Engine) Translate(ctx context.Context, req Request) *models.TranslationResult {
	cls := e.classifier.Classify(req.Text)
	intent := e.parser.Parse(ctx, req.Text, cls, req.UseModel)
	result := &models.TranslationResult{Intent: intent}

	if intent.SourceTable == "" {
		return e.failed(result, models.ErrorClassResolutionFailure,
			"no table reference in the definition could be resolved against the knowledge graph")
	}

	if intent.Confidence < e.minConfidence {
		return e.failed(result, models.ErrorClassLowConfidence,
			fmt.Sprintf("intent confidence %.2f is below the %.2f threshold; %s",
				intent.Confidence, e.minConfidence, intent.Reasoning))
	}

	var path []graph.Edge
	if intent.TargetTable != "" {
		var err error
		path, err = e.g.FindPath(intent.SourceTable, intent.TargetTable, e.maxHops)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrTableNotResolved):
				return e.failed(result, models.ErrorClassResolutionFailure, err.Error())
			case errors.Is(err, apperrors.ErrUnjoinableTables):
				return e.failed(result, models.ErrorClassUnjoinableTables, err.Error())
			default:
				return e.failed(result, models.ErrorClassUnjoinableTables, err.Error())
			}
		}
	}

	e.resolveAdditionalColumnPaths(intent)

	sqlText, err := e.generator.Generate(intent, path)
	if err != nil {
		var terr *Error
		if errors.As(err, &terr) {
			return e.failed(result, terr.Class, terr.Explanation)
		}
		return e.failed(result, models.ErrorClassGeneration, err.Error())
	}
	result.SQL = sqlText

	if req.DryRun || e.runner == nil {
		return result
	}

	execResult, executedSQL, err := e.runner.Run(ctx, sqlText)
	result.ExecutedSQL = executedSQL
	if err != nil {
		var terr *Error
		if errors.As(err, &terr) {
			return e.failed(result, terr.Class, terr.Explanation)
		}
		return e.failed(result, models.ErrorClassExecution, err.Error())
	}

	result.Columns = execResult.ColumnNames()
	result.Rows = execResult.Rows
	return result
}

// resolveAdditionalColumnPaths fills in the join path of each requested
// additional column, starting from the source table. Unreachable columns
// are dropped with a log line rather than failing the whole translation.
func (e *Engine) resolveAdditionalColumnPaths(intent *models.QueryIntent) {
	if len(intent.AdditionalColumns) == 0 {
		return
	}

	kept := intent.AdditionalColumns[:0]
	for _, ac := range intent.AdditionalColumns {
		path, err := e.g.FindPath(intent.SourceTable, ac.Table, e.maxHops)
		if err != nil && intent.TargetTable != "" {
			path, err = e.g.FindPath(intent.TargetTable, ac.Table, e.maxHops)
		}
		if err != nil {
			e.logger.Warn("additional column dropped: no join path to its table",
				zap.String("column", ac.Column),
				zap.String("table", ac.Table))
			continue
		}
		ac.JoinPath = toJoinSteps(path)
		kept = append(kept, ac)
	}
	intent.AdditionalColumns = kept
}

func toJoinSteps(path []graph.Edge) []models.JoinStep {
	steps := make([]models.JoinStep, len(path))
	for i, edge := range path {
		steps[i] = models.JoinStep{
			FromTable:  edge.SourceTable,
			FromColumn: edge.SourceColumn,
			ToTable:    edge.TargetTable,
			ToColumn:   edge.TargetColumn,
		}
	}
	return steps
}

func (e *Engine) failed(result *models.TranslationResult, class, explanation string) *models.TranslationResult {
	result.ErrorClass = class
	result.Explanation = explanation
	e.logger.Info("translation stopped short of rows",
		zap.String("class", class),
		zap.String("explanation", explanation))
	return result
}
