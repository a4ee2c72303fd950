package translate

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/reconcile-labs/query-engine/pkg/adapters/datasource"
	"github.com/reconcile-labs/query-engine/pkg/apperrors"
	"github.com/reconcile-labs/query-engine/pkg/logging"
	"github.com/reconcile-labs/query-engine/pkg/models"
)

// Runner executes generated SQL with the schema-prefix fallback policy:
// the schema-qualified form runs first; an object-not-found failure gets
// exactly one retry with schema prefixes stripped. All other error classes
// propagate immediately with the failing SQL attached.
type Runner struct {
	exec     datasource.QueryExecutor
	schemas  []string
	rowLimit int
	logger   *zap.Logger
}

// NewRunner creates a runner over an executor. schemas is the list of
// schema names whose prefixes the fallback strips.
func NewRunner(exec datasource.QueryExecutor, schemas []string, rowLimit int, logger *zap.Logger) *Runner {
	return &Runner{
		exec:     exec,
		schemas:  schemas,
		rowLimit: rowLimit,
		logger:   logger.Named("runner"),
	}
}

// Run executes the statement and returns the result alongside the SQL form
// that actually ran, which differs from the input when the fallback fired.
func (r *Runner) Run(ctx context.Context, sqlText string) (*datasource.QueryExecutionResult, string, error) {
	result, err := r.exec.Query(ctx, sqlText, r.rowLimit)
	if err == nil {
		return result, sqlText, nil
	}

	if datasource.ClassifyExecError(err) == datasource.ErrorClassObjectNotFound {
		stripped := StripSchemaPrefixes(sqlText, r.schemas)
		if stripped != sqlText {
			r.logger.Info("object not found with qualified names, retrying unqualified",
				zap.String("query", logging.SanitizeQuery(sqlText)),
				zap.String("error", logging.SanitizeError(err)))

			retryResult, retryErr := r.exec.Query(ctx, stripped, r.rowLimit)
			if retryErr == nil {
				return retryResult, stripped, nil
			}
			return nil, stripped, &Error{
				Class:       models.ErrorClassExecution,
				Explanation: retryErr.Error(),
				SQL:         stripped,
				Err:         apperrors.ErrExecutionFailed,
			}
		}
	}

	return nil, sqlText, &Error{
		Class:       models.ErrorClassExecution,
		Explanation: err.Error(),
		SQL:         sqlText,
		Err:         apperrors.ErrExecutionFailed,
	}
}

// StripSchemaPrefixes removes "<schema>." qualifiers from a statement for
// the fallback retry. Matching is case-insensitive and anchored on word
// boundaries so column references through table aliases are untouched.
// Single-quoted string literals are left alone; a filter value that happens
// to contain a schema name must survive the rewrite.
func StripSchemaPrefixes(sqlText string, schemas []string) string {
	patterns := make([]*regexp.Regexp, 0, len(schemas))
	for _, schema := range schemas {
		if strings.TrimSpace(schema) == "" {
			continue
		}
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(schema)+`\.`))
	}
	if len(patterns) == 0 {
		return sqlText
	}

	strip := func(segment string) string {
		for _, p := range patterns {
			segment = p.ReplaceAllString(segment, "")
		}
		return segment
	}

	var sb strings.Builder
	rest := sqlText
	for {
		quote := strings.IndexByte(rest, '\'')
		if quote < 0 {
			sb.WriteString(strip(rest))
			return sb.String()
		}
		sb.WriteString(strip(rest[:quote]))

		// Skip the literal, honoring '' escapes.
		end := quote + 1
		for end < len(rest) {
			if rest[end] == '\'' {
				if end+1 < len(rest) && rest[end+1] == '\'' {
					end += 2
					continue
				}
				end++
				break
			}
			end++
		}
		sb.WriteString(rest[quote:end])
		rest = rest[end:]
	}
}
