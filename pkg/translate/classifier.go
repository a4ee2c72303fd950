package translate

import (
	"regexp"
	"strings"

	"github.com/reconcile-labs/query-engine/pkg/models"
)

// Classification is the coarse label assigned before deeper parsing.
type Classification struct {
	QueryType  string
	Operation  string
	Confidence float64
}

// Classifier labels a natural-language definition with a query type using
// deterministic lexical cues. No I/O, no model calls; it gates whether the
// more expensive parser path is needed.
type Classifier struct{}

// NewClassifier creates a classifier.
func NewClassifier() *Classifier { return &Classifier{} }

// Cues match on word boundaries: "not in" must not fire inside
// "not including", nor "also in" inside "also include".
var (
	notInCues = compileCues(
		"not in", "which are not in", "that are not in", "missing from",
		"absent from", "but not in",
	)

	membershipCues = compileCues(
		"which are in", "that are in", "which are also in", "present in",
		"exists in", "which exist in", "also in",
	)

	matchedCues = compileCues(
		"matching", "matched", "in both", "common to", "compare", "versus",
		"reconcile",
	)

	filterCues = compileCues(
		"where", "with status", "equal to", "greater than", "less than",
		"active", "inactive",
	)
)

func compileCues(cues ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(cues))
	for i, cue := range cues {
		patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(cue) + `\b`)
	}
	return patterns
}

func anyCue(cues []*regexp.Regexp, text string) bool {
	for _, cue := range cues {
		if cue.MatchString(text) {
			return true
		}
	}
	return false
}

// Classify labels the text. Ambiguous input defaults to lookup with
// reduced confidence.
func (c *Classifier) Classify(text string) Classification {
	lower := strings.ToLower(text)

	switch {
	case anyCue(notInCues, lower):
		return Classification{
			QueryType:  models.QueryTypeComparison,
			Operation:  models.OperationNotIn,
			Confidence: 0.7,
		}
	case anyCue(membershipCues, lower):
		return Classification{
			QueryType:  models.QueryTypeComparison,
			Operation:  models.OperationIn,
			Confidence: 0.7,
		}
	case anyCue(matchedCues, lower):
		return Classification{
			QueryType:  models.QueryTypeComparison,
			Operation:  models.OperationMatched,
			Confidence: 0.7,
		}
	case anyCue(filterCues, lower):
		return Classification{
			QueryType:  models.QueryTypeFilter,
			Operation:  models.OperationFilter,
			Confidence: 0.6,
		}
	}

	return Classification{
		QueryType:  models.QueryTypeLookup,
		Operation:  models.OperationFilter,
		Confidence: 0.45,
	}
}
