// Package sqlcheck screens filter values before they are interpolated into
// generated SQL. Values arrive from free text and model output, so every
// string literal is run through libinjection ahead of generation.
package sqlcheck

import (
	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/reconcile-labs/query-engine/pkg/models"
)

// CheckResult describes a detected injection pattern in a filter value.
type CheckResult struct {
	Column      string // filter column whose value failed the check
	Value       any    // the offending value
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckValue tests a single value. Only strings are checked; numbers and
// booleans cannot carry injection payloads. Returns nil when clean.
func CheckValue(column string, value any) *CheckResult {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if isSQLi {
		return &CheckResult{
			Column:      column,
			Value:       value,
			Fingerprint: string(fingerprint),
		}
	}
	return nil
}

// CheckFilters validates every filter value, descending into list values.
// Returns one result per offending value; empty when all are clean.
func CheckFilters(filters []models.Filter) []CheckResult {
	var results []CheckResult
	for _, f := range filters {
		if list, ok := f.Value.([]any); ok {
			for _, item := range list {
				if r := CheckValue(f.Column, item); r != nil {
					results = append(results, *r)
				}
			}
			continue
		}
		if r := CheckValue(f.Column, f.Value); r != nil {
			results = append(results, *r)
		}
	}
	return results
}
