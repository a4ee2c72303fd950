package jsonutil

import (
	"encoding/json"
	"fmt"
)

// FlexibleStringValue converts a json.RawMessage to a string, handling cases where
// LLMs return numbers or booleans instead of strings. Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return string(raw)
}

// FlexibleValue converts a json.RawMessage to a scalar or a list of scalars.
// Filter values from model output arrive as strings, numbers, or arrays of
// either; a list comes back as []any so callers can emit IN clauses.
func FlexibleValue(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		values := make([]any, 0, len(list))
		for _, item := range list {
			values = append(values, FlexibleValue(item))
		}
		return values
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		return numVal
	}

	return FlexibleStringValue(raw)
}

// FlexibleFloat converts a json.RawMessage to a float64, accepting numbers
// or numeric strings. Returns the fallback when the value cannot be parsed.
func FlexibleFloat(raw json.RawMessage, fallback float64) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		return numVal
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		var parsed float64
		if _, err := fmt.Sscanf(strVal, "%g", &parsed); err == nil {
			return parsed
		}
	}

	return fallback
}
