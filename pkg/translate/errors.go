package translate

import "fmt"

// Error is a structured translation failure. Class is one of the
// models.ErrorClass* values; SQL carries the statement involved when one
// exists, so callers can diagnose which join or filter was wrong.
type Error struct {
	Class       string
	Explanation string
	SQL         string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.Explanation, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Explanation)
}

func (e *Error) Unwrap() error { return e.Err }
