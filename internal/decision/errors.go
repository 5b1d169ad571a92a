package decision

import "fmt"

// ValidationError reports malformed or missing required input. It is fatal to
// the current decision and never silently defaulted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
