package rule

import (
	"errors"
	"fmt"
)

// InvalidDefinitionError reports a configuration value that is not a rule.
//
// Path locates the offending value inside the definition using a
// JSONPath-like notation rooted at "$" (for example "$.any[2]").
type InvalidDefinitionError struct {
	// Path locates the offending value.
	Path string

	// Reason is a human-readable description of the problem.
	Reason string

	// Value is the offending value, when one exists.
	Value any
}

// Error implements the error interface.
func (e *InvalidDefinitionError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("invalid rule definition at %s: %s (got %v)", e.Path, e.Reason, e.Value)
	}
	return fmt.Sprintf("invalid rule definition at %s: %s", e.Path, e.Reason)
}

// IsInvalidDefinition returns true if err is or wraps an InvalidDefinitionError.
func IsInvalidDefinition(err error) bool {
	var de *InvalidDefinitionError
	return errors.As(err, &de)
}

func invalid(path, reason string, value any) error {
	return &InvalidDefinitionError{Path: path, Reason: reason, Value: value}
}
