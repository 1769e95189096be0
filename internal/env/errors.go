package env

import (
	"errors"
	"fmt"
	"strings"
)

// CircularDependencyError is returned by Bind when the rule would make a
// fact depend on itself, directly or through other bound facts.
type CircularDependencyError struct {
	// Name is the fact being bound.
	Name string

	// Path is the dependency chain that closes the cycle, starting and
	// ending at Name. Each entry depends on the one after it.
	Path []string
}

// Error implements the error interface.
func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency: cannot bind rule to %q (%s)", e.Name, strings.Join(e.Path, " -> "))
}

// IsCircularDependency returns true if err is or wraps a CircularDependencyError.
func IsCircularDependency(err error) bool {
	var ce *CircularDependencyError
	return errors.As(err, &ce)
}

// ErrNilRule is returned when binding a nil rule.
var ErrNilRule = errors.New("env: nil rule")
