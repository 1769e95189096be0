package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/randotrack/internal/logic"
	"github.com/roach88/randotrack/internal/tracker"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Target   string
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s %s\n", e.Type, e.Target)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against the tracker's current
// state. fired holds the listener firing counts for events assertions. It
// returns one message per failed assertion.
func EvaluateAssertions(tr *tracker.Tracker, assertions []Assertion, fired map[string]int) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluateAssertion(tr, a, fired); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluateAssertion(tr *tracker.Tracker, a Assertion, fired map[string]int) error {
	switch a.Type {
	case AssertFact:
		return assertFact(tr, a)
	case AssertLocation:
		return assertLocation(tr, a)
	case AssertDungeon:
		return assertDungeon(tr, a)
	case AssertEvents:
		if got := fired[a.Target]; got != *a.Count {
			return &AssertionError{
				Type:     a.Type,
				Target:   a.Target,
				Expected: fmt.Sprintf("%d listener firings", *a.Count),
				Actual:   fmt.Sprintf("%d listener firings", got),
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func assertFact(tr *tracker.Tracker, a Assertion) error {
	value, ok := tr.Environment().Get(a.Target)
	if !ok {
		return &AssertionError{Type: a.Type, Target: a.Target, Expected: fmt.Sprint(*a.Value), Actual: "unknown fact"}
	}
	if value != *a.Value {
		return &AssertionError{Type: a.Type, Target: a.Target, Expected: fmt.Sprint(*a.Value), Actual: fmt.Sprint(value)}
	}
	return nil
}

func assertLocation(tr *tracker.Tracker, a Assertion) error {
	loc, ok := tr.Database().Location(a.Target)
	if !ok {
		return &AssertionError{Type: a.Type, Target: a.Target, Expected: a.State, Actual: "unknown location"}
	}
	if got := loc.State(tr.Environment()); got != logic.LocationState(a.State) {
		return &AssertionError{Type: a.Type, Target: a.Target, Expected: a.State, Actual: string(got)}
	}
	return nil
}

func assertDungeon(tr *tracker.Tracker, a Assertion) error {
	d, ok := tr.Database().Dungeon(a.Target)
	if !ok {
		return &AssertionError{Type: a.Type, Target: a.Target, Expected: "a dungeon", Actual: "unknown dungeon"}
	}
	e := tr.Environment()

	var expected, actual []string
	check := func(name string, want, got any) {
		if want != got {
			expected = append(expected, fmt.Sprintf("%s=%v", name, want))
			actual = append(actual, fmt.Sprintf("%s=%v", name, got))
		}
	}
	if a.Accessible != nil {
		check("accessible", *a.Accessible, d.AccessibleItemCount(e))
	}
	if a.Enterable != nil {
		check("enterable", *a.Enterable, d.IsEnterable(e))
	}
	if a.Completable != nil {
		check("completable", *a.Completable, d.IsCompletable(e))
	}
	if len(expected) > 0 {
		return &AssertionError{
			Type:     a.Type,
			Target:   a.Target,
			Expected: strings.Join(expected, " "),
			Actual:   strings.Join(actual, " "),
		}
	}
	return nil
}
