package harness

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/randotrack/internal/compiler"
	"github.com/roach88/randotrack/internal/tracker"
)

func newCaveTracker(t *testing.T) *tracker.Tracker {
	t.Helper()
	res, err := compiler.LoadFile("testdata/logic/cave.cue", "")
	require.NoError(t, err)
	tr, err := tracker.New(res.Database, tracker.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return tr
}

func TestAssertionError_Error(t *testing.T) {
	err := &AssertionError{Type: "fact", Target: "lamp", Expected: "true", Actual: "false"}
	assert.Equal(t, "Assertion failed: fact lamp\n  Expected: true\n  Actual: false", err.Error())
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	tr := newCaveTracker(t)

	errs := EvaluateAssertions(tr, []Assertion{
		{Type: AssertFact, Target: "lamp", Value: boolp(false)},
		{Type: AssertLocation, Target: "chest", State: "unavailable"},
		{Type: AssertDungeon, Target: "keep", Accessible: intp(0), Enterable: boolp(false), Completable: boolp(false)},
		{Type: AssertEvents, Target: "cave", Count: intp(0)},
	}, map[string]int{})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_UnknownTargets(t *testing.T) {
	tr := newCaveTracker(t)

	errs := EvaluateAssertions(tr, []Assertion{
		{Type: AssertFact, Target: "nope", Value: boolp(true)},
		{Type: AssertLocation, Target: "nope", State: "available"},
		{Type: AssertDungeon, Target: "nope", Enterable: boolp(true)},
	}, nil)
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "unknown fact")
	assert.Contains(t, errs[1], "unknown location")
	assert.Contains(t, errs[2], "unknown dungeon")
}

func TestEvaluateAssertions_Events(t *testing.T) {
	tr := newCaveTracker(t)

	errs := EvaluateAssertions(tr, []Assertion{
		{Type: AssertEvents, Target: "cave", Count: intp(1)},
	}, map[string]int{"cave": 2})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Expected: 1 listener firings")
	assert.Contains(t, errs[0], "Actual: 2 listener firings")
}
