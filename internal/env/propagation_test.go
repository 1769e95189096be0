package env

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/randotrack/internal/rule"
)

// countingRule counts evaluations of the wrapped rule.
type countingRule struct {
	rule.Rule
	calls int
}

func (c *countingRule) Evaluate(f rule.Facts) bool {
	c.calls++
	return c.Rule.Evaluate(f)
}

type event struct {
	name  string
	value bool
}

func record(e *Environment, log *[]event, names ...string) {
	for _, n := range names {
		e.AddListener(n, func(name string, value bool, _ *Environment) {
			*log = append(*log, event{name, value})
		})
	}
}

func TestPropagation_NoEventOnEqualValue(t *testing.T) {
	e := New()
	var log []event
	record(e, &log, "a")

	e.Set("a", false)
	assert.Empty(t, log)

	e.Set("a", true)
	e.Set("a", true)
	assert.Equal(t, []event{{"a", true}}, log)
}

func TestPropagation_Quiescence(t *testing.T) {
	e := New()
	require.NoError(t, e.Bind("x", rule.MustParse(map[string]any{"any": []any{"a", "b"}})))
	require.NoError(t, e.Bind("y", rule.NewLookup("x", "")))
	var log []event
	record(e, &log, "x", "y")

	e.Set("a", true)
	assert.Equal(t, []event{{"y", true}, {"x", true}}, log)

	log = nil
	e.Set("b", true)
	assert.Empty(t, log, "x did not change")
}

func TestPropagation_DeepestFirst(t *testing.T) {
	e := New()
	require.NoError(t, e.Bind("b", rule.NewLookup("a", "")))
	require.NoError(t, e.Bind("c", rule.NewLookup("b", "")))

	var log []event
	var sawC bool
	record(e, &log, "a", "b", "c")
	e.AddListener("a", func(_ string, _ bool, env *Environment) {
		sawC = env.IsTrue("c")
	})

	e.Set("a", true)
	assert.Equal(t, []event{{"c", true}, {"b", true}, {"a", true}}, log)
	assert.True(t, sawC, "listeners run after the cascade")
}

func TestPropagation_DiamondEvaluatesOnce(t *testing.T) {
	e := New()
	require.NoError(t, e.Bind("left", rule.NewLookup("a", "")))
	require.NoError(t, e.Bind("right", rule.MustParse([]any{"a", "b"})))
	top := &countingRule{Rule: rule.MustParse(map[string]any{"any": []any{"left", "right"}})}
	require.NoError(t, e.Bind("top", top))
	top.calls = 0

	var values []bool
	e.AddListener("top", func(_ string, v bool, env *Environment) {
		values = append(values, v)
		assert.True(t, env.IsTrue("left"))
		assert.True(t, env.IsTrue("right"))
	})

	e.Set("b", true)
	assert.Equal(t, 0, top.calls, "right did not change")

	e.Set("a", true)
	assert.Equal(t, 1, top.calls)
	assert.Equal(t, []bool{true}, values)
}

func TestPropagation_LongChainLevels(t *testing.T) {
	e := New()
	// shortcut reads both ends of a chain; it must see the chain settled.
	require.NoError(t, e.Bind("c1", rule.NewLookup("root", "")))
	require.NoError(t, e.Bind("c2", rule.NewLookup("c1", "")))
	require.NoError(t, e.Bind("c3", rule.NewLookup("c2", "")))
	shortcut := &countingRule{Rule: rule.MustParse([]any{"root", "c3"})}
	require.NoError(t, e.Bind("shortcut", shortcut))
	shortcut.calls = 0

	var values []bool
	e.AddListener("shortcut", func(_ string, v bool, _ *Environment) { values = append(values, v) })

	e.Set("root", true)
	assert.Equal(t, 1, shortcut.calls)
	assert.Equal(t, []bool{true}, values)
	assert.Equal(t, 4, e.Level("shortcut"))
}

func TestPropagation_RelevelOnLateBind(t *testing.T) {
	e := New()
	require.NoError(t, e.Bind("top", rule.MustParse([]any{"root", "mid"})))
	// mid becomes derived after top was bound; top must move above it.
	require.NoError(t, e.Bind("mid", rule.NewLookup("root", "")))
	assert.Greater(t, e.Level("top"), e.Level("mid"))

	var values []bool
	e.AddListener("top", func(_ string, v bool, _ *Environment) { values = append(values, v) })
	e.Set("root", true)
	assert.Equal(t, []bool{true}, values)
}

func TestPropagation_BindFiresListeners(t *testing.T) {
	e := New()
	e.Set("a", true)
	var log []event
	record(e, &log, "x")

	require.NoError(t, e.Bind("x", rule.NewLookup("a", "")))
	assert.Equal(t, []event{{"x", true}}, log)

	require.NoError(t, e.Bind("x", rule.MustParse([]any{"a", true})))
	assert.Len(t, log, 1, "rebinding to an equal value is silent")
}

func TestPropagation_ListenerPanicIsolated(t *testing.T) {
	var buf bytes.Buffer
	e := New(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	require.NoError(t, e.Bind("b", rule.NewLookup("a", "")))

	var after []string
	e.AddListener("b", func(string, bool, *Environment) { panic("boom") })
	e.AddListener("b", func(name string, _ bool, _ *Environment) { after = append(after, name) })
	e.AddListener("a", func(name string, _ bool, _ *Environment) { after = append(after, name) })

	require.NotPanics(t, func() { e.Set("a", true) })
	assert.Equal(t, []string{"b", "a"}, after)
	assert.True(t, e.IsTrue("b"))
	assert.Contains(t, buf.String(), "listener panicked")
	assert.Contains(t, buf.String(), "fact=b")
	assert.Contains(t, buf.String(), "boom")
}

func TestPropagation_ReentrantSet(t *testing.T) {
	e := New()
	require.NoError(t, e.Bind("derived", rule.MustParse([]any{"a", "b"})))
	e.AddListener("a", func(_ string, v bool, env *Environment) {
		env.Set("b", v)
	})

	e.Set("a", true)
	assert.True(t, e.IsTrue("b"))
	assert.True(t, e.IsTrue("derived"))

	e.Set("a", false)
	assert.False(t, e.IsTrue("b"))
	assert.False(t, e.IsTrue("derived"))
}

func TestPropagation_ClearDuringNotify(t *testing.T) {
	e := New()
	require.NoError(t, e.Bind("b", rule.NewLookup("a", "")))

	var fired []string
	e.AddListener("b", func(name string, _ bool, env *Environment) {
		fired = append(fired, name)
		env.Clear()
	})
	e.AddListener("b", func(name string, _ bool, _ *Environment) { fired = append(fired, name+"2") })
	e.AddListener("a", func(name string, _ bool, _ *Environment) { fired = append(fired, name) })

	require.NotPanics(t, func() { e.Set("a", true) })
	assert.Equal(t, []string{"b"}, fired)
	assert.Equal(t, 0, e.Len())
}

func TestPropagation_RemoveDuringNotify(t *testing.T) {
	e := New()
	var fired []int
	var second ListenerID
	e.AddListener("a", func(string, bool, *Environment) {
		fired = append(fired, 1)
		e.RemoveListener("a", second)
	})
	second = e.AddListener("a", func(string, bool, *Environment) { fired = append(fired, 2) })

	e.Set("a", true)
	assert.Equal(t, []int{1}, fired)
}

func TestListeners_Handles(t *testing.T) {
	e := New()
	calls := 0
	fn := func(string, bool, *Environment) { calls++ }

	id1 := e.AddListener("a", fn)
	id2 := e.AddListener("a", fn)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, []string{"a"}, e.Keys(), "AddListener creates the fact")

	e.Set("a", true)
	assert.Equal(t, 2, calls)

	assert.True(t, e.RemoveListener("a", id1))
	assert.False(t, e.RemoveListener("a", id1))
	assert.False(t, e.RemoveListener("a", ListenerID(0)))
	assert.False(t, e.RemoveListener("missing", id2))

	e.Set("a", false)
	assert.Equal(t, 3, calls)

	assert.True(t, e.RemoveListener("a", id2))
	e.Set("a", true)
	assert.Equal(t, 3, calls)
}

func TestListeners_NilPanics(t *testing.T) {
	assert.Panics(t, func() { New().AddListener("a", nil) })
}

func TestListeners_ReceiveArguments(t *testing.T) {
	e := New()
	var gotName string
	var gotValue bool
	var gotEnv *Environment
	e.AddListener("lamp", func(name string, value bool, env *Environment) {
		gotName, gotValue, gotEnv = name, value, env
	})

	e.Set("lamp", true)
	assert.Equal(t, "lamp", gotName)
	assert.True(t, gotValue)
	assert.Same(t, e, gotEnv)
}
