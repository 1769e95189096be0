package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/randotrack/internal/rule"
)

func TestEnvironment_Unreferenced(t *testing.T) {
	e := New()

	assert.False(t, e.IsTrue("bow"))
	v, ok := e.Get("bow")
	assert.False(t, v)
	assert.False(t, ok)
	assert.Equal(t, 0, e.Len(), "reads must not create facts")
	assert.False(t, e.IsBoundToRule("bow"))
	_, ok = e.BoundRule("bow")
	assert.False(t, ok)
	assert.Nil(t, e.Dependents("bow"))
}

func TestEnvironment_Set(t *testing.T) {
	e := New()

	for _, b := range []bool{true, false, true} {
		e.Set("lamp", b)
		assert.Equal(t, b, e.IsTrue("lamp"))
		v, ok := e.Get("lamp")
		assert.True(t, ok)
		assert.Equal(t, b, v)
	}
	assert.Equal(t, []string{"lamp"}, e.Keys())
}

func TestEnvironment_SetFalseCreatesKnownFact(t *testing.T) {
	e := New()
	e.Set("lamp", false)

	v, ok := e.Get("lamp")
	assert.True(t, ok)
	assert.False(t, v)
}

func TestEnvironment_BindAll(t *testing.T) {
	e := New()
	e.Set("foo", true)
	e.Set("bar", false)

	require.NoError(t, e.Bind("rule", rule.MustParse([]any{"foo", "bar"})))
	assert.False(t, e.IsTrue("rule"))
	assert.True(t, e.IsBoundToRule("rule"))

	e.Set("bar", true)
	assert.True(t, e.IsTrue("rule"))

	e.Set("foo", false)
	assert.False(t, e.IsTrue("rule"))
}

func TestEnvironment_BindCreatesDependencies(t *testing.T) {
	e := New()
	require.NoError(t, e.Bind("dark", rule.MustParse(map[string]any{"any": []any{"moonpearl", "agahnim"}})))

	assert.Equal(t, []string{"dark", "agahnim", "moonpearl"}, e.Keys())
	v, ok := e.Get("moonpearl")
	assert.True(t, ok)
	assert.False(t, v)
	assert.Equal(t, []string{"dark"}, e.Dependents("moonpearl"))
}

func TestEnvironment_BindSelfReference(t *testing.T) {
	e := New()
	e.Set("foo", true)
	e.Set("bar", true)

	err := e.Bind("foo", rule.MustParse([]any{"foo", "bar"}))
	require.Error(t, err)
	assert.True(t, IsCircularDependency(err))

	var ce *CircularDependencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "foo", ce.Name)
	assert.Equal(t, []string{"foo", "foo"}, ce.Path)

	assert.True(t, e.IsTrue("foo"))
	assert.False(t, e.IsBoundToRule("foo"))
	assert.Empty(t, e.Dependents("bar"))
	assert.Empty(t, e.Dependents("foo"))
}

func TestEnvironment_BindSelfReferenceCreatesNothing(t *testing.T) {
	e := New()

	err := e.Bind("foo", rule.MustParse([]any{"foo", "bar"}))
	require.Error(t, err)
	assert.Equal(t, 0, e.Len())
}

func TestEnvironment_BindTransitiveCycle(t *testing.T) {
	e := New()
	require.NoError(t, e.Bind("a", rule.NewLookup("b", "")))
	require.NoError(t, e.Bind("b", rule.NewLookup("c", "")))
	e.Set("c", true)
	require.True(t, e.IsTrue("a"))

	keys := e.Keys()
	err := e.Bind("c", rule.MustParse([]any{"a", "x"}))
	require.Error(t, err)

	var ce *CircularDependencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"c", "a", "b", "c"}, ce.Path)
	assert.Contains(t, err.Error(), "c -> a -> b -> c")

	assert.Equal(t, keys, e.Keys(), "failed bind must not create x")
	assert.False(t, e.IsBoundToRule("c"))
	assert.True(t, e.IsTrue("c"))
	assert.True(t, e.IsTrue("a"))
}

func TestEnvironment_RebindRemovesStaleEdges(t *testing.T) {
	e := New()
	require.NoError(t, e.Bind("n", rule.MustParse([]any{"a", "b"})))
	assert.Equal(t, []string{"n"}, e.Dependents("a"))
	assert.Equal(t, []string{"n"}, e.Dependents("b"))

	require.NoError(t, e.Bind("n", rule.MustParse([]any{"b", "c"})))
	assert.Empty(t, e.Dependents("a"))
	assert.Equal(t, []string{"n"}, e.Dependents("b"))
	assert.Equal(t, []string{"n"}, e.Dependents("c"))

	// a no longer drives n.
	e.Set("b", true)
	e.Set("c", true)
	assert.True(t, e.IsTrue("n"))
	e.Set("a", true)
	assert.True(t, e.IsTrue("n"))

	e.Set("n", false)
	assert.False(t, e.IsBoundToRule("n"))
	assert.Empty(t, e.Dependents("b"))
	assert.Empty(t, e.Dependents("c"))
	assert.Equal(t, 0, e.Level("n"))

	// Static assignment detaches n from its former inputs.
	e.Set("b", false)
	e.Set("b", true)
	assert.False(t, e.IsTrue("n"))
}

func TestEnvironment_BindConstant(t *testing.T) {
	e := New()
	require.NoError(t, e.Bind("free", rule.True))
	assert.True(t, e.IsTrue("free"))
	assert.True(t, e.IsBoundToRule("free"))
	assert.Equal(t, 0, e.Level("free"))

	require.NoError(t, e.Bind("never", rule.MustParse(map[string]any{"any": []any{}})))
	assert.False(t, e.IsTrue("never"))
}

func TestEnvironment_BindNil(t *testing.T) {
	e := New()
	assert.ErrorIs(t, e.Bind("x", nil), ErrNilRule)
	assert.Equal(t, 0, e.Len())
}

func TestEnvironment_SetValue(t *testing.T) {
	e := New()
	require.NoError(t, e.SetValue("a", Bool(true)))
	require.NoError(t, e.SetValue("b", RuleValue(rule.NewLookup("a", ""))))
	assert.True(t, e.IsTrue("b"))
	assert.True(t, e.IsBoundToRule("b"))

	err := e.SetValue("a", RuleValue(rule.NewLookup("b", "")))
	assert.True(t, IsCircularDependency(err))

	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "a", RuleValue(rule.NewLookup("a", "")).String())
	assert.False(t, Bool(true).IsRule())
}

func TestEnvironment_Levels(t *testing.T) {
	e := New()
	require.NoError(t, e.Bind("top", rule.MustParse([]any{"mid", "a"})))
	assert.Equal(t, 1, e.Level("top"))

	require.NoError(t, e.Bind("mid", rule.MustParse([]any{"low"})))
	require.NoError(t, e.Bind("low", rule.MustParse([]any{"a"})))
	assert.Equal(t, 1, e.Level("low"))
	assert.Equal(t, 2, e.Level("mid"))
	assert.Equal(t, 3, e.Level("top"))
	assert.Equal(t, 0, e.Level("a"))
}

func TestEnvironment_BoundRules(t *testing.T) {
	e := New()
	r := rule.NewLookup("a", "")
	require.NoError(t, e.Bind("x", r))
	e.Set("y", true)

	got := e.BoundRules()
	require.Len(t, got, 1)
	assert.Same(t, r, got["x"])

	bound, ok := e.BoundRule("x")
	require.True(t, ok)
	assert.Same(t, r, bound)
}

func TestEnvironment_SharedRule(t *testing.T) {
	e := New()
	r := rule.MustParse(map[string]any{"any": []any{"a", "b"}})
	require.NoError(t, e.Bind("x", r))
	require.NoError(t, e.Bind("y", r))

	e.Set("b", true)
	assert.True(t, e.IsTrue("x"))
	assert.True(t, e.IsTrue("y"))
	assert.Equal(t, []string{"x", "y"}, e.Dependents("a"))
}

func TestEnvironment_Clear(t *testing.T) {
	e := New()
	calls := 0
	id := e.AddListener("a", func(string, bool, *Environment) { calls++ })
	require.NoError(t, e.Bind("b", rule.NewLookup("a", "")))
	e.Set("a", true)
	require.Equal(t, 1, calls)

	e.Clear()
	assert.Equal(t, 0, e.Len())
	assert.Empty(t, e.Keys())
	assert.False(t, e.IsTrue("b"))
	assert.False(t, e.RemoveListener("a", id))

	e.Set("a", false)
	e.Set("a", true)
	assert.Equal(t, 1, calls, "listeners do not survive Clear")
	assert.False(t, e.IsTrue("b"), "bindings do not survive Clear")

	id2 := e.AddListener("a", func(string, bool, *Environment) {})
	assert.NotEqual(t, id, id2)
}
