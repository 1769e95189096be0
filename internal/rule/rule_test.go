package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type facts map[string]bool

func (f facts) IsTrue(name string) bool { return f[name] }

func TestConstant(t *testing.T) {
	assert.True(t, True.Evaluate(nil))
	assert.False(t, False.Evaluate(nil))
	assert.Same(t, True, NewConstant(true, ""))
	assert.Same(t, False, NewConstant(false, ""))

	named := NewConstant(true, "free")
	assert.NotSame(t, True, named)
	assert.Equal(t, "free", named.Name())
	assert.True(t, named.IsAlwaysTrue())
	assert.False(t, named.IsAlwaysFalse())
	assert.True(t, named.IsIndependent())
	assert.Equal(t, 0, named.Dependencies().Len())
	assert.False(t, named.DependsOn("free"))
}

func TestLookup(t *testing.T) {
	l := NewLookup("hookshot", "")

	assert.False(t, l.Evaluate(facts{}))
	assert.True(t, l.Evaluate(facts{"hookshot": true}))
	assert.True(t, l.DependsOn("hookshot"))
	assert.False(t, l.DependsOn("bow"))
	assert.Equal(t, []string{"hookshot"}, l.Dependencies().Sorted())
	assert.False(t, l.IsIndependent())
	assert.False(t, l.IsAlwaysTrue())
	assert.False(t, l.IsAlwaysFalse())
	assert.Equal(t, "hookshot", l.String())
}

func TestList_Evaluate(t *testing.T) {
	tests := []struct {
		name  string
		comb  Combinator
		facts facts
		want  bool
	}{
		{"all none", All, facts{}, false},
		{"all some", All, facts{"a": true}, false},
		{"all every", All, facts{"a": true, "b": true}, true},
		{"any none", Any, facts{}, false},
		{"any some", Any, facts{"b": true}, true},
		{"any every", Any, facts{"a": true, "b": true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewList([]Rule{NewLookup("a", ""), NewLookup("b", "")}, tt.comb, "")
			assert.Equal(t, tt.want, r.Evaluate(tt.facts))
		})
	}
}

func TestList_EmptyCollapses(t *testing.T) {
	assert.Same(t, False, NewList(nil, Any, ""))
	assert.Same(t, True, NewList(nil, All, ""))

	named := NewList(nil, Any, "never")
	c, ok := named.(*Constant)
	require.True(t, ok)
	assert.False(t, c.Value())
	assert.Equal(t, "never", c.Name())
}

func TestList_Dependencies(t *testing.T) {
	r := NewList([]Rule{
		NewLookup("lamp", ""),
		NewList([]Rule{NewLookup("bow", ""), NewLookup("lamp", ""), True}, Any, ""),
	}, All, "")

	assert.Equal(t, []string{"bow", "lamp"}, r.Dependencies().Sorted())
	assert.True(t, r.DependsOn("bow"))
	assert.False(t, r.DependsOn("hammer"))
	assert.False(t, r.IsIndependent())
}

func TestList_Independent(t *testing.T) {
	allTrue := NewList([]Rule{True, True}, All, "")
	assert.True(t, allTrue.IsIndependent())
	assert.True(t, allTrue.IsAlwaysTrue())
	assert.False(t, allTrue.IsAlwaysFalse())

	mixed := NewList([]Rule{True, False}, All, "")
	assert.True(t, mixed.IsIndependent())
	assert.True(t, mixed.IsAlwaysFalse())

	anyMixed := NewList([]Rule{False, True}, Any, "")
	assert.True(t, anyMixed.IsAlwaysTrue())
}

func TestList_String(t *testing.T) {
	r := NewList([]Rule{
		NewLookup("moonpearl", ""),
		NewList([]Rule{NewLookup("hammer", ""), NewLookup("flippers", "")}, Any, ""),
	}, All, "")

	assert.Equal(t, "all(moonpearl, any(hammer, flippers))", r.String())
}

func TestList_ChildrenCopied(t *testing.T) {
	children := []Rule{NewLookup("a", ""), NewLookup("b", "")}
	r := NewList(children, All, "").(*List)
	children[0] = False

	assert.Equal(t, "all(a, b)", r.String())

	got := r.Children()
	got[1] = False
	assert.Equal(t, "all(a, b)", r.String())
}

func TestWithName(t *testing.T) {
	l := NewLookup("bow", "")
	named := WithName(l, "Bow")
	assert.Equal(t, "Bow", named.Name())
	assert.Equal(t, "", l.Name())
	assert.True(t, named.DependsOn("bow"))

	list := NewList([]Rule{l, NewLookup("arrows", "")}, All, "")
	namedList := WithName(list, "Archery")
	assert.Equal(t, "Archery", namedList.Name())
	assert.Equal(t, "", list.Name())
	assert.Equal(t, list.String(), namedList.String())

	assert.Equal(t, "Free", WithName(True, "Free").Name())
	assert.Equal(t, "", True.Name())
}

func TestSet(t *testing.T) {
	s := NewSet("b", "a", "b")
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("c"))
	assert.Equal(t, []string{"a", "b"}, s.Sorted())

	var zero Set
	assert.Equal(t, 0, zero.Len())
	assert.False(t, zero.Has("a"))
	assert.Empty(t, zero.Sorted())
}
