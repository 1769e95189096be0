package rule

import (
	"maps"
	"slices"
	"strings"
)

// Facts is the read-only view a rule evaluates against.
// Unknown names must read as false.
type Facts interface {
	IsTrue(name string) bool
}

// Rule is an immutable boolean expression over named facts.
type Rule interface {
	// Evaluate computes the rule against the given facts. It has no side
	// effects and depends only on the facts named by Dependencies.
	Evaluate(facts Facts) bool

	// Dependencies returns every fact name this rule can read.
	Dependencies() Set

	// DependsOn reports whether name is in Dependencies.
	DependsOn(name string) bool

	// Name is optional human-readable metadata. It never affects evaluation.
	Name() string

	// IsIndependent reports whether the rule reads no facts at all, in which
	// case its value is fixed.
	IsIndependent() bool

	// IsAlwaysTrue reports whether the rule is independent and true.
	IsAlwaysTrue() bool

	// IsAlwaysFalse reports whether the rule is independent and false.
	IsAlwaysFalse() bool

	String() string
}

// Combinator selects how a List combines its children.
type Combinator int

const (
	// All is logical AND over the children.
	All Combinator = iota + 1
	// Any is logical OR over the children.
	Any
)

func (c Combinator) String() string {
	switch c {
	case All:
		return "all"
	case Any:
		return "any"
	default:
		return "unknown"
	}
}

// Set is an immutable set of fact names.
type Set struct {
	names map[string]struct{}
}

// NewSet builds a set from the given names.
func NewSet(names ...string) Set {
	s := Set{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.names[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of names in the set.
func (s Set) Len() int {
	return len(s.names)
}

// Sorted returns the names in byte order.
func (s Set) Sorted() []string {
	return slices.Sorted(maps.Keys(s.names))
}

func union(rules []Rule) Set {
	s := Set{names: make(map[string]struct{})}
	for _, r := range rules {
		for n := range r.Dependencies().names {
			s.names[n] = struct{}{}
		}
	}
	return s
}

// Constant is a rule with a fixed value.
type Constant struct {
	value bool
	name  string
}

var (
	// True always evaluates to true.
	True = &Constant{value: true}
	// False always evaluates to false.
	False = &Constant{value: false}
)

var emptySet = Set{}

// NewConstant returns a constant rule. Unnamed constants are the shared
// True and False instances.
func NewConstant(value bool, name string) *Constant {
	if name == "" {
		if value {
			return True
		}
		return False
	}
	return &Constant{value: value, name: name}
}

func (c *Constant) Evaluate(Facts) bool { return c.value }
func (c *Constant) Dependencies() Set { return emptySet }
func (c *Constant) DependsOn(string) bool { return false }
func (c *Constant) Name() string { return c.name }
func (c *Constant) IsIndependent() bool { return true }
func (c *Constant) IsAlwaysTrue() bool { return c.value }
func (c *Constant) IsAlwaysFalse() bool { return !c.value }
func (c *Constant) Value() bool { return c.value }

func (c *Constant) String() string {
	if c.value {
		return "true"
	}
	return "false"
}

// Lookup evaluates to the current value of one fact.
type Lookup struct {
	field string
	name  string
	deps  Set
}

// NewLookup returns a rule reading the fact field.
func NewLookup(field, name string) *Lookup {
	return &Lookup{field: field, name: name, deps: NewSet(field)}
}

// Field returns the fact name this rule reads.
func (l *Lookup) Field() string { return l.field }

func (l *Lookup) Evaluate(facts Facts) bool { return facts.IsTrue(l.field) }
func (l *Lookup) Dependencies() Set { return l.deps }
func (l *Lookup) DependsOn(name string) bool { return name == l.field }
func (l *Lookup) Name() string { return l.name }
func (l *Lookup) IsIndependent() bool { return false }
func (l *Lookup) IsAlwaysTrue() bool { return false }
func (l *Lookup) IsAlwaysFalse() bool { return false }
func (l *Lookup) String() string { return l.field }

// List combines child rules with a Combinator. Lists are never empty.
type List struct {
	children   []Rule
	combinator Combinator
	name       string
	deps       Set
	// fixed holds the value of an independent list, computed once.
	fixed bool
}

// NewList returns a rule combining children. An empty ANY collapses to
// False and an empty ALL collapses to True, both carrying name.
func NewList(children []Rule, combinator Combinator, name string) Rule {
	if len(children) == 0 {
		return NewConstant(combinator == All, name)
	}
	l := &List{
		children:   slices.Clone(children),
		combinator: combinator,
		name:       name,
		deps:       union(children),
	}
	if l.deps.Len() == 0 {
		l.fixed = l.Evaluate(nil)
	}
	return l
}

// Children returns a copy of the child rules.
func (l *List) Children() []Rule { return slices.Clone(l.children) }

// Combinator returns how the children are combined.
func (l *List) Combinator() Combinator { return l.combinator }

func (l *List) Evaluate(facts Facts) bool {
	if l.combinator == Any {
		for _, c := range l.children {
			if c.Evaluate(facts) {
				return true
			}
		}
		return false
	}
	for _, c := range l.children {
		if !c.Evaluate(facts) {
			return false
		}
	}
	return true
}

func (l *List) Dependencies() Set { return l.deps }
func (l *List) DependsOn(name string) bool { return l.deps.Has(name) }
func (l *List) Name() string { return l.name }
func (l *List) IsIndependent() bool { return l.deps.Len() == 0 }
func (l *List) IsAlwaysTrue() bool { return l.IsIndependent() && l.fixed }
func (l *List) IsAlwaysFalse() bool { return l.IsIndependent() && !l.fixed }

func (l *List) String() string {
	parts := make([]string, len(l.children))
	for i, c := range l.children {
		parts[i] = c.String()
	}
	return l.combinator.String() + "(" + strings.Join(parts, ", ") + ")"
}

// WithName returns a copy of r carrying name.
func WithName(r Rule, name string) Rule {
	switch v := r.(type) {
	case *Constant:
		return NewConstant(v.value, name)
	case *Lookup:
		return &Lookup{field: v.field, name: name, deps: v.deps}
	case *List:
		cp := *v
		cp.name = name
		return &cp
	default:
		return r
	}
}
