package env

import (
	"container/heap"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/roach88/randotrack/internal/rule"
)

// Listener is called after a fact changes value.
type Listener func(name string, value bool, e *Environment)

// ListenerID identifies one listener registration. IDs are unique for the
// lifetime of the process, so an ID held across Clear never matches a
// later registration.
type ListenerID uint64

var listenerSeq atomic.Uint64

type listenerEntry struct {
	id ListenerID
	fn Listener
}

type node struct {
	name  string
	value bool
	rule  rule.Rule

	// deps are the nodes the bound rule reads, sorted by name.
	deps []int

	// dependents are the nodes whose bound rule reads this node.
	dependents []int

	listeners []listenerEntry

	// level is 0 for unbound nodes and 1 + max(level of deps) otherwise.
	level int
}

// Environment is a mutable store of named facts with bound rules.
// The zero value is not usable; call New.
type Environment struct {
	index  map[string]int
	nodes  []node
	logger *slog.Logger

	// generation changes on Clear. Notification loops compare it to stop
	// touching indices that no longer exist.
	generation uint64
}

// Option configures an Environment.
type Option func(*Environment)

// WithLogger sets the logger used to report listener panics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Environment) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an empty environment.
func New(opts ...Option) *Environment {
	e := &Environment{
		index:  make(map[string]int),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Set assigns a literal value to name. Any rule bound to name is unbound
// first, so the fact no longer follows its former derivation.
func (e *Environment) Set(name string, value bool) {
	i := e.ensure(name)
	e.unbind(i)
	e.apply(i, value)
}

// Bind binds r to name. The fact immediately takes r's value and follows
// it from then on.
//
// Bind fails with a CircularDependencyError when r reads name, directly or
// through other bound facts. On failure the environment is unchanged.
func (e *Environment) Bind(name string, r rule.Rule) error {
	if r == nil {
		return ErrNilRule
	}
	if path := e.cyclePath(name, r); path != nil {
		return &CircularDependencyError{Name: name, Path: path}
	}

	i := e.ensure(name)
	e.unbind(i)

	names := r.Dependencies().Sorted()
	deps := make([]int, 0, len(names))
	for _, dep := range names {
		j := e.ensure(dep)
		deps = append(deps, j)
		e.nodes[j].dependents = append(e.nodes[j].dependents, i)
	}
	e.nodes[i].rule = r
	e.nodes[i].deps = deps
	e.relevel(i)

	e.logger.Debug("bound rule", "fact", name, "rule", r.String(), "deps", len(deps))
	e.apply(i, r.Evaluate(e))
	return nil
}

// SetValue sets name to a literal or binds a rule, depending on v.
func (e *Environment) SetValue(name string, v Value) error {
	if v.IsRule() {
		return e.Bind(name, v.Rule())
	}
	e.Set(name, v.Literal())
	return nil
}

// Get returns the value of name. ok is false if name was never referenced.
func (e *Environment) Get(name string) (value bool, ok bool) {
	i, ok := e.index[name]
	if !ok {
		return false, false
	}
	return e.nodes[i].value, true
}

// IsTrue returns the value of name, or false if name was never referenced.
// It never creates a fact.
func (e *Environment) IsTrue(name string) bool {
	i, ok := e.index[name]
	return ok && e.nodes[i].value
}

// AddListener registers fn to be called when name changes value and
// returns a handle for RemoveListener. Registering the same function twice
// yields two registrations. AddListener creates the fact if needed.
func (e *Environment) AddListener(name string, fn Listener) ListenerID {
	if fn == nil {
		panic("env: nil listener")
	}
	i := e.ensure(name)
	id := ListenerID(listenerSeq.Add(1))
	e.nodes[i].listeners = append(e.nodes[i].listeners, listenerEntry{id: id, fn: fn})
	return id
}

// RemoveListener removes the registration id from name. It reports whether
// a registration was removed.
func (e *Environment) RemoveListener(name string, id ListenerID) bool {
	i, ok := e.index[name]
	if !ok {
		return false
	}
	ls := e.nodes[i].listeners
	for k, l := range ls {
		if l.id == id {
			e.nodes[i].listeners = slices.Delete(slices.Clone(ls), k, k+1)
			return true
		}
	}
	return false
}

// Keys returns the names of all facts in creation order, including facts
// that were only listened to or read by a bound rule.
func (e *Environment) Keys() []string {
	keys := make([]string, len(e.nodes))
	for i := range e.nodes {
		keys[i] = e.nodes[i].name
	}
	return keys
}

// Len returns the number of facts.
func (e *Environment) Len() int {
	return len(e.nodes)
}

// IsBoundToRule reports whether name currently follows a rule.
func (e *Environment) IsBoundToRule(name string) bool {
	i, ok := e.index[name]
	return ok && e.nodes[i].rule != nil
}

// BoundRule returns the rule bound to name.
func (e *Environment) BoundRule(name string) (rule.Rule, bool) {
	i, ok := e.index[name]
	if !ok || e.nodes[i].rule == nil {
		return nil, false
	}
	return e.nodes[i].rule, true
}

// BoundRules returns every bound rule keyed by fact name.
func (e *Environment) BoundRules() map[string]rule.Rule {
	out := make(map[string]rule.Rule)
	for i := range e.nodes {
		if e.nodes[i].rule != nil {
			out[e.nodes[i].name] = e.nodes[i].rule
		}
	}
	return out
}

// Dependents returns the facts whose bound rule reads name, sorted.
func (e *Environment) Dependents(name string) []string {
	i, ok := e.index[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(e.nodes[i].dependents))
	for _, d := range e.nodes[i].dependents {
		out = append(out, e.nodes[d].name)
	}
	slices.Sort(out)
	return out
}

// Level returns the propagation level of name: 0 for literal facts and one
// more than the deepest fact its rule reads otherwise.
func (e *Environment) Level(name string) int {
	i, ok := e.index[name]
	if !ok {
		return 0
	}
	return e.nodes[i].level
}

// Clear discards every fact with its rule, edges and listeners.
func (e *Environment) Clear() {
	e.index = make(map[string]int)
	e.nodes = nil
	e.generation++
}

func (e *Environment) ensure(name string) int {
	if i, ok := e.index[name]; ok {
		return i
	}
	i := len(e.nodes)
	e.nodes = append(e.nodes, node{name: name})
	e.index[name] = i
	return i
}

// unbind severs the dependency edges of node i. The level stays valid for
// dependents since it only decreases.
func (e *Environment) unbind(i int) {
	n := &e.nodes[i]
	if n.rule == nil {
		return
	}
	for _, j := range n.deps {
		ds := e.nodes[j].dependents
		if k := slices.Index(ds, i); k >= 0 {
			e.nodes[j].dependents = slices.Delete(ds, k, k+1)
		}
	}
	n.rule = nil
	n.deps = nil
	n.level = 0
}

func (e *Environment) relevel(i int) {
	level := 0
	for _, j := range e.nodes[i].deps {
		level = max(level, e.nodes[j].level+1)
	}
	e.nodes[i].level = level
	for _, d := range e.nodes[i].dependents {
		if e.nodes[d].level <= level {
			e.relevel(d)
		}
	}
}

// cyclePath returns the dependency chain that binding r to name would close,
// or nil if there is none.
func (e *Environment) cyclePath(name string, r rule.Rule) []string {
	if r.DependsOn(name) {
		return []string{name, name}
	}
	start, ok := e.index[name]
	if !ok {
		return nil
	}

	// Walk everything that already depends on name. Reaching a fact r reads
	// closes the loop.
	parent := map[int]int{start: -1}
	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range e.nodes[cur].dependents {
			if _, seen := parent[d]; seen {
				continue
			}
			parent[d] = cur
			if r.DependsOn(e.nodes[d].name) {
				path := []string{name}
				for k := d; k != -1; k = parent[k] {
					path = append(path, e.nodes[k].name)
				}
				return path
			}
			queue = append(queue, d)
		}
	}
	return nil
}

// apply sets node i to value and runs the resulting cascade, then fires
// listeners for every fact that changed.
func (e *Environment) apply(i int, value bool) {
	if e.nodes[i].value == value {
		return
	}
	e.nodes[i].value = value
	changed := []int{i}

	q := &levelQueue{env: e}
	seen := map[int]bool{i: true}
	push := func(n int) {
		for _, d := range e.nodes[n].dependents {
			if !seen[d] {
				seen[d] = true
				heap.Push(q, d)
			}
		}
	}
	push(i)

	for q.Len() > 0 {
		n := heap.Pop(q).(int)
		v := e.nodes[n].rule.Evaluate(e)
		if v == e.nodes[n].value {
			continue
		}
		e.nodes[n].value = v
		changed = append(changed, n)
		push(n)
	}

	e.notify(changed)
}

func (e *Environment) notify(changed []int) {
	gen := e.generation
	for k := len(changed) - 1; k >= 0; k-- {
		if e.generation != gen {
			return
		}
		i := changed[k]
		entries := slices.Clone(e.nodes[i].listeners)
		for _, l := range entries {
			if e.generation != gen {
				return
			}
			if !slices.ContainsFunc(e.nodes[i].listeners, func(x listenerEntry) bool { return x.id == l.id }) {
				continue
			}
			e.fire(e.nodes[i].name, e.nodes[i].value, l)
		}
	}
}

func (e *Environment) fire(name string, value bool, l listenerEntry) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("listener panicked", "fact", name, "listener", uint64(l.id), "panic", r)
		}
	}()
	l.fn(name, value, e)
}
