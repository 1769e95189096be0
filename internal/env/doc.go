// Package env implements the reactive fact environment.
//
// An Environment maps fact names to nodes. A node either holds a literal
// boolean or is bound to a rule.Rule, in which case its value is always the
// rule's evaluation against the environment. Binding records dependency
// edges between nodes so that a change to one fact re-evaluates exactly the
// bound facts that read it.
//
// # Storage
//
// Nodes live in an arena (a slice) indexed by a name table. Dependency and
// dependent edges are stored as arena indices, so Clear is a plain reset
// of both tables.
//
// # Propagation
//
// When a fact changes, affected bound facts are recomputed in ascending
// level order, where a fact's level is one more than the highest level of
// the facts its rule reads. Each fact is recomputed at most once per
// cascade and never observes a partially updated set of inputs. A
// recomputation that yields the current value stops the cascade along that
// path, and no listener fires for a fact whose value did not change.
//
// Listeners run after the cascade completes, deepest facts first, so a
// listener on a fact only observes it after every consequence of the change
// has been applied. A listener may call back into the environment; the
// nested call runs its own cascade to completion before returning. A
// panicking listener is logged and skipped.
//
// # Concurrency
//
// An Environment is not safe for concurrent use. All mutation happens on
// the caller's goroutine within a single call.
package env
