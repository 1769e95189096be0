// Package coalesce batches change notifications.
//
// A user action can flip several facts in a row, and an aggregate view (a
// dungeon summary, a location marker) that listens to many of them would
// otherwise recompute and notify once per fact. An Observer instead marks
// itself dirty and schedules a single recomputation on a Scheduler. A Turn
// scheduler runs everything queued for the current action when it is
// flushed, so each observer notifies at most once per action, and only if
// its computed state actually changed.
package coalesce

import "github.com/roach88/randotrack/internal/env"

// Scheduler defers work until the end of the current turn.
type Scheduler interface {
	Schedule(fn func())
}

// Turn is a Scheduler that queues callbacks until Flush. It is not safe for
// concurrent use.
type Turn struct {
	queue []func()
}

// NewTurn returns an empty turn.
func NewTurn() *Turn {
	return &Turn{}
}

// Schedule queues fn for the next Flush.
func (t *Turn) Schedule(fn func()) {
	t.queue = append(t.queue, fn)
}

// Flush runs queued callbacks in order, including callbacks scheduled while
// flushing, and returns how many ran.
func (t *Turn) Flush() int {
	ran := 0
	for len(t.queue) > 0 {
		fn := t.queue[0]
		t.queue[0] = nil
		t.queue = t.queue[1:]
		fn()
		ran++
	}
	t.queue = nil
	return ran
}

// Pending returns the number of queued callbacks.
func (t *Turn) Pending() int {
	return len(t.queue)
}

// Discard drops every queued callback.
func (t *Turn) Discard() {
	t.queue = nil
}

// Immediate runs callbacks synchronously.
type Immediate struct{}

// Schedule runs fn now.
func (Immediate) Schedule(fn func()) { fn() }

// Observer recomputes a derived state at most once per scheduled run and
// reports it when it differs from the last reported state.
type Observer[S comparable] struct {
	sched   Scheduler
	compute func() S
	notify  func(next, prev S)

	last    S
	pending bool
	// gen invalidates a scheduled run after Cancel or Reset.
	gen uint64
}

// NewObserver returns an observer whose initial state is compute().
func NewObserver[S comparable](sched Scheduler, compute func() S, notify func(next, prev S)) *Observer[S] {
	return &Observer[S]{
		sched:   sched,
		compute: compute,
		notify:  notify,
		last:    compute(),
	}
}

// Notify marks the observer dirty. Repeated calls before the scheduled run
// collapse into that run.
func (o *Observer[S]) Notify() {
	if o.pending {
		return
	}
	o.pending = true
	gen := o.gen
	o.sched.Schedule(func() {
		if gen != o.gen {
			return
		}
		o.run()
	})
}

func (o *Observer[S]) run() {
	o.pending = false
	next := o.compute()
	if next == o.last {
		return
	}
	prev := o.last
	o.last = next
	if o.notify != nil {
		o.notify(next, prev)
	}
}

// Cancel drops a pending run without recomputing.
func (o *Observer[S]) Cancel() {
	if o.pending {
		o.pending = false
		o.gen++
	}
}

// Reset cancels any pending run and recomputes the baseline state without
// notifying.
func (o *Observer[S]) Reset() {
	o.Cancel()
	o.last = o.compute()
}

// Last returns the last reported (or baseline) state.
func (o *Observer[S]) Last() S {
	return o.last
}

// Pending reports whether a run is scheduled.
func (o *Observer[S]) Pending() bool {
	return o.pending
}

// Listener adapts the observer to an environment listener.
func (o *Observer[S]) Listener() env.Listener {
	return func(string, bool, *env.Environment) { o.Notify() }
}
