package testutil

import (
	"slices"
	"sync"

	"github.com/roach88/randotrack/internal/env"
	"github.com/roach88/randotrack/internal/logic"
)

// Recorder collects entity events and fact listener firings.
type Recorder struct {
	mu     sync.Mutex
	events []logic.Event
	fires  []Firing
}

// Firing is one listener call.
type Firing struct {
	Name  string
	Value bool
}

// Event records ev. It has the logic.EventFunc signature.
func (r *Recorder) Event(ev logic.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Listener returns an env.Listener that records each firing.
func (r *Recorder) Listener() env.Listener {
	return func(name string, value bool, _ *env.Environment) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.fires = append(r.fires, Firing{Name: name, Value: value})
	}
}

// Events returns the recorded events, optionally only those of one kind.
func (r *Recorder) Events(kinds ...logic.EventKind) []logic.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []logic.Event{}
	for _, ev := range r.events {
		if len(kinds) == 0 || slices.Contains(kinds, ev.Kind) {
			out = append(out, ev)
		}
	}
	return out
}

// Firings returns the recorded listener firings.
func (r *Recorder) Firings() []Firing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Firing{}, r.fires...)
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.fires = nil
}
