package logic

import (
	"log/slog"
	"slices"

	"github.com/roach88/randotrack/internal/env"
)

// EventKind identifies the kind of entity that produced an Event.
type EventKind string

const (
	EventItem     EventKind = "item"
	EventRegion   EventKind = "region"
	EventLocation EventKind = "location"
	EventDungeon  EventKind = "dungeon"
)

// Event reports a change in an entity's derived state.
type Event struct {
	Kind     EventKind `json:"kind"`
	ID       string    `json:"id"`
	State    string    `json:"state"`
	Previous string    `json:"previous"`
}

// EventFunc receives entity events.
type EventFunc func(Event)

// SubscriptionID identifies one Subscribe registration.
type SubscriptionID int

type subscription struct {
	id SubscriptionID
	fn EventFunc
}

// Emitter delivers events to subscribers. A panicking subscriber is logged
// and does not stop delivery to the others. The zero value is ready to use.
type Emitter struct {
	subs []subscription
	next SubscriptionID
}

// Subscribe registers fn and returns a handle for Unsubscribe.
func (em *Emitter) Subscribe(fn EventFunc) SubscriptionID {
	em.next++
	em.subs = append(em.subs, subscription{id: em.next, fn: fn})
	return em.next
}

// Unsubscribe removes a registration. It reports whether one was removed.
func (em *Emitter) Unsubscribe(id SubscriptionID) bool {
	for i, s := range em.subs {
		if s.id == id {
			em.subs = slices.Delete(slices.Clone(em.subs), i, i+1)
			return true
		}
	}
	return false
}

// Emit delivers ev to every subscriber in registration order.
func (em *Emitter) Emit(ev Event) {
	for _, s := range slices.Clone(em.subs) {
		em.deliver(s, ev)
	}
}

func (em *Emitter) deliver(s subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("event subscriber panicked", "kind", ev.Kind, "id", ev.ID, "panic", r)
		}
	}()
	s.fn(ev)
}

type registration struct {
	name string
	id   env.ListenerID
}

// registrations tracks the listeners an entity added to an environment so
// a later Bind can remove them first.
type registrations struct {
	env  *env.Environment
	list []registration
}

func (r *registrations) reset(e *env.Environment) {
	if r.env != nil {
		for _, reg := range r.list {
			r.env.RemoveListener(reg.name, reg.id)
		}
	}
	r.env = e
	r.list = r.list[:0]
}

func (r *registrations) listen(name string, fn env.Listener) {
	id := r.env.AddListener(name, fn)
	r.list = append(r.list, registration{name: name, id: id})
}

func (r *registrations) count() int {
	return len(r.list)
}
