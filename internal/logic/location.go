package logic

import (
	"github.com/roach88/randotrack/internal/env"
	"github.com/roach88/randotrack/internal/rule"
)

// LocationState is what a map marker shows.
type LocationState string

const (
	// Unavailable means nothing there can be seen or taken.
	Unavailable LocationState = "unavailable"
	// Visible means the items can be seen but not taken.
	Visible LocationState = "visible"
	// Available means every item can be taken.
	Available LocationState = "available"
	// Partial means some, but not all, merged locations are available.
	Partial LocationState = "partial"
)

// MapLocation is a marker on the map: a plain or merged location.
type MapLocation interface {
	LocationID() string
	LocationName() string
	Point() (x, y float64)
	State(f rule.Facts) LocationState
	Bind(e *env.Environment) error
	Subscribe(fn EventFunc) SubscriptionID
	Unsubscribe(id SubscriptionID) bool
}

// Location is a place holding one or more items.
type Location struct {
	ID       string    `json:"id" validate:"required,factid"`
	Name     string    `json:"name" validate:"required"`
	Required rule.Rule `json:"-" validate:"required"`
	Visible  rule.Rule `json:"-" validate:"required"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Items    int       `json:"items" validate:"gte=0"`
	Type     string    `json:"type,omitempty"`

	Emitter
	regs registrations
	last LocationState
}

// VisibleID is the fact name carrying whether a location's items can be
// seen.
func VisibleID(id string) string {
	return id + ".visible"
}

func (l *Location) LocationID() string    { return l.ID }
func (l *Location) LocationName() string  { return l.Name }
func (l *Location) Point() (x, y float64) { return l.X, l.Y }

// IsAvailable evaluates the location's requirement.
func (l *Location) IsAvailable(f rule.Facts) bool {
	return l.Required.Evaluate(f)
}

// IsVisible evaluates the location's visibility rule.
func (l *Location) IsVisible(f rule.Facts) bool {
	return l.Visible.Evaluate(f)
}

// State returns Available, Visible or Unavailable.
func (l *Location) State(f rule.Facts) LocationState {
	switch {
	case l.IsAvailable(f):
		return Available
	case l.IsVisible(f):
		return Visible
	default:
		return Unavailable
	}
}

// Bind binds the location's id and visibility facts.
func (l *Location) Bind(e *env.Environment) error {
	l.regs.reset(e)
	if err := e.Bind(l.ID, l.Required); err != nil {
		return err
	}
	if err := e.Bind(VisibleID(l.ID), l.Visible); err != nil {
		return err
	}
	l.last = l.State(e)
	check := func(string, bool, *env.Environment) { l.check(e) }
	l.regs.listen(l.ID, check)
	l.regs.listen(VisibleID(l.ID), check)
	return nil
}

func (l *Location) check(f rule.Facts) {
	next := l.State(f)
	if next == l.last {
		return
	}
	prev := l.last
	l.last = next
	l.Emit(Event{Kind: EventLocation, ID: l.ID, State: string(next), Previous: string(prev)})
}

// MergeLocation shows several locations as one marker.
type MergeLocation struct {
	ID   string      `json:"id" validate:"required,factid"`
	Name string      `json:"name" validate:"required"`
	X    float64     `json:"x"`
	Y    float64     `json:"y"`
	Subs []*Location `json:"subs" validate:"dive"`

	Emitter
	regs registrations
	last LocationState
}

func (m *MergeLocation) LocationID() string    { return m.ID }
func (m *MergeLocation) LocationName() string  { return m.Name }
func (m *MergeLocation) Point() (x, y float64) { return m.X, m.Y }

// State is Available when every merged location is available, Partial when
// some are, and otherwise Visible only if every merged location is visible.
func (m *MergeLocation) State(f rule.Facts) LocationState {
	partial, available, visible := false, true, true
	for _, s := range m.Subs {
		if s.IsAvailable(f) {
			partial = true
		} else {
			available = false
		}
		if !s.IsVisible(f) {
			visible = false
		}
	}
	switch {
	case available:
		return Available
	case partial:
		return Partial
	case visible:
		return Visible
	default:
		return Unavailable
	}
}

// Bind binds the merged locations, then binds the marker's own id to all of
// them being available and its visibility to all of them being visible.
func (m *MergeLocation) Bind(e *env.Environment) error {
	m.regs.reset(e)
	ids := make([]rule.Rule, 0, len(m.Subs))
	visible := make([]rule.Rule, 0, len(m.Subs))
	for _, s := range m.Subs {
		if err := s.Bind(e); err != nil {
			return err
		}
		ids = append(ids, rule.NewLookup(s.ID, ""))
		visible = append(visible, rule.NewLookup(VisibleID(s.ID), ""))
	}
	if err := e.Bind(m.ID, rule.NewList(ids, rule.All, m.Name)); err != nil {
		return err
	}
	if err := e.Bind(VisibleID(m.ID), rule.NewList(visible, rule.All, "")); err != nil {
		return err
	}

	m.last = m.State(e)
	check := func(string, bool, *env.Environment) { m.check(e) }
	for _, s := range m.Subs {
		m.regs.listen(s.ID, check)
		m.regs.listen(VisibleID(s.ID), check)
	}
	return nil
}

func (m *MergeLocation) check(f rule.Facts) {
	next := m.State(f)
	if next == m.last {
		return
	}
	prev := m.last
	m.last = next
	m.Emit(Event{Kind: EventLocation, ID: m.ID, State: string(next), Previous: string(prev)})
}
