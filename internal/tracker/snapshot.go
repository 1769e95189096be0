package tracker

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/randotrack/internal/logic"
)

// Fact is one environment entry.
type Fact struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
	// Rule is the bound rule, if any.
	Rule string `json:"rule,omitempty"`
}

// LocationStatus is what a map marker shows.
type LocationStatus struct {
	ID    string              `json:"id"`
	Name  string              `json:"name"`
	State logic.LocationState `json:"state"`
}

// DungeonStatus is what a dungeon panel shows.
type DungeonStatus struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Enterable      bool   `json:"enterable"`
	BossDefeatable bool   `json:"bossDefeatable"`
	Accessible     int    `json:"accessible"`
	Total          int    `json:"total"`
	Cleared        bool   `json:"cleared"`
	Prize          string `json:"prize,omitempty"`
	Medallion      string `json:"medallion,omitempty"`
}

// State is a point-in-time view of the tracker.
type State struct {
	Logic     string           `json:"logic"`
	Variant   string           `json:"variant,omitempty"`
	Facts     []Fact           `json:"facts"`
	Locations []LocationStatus `json:"locations"`
	Dungeons  []DungeonStatus  `json:"dungeons"`
}

// FactNames returns the environment's fact names in English collation
// order.
func (t *Tracker) FactNames() []string {
	names := t.env.Keys()
	SortNames(names)
	return names
}

// SortNames sorts fact names for display.
func SortNames(names []string) {
	collate.New(language.English).SortStrings(names)
}

// Snapshot captures facts, location states and dungeon summaries.
// Locations and dungeons keep the logic's order.
func (t *Tracker) Snapshot() State {
	s := State{
		Logic:     display(t.db.Name),
		Variant:   t.db.Variant,
		Facts:     []Fact{},
		Locations: []LocationStatus{},
		Dungeons:  []DungeonStatus{},
	}

	for _, name := range t.FactNames() {
		f := Fact{Name: name, Value: t.env.IsTrue(name)}
		if r, ok := t.env.BoundRule(name); ok {
			f.Rule = r.String()
		}
		s.Facts = append(s.Facts, f)
	}

	for _, l := range t.db.Locations {
		s.Locations = append(s.Locations, LocationStatus{
			ID:    l.LocationID(),
			Name:  display(l.LocationName()),
			State: l.State(t.env),
		})
	}

	for _, d := range t.db.Dungeons {
		sum := d.Summarize(t.env)
		s.Dungeons = append(s.Dungeons, DungeonStatus{
			ID:             d.ID,
			Name:           display(d.Name),
			Enterable:      sum.Enterable,
			BossDefeatable: sum.BossDefeatable,
			Accessible:     sum.Accessible,
			Total:          d.TotalItemCount(),
			Cleared:        t.env.IsTrue(d.ClearedID()),
			Prize:          t.prizes[d.ID],
			Medallion:      t.medallions[d.ID],
		})
	}
	return s
}

// display normalizes names taken from logic files.
func display(s string) string {
	return norm.NFC.String(s)
}
