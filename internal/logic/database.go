package logic

import (
	"github.com/roach88/randotrack/internal/rule"
)

// RuleSpec is a named rule from the logic description. Its ID is bound as a
// fact so other rules can refer to it.
type RuleSpec struct {
	ID          string    `json:"id" validate:"required,factid"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	Rule        rule.Rule `json:"-" validate:"required"`
}

// Prize is a reward for defeating bosses. Facts are set in order as more
// bosses awarding the prize are defeated: with two such bosses defeated,
// the first two facts are true.
type Prize struct {
	Name  string   `json:"name" validate:"required"`
	Facts []string `json:"facts"`
}

// Database is a complete, static logic description.
type Database struct {
	Name    string `json:"name"`
	Variant string `json:"variant,omitempty"`

	Items     []*Item       `json:"items" validate:"dive"`
	Rules     []*RuleSpec   `json:"rules" validate:"dive"`
	Regions   []*Region     `json:"regions" validate:"dive"`
	Locations []MapLocation `json:"-"`
	Dungeons  []*Dungeon    `json:"dungeons" validate:"dive"`

	// Slots are named item lists, such as the medallions.
	Slots map[string][]string `json:"slots,omitempty"`

	Prizes []Prize `json:"prizes" validate:"dive"`

	// Defaults are facts set to true on reset.
	Defaults []string `json:"defaults,omitempty"`
}

// Item returns the item with the given id.
func (db *Database) Item(id string) (*Item, bool) {
	for _, it := range db.Items {
		if it.ID == id {
			return it, true
		}
	}
	return nil, false
}

// Dungeon returns the dungeon with the given id.
func (db *Database) Dungeon(id string) (*Dungeon, bool) {
	for _, d := range db.Dungeons {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// Location returns the map location with the given id. Locations merged
// into another marker are found too.
func (db *Database) Location(id string) (MapLocation, bool) {
	for _, l := range db.Locations {
		if l.LocationID() == id {
			return l, true
		}
		if m, ok := l.(*MergeLocation); ok {
			for _, s := range m.Subs {
				if s.ID == id {
					return s, true
				}
			}
		}
	}
	return nil, false
}

// Prize returns the prize with the given name.
func (db *Database) Prize(name string) (Prize, bool) {
	for _, p := range db.Prizes {
		if p.Name == name {
			return p, true
		}
	}
	return Prize{}, false
}

// NamedRules returns the named rules keyed by id.
func (db *Database) NamedRules() map[string]rule.Rule {
	out := make(map[string]rule.Rule, len(db.Rules))
	for _, r := range db.Rules {
		out[r.ID] = r.Rule
	}
	return out
}

// DerivedRules returns every rule the database binds, keyed by fact name.
// It includes named rules and the rules entities bind for themselves.
func (db *Database) DerivedRules() map[string]rule.Rule {
	out := db.NamedRules()
	for _, r := range db.Regions {
		out[r.ID] = r.Requires
	}
	addLocation := func(l *Location) {
		out[l.ID] = l.Required
		out[VisibleID(l.ID)] = l.Visible
	}
	for _, ml := range db.Locations {
		switch l := ml.(type) {
		case *Location:
			addLocation(l)
		case *MergeLocation:
			ids := make([]rule.Rule, 0, len(l.Subs))
			visible := make([]rule.Rule, 0, len(l.Subs))
			for _, s := range l.Subs {
				addLocation(s)
				ids = append(ids, rule.NewLookup(s.ID, ""))
				visible = append(visible, rule.NewLookup(VisibleID(s.ID), ""))
			}
			out[l.ID] = rule.NewList(ids, rule.All, "")
			out[VisibleID(l.ID)] = rule.NewList(visible, rule.All, "")
		}
	}
	for _, d := range db.Dungeons {
		out[d.EnterID()] = d.Enter
		if d.Boss != nil {
			out[d.Boss.AccessID()] = d.Boss.Access
			out[d.Boss.DefeatID()] = d.Boss.Defeat
		}
		for _, c := range d.Chests {
			out[c.FactID(d.ID)] = c.Access
		}
	}
	return out
}
