// Package tracker holds the live state of one randomizer run: the reactive
// environment built from a logic database, plus the choices a player makes
// on top of it (defeated bosses, dungeon prizes, entry medallions).
//
// Every user action is one turn. Facts propagate synchronously while the
// action runs; coalesced dungeon summaries are delivered when the turn is
// flushed at the end of the action. Actions are optionally recorded to a
// Journal so a session can be rebuilt by replaying them.
//
// A Tracker is not safe for concurrent use.
package tracker

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/randotrack/internal/coalesce"
	"github.com/roach88/randotrack/internal/env"
	"github.com/roach88/randotrack/internal/logic"
	"github.com/roach88/randotrack/internal/rule"
)

// MedallionSlot is the slot listing the medallions a dungeon may require.
const MedallionSlot = "medallions"

// Tracker is the state of one run.
type Tracker struct {
	db      *logic.Database
	env     *env.Environment
	turn    *coalesce.Turn
	logger  *slog.Logger
	journal Journal

	defaults map[string]bool
	// prizes maps dungeon id to the prize its boss awards.
	prizes map[string]string
	// medallions maps dungeon id to the medallion chosen for it.
	medallions map[string]string

	events logic.Emitter
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = l
	}
}

// WithJournal records every applied action to j.
func WithJournal(j Journal) Option {
	return func(t *Tracker) {
		t.journal = j
	}
}

// New creates a tracker for db and resets it.
//
// The tracker takes ownership of db: it schedules the dungeons on its own
// turn, subscribes to every entity and binds them to its environment. Every
// tracker needs its own Database; build one per tracker with
// compiler.LoadFile or compiler.Load.
func New(db *logic.Database, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		db:         db,
		turn:       coalesce.NewTurn(),
		logger:     slog.Default(),
		defaults:   make(map[string]bool, len(db.Defaults)),
		prizes:     make(map[string]string),
		medallions: make(map[string]string),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.env = env.New(env.WithLogger(t.logger))

	for _, name := range db.Defaults {
		t.defaults[name] = true
	}
	for _, d := range db.Dungeons {
		d.Scheduler = t.turn
	}
	t.forwardEvents()

	if err := t.reset(); err != nil {
		return nil, err
	}
	return t, nil
}

// Database returns the logic the tracker was built from.
func (t *Tracker) Database() *logic.Database { return t.db }

// Environment returns the underlying environment. Writing to it directly
// bypasses the journal.
func (t *Tracker) Environment() *env.Environment { return t.env }

// Subscribe registers fn for item, region, location and dungeon events.
func (t *Tracker) Subscribe(fn logic.EventFunc) logic.SubscriptionID {
	return t.events.Subscribe(fn)
}

// Unsubscribe removes a Subscribe registration.
func (t *Tracker) Unsubscribe(id logic.SubscriptionID) bool {
	return t.events.Unsubscribe(id)
}

func (t *Tracker) forwardEvents() {
	forward := func(ev logic.Event) { t.events.Emit(ev) }
	for _, it := range t.db.Items {
		it.Subscribe(forward)
	}
	for _, r := range t.db.Regions {
		r.Subscribe(forward)
	}
	for _, l := range t.db.Locations {
		l.Subscribe(forward)
	}
	for _, d := range t.db.Dungeons {
		d.Subscribe(forward)
	}
}

// reset rebuilds the environment from the database.
func (t *Tracker) reset() error {
	t.env.Clear()
	t.turn.Discard()
	clear(t.prizes)
	clear(t.medallions)

	for _, r := range t.db.Rules {
		if err := t.env.Bind(r.ID, r.Rule); err != nil {
			return fmt.Errorf("bind rule %s: %w", r.ID, err)
		}
	}
	for _, it := range t.db.Items {
		if err := it.Bind(t.env); err != nil {
			return fmt.Errorf("bind item %s: %w", it.ID, err)
		}
	}
	for _, r := range t.db.Regions {
		if err := r.Bind(t.env); err != nil {
			return fmt.Errorf("bind region %s: %w", r.ID, err)
		}
	}
	for _, l := range t.db.Locations {
		if err := l.Bind(t.env); err != nil {
			return fmt.Errorf("bind location %s: %w", l.LocationID(), err)
		}
	}
	for _, d := range t.db.Dungeons {
		if err := d.Bind(t.env); err != nil {
			return fmt.Errorf("bind dungeon %s: %w", d.ID, err)
		}
		if d.Boss != nil {
			t.env.Set(d.ClearedID(), false)
		}
		if d.Medallion != "" {
			if err := t.bindMedallion(d); err != nil {
				return err
			}
		}
	}
	for _, p := range t.db.Prizes {
		for _, f := range p.Facts {
			t.env.Set(f, false)
		}
	}
	for _, name := range t.db.Defaults {
		t.env.Set(name, true)
	}

	t.turn.Flush()
	t.logger.Debug("tracker reset", "logic", t.db.Name, "facts", t.env.Len())
	return nil
}

// softReset returns every plain fact to its default without rebinding.
// Listeners, bound rules and the player's prize and medallion choices are
// kept.
func (t *Tracker) softReset() {
	for _, name := range t.env.Keys() {
		if !t.env.IsBoundToRule(name) {
			t.env.Set(name, t.defaults[name])
		}
	}
}

// bindMedallion binds a dungeon's medallion fact to its current choice.
// With no choice every medallion in the slot is required.
func (t *Tracker) bindMedallion(d *logic.Dungeon) error {
	var r rule.Rule
	if choice := t.medallions[d.ID]; choice != "" {
		r = rule.NewLookup(choice, "")
	} else {
		slot := t.db.Slots[MedallionSlot]
		lookups := make([]rule.Rule, 0, len(slot))
		for _, m := range slot {
			lookups = append(lookups, rule.NewLookup(m, ""))
		}
		r = rule.NewList(lookups, rule.All, "")
	}
	if err := t.env.Bind(d.Medallion, r); err != nil {
		return fmt.Errorf("bind medallion %s: %w", d.Medallion, err)
	}
	return nil
}

// Medallion returns the medallion chosen for a dungeon, or "" if unknown.
func (t *Tracker) Medallion(dungeonID string) string {
	return t.medallions[dungeonID]
}

// Prize returns the prize assigned to a dungeon, or "" if unknown.
func (t *Tracker) Prize(dungeonID string) string {
	return t.prizes[dungeonID]
}

// BossDefeated reports whether a dungeon's boss is marked defeated.
func (t *Tracker) BossDefeated(dungeonID string) bool {
	d, ok := t.db.Dungeon(dungeonID)
	return ok && t.env.IsTrue(d.ClearedID())
}

// UpdatePrizes counts defeated bosses per prize and sets each prize's facts
// in order: with n such bosses defeated, the first n facts are true.
func (t *Tracker) UpdatePrizes() {
	counts := make(map[string]int)
	for _, d := range t.db.Dungeons {
		if !d.HasPrize() || !t.env.IsTrue(d.ClearedID()) {
			continue
		}
		if p := t.prizes[d.ID]; p != "" {
			counts[p]++
		}
	}
	for _, p := range t.db.Prizes {
		n := counts[p.Name]
		for i, f := range p.Facts {
			t.env.Set(f, i < n)
		}
	}
}

func (t *Tracker) medallionChoices() []string {
	return slices.Clone(t.db.Slots[MedallionSlot])
}
