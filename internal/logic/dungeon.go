package logic

import (
	"fmt"

	"github.com/roach88/randotrack/internal/coalesce"
	"github.com/roach88/randotrack/internal/env"
	"github.com/roach88/randotrack/internal/rule"
)

// Boss guards the end of a dungeon.
type Boss struct {
	Name     string    `json:"name" validate:"required"`
	Defeat   rule.Rule `json:"-" validate:"required"`
	Access   rule.Rule `json:"-" validate:"required"`
	HasPrize bool      `json:"prize"`
}

// AccessID is the fact carrying whether the boss can be reached.
func (b *Boss) AccessID() string { return b.Name + ".access" }

// DefeatID is the fact carrying whether the boss can be beaten once reached.
func (b *Boss) DefeatID() string { return b.Name + ".defeat" }

// IsAccessible evaluates the access rule.
func (b *Boss) IsAccessible(f rule.Facts) bool {
	return b.Access.Evaluate(f)
}

// IsDefeatable reports whether the boss can be reached and beaten.
func (b *Boss) IsDefeatable(f rule.Facts) bool {
	return b.Access.Evaluate(f) && b.Defeat.Evaluate(f)
}

// Bind binds the boss's access and defeat facts.
func (b *Boss) Bind(e *env.Environment) error {
	if err := e.Bind(b.AccessID(), b.Access); err != nil {
		return err
	}
	return e.Bind(b.DefeatID(), b.Defeat)
}

// Chest is one item location inside a dungeon.
type Chest struct {
	Name   string    `json:"name" validate:"required"`
	Access rule.Rule `json:"-" validate:"required"`
}

// FactID is the chest's fact name within the given dungeon.
func (c *Chest) FactID(dungeonID string) string {
	return dungeonID + "." + c.Name
}

// IsAccessible evaluates the access rule.
func (c *Chest) IsAccessible(f rule.Facts) bool {
	return c.Access.Evaluate(f)
}

// Summary is the part of a dungeon's state shown on the tracker. Dungeons
// report a change only when their summary changes.
type Summary struct {
	Enterable      bool `json:"enterable"`
	BossDefeatable bool `json:"bossDefeatable"`
	Accessible     int  `json:"accessible"`
}

func (s Summary) String() string {
	return fmt.Sprintf("enterable=%t boss=%t accessible=%d", s.Enterable, s.BossDefeatable, s.Accessible)
}

// Dungeon is a location with a boss, chests and keys.
type Dungeon struct {
	ID    string    `json:"id" validate:"required,factid"`
	Name  string    `json:"name" validate:"required"`
	Enter rule.Rule `json:"-" validate:"required"`
	// Boss may be nil.
	Boss   *Boss    `json:"boss,omitempty"`
	Chests []*Chest `json:"chests" validate:"dive"`
	Keys   int      `json:"keys" validate:"gte=0"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	// NotInPool lists items that belong to the dungeon but are not in a
	// chest, such as a big key dropped by an enemy.
	NotInPool []string `json:"notInPool,omitempty"`
	// Medallion names the fact that holds the medallion requirement for
	// entering, if the dungeon has one.
	Medallion string `json:"medallion,omitempty"`

	// Scheduler coalesces change events. Nil reports immediately.
	Scheduler coalesce.Scheduler `json:"-"`

	Emitter
	regs     registrations
	observer *coalesce.Observer[Summary]
}

// EnterID is the fact carrying whether the dungeon can be entered.
func (d *Dungeon) EnterID() string { return d.ID + ".enter" }

// ClearedID is the fact carrying whether the dungeon's boss was defeated.
func (d *Dungeon) ClearedID() string { return d.ID + ".cleared" }

// HasPrize reports whether defeating the boss awards a prize.
func (d *Dungeon) HasPrize() bool {
	return d.Boss != nil && d.Boss.HasPrize
}

// TotalItemCount is the number of item locations, including keys, map and
// compass.
func (d *Dungeon) TotalItemCount() int {
	return len(d.Chests)
}

// TreasureCount is the number of items that are not keys, map or compass.
func (d *Dungeon) TreasureCount() int {
	n := len(d.Chests) - d.Keys - 3
	if d.HasPrize() {
		n++
	}
	return n + len(d.NotInPool)
}

// IsEnterable evaluates the entry rule.
func (d *Dungeon) IsEnterable(f rule.Facts) bool {
	return d.Enter.Evaluate(f)
}

// AccessibleItemCount counts reachable chests. It is zero when the dungeon
// cannot be entered.
func (d *Dungeon) AccessibleItemCount(f rule.Facts) int {
	if !d.IsEnterable(f) {
		return 0
	}
	n := 0
	for _, c := range d.Chests {
		if c.IsAccessible(f) {
			n++
		}
	}
	return n
}

// IsCompletable reports whether every chest is reachable. It ignores the
// boss.
func (d *Dungeon) IsCompletable(f rule.Facts) bool {
	return d.AccessibleItemCount(f) >= len(d.Chests)
}

// IsBossDefeatable reports whether the boss can be beaten. A dungeon without
// a boss is always defeatable.
func (d *Dungeon) IsBossDefeatable(f rule.Facts) bool {
	if d.Boss == nil {
		return true
	}
	return d.IsEnterable(f) && d.Boss.IsDefeatable(f)
}

// Summarize computes the dungeon's summary.
func (d *Dungeon) Summarize(f rule.Facts) Summary {
	return Summary{
		Enterable:      d.IsEnterable(f),
		BossDefeatable: d.IsBossDefeatable(f),
		Accessible:     d.AccessibleItemCount(f),
	}
}

// LastSummary returns the summary most recently reported to subscribers.
func (d *Dungeon) LastSummary() Summary {
	if d.observer == nil {
		return Summary{}
	}
	return d.observer.Last()
}

// Bind binds the entry, boss and chest facts and starts watching them.
func (d *Dungeon) Bind(e *env.Environment) error {
	d.regs.reset(e)
	if d.observer != nil {
		d.observer.Cancel()
	}

	if err := e.Bind(d.EnterID(), d.Enter); err != nil {
		return err
	}
	watch := []string{d.EnterID()}
	if d.Boss != nil {
		if err := d.Boss.Bind(e); err != nil {
			return err
		}
		watch = append(watch, d.Boss.AccessID(), d.Boss.DefeatID())
	}
	for _, c := range d.Chests {
		if err := e.Bind(c.FactID(d.ID), c.Access); err != nil {
			return err
		}
		watch = append(watch, c.FactID(d.ID))
	}

	sched := d.Scheduler
	if sched == nil {
		sched = coalesce.Immediate{}
	}
	d.observer = coalesce.NewObserver(sched,
		func() Summary { return d.Summarize(e) },
		func(next, prev Summary) {
			d.Emit(Event{Kind: EventDungeon, ID: d.ID, State: next.String(), Previous: prev.String()})
		})
	for _, name := range watch {
		d.regs.listen(name, d.observer.Listener())
	}
	return nil
}
