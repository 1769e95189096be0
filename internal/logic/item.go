package logic

import (
	"github.com/roach88/randotrack/internal/env"
	"github.com/roach88/randotrack/internal/rule"
)

// Item is something the player can hold.
type Item struct {
	ID      string `json:"id" validate:"required,factid"`
	Name    string `json:"name" validate:"required"`
	Default bool   `json:"default,omitempty"`

	Emitter
	regs registrations
}

// Bind publishes the item as a literal fact, initially not held.
func (it *Item) Bind(e *env.Environment) error {
	it.regs.reset(e)
	e.Set(it.ID, false)
	it.regs.listen(it.ID, func(_ string, held bool, _ *env.Environment) {
		it.Emit(Event{Kind: EventItem, ID: it.ID, State: heldState(held), Previous: heldState(!held)})
	})
	return nil
}

// Held reports whether the item is held.
func (it *Item) Held(f rule.Facts) bool {
	return f.IsTrue(it.ID)
}

// SetHeld sets the item's fact.
func (it *Item) SetHeld(e *env.Environment, held bool) {
	e.Set(it.ID, held)
}

func heldState(held bool) string {
	if held {
		return "held"
	}
	return "missing"
}
