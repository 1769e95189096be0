package logic

import (
	"strconv"

	"github.com/roach88/randotrack/internal/env"
	"github.com/roach88/randotrack/internal/rule"
)

// Region is an area of the map reachable under a rule.
type Region struct {
	ID       string    `json:"id" validate:"required,factid"`
	Name     string    `json:"name" validate:"required"`
	Requires rule.Rule `json:"-" validate:"required"`

	Emitter
	regs registrations
	last bool
}

// Bind binds the region's id to its requirement.
func (r *Region) Bind(e *env.Environment) error {
	r.regs.reset(e)
	if err := e.Bind(r.ID, r.Requires); err != nil {
		return err
	}
	r.last = e.IsTrue(r.ID)
	r.regs.listen(r.ID, func(_ string, available bool, _ *env.Environment) {
		if available == r.last {
			return
		}
		prev := r.last
		r.last = available
		r.Emit(Event{Kind: EventRegion, ID: r.ID, State: strconv.FormatBool(available), Previous: strconv.FormatBool(prev)})
	})
	return nil
}

// IsAvailable evaluates the region's requirement.
func (r *Region) IsAvailable(f rule.Facts) bool {
	return r.Requires.Evaluate(f)
}
