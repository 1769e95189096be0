package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// ActionKind names a user action.
type ActionKind string

const (
	ActionSet       ActionKind = "set"
	ActionToggle    ActionKind = "toggle"
	ActionBoss      ActionKind = "boss"
	ActionPrize     ActionKind = "prize"
	ActionMedallion ActionKind = "medallion"
	ActionReset     ActionKind = "reset"
	ActionSoftReset ActionKind = "soft_reset"
)

// Action is one user action. Target is a fact for set and toggle and a
// dungeon id for boss, prize and medallion. Value is the new fact or boss
// state; Choice is the prize or medallion, empty meaning unknown.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Target string     `json:"target,omitempty"`
	Value  bool       `json:"value,omitempty"`
	Choice string     `json:"choice,omitempty"`
}

func (a Action) String() string {
	switch a.Kind {
	case ActionSet, ActionBoss:
		return fmt.Sprintf("%s %s=%t", a.Kind, a.Target, a.Value)
	case ActionToggle:
		return fmt.Sprintf("%s %s", a.Kind, a.Target)
	case ActionPrize, ActionMedallion:
		choice := a.Choice
		if choice == "" {
			choice = "unknown"
		}
		return fmt.Sprintf("%s %s=%s", a.Kind, a.Target, choice)
	default:
		return string(a.Kind)
	}
}

// Journal records applied actions.
type Journal interface {
	Record(ctx context.Context, a Action) error
}

var (
	ErrUnknownAction    = errors.New("unknown action")
	ErrUnknownFact      = errors.New("unknown fact")
	ErrBoundFact        = errors.New("fact is bound to a rule")
	ErrUnknownDungeon   = errors.New("unknown dungeon")
	ErrNoBoss           = errors.New("dungeon has no boss")
	ErrNoPrize          = errors.New("dungeon has no prize")
	ErrUnknownPrize     = errors.New("unknown prize")
	ErrNoMedallion      = errors.New("dungeon has no medallion")
	ErrUnknownMedallion = errors.New("unknown medallion")
)

// Apply performs a as one turn: facts propagate, coalesced observers are
// flushed, then the action is journaled. A rejected action changes nothing
// and is not journaled.
func (t *Tracker) Apply(ctx context.Context, a Action) error {
	if err := t.ApplyUnjournaled(a); err != nil {
		return err
	}
	if t.journal != nil {
		if err := t.journal.Record(ctx, a); err != nil {
			return fmt.Errorf("journal %s: %w", a, err)
		}
	}
	return nil
}

// ApplyUnjournaled performs a like Apply but does not record it. Replays
// use it to rebuild state from a journal.
func (t *Tracker) ApplyUnjournaled(a Action) error {
	if err := t.apply(a); err != nil {
		return fmt.Errorf("%s: %w", a, err)
	}
	t.turn.Flush()
	t.logger.Debug("action applied", "action", a.String())
	return nil
}

func (t *Tracker) apply(a Action) error {
	switch a.Kind {
	case ActionSet:
		if err := t.checkPlain(a.Target); err != nil {
			return err
		}
		t.env.Set(a.Target, a.Value)
	case ActionToggle:
		if err := t.checkPlain(a.Target); err != nil {
			return err
		}
		t.env.Set(a.Target, !t.env.IsTrue(a.Target))
	case ActionBoss:
		d, ok := t.db.Dungeon(a.Target)
		if !ok {
			return ErrUnknownDungeon
		}
		if d.Boss == nil {
			return ErrNoBoss
		}
		t.env.Set(d.ClearedID(), a.Value)
		t.UpdatePrizes()
	case ActionPrize:
		d, ok := t.db.Dungeon(a.Target)
		if !ok {
			return ErrUnknownDungeon
		}
		if !d.HasPrize() {
			return ErrNoPrize
		}
		if a.Choice != "" {
			if _, ok := t.db.Prize(a.Choice); !ok {
				return ErrUnknownPrize
			}
		}
		t.prizes[a.Target] = a.Choice
		t.UpdatePrizes()
	case ActionMedallion:
		d, ok := t.db.Dungeon(a.Target)
		if !ok {
			return ErrUnknownDungeon
		}
		if d.Medallion == "" {
			return ErrNoMedallion
		}
		if a.Choice != "" && !slices.Contains(t.medallionChoices(), a.Choice) {
			return ErrUnknownMedallion
		}
		prev := t.medallions[d.ID]
		t.medallions[d.ID] = a.Choice
		if err := t.bindMedallion(d); err != nil {
			t.medallions[d.ID] = prev
			return err
		}
	case ActionReset:
		return t.reset()
	case ActionSoftReset:
		t.softReset()
	default:
		return ErrUnknownAction
	}
	return nil
}

// checkPlain rejects facts the user cannot set directly.
func (t *Tracker) checkPlain(name string) error {
	if _, ok := t.env.Get(name); !ok {
		return ErrUnknownFact
	}
	if t.env.IsBoundToRule(name) {
		return ErrBoundFact
	}
	return nil
}

// Set sets a plain fact.
func (t *Tracker) Set(ctx context.Context, fact string, value bool) error {
	return t.Apply(ctx, Action{Kind: ActionSet, Target: fact, Value: value})
}

// Toggle flips a plain fact.
func (t *Tracker) Toggle(ctx context.Context, fact string) error {
	return t.Apply(ctx, Action{Kind: ActionToggle, Target: fact})
}

// SetBossDefeated marks a dungeon's boss defeated or not and updates prizes.
func (t *Tracker) SetBossDefeated(ctx context.Context, dungeonID string, defeated bool) error {
	return t.Apply(ctx, Action{Kind: ActionBoss, Target: dungeonID, Value: defeated})
}

// SetPrize assigns the prize a dungeon's boss awards. An empty prize means
// unknown.
func (t *Tracker) SetPrize(ctx context.Context, dungeonID, prize string) error {
	return t.Apply(ctx, Action{Kind: ActionPrize, Target: dungeonID, Choice: prize})
}

// SetMedallion chooses the medallion that opens a dungeon. An empty
// medallion means unknown, which requires all of them.
func (t *Tracker) SetMedallion(ctx context.Context, dungeonID, medallion string) error {
	return t.Apply(ctx, Action{Kind: ActionMedallion, Target: dungeonID, Choice: medallion})
}

// Reset rebuilds the environment from the logic. Medallion choices are
// kept; prize choices are dropped.
func (t *Tracker) Reset(ctx context.Context) error {
	return t.Apply(ctx, Action{Kind: ActionReset})
}

// SoftReset returns every plain fact to its default.
func (t *Tracker) SoftReset(ctx context.Context) error {
	return t.Apply(ctx, Action{Kind: ActionSoftReset})
}
