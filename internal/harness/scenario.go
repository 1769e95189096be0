package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/randotrack/internal/logic"
	"github.com/roach88/randotrack/internal/tracker"
)

// Scenario is a scripted tracker session with expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Logic is the logic file or directory to track. Relative paths are
	// resolved against the scenario file's directory.
	Logic string `yaml:"logic"`

	// Variant selects a logic variant.
	Variant string `yaml:"variant,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one user action.
type Step struct {
	// Action is set, toggle, boss, prize, medallion, reset or soft_reset.
	Action string `yaml:"action"`

	// Target is the fact (set, toggle) or dungeon (boss, prize, medallion).
	Target string `yaml:"target,omitempty"`

	// Value is the new fact value for set. For boss it defaults to true.
	Value *bool `yaml:"value,omitempty"`

	// Choice is the prize or medallion. Empty means unknown.
	Choice string `yaml:"choice,omitempty"`

	// ExpectError marks a step the tracker must reject.
	ExpectError bool `yaml:"expect_error,omitempty"`
}

// TrackerAction converts the step to a tracker action.
func (s Step) TrackerAction() tracker.Action {
	a := tracker.Action{Kind: tracker.ActionKind(s.Action), Target: s.Target, Choice: s.Choice}
	switch {
	case s.Value != nil:
		a.Value = *s.Value
	case a.Kind == tracker.ActionBoss:
		a.Value = true
	}
	return a
}

// Assertion checks the final state.
type Assertion struct {
	// Type is fact, location, dungeon or events.
	Type string `yaml:"type"`

	// Target is the fact, location or dungeon id.
	Target string `yaml:"target"`

	// Value is the expected fact value (fact).
	Value *bool `yaml:"value,omitempty"`

	// State is the expected location state (location).
	State string `yaml:"state,omitempty"`

	// Accessible, Enterable and Completable check a dungeon (dungeon).
	Accessible  *int  `yaml:"accessible,omitempty"`
	Enterable   *bool `yaml:"enterable,omitempty"`
	Completable *bool `yaml:"completable,omitempty"`

	// Count is how many times the target fact's listeners fired over the
	// whole run (events).
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFact     = "fact"
	AssertLocation = "location"
	AssertDungeon  = "dungeon"
	AssertEvents   = "events"
)

var stepActions = []tracker.ActionKind{
	tracker.ActionSet,
	tracker.ActionToggle,
	tracker.ActionBoss,
	tracker.ActionPrize,
	tracker.ActionMedallion,
	tracker.ActionReset,
	tracker.ActionSoftReset,
}

var locationStates = []logic.LocationState{
	logic.Unavailable,
	logic.Visible,
	logic.Available,
	logic.Partial,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if s.Logic != "" && !filepath.IsAbs(s.Logic) {
		s.Logic = filepath.Join(filepath.Dir(path), s.Logic)
	}
	if _, err := os.Stat(s.Logic); err != nil {
		return nil, fmt.Errorf("invalid scenario: logic not found: %s", s.Logic)
	}
	return s, nil
}

// ParseScenario parses scenario YAML. The logic path is not resolved or
// checked.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// LoadScenarios loads every .yaml and .yml file in dir, ordered by file
// name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}

	var scenarios []*Scenario
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		s, err := LoadScenario(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		scenarios = append(scenarios, s)
	}
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios found in %s", dir)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Logic == "" {
		return fmt.Errorf("logic is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	kind := tracker.ActionKind(step.Action)
	if !slices.Contains(stepActions, kind) {
		return fmt.Errorf("unknown action %q", step.Action)
	}
	switch kind {
	case tracker.ActionReset, tracker.ActionSoftReset:
		if step.Target != "" {
			return fmt.Errorf("%s takes no target", kind)
		}
		return nil
	}
	if step.Target == "" {
		return fmt.Errorf("%s: target is required", kind)
	}
	if kind == tracker.ActionSet && step.Value == nil {
		return fmt.Errorf("set: value is required")
	}
	if step.Choice != "" && kind != tracker.ActionPrize && kind != tracker.ActionMedallion {
		return fmt.Errorf("%s takes no choice", kind)
	}
	return nil
}

func validateAssertion(a Assertion) error {
	if a.Target == "" {
		return fmt.Errorf("%s: target is required", a.Type)
	}
	switch a.Type {
	case AssertFact:
		if a.Value == nil {
			return fmt.Errorf("fact: value is required")
		}
	case AssertLocation:
		if !slices.Contains(locationStates, logic.LocationState(a.State)) {
			return fmt.Errorf("location: unknown state %q", a.State)
		}
	case AssertDungeon:
		if a.Accessible == nil && a.Enterable == nil && a.Completable == nil {
			return fmt.Errorf("dungeon: one of accessible, enterable or completable is required")
		}
	case AssertEvents:
		if a.Count == nil {
			return fmt.Errorf("events: count is required")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
