package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/roach88/randotrack/internal/compiler"
	"github.com/roach88/randotrack/internal/env"
	"github.com/roach88/randotrack/internal/logic"
	"github.com/roach88/randotrack/internal/store"
	"github.com/roach88/randotrack/internal/testutil"
	"github.com/roach88/randotrack/internal/tracker"
)

// Harness executes one scenario.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	tracker  *tracker.Tracker
	session  string
	logger   *slog.Logger

	// fired counts listener firings of facts named by events assertions.
	fired map[string]int
	// pending collects entity events for the step being executed.
	pending []logic.Event
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory journal. Execution flow:
//  1. Load, validate and compile the logic
//  2. Execute the steps, journaling accepted actions
//  3. Replay the journal into a second tracker and compare the snapshots
//  4. Evaluate assertions
//
// An error is returned when the scenario cannot be executed at all; step and
// assertion failures are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewSequentialIDs("scenario")),
		store.WithClock(testutil.NewDeterministicClock()))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		scenario: scenario,
		store:    st,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		fired:    make(map[string]int),
	}

	db, err := loadLogic(scenario)
	if err != nil {
		return nil, err
	}
	sess, err := st.CreateSession(ctx, db.Name, scenario.Variant, scenario.Logic)
	if err != nil {
		return nil, err
	}
	h.session = sess.ID

	h.tracker, err = tracker.New(db,
		tracker.WithLogger(h.logger),
		tracker.WithJournal(st.Journal(sess.ID)))
	if err != nil {
		return nil, fmt.Errorf("failed to create tracker: %w", err)
	}
	h.tracker.Subscribe(func(ev logic.Event) { h.pending = append(h.pending, ev) })
	h.watch()

	result := NewResult()
	if err := h.executeSteps(ctx, result); err != nil {
		return nil, err
	}
	result.State = h.tracker.Snapshot()

	if err := h.checkReplay(ctx, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(h.tracker, scenario.Assertions, h.fired) {
		result.AddError(msg)
	}
	return result, nil
}

func loadLogic(scenario *Scenario) (*logic.Database, error) {
	res, errs := compiler.Load(scenario.Logic, scenario.Variant)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load logic: %w", errors.Join(errs...))
	}
	if verrs := compiler.Validate(res.Database); len(verrs) > 0 {
		joined := make([]error, len(verrs))
		for i, v := range verrs {
			joined[i] = v
		}
		return nil, fmt.Errorf("invalid logic: %w", errors.Join(joined...))
	}
	return res.Database, nil
}

// watch attaches counting listeners to the facts named by events
// assertions. A reset clears the environment, so it runs again after one.
func (h *Harness) watch() {
	e := h.tracker.Environment()
	for _, a := range h.scenario.Assertions {
		if a.Type != AssertEvents {
			continue
		}
		e.AddListener(a.Target, func(name string, _ bool, _ *env.Environment) {
			h.fired[name]++
		})
	}
}

func (h *Harness) executeSteps(ctx context.Context, result *Result) error {
	for i, step := range h.scenario.Steps {
		a := step.TrackerAction()
		h.pending = nil

		err := h.tracker.Apply(ctx, a)
		ev := TraceEvent{Action: a.String(), Events: h.pending}

		switch {
		case err != nil && step.ExpectError:
			ev.Error = err.Error()
		case err != nil:
			ev.Error = err.Error()
			result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", i, a, err))
		case step.ExpectError:
			result.AddError(fmt.Sprintf("step %d (%s): expected an error", i, a))
		}

		if err == nil {
			seq, serr := h.lastSeq(ctx)
			if serr != nil {
				return serr
			}
			ev.Seq = seq
			if a.Kind == tracker.ActionReset {
				h.watch()
			}
		}
		result.Trace = append(result.Trace, ev)
	}
	return nil
}

func (h *Harness) lastSeq(ctx context.Context) (int64, error) {
	sess, err := h.store.Session(ctx, h.session)
	if err != nil {
		return 0, err
	}
	return int64(sess.Actions), nil
}

// checkReplay rebuilds the session from the journal and reports a mismatch
// with the live tracker.
func (h *Harness) checkReplay(ctx context.Context, result *Result) error {
	db, err := loadLogic(h.scenario)
	if err != nil {
		return err
	}
	replayed, err := tracker.New(db, tracker.WithLogger(h.logger))
	if err != nil {
		return fmt.Errorf("failed to create replay tracker: %w", err)
	}
	if _, err := h.store.ReplayInto(ctx, h.session, replayed); err != nil {
		result.AddError(fmt.Sprintf("replay: %v", err))
		return nil
	}
	if !reflect.DeepEqual(result.State, replayed.Snapshot()) {
		result.AddError("replay: journal replay ends in a different state")
	}
	return nil
}
