package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/randotrack/internal/logic"
	"github.com/roach88/randotrack/internal/store"
	"github.com/roach88/randotrack/internal/tracker"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Bosses     []string // dungeon ids whose boss is defeated
	Prizes     []string // dungeon=prize
	Medallions []string // dungeon=medallion
	Facts      bool     // list every fact in text output
	Record     bool     // journal the actions to --db
}

// StatusResult is the state after the requested actions.
type StatusResult struct {
	Session string        `json:"session,omitempty"`
	Actions []string      `json:"actions"`
	State   tracker.State `json:"state"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status [logic] [fact=true|false ...]",
		Short: "Show what is reachable for a set of facts",
		Long: `Apply fact assignments and dungeon choices to a fresh tracker and print
the resulting location and dungeon states.

The logic path may be omitted when --logic or RANDOTRACK_LOGIC is set.
Assignments are applied in order, then bosses, prizes and medallions.
With --record the actions are journaled to --db as a new session that
replay and history can read back.

Exit codes:
  0 - Success
  1 - Logic is invalid
  2 - Command error (bad assignment, unknown fact, rejected action)

Examples:
  randotrack status ./logic/alttp glove=true lamp=true
  randotrack status ./logic/alttp hammer=true --boss hera --prize hera=crystal
  randotrack status ./logic/alttp moonpearl=true --medallion mire=quake --record`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Bosses, "boss", nil, "mark a dungeon's boss defeated (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Prizes, "prize", nil, "assign a dungeon prize as dungeon=prize (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Medallions, "medallion", nil, "choose a dungeon medallion as dungeon=medallion (repeatable)")
	cmd.Flags().BoolVar(&opts.Facts, "facts", false, "list every fact")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "journal the actions as a new session in --db")

	return cmd
}

// splitLogicArgs separates the optional leading logic path from
// assignments.
func splitLogicArgs(opts *RootOptions, args []string) (string, []string, error) {
	if len(args) > 0 && !strings.Contains(args[0], "=") {
		return args[0], args[1:], nil
	}
	path, err := opts.logicPath("")
	return path, args, err
}

// parseActions turns assignments and flags into tracker actions.
func parseActions(opts *StatusOptions, assignments []string) ([]tracker.Action, error) {
	var actions []tracker.Action
	for _, arg := range assignments {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid assignment %q: want fact=true|false", arg))
		}
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid assignment %q: want fact=true|false", arg))
		}
		actions = append(actions, tracker.Action{Kind: tracker.ActionSet, Target: name, Value: value})
	}
	for _, d := range opts.Bosses {
		actions = append(actions, tracker.Action{Kind: tracker.ActionBoss, Target: d, Value: true})
	}
	for _, kv := range opts.Prizes {
		a, err := parseChoice(tracker.ActionPrize, kv)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	for _, kv := range opts.Medallions {
		a, err := parseChoice(tracker.ActionMedallion, kv)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func parseChoice(kind tracker.ActionKind, kv string) (tracker.Action, error) {
	dungeon, choice, ok := strings.Cut(kv, "=")
	if !ok || dungeon == "" {
		return tracker.Action{}, NewExitError(ExitCommandError, fmt.Sprintf("invalid --%s %q: want dungeon=%s", kind, kv, kind))
	}
	return tracker.Action{Kind: kind, Target: dungeon, Choice: choice}, nil
}

func runStatus(ctx context.Context, opts *StatusOptions, args []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	path, assignments, err := splitLogicArgs(opts.RootOptions, args)
	if err != nil {
		return err
	}
	actions, err := parseActions(opts, assignments)
	if err != nil {
		return err
	}

	db, err := loadValidLogic(path, opts.Variant)
	if err != nil {
		return err
	}

	var trOpts []tracker.Option
	var session string
	if opts.Record {
		st, err := store.Open(opts.DB)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()

		abs, err := filepath.Abs(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to resolve logic path", err)
		}
		sess, err := st.CreateSession(ctx, db.Name, opts.Variant, abs)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create session", err)
		}
		session = sess.ID
		trOpts = append(trOpts, tracker.WithJournal(st.Journal(sess.ID)))
		formatter.VerboseLog("Recording session %s in %s", sess.ID, opts.DB)
	}

	tr, err := opts.newTracker(db, trOpts...)
	if err != nil {
		return err
	}

	result := StatusResult{Session: session, Actions: []string{}}
	for _, a := range actions {
		if err := tr.Apply(ctx, a); err != nil {
			return WrapExitError(ExitCommandError, "action rejected", err)
		}
		result.Actions = append(result.Actions, a.String())
	}
	result.State = tr.Snapshot()

	if formatter.JSON() {
		return formatter.Success(result)
	}
	writeStatusText(formatter.Writer, result, opts.Facts)
	return nil
}

var stateMarks = map[logic.LocationState]string{
	logic.Available:   "✓",
	logic.Partial:     "◐",
	logic.Visible:     "?",
	logic.Unavailable: "✗",
}

func writeStatusText(w io.Writer, result StatusResult, facts bool) {
	s := result.State
	title := s.Logic
	if s.Variant != "" {
		title += " (" + s.Variant + ")"
	}
	fmt.Fprintln(w, title)
	if result.Session != "" {
		fmt.Fprintf(w, "Session: %s\n", result.Session)
	}

	if len(s.Locations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Locations:")
		for _, l := range s.Locations {
			fmt.Fprintf(w, "  %s %s (%s)\n", stateMarks[l.State], l.Name, l.State)
		}
	}

	if len(s.Dungeons) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Dungeons:")
		for _, d := range s.Dungeons {
			mark := "✗"
			if d.Enterable {
				mark = "✓"
			}
			fmt.Fprintf(w, "  %s %s %d/%d", mark, d.Name, d.Accessible, d.Total)
			if d.BossDefeatable {
				fmt.Fprint(w, " boss")
			}
			if d.Cleared {
				fmt.Fprint(w, " cleared")
			}
			if d.Prize != "" {
				fmt.Fprintf(w, " prize=%s", d.Prize)
			}
			if d.Medallion != "" {
				fmt.Fprintf(w, " medallion=%s", d.Medallion)
			}
			fmt.Fprintln(w)
		}
	}

	if facts {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Facts:")
		for _, f := range s.Facts {
			if f.Rule != "" {
				fmt.Fprintf(w, "  %s = %t  [%s]\n", f.Name, f.Value, f.Rule)
				continue
			}
			fmt.Fprintf(w, "  %s = %t\n", f.Name, f.Value)
		}
	}
}
