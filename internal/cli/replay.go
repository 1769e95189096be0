package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/roach88/randotrack/internal/store"
	"github.com/roach88/randotrack/internal/tracker"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Session string
}

// ReplayOutput holds the replay result for one session.
type ReplayOutput struct {
	Session       string        `json:"session"`
	Logic         string        `json:"logic"`
	Applied       int           `json:"applied"`
	LastSeq       int64         `json:"last_seq"`
	Deterministic bool          `json:"deterministic"`
	State         tracker.State `json:"state"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild a session from its journal",
		Long: `Replay a journaled session into a fresh tracker and print the state.

The session's logic is reloaded from the path recorded with it unless
--logic is given. The journal is replayed twice and both runs must end in
the same state.

Exit codes:
  0 - Replay succeeded and was deterministic
  1 - Replay diverged or the logic is invalid
  2 - Command error (database or session not found, etc.)

Examples:
  randotrack replay --db ./randotrack.db --session 0190c3b2-...
  randotrack replay --session 0190c3b2-... --logic ./logic/alttp --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to replay (required)")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

// openExisting opens a journal database that must already exist; Open
// would otherwise create an empty one.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path), err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	st, err := openExisting(opts.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := st.Session(ctx, opts.Session)
	if errors.Is(err, store.ErrSessionNotFound) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("session %s", opts.Session), err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	path := opts.Logic
	if path == "" {
		path = sess.LogicPath
	}
	if path == "" {
		return NewExitError(ExitCommandError, "session has no recorded logic path: pass --logic")
	}
	variant := sess.Variant
	if opts.Variant != "" {
		variant = opts.Variant
	}
	formatter.VerboseLog("Replaying %d action(s) of session %s against %s", sess.Actions, sess.ID, path)

	first, res, err := replaySession(ctx, opts.RootOptions, st, sess.ID, path, variant)
	if err != nil {
		return err
	}
	second, _, err := replaySession(ctx, opts.RootOptions, st, sess.ID, path, variant)
	if err != nil {
		return err
	}

	out := ReplayOutput{
		Session:       sess.ID,
		Logic:         sess.Logic,
		Applied:       res.Applied,
		LastSeq:       res.LastSeq,
		Deterministic: reflect.DeepEqual(first, second),
		State:         first,
	}

	if formatter.JSON() {
		if !out.Deterministic {
			_ = formatter.Failure("E_DETERMINISM", "replay diverged", out)
			return NewExitError(ExitFailure, "determinism verification failed")
		}
		return formatter.Success(out)
	}
	return outputReplayText(formatter, out)
}

// replaySession rebuilds one session into a fresh tracker. Logic is loaded
// per replay because entities carry per-tracker bindings.
func replaySession(ctx context.Context, opts *RootOptions, st *store.Store, id, path, variant string) (tracker.State, store.ReplayResult, error) {
	db, err := loadValidLogic(path, variant)
	if err != nil {
		return tracker.State{}, store.ReplayResult{}, err
	}
	tr, err := opts.newTracker(db)
	if err != nil {
		return tracker.State{}, store.ReplayResult{}, err
	}
	res, err := st.ReplayInto(ctx, id, tr)
	if err != nil {
		return tracker.State{}, res, WrapExitError(ExitFailure, "replay failed", err)
	}
	return tr.Snapshot(), res, nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, out ReplayOutput) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Session %s: %d action(s) replayed (last seq %d)\n", out.Session, out.Applied, out.LastSeq)
	fmt.Fprintln(w)
	writeStatusText(w, StatusResult{State: out.State}, formatter.Verbose)
	fmt.Fprintln(w)

	if out.Deterministic {
		fmt.Fprintln(w, "✓ Replay verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
