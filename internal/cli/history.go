package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/randotrack/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Session string // optional - list this session's actions
}

// SessionSummary is one row of the session list.
type SessionSummary struct {
	ID        string    `json:"id"`
	Logic     string    `json:"logic"`
	Variant   string    `json:"variant,omitempty"`
	LogicPath string    `json:"logic_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Actions   int       `json:"actions"`
}

// ActionEntry is one journaled action.
type ActionEntry struct {
	Seq        int64     `json:"seq"`
	Action     string    `json:"action"`
	RecordedAt time.Time `json:"recorded_at"`
}

// HistoryResult holds either the session list or one session's actions.
type HistoryResult struct {
	Sessions []SessionSummary `json:"sessions,omitempty"`
	Session  *SessionSummary  `json:"session,omitempty"`
	Actions  []ActionEntry    `json:"actions,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled sessions and their actions",
		Long: `List the sessions in the journal, oldest first. With --session, list
that session's actions in the order they were applied.

Examples:
  randotrack history --db ./randotrack.db
  randotrack history --session 0190c3b2-...
  randotrack history --session 0190c3b2-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "list this session's actions")

	return cmd
}

func summarize(s store.Session) SessionSummary {
	return SessionSummary{
		ID:        s.ID,
		Logic:     s.Logic,
		Variant:   s.Variant,
		LogicPath: s.LogicPath,
		CreatedAt: s.CreatedAt,
		Actions:   s.Actions,
	}
}

func runHistory(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	st, err := openExisting(opts.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.Session == "" {
		sessions, err := st.Sessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		result := HistoryResult{Sessions: make([]SessionSummary, 0, len(sessions))}
		for _, s := range sessions {
			result.Sessions = append(result.Sessions, summarize(s))
		}
		if formatter.JSON() {
			return formatter.Success(result)
		}
		return outputSessionsText(formatter, result.Sessions)
	}

	sess, err := st.Session(ctx, opts.Session)
	if errors.Is(err, store.ErrSessionNotFound) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("session %s", opts.Session), err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	entries, err := st.Actions(ctx, sess.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read actions", err)
	}

	summary := summarize(sess)
	result := HistoryResult{Session: &summary, Actions: make([]ActionEntry, 0, len(entries))}
	for _, e := range entries {
		result.Actions = append(result.Actions, ActionEntry{Seq: e.Seq, Action: e.Action.String(), RecordedAt: e.RecordedAt})
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputActionsText(formatter, summary, result.Actions)
}

func outputSessionsText(formatter *OutputFormatter, sessions []SessionSummary) error {
	if len(sessions) == 0 {
		fmt.Fprintln(formatter.Writer, "No sessions found in database.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tLOGIC\tVARIANT\tACTIONS\tCREATED")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.Logic, s.Variant, s.Actions, s.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func outputActionsText(formatter *OutputFormatter, s SessionSummary, actions []ActionEntry) error {
	w := formatter.Writer
	fmt.Fprintf(w, "Session %s (%s", s.ID, s.Logic)
	if s.Variant != "" {
		fmt.Fprintf(w, ", %s", s.Variant)
	}
	fmt.Fprintf(w, "): %d action(s)\n", len(actions))
	if formatter.Verbose && s.LogicPath != "" {
		fmt.Fprintf(w, "Logic: %s\n", s.LogicPath)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, a := range actions {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", a.Seq, a.RecordedAt.Format(time.RFC3339), a.Action)
	}
	return tw.Flush()
}
