package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/randotrack/internal/tracker"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Facts []string // fact=value assignments applied first
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain [logic] <fact>",
		Short: "Show why a fact has its value",
		Long: `Print the rule tree behind a fact with the current value of every node.

Lookups of facts that are themselves bound to rules are marked "bound";
explain them in turn to follow the chain. Use --set to apply assignments
before explaining.

Examples:
  randotrack explain ./logic/alttp ether_tablet
  randotrack explain ./logic/alttp hera.enter --set glove=true --set lamp=true
  randotrack explain --logic ./logic/alttp canfight --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, fact := "", args[0]
			if len(args) == 2 {
				path, fact = args[0], args[1]
			}
			return runExplain(opts, path, fact, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Facts, "set", nil, "apply fact=true|false before explaining (repeatable)")

	return cmd
}

func runExplain(opts *ExplainOptions, path, fact string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	path, err := opts.logicPath(path)
	if err != nil {
		return err
	}
	actions, err := parseActions(&StatusOptions{RootOptions: opts.RootOptions}, opts.Facts)
	if err != nil {
		return err
	}

	db, err := loadValidLogic(path, opts.Variant)
	if err != nil {
		return err
	}
	tr, err := opts.newTracker(db)
	if err != nil {
		return err
	}
	for _, a := range actions {
		if err := tr.ApplyUnjournaled(a); err != nil {
			return WrapExitError(ExitCommandError, "action rejected", err)
		}
	}

	ex, err := tr.Explain(fact)
	if err != nil {
		if errors.Is(err, tracker.ErrUnknownFact) {
			return WrapExitError(ExitCommandError, "cannot explain", err)
		}
		return err
	}

	if formatter.JSON() {
		return formatter.Success(ex)
	}
	writeExplanation(formatter.Writer, ex, 0)
	return nil
}

// writeExplanation prints one node per line, children indented below their
// parent.
func writeExplanation(w io.Writer, ex *tracker.Explanation, depth int) {
	mark := "✗"
	if ex.Value {
		mark = "✓"
	}

	var label string
	switch ex.Kind {
	case tracker.KindFact:
		label = "plain"
	case tracker.KindLookup:
		label = ex.Fact
		if ex.Bound {
			label += " (bound)"
		}
	case tracker.KindConstant:
		label = fmt.Sprint(ex.Value)
	default:
		label = ex.Kind
	}
	if depth == 0 {
		label = ex.Fact + ": " + label
	}
	if ex.Name != "" {
		label += fmt.Sprintf(" [%s]", ex.Name)
	}

	fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", depth), mark, label)
	for _, c := range ex.Children {
		writeExplanation(w, c, depth+1)
	}
}
