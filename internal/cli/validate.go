package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/randotrack/internal/compiler"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Watch    bool
	Debounce time.Duration
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Logic     string                     `json:"logic,omitempty"`
	Locations int                        `json:"locations,omitempty"`
	Dungeons  int                        `json:"dungeons,omitempty"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [logic]",
		Short: "Validate a logic description",
		Long: `Validate a CUE or JSON logic description.

Compiles the logic, checks it against the schema and looks for rules that
depend on each other in a loop. With --watch the logic is validated again
whenever a file changes.

Exit codes:
  0 - Logic is valid
  1 - Validation failed
  2 - Command error (path not found, no logic files, etc.)

Examples:
  randotrack validate ./logic/alttp
  randotrack validate ./logic/alttp --variant glitched
  randotrack validate ./logic/alttp --watch`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) > 0 {
				arg = args[0]
			}
			path, err := opts.logicPath(arg)
			if err != nil {
				return err
			}
			if opts.Watch {
				return runValidateWatch(cmd.Context(), opts, path, cmd)
			}
			return runValidate(opts, path, cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "validate again when logic files change")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "quiet period before revalidating in watch mode")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	checked, err := checkLogic(path, opts.Variant)
	if err != nil {
		return outputValidateError(formatter, err)
	}

	formatter.VerboseLog("Read %d logic file(s) from %s", checked.Result.FileCount, path)

	if len(checked.Errors) > 0 {
		return outputValidationErrors(formatter, checked.Errors)
	}
	return outputValidateSuccess(formatter, checked.Result)
}

// runValidateWatch validates once, then again after every change until the
// context is cancelled. Failures are reported but do not stop watching.
func runValidateWatch(ctx context.Context, opts *ValidateOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	report := func() {
		if err := runValidate(opts, path, cmd); err != nil {
			opts.Logger().Debug("validation failed", "logic", path, "error", err)
		}
	}

	report()
	fmt.Fprintf(opts.formatter(cmd).GetErrWriter(), "Watching %s for changes (Ctrl-C to stop)\n", path)
	return watchLogic(ctx, path, opts.Debounce, opts.Logger(), report)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, res *compiler.LoadResult) error {
	db := res.Database
	if formatter.JSON() {
		return formatter.Success(ValidationResult{
			Valid:     true,
			Logic:     db.Name,
			Locations: len(db.Locations),
			Dungeons:  len(db.Dungeons),
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ %s is valid (%d locations, %d dungeons)\n", db.Name, len(db.Locations), len(db.Dungeons))
	return nil
}

// outputValidateError outputs a command-level failure.
func outputValidateError(formatter *OutputFormatter, err error) error {
	_ = formatter.Error(errorCode(err), err.Error(), nil)
	return err
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		if err := formatter.Failure(errs[0].Code, errs[0].Message, ValidationResult{Valid: false, Errors: errs}); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return failure
}
