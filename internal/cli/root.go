package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/randotrack/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Logic   string // logic file or directory when a command gets none
	Variant string
	DB      string // journal database

	// LogLevel comes from the environment; --verbose forces debug.
	LogLevel string

	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Logger returns the logger configured by the root command, or the default
// logger when the command runs on its own.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.Default()
	}
	return o.logger
}

// NewRootCommand creates the root command. cfg supplies flag defaults.
func NewRootCommand(cfg config.Config) *cobra.Command {
	opts := &RootOptions{LogLevel: cfg.LogLevel}

	cmd := &cobra.Command{
		Use:   "randotrack",
		Short: "randotrack - randomizer logic tracker",
		Long: `A tracker for randomizer runs.

Logic descriptions (CUE or JSON) define items, regions, locations and
dungeons as boolean rules over facts. randotrack validates them, shows what
is reachable for a set of facts, explains why, and journals tracked actions
so sessions can be replayed.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.configureLogger(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Logic, "logic", cfg.Logic, "logic file or directory (env RANDOTRACK_LOGIC)")
	cmd.PersistentFlags().StringVar(&opts.Variant, "variant", cfg.Variant, "logic variant (env RANDOTRACK_VARIANT)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", cfg.DB, "path to the journal database (env RANDOTRACK_DB)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// configureLogger installs a text handler on stderr as the default logger.
func (o *RootOptions) configureLogger(cmd *cobra.Command) error {
	level, err := config.ParseLevel(o.LogLevel)
	if err != nil {
		return err
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(o.logger)
	return nil
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
