package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/randotrack/internal/compiler"
	"github.com/roach88/randotrack/internal/logic"
	"github.com/roach88/randotrack/internal/tracker"
)

// formatter builds the output formatter for a command run.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// logicPath returns path, or the --logic default when path is empty.
func (o *RootOptions) logicPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if o.Logic != "" {
		return o.Logic, nil
	}
	return "", NewExitError(ExitCommandError, "no logic given: pass a path or set --logic / RANDOTRACK_LOGIC")
}

// checkedLogic is loaded logic plus everything wrong with it.
type checkedLogic struct {
	Result *compiler.LoadResult
	Errors []compiler.ValidationError
}

// checkLogic loads and validates logic. Load failures come back as the
// error; compile failures and validation problems as checkedLogic.Errors.
func checkLogic(path, variant string) (*checkedLogic, error) {
	res, loadErrs := compiler.Load(path, variant)
	if res == nil && len(loadErrs) > 0 {
		return nil, loadExitError(loadErrs[0])
	}

	out := &checkedLogic{Result: res}
	for _, err := range loadErrs {
		var loadErr *compiler.LoadError
		if errors.As(err, &loadErr) {
			line := 0
			if loadErr.Pos.IsValid() {
				line = loadErr.Pos.Line()
			}
			out.Errors = append(out.Errors, compiler.ValidationError{
				Field:   "load",
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    line,
			})
			continue
		}
		out.Errors = append(out.Errors, compiler.ValidationError{
			Field:   "load",
			Message: err.Error(),
			Code:    compiler.ErrCodeGeneric,
		})
	}
	if res.Database != nil {
		out.Errors = append(out.Errors, compiler.Validate(res.Database)...)
	}
	return out, nil
}

func loadExitError(err error) *ExitError {
	return WrapExitError(ExitCommandError, "failed to load logic", err)
}

// errorCode is the load error code carried by err, or the generic code.
func errorCode(err error) string {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return compiler.ErrCodeGeneric
}

// loadValidLogic loads logic and fails unless it is valid.
func loadValidLogic(path, variant string) (*logic.Database, error) {
	checked, err := checkLogic(path, variant)
	if err != nil {
		return nil, err
	}
	if len(checked.Errors) > 0 {
		return nil, WrapExitError(ExitFailure,
			fmt.Sprintf("invalid logic %s (run validate for details)", path), checked.Errors[0])
	}
	return checked.Result.Database, nil
}

// newTracker builds a tracker logging through the command's logger.
func (o *RootOptions) newTracker(db *logic.Database, opts ...tracker.Option) (*tracker.Tracker, error) {
	opts = append([]tracker.Option{tracker.WithLogger(o.Logger())}, opts...)
	tr, err := tracker.New(db, opts...)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "failed to build tracker", err)
	}
	return tr, nil
}
