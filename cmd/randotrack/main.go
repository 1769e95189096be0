// Command randotrack validates randomizer logic, tracks runs against it and
// replays journaled sessions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/randotrack/internal/cli"
	"github.com/roach88/randotrack/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "randotrack: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "randotrack: %v\n", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
