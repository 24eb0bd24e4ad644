// Package cli — watch.go implements the "cadence watch" command.
//
// The watch command runs one environment, then re-runs it whenever matching
// project files change. It runs until interrupted (Ctrl-C). Failures of the
// watched environment are reported but do not stop watching — that is the
// point of the command.
package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/cadence/internal/docker"
	"github.com/mmr-tortoise/cadence/internal/model"
	"github.com/mmr-tortoise/cadence/internal/runner"
	"github.com/mmr-tortoise/cadence/internal/watch"
)

// NewWatchCommand creates the "watch" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <env>",
		Short: "Re-run an environment on file changes",
		Long: `Run the named environment, then re-run it whenever matching files change.

Watched paths, file extensions, and the debounce period come from the watch
section of the configuration. Press Ctrl-C to stop.

Examples:
  cadence watch test
  cadence watch lint --verbose`,

		// Exactly one environment name is required.
		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), args[0])
		},
	}
}

// runWatch is the main logic function for the watch command.
func runWatch(parent context.Context, envName string) error {
	// Step 1: Load and validate the configuration, and check the
	// environment exists before setting up any watches.
	cfg, workdir, err := loadConfig()
	if err != nil {
		return err
	}
	env, ok := cfg.Envs[envName]
	if !ok {
		return model.NewCLIError(
			model.ExitEnvNotFound,
			fmt.Sprintf("environment %q is not defined in the configuration", envName),
		)
	}

	// Step 2: Watching runs until interrupted, so wire SIGINT/SIGTERM
	// into context cancellation for a clean shutdown.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := runner.New(workdir)
	r.Logf = VerboseLog

	var exec runner.Executor = &runner.LocalExecutor{}
	if env.Image != "" {
		exec = docker.NewContainerExecutor(env.Image, envName)
	}

	// runOnce reports failures without terminating the watch loop.
	runOnce := func(runCtx context.Context) {
		if _, runErr := r.RunEnv(runCtx, cfg, envName, exec); runErr != nil {
			fmt.Printf("environment %q failed: %v\n", envName, runErr)
		} else {
			fmt.Printf("environment %q passed\n", envName)
		}
	}

	// Step 3: Initial run, then watch.
	runOnce(ctx)
	fmt.Printf("Watching for changes (%v, debounce %dms) — press Ctrl-C to stop\n",
		cfg.Watch.Extensions, cfg.Watch.DebounceMS)

	w := watch.New(workdir, cfg.Watch)
	w.Logf = VerboseLog
	return w.Run(ctx, runOnce)
}
