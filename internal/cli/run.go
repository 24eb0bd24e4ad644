// Package cli — run.go implements the "cadence run" command.
//
// The run command executes one or more configured environments as a single
// fixed sequence. Without arguments it runs the configured envlist (or all
// environments in sorted order); with arguments it runs exactly the named
// environments. The first failure aborts the sequence and the remaining
// environments are reported as skipped.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/cadence/internal/config"
	"github.com/mmr-tortoise/cadence/internal/docker"
	"github.com/mmr-tortoise/cadence/internal/model"
	"github.com/mmr-tortoise/cadence/internal/runner"
)

// NewRunCommand creates the "run" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run [env...]",
		Short: "Run configured environments",
		Long: `Run one or more configured environments in order.

Without arguments, the configured envlist runs (or every environment in
sorted name order when no envlist is set). Each environment runs its setup
commands, then its main commands, then its coverage gate if configured.

Examples:
  cadence run
  cadence run test
  cadence run lint reformat --json`,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), args)
		},
	}
}

// runRun is the main logic function for the run command.
func runRun(ctx context.Context, args []string) error {
	// Step 1: Load and validate the configuration.
	cfg, workdir, err := loadConfig()
	if err != nil {
		return err
	}

	// Step 2: Determine which environments to run.
	names := args
	if len(names) == 0 {
		names = cfg.DefaultEnvs()
	}
	VerboseLog("Running %d environment(s): %v", len(names), names)

	// Step 3: If any selected environment runs in a container, verify the
	// Docker daemon once up front. Failing before the first command is
	// friendlier than failing halfway through the sequence.
	if err := checkDockerIfNeeded(ctx, cfg, names); err != nil {
		return err
	}

	// Step 4: Execute the sequence. The executor factory picks container
	// execution for environments that configure an image.
	r := runner.New(workdir)
	r.Logf = VerboseLog
	results, runErr := r.RunAll(ctx, cfg, names, func(name string) (runner.Executor, error) {
		if env, ok := cfg.Envs[name]; ok && env.Image != "" {
			VerboseLog("Environment %q runs in container image %s", name, env.Image)
			return docker.NewContainerExecutor(env.Image, name), nil
		}
		return &runner.LocalExecutor{}, nil
	})

	// Step 5: Output results. Partial results are printed even on failure
	// so the user sees exactly which environment broke the sequence.
	printRunResults(results)
	return runErr
}

// checkDockerIfNeeded pings the Docker daemon when at least one of the
// named environments configures a container image. Environments without an
// image never touch Docker, so no daemon is required for them.
func checkDockerIfNeeded(ctx context.Context, cfg *config.Config, names []string) error {
	needed := false
	for _, name := range names {
		if env, ok := cfg.Envs[name]; ok && env.Image != "" {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}

	cli, err := docker.NewClient()
	if err != nil {
		return err // NewClient already returns CLIError with ExitDockerNotRunning
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return err // Ping already returns CLIError with ExitDockerNotRunning
	}

	VerboseLog("Connected to Docker daemon")
	return nil
}

// printRunResults outputs the environment results in text or JSON format,
// depending on the global --json flag.
func printRunResults(results []*model.EnvResult) {
	if IsJSONOutput() {
		type resultJSON struct {
			Environments []*model.EnvResult `json:"environments"`
		}
		// Use an empty slice instead of nil to ensure JSON output shows []
		// instead of null when nothing ran.
		out := resultJSON{Environments: results}
		if out.Environments == nil {
			out.Environments = make([]*model.EnvResult, 0)
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Println()
	fmt.Printf("%-20s %-10s %-10s %s\n", "ENV", "STATUS", "COMMANDS", "DURATION")
	for _, res := range results {
		fmt.Printf("%-20s %-10s %-10d %s\n",
			res.Env,
			res.Status.String(),
			len(res.Commands),
			FormatDuration(res.Duration),
		)
	}
}

// FormatDuration renders a duration for table output, rounded to
// milliseconds so columns stay readable. Skipped environments have zero
// duration, shown as "-".
//
// This function is exported for testing purposes (tested in run_test.go).
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
