// Package cli — release.go implements the "cadence release" command.
//
// The release command runs the configured release pipeline: branch guard,
// up-front secret resolution, the step sequence, and tag creation from the
// version file. Steps always run on the host — release tooling needs the
// credentials and git state of the machine invoking it.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/cadence/internal/gitutil"
	"github.com/mmr-tortoise/cadence/internal/model"
	"github.com/mmr-tortoise/cadence/internal/release"
	"github.com/mmr-tortoise/cadence/internal/runner"
)

// releaseFlags holds the flag values for the release command.
// These are bound to cobra flags in NewReleaseCommand.
type releaseFlags struct {
	// dryRun prints the plan without executing steps or touching git.
	dryRun bool

	// skipTag suppresses tag creation.
	skipTag bool

	// forceBranch bypasses the branch guard.
	forceBranch bool
}

// NewReleaseCommand creates the "release" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewReleaseCommand() *cobra.Command {
	flags := &releaseFlags{}

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Run the release pipeline",
		Long: `Run the configured release pipeline.

The pipeline refuses to run on any branch other than the configured release
branch, resolves every secret from the process environment before the first
step, aborts on the first failing step, and finally creates (and optionally
pushes) a tag derived from the version file.

Secret values are redacted from all output.

Examples:
  cadence release
  cadence release --dry-run
  cadence release --force-branch --skip-tag`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease(cmd.Context(), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print the plan without executing steps or tagging")
	cmd.Flags().BoolVar(&flags.skipTag, "skip-tag", false, "Skip tag creation")
	cmd.Flags().BoolVar(&flags.forceBranch, "force-branch", false, "Run even when the current branch is not the release branch")

	return cmd
}

// runRelease is the main logic function for the release command.
func runRelease(ctx context.Context, flags *releaseFlags) error {
	// Step 1: Load and validate the configuration.
	cfg, workdir, err := loadConfig()
	if err != nil {
		return err
	}

	// Step 2: Assemble and run the pipeline. Git operations go through the
	// real git binary; steps run on the host.
	p := &release.Pipeline{
		Workdir:     workdir,
		Git:         gitutil.NewManager(),
		Exec:        &runner.LocalExecutor{},
		Logf:        VerboseLog,
		DryRun:      flags.dryRun,
		SkipTag:     flags.skipTag,
		ForceBranch: flags.forceBranch,
	}

	result, runErr := p.Run(ctx, cfg)

	// Step 3: Output results. A partially executed pipeline still prints
	// its step results so the failure point is visible.
	if result != nil {
		printReleaseResult(result)
	}
	return runErr
}

// printReleaseResult outputs the release result in text or JSON format,
// depending on the global --json flag.
func printReleaseResult(result *model.ReleaseResult) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Println()
	fmt.Printf("%-25s %-10s %s\n", "STEP", "STATUS", "DURATION")
	for _, step := range result.Steps {
		fmt.Printf("%-25s %-10s %s\n",
			step.Name,
			step.Status.String(),
			FormatDuration(step.Duration),
		)
	}

	if result.Tag != "" {
		fmt.Printf("\nTag: %s (%s)\n", result.Tag, FormatTagSummary(result))
	}
}

// FormatTagSummary renders the parenthetical annotation after the tag name,
// reflecting exactly what happened to the tag during this run. An existing
// tag can still be pushed (configured push after a rerun), so created and
// pushed are reported independently.
//
// This function is exported for testing purposes (tested in release_test.go).
func FormatTagSummary(result *model.ReleaseResult) string {
	switch {
	case result.DryRun:
		return "dry run"
	case result.TagCreated && result.TagPushed:
		return "created, pushed"
	case result.TagCreated:
		return "created"
	case result.TagPushed:
		return "already existed, pushed"
	default:
		return "already existed"
	}
}
