// Package cli — clean.go implements the "cadence clean" command.
//
// Environment containers remove themselves (`docker run --rm`), but an
// interrupted run or a crashed daemon can leave labeled containers behind.
// The clean command discovers them by label and removes them.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/cadence/internal/docker"
)

// cleanFlags holds the flag values for the clean command.
// These are bound to cobra flags in NewCleanCommand.
type cleanFlags struct {
	// force removes running containers too (docker kills them first).
	force bool
}

// NewCleanCommand creates the "clean" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewCleanCommand() *cobra.Command {
	flags := &cleanFlags{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove leftover environment containers",
		Long: `Remove containers left behind by interrupted runs.

Containers are discovered by their cadence labels, so only containers this
tool started are ever touched. Running containers are skipped unless
--force is given.

Examples:
  cadence clean
  cadence clean --force`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd.Context(), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.force, "force", false, "Also remove running containers")

	return cmd
}

// cleanResultJSON is the JSON output structure for the clean command.
type cleanResultJSON struct {
	Removed []docker.LeftoverContainer `json:"removed"`
	Skipped []docker.LeftoverContainer `json:"skipped"`
}

// runClean is the main logic function for the clean command.
// It connects to Docker, discovers leftover labeled containers, and removes
// them, skipping running ones unless --force is set.
func runClean(ctx context.Context, flags *cleanFlags) error {
	// Step 1: Connect to Docker and verify the daemon is available.
	cli, err := docker.NewClient()
	if err != nil {
		return err // NewClient already returns CLIError with ExitDockerNotRunning
	}
	// defer ensures the Docker client is closed when this function returns,
	// releasing the underlying HTTP connection and resources.
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return err // Ping already returns CLIError with ExitDockerNotRunning
	}
	VerboseLog("Connected to Docker daemon")

	// Step 2: Discover leftover containers by label.
	leftovers, err := docker.ListLeftoverContainers(ctx, cli)
	if err != nil {
		return err // ListLeftoverContainers already returns CLIError
	}
	VerboseLog("Found %d leftover container(s)", len(leftovers))

	// Step 3: Remove them. Running containers are skipped unless --force,
	// because a watch session in another terminal may own them.
	result := cleanResultJSON{
		Removed: make([]docker.LeftoverContainer, 0, len(leftovers)),
		Skipped: make([]docker.LeftoverContainer, 0),
	}
	for _, c := range leftovers {
		if c.State == "running" && !flags.force {
			VerboseLog("Skipping running container %s (use --force)", c.Name)
			result.Skipped = append(result.Skipped, c)
			continue
		}
		if err := docker.RemoveContainer(ctx, cli, c.ID, flags.force); err != nil {
			return err
		}
		VerboseLog("Removed container %s (env %q)", c.Name, c.Env)
		result.Removed = append(result.Removed, c)
	}

	// Step 4: Output results.
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("Removed %d container(s), skipped %d running\n",
			len(result.Removed), len(result.Skipped))
	}
	return nil
}
