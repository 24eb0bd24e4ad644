// Package cli — list.go implements the "cadence list" command.
//
// The list command displays the environments defined in the configuration
// file: name, description, command counts, container image, and coverage
// gate. It reads only the configuration — nothing is executed.
package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/cadence/internal/config"
	"github.com/mmr-tortoise/cadence/internal/model"
)

// listFlags holds the flag values for the list command.
// These are bound to cobra flags in NewListCommand.
type listFlags struct {
	// status filters environments by default-run membership.
	// Valid values: "default", "extra", "all" (default).
	status string
}

// NewListCommand creates the "list" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewListCommand() *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured environments",
		Long: `List every environment defined in the configuration file.

Each environment is shown with its description, the number of setup and
main commands, its container image (if any), and its coverage threshold
(if a gate is configured). A leading * marks environments in the default
run order; --status filters on that membership.

Examples:
  cadence list
  cadence list --status default
  cadence list --json`,

		// No positional arguments are required for the list command.
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(flags)
		},
	}

	// Register the --status flag with a default value of "all".
	cmd.Flags().StringVar(&flags.status, "status", "all",
		"Filter by default-run membership: default, extra, all")

	return cmd
}

// ListEntry is the JSON output structure for a single environment
// in the list command.
type ListEntry struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Setup       int     `json:"setupCommands"`
	Commands    int     `json:"commands"`
	Image       string  `json:"image,omitempty"`
	Coverage    float64 `json:"coverageThreshold,omitempty"`
	Default     bool    `json:"default"`
}

// runList is the main logic function for the list command.
func runList(flags *listFlags) error {
	// Step 1: Validate the --status flag value.
	if flags.status != "all" && flags.status != "default" && flags.status != "extra" {
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("invalid status filter %q: valid values are default, extra, all", flags.status), nil)
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	entries := FilterListEntries(BuildListEntries(cfg), flags.status)
	if IsJSONOutput() {
		printListJSON(entries)
	} else {
		printListText(entries)
	}
	return nil
}

// BuildListEntries converts the configuration into display entries, in
// sorted name order. Environments in the default run order are flagged.
//
// This function is exported for testing purposes (tested in list_test.go).
func BuildListEntries(cfg *config.Config) []ListEntry {
	defaults := make(map[string]bool)
	for _, name := range cfg.DefaultEnvs() {
		defaults[name] = true
	}

	entries := make([]ListEntry, 0, len(cfg.Envs))
	for _, name := range cfg.EnvNames() {
		env := cfg.Envs[name]
		entry := ListEntry{
			Name:        name,
			Description: env.Description,
			Setup:       len(env.Setup),
			Commands:    len(env.Commands),
			Image:       env.Image,
			Default:     defaults[name],
		}
		if env.Coverage != nil {
			entry.Coverage = env.Coverage.Threshold
		}
		entries = append(entries, entry)
	}
	return entries
}

// FilterListEntries applies the --status filter: "default" keeps only
// environments in the default run order, "extra" keeps the rest, and
// "all" keeps everything.
//
// This function is exported for testing purposes (tested in list_test.go).
func FilterListEntries(entries []ListEntry, status string) []ListEntry {
	if status == "all" {
		return entries
	}

	wantDefault := status == "default"
	filtered := make([]ListEntry, 0, len(entries))
	for _, e := range entries {
		if e.Default == wantDefault {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// printListJSON outputs the environment list as structured JSON.
// The top-level key is "environments" containing an array of entries.
func printListJSON(entries []ListEntry) {
	type resultJSON struct {
		Environments []ListEntry `json:"environments"`
	}
	result := resultJSON{Environments: entries}

	// MarshalIndent produces human-readable JSON with 2-space indentation.
	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(data))
}

// printListText outputs the environment list as a human-readable text
// table with aligned columns.
//
// The table format is:
//
//	  NAME       COMMANDS  IMAGE            COVERAGE  DESCRIPTION
//	* test       1+2       golang:1.24      100%      unit tests
//	  lint       0+1       -                -         style checks
func printListText(entries []ListEntry) {
	if len(entries) == 0 {
		fmt.Println("No environments configured.")
		return
	}

	fmt.Printf("  %-15s %-10s %-25s %-10s %s\n",
		"NAME", "COMMANDS", "IMAGE", "COVERAGE", "DESCRIPTION")

	for _, e := range entries {
		marker := " "
		if e.Default {
			marker = "*"
		}
		fmt.Printf("%s %-15s %-10s %-25s %-10s %s\n",
			marker,
			e.Name,
			FormatCommandCount(e.Setup, e.Commands),
			dashIfEmpty(e.Image),
			FormatCoverageThreshold(e.Coverage),
			e.Description,
		)
	}
}

// FormatCommandCount renders setup and main command counts as "setup+main"
// (e.g., "1+2"). Environments commonly have no setup commands, so "0+2"
// makes the distinction visible at a glance.
//
// This function is exported for testing purposes (tested in list_test.go).
func FormatCommandCount(setup, main int) string {
	return strconv.Itoa(setup) + "+" + strconv.Itoa(main)
}

// FormatCoverageThreshold renders a coverage threshold as a percentage,
// or "-" when no gate is configured (threshold zero).
//
// This function is exported for testing purposes (tested in list_test.go).
func FormatCoverageThreshold(threshold float64) string {
	if threshold == 0 {
		return "-"
	}
	return strconv.FormatFloat(threshold, 'f', -1, 64) + "%"
}

// dashIfEmpty substitutes "-" for empty table cells.
func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
