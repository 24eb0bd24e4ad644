// Package cli implements the cobra-based CLI commands for cadence.
//
// Each subcommand (run, list, validate, release, watch, clean) is defined in
// its own file within this package. This file defines the root command that
// serves as the parent for all subcommands and handles global flags.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/cadence/internal/config"
	"github.com/mmr-tortoise/cadence/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// When true, all output uses structured JSON format for machine consumption.
	// When false (default), output uses human-readable text format.
	jsonOutput bool

	// verbose enables detailed logging output for debugging.
	// When true, additional information about operations is printed to stderr.
	verbose bool

	// configPath overrides configuration file discovery. When empty, the
	// file is searched for in the current directory.
	configPath string
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
//
// The root command itself does not perform any action — it only provides
// help text and global flags. Actual functionality is provided by
// subcommands (run, list, validate, release, watch, clean).
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		// Use is the one-line usage pattern shown in help output.
		Use:   "cadence",
		Short: "Config-driven test, lint, and release orchestrator",
		Long: `cadence runs a project's test, lint, and release workflows from one
configuration file (cadence.yaml / cadence.jsonc).

Environments are fixed linear command sequences, optionally executed inside
containers and optionally gated on coverage. The release pipeline guards the
branch, resolves secrets up front, and tags from a version file.`,

		// SilenceUsage prevents cobra from printing usage on every error.
		// We handle error output ourselves for cleaner UX.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	// PersistentFlags are inherited by all subcommands. This is the cobra
	// mechanism for global flags — any flag defined here is automatically
	// available in every subcommand without re-declaration.
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file")

	// Register subcommands. Each subcommand is defined in its own file
	// (run.go, list.go, etc.) and returns a *cobra.Command.
	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewValidateCommand())
	rootCmd.AddCommand(NewReleaseCommand())
	rootCmd.AddCommand(NewWatchCommand())
	rootCmd.AddCommand(NewCleanCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// It inspects errors returned by cobra commands and translates them
// into appropriate OS exit codes. CLIError types carry their own
// exit codes; other errors default to exit code 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		// Check if the error is a CLIError with a specific exit code.
		// errors.As would also work here, but a type assertion is simpler
		// for this single-level check.
		if cliErr, ok := err.(*model.CLIError); ok {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		// Generic error — exit with code 1.
		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// We write to stderr for errors, even in JSON mode, because stdout
		// is reserved for successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		// Text format: "Error: <message>" on stderr.
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
// This is used throughout the CLI for debug/trace output that helps
// users understand what operations are being performed.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// loadConfig locates, loads, and validates the configuration file.
//
// It returns the parsed configuration and the project directory (the
// directory containing the configuration file), which commands use as the
// working directory for all executed commands.
func loadConfig() (*config.Config, string, error) {
	path := configPath
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, "", model.WrapCLIError(model.ExitGeneralError, "failed to determine working directory", err)
		}
		path, err = config.Find(cwd)
		if err != nil {
			return nil, "", err
		}
	}

	VerboseLog("Loading configuration from %s", path)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", model.WrapCLIError(model.ExitGeneralError, "failed to resolve configuration path", err)
	}
	return cfg, filepath.Dir(abs), nil
}
