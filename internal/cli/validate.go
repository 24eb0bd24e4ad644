// Package cli — validate.go implements the "cadence validate" command.
//
// The validate command loads the configuration file and runs full
// validation, reporting every problem at once. It is intended for CI and
// pre-commit hooks: exit code 0 means the file is usable, exit code 2
// means it is not.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the "validate" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Long: `Load and validate the configuration file without running anything.

All validation problems are reported together, so one invocation is enough
to fix a broken file.

Examples:
  cadence validate
  cadence validate --config ci/cadence.yaml`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate()
		},
	}
}

// runValidate is the main logic function for the validate command.
// loadConfig already performs discovery, parsing, and validation; this
// command only adds success output.
func runValidate() error {
	cfg, workdir, err := loadConfig()
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		result := map[string]interface{}{
			"valid":        true,
			"projectDir":   workdir,
			"environments": cfg.EnvNames(),
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("Configuration OK: %d environment(s)\n", len(cfg.Envs))
	}
	return nil
}
