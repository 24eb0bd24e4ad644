package config

import (
	"fmt"
	"strings"

	"github.com/mmr-tortoise/cadence/internal/model"
)

// Validate checks the parsed configuration for structural problems and
// returns all of them at once, so `cadence validate` can report every
// issue in a single pass instead of failing on the first.
//
// Returns nil when the configuration is valid, otherwise a CLIError with
// ExitConfigError whose message lists each problem on its own line.
func (c *Config) Validate() error {
	var problems []string

	if len(c.Envs) == 0 {
		problems = append(problems, "no environments defined (envs is empty)")
	}

	for _, name := range c.EnvNames() {
		env := c.Envs[name]

		if err := model.ValidateName(name); err != nil {
			problems = append(problems, err.Error())
		}

		// An environment with nothing to run is a configuration mistake,
		// not a no-op.
		if len(env.Setup) == 0 && len(env.Commands) == 0 {
			problems = append(problems, fmt.Sprintf("environment %q has no setup or commands", name))
		}
		for i, cmd := range env.Commands {
			if strings.TrimSpace(cmd) == "" {
				problems = append(problems, fmt.Sprintf("environment %q: command %d is empty", name, i+1))
			}
		}
		for i, cmd := range env.Setup {
			if strings.TrimSpace(cmd) == "" {
				problems = append(problems, fmt.Sprintf("environment %q: setup command %d is empty", name, i+1))
			}
		}

		if env.Coverage != nil {
			if env.Coverage.Profile == "" {
				problems = append(problems, fmt.Sprintf("environment %q: coverage.profile is required", name))
			}
			if env.Coverage.Threshold < 0 || env.Coverage.Threshold > 100 {
				problems = append(problems, fmt.Sprintf(
					"environment %q: coverage.threshold %.1f out of range (0-100)",
					name, env.Coverage.Threshold))
			}
		}
	}

	// Every envlist entry must reference a defined environment.
	for _, name := range c.EnvList {
		if _, ok := c.Envs[name]; !ok {
			problems = append(problems, fmt.Sprintf("envlist references unknown environment %q", name))
		}
	}

	problems = append(problems, c.validateRelease()...)

	if len(problems) > 0 {
		return model.NewCLIError(
			model.ExitConfigError,
			"invalid configuration:\n  - "+strings.Join(problems, "\n  - "),
		)
	}
	return nil
}

// validateRelease checks the release section. A missing release section is
// valid — `cadence release` reports its absence at invocation time.
func (c *Config) validateRelease() []string {
	if c.Release == nil {
		return nil
	}

	var problems []string

	if len(c.Release.Steps) == 0 {
		problems = append(problems, "release.steps is empty")
	}
	for i, step := range c.Release.Steps {
		if strings.TrimSpace(step.Run) == "" {
			problems = append(problems, fmt.Sprintf("release step %d (%q): run is required", i+1, step.Name))
		}
		if strings.TrimSpace(step.Name) == "" {
			problems = append(problems, fmt.Sprintf("release step %d: name is required", i+1))
		}
		for _, secret := range step.Secrets {
			if strings.TrimSpace(secret) == "" {
				problems = append(problems, fmt.Sprintf("release step %d (%q): empty secret name", i+1, step.Name))
			}
		}
	}

	if c.Release.Tag != nil && c.Release.Tag.VersionFile == "" {
		problems = append(problems, "release.tag.version_file is required when tagging is configured")
	}

	return problems
}
