// Package config handles discovery, parsing, and validation of the cadence
// project configuration file.
//
// The configuration can be written in YAML (cadence.yaml / cadence.yml) or
// JSONC (cadence.jsonc / cadence.json). JSONC files are stripped of comments
// with github.com/tidwall/jsonc before parsing with the standard
// encoding/json library; YAML is parsed with gopkg.in/yaml.v3.
//
// Key responsibilities:
//   - Locate the configuration file in standard paths
//   - Parse both supported formats into one schema
//   - Validate environment names, command lists, gates, and release steps
//   - Export shared configuration facts (lint settings, coverage threshold)
//     as environment variables for commands to consume
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/cadence/internal/model"
)

// Config is the root of the cadence configuration file.
type Config struct {
	// EnvList names the environments that a bare `cadence run` executes,
	// in order. When empty, all environments run in sorted name order.
	EnvList []string `yaml:"envlist" json:"envlist,omitempty"`

	// Envs maps environment names to their definitions.
	Envs map[string]Env `yaml:"envs" json:"envs"`

	// Lint holds shared style-check facts (ignore lists, line length)
	// that are exported to commands as CADENCE_* variables.
	Lint Lint `yaml:"lint" json:"lint,omitempty"`

	// Release defines the release pipeline. Optional; `cadence release`
	// fails with a config error when absent.
	Release *Release `yaml:"release" json:"release,omitempty"`

	// Watch configures the file watcher used by `cadence watch`.
	Watch Watch `yaml:"watch" json:"watch,omitempty"`
}

// Env defines a single named environment: a fixed linear sequence of
// external commands, optionally executed inside a container, optionally
// followed by a coverage gate.
type Env struct {
	// Description is free text shown by `cadence list`.
	Description string `yaml:"description" json:"description,omitempty"`

	// Setup lists dependency-installation commands. They run before
	// Commands, in order.
	Setup []string `yaml:"setup" json:"setup,omitempty"`

	// Commands lists the environment's primary commands. Each entry is
	// passed to `sh -c`, so shell variable expansion applies.
	Commands []string `yaml:"commands" json:"commands,omitempty"`

	// Image names a container image. When set, every command in this
	// environment runs inside a fresh labeled container with the project
	// directory mounted, instead of directly on the host.
	Image string `yaml:"image" json:"image,omitempty"`

	// Env holds extra environment variables for this environment's
	// commands. Values are passed through verbatim; the shell performs
	// any ${VAR} expansion.
	Env map[string]string `yaml:"env" json:"env,omitempty"`

	// Coverage configures the coverage gate evaluated after all commands
	// succeed. Nil disables the gate.
	Coverage *Coverage `yaml:"coverage" json:"coverage,omitempty"`
}

// Coverage configures a statement-coverage gate over a Go cover profile.
type Coverage struct {
	// Profile is the cover profile path, relative to the project root.
	Profile string `yaml:"profile" json:"profile"`

	// Threshold is the minimum coverage percentage (0-100). The gate
	// fails when computed coverage is below this value.
	Threshold float64 `yaml:"threshold" json:"threshold"`
}

// Lint holds shared style-check configuration facts. cadence does not
// interpret these itself — they are exported to commands as variables
// (CADENCE_LINT_IGNORE, CADENCE_MAX_LINE_LENGTH) so that lint commands
// can reference one authoritative set of values.
type Lint struct {
	// Ignore lists rule identifiers the lint commands should skip.
	Ignore []string `yaml:"ignore" json:"ignore,omitempty"`

	// MaxLineLength is the line-length limit for style checks.
	MaxLineLength int `yaml:"max_line_length" json:"max_line_length,omitempty"`
}

// Release defines the release pipeline: a branch guard, a fixed linear step
// sequence, and optional tag creation.
type Release struct {
	// Branch is the only branch the pipeline may run on.
	// Defaults to "main" when empty.
	Branch string `yaml:"branch" json:"branch,omitempty"`

	// Steps is the ordered list of pipeline steps. The first non-zero
	// exit aborts the remainder.
	Steps []Step `yaml:"steps" json:"steps"`

	// Tag configures tag creation after all steps succeed. Nil disables
	// tagging.
	Tag *Tag `yaml:"tag" json:"tag,omitempty"`
}

// Step is a single release pipeline step.
type Step struct {
	// Name is the human-readable step name shown in progress output.
	Name string `yaml:"name" json:"name"`

	// Run is the command line, passed to `sh -c`.
	Run string `yaml:"run" json:"run"`

	// Env holds extra environment variables for this step.
	Env map[string]string `yaml:"env" json:"env,omitempty"`

	// Secrets names environment variables that must be present in the
	// calling process environment. They are resolved before the pipeline
	// starts and their values are redacted from all output.
	Secrets []string `yaml:"secrets" json:"secrets,omitempty"`
}

// Tag configures release tag creation.
type Tag struct {
	// Prefix is prepended to the version read from VersionFile
	// (e.g., prefix "v" + version "1.2.0" → tag "v1.2.0").
	Prefix string `yaml:"prefix" json:"prefix,omitempty"`

	// VersionFile is the file containing the version string, relative to
	// the project root. Surrounding whitespace is trimmed.
	VersionFile string `yaml:"version_file" json:"version_file"`

	// Push controls whether the created tag is pushed to origin.
	Push bool `yaml:"push" json:"push,omitempty"`
}

// Watch configures the file watcher for `cadence watch`.
type Watch struct {
	// Paths lists directories to watch recursively. Defaults to ["."].
	Paths []string `yaml:"paths" json:"paths,omitempty"`

	// Extensions filters events to files with these suffixes.
	// Defaults to [".go"].
	Extensions []string `yaml:"extensions" json:"extensions,omitempty"`

	// DebounceMS is the quiet period in milliseconds after the last
	// event before the environment re-runs. Defaults to 400.
	DebounceMS int `yaml:"debounce_ms" json:"debounce_ms,omitempty"`
}

// candidateNames lists the configuration file names probed by Find,
// in priority order. YAML is preferred over JSONC because the pack of
// environments reads more naturally with YAML anchors and comments.
var candidateNames = []string{
	"cadence.yaml",
	"cadence.yml",
	"cadence.jsonc",
	"cadence.json",
}

// Find searches for the cadence configuration file in the given directory.
//
// Returns the absolute path to the first candidate that exists, or a
// CLIError with ExitConfigError if none is found.
func Find(dir string) (string, error) {
	for _, name := range candidateNames {
		path := filepath.Join(dir, name)
		// os.Stat checks if the file exists without reading its contents.
		if _, err := os.Stat(path); err == nil {
			return filepath.Abs(path)
		}
	}

	return "", model.NewCLIError(
		model.ExitConfigError,
		fmt.Sprintf("no cadence configuration found in %s (searched %s)",
			dir, strings.Join(candidateNames, ", ")),
	)
}

// Load reads and parses the configuration file at the given path.
// The format is chosen by file extension: .yaml/.yml use the YAML parser,
// anything else is treated as JSONC.
//
// Returns a CLIError with ExitConfigError if the file does not exist or
// cannot be parsed. Load does NOT validate the configuration — callers
// should invoke Validate separately so that `cadence validate` can report
// all problems from a parseable file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(
				model.ExitConfigError,
				fmt.Sprintf("configuration file not found: %s", path),
				err,
			)
		}
		return nil, model.WrapCLIError(model.ExitConfigError, "failed to read configuration", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, model.WrapCLIError(
				model.ExitConfigError,
				fmt.Sprintf("failed to parse %s", path),
				err,
			)
		}
	default:
		// Strip JSONC comments (// and /* */) and trailing commas before
		// parsing. Hand-edited config files frequently contain comments.
		cleanJSON := jsonc.ToJSON(data)
		if err := json.Unmarshal(cleanJSON, &cfg); err != nil {
			return nil, model.WrapCLIError(
				model.ExitConfigError,
				fmt.Sprintf("failed to parse %s", path),
				err,
			)
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills in defaulted fields after parsing, so the rest of
// the application never needs to re-check for zero values.
func (c *Config) applyDefaults() {
	if c.Release != nil && c.Release.Branch == "" {
		c.Release.Branch = "main"
	}
	if len(c.Watch.Paths) == 0 {
		c.Watch.Paths = []string{"."}
	}
	if len(c.Watch.Extensions) == 0 {
		c.Watch.Extensions = []string{".go"}
	}
	if c.Watch.DebounceMS <= 0 {
		c.Watch.DebounceMS = 400
	}
}

// EnvNames returns all environment names in sorted order, for deterministic
// listing and default run order.
func (c *Config) EnvNames() []string {
	names := make([]string, 0, len(c.Envs))
	for name := range c.Envs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultEnvs returns the environments a bare `cadence run` executes:
// the envlist when configured, otherwise all environments in sorted order.
func (c *Config) DefaultEnvs() []string {
	if len(c.EnvList) > 0 {
		return c.EnvList
	}
	return c.EnvNames()
}

// RuntimeVars builds the CADENCE_* variables exported into every command
// of the named environment. These surface shared configuration facts
// (lint ignore list, line length, coverage threshold) so commands reference
// a single authoritative source instead of duplicating values.
func (c *Config) RuntimeVars(envName string) map[string]string {
	vars := map[string]string{
		"CADENCE_ENV": envName,
	}

	if len(c.Lint.Ignore) > 0 {
		vars["CADENCE_LINT_IGNORE"] = strings.Join(c.Lint.Ignore, ",")
	}
	if c.Lint.MaxLineLength > 0 {
		vars["CADENCE_MAX_LINE_LENGTH"] = strconv.Itoa(c.Lint.MaxLineLength)
	}

	if env, ok := c.Envs[envName]; ok && env.Coverage != nil {
		// strconv.FormatFloat with -1 precision prints the shortest
		// representation that round-trips, so "100" stays "100".
		vars["CADENCE_COVERAGE_THRESHOLD"] = strconv.FormatFloat(env.Coverage.Threshold, 'f', -1, 64)
	}

	return vars
}
