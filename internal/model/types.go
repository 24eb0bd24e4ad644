// Package model defines the domain types for the cadence CLI.
//
// All entities in this package represent the results and statuses produced
// by running configured environments and release pipelines. These types are
// used throughout the application for passing data between components.
//
// Key design decision: results are plain value types built up as commands
// execute, so the CLI layer can render them as text or JSON without
// re-querying any external system.
package model

import (
	"fmt"
	"regexp"
	"time"
)

// RunStatus represents the outcome of an environment, command, or release
// step. A run moves through at most one transition:
//
//	Pending → Passed | Failed
//	Pending → Skipped (when an earlier item in the sequence failed)
type RunStatus string

const (
	// StatusPassed indicates every command completed with exit code 0
	// and all configured gates (e.g., coverage) were satisfied.
	StatusPassed RunStatus = "passed"

	// StatusFailed indicates a command exited non-zero or a gate failed.
	StatusFailed RunStatus = "failed"

	// StatusSkipped indicates the item never ran because an earlier item
	// in the same fixed sequence failed. Standard CI semantics: the first
	// non-zero exit fails the whole sequence.
	StatusSkipped RunStatus = "skipped"
)

// String returns the string representation of RunStatus.
// This method satisfies the fmt.Stringer interface, enabling
// human-readable output in CLI commands and logging.
func (s RunStatus) String() string {
	return string(s)
}

// IsValid checks whether the RunStatus value is one of the
// predefined valid states.
func (s RunStatus) IsValid() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// CommandPhase identifies which part of an environment a command belongs to.
// Setup commands install dependencies; main commands run the actual
// test/lint/build work.
type CommandPhase string

const (
	// PhaseSetup marks dependency-installation commands. They run first.
	PhaseSetup CommandPhase = "setup"

	// PhaseMain marks the environment's primary command list.
	PhaseMain CommandPhase = "main"
)

// CommandResult records the outcome of a single executed command line.
type CommandResult struct {
	// Command is the command line exactly as configured.
	Command string `json:"command"`

	// Phase indicates whether this was a setup or main command.
	Phase CommandPhase `json:"phase"`

	// Status is the outcome of this command.
	Status RunStatus `json:"status"`

	// ExitCode is the process exit code. Zero on success, -1 when the
	// process could not be started at all.
	ExitCode int `json:"exitCode"`

	// Duration is how long the command ran.
	Duration time.Duration `json:"duration"`
}

// CoverageResult records the outcome of a coverage gate evaluation.
type CoverageResult struct {
	// Percent is the computed statement coverage percentage (0-100).
	Percent float64 `json:"percent"`

	// Threshold is the configured minimum percentage.
	Threshold float64 `json:"threshold"`

	// Passed is true when Percent >= Threshold.
	Passed bool `json:"passed"`
}

// EnvResult is the aggregate outcome of running one configured environment:
// its setup commands, its main commands, and its optional coverage gate.
type EnvResult struct {
	// Env is the environment name from the configuration file.
	Env string `json:"env"`

	// Status is the aggregate outcome.
	Status RunStatus `json:"status"`

	// Commands holds per-command results in execution order. Empty when
	// the environment was skipped.
	Commands []CommandResult `json:"commands,omitempty"`

	// Coverage holds the coverage gate result, if the environment
	// configures one and its commands all succeeded.
	Coverage *CoverageResult `json:"coverage,omitempty"`

	// Duration is the total wall-clock time for the environment.
	Duration time.Duration `json:"duration"`
}

// StepResult records the outcome of a single release pipeline step.
type StepResult struct {
	// Name is the human-readable step name from the configuration.
	Name string `json:"name"`

	// Command is the command line the step ran (secrets redacted).
	Command string `json:"command"`

	// Status is the outcome of this step.
	Status RunStatus `json:"status"`

	// ExitCode is the process exit code, 0 on success.
	ExitCode int `json:"exitCode"`

	// Duration is how long the step ran.
	Duration time.Duration `json:"duration"`
}

// ReleaseResult is the aggregate outcome of a release pipeline run.
type ReleaseResult struct {
	// Branch is the git branch the pipeline ran on.
	Branch string `json:"branch"`

	// Commit is the full SHA of the commit being released (HEAD at the
	// time the pipeline started).
	Commit string `json:"commit"`

	// Steps holds per-step results in execution order.
	Steps []StepResult `json:"steps"`

	// Tag is the tag name derived from the version file, when tagging
	// is configured. Empty when tagging was skipped.
	Tag string `json:"tag,omitempty"`

	// TagCreated is true when a new tag was created during this run.
	// False when the tag already existed or tagging was skipped.
	TagCreated bool `json:"tagCreated"`

	// TagPushed is true when the tag was pushed to the remote.
	TagPushed bool `json:"tagPushed"`

	// DryRun is true when the pipeline only printed its plan.
	DryRun bool `json:"dryRun"`
}

// nameRegex validates environment names: alphanumeric + hyphens only,
// must start and end with alphanumeric.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)

// ValidateName checks if the given name is a valid environment name.
// Valid names contain only alphanumeric characters and hyphens,
// and must start/end with an alphanumeric character.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("environment name must not be empty")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("invalid environment name %q: must contain only alphanumeric characters and hyphens, and start/end with alphanumeric", name)
	}
	return nil
}

// ExitCode defines standard CLI exit codes. These codes allow scripts and
// CI systems to programmatically determine the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates the configuration file was not found
	// or failed validation.
	ExitConfigError ExitCode = 2

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 3

	// ExitCommandFailed indicates a configured command exited non-zero.
	// The failing command's own exit code is reported in the run output;
	// this code signals the failure to the calling shell.
	ExitCommandFailed ExitCode = 4

	// ExitGitError indicates a git operation (branch lookup, tagging) failed.
	ExitGitError ExitCode = 5

	// ExitEnvNotFound indicates the named environment does not exist
	// in the configuration file.
	ExitEnvNotFound ExitCode = 6

	// ExitCoverageFailed indicates the coverage gate was not satisfied.
	ExitCoverageFailed ExitCode = 7

	// ExitBranchMismatch indicates the release pipeline was invoked on a
	// branch other than the configured release branch.
	ExitBranchMismatch ExitCode = 8

	// ExitMissingSecret indicates a release step names a secret that is
	// not present in the process environment.
	ExitMissingSecret ExitCode = 9
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
// This follows Go's error wrapping convention introduced in Go 1.13.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
