// Package runner executes the fixed linear command sequences that make up
// cadence environments.
//
// Execution is deliberately simple: commands run one at a time, in order,
// and the first non-zero exit aborts the rest of the sequence. There is no
// retry, no conditional logic, and no parallelism — the invoked tools own
// all of that. What cadence adds is the sequencing, the environment
// variable assembly, and the coverage gate.
package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// CommandSpec describes a single command line to execute.
type CommandSpec struct {
	// Line is the command line, passed to `sh -c` so that the shell
	// performs word splitting and ${VAR} expansion.
	Line string

	// Dir is the working directory for the command.
	Dir string

	// Env holds extra KEY=VALUE entries. For local execution these are
	// appended to the inherited process environment; for container
	// execution they are the explicit container environment.
	Env []string

	// Stdout and Stderr receive the command's output streams. Nil writers
	// default to the calling process's own streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Executor runs a single command line and reports its exit code.
//
// Implementations: LocalExecutor (direct child process) and
// docker.ContainerExecutor (ephemeral labeled container).
type Executor interface {
	// Run executes the command and blocks until it exits. It returns the
	// process exit code and a non-nil error when the exit code is not
	// zero or the process could not be started (exit code -1).
	Run(ctx context.Context, spec CommandSpec) (int, error)
}

// LocalExecutor runs commands as direct child processes on the host.
type LocalExecutor struct{}

// NewLocalExecutor creates a LocalExecutor.
//
// Currently there is no initialization logic, but this constructor
// follows the convention of the other executors and leaves room for
// options (e.g., a custom shell) later.
func NewLocalExecutor() *LocalExecutor {
	return &LocalExecutor{}
}

// Run executes the command line via `sh -c` in the spec's working
// directory. The child inherits the full process environment with the
// spec's extra entries appended, so configured variables override
// inherited ones (later entries win in os/exec).
func (e *LocalExecutor) Run(ctx context.Context, spec CommandSpec) (int, error) {
	// #nosec G204 — the command line comes from the project's own
	// configuration file, the same trust level as a Makefile.
	cmd := exec.CommandContext(ctx, "sh", "-c", spec.Line)
	cmd.Dir = spec.Dir

	// os.Environ() returns a copy, so appending doesn't affect this process.
	cmd.Env = append(os.Environ(), spec.Env...)

	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	if err != nil {
		// Distinguish "the command ran and failed" from "the command
		// could not be started" — the former has a meaningful exit code.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), err
		}
		return -1, err
	}

	return 0, nil
}
