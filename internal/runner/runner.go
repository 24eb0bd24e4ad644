package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mmr-tortoise/cadence/internal/config"
	"github.com/mmr-tortoise/cadence/internal/coverage"
	"github.com/mmr-tortoise/cadence/internal/model"
)

// Runner executes configured environments as fixed linear sequences.
type Runner struct {
	// Workdir is the project root. Commands run here and coverage
	// profile paths resolve relative to it.
	Workdir string

	// Out receives progress lines. Defaults to os.Stdout.
	Out io.Writer

	// Logf, when non-nil, receives verbose diagnostics. The CLI wires
	// this to its --verbose logger.
	Logf func(format string, args ...interface{})
}

// New creates a Runner for the given project root.
func New(workdir string) *Runner {
	return &Runner{Workdir: workdir, Out: os.Stdout}
}

// logf forwards to the configured verbose logger, if any.
func (r *Runner) logf(format string, args ...interface{}) {
	if r.Logf != nil {
		r.Logf(format, args...)
	}
}

// out returns the progress writer, defaulting to stdout.
func (r *Runner) out() io.Writer {
	if r.Out != nil {
		return r.Out
	}
	return os.Stdout
}

// RunEnv executes one environment: its setup commands, then its main
// commands, then its coverage gate. The first failing command aborts the
// sequence, and the environment's result records every command that ran.
//
// The returned EnvResult is non-nil whenever the environment exists, even
// on failure, so the CLI can render partial results. The error is a
// CLIError carrying the appropriate exit code.
func (r *Runner) RunEnv(ctx context.Context, cfg *config.Config, name string, exec Executor) (*model.EnvResult, error) {
	env, ok := cfg.Envs[name]
	if !ok {
		return nil, model.NewCLIError(
			model.ExitEnvNotFound,
			fmt.Sprintf("environment %q is not defined in the configuration", name),
		)
	}

	start := time.Now()
	result := &model.EnvResult{Env: name, Status: model.StatusPassed}

	// Assemble the extra environment: per-env variables first, then the
	// exported CADENCE_* facts. Later entries win, so the built-ins are
	// authoritative.
	extraEnv := buildEnv(env.Env, cfg.RuntimeVars(name))
	r.logf("environment %q: %d setup command(s), %d command(s)", name, len(env.Setup), len(env.Commands))

	// Setup commands (dependency installation) run first.
	runErr := r.runPhase(ctx, exec, result, model.PhaseSetup, env.Setup, extraEnv)
	if runErr == nil {
		runErr = r.runPhase(ctx, exec, result, model.PhaseMain, env.Commands, extraEnv)
	}

	if runErr != nil {
		result.Status = model.StatusFailed
		result.Duration = time.Since(start)
		return result, runErr
	}

	// Coverage gate runs only after every command succeeded, mirroring
	// how a CI job would evaluate the report produced by the test step.
	if env.Coverage != nil {
		profilePath := env.Coverage.Profile
		if !filepath.IsAbs(profilePath) {
			profilePath = filepath.Join(r.Workdir, profilePath)
		}

		covResult, covErr := coverage.Gate(profilePath, env.Coverage.Threshold)
		result.Coverage = covResult
		if covErr != nil {
			result.Status = model.StatusFailed
			result.Duration = time.Since(start)
			return result, covErr
		}
		fmt.Fprintf(r.out(), "coverage: %.1f%% (threshold %.1f%%)\n", covResult.Percent, covResult.Threshold)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// runPhase executes one command list, appending a CommandResult per
// command. It stops at the first failure and returns a CLIError with
// ExitCommandFailed.
func (r *Runner) runPhase(ctx context.Context, exec Executor, result *model.EnvResult, phase model.CommandPhase, commands []string, extraEnv []string) error {
	for _, line := range commands {
		fmt.Fprintf(r.out(), "[%s] %s\n", result.Env, line)

		cmdStart := time.Now()
		code, err := exec.Run(ctx, CommandSpec{
			Line: line,
			Dir:  r.Workdir,
			Env:  extraEnv,
		})

		cmdResult := model.CommandResult{
			Command:  line,
			Phase:    phase,
			ExitCode: code,
			Duration: time.Since(cmdStart),
			Status:   model.StatusPassed,
		}
		if err != nil {
			cmdResult.Status = model.StatusFailed
		}
		result.Commands = append(result.Commands, cmdResult)

		if err != nil {
			return model.WrapCLIError(
				model.ExitCommandFailed,
				fmt.Sprintf("command failed in environment %q (exit code %d): %s", result.Env, code, line),
				err,
			)
		}
	}
	return nil
}

// RunAll executes the named environments strictly in order. When one
// fails, the remaining environments are reported as skipped rather than
// run — the whole invocation is a single fixed sequence.
//
// The executorFor callback supplies the Executor for each environment,
// letting the CLI choose container execution for environments that
// configure an image.
func (r *Runner) RunAll(ctx context.Context, cfg *config.Config, names []string, executorFor func(name string) (Executor, error)) ([]*model.EnvResult, error) {
	results := make([]*model.EnvResult, 0, len(names))

	var firstErr error
	for _, name := range names {
		if firstErr != nil {
			results = append(results, &model.EnvResult{Env: name, Status: model.StatusSkipped})
			continue
		}

		exec, err := executorFor(name)
		if err != nil {
			firstErr = err
			results = append(results, &model.EnvResult{Env: name, Status: model.StatusSkipped})
			continue
		}

		result, err := r.RunEnv(ctx, cfg, name, exec)
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			firstErr = err
			if result == nil {
				// Unknown environment: record it so the report is complete.
				results = append(results, &model.EnvResult{Env: name, Status: model.StatusFailed})
			}
		}
	}

	return results, firstErr
}

// buildEnv flattens the per-env map and the runtime variable map into
// KEY=VALUE form. Map iteration order doesn't matter here because the two
// maps have disjoint key spaces (user keys vs CADENCE_*), and within one
// map duplicate keys are impossible.
func buildEnv(envMap, runtimeVars map[string]string) []string {
	entries := make([]string, 0, len(envMap)+len(runtimeVars))
	for k, v := range envMap {
		entries = append(entries, k+"="+v)
	}
	for k, v := range runtimeVars {
		entries = append(entries, k+"="+v)
	}
	return entries
}
