// Package release implements the cadence release pipeline: a branch guard,
// secret resolution, a fixed linear step sequence, and version-file-based
// tag creation.
//
// The pipeline mirrors how a CI release job behaves: it refuses to run on
// the wrong branch, resolves every secret before the first step starts
// (so a missing token fails fast instead of after a half-finished publish),
// aborts on the first non-zero exit, and tags only after every step
// succeeded.
package release

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmr-tortoise/cadence/internal/config"
	"github.com/mmr-tortoise/cadence/internal/model"
	"github.com/mmr-tortoise/cadence/internal/runner"
)

// GitClient is the subset of git operations the pipeline needs. Satisfied
// by *gitutil.Manager; tests substitute a fake.
type GitClient interface {
	RepoRoot(path string) (string, error)
	CurrentBranch(path string) (string, error)
	IsClean(path string) (bool, error)
	HeadSHA(path string) (string, error)
	TagExists(path, tag string) bool
	CreateTag(path, tag, message string) error
	PushTag(path, remote, tag string) error
}

// tagRemote is the remote release tags are pushed to.
const tagRemote = "origin"

// Pipeline executes a configured release.
type Pipeline struct {
	// Workdir is the project root. Steps run here and the version file
	// path resolves relative to it.
	Workdir string

	// Git performs branch lookup and tagging.
	Git GitClient

	// Exec runs the release steps.
	Exec runner.Executor

	// Out receives progress lines, with secret values redacted.
	// Defaults to os.Stdout.
	Out io.Writer

	// Logf, when non-nil, receives verbose diagnostics.
	Logf func(format string, args ...interface{})

	// DryRun prints the plan without executing steps or touching git.
	// The branch guard and secret resolution still run, so a dry run
	// validates the pipeline end to end.
	DryRun bool

	// SkipTag suppresses tag creation even when the configuration
	// requests it.
	SkipTag bool

	// ForceBranch bypasses the branch guard.
	ForceBranch bool
}

// logf forwards to the configured verbose logger, if any.
func (p *Pipeline) logf(format string, args ...interface{}) {
	if p.Logf != nil {
		p.Logf(format, args...)
	}
}

// out returns the progress writer, defaulting to stdout.
func (p *Pipeline) out() io.Writer {
	if p.Out != nil {
		return p.Out
	}
	return os.Stdout
}

// Run executes the release pipeline described by cfg.Release.
//
// The returned ReleaseResult is non-nil whenever the pipeline got past the
// branch guard, even on failure, so the CLI can render partial results.
func (p *Pipeline) Run(ctx context.Context, cfg *config.Config) (*model.ReleaseResult, error) {
	if cfg.Release == nil {
		return nil, model.NewCLIError(
			model.ExitConfigError,
			"no release pipeline is configured",
		)
	}
	rel := cfg.Release

	// Git operations target the repository root, not the project directory
	// — the configuration file may live in a subdirectory of the repo.
	repoRoot, err := p.Git.RepoRoot(p.Workdir)
	if err != nil {
		return nil, err
	}

	// 1. Branch guard. Releases run from exactly one branch so a tag
	// always corresponds to the published history.
	branch, err := p.Git.CurrentBranch(repoRoot)
	if err != nil {
		return nil, err
	}
	if branch != rel.Branch {
		if !p.ForceBranch {
			return nil, model.NewCLIError(
				model.ExitBranchMismatch,
				fmt.Sprintf("release runs on branch %q, but the current branch is %q (use --force-branch to override)", rel.Branch, branch),
			)
		}
		p.logf("branch guard overridden: running on %q instead of %q", branch, rel.Branch)
	}

	// A dirty tree means the tagged commit would not match what the steps
	// actually build and publish.
	clean, err := p.Git.IsClean(repoRoot)
	if err != nil {
		return nil, err
	}
	if !clean {
		return nil, model.NewCLIError(
			model.ExitGitError,
			"working tree has uncommitted changes; commit or stash them before releasing",
		)
	}

	sha, err := p.Git.HeadSHA(repoRoot)
	if err != nil {
		return nil, err
	}

	result := &model.ReleaseResult{Branch: branch, Commit: sha, DryRun: p.DryRun}

	// 2. Resolve every secret before the first step runs. Failing here is
	// cheap; failing between a build step and a publish step is not.
	secrets, err := resolveSecrets(rel.Steps)
	if err != nil {
		return nil, err
	}
	redactor := NewRedactor(secretValues(secrets))

	// 3. Steps, strictly in order. The first non-zero exit aborts the
	// remainder; skipped steps still appear in the result.
	var stepErr error
	for _, step := range rel.Steps {
		if stepErr != nil {
			result.Steps = append(result.Steps, model.StepResult{
				Name:    step.Name,
				Command: step.Run,
				Status:  model.StatusSkipped,
			})
			continue
		}
		result.Steps = append(result.Steps, p.runStep(ctx, step, secrets, redactor, &stepErr))
	}
	if stepErr != nil {
		return result, stepErr
	}

	// 4. Tagging, only after every step succeeded.
	if rel.Tag != nil && !p.SkipTag {
		if err := p.tag(repoRoot, rel.Tag, result); err != nil {
			return result, err
		}
	}

	return result, nil
}

// runStep executes one step (or prints it, in dry-run mode) and returns its
// result. On failure it stores a CLIError into stepErr.
func (p *Pipeline) runStep(ctx context.Context, step config.Step, secrets map[string]string, redactor *Redactor, stepErr *error) model.StepResult {
	fmt.Fprintf(p.out(), "[release] %s: %s\n", step.Name, redactor.Redact(step.Run))

	if p.DryRun {
		return model.StepResult{
			Name:    step.Name,
			Command: step.Run,
			Status:  model.StatusSkipped,
		}
	}

	// Secrets reach the step as environment variables, never as command
	// line text, so they don't show up in process listings.
	env := make([]string, 0, len(step.Env)+len(secrets))
	for k, v := range step.Env {
		env = append(env, k+"="+v)
	}
	for name, value := range secrets {
		env = append(env, name+"="+value)
	}

	start := time.Now()
	code, err := p.Exec.Run(ctx, runner.CommandSpec{
		Line:   step.Run,
		Dir:    p.Workdir,
		Env:    env,
		Stdout: redactor.Writer(p.out()),
		Stderr: redactor.Writer(p.out()),
	})

	res := model.StepResult{
		Name:     step.Name,
		Command:  step.Run,
		Status:   model.StatusPassed,
		ExitCode: code,
		Duration: time.Since(start),
	}
	if err != nil {
		res.Status = model.StatusFailed
		*stepErr = model.WrapCLIError(
			model.ExitCommandFailed,
			fmt.Sprintf("release step %q failed (exit code %d)", step.Name, code),
			err,
		)
	}
	return res
}

// tag derives the tag name from the version file and creates it, unless it
// already exists. Re-running a release after a transient failure must not
// error out on the tag that the earlier run already created.
func (p *Pipeline) tag(repoRoot string, tagCfg *config.Tag, result *model.ReleaseResult) error {
	version, err := p.readVersion(tagCfg.VersionFile)
	if err != nil {
		return err
	}
	tag := tagCfg.Prefix + version
	result.Tag = tag

	if p.DryRun {
		fmt.Fprintf(p.out(), "[release] would tag %s\n", tag)
		return nil
	}

	if p.Git.TagExists(repoRoot, tag) {
		fmt.Fprintf(p.out(), "[release] tag %s already exists, skipping\n", tag)
	} else {
		if err := p.Git.CreateTag(repoRoot, tag, ""); err != nil {
			return err
		}
		result.TagCreated = true
		fmt.Fprintf(p.out(), "[release] created tag %s\n", tag)
	}

	if tagCfg.Push {
		if err := p.Git.PushTag(repoRoot, tagRemote, tag); err != nil {
			return err
		}
		result.TagPushed = true
		fmt.Fprintf(p.out(), "[release] pushed tag %s to %s\n", tag, tagRemote)
	}

	return nil
}

// readVersion reads the configured version file and trims surrounding
// whitespace, so a trailing newline doesn't end up in the tag name.
func (p *Pipeline) readVersion(versionFile string) (string, error) {
	path := versionFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.Workdir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitConfigError,
			fmt.Sprintf("failed to read version file %s", versionFile),
			err,
		)
	}

	version := strings.TrimSpace(string(data))
	if version == "" {
		return "", model.NewCLIError(
			model.ExitConfigError,
			fmt.Sprintf("version file %s is empty", versionFile),
		)
	}
	return version, nil
}

// resolveSecrets looks up every secret named by any step in the process
// environment. All missing secrets are reported in a single error so the
// user fixes them in one round trip. Values never appear in the error.
func resolveSecrets(steps []config.Step) (map[string]string, error) {
	secrets := make(map[string]string)
	missingSet := make(map[string]bool)
	var missing []string

	for _, step := range steps {
		for _, name := range step.Secrets {
			if _, seen := secrets[name]; seen || missingSet[name] {
				continue
			}
			value, ok := os.LookupEnv(name)
			if !ok || value == "" {
				missingSet[name] = true
				missing = append(missing, name)
				continue
			}
			secrets[name] = value
		}
	}

	if len(missing) > 0 {
		return nil, model.NewCLIError(
			model.ExitMissingSecret,
			fmt.Sprintf("missing secret(s) in environment: %s", strings.Join(missing, ", ")),
		)
	}
	return secrets, nil
}

// secretValues extracts just the values, for building the redactor.
func secretValues(secrets map[string]string) []string {
	values := make([]string, 0, len(secrets))
	for _, v := range secrets {
		values = append(values, v)
	}
	return values
}
