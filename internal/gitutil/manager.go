// Package gitutil provides the Git operations the release pipeline needs:
// branch identification, working-tree cleanliness, and tag creation.
//
// This package wraps Git CLI commands (via os/exec) rather than using a
// Go Git library (e.g., go-git), because release tagging must behave
// exactly like the git binary the rest of the project's tooling uses —
// including hooks, credential helpers, and push configuration.
//
// All errors from Git commands are wrapped in model.CLIError with
// ExitGitError to enable proper CLI exit code handling.
package gitutil

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/mmr-tortoise/cadence/internal/model"
)

// Manager provides Git operations by invoking the git CLI.
//
// It is currently stateless — all methods receive the repository path
// as a parameter. The struct exists as a receiver to support future
// extensions such as a configurable git binary path.
type Manager struct{}

// NewManager creates a new gitutil Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// RepoRoot returns the absolute path to the top-level directory of the
// Git repository containing the given path.
//
// Uses `git rev-parse --show-toplevel`, which works for both the main
// repository and worktrees.
func (m *Manager) RepoRoot(path string) (string, error) {
	output, err := runGit(path, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// CurrentBranch returns the name of the currently checked-out branch
// at the given path.
//
// Uses `git rev-parse --abbrev-ref HEAD` which returns the short branch
// name (e.g., "main" instead of "refs/heads/main"). Returns "HEAD" if
// the repository is in a detached HEAD state, which is common on CI
// runners — the release command's --force-branch flag exists for that
// case.
func (m *Manager) CurrentBranch(path string) (string, error) {
	output, err := runGit(path, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// HeadSHA returns the full commit SHA that HEAD points to.
func (m *Manager) HeadSHA(path string) (string, error) {
	output, err := runGit(path, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// IsClean reports whether the working tree has no uncommitted changes.
//
// Uses `git status --porcelain`, which prints one line per modified,
// added, deleted, or untracked file and nothing at all for a clean tree.
func (m *Manager) IsClean(path string) (bool, error) {
	output, err := runGit(path, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(output) == "", nil
}

// TagExists checks whether a tag with the given name exists in the
// repository.
//
// Uses `git rev-parse --verify refs/tags/<tag>` which exits with code 0
// if the ref exists and non-zero otherwise. We only care about the exit
// code, not the output.
func (m *Manager) TagExists(path, tag string) bool {
	_, err := runGit(path, "rev-parse", "--verify", "refs/tags/"+tag)
	return err == nil
}

// CreateTag creates an annotated tag at HEAD.
//
// Annotated tags (rather than lightweight ones) record the tagger and
// date, which release tooling and `git describe` expect.
func (m *Manager) CreateTag(path, tag, message string) error {
	if message == "" {
		message = "Release " + tag
	}
	_, err := runGit(path, "tag", "-a", tag, "-m", message)
	return err
}

// PushTag pushes a single tag to the named remote.
func (m *Manager) PushTag(path, remote, tag string) error {
	_, err := runGit(path, "push", remote, "refs/tags/"+tag)
	return err
}

// runGit executes a git command with the given arguments in the specified
// directory.
//
// It captures stdout and stderr separately. On success (exit code 0), it
// returns the stdout output. On failure, it returns a model.CLIError with
// ExitGitError, including the stderr output in the error message.
//
// The repoPath parameter is passed to git via the -C flag, which causes
// git to change to that directory before doing anything else. This avoids
// changing the process's working directory.
func runGit(repoPath string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)

	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.Command("git", fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		message := fmt.Sprintf("git %s failed", strings.Join(args, " "))
		if stderrStr != "" {
			message = fmt.Sprintf("%s: %s", message, stderrStr)
		}
		return "", model.WrapCLIError(model.ExitGitError, message, err)
	}

	return stdout.String(), nil
}
