package gitutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepo creates a temporary directory with an initialized Git
// repository containing a single commit, so branch and tag operations have
// something to point at.
//
// It configures a local user.name and user.email so that `git commit` and
// annotated tags work in CI environments where global git config may not
// be set.
func setupTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	runTestGit(t, dir, "init")
	runTestGit(t, dir, "config", "user.email", "test@example.com")
	runTestGit(t, dir, "config", "user.name", "Test User")

	initialFile := filepath.Join(dir, "version.txt")
	err := os.WriteFile(initialFile, []byte("1.0.0\n"), 0644)
	require.NoError(t, err, "failed to create initial file")

	runTestGit(t, dir, "add", ".")
	runTestGit(t, dir, "commit", "-m", "initial commit")

	return dir
}

// runTestGit is a test helper that runs a git command in the specified
// directory and fails the test immediately on a non-zero exit.
func runTestGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, string(output))
	return string(output)
}

// TestRepoRoot verifies that RepoRoot returns the repository's top-level
// directory, also from a subdirectory.
func TestRepoRoot(t *testing.T) {
	repoPath := setupTestRepo(t)
	m := NewManager()

	subDir := filepath.Join(repoPath, "sub", "dir")
	require.NoError(t, os.MkdirAll(subDir, 0755))

	root, err := m.RepoRoot(subDir)
	require.NoError(t, err)

	// Resolve symlinks on both sides because on macOS t.TempDir() lives
	// under /var which is a symlink to /private/var.
	resolvedRepo, _ := filepath.EvalSymlinks(repoPath)
	resolvedRoot, _ := filepath.EvalSymlinks(root)
	assert.Equal(t, resolvedRepo, resolvedRoot)
}

// TestCurrentBranch verifies the branch name lookup. After `git init`, the
// default branch is typically "main" or "master" depending on the git
// configuration; we accept either.
func TestCurrentBranch(t *testing.T) {
	repoPath := setupTestRepo(t)
	m := NewManager()

	branch, err := m.CurrentBranch(repoPath)
	require.NoError(t, err)
	assert.True(t, branch == "main" || branch == "master",
		"expected 'main' or 'master', got %q", branch)
}

// TestHeadSHA verifies that HeadSHA returns a 40-character commit hash.
func TestHeadSHA(t *testing.T) {
	repoPath := setupTestRepo(t)
	m := NewManager()

	sha, err := m.HeadSHA(repoPath)
	require.NoError(t, err)
	assert.Len(t, sha, 40)
}

// TestIsClean verifies working-tree cleanliness detection before and after
// creating an untracked file.
func TestIsClean(t *testing.T) {
	repoPath := setupTestRepo(t)
	m := NewManager()

	clean, err := m.IsClean(repoPath)
	require.NoError(t, err)
	assert.True(t, clean, "freshly committed repo should be clean")

	require.NoError(t, os.WriteFile(filepath.Join(repoPath, "scratch.txt"), []byte("x"), 0644))

	clean, err = m.IsClean(repoPath)
	require.NoError(t, err)
	assert.False(t, clean, "untracked file should make the tree dirty")
}

// TestCreateTagAndExists verifies the tag lifecycle: absent, created,
// detected, and visible to git itself.
func TestCreateTagAndExists(t *testing.T) {
	repoPath := setupTestRepo(t)
	m := NewManager()

	assert.False(t, m.TagExists(repoPath, "v1.0.0"), "tag should not exist yet")

	err := m.CreateTag(repoPath, "v1.0.0", "")
	require.NoError(t, err)

	assert.True(t, m.TagExists(repoPath, "v1.0.0"))

	// The default message mentions the tag name.
	out := runTestGit(t, repoPath, "tag", "-n", "v1.0.0")
	assert.Contains(t, out, "Release v1.0.0")
}

// TestCreateTagDuplicate verifies that creating an existing tag fails with
// a git error rather than silently succeeding.
func TestCreateTagDuplicate(t *testing.T) {
	repoPath := setupTestRepo(t)
	m := NewManager()

	require.NoError(t, m.CreateTag(repoPath, "v1.0.0", "first"))

	err := m.CreateTag(repoPath, "v1.0.0", "second")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git tag")
}

// TestPushTag verifies pushing a tag to a local bare "remote" repository.
func TestPushTag(t *testing.T) {
	repoPath := setupTestRepo(t)
	m := NewManager()

	// A bare repository on disk stands in for the origin remote.
	remotePath := filepath.Join(t.TempDir(), "origin.git")
	runTestGit(t, t.TempDir(), "init", "--bare", remotePath)
	runTestGit(t, repoPath, "remote", "add", "origin", remotePath)

	require.NoError(t, m.CreateTag(repoPath, "v2.0.0", ""))
	require.NoError(t, m.PushTag(repoPath, "origin", "v2.0.0"))

	// The tag must now exist in the remote.
	cmd := exec.Command("git", "-C", remotePath, "rev-parse", "--verify", "refs/tags/v2.0.0")
	assert.NoError(t, cmd.Run(), "pushed tag should exist in the remote repository")
}
