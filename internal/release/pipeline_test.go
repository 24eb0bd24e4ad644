package release

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/cadence/internal/config"
	"github.com/mmr-tortoise/cadence/internal/model"
	"github.com/mmr-tortoise/cadence/internal/runner"
)

// fakeGit implements GitClient in memory so pipeline tests don't need a
// real repository. It records the path every operation receives so tests
// can verify git runs against the repository root.
type fakeGit struct {
	root        string
	branch      string
	branchErr   error
	dirty       bool
	sha         string
	tags        map[string]bool
	pushedTags  []string
	createdTags []string
	seenPaths   []string
}

func newFakeGit(branch string) *fakeGit {
	return &fakeGit{
		root:   "/repo",
		branch: branch,
		sha:    "0123456789abcdef0123456789abcdef01234567",
		tags:   map[string]bool{},
	}
}

func (g *fakeGit) RepoRoot(path string) (string, error) {
	return g.root, nil
}

func (g *fakeGit) CurrentBranch(path string) (string, error) {
	g.seenPaths = append(g.seenPaths, path)
	return g.branch, g.branchErr
}

func (g *fakeGit) IsClean(path string) (bool, error) {
	g.seenPaths = append(g.seenPaths, path)
	return !g.dirty, nil
}

func (g *fakeGit) HeadSHA(path string) (string, error) {
	g.seenPaths = append(g.seenPaths, path)
	return g.sha, nil
}

func (g *fakeGit) TagExists(path, tag string) bool {
	g.seenPaths = append(g.seenPaths, path)
	return g.tags[tag]
}

func (g *fakeGit) CreateTag(path, tag, message string) error {
	g.seenPaths = append(g.seenPaths, path)
	g.tags[tag] = true
	g.createdTags = append(g.createdTags, tag)
	return nil
}

func (g *fakeGit) PushTag(path, remote, tag string) error {
	g.seenPaths = append(g.seenPaths, path)
	g.pushedTags = append(g.pushedTags, remote+"/"+tag)
	return nil
}

// newTestPipeline builds a Pipeline over a temp project directory with a
// version file, returning the pipeline and its output buffer.
func newTestPipeline(t *testing.T, git GitClient) (*Pipeline, *bytes.Buffer) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "VERSION"), []byte("1.2.0\n"), 0644))

	out := &bytes.Buffer{}
	return &Pipeline{
		Workdir: dir,
		Git:     git,
		Exec:    &runner.LocalExecutor{},
		Out:     out,
	}, out
}

// releaseConfig builds a minimal configuration with the given steps and
// tagging enabled.
func releaseConfig(steps ...config.Step) *config.Config {
	return &config.Config{
		Release: &config.Release{
			Branch: "main",
			Steps:  steps,
			Tag:    &config.Tag{Prefix: "v", VersionFile: "VERSION", Push: true},
		},
	}
}

// TestRunSuccess verifies the full pipeline: steps execute in order, the
// tag is derived from the version file, created, and pushed.
func TestRunSuccess(t *testing.T) {
	git := newFakeGit("main")
	p, _ := newTestPipeline(t, git)

	cfg := releaseConfig(
		config.Step{Name: "build", Run: "true"},
		config.Step{Name: "publish", Run: "true"},
	)

	result, err := p.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "main", result.Branch)
	assert.Equal(t, git.sha, result.Commit)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, model.StatusPassed, result.Steps[0].Status)
	assert.Equal(t, model.StatusPassed, result.Steps[1].Status)

	assert.Equal(t, "v1.2.0", result.Tag)
	assert.True(t, result.TagCreated)
	assert.True(t, result.TagPushed)
	assert.Equal(t, []string{"v1.2.0"}, git.createdTags)
	assert.Equal(t, []string{"origin/v1.2.0"}, git.pushedTags)

	// Every git operation must target the repository root, not the
	// project directory the configuration file lives in.
	for _, path := range git.seenPaths {
		assert.Equal(t, git.root, path)
	}
}

// TestRunDirtyTreeGuard verifies that a release refuses to run with
// uncommitted changes, so the tag always matches what the steps built.
func TestRunDirtyTreeGuard(t *testing.T) {
	git := newFakeGit("main")
	git.dirty = true
	p, _ := newTestPipeline(t, git)

	marker := filepath.Join(p.Workdir, "ran.txt")
	cfg := releaseConfig(config.Step{Name: "build", Run: "touch " + marker})

	_, err := p.Run(context.Background(), cfg)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitGitError, cliErr.Code)
	assert.Contains(t, cliErr.Message, "uncommitted")

	assert.NoFileExists(t, marker, "no step may run on a dirty tree")
	assert.Empty(t, git.createdTags)
}

// TestRunBranchGuard verifies that the pipeline refuses to run on the
// wrong branch and that --force-branch overrides the guard.
func TestRunBranchGuard(t *testing.T) {
	p, _ := newTestPipeline(t, newFakeGit("feature/x"))
	cfg := releaseConfig(config.Step{Name: "build", Run: "true"})

	_, err := p.Run(context.Background(), cfg)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitBranchMismatch, cliErr.Code)
	assert.Contains(t, cliErr.Message, "feature/x")

	p.ForceBranch = true
	result, err := p.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "feature/x", result.Branch)
}

// TestRunStepFailureAborts verifies that the first failing step aborts the
// sequence, later steps are reported as skipped, and no tag is created.
func TestRunStepFailureAborts(t *testing.T) {
	git := newFakeGit("main")
	p, _ := newTestPipeline(t, git)

	cfg := releaseConfig(
		config.Step{Name: "build", Run: "exit 7"},
		config.Step{Name: "publish", Run: "true"},
	)

	result, err := p.Run(context.Background(), cfg)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitCommandFailed, cliErr.Code)

	require.Len(t, result.Steps, 2)
	assert.Equal(t, model.StatusFailed, result.Steps[0].Status)
	assert.Equal(t, 7, result.Steps[0].ExitCode)
	assert.Equal(t, model.StatusSkipped, result.Steps[1].Status)

	assert.Empty(t, git.createdTags, "a failed pipeline must not tag")
	assert.False(t, result.TagCreated)
}

// TestRunMissingSecrets verifies that all missing secrets are reported
// before any step runs.
func TestRunMissingSecrets(t *testing.T) {
	p, _ := newTestPipeline(t, newFakeGit("main"))

	marker := filepath.Join(p.Workdir, "ran.txt")
	cfg := releaseConfig(
		config.Step{Name: "publish", Run: "touch " + marker, Secrets: []string{"CADENCE_TEST_TOKEN_A", "CADENCE_TEST_TOKEN_B"}},
	)

	_, err := p.Run(context.Background(), cfg)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitMissingSecret, cliErr.Code)
	assert.Contains(t, cliErr.Message, "CADENCE_TEST_TOKEN_A")
	assert.Contains(t, cliErr.Message, "CADENCE_TEST_TOKEN_B")

	assert.NoFileExists(t, marker, "no step may run when a secret is missing")
}

// TestRunMissingSecretReportedOnce verifies that a secret required by
// several steps appears only once in the missing-secrets error.
func TestRunMissingSecretReportedOnce(t *testing.T) {
	p, _ := newTestPipeline(t, newFakeGit("main"))

	cfg := releaseConfig(
		config.Step{Name: "build", Run: "true", Secrets: []string{"CADENCE_TEST_SHARED_TOKEN"}},
		config.Step{Name: "publish", Run: "true", Secrets: []string{"CADENCE_TEST_SHARED_TOKEN"}},
	)

	_, err := p.Run(context.Background(), cfg)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitMissingSecret, cliErr.Code)
	assert.Equal(t, 1, strings.Count(cliErr.Message, "CADENCE_TEST_SHARED_TOKEN"))
}

// TestRunSecretInjectionAndRedaction verifies that a secret reaches the
// step as an environment variable and that its value is masked in output.
func TestRunSecretInjectionAndRedaction(t *testing.T) {
	t.Setenv("CADENCE_TEST_TOKEN", "s3cr3t-value")

	p, out := newTestPipeline(t, newFakeGit("main"))
	cfg := releaseConfig(
		config.Step{Name: "publish", Run: "echo token=$CADENCE_TEST_TOKEN", Secrets: []string{"CADENCE_TEST_TOKEN"}},
	)

	result, err := p.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPassed, result.Steps[0].Status)

	assert.Contains(t, out.String(), "token=***")
	assert.NotContains(t, out.String(), "s3cr3t-value")
}

// TestRunDryRun verifies that a dry run prints the plan without executing
// steps or touching git, while still resolving the tag name.
func TestRunDryRun(t *testing.T) {
	git := newFakeGit("main")
	p, out := newTestPipeline(t, git)
	p.DryRun = true

	marker := filepath.Join(p.Workdir, "ran.txt")
	cfg := releaseConfig(config.Step{Name: "build", Run: "touch " + marker})

	result, err := p.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, model.StatusSkipped, result.Steps[0].Status)
	assert.NoFileExists(t, marker)

	assert.Equal(t, "v1.2.0", result.Tag)
	assert.False(t, result.TagCreated)
	assert.Empty(t, git.createdTags)
	assert.Contains(t, out.String(), "would tag v1.2.0")
}

// TestRunExistingTag verifies that an already-existing tag is skipped
// rather than treated as an error, so reruns are safe.
func TestRunExistingTag(t *testing.T) {
	git := newFakeGit("main")
	git.tags["v1.2.0"] = true

	p, out := newTestPipeline(t, git)
	cfg := releaseConfig(config.Step{Name: "build", Run: "true"})

	result, err := p.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "v1.2.0", result.Tag)
	assert.False(t, result.TagCreated)
	assert.True(t, result.TagPushed, "an existing tag is still pushed")
	assert.Contains(t, out.String(), "already exists")
	assert.Empty(t, git.createdTags)
}

// TestRunSkipTag verifies the --skip-tag behavior.
func TestRunSkipTag(t *testing.T) {
	git := newFakeGit("main")
	p, _ := newTestPipeline(t, git)
	p.SkipTag = true

	cfg := releaseConfig(config.Step{Name: "build", Run: "true"})

	result, err := p.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, result.Tag)
	assert.Empty(t, git.createdTags)
}

// TestRunNoReleaseConfigured verifies the error when the configuration has
// no release section.
func TestRunNoReleaseConfigured(t *testing.T) {
	p, _ := newTestPipeline(t, newFakeGit("main"))

	_, err := p.Run(context.Background(), &config.Config{})
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitConfigError, cliErr.Code)
}

// TestReadVersionTrimsWhitespace verifies version file parsing edge cases.
func TestReadVersionTrimsWhitespace(t *testing.T) {
	p, _ := newTestPipeline(t, newFakeGit("main"))

	require.NoError(t, os.WriteFile(filepath.Join(p.Workdir, "VERSION"), []byte("  2.0.0\n\n"), 0644))
	version, err := p.readVersion("VERSION")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", version)

	require.NoError(t, os.WriteFile(filepath.Join(p.Workdir, "VERSION"), []byte("   \n"), 0644))
	_, err = p.readVersion("VERSION")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

// TestRedactorMasksAllValues verifies multi-secret masking and that empty
// values are ignored.
func TestRedactorMasksAllValues(t *testing.T) {
	r := NewRedactor([]string{"alpha", "beta", ""})

	assert.Equal(t, "*** and ***", r.Redact("alpha and beta"))
	assert.Equal(t, "nothing here", r.Redact("nothing here"))
}

// TestRedactingWriter verifies masking through the io.Writer wrapper and
// that the reported length matches the input, per the io.Writer contract.
func TestRedactingWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewRedactor([]string{"hunter2"}).Writer(&buf)

	n, err := w.Write([]byte("password is hunter2\n"))
	require.NoError(t, err)
	assert.Equal(t, len("password is hunter2\n"), n)
	assert.Equal(t, "password is ***\n", buf.String())
}
