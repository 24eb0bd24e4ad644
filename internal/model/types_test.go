package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunStatusIsValid verifies that only the three defined statuses are
// considered valid.
func TestRunStatusIsValid(t *testing.T) {
	assert.True(t, StatusPassed.IsValid())
	assert.True(t, StatusFailed.IsValid())
	assert.True(t, StatusSkipped.IsValid())

	assert.False(t, RunStatus("").IsValid())
	assert.False(t, RunStatus("running").IsValid())
	assert.False(t, RunStatus("PASSED").IsValid(), "statuses are case-sensitive")
}

// TestValidateName verifies the environment name rules: alphanumeric plus
// hyphens, starting and ending with an alphanumeric character.
func TestValidateName(t *testing.T) {
	// Valid names.
	for _, name := range []string{"test", "lint", "py39", "format-check", "a", "A1"} {
		assert.NoError(t, ValidateName(name), "expected %q to be valid", name)
	}

	// Invalid names.
	for _, name := range []string{"", "-test", "test-", "te st", "te/st", "te_st", "-"} {
		assert.Error(t, ValidateName(name), "expected %q to be invalid", name)
	}
}

// TestCLIErrorMessage verifies the error string with and without an
// underlying error.
func TestCLIErrorMessage(t *testing.T) {
	plain := NewCLIError(ExitEnvNotFound, "no such environment")
	assert.Equal(t, "no such environment", plain.Error())

	underlying := fmt.Errorf("exit status 2")
	wrapped := WrapCLIError(ExitCommandFailed, "command failed", underlying)
	assert.Equal(t, "command failed: exit status 2", wrapped.Error())
}

// TestCLIErrorUnwrap verifies that errors.Is can see through a CLIError
// to the underlying error, per Go 1.13 wrapping conventions.
func TestCLIErrorUnwrap(t *testing.T) {
	underlying := errors.New("boom")
	wrapped := WrapCLIError(ExitGeneralError, "something broke", underlying)

	require.ErrorIs(t, wrapped, underlying)

	var cliErr *CLIError
	require.ErrorAs(t, error(wrapped), &cliErr)
	assert.Equal(t, ExitGeneralError, cliErr.Code)
}

// TestExitCodeValues pins the numeric exit codes, since scripts and CI
// systems depend on them staying stable.
func TestExitCodeValues(t *testing.T) {
	assert.Equal(t, 0, int(ExitSuccess))
	assert.Equal(t, 1, int(ExitGeneralError))
	assert.Equal(t, 2, int(ExitConfigError))
	assert.Equal(t, 3, int(ExitDockerNotRunning))
	assert.Equal(t, 4, int(ExitCommandFailed))
	assert.Equal(t, 5, int(ExitGitError))
	assert.Equal(t, 6, int(ExitEnvNotFound))
	assert.Equal(t, 7, int(ExitCoverageFailed))
	assert.Equal(t, 8, int(ExitBranchMismatch))
	assert.Equal(t, 9, int(ExitMissingSecret))
}
