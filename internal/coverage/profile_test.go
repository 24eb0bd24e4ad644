package coverage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParse verifies statement aggregation over a typical cover profile:
// blocks with non-zero hit counts contribute to the covered total.
func TestParse(t *testing.T) {
	input := `mode: set
example.com/pkg/a.go:1.1,5.2 4 1
example.com/pkg/a.go:7.1,9.2 2 0
example.com/pkg/b.go:1.1,3.2 4 3
`
	profile, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "set", profile.Mode)
	assert.Equal(t, int64(10), profile.Total)
	assert.Equal(t, int64(8), profile.Covered)
	assert.InDelta(t, 80.0, profile.Percent(), 0.001)
}

// TestParseFullCoverage verifies the 100% case, which is what the default
// test environment gate enforces.
func TestParseFullCoverage(t *testing.T) {
	input := `mode: count
example.com/pkg/a.go:1.1,5.2 4 7
example.com/pkg/a.go:7.1,9.2 2 1
`
	profile, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.InDelta(t, 100.0, profile.Percent(), 0.001)
}

// TestParseRejectsMalformedLines verifies that corrupt profiles error out
// instead of silently passing the gate.
func TestParseRejectsMalformedLines(t *testing.T) {
	cases := map[string]string{
		"wrong field count": "mode: set\nfile.go:1.1,2.2 3\n",
		"bad statements":    "mode: set\nfile.go:1.1,2.2 x 1\n",
		"bad hits":          "mode: set\nfile.go:1.1,2.2 3 y\n",
		"missing mode":      "file.go:1.1,2.2 3 1\n",
	}

	for name, input := range cases {
		_, err := Parse(strings.NewReader(input))
		assert.Error(t, err, "case %q should fail to parse", name)
	}
}

// TestPercentEmptyProfile verifies that a profile with a header but no
// statements reports 0%, which fails any positive threshold.
func TestPercentEmptyProfile(t *testing.T) {
	profile, err := Parse(strings.NewReader("mode: set\n"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, profile.Percent())
}

// writeProfile is a test helper that writes a cover profile into a temp
// directory and returns its path.
func writeProfile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "coverage.out")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

// TestGatePasses verifies that coverage at or above the threshold passes.
func TestGatePasses(t *testing.T) {
	path := writeProfile(t, "mode: set\nfile.go:1.1,2.2 10 1\n")

	result, err := Gate(path, 100)
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.InDelta(t, 100.0, result.Percent, 0.001)
	assert.Equal(t, 100.0, result.Threshold)
}

// TestGateFailsBelowThreshold verifies that coverage below the threshold
// produces an error while still returning the computed result.
func TestGateFailsBelowThreshold(t *testing.T) {
	path := writeProfile(t, "mode: set\nfile.go:1.1,2.2 1 1\nfile.go:3.1,4.2 1 0\n")

	result, err := Gate(path, 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "below the required")

	require.NotNil(t, result, "result should be returned for reporting even on failure")
	assert.False(t, result.Passed)
	assert.InDelta(t, 50.0, result.Percent, 0.001)
}

// TestGateMissingProfile verifies the error message when the test command
// never wrote the configured profile file.
func TestGateMissingProfile(t *testing.T) {
	result, err := Gate(filepath.Join(t.TempDir(), "nope.out"), 90)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "coverage profile not found")
}
