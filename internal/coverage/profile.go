// Package coverage implements the statement-coverage gate applied after a
// test environment's commands succeed.
//
// It parses the Go cover profile format (produced by `go test
// -coverprofile`), computes the covered-statement percentage, and compares
// it against the configured threshold. The profile format is line-oriented:
//
//	mode: set
//	example.com/pkg/file.go:12.34,15.2 3 1
//
// Each body line is "<location> <number of statements> <hit count>".
// A block is covered when its hit count is greater than zero.
package coverage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mmr-tortoise/cadence/internal/model"
)

// Profile holds the aggregate statement counts parsed from a cover profile.
type Profile struct {
	// Mode is the coverage mode from the profile header
	// ("set", "count", or "atomic").
	Mode string

	// Covered is the number of statements with a non-zero hit count.
	Covered int64

	// Total is the total number of statements in the profile.
	Total int64
}

// Percent returns the covered-statement percentage (0-100).
// A profile with no statements reports 0.
func (p *Profile) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return 100 * float64(p.Covered) / float64(p.Total)
}

// Parse reads a cover profile from r and aggregates its statement counts.
//
// Malformed lines produce an error rather than being skipped — a corrupt
// profile must not silently pass a 100% gate.
func Parse(r io.Reader) (*Profile, error) {
	profile := &Profile{}
	scanner := bufio.NewScanner(r)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// The header line declares the coverage mode.
		if strings.HasPrefix(line, "mode:") {
			profile.Mode = strings.TrimSpace(strings.TrimPrefix(line, "mode:"))
			continue
		}

		// Body lines are "<location> <numStatements> <hitCount>".
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: expected 3 fields, got %d: %q", lineNo, len(fields), line)
		}

		statements, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid statement count %q: %w", lineNo, fields[1], err)
		}
		hits, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid hit count %q: %w", lineNo, fields[2], err)
		}

		profile.Total += statements
		if hits > 0 {
			profile.Covered += statements
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cover profile: %w", err)
	}

	if profile.Mode == "" {
		return nil, fmt.Errorf("cover profile has no mode header")
	}

	return profile, nil
}

// Gate evaluates the coverage gate for the profile file at the given path.
//
// It always returns a CoverageResult when the profile parses, so callers
// can report the computed percentage even on failure. A missing or
// malformed profile, or a percentage below the threshold, produces a
// CLIError with ExitCoverageFailed.
func Gate(profilePath string, threshold float64) (*model.CoverageResult, error) {
	f, err := os.Open(profilePath)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitCoverageFailed,
			fmt.Sprintf("coverage profile not found: %s (did the test command write it?)", profilePath),
			err,
		)
	}
	defer func() { _ = f.Close() }()

	profile, err := Parse(f)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitCoverageFailed,
			fmt.Sprintf("invalid coverage profile %s", profilePath),
			err,
		)
	}

	result := &model.CoverageResult{
		Percent:   profile.Percent(),
		Threshold: threshold,
		Passed:    profile.Percent() >= threshold,
	}

	if !result.Passed {
		return result, model.NewCLIError(
			model.ExitCoverageFailed,
			fmt.Sprintf("coverage %.1f%% is below the required %.1f%%", result.Percent, threshold),
		)
	}

	return result, nil
}
