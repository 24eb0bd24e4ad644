package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmr-tortoise/cadence/internal/model"
)

// TestFormatTagSummary verifies the tag annotation for every combination
// of created/pushed/dry-run, in particular that a pre-existing tag that
// was pushed still reports the push.
func TestFormatTagSummary(t *testing.T) {
	cases := map[string]struct {
		result   model.ReleaseResult
		expected string
	}{
		"dry run": {
			result:   model.ReleaseResult{DryRun: true},
			expected: "dry run",
		},
		"created and pushed": {
			result:   model.ReleaseResult{TagCreated: true, TagPushed: true},
			expected: "created, pushed",
		},
		"created only": {
			result:   model.ReleaseResult{TagCreated: true},
			expected: "created",
		},
		"existing tag pushed": {
			result:   model.ReleaseResult{TagPushed: true},
			expected: "already existed, pushed",
		},
		"existing tag not pushed": {
			result:   model.ReleaseResult{},
			expected: "already existed",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FormatTagSummary(&tc.result))
		})
	}
}
