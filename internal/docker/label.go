package docker

import (
	"fmt"
	"strings"
	"time"
)

// Label key constants define the Docker label keys applied to every
// container cadence starts. Containers are normally removed when their
// command exits, so the labels exist to find and clean up the ones left
// behind by interrupted runs.
//
// All keys share the "cadence." prefix to namespace them and avoid
// collisions with labels set by other tools.
const (
	// LabelPrefix is the common prefix for all cadence labels.
	LabelPrefix = "cadence."

	// LabelManagedBy identifies containers started by cadence.
	// This is the primary label used for filtering and discovery.
	// Key: "cadence.managed-by", Value: always "cadence".
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelEnv stores the environment name the container ran for.
	// Key: "cadence.env", Value: environment name (e.g., "lint").
	LabelEnv = LabelPrefix + "env"

	// LabelStartedAt stores the RFC3339 timestamp of container start.
	// Key: "cadence.started-at".
	LabelStartedAt = LabelPrefix + "started-at"
)

// ManagedByValue is the constant value for the LabelManagedBy label.
const ManagedByValue = "cadence"

// RunLabels holds the metadata parsed back out of a labeled container.
type RunLabels struct {
	// Env is the environment name the container ran for.
	Env string

	// StartedAt is when the container was started.
	StartedAt time.Time
}

// BuildLabels constructs the Docker label map for a container running the
// named environment.
func BuildLabels(envName string, startedAt time.Time) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelEnv:       envName,
		// UTC ensures consistency regardless of the host's timezone.
		LabelStartedAt: startedAt.UTC().Format(time.RFC3339),
	}
}

// ParseLabels reconstructs RunLabels from a container's label map.
// This is the inverse of BuildLabels and is used by `cadence clean` to
// describe leftover containers.
func ParseLabels(labels map[string]string) (*RunLabels, error) {
	var missing []string
	for _, key := range []string{LabelManagedBy, LabelEnv, LabelStartedAt} {
		if _, ok := labels[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required Docker labels: %s", strings.Join(missing, ", "))
	}

	if labels[LabelManagedBy] != ManagedByValue {
		return nil, fmt.Errorf(
			"label %s has unexpected value %q (expected %q)",
			LabelManagedBy, labels[LabelManagedBy], ManagedByValue,
		)
	}

	startedAt, err := time.Parse(time.RFC3339, labels[LabelStartedAt])
	if err != nil {
		return nil, fmt.Errorf("invalid label %s: %w", LabelStartedAt, err)
	}

	return &RunLabels{
		Env:       labels[LabelEnv],
		StartedAt: startedAt,
	}, nil
}
