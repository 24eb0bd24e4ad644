// container.go implements container execution and cleanup for cadence.
//
// Environment commands run via the `docker run` CLI rather than the SDK's
// ContainerCreate + ContainerStart workflow: the CLI propagates the
// container's exit code and streams output with no extra plumbing, which
// is exactly what a command runner needs. Discovery and removal of
// leftover containers use the SDK, where label filtering happens
// server-side.
package docker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	// Docker API types for container listing results.
	"github.com/docker/docker/api/types"

	// container package provides ListOptions and RemoveOptions.
	"github.com/docker/docker/api/types/container"

	// filters package provides Args for building Docker API query filters.
	"github.com/docker/docker/api/types/filters"

	"github.com/mmr-tortoise/cadence/internal/model"
	"github.com/mmr-tortoise/cadence/internal/runner"
)

// LeftoverContainer describes a cadence-labeled container found on the
// host. Containers normally remove themselves (`docker run --rm`), so
// anything listed here survived an interrupted run.
type LeftoverContainer struct {
	// ID is the Docker container identifier.
	ID string `json:"id"`

	// Name is the container name without the API's leading "/".
	Name string `json:"name"`

	// Env is the cadence environment the container ran for.
	Env string `json:"env"`

	// State is the Docker container state (e.g., "exited", "running").
	State string `json:"state"`

	// StartedAt is when cadence started the container.
	StartedAt time.Time `json:"startedAt"`
}

// ListLeftoverContainers queries the Docker daemon for all containers with
// the "cadence.managed-by=cadence" label, including stopped ones.
//
// Filtering happens server-side via the Docker API, which is more
// efficient than listing everything and filtering in Go.
func ListLeftoverContainers(ctx context.Context, cli *Client) ([]LeftoverContainer, error) {
	filterArgs := filters.NewArgs(
		filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
	)

	// The All flag ensures we also get exited containers, which is the
	// common case for leftovers.
	containers, err := cli.Inner().ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	result := make([]LeftoverContainer, 0, len(containers))
	for _, c := range containers {
		result = append(result, containerToLeftover(c))
	}
	return result, nil
}

// containerToLeftover converts a Docker API container struct into the
// domain representation. Pure mapping, no side effects.
func containerToLeftover(c types.Container) LeftoverContainer {
	// Docker returns names as a slice with a leading "/" that we strip
	// because it's an artifact of the API, not meaningful to users.
	name := ""
	if len(c.Names) > 0 {
		name = c.Names[0]
		if len(name) > 0 && name[0] == '/' {
			name = name[1:]
		}
	}

	leftover := LeftoverContainer{
		ID:    c.ID,
		Name:  name,
		State: c.State,
	}

	// Labels may be incomplete on containers from older cadence versions;
	// list what we can rather than failing the whole cleanup.
	if parsed, err := ParseLabels(c.Labels); err == nil {
		leftover.Env = parsed.Env
		leftover.StartedAt = parsed.StartedAt
	} else {
		leftover.Env = c.Labels[LabelEnv]
	}

	return leftover
}

// RemoveContainer removes a container by its ID using the Docker SDK.
// The container must be stopped first unless force is true, in which case
// Docker kills it (SIGKILL) before removal.
func RemoveContainer(ctx context.Context, cli *Client, containerID string, force bool) error {
	err := cli.Inner().ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force: force,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to remove container %q", containerID),
			err,
		)
	}
	return nil
}

// containerWorkdir is where the project directory is mounted inside
// environment containers.
const containerWorkdir = "/workspace"

// ContainerExecutor runs environment commands inside ephemeral, labeled
// containers. Each command gets a fresh container (`docker run --rm`)
// with the project directory mounted at /workspace — the isolated,
// ephemeral execution model of a CI job.
//
// It implements runner.Executor so the runner doesn't know or care
// whether commands run locally or in a container.
type ContainerExecutor struct {
	// Image is the container image to run commands in.
	Image string

	// EnvName is the cadence environment name, recorded in labels.
	EnvName string
}

// NewContainerExecutor creates a ContainerExecutor for the given image and
// environment name.
func NewContainerExecutor(image, envName string) *ContainerExecutor {
	return &ContainerExecutor{Image: image, EnvName: envName}
}

// Run executes one command line inside a fresh container.
//
// Only the spec's explicit Env entries are passed into the container —
// inheriting the host's full environment would leak host-specific paths
// and credentials into what is supposed to be an isolated run.
//
// `docker run` propagates the container command's exit code as its own,
// so exit code handling matches the local executor exactly.
func (e *ContainerExecutor) Run(ctx context.Context, spec runner.CommandSpec) (int, error) {
	args := []string{
		"run", "--rm",
		"-v", spec.Dir + ":" + containerWorkdir,
		"-w", containerWorkdir,
	}

	for key, value := range BuildLabels(e.EnvName, time.Now()) {
		args = append(args, "--label", key+"="+value)
	}
	for _, kv := range spec.Env {
		args = append(args, "-e", kv)
	}

	args = append(args, e.Image, "sh", "-c", spec.Line)

	// #nosec G204 — image and command line come from the project's own
	// configuration file.
	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), err
		}
		return -1, err
	}

	return 0, nil
}
