// Package sandbox provides ephemeral, isolated execution environments for
// pipeline stages via docker or podman.
package sandbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Mount requests a host path be mounted into the environment.
type Mount struct {
	HostPath      string
	ContainerPath string
}

// EnvSpec describes the environment a stage runs in.
type EnvSpec struct {
	Image      string
	Mounts     []Mount
	Entrypoint []string
	WorkDir    string
}

// ExecFunc runs a command inside an environment, with extra environment
// variables applied to that command only, and returns combined output.
type ExecFunc func(ctx context.Context, env map[string]string, argv ...string) (string, error)

// Handle identifies one acquired environment. It is bound to exactly one
// stage execution and must be released exactly once.
type Handle struct {
	ID          string
	ContainerID string
	exec        ExecFunc
}

// NewHandle creates a Handle with a fresh ID. exec may be nil for handles
// that never execute commands.
func NewHandle(containerID string, exec ExecFunc) *Handle {
	return &Handle{
		ID:          uuid.NewString(),
		ContainerID: containerID,
		exec:        exec,
	}
}

// Exec runs argv inside the environment. Secret values travel only through
// the per-exec env map, never through argv or the container's configuration.
func (h *Handle) Exec(ctx context.Context, env map[string]string, argv ...string) (string, error) {
	if h.exec == nil {
		return "", fmt.Errorf("environment %s does not support exec", h.ID)
	}
	return h.exec(ctx, env, argv...)
}

// Provisioner creates and tears down isolated stage environments.
type Provisioner interface {
	Name() string
	// Acquire creates an environment matching spec. Every handle returned
	// must be matched by exactly one Release.
	Acquire(ctx context.Context, spec EnvSpec) (*Handle, error)
	// Release tears the environment down. It is idempotent and succeeds
	// even if the environment's process already exited abnormally.
	Release(ctx context.Context, h *Handle) error
}

// ProvisionError reports that an environment could not be created.
type ProvisionError struct {
	Image string
	Err   error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provisioning environment from %s: %v", e.Image, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// Transient reports whether the error is worth retrying. Provisioning
// failures are treated as fatal for the stage.
func (e *ProvisionError) Transient() bool { return false }
