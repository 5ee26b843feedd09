package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CLIProvisioner drives a container runtime CLI (docker or podman) to
// create and destroy stage environments.
type CLIProvisioner struct {
	bin string
}

// NewCLIProvisioner creates a provisioner backed by the given runtime binary.
func NewCLIProvisioner(bin string) *CLIProvisioner {
	return &CLIProvisioner{bin: bin}
}

func (p *CLIProvisioner) Name() string { return p.bin }

// Available reports whether the runtime is installed and responding.
func (p *CLIProvisioner) Available() bool {
	return exec.Command(p.bin, "info").Run() == nil
}

// Detect returns the first available runtime in order: docker, podman.
// Returns nil if none is available.
func Detect() *CLIProvisioner {
	for _, bin := range []string{"docker", "podman"} {
		p := NewCLIProvisioner(bin)
		if p.Available() {
			return p
		}
	}
	return nil
}

// Get returns a provisioner by runtime name, or nil if the name is unknown.
func Get(name string) *CLIProvisioner {
	switch name {
	case "docker", "podman":
		return NewCLIProvisioner(name)
	default:
		return nil
	}
}

// Acquire starts a detached container for the stage. With no entrypoint
// override the container idles on sleep so the stage can exec into it.
func (p *CLIProvisioner) Acquire(ctx context.Context, spec EnvSpec) (*Handle, error) {
	if spec.Image == "" {
		return nil, &ProvisionError{Image: spec.Image, Err: fmt.Errorf("environment image is required")}
	}

	args := acquireArgs(spec)
	cmd := exec.CommandContext(ctx, p.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, &ProvisionError{Image: spec.Image, Err: fmt.Errorf("%s run failed: %s: %w", p.bin, strings.TrimSpace(stderr.String()), err)}
	}

	containerID := lastLine(string(out))
	if containerID == "" {
		return nil, &ProvisionError{Image: spec.Image, Err: fmt.Errorf("%s run produced no container id", p.bin)}
	}

	return NewHandle(containerID, p.execIn(containerID)), nil
}

// Release removes the container. A container that is already gone counts
// as released.
func (p *CLIProvisioner) Release(ctx context.Context, h *Handle) error {
	if h == nil || h.ContainerID == "" {
		return nil
	}
	cmd := exec.CommandContext(ctx, p.bin, "rm", "-f", h.ContainerID)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if strings.Contains(msg, "No such container") || strings.Contains(msg, "no container with name or ID") {
			return nil
		}
		return fmt.Errorf("%s rm failed: %s: %w", p.bin, strings.TrimSpace(msg), err)
	}
	return nil
}

func (p *CLIProvisioner) execIn(containerID string) ExecFunc {
	return func(ctx context.Context, env map[string]string, argv ...string) (string, error) {
		args := execArgs(containerID, env, argv)
		cmd := exec.CommandContext(ctx, p.bin, args...)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return string(out), fmt.Errorf("%s exec failed: %w", p.bin, err)
		}
		return string(out), nil
	}
}

// acquireArgs builds the run arguments for an environment spec.
func acquireArgs(spec EnvSpec) []string {
	args := []string{"run", "-d"}
	for _, m := range spec.Mounts {
		args = append(args, "-v", fmt.Sprintf("%s:%s", m.HostPath, m.ContainerPath))
	}
	if spec.WorkDir != "" {
		args = append(args, "-w", spec.WorkDir)
	}
	if len(spec.Entrypoint) > 0 {
		args = append(args, "--entrypoint", spec.Entrypoint[0])
		args = append(args, spec.Image)
		args = append(args, spec.Entrypoint[1:]...)
	} else {
		// Idle entrypoint: the stage drives the container via exec.
		args = append(args, "--entrypoint", "sleep")
		args = append(args, spec.Image, "infinity")
	}
	return args
}

// execArgs builds the exec arguments for a command inside a container.
func execArgs(containerID string, env map[string]string, argv []string) []string {
	args := []string{"exec"}
	for k, v := range env {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, v))
	}
	args = append(args, containerID)
	args = append(args, argv...)
	return args
}

func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
