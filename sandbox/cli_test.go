package sandbox

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestGet_KnownRuntimes(t *testing.T) {
	for _, name := range []string{"docker", "podman"} {
		p := Get(name)
		if p == nil {
			t.Errorf("Get(%q) returned nil", name)
			continue
		}
		if p.Name() != name {
			t.Errorf("Get(%q).Name() = %q, want %q", name, p.Name(), name)
		}
	}
}

func TestGet_UnknownRuntime(t *testing.T) {
	if p := Get("buildah"); p != nil {
		t.Errorf("Get(\"buildah\") = %v, want nil", p)
	}
}

func TestAcquireArgs_IdleEntrypoint(t *testing.T) {
	spec := EnvSpec{
		Image:   "docker:27-cli",
		Mounts:  []Mount{{HostPath: "/var/run/docker.sock", ContainerPath: "/var/run/docker.sock"}},
		WorkDir: "/workspace",
	}

	args := acquireArgs(spec)
	got := strings.Join(args, " ")
	want := "run -d -v /var/run/docker.sock:/var/run/docker.sock -w /workspace --entrypoint sleep docker:27-cli infinity"
	if got != want {
		t.Errorf("acquireArgs() = %q, want %q", got, want)
	}
}

func TestAcquireArgs_EntrypointOverride(t *testing.T) {
	spec := EnvSpec{
		Image:      "alpine:3.20",
		Entrypoint: []string{"tail", "-f", "/dev/null"},
	}

	args := acquireArgs(spec)
	got := strings.Join(args, " ")
	want := "run -d --entrypoint tail alpine:3.20 -f /dev/null"
	if got != want {
		t.Errorf("acquireArgs() = %q, want %q", got, want)
	}
}

func TestExecArgs_EnvBeforeContainer(t *testing.T) {
	args := execArgs("abc123", map[string]string{"REGISTRY_PASSWORD": "hunter2"}, []string{"sh", "-c", "docker push x"})

	got := strings.Join(args, " ")
	if !strings.HasPrefix(got, "exec -e REGISTRY_PASSWORD=hunter2 abc123 ") {
		t.Errorf("execArgs() = %q, want env flag before container id", got)
	}
	if !strings.HasSuffix(got, "sh -c docker push x") {
		t.Errorf("execArgs() = %q, want argv last", got)
	}
}

func TestCLIProvisioner_AcquireRequiresImage(t *testing.T) {
	p := NewCLIProvisioner("docker")
	_, err := p.Acquire(context.Background(), EnvSpec{})
	if err == nil {
		t.Fatal("Acquire() with empty image: expected error")
	}
	var pe *ProvisionError
	if !errors.As(err, &pe) {
		t.Errorf("Acquire() error = %T, want *ProvisionError", err)
	}
}

func TestCLIProvisioner_ReleaseNilHandle(t *testing.T) {
	p := NewCLIProvisioner("docker")
	if err := p.Release(context.Background(), nil); err != nil {
		t.Errorf("Release(nil) = %v, want nil", err)
	}
}

func TestLastLine(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"single line", "abc123\n", "abc123"},
		{"pull then id", "Unable to find image locally\npulling...\nabc123", "abc123"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lastLine(tt.output); got != tt.want {
				t.Errorf("lastLine() = %q, want %q", got, tt.want)
			}
		})
	}
}
