package sandbox

import (
	"context"
	"testing"
)

func TestFakeProvisioner_AcquireReleaseBalance(t *testing.T) {
	f := NewFakeProvisioner()
	ctx := context.Background()

	h, err := f.Acquire(ctx, EnvSpec{Image: "alpine"})
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if f.OpenCount() != 1 {
		t.Errorf("OpenCount() = %d, want 1", f.OpenCount())
	}

	if err := f.Release(ctx, h); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if f.OpenCount() != 0 {
		t.Errorf("OpenCount() after release = %d, want 0", f.OpenCount())
	}

	// Release is idempotent.
	if err := f.Release(ctx, h); err != nil {
		t.Errorf("second Release() = %v, want nil", err)
	}
}

func TestFakeProvisioner_RejectsOverlappingEnvironments(t *testing.T) {
	f := NewFakeProvisioner()
	ctx := context.Background()

	if _, err := f.Acquire(ctx, EnvSpec{Image: "alpine"}); err != nil {
		t.Fatalf("first Acquire() error: %v", err)
	}
	if _, err := f.Acquire(ctx, EnvSpec{Image: "alpine"}); err == nil {
		t.Error("second Acquire() with open environment: expected error")
	}
}

func TestFakeProvisioner_ExecRecordsAndHooks(t *testing.T) {
	f := NewFakeProvisioner()
	f.ExecHook = func(env map[string]string, argv []string) (string, error) {
		return "sha256:abc", nil
	}
	ctx := context.Background()

	h, err := f.Acquire(ctx, EnvSpec{Image: "alpine"})
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}

	out, err := h.Exec(ctx, map[string]string{"K": "v"}, "docker", "build", ".")
	if err != nil {
		t.Fatalf("Exec() error: %v", err)
	}
	if out != "sha256:abc" {
		t.Errorf("Exec() = %q, want %q", out, "sha256:abc")
	}

	calls := f.Calls()
	var execs int
	for _, c := range calls {
		if c.Op == "exec" {
			execs++
			if c.Env["K"] != "v" {
				t.Errorf("exec env = %v, want K=v", c.Env)
			}
			if len(c.Argv) != 3 || c.Argv[0] != "docker" {
				t.Errorf("exec argv = %v", c.Argv)
			}
		}
	}
	if execs != 1 {
		t.Errorf("recorded %d execs, want 1", execs)
	}
}
