package sandbox

import (
	"context"
	"fmt"
	"sync"
)

// FakeCall records one provisioner or exec invocation for assertions.
type FakeCall struct {
	Op       string // "acquire", "release", "exec"
	HandleID string
	Image    string
	Env      map[string]string
	Argv     []string
}

// FakeProvisioner is an in-memory Provisioner for tests and dry runs. It
// records every acquire, release, and exec, and can be scripted to fail.
type FakeProvisioner struct {
	mu    sync.Mutex
	calls []FakeCall
	open  map[string]bool
	seq   int

	// AcquireErr, if set, fails every Acquire.
	AcquireErr error
	// ExecHook, if set, intercepts environment execs.
	ExecHook func(env map[string]string, argv []string) (string, error)
}

// NewFakeProvisioner creates an empty FakeProvisioner.
func NewFakeProvisioner() *FakeProvisioner {
	return &FakeProvisioner{open: make(map[string]bool)}
}

func (f *FakeProvisioner) Name() string { return "fake" }

func (f *FakeProvisioner) Acquire(ctx context.Context, spec EnvSpec) (*Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.AcquireErr != nil {
		return nil, &ProvisionError{Image: spec.Image, Err: f.AcquireErr}
	}
	for id, isOpen := range f.open {
		if isOpen {
			return nil, &ProvisionError{Image: spec.Image, Err: fmt.Errorf("environment %s still open", id)}
		}
	}

	f.seq++
	containerID := fmt.Sprintf("fake-%d", f.seq)
	h := NewHandle(containerID, f.execIn(containerID))
	f.open[h.ID] = true
	f.calls = append(f.calls, FakeCall{Op: "acquire", HandleID: h.ID, Image: spec.Image})
	return h, nil
}

func (f *FakeProvisioner) Release(ctx context.Context, h *Handle) error {
	if h == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open[h.ID] = false
	f.calls = append(f.calls, FakeCall{Op: "release", HandleID: h.ID})
	return nil
}

func (f *FakeProvisioner) execIn(containerID string) ExecFunc {
	return func(ctx context.Context, env map[string]string, argv ...string) (string, error) {
		f.mu.Lock()
		f.calls = append(f.calls, FakeCall{Op: "exec", HandleID: containerID, Env: cloneEnv(env), Argv: append([]string(nil), argv...)})
		hook := f.ExecHook
		f.mu.Unlock()
		if hook != nil {
			return hook(env, argv)
		}
		return "", nil
	}
}

// Calls returns a copy of the recorded calls in order.
func (f *FakeProvisioner) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}

// OpenCount returns the number of environments acquired but not released.
func (f *FakeProvisioner) OpenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, isOpen := range f.open {
		if isOpen {
			n++
		}
	}
	return n
}

func cloneEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}
