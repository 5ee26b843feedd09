package deploy

import (
	"context"
	"sync"
)

// FakeDeployer records triggers for tests and dry runs. Its end state is a
// generation counter per target: repeated triggers with no intervening
// publish land on the same generation source, mirroring the idempotence of
// real convergence requests.
type FakeDeployer struct {
	// Err, if set, fails every trigger.
	Err error

	mu       sync.Mutex
	calls    []Target
	deployed map[string]string
	pending  string
}

// NewFakeDeployer creates an empty FakeDeployer.
func NewFakeDeployer() *FakeDeployer {
	return &FakeDeployer{deployed: make(map[string]string)}
}

func (d *FakeDeployer) Name() string { return "fake" }

// SetPublished records the newest published artifact reference, as a real
// registry push would.
func (d *FakeDeployer) SetPublished(ref string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = ref
}

func (d *FakeDeployer) Trigger(ctx context.Context, target Target) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return &TriggerError{Target: target, Err: d.Err}
	}
	d.calls = append(d.calls, target)
	d.deployed[target.String()] = d.pending
	return nil
}

// Calls returns every recorded trigger in order.
func (d *FakeDeployer) Calls() []Target {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Target(nil), d.calls...)
}

// Deployed returns the artifact reference the target currently runs.
func (d *FakeDeployer) Deployed(target Target) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deployed[target.String()]
}
