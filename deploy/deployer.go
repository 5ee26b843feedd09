// Package deploy triggers deployment convergence against an external
// target. Triggering is idempotent and asynchronous: a trigger enqueues a
// rollout of the newest published artifact and returns without waiting for
// convergence.
package deploy

import (
	"context"
	"fmt"
)

// Target identifies the service a run deploys to. Static for the lifetime
// of a run.
type Target struct {
	Cluster string
	Service string
	Region  string
}

func (t Target) String() string {
	if t.Region != "" {
		return fmt.Sprintf("%s/%s (%s)", t.Cluster, t.Service, t.Region)
	}
	return fmt.Sprintf("%s/%s", t.Cluster, t.Service)
}

// Deployer requests that a target replace its running instances with the
// newest artifact matching its configured repository. Repeated triggers
// with no new artifact converge to the same end state.
type Deployer interface {
	Name() string
	Trigger(ctx context.Context, target Target) error
}

// Get returns a deployer by kind, or nil if the kind is unknown.
func Get(kind string) Deployer {
	switch kind {
	case "ecs":
		return &ECSDeployer{}
	case "kubectl":
		return &KubectlDeployer{}
	default:
		return nil
	}
}

// TriggerError reports that a deployment trigger was rejected. Already
// published artifacts stay published; re-triggering is the recovery path.
type TriggerError struct {
	Target Target
	Err    error
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("triggering deployment of %s: %v", e.Target, e.Err)
}

func (e *TriggerError) Unwrap() error { return e.Err }

// Transient marks trigger failures (authorization, unknown target) as
// non-retryable within a run.
func (e *TriggerError) Transient() bool { return false }
