package stages

import (
	"context"
	"fmt"

	"github.com/conveyci/convey/deploy"
	"github.com/conveyci/convey/pipeline"
	"github.com/conveyci/convey/sandbox"
)

// TriggerAction asks the deployment target to converge on the newest
// published artifact. The call only enqueues convergence; it does not wait
// for it. Its failure fails the run but already-published artifacts stay
// published — re-triggering is the recovery path.
type TriggerAction struct {
	Deployer deploy.Deployer
}

func (a *TriggerAction) Kind() string { return "trigger" }

func (a *TriggerAction) Run(ctx context.Context, rc *pipeline.RunContext, env *sandbox.Handle, creds map[string]string) error {
	if a.Deployer == nil {
		return fmt.Errorf("no deployer configured")
	}

	if err := a.Deployer.Trigger(ctx, rc.Target); err != nil {
		if _, ok := err.(*deploy.TriggerError); ok {
			return err
		}
		return &deploy.TriggerError{Target: rc.Target, Err: err}
	}
	return nil
}
