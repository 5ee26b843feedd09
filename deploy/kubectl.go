package deploy

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// KubectlDeployer restarts a Kubernetes deployment via kubectl. The target
// cluster maps to a kubeconfig context. A rollout restart re-pulls the
// image reference the deployment is configured with, so repeated restarts
// without a new push converge to the same state.
type KubectlDeployer struct{}

func (d *KubectlDeployer) Name() string { return "kubectl" }

func (d *KubectlDeployer) Trigger(ctx context.Context, target Target) error {
	args := triggerArgsKubectl(target)
	cmd := exec.CommandContext(ctx, "kubectl", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &TriggerError{Target: target, Err: fmt.Errorf("%s: %w", strings.TrimSpace(stderr.String()), err)}
	}
	return nil
}

func triggerArgsKubectl(target Target) []string {
	args := []string{}
	if target.Cluster != "" {
		args = append(args, "--context", target.Cluster)
	}
	args = append(args, "rollout", "restart", "deployment/"+target.Service)
	return args
}
