package deploy

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ECSDeployer triggers a forced new deployment of an ECS service via the
// aws CLI. ECS pulls the newest image matching the task definition's
// repository reference, so calling this repeatedly without a new push is a
// no-op with respect to end state.
type ECSDeployer struct{}

func (d *ECSDeployer) Name() string { return "ecs" }

func (d *ECSDeployer) Trigger(ctx context.Context, target Target) error {
	args := triggerArgsECS(target)
	cmd := exec.CommandContext(ctx, "aws", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &TriggerError{Target: target, Err: fmt.Errorf("%s: %w", strings.TrimSpace(stderr.String()), err)}
	}
	return nil
}

func triggerArgsECS(target Target) []string {
	args := []string{
		"ecs", "update-service",
		"--cluster", target.Cluster,
		"--service", target.Service,
		"--force-new-deployment",
	}
	if target.Region != "" {
		args = append(args, "--region", target.Region)
	}
	return args
}
