package stages

import (
	"context"
	"fmt"

	"github.com/conveyci/convey/pipeline"
	"github.com/conveyci/convey/sandbox"
)

// Credential scope names the publish stage reads.
const (
	RegistryUsernameScope = "registry_username"
	RegistryPasswordScope = "registry_password"
)

// PublishError reports a failed registry push. Pushes fail for transient
// reasons (network, registry hiccups) far more often than builds do, so
// they are retry-eligible under the stage's policy.
type PublishError struct {
	Ref string
	Err error
}

func (e *PublishError) Error() string   { return fmt.Sprintf("publishing %s: %v", e.Ref, e.Err) }
func (e *PublishError) Unwrap() error   { return e.Err }
func (e *PublishError) Transient() bool { return true }

// PublishAction pushes the run's artifact under its version tag and under
// latest. The version tag is the traceability/rollback reference; latest is
// a convenience pointer with no durability guarantee.
type PublishAction struct{}

func (a *PublishAction) Kind() string { return "publish" }

func (a *PublishAction) Run(ctx context.Context, rc *pipeline.RunContext, env *sandbox.Handle, creds map[string]string) error {
	artifact := rc.Artifact()
	if artifact == nil {
		return fmt.Errorf("no artifact to publish; the build stage must run first")
	}

	if err := a.login(ctx, rc, env, creds); err != nil {
		return err
	}

	versionRef := artifact.VersionRef()
	latestRef := artifact.LatestRef()

	if out, err := env.Exec(ctx, nil, "docker", "push", versionRef); err != nil {
		return &PublishError{Ref: versionRef, Err: fmt.Errorf("%s: %w", lastNonEmptyLine(out), err)}
	}

	if out, err := env.Exec(ctx, nil, "docker", "tag", versionRef, latestRef); err != nil {
		return &PublishError{Ref: latestRef, Err: fmt.Errorf("%s: %w", lastNonEmptyLine(out), err)}
	}
	if out, err := env.Exec(ctx, nil, "docker", "push", latestRef); err != nil {
		return &PublishError{Ref: latestRef, Err: fmt.Errorf("%s: %w", lastNonEmptyLine(out), err)}
	}

	return nil
}

// login authenticates against the registry when credentials were resolved
// for this stage. The password travels through the exec's environment and
// stdin redirection, never through argv.
func (a *PublishAction) login(ctx context.Context, rc *pipeline.RunContext, env *sandbox.Handle, creds map[string]string) error {
	username, hasUser := creds[RegistryUsernameScope]
	password, hasPass := creds[RegistryPasswordScope]
	if !hasUser && !hasPass {
		return nil
	}
	if !hasUser || !hasPass {
		return fmt.Errorf("registry credentials incomplete: need both %s and %s", RegistryUsernameScope, RegistryPasswordScope)
	}

	execEnv := map[string]string{
		"REGISTRY_USERNAME": username,
		"REGISTRY_PASSWORD": password,
	}
	script := `printf '%s' "$REGISTRY_PASSWORD" | docker login --username "$REGISTRY_USERNAME" --password-stdin`
	if rc.RegistryURL != "" {
		script += " " + rc.RegistryURL
	}

	if out, err := env.Exec(ctx, execEnv, "sh", "-c", script); err != nil {
		return &PublishError{Ref: rc.RegistryURL, Err: fmt.Errorf("registry login: %s: %w", lastNonEmptyLine(out), err)}
	}
	return nil
}
