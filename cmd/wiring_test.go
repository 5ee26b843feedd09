package cmd

import (
	"testing"
	"time"

	"github.com/conveyci/convey/deploy"
	"github.com/conveyci/convey/stages"
	"github.com/conveyci/convey/types"
)

func TestBuildStages_Defaults(t *testing.T) {
	cfg := &types.PipelineConfig{
		Pipeline:    "svc",
		Repository:  "registry.example.com/acme/svc",
		Environment: types.EnvironmentRef{Image: "docker:27-cli"},
	}
	specs, err := buildStages(cfg, &deploy.FakeDeployer{})
	if err != nil {
		t.Fatalf("buildStages: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("expected 3 default stages, got %d", len(specs))
	}
	if specs[0].Name != "build" || specs[1].Name != "publish" || specs[2].Name != "trigger" {
		t.Fatalf("unexpected stage order: %s %s %s", specs[0].Name, specs[1].Name, specs[2].Name)
	}
	if _, ok := specs[2].Action.(*stages.TriggerAction); !ok {
		t.Fatalf("expected TriggerAction, got %T", specs[2].Action)
	}
	if specs[1].Retry.MaxAttempts != 2 || specs[1].Retry.Backoff != 5*time.Second {
		t.Fatalf("unexpected publish retry policy: %+v", specs[1].Retry)
	}
	if len(specs[1].SecretScopes) != 2 {
		t.Fatalf("expected publish to declare registry scopes, got %v", specs[1].SecretScopes)
	}
	if len(specs[0].SecretScopes) != 0 {
		t.Fatalf("build must declare no secret scopes, got %v", specs[0].SecretScopes)
	}
}

func TestBuildStages_EnvironmentOverride(t *testing.T) {
	cfg := &types.PipelineConfig{
		Pipeline:    "svc",
		Repository:  "registry.example.com/acme/svc",
		Environment: types.EnvironmentRef{Image: "docker:27-cli"},
		Stages: []types.StageRef{
			{Name: "build", Action: "build"},
			{Name: "publish", Action: "publish", Environment: &types.EnvironmentRef{Image: "docker:26-cli", WorkDir: "/work"}},
		},
	}
	specs, err := buildStages(cfg, &deploy.FakeDeployer{})
	if err != nil {
		t.Fatalf("buildStages: %v", err)
	}
	if specs[0].Env.Image != "docker:27-cli" {
		t.Fatalf("expected shared image for build, got %s", specs[0].Env.Image)
	}
	if specs[1].Env.Image != "docker:26-cli" || specs[1].Env.WorkDir != "/work" {
		t.Fatalf("expected override for publish, got %+v", specs[1].Env)
	}
}

func TestBuildStages_BadDuration(t *testing.T) {
	cfg := &types.PipelineConfig{
		Pipeline:   "svc",
		Repository: "registry.example.com/acme/svc",
		Stages: []types.StageRef{
			{Name: "publish", Action: "publish", Retry: types.RetryRef{Backoff: "soon"}},
		},
	}
	if _, err := buildStages(cfg, &deploy.FakeDeployer{}); err == nil {
		t.Fatal("expected error for unparseable backoff")
	}
}

func TestBuildStages_UnknownAction(t *testing.T) {
	cfg := &types.PipelineConfig{
		Pipeline:   "svc",
		Repository: "registry.example.com/acme/svc",
		Stages:     []types.StageRef{{Name: "smoke", Action: "smoke-test"}},
	}
	if _, err := buildStages(cfg, &deploy.FakeDeployer{}); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestNewResolver(t *testing.T) {
	if _, err := newResolver(types.SecretsRef{Provider: "ssm", Prefix: "/convey/svc"}); err != nil {
		t.Fatalf("ssm resolver: %v", err)
	}
	if _, err := newResolver(types.SecretsRef{}); err != nil {
		t.Fatalf("default resolver: %v", err)
	}
	if _, err := newResolver(types.SecretsRef{Provider: "vault"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewDeployer(t *testing.T) {
	d, err := newDeployer("")
	if err != nil {
		t.Fatalf("default deployer: %v", err)
	}
	if d.Name() != "ecs" {
		t.Fatalf("expected ecs default, got %s", d.Name())
	}
	if _, err := newDeployer("helm"); err == nil {
		t.Fatal("expected error for unknown deploy kind")
	}
}
