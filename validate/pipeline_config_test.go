package validate

import (
	"testing"

	"github.com/conveyci/convey/types"
)

func validConfig() *types.PipelineConfig {
	return &types.PipelineConfig{
		Pipeline:   "checkout-service",
		Repository: "registry.example.com/acme/checkout",
		Secrets:    types.SecretsRef{Provider: "ssm", Region: "us-east-1", Prefix: "/convey/checkout"},
		Deploy:     types.DeployRef{Kind: "ecs", Cluster: "prod", Service: "checkout", Track: "latest"},
		Stages:     types.DefaultStages(),
	}
}

func TestValidatePipelineConfig_Valid(t *testing.T) {
	r := ValidatePipelineConfig(validConfig())
	if !r.IsValid() {
		t.Fatalf("expected valid, got errors: %v", r.Errors)
	}
	if len(r.Warnings) != 0 {
		t.Fatalf("expected no warnings, got: %v", r.Warnings)
	}
}

func TestValidatePipelineConfig_InvalidName(t *testing.T) {
	cfg := validConfig()
	cfg.Pipeline = "Checkout_Service!"
	r := ValidatePipelineConfig(cfg)
	if r.IsValid() {
		t.Fatal("expected invalid")
	}
	if len(r.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(r.Errors), r.Errors)
	}
}

func TestValidatePipelineConfig_EmptyRepository(t *testing.T) {
	cfg := validConfig()
	cfg.Repository = ""
	r := ValidatePipelineConfig(cfg)
	if r.IsValid() {
		t.Fatal("expected invalid")
	}
}

func TestValidatePipelineConfig_UnknownAction(t *testing.T) {
	cfg := validConfig()
	cfg.Stages = append(cfg.Stages, types.StageRef{Name: "smoke", Action: "smoke-test"})
	r := ValidatePipelineConfig(cfg)
	if r.IsValid() {
		t.Fatal("expected invalid")
	}
}

func TestValidatePipelineConfig_DuplicateStageName(t *testing.T) {
	cfg := validConfig()
	cfg.Stages = append(cfg.Stages, types.StageRef{Name: "build", Action: "build"})
	r := ValidatePipelineConfig(cfg)
	if r.IsValid() {
		t.Fatal("expected invalid")
	}
}

func TestValidatePipelineConfig_BadRetryDurations(t *testing.T) {
	cfg := validConfig()
	cfg.Stages[1].Retry.Backoff = "five seconds"
	cfg.Stages[1].Retry.Timeout = "10 min"
	r := ValidatePipelineConfig(cfg)
	if r.IsValid() {
		t.Fatal("expected invalid")
	}
	if len(r.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(r.Errors), r.Errors)
	}
}

func TestValidatePipelineConfig_UnknownSecretsProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Secrets.Provider = "vault"
	r := ValidatePipelineConfig(cfg)
	if r.IsValid() {
		t.Fatal("expected invalid")
	}
}

func TestValidatePipelineConfig_SSMNoRegionWarns(t *testing.T) {
	cfg := validConfig()
	cfg.Secrets.Region = ""
	r := ValidatePipelineConfig(cfg)
	if !r.IsValid() {
		t.Fatalf("expected valid, got errors: %v", r.Errors)
	}
	if len(r.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got: %v", r.Warnings)
	}
}

func TestValidatePipelineConfig_TriggerNeedsTarget(t *testing.T) {
	cfg := validConfig()
	cfg.Deploy.Cluster = ""
	cfg.Deploy.Service = ""
	r := ValidatePipelineConfig(cfg)
	if r.IsValid() {
		t.Fatal("expected invalid")
	}
	if len(r.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(r.Errors), r.Errors)
	}
}

func TestValidatePipelineConfig_DefaultStagesWhenEmpty(t *testing.T) {
	cfg := validConfig()
	cfg.Stages = nil
	r := ValidatePipelineConfig(cfg)
	if !r.IsValid() {
		t.Fatalf("expected valid with default stages, got errors: %v", r.Errors)
	}
}

func TestValidatePipelineConfig_UnknownDeployKind(t *testing.T) {
	cfg := validConfig()
	cfg.Deploy.Kind = "helm"
	r := ValidatePipelineConfig(cfg)
	if r.IsValid() {
		t.Fatal("expected invalid")
	}
}
