package types

import (
	"strings"
	"testing"
)

const sampleYAML = `
pipeline: payments-api
repository: registry.example.com/acme/payments-api
registry:
  url: registry.example.com
build:
  context: .
  dockerfile: Dockerfile
environment:
  image: docker:27-cli
  mounts:
    - host_path: /var/run/docker.sock
      container_path: /var/run/docker.sock
secrets:
  provider: ssm
  region: us-east-1
  prefix: /convey/payments
deploy:
  kind: ecs
  cluster: prod
  service: payments-api
  region: us-east-1
  track: latest
stages:
  - name: build
    action: build
  - name: publish
    action: publish
    secrets: [registry_username, registry_password]
    retry:
      max_attempts: 2
      backoff: 5s
      timeout: 10m
  - name: trigger
    action: trigger
`

func TestParsePipelineConfig(t *testing.T) {
	cfg, err := ParsePipelineConfig([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("ParsePipelineConfig() error: %v", err)
	}

	if cfg.Pipeline != "payments-api" {
		t.Errorf("Pipeline = %q", cfg.Pipeline)
	}
	if cfg.Deploy.Kind != "ecs" || cfg.Deploy.Cluster != "prod" {
		t.Errorf("Deploy = %+v", cfg.Deploy)
	}
	if len(cfg.Environment.Mounts) != 1 || cfg.Environment.Mounts[0].HostPath != "/var/run/docker.sock" {
		t.Errorf("Mounts = %+v", cfg.Environment.Mounts)
	}
	if len(cfg.Stages) != 3 {
		t.Fatalf("Stages = %d, want 3", len(cfg.Stages))
	}
	if cfg.Stages[1].Retry.MaxAttempts != 2 || cfg.Stages[1].Retry.Backoff != "5s" {
		t.Errorf("publish retry = %+v", cfg.Stages[1].Retry)
	}
}

func TestParsePipelineConfig_Defaults(t *testing.T) {
	cfg, err := ParsePipelineConfig([]byte("pipeline: x\nrepository: acme/x\n"))
	if err != nil {
		t.Fatalf("ParsePipelineConfig() error: %v", err)
	}
	if cfg.Environment.Image != "docker:27-cli" {
		t.Errorf("default image = %q", cfg.Environment.Image)
	}
	if len(cfg.Stages) != 3 || cfg.Stages[0].Action != "build" || cfg.Stages[2].Action != "trigger" {
		t.Errorf("default stages = %+v", cfg.Stages)
	}
}

func TestParsePipelineConfig_RequiredFields(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing pipeline", "repository: acme/x\n", "pipeline is required"},
		{"missing repository", "pipeline: x\n", "repository is required"},
		{"bad yaml", "pipeline: [\n", "parsing pipeline config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePipelineConfig([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}
