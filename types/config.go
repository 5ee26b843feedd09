// Package types holds configuration types for convey.yaml.
package types

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// PipelineConfig represents the top-level convey.yaml configuration.
type PipelineConfig struct {
	Pipeline    string         `yaml:"pipeline"`
	Repository  string         `yaml:"repository"`
	Registry    RegistryRef    `yaml:"registry,omitempty"`
	Build       BuildRef       `yaml:"build,omitempty"`
	Environment EnvironmentRef `yaml:"environment,omitempty"`
	Secrets     SecretsRef     `yaml:"secrets,omitempty"`
	Deploy      DeployRef      `yaml:"deploy,omitempty"`
	Stages      []StageRef     `yaml:"stages,omitempty"`
}

// RegistryRef configures the artifact registry the publish stage talks to.
type RegistryRef struct {
	URL string `yaml:"url,omitempty"`
}

// BuildRef configures the artifact build.
type BuildRef struct {
	Context    string            `yaml:"context,omitempty"`
	Dockerfile string            `yaml:"dockerfile,omitempty"`
	Args       map[string]string `yaml:"args,omitempty"`
}

// EnvironmentRef describes the default execution environment for stages.
type EnvironmentRef struct {
	Image      string     `yaml:"image,omitempty"`
	Mounts     []MountRef `yaml:"mounts,omitempty"`
	Entrypoint []string   `yaml:"entrypoint,omitempty"`
	WorkDir    string     `yaml:"workdir,omitempty"`
}

// MountRef requests a host path inside a stage environment. Mounting the
// host control socket is an explicit, per-config choice, never a default.
type MountRef struct {
	HostPath      string `yaml:"host_path"`
	ContainerPath string `yaml:"container_path"`
}

// SecretsRef selects the secret store.
type SecretsRef struct {
	Provider string `yaml:"provider,omitempty"` // ssm, env
	Region   string `yaml:"region,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// DeployRef identifies the deployment target.
type DeployRef struct {
	Kind    string `yaml:"kind,omitempty"` // ecs, kubectl
	Cluster string `yaml:"cluster,omitempty"`
	Service string `yaml:"service,omitempty"`
	Region  string `yaml:"region,omitempty"`
	// Track selects the reference the target consumes: latest or version.
	Track string `yaml:"track,omitempty"`
}

// StageRef declares one stage in convey.yaml.
type StageRef struct {
	Name        string          `yaml:"name"`
	Action      string          `yaml:"action"` // build, publish, trigger
	Secrets     []string        `yaml:"secrets,omitempty"`
	Environment *EnvironmentRef `yaml:"environment,omitempty"`
	Retry       RetryRef        `yaml:"retry,omitempty"`
}

// RetryRef bounds a stage's attempts. Durations use Go syntax ("5s", "10m").
type RetryRef struct {
	MaxAttempts int    `yaml:"max_attempts,omitempty"`
	Backoff     string `yaml:"backoff,omitempty"`
	Timeout     string `yaml:"timeout,omitempty"`
}

// DefaultStages is the canonical build -> publish -> trigger sequence used
// when convey.yaml declares no stages.
func DefaultStages() []StageRef {
	return []StageRef{
		{Name: "build", Action: "build"},
		{
			Name:    "publish",
			Action:  "publish",
			Secrets: []string{"registry_username", "registry_password"},
			Retry:   RetryRef{MaxAttempts: 2, Backoff: "5s"},
		},
		{Name: "trigger", Action: "trigger"},
	}
}

// ParsePipelineConfig parses raw YAML bytes into a PipelineConfig and
// validates required fields.
func ParsePipelineConfig(data []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing pipeline config: %w", err)
	}

	if cfg.Pipeline == "" {
		return nil, fmt.Errorf("pipeline config: pipeline is required")
	}
	if cfg.Repository == "" {
		return nil, fmt.Errorf("pipeline config: repository is required")
	}

	if cfg.Environment.Image == "" {
		cfg.Environment.Image = "docker:27-cli"
	}
	if len(cfg.Stages) == 0 {
		cfg.Stages = DefaultStages()
	}
	return &cfg, nil
}
