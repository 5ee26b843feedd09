package validate

import (
	"fmt"
	"regexp"
	"time"

	"github.com/conveyci/convey/types"
)

var (
	namePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

	knownActions         = map[string]bool{"build": true, "publish": true, "trigger": true}
	knownSecretProviders = map[string]bool{"ssm": true, "env": true}
	knownDeployKinds     = map[string]bool{"ecs": true, "kubectl": true}
	knownDeployTracks    = map[string]bool{"latest": true, "version": true}
)

// ValidationResult holds errors and warnings from config validation.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// ValidatePipelineConfig checks a PipelineConfig for errors and warnings
// beyond what the JSON schema can express.
func ValidatePipelineConfig(cfg *types.PipelineConfig) *ValidationResult {
	r := &ValidationResult{}

	if cfg.Pipeline == "" {
		r.Errors = append(r.Errors, "pipeline is required")
	} else if !namePattern.MatchString(cfg.Pipeline) {
		r.Errors = append(r.Errors, fmt.Sprintf("pipeline %q must match ^[a-z0-9]([a-z0-9-]*[a-z0-9])?$", cfg.Pipeline))
	}

	if cfg.Repository == "" {
		r.Errors = append(r.Errors, "repository is required")
	}

	if p := cfg.Secrets.Provider; p != "" && !knownSecretProviders[p] {
		r.Errors = append(r.Errors, fmt.Sprintf("secrets.provider %q must be one of: ssm, env", p))
	}
	if cfg.Secrets.Provider == "ssm" && cfg.Secrets.Region == "" {
		r.Warnings = append(r.Warnings, "secrets.provider is ssm but secrets.region is empty; the ambient AWS region will be used")
	}

	if k := cfg.Deploy.Kind; k != "" && !knownDeployKinds[k] {
		r.Errors = append(r.Errors, fmt.Sprintf("deploy.kind %q must be one of: ecs, kubectl", k))
	}
	if t := cfg.Deploy.Track; t != "" && !knownDeployTracks[t] {
		r.Errors = append(r.Errors, fmt.Sprintf("deploy.track %q must be one of: latest, version", t))
	}

	stages := cfg.Stages
	if len(stages) == 0 {
		stages = types.DefaultStages()
	}

	seen := map[string]bool{}
	hasTrigger := false
	for i, s := range stages {
		if s.Name == "" {
			r.Errors = append(r.Errors, fmt.Sprintf("stages[%d]: name is required", i))
		} else if !namePattern.MatchString(s.Name) {
			r.Errors = append(r.Errors, fmt.Sprintf("stages[%d]: name %q must match ^[a-z0-9]([a-z0-9-]*[a-z0-9])?$", i, s.Name))
		} else if seen[s.Name] {
			r.Errors = append(r.Errors, fmt.Sprintf("stages[%d]: duplicate stage name %q", i, s.Name))
		}
		seen[s.Name] = true

		if s.Action == "" {
			r.Errors = append(r.Errors, fmt.Sprintf("stages[%d]: action is required", i))
		} else if !knownActions[s.Action] {
			r.Errors = append(r.Errors, fmt.Sprintf("stages[%d]: unknown action %q (known: build, publish, trigger)", i, s.Action))
		}
		if s.Action == "trigger" {
			hasTrigger = true
		}

		if s.Retry.MaxAttempts < 0 {
			r.Errors = append(r.Errors, fmt.Sprintf("stages[%d]: retry.max_attempts must not be negative", i))
		}
		if s.Retry.Backoff != "" {
			if _, err := time.ParseDuration(s.Retry.Backoff); err != nil {
				r.Errors = append(r.Errors, fmt.Sprintf("stages[%d]: retry.backoff %q is not a valid duration", i, s.Retry.Backoff))
			}
		}
		if s.Retry.Timeout != "" {
			if _, err := time.ParseDuration(s.Retry.Timeout); err != nil {
				r.Errors = append(r.Errors, fmt.Sprintf("stages[%d]: retry.timeout %q is not a valid duration", i, s.Retry.Timeout))
			}
		}
	}

	if hasTrigger {
		if cfg.Deploy.Cluster == "" {
			r.Errors = append(r.Errors, "deploy.cluster is required for trigger stages")
		}
		if cfg.Deploy.Service == "" {
			r.Errors = append(r.Errors, "deploy.service is required for trigger stages")
		}
	}

	return r
}
