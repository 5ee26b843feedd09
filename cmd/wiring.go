package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/conveyci/convey/deploy"
	"github.com/conveyci/convey/journal"
	"github.com/conveyci/convey/observe"
	"github.com/conveyci/convey/pipeline"
	"github.com/conveyci/convey/sandbox"
	"github.com/conveyci/convey/secrets"
	"github.com/conveyci/convey/stages"
	"github.com/conveyci/convey/types"
)

// runtimeParts holds everything a run needs beyond its own inputs: the
// collaborators assembled from config plus the shared redactor.
type runtimeParts struct {
	cfg         *types.PipelineConfig
	cfgDir      string
	journal     *journal.Journal
	provisioner sandbox.Provisioner
	resolver    secrets.Resolver
	deployer    deploy.Deployer
	redactor    *observe.Redactor
	logger      observe.Logger
}

func resolveConfigPath() (string, error) {
	cfgPath := cfgFile
	if !filepath.IsAbs(cfgPath) {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
		cfgPath = filepath.Join(wd, cfgPath)
	}
	return cfgPath, nil
}

// assembleRuntime builds the shared collaborators from config. runtimeName
// selects the container runtime; empty or "auto" detects one.
func assembleRuntime(cfg *types.PipelineConfig, cfgDir, runtimeName string) (*runtimeParts, error) {
	prov, err := newProvisioner(runtimeName)
	if err != nil {
		return nil, err
	}

	resolver, err := newResolver(cfg.Secrets)
	if err != nil {
		return nil, err
	}

	deployer, err := newDeployer(cfg.Deploy.Kind)
	if err != nil {
		return nil, err
	}

	dir := stateDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(cfgDir, dir)
	}
	jr, err := journal.Open(dir)
	if err != nil {
		return nil, err
	}

	redactor := observe.NewRedactor()
	logger := observe.NewRedactingLogger(observe.NewJSONLogger(os.Stderr, verbose), redactor)

	return &runtimeParts{
		cfg:         cfg,
		cfgDir:      cfgDir,
		journal:     jr,
		provisioner: prov,
		resolver:    resolver,
		deployer:    deployer,
		redactor:    redactor,
		logger:      logger,
	}, nil
}

func newProvisioner(name string) (sandbox.Provisioner, error) {
	if name == "" || name == "auto" {
		p := sandbox.Detect()
		if p == nil {
			return nil, fmt.Errorf("no container runtime found (tried docker, podman)")
		}
		return p, nil
	}
	p := sandbox.Get(name)
	if p == nil {
		return nil, fmt.Errorf("unknown container runtime %q (known: docker, podman)", name)
	}
	return p, nil
}

func newResolver(ref types.SecretsRef) (secrets.Resolver, error) {
	switch ref.Provider {
	case "ssm":
		return secrets.NewParameterStoreResolver(ref.Prefix, ref.Region), nil
	case "env", "":
		return secrets.NewEnvResolver(), nil
	default:
		return nil, fmt.Errorf("unknown secrets provider %q (known: ssm, env)", ref.Provider)
	}
}

func newDeployer(kind string) (deploy.Deployer, error) {
	if kind == "" {
		kind = "ecs"
	}
	d := deploy.Get(kind)
	if d == nil {
		return nil, fmt.Errorf("unknown deploy kind %q (known: ecs, kubectl)", kind)
	}
	return d, nil
}

// buildStages translates the config's stage list into executable specs.
func buildStages(cfg *types.PipelineConfig, deployer deploy.Deployer) ([]pipeline.StageSpec, error) {
	refs := cfg.Stages
	if len(refs) == 0 {
		refs = types.DefaultStages()
	}

	specs := make([]pipeline.StageSpec, 0, len(refs))
	for _, ref := range refs {
		var action pipeline.Action
		switch ref.Action {
		case "build":
			action = &stages.BuildAction{}
		case "publish":
			action = &stages.PublishAction{}
		case "trigger":
			action = &stages.TriggerAction{Deployer: deployer}
		default:
			return nil, fmt.Errorf("stage %s: unknown action %q", ref.Name, ref.Action)
		}

		envRef := cfg.Environment
		if ref.Environment != nil {
			envRef = *ref.Environment
		}

		retry, err := retryPolicy(ref.Retry)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", ref.Name, err)
		}

		specs = append(specs, pipeline.StageSpec{
			Name:         ref.Name,
			Env:          envSpec(envRef),
			Action:       action,
			SecretScopes: ref.Secrets,
			Retry:        retry,
		})
	}
	return specs, nil
}

func envSpec(ref types.EnvironmentRef) sandbox.EnvSpec {
	spec := sandbox.EnvSpec{
		Image:      ref.Image,
		Entrypoint: ref.Entrypoint,
		WorkDir:    ref.WorkDir,
	}
	for _, m := range ref.Mounts {
		spec.Mounts = append(spec.Mounts, sandbox.Mount{
			HostPath:      m.HostPath,
			ContainerPath: m.ContainerPath,
		})
	}
	return spec
}

func retryPolicy(ref types.RetryRef) (pipeline.RetryPolicy, error) {
	p := pipeline.RetryPolicy{MaxAttempts: ref.MaxAttempts}
	if ref.Backoff != "" {
		d, err := time.ParseDuration(ref.Backoff)
		if err != nil {
			return p, fmt.Errorf("parsing retry backoff: %w", err)
		}
		p.Backoff = d
	}
	if ref.Timeout != "" {
		d, err := time.ParseDuration(ref.Timeout)
		if err != nil {
			return p, fmt.Errorf("parsing retry timeout: %w", err)
		}
		p.Timeout = d
	}
	return p, nil
}

// newRun allocates the next run number and assembles a pending run for the
// given push.
func newRun(parts *runtimeParts, branch, commit string) (*pipeline.Run, error) {
	number, err := parts.journal.NextNumber()
	if err != nil {
		return nil, err
	}

	cfg := parts.cfg
	buildDir := cfg.Build.Context
	if buildDir == "" {
		buildDir = "."
	}
	if !filepath.IsAbs(buildDir) {
		buildDir = filepath.Join(parts.cfgDir, buildDir)
	}

	rc := &pipeline.RunContext{
		Number:      number,
		Branch:      branch,
		Commit:      commit,
		Repository:  cfg.Repository,
		RegistryURL: cfg.Registry.URL,
		Target: deploy.Target{
			Cluster: cfg.Deploy.Cluster,
			Service: cfg.Deploy.Service,
			Region:  cfg.Deploy.Region,
		},
		Track:      cfg.Deploy.Track,
		BuildDir:   buildDir,
		Dockerfile: cfg.Build.Dockerfile,
		BuildArgs:  cfg.Build.Args,
	}

	specs, err := buildStages(cfg, parts.deployer)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRun(rc, specs), nil
}

// executeAndRecord drives the run to a terminal status and persists its
// record. The journal write happens on every exit path so aborted and
// failed runs show up in history too.
func executeAndRecord(ctx context.Context, parts *runtimeParts, run *pipeline.Run, emitter observe.Emitter) error {
	exec := &pipeline.Executor{
		Provisioner: parts.provisioner,
		Secrets:     parts.resolver,
		Logger:      parts.logger,
		Redactor:    parts.redactor,
		Emitter:     emitter,
	}

	execErr := exec.Execute(ctx, run)

	rec := journal.NewRunRecord(parts.cfg.Pipeline, run)
	if err := parts.journal.Record(rec, parts.redactor); err != nil {
		parts.logger.Warn("recording run", map[string]any{
			"run":   run.Context.Number,
			"error": err.Error(),
		})
	}
	return execErr
}
