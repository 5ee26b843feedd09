// Package stages implements the pipeline's stage actions: building the
// artifact, publishing it to a registry, and triggering deployment.
package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/conveyci/convey/pipeline"
	"github.com/conveyci/convey/sandbox"
)

// BuildError reports a failed artifact build. A broken build is not
// transient: the run terminates without retry.
type BuildError struct {
	Err error
}

func (e *BuildError) Error() string   { return fmt.Sprintf("building artifact: %v", e.Err) }
func (e *BuildError) Unwrap() error   { return e.Err }
func (e *BuildError) Transient() bool { return false }

// BuildAction produces the run's artifact by running a container build
// inside the stage environment. The tag is {repository}:{runNumber}, so the
// same source and run number always produce the same reference.
type BuildAction struct{}

func (a *BuildAction) Kind() string { return "build" }

func (a *BuildAction) Run(ctx context.Context, rc *pipeline.RunContext, env *sandbox.Handle, creds map[string]string) error {
	tag := fmt.Sprintf("%s:%s", rc.Repository, rc.VersionTag())

	argv := []string{"docker", "build", "-t", tag}
	if rc.Dockerfile != "" {
		argv = append(argv, "-f", rc.Dockerfile)
	}
	if rc.Commit != "" {
		argv = append(argv, "--label", "org.opencontainers.image.revision="+rc.Commit)
	}
	for k, v := range rc.BuildArgs {
		argv = append(argv, "--build-arg", fmt.Sprintf("%s=%s", k, v))
	}
	buildDir := rc.BuildDir
	if buildDir == "" {
		buildDir = "."
	}
	argv = append(argv, buildDir)

	out, err := env.Exec(ctx, nil, argv...)
	if err != nil {
		return &BuildError{Err: fmt.Errorf("%s: %w", lastNonEmptyLine(out), err)}
	}

	digest := parseImageID(out)
	if digest == "" {
		return &BuildError{Err: fmt.Errorf("build output contained no image id")}
	}

	return rc.SetArtifact(&pipeline.Artifact{
		Repository: rc.Repository,
		Tag:        rc.VersionTag(),
		Digest:     digest,
	})
}

// parseImageID extracts the image ID from container build output.
func parseImageID(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		// Docker outputs "Successfully built <id>" or just a sha256 hash
		if strings.HasPrefix(line, "Successfully built ") {
			return strings.TrimPrefix(line, "Successfully built ")
		}
		if strings.HasPrefix(line, "sha256:") {
			return line
		}
		// BuildKit writes the digest in the "writing image" step
		if idx := strings.Index(line, "writing image sha256:"); idx >= 0 {
			rest := line[idx+len("writing image "):]
			if sp := strings.IndexByte(rest, ' '); sp >= 0 {
				rest = rest[:sp]
			}
			return rest
		}
	}
	return ""
}

func lastNonEmptyLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return "no output"
}
