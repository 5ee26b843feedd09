package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/conveyci/convey/deploy"
	"github.com/conveyci/convey/sandbox"
)

// Action is the work a stage performs inside its environment. creds holds
// only the credentials the stage declared; it is discarded when the stage
// finishes.
type Action interface {
	Kind() string
	Run(ctx context.Context, rc *RunContext, env *sandbox.Handle, creds map[string]string) error
}

// Artifact identifies a built image. The digest is the identity; tags are
// convenience pointers. The latest tag in particular is mutable by design
// and never relied on for correctness.
type Artifact struct {
	Repository string `json:"repository"`
	Tag        string `json:"tag"`
	Digest     string `json:"digest"`
}

// VersionRef returns the immutable-by-convention versioned reference.
func (a *Artifact) VersionRef() string {
	return fmt.Sprintf("%s:%s", a.Repository, a.Tag)
}

// LatestRef returns the floating latest reference.
func (a *Artifact) LatestRef() string {
	return a.Repository + ":latest"
}

// RunContext carries the immutable inputs of one run plus the single piece
// of forward-flowing state: the artifact produced by the build stage.
// Passing it explicitly replaces ambient pipeline-wide variables.
type RunContext struct {
	Number      int
	Branch      string
	Commit      string
	Repository  string
	RegistryURL string
	Target      deploy.Target
	// Track selects which reference the deployment target consumes:
	// "latest" or "version".
	Track string

	BuildDir   string
	Dockerfile string
	BuildArgs  map[string]string

	mu       sync.Mutex
	artifact *Artifact
}

// VersionTag returns the run's version tag, derived from the run number.
func (rc *RunContext) VersionTag() string {
	return strconv.Itoa(rc.Number)
}

// SetArtifact records the build output. An artifact is produced exactly
// once per run and is immutable afterwards.
func (rc *RunContext) SetArtifact(a *Artifact) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.artifact != nil {
		return fmt.Errorf("artifact already set to %s", rc.artifact.VersionRef())
	}
	rc.artifact = a
	return nil
}

// Artifact returns the build output, or nil if no build stage has run.
func (rc *RunContext) Artifact() *Artifact {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.artifact
}

// DeployRef returns the artifact reference the deployment target tracks,
// per the configured track.
func (rc *RunContext) DeployRef() string {
	a := rc.Artifact()
	if a == nil {
		return ""
	}
	if rc.Track == "version" {
		return a.VersionRef()
	}
	return a.LatestRef()
}
