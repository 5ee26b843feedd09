// Package pipeline provides the stage-execution engine: it sequences
// build, publish, and trigger stages through isolated environments with
// per-stage secret injection, retry, and fail-fast semantics.
package pipeline

import (
	"time"

	"github.com/conveyci/convey/sandbox"
)

// Status is the overall state of a pipeline run.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusRunning   Status = "Running"
	StatusSucceeded Status = "Succeeded"
	StatusFailed    Status = "Failed"
	StatusAborted   Status = "Aborted"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusAborted
}

// StageStatus is the state of a single stage within a run.
type StageStatus string

const (
	StagePending   StageStatus = "Pending"
	StageRunning   StageStatus = "Running"
	StageSucceeded StageStatus = "Succeeded"
	StageFailed    StageStatus = "Failed"
	StageSkipped   StageStatus = "Skipped"
	StageAborted   StageStatus = "Aborted"
)

// Phase is the lifecycle step a running stage is in. Every stage passes
// through Acquiring, Executing, Releasing, and Done in order;
// SecretResolving only when the stage declares secret scopes.
type Phase string

const (
	PhaseAcquiring       Phase = "Acquiring"
	PhaseSecretResolving Phase = "SecretResolving"
	PhaseExecuting       Phase = "Executing"
	PhaseReleasing       Phase = "Releasing"
	PhaseDone            Phase = "Done"
)

// StageSpec declares one stage of a run. Immutable once the run starts.
type StageSpec struct {
	// Name is unique within the run.
	Name string
	// Env describes the isolated environment the stage executes in.
	Env sandbox.EnvSpec
	// Action is the work performed inside the environment.
	Action Action
	// SecretScopes names the credentials this stage may read. Resolved
	// lazily, immediately before the action runs.
	SecretScopes []string
	// Retry bounds attempts for transient failures.
	Retry RetryPolicy
}

// StageResult records the outcome of one stage.
type StageResult struct {
	Name     string
	Status   StageStatus
	Attempts int
	Duration time.Duration
	Err      string
}

// Run is one execution of the pipeline: an ordered stage list plus its
// accumulated results.
type Run struct {
	Context    *RunContext
	Stages     []StageSpec
	Status     Status
	Results    []StageResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewRun creates a pending run over the given stages.
func NewRun(rc *RunContext, stages []StageSpec) *Run {
	results := make([]StageResult, len(stages))
	for i, st := range stages {
		results[i] = StageResult{Name: st.Name, Status: StagePending}
	}
	return &Run{
		Context: rc,
		Stages:  stages,
		Status:  StatusPending,
		Results: results,
	}
}
