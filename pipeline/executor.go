package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/conveyci/convey/observe"
	"github.com/conveyci/convey/sandbox"
	"github.com/conveyci/convey/secrets"
)

// Executor runs pipelines. Stages execute strictly sequentially; any stage
// error aborts the remaining stages and fails the run. Every acquired
// environment is released before the run reaches a terminal status,
// including on error, panic, and cancellation.
type Executor struct {
	Provisioner sandbox.Provisioner
	Secrets     secrets.Resolver
	Logger      observe.Logger
	// Redactor, if set, receives every resolved secret value so logs and
	// persisted records can scrub them.
	Redactor *observe.Redactor
	// Emitter, if set, receives run and stage transition events.
	Emitter observe.Emitter
}

// Execute drives run to a terminal status. The returned error is non-nil
// for Failed and Aborted runs and describes the first stage that stopped
// the run.
func (e *Executor) Execute(ctx context.Context, run *Run) error {
	run.Status = StatusRunning
	run.StartedAt = time.Now()
	e.emit(observe.StageEvent{Kind: observe.RunStarted, Run: run.Context.Number, Status: string(run.Status)})

	var runErr error
	for i := range run.Stages {
		spec := &run.Stages[i]

		if err := ctx.Err(); err != nil {
			e.markRemaining(run, i, StageAborted)
			run.Status = StatusAborted
			runErr = fmt.Errorf("run cancelled before stage %s: %w", spec.Name, err)
			break
		}

		res := e.executeStage(ctx, spec, run.Context)
		run.Results[i] = res

		if res.Status == StageSucceeded {
			continue
		}

		// Fail fast: no partial continuation past a failed stage.
		if res.Status == StageAborted {
			e.markRemaining(run, i+1, StageAborted)
			run.Status = StatusAborted
		} else {
			e.markRemaining(run, i+1, StageSkipped)
			run.Status = StatusFailed
		}
		runErr = fmt.Errorf("stage %s: %s", spec.Name, res.Err)
		break
	}

	if runErr == nil {
		run.Status = StatusSucceeded
	}
	run.FinishedAt = time.Now()

	ev := observe.StageEvent{
		Kind:     observe.RunFinished,
		Run:      run.Context.Number,
		Status:   string(run.Status),
		Duration: run.FinishedAt.Sub(run.StartedAt),
	}
	if runErr != nil {
		ev.Err = runErr.Error()
	}
	e.emit(ev)
	return runErr
}

// executeStage takes one stage through its lifecycle:
// Acquiring -> SecretResolving -> Executing -> Releasing -> Done.
// The environment is released on every exit path before the result is
// returned, so the next stage never observes an open environment.
func (e *Executor) executeStage(ctx context.Context, spec *StageSpec, rc *RunContext) StageResult {
	res := StageResult{Name: spec.Name, Status: StageRunning}
	start := time.Now()
	e.emit(observe.StageEvent{Kind: observe.StageStarted, Run: rc.Number, Stage: spec.Name})

	finish := func(status StageStatus, err error) StageResult {
		res.Status = status
		res.Duration = time.Since(start)
		if err != nil {
			res.Err = err.Error()
		}
		ev := observe.StageEvent{
			Kind:     observe.StageFinished,
			Run:      rc.Number,
			Stage:    spec.Name,
			Status:   string(status),
			Attempt:  res.Attempts,
			Duration: res.Duration,
			Err:      res.Err,
		}
		e.emit(ev)
		return res
	}

	e.emitPhase(rc.Number, spec.Name, PhaseAcquiring)
	handle, err := e.Provisioner.Acquire(ctx, spec.Env)
	if err != nil {
		return finish(e.stageStatus(ctx, err), err)
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		e.emitPhase(rc.Number, spec.Name, PhaseReleasing)
		// Release must happen even when the run is being cancelled.
		if rerr := e.Provisioner.Release(context.WithoutCancel(ctx), handle); rerr != nil {
			e.logWarn("environment release failed", map[string]any{
				"stage": spec.Name, "environment": handle.ID, "error": rerr.Error(),
			})
		}
	}
	defer release()

	var creds map[string]string
	if len(spec.SecretScopes) > 0 {
		e.emitPhase(rc.Number, spec.Name, PhaseSecretResolving)
		creds, err = e.Secrets.Resolve(ctx, spec.SecretScopes)
		if err != nil {
			release()
			e.emitPhase(rc.Number, spec.Name, PhaseDone)
			return finish(e.stageStatus(ctx, err), err)
		}
		if e.Redactor != nil {
			for _, v := range creds {
				e.Redactor.Add(v)
			}
		}
	}

	e.emitPhase(rc.Number, spec.Name, PhaseExecuting)
	policy := spec.Retry.normalized()

	// The timeout spans the whole executing phase: attempts and backoff
	// together, not each attempt separately.
	ectx := ctx
	if policy.Timeout > 0 {
		var tcancel context.CancelFunc
		ectx, tcancel = context.WithTimeout(ctx, policy.Timeout)
		defer tcancel()
	}

	for attempt := 1; ; attempt++ {
		res.Attempts = attempt
		err = e.runAttempt(ectx, spec, rc, handle, creds)
		if err == nil {
			break
		}
		if !IsTransient(err) || attempt >= policy.MaxAttempts || ectx.Err() != nil {
			break
		}
		e.logWarn("stage attempt failed, retrying", map[string]any{
			"stage": spec.Name, "attempt": attempt, "backoff": policy.Backoff.String(), "error": err.Error(),
		})
		select {
		case <-time.After(policy.Backoff):
		case <-ectx.Done():
			err = ectx.Err()
		}
		if err != nil && ectx.Err() != nil {
			break
		}
	}

	// Release before Done so the next stage never overlaps this one's
	// environment.
	release()
	e.emitPhase(rc.Number, spec.Name, PhaseDone)

	if err != nil {
		return finish(e.stageStatus(ctx, err), err)
	}
	return finish(StageSucceeded, nil)
}

// runAttempt runs the stage action once, shielded against panics so the
// environment is still released.
func (e *Executor) runAttempt(ctx context.Context, spec *StageSpec, rc *RunContext, handle *sandbox.Handle, creds map[string]string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage %s panicked: %v", spec.Name, r)
		}
	}()
	return spec.Action.Run(ctx, rc, handle, creds)
}

// stageStatus distinguishes external cancellation from failure. A stage
// whose executing phase timed out is Failed; a stage interrupted because
// the run itself was cancelled is Aborted.
func (e *Executor) stageStatus(ctx context.Context, err error) StageStatus {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return StageAborted
	}
	return StageFailed
}

func (e *Executor) markRemaining(run *Run, from int, status StageStatus) {
	for i := from; i < len(run.Results); i++ {
		if run.Results[i].Status == StagePending {
			run.Results[i].Status = status
		}
	}
}

func (e *Executor) logWarn(msg string, fields map[string]any) {
	if e.Logger == nil {
		return
	}
	e.Logger.Warn(msg, fields)
}

func (e *Executor) emit(ev observe.StageEvent) {
	if e.Emitter == nil {
		return
	}
	ev.Time = time.Now()
	e.Emitter.Emit(ev)
}

func (e *Executor) emitPhase(run int, stage string, phase Phase) {
	e.emit(observe.StageEvent{Kind: observe.StagePhase, Run: run, Stage: stage, Phase: string(phase)})
}
