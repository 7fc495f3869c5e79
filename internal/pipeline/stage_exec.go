package pipeline

import (
	"context"

	"gridsight/internal/contract"
	"gridsight/internal/fallback"
	"gridsight/internal/faults"
	"gridsight/internal/logging"
	"gridsight/internal/pool"
	"gridsight/internal/session"
)

type stageAction int

const (
	actionRetry stageAction = iota
	actionStop
)

// runHeavyStage pushes one heavy stage through the scheduler, validates
// its output against the stage contract, applies the confidence gate, and
// routes every failure through the fallback resolver. It returns once the
// session has moved on or reached a terminal or waiting state; retries and
// degraded re-runs stay inside the loop.
func (o *Orchestrator) runHeavyStage(ctx context.Context, spec stageSpec) {
	fn := o.stageFn(spec.name)
	input := o.stagePayload(spec.inputFrom)
	for {
		if ctx.Err() != nil || o.sessionCanceled() {
			return
		}
		result, err := o.executeTask(ctx, spec.name, fn, input)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if o.resolveFailure(spec.name, err, fallbackDetails{}) == actionStop {
				return
			}
			continue
		}
		if verr := o.contracts.Validate(spec.contract, result.Payload); verr != nil {
			if o.resolveFailure(spec.name, verr, fallbackDetails{}) == actionStop {
				return
			}
			continue
		}
		threshold := o.thresholdFor(spec.name)
		if result.Confidence < threshold {
			details := fallbackDetails{
				lowConfidence: true,
				confidence:    result.Confidence,
				threshold:     threshold,
				result:        result.Payload,
			}
			if o.resolveFailure(spec.name, nil, details) == actionStop {
				return
			}
			continue
		}
		o.completeHeavyStage(spec, result)
		return
	}
}

func (o *Orchestrator) completeHeavyStage(spec stageSpec, result StageResult) {
	next := spec.next
	if spec.name == StageRecognition && o.cfg.Pipeline.AutoAccept {
		next = session.StateComplete
	}
	if err := o.transitionTo(next, spec.name, result.Payload); err != nil {
		o.failSession(err.Error())
	}
}

// runGridMapping runs the grid projection inline. It is pure geometry on
// an already-accepted region of interest, so it never goes through the
// scheduler; failures still route through the resolver.
func (o *Orchestrator) runGridMapping(ctx context.Context) {
	for {
		if ctx.Err() != nil || o.sessionCanceled() {
			return
		}
		input := o.stagePayload(StageManualCrop)
		if input == nil {
			input = o.stagePayload(StageROIDetection)
		}
		result, err := o.stages.MapGrid(ctx, input, o.currentParams())
		if err == nil {
			if verr := o.contracts.Validate(contract.GridMapV1, result.Payload); verr != nil {
				err = verr
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if o.resolveFailure(StageGridMapping, err, fallbackDetails{}) == actionStop {
				return
			}
			continue
		}
		if terr := o.transitionTo(session.StateExtractingRegions, StageGridMapping, result.Payload); terr != nil {
			o.failSession(terr.Error())
		}
		return
	}
}

// executeTask submits a stage function to the worker pool and waits for
// its outcome. Stage parameters are snapshotted at submission so degraded
// re-runs see the merged values.
func (o *Orchestrator) executeTask(ctx context.Context, name string, fn StageFunc, input map[string]any) (StageResult, error) {
	// A pool with no workers accepts submissions it can never run. Probe
	// first so a workerless or closed scheduler surfaces as an unavailable
	// failure for the resolver instead of a task parked until the deadline.
	if err := o.sched.Probe(); err != nil {
		return StageResult{}, err
	}
	params := o.currentParams()
	pending, err := o.sched.Submit(ctx, pool.Task{
		Kind:    name,
		Payload: input,
		Timeout: o.cfg.StageTimeout(),
		Fn: func(taskCtx context.Context, payload any) (any, error) {
			in, _ := payload.(map[string]any)
			return fn(taskCtx, in, params)
		},
	})
	if err != nil {
		return StageResult{}, err
	}
	value, err := pending.Wait(ctx)
	if err != nil {
		return StageResult{}, err
	}
	result, ok := value.(StageResult)
	if !ok {
		return StageResult{}, faults.Wrap(faults.ErrExecution, name, "execute", "unexpected task result type", nil)
	}
	return result, nil
}

type fallbackDetails struct {
	lowConfidence bool
	confidence    float64
	threshold     float64
	result        map[string]any
}

// resolveFailure asks the resolver what to do about a stage failure and
// applies the outcome. Retry and degrade keep the stage loop going; manual
// and abort end it.
func (o *Orchestrator) resolveFailure(stage string, err error, details fallbackDetails) stageAction {
	attempts := o.bumpAttempts(stage)
	outcome := o.resolver.Resolve(fallback.Context{
		Stage:         stage,
		Err:           err,
		LowConfidence: details.lowConfidence,
		Confidence:    details.confidence,
		Threshold:     details.threshold,
		Result:        details.result,
		Attempts:      attempts,
	})
	o.sessionLogger().Warn("stage failure resolved",
		logging.String(logging.FieldStage, stage),
		logging.String("outcome", string(outcome.Kind)),
		logging.Int("attempts", attempts),
		logging.Error(err),
	)
	switch outcome.Kind {
	case fallback.OutcomeRetry:
		return actionRetry
	case fallback.OutcomeDegrade:
		o.mergeParams(outcome.Params)
		return actionRetry
	case fallback.OutcomeManual:
		if terr := o.switchToManual(outcome.Hint); terr != nil {
			o.failSession(terr.Error())
		}
		return actionStop
	default:
		reason := outcome.Reason
		if reason == "" && err != nil {
			reason = err.Error()
		}
		o.failSession(reason)
		return actionStop
	}
}

func (o *Orchestrator) awaitManualCrop(ctx context.Context) {
	select {
	case payload := <-o.manualChan():
		if err := o.transitionTo(session.StateMappingGrid, StageManualCrop, payload); err != nil {
			o.failSession(err.Error())
		}
	case <-ctx.Done():
		// Return without failing the session: the loop's aborted check owns
		// attributing a finished ctx to deadline vs cancel.
	}
}

func (o *Orchestrator) awaitReview(ctx context.Context) {
	select {
	case payload := <-o.reviewChan():
		if err := o.transitionTo(session.StateComplete, StageReview, payload); err != nil {
			o.failSession(err.Error())
		}
	case <-ctx.Done():
		// Attribution of a finished ctx happens in the loop's aborted check.
	}
}

func (o *Orchestrator) manualChan() chan map[string]any {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.manualCh
}

func (o *Orchestrator) reviewChan() chan map[string]any {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reviewCh
}
