package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gridsight/internal/config"
	"gridsight/internal/contract"
	"gridsight/internal/fallback"
	"gridsight/internal/faults"
	"gridsight/internal/logging"
	"gridsight/internal/pool"
	"gridsight/internal/session"
)

// Orchestrator coordinates exactly one import session at a time. It is the
// single writer of session state.
type Orchestrator struct {
	cfg       *config.Config
	sched     *pool.Scheduler
	contracts *contract.Registry
	resolver  *fallback.Resolver
	stages    Stages
	logger    *slog.Logger
	observers []Observer

	mu       sync.Mutex
	sess     *session.Session
	cancel   context.CancelFunc
	attempts map[string]int
	params   Params
	manualCh chan map[string]any
	reviewCh chan map[string]any
	done     chan struct{}
}

// New constructs an orchestrator. The contract registry, resolver, and
// observer list are injected and treated as immutable for the
// orchestrator's lifetime.
func New(cfg *config.Config, sched *pool.Scheduler, contracts *contract.Registry, resolver *fallback.Resolver, stages Stages, logger *slog.Logger, observers ...Observer) (*Orchestrator, error) {
	if cfg == nil || sched == nil || contracts == nil || resolver == nil {
		return nil, errors.New("orchestrator requires config, scheduler, contracts, and resolver")
	}
	if err := stages.validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:       cfg,
		sched:     sched,
		contracts: contracts,
		resolver:  resolver,
		stages:    stages,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		observers: append([]Observer(nil), observers...),
	}, nil
}

// StartImport validates the raw input, allocates the session with its
// deadline budget, and begins the first stage in the background. It fails
// fast with a SessionBusyError when a session is already in flight, an
// AdmissionError when the scheduler queue is too deep, and a contract
// violation when the raw input is malformed.
func (o *Orchestrator) StartImport(ctx context.Context, raw map[string]any) (session.Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	o.mu.Lock()
	if o.sess != nil && !o.sess.State.Terminal() {
		id := o.sess.ID
		o.mu.Unlock()
		return session.Snapshot{}, &SessionBusyError{SessionID: id}
	}
	if limit := o.cfg.Pipeline.QueueAdmissionLimit; limit > 0 {
		if depth := o.sched.QueueDepth(); depth > limit {
			o.mu.Unlock()
			return session.Snapshot{}, &AdmissionError{QueueDepth: depth, Limit: limit}
		}
	}
	if err := o.contracts.Validate(contract.RawInputV1, raw); err != nil {
		o.mu.Unlock()
		return session.Snapshot{}, err
	}

	now := time.Now().UTC()
	sess := session.New(uuid.NewString(), rawImagePath(raw), now, o.cfg.SessionDeadline())
	runCtx, cancel := context.WithDeadline(ctx, sess.DeadlineAt)

	o.sess = sess
	o.cancel = cancel
	o.attempts = make(map[string]int)
	o.params = Params{}
	o.manualCh = make(chan map[string]any, 1)
	o.reviewCh = make(chan map[string]any, 1)
	o.done = make(chan struct{})
	snap := sess.Snapshot()
	done := o.done
	o.mu.Unlock()

	go o.run(runCtx, cancel, raw, done)
	return snap, nil
}

func rawImagePath(raw map[string]any) string {
	path, _ := raw["image_path"].(string)
	return strings.TrimSpace(path)
}

func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, raw map[string]any, done chan struct{}) {
	defer close(done)
	defer cancel()

	logger := o.sessionLogger()

	if o.stages.Prepare != nil {
		if err := o.stages.Prepare(ctx, raw); err != nil {
			o.failSession(err.Error())
			return
		}
	}

	// Degrade-first: when heavy-stage execution is unavailable, go straight
	// to the manual path instead of attempting automatic detection.
	if err := o.sched.Probe(); err != nil {
		logger.Warn("heavy-stage execution unavailable, routing to manual crop",
			logging.Error(err),
			logging.String(logging.FieldEventType, "degrade_to_manual"),
		)
		if err := o.transitionTo(session.StateAwaitingManualCrop, StageRawInput, raw); err != nil {
			o.failSession(err.Error())
			return
		}
	} else {
		if err := o.transitionTo(session.StateAnalyzingROI, StageRawInput, raw); err != nil {
			o.failSession(err.Error())
			return
		}
	}

	for {
		if o.aborted(ctx) {
			return
		}
		switch state := o.currentState(); state {
		case session.StateAnalyzingROI, session.StateExtractingRegions, session.StateRecognizing:
			o.runHeavyStage(ctx, heavySpecs[state])
		case session.StateMappingGrid:
			o.runGridMapping(ctx)
		case session.StateAwaitingManualCrop:
			o.awaitManualCrop(ctx)
		case session.StateReviewing:
			o.awaitReview(ctx)
		case session.StateComplete, session.StateError:
			return
		default:
			o.failSession("session in unexpected state " + string(state))
			return
		}
	}
}

// aborted enforces cancellation and the whole-session deadline. It is
// checked before every stage transition and before submitting new tasks.
func (o *Orchestrator) aborted(ctx context.Context) bool {
	if o.currentState().Terminal() {
		return true
	}
	canceled := o.sessionCanceled()
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !canceled {
			o.failSession(faults.ErrDeadline.Error())
		} else {
			o.failSession(faults.ErrCanceled.Error())
		}
		return true
	default:
	}
	if canceled {
		o.cancelCtx()
		o.failSession(faults.ErrCanceled.Error())
		return true
	}
	return false
}

func (o *Orchestrator) currentState() session.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == nil {
		return session.StateIdle
	}
	return o.sess.State
}

func (o *Orchestrator) sessionCanceled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sess != nil && o.sess.Canceled()
}

func (o *Orchestrator) cancelCtx() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (o *Orchestrator) stagePayload(stage string) map[string]any {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == nil {
		return nil
	}
	payload, _ := o.sess.StagePayload(stage)
	return payload
}

func (o *Orchestrator) bumpAttempts(stage string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts[stage]++
	return o.attempts[stage]
}

func (o *Orchestrator) currentParams() Params {
	o.mu.Lock()
	defer o.mu.Unlock()
	cp := make(Params, len(o.params))
	for k, v := range o.params {
		cp[k] = v
	}
	return cp
}

func (o *Orchestrator) mergeParams(params map[string]any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for k, v := range params {
		o.params[k] = v
	}
}

func (o *Orchestrator) sessionLogger() *slog.Logger {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == nil {
		return o.logger
	}
	return o.logger.With(logging.String(logging.FieldSessionID, o.sess.ID))
}

func (o *Orchestrator) thresholdFor(stage string) float64 {
	switch stage {
	case StageROIDetection:
		return o.cfg.Pipeline.ROIConfidenceThreshold
	case StageRegionExtraction:
		return o.cfg.Pipeline.ExtractionIntegrityThreshold
	case StageRecognition:
		return o.cfg.Pipeline.RecognitionConfidenceThreshold
	default:
		return 0
	}
}

func (o *Orchestrator) stageFn(stage string) StageFunc {
	switch stage {
	case StageROIDetection:
		return o.stages.DetectROI
	case StageGridMapping:
		return o.stages.MapGrid
	case StageRegionExtraction:
		return o.stages.ExtractRegions
	case StageRecognition:
		return o.stages.Recognize
	default:
		return nil
	}
}
