package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stackup-cli/internal/logger"
)

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithHistory saves every run report to store.
func WithHistory(store driven.RunHistoryStore) OrchestratorOption {
	return func(o *Orchestrator) {
		o.history = store
	}
}

// WithSessionOptions applies opts to every run's SessionManager.
func WithSessionOptions(opts ...SessionOption) OrchestratorOption {
	return func(o *Orchestrator) {
		o.sessionOpts = append(o.sessionOpts, opts...)
	}
}

// WithRunIDs overrides run ID generation.
func WithRunIDs(next func() string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.newRunID = next
	}
}

// WithClock overrides the time source used in reports.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// RunOptions parameterises one orchestration run.
type RunOptions struct {
	// Project is recorded in the report.
	Project string

	// Observer receives every transition. Optional.
	Observer func(domain.Transition)
}

// Orchestrator executes workflows step by step:
//
//	Pending -> {CheckingPreconditions -> AcquiringSession -> Invoking ->
//	RecordingResult -> ReleasingSession} per step -> Completed
//
// Any failure moves the run to Failed(step, cause). Later steps never run
// and effects of earlier steps on external services are not undone.
type Orchestrator struct {
	catalog     *Catalog
	checker     *PreconditionChecker
	connector   driven.ToolServerConnector
	env         driven.Environment
	invoker     *ToolInvoker
	history     driven.RunHistoryStore
	sessionOpts []SessionOption
	newRunID    func() string
	now         func() time.Time
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(
	catalog *Catalog,
	checker *PreconditionChecker,
	connector driven.ToolServerConnector,
	env driven.Environment,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		catalog:   catalog,
		checker:   checker,
		connector: connector,
		env:       env,
		invoker:   NewToolInvoker(),
		newRunID:  func() string { return uuid.New().String() },
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes wf. Each run owns a fresh SessionManager and UnifiedContext.
// On failure the report is returned together with a *domain.StepError.
func (o *Orchestrator) Run(ctx context.Context, wf *domain.Workflow, opts RunOptions) (*domain.RunReport, error) {
	runID := o.newRunID()
	steps := wf.Steps()

	report := &domain.RunReport{
		ID:        runID,
		Workflow:  wf.Name(),
		Project:   opts.Project,
		State:     domain.RunPending,
		Steps:     make([]domain.StepReport, len(steps)),
		StartedAt: o.now(),
	}
	for i, step := range steps {
		report.Steps[i] = domain.StepReport{
			Number:  i + 1,
			Name:    step.Name,
			Service: step.Service,
			Tool:    step.Tool,
			Status:  domain.StepNotRun,
		}
	}

	r := &run{
		o:        o,
		report:   report,
		observer: opts.Observer,
		values:   domain.NewUnifiedContext(),
		sessions: NewSessionManager(runID, o.connector, o.env, o.sessionOpts...),
		secrets:  make(map[domain.ContextRef]bool),
	}

	r.emit(0, domain.PhasePending)
	logger.Section(fmt.Sprintf("Run %s: %s", runID, wf.Name()))

	report.State = domain.RunRunning

	var runErr error
	for i, step := range steps {
		if err := r.runStep(ctx, i, step); err != nil {
			runErr = err
			break
		}
	}

	report.FinishedAt = o.now()
	report.Outputs = r.outputs()
	if runErr != nil {
		report.State = domain.RunFailed
		var stepErr *domain.StepError
		if errors.As(runErr, &stepErr) {
			report.FailedStep = stepErr.Step
		}
		report.Error = logger.Redact(runErr.Error())
		logger.Warn("Run %s failed: %v", runID, runErr)
	} else {
		report.State = domain.RunCompleted
		logger.Info("Run %s completed in %s", runID, report.Duration())
	}
	r.emit(0, domain.PhaseDone)

	o.save(ctx, report)
	return report, runErr
}

// save writes the report to history. Failures are logged only.
func (o *Orchestrator) save(ctx context.Context, report *domain.RunReport) {
	if o.history == nil {
		return
	}
	if err := o.history.Save(context.WithoutCancel(ctx), report); err != nil {
		logger.Warn("saving run %s to history: %v", report.ID, err)
	}
}

// run is the mutable state of one orchestration run.
type run struct {
	o        *Orchestrator
	report   *domain.RunReport
	observer func(domain.Transition)
	values   *domain.UnifiedContext
	sessions *SessionManager
	secrets  map[domain.ContextRef]bool
}

// runStep drives one step through its phases. Step n+1 only starts after
// this returns nil.
func (r *run) runStep(ctx context.Context, i int, step domain.Step) error {
	sr := &r.report.Steps[i]
	sr.StartedAt = r.o.now()

	fail := func(phase domain.StepPhase, err error) error {
		sr.Status = domain.StepFailed
		sr.Phase = phase
		sr.Error = logger.Redact(err.Error())
		sr.FinishedAt = r.o.now()
		return &domain.StepError{Step: i + 1, Name: step.Name, Service: step.Service, Phase: phase, Err: err}
	}

	// 1. Preconditions: cancellation, descriptor, credentials, arguments
	r.enter(i, domain.PhaseCheckingPreconditions)
	if err := ctx.Err(); err != nil {
		return fail(domain.PhaseCheckingPreconditions, err)
	}
	desc, err := r.o.catalog.Get(step.Service)
	if err != nil {
		return fail(domain.PhaseCheckingPreconditions, err)
	}
	if err := r.o.checker.Verify(desc); err != nil {
		return fail(domain.PhaseCheckingPreconditions, err)
	}
	args, err := step.Args(domain.ScopedReader(r.values, step.Reads))
	if err != nil {
		return fail(domain.PhaseCheckingPreconditions, fmt.Errorf("build arguments: %w", err))
	}

	// 2-5. Session scope: acquire, invoke, record, release
	phase := domain.PhaseAcquiringSession
	r.enter(i, phase)
	err = r.sessions.WithSession(ctx, desc, nil, func(ctx context.Context, s *Session) error {
		phase = domain.PhaseInvoking
		r.enter(i, phase)
		result, err := r.o.invoker.Invoke(ctx, s, step.Tool, args)
		if err != nil {
			return err
		}

		phase = domain.PhaseRecordingResult
		r.enter(i, phase)
		if err := r.record(step, desc, result); err != nil {
			return err
		}

		phase = domain.PhaseReleasingSession
		r.enter(i, phase)
		return nil
	})
	if err != nil {
		return fail(phase, err)
	}

	sr.Status = domain.StepSucceeded
	sr.FinishedAt = r.o.now()
	r.enter(i, domain.PhaseDone)
	return nil
}

// record extracts the service's exports from result into the unified
// context. Keys the step must produce are checked before anything is written.
func (r *run) record(step domain.Step, desc domain.ServiceDescriptor, result *domain.ToolResult) error {
	values := make(map[string]domain.Value)
	secret := make(map[string]bool)
	for _, exp := range desc.Exports() {
		v, ok := result.Extract(exp)
		if !ok {
			continue
		}
		values[exp.Key] = v
		secret[exp.Key] = exp.Secret
	}

	for _, key := range step.Produces {
		if _, ok := values[key]; !ok {
			return fmt.Errorf("%w: %s.%s did not return %s", domain.ErrKeyNotFound, step.Service, step.Tool, key)
		}
	}

	for key, v := range values {
		if secret[key] {
			logger.RegisterSecret(v.Text())
			r.secrets[domain.ContextRef{Service: step.Service, Key: key}] = true
		}
	}
	if len(values) > 0 {
		r.values.Update(step.Service, values)
	}
	logger.Debug("run %s: recorded %d value(s) from %s", r.report.ID, len(values), step.Service)
	return nil
}

// enter moves step i to phase and notifies the observer.
func (r *run) enter(i int, phase domain.StepPhase) {
	r.report.Steps[i].Phase = phase
	logger.Debug("run %s: step %d/%d %s: %s", r.report.ID, i+1, len(r.report.Steps), r.report.Steps[i].Name, phase)
	r.emit(i+1, phase)
}

func (r *run) emit(step int, phase domain.StepPhase) {
	if r.observer == nil {
		return
	}
	t := domain.Transition{
		RunID: r.report.ID,
		State: r.report.State,
		Step:  step,
		Total: len(r.report.Steps),
		Phase: phase,
		At:    r.o.now(),
	}
	if step > 0 {
		t.Name = r.report.Steps[step-1].Name
	}
	r.observer(t)
}

// outputs flattens the unified context into report outputs, sorted by
// service then key.
func (r *run) outputs() []domain.Output {
	snapshot := r.values.Snapshot()
	var out []domain.Output
	for _, service := range r.values.Services() {
		entries := snapshot[service]
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, key := range keys {
			out = append(out, domain.Output{
				Service: service,
				Key:     key,
				Value:   entries[key].Text(),
				Secret:  r.secrets[domain.ContextRef{Service: service, Key: key}],
			})
		}
	}
	return out
}
