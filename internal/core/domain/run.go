package domain

import "time"

// RunState is the state of an orchestration run.
type RunState int

// Run states.
const (
	RunPending RunState = iota
	RunRunning
	RunCompleted
	RunFailed
)

// String returns the state name.
func (s RunState) String() string {
	switch s {
	case RunPending:
		return "pending"
	case RunRunning:
		return "running"
	case RunCompleted:
		return "completed"
	case RunFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseRunState parses a state name.
func ParseRunState(s string) RunState {
	switch s {
	case "running":
		return RunRunning
	case "completed":
		return RunCompleted
	case "failed":
		return RunFailed
	default:
		return RunPending
	}
}

// StepPhase is the per-step sub-state of a running workflow.
type StepPhase int

// Step phases, in order.
const (
	PhasePending StepPhase = iota
	PhaseCheckingPreconditions
	PhaseAcquiringSession
	PhaseInvoking
	PhaseRecordingResult
	PhaseReleasingSession
	PhaseDone
)

// String returns the phase name.
func (p StepPhase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseCheckingPreconditions:
		return "checking preconditions"
	case PhaseAcquiringSession:
		return "acquiring session"
	case PhaseInvoking:
		return "invoking"
	case PhaseRecordingResult:
		return "recording result"
	case PhaseReleasingSession:
		return "releasing session"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// ParseStepPhase parses a phase name.
func ParseStepPhase(s string) StepPhase {
	for p := PhasePending; p <= PhaseDone; p++ {
		if p.String() == s {
			return p
		}
	}
	return PhasePending
}

// StepStatus is the outcome of a step.
type StepStatus string

// Step statuses.
const (
	StepNotRun    StepStatus = "not_run"
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
)

// Transition is emitted every time a run or step changes state.
type Transition struct {
	RunID string
	State RunState
	Step  int // 1-based; 0 for run-level transitions
	Total int
	Name  string
	Phase StepPhase
	At    time.Time
}

// Output is one recorded context entry.
type Output struct {
	Service string
	Key     string
	Value   string
	Secret  bool
}

// StepReport records what happened to one step.
type StepReport struct {
	Number     int
	Name       string
	Service    string
	Tool       string
	Phase      StepPhase
	Status     StepStatus
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunReport is the record of one orchestration run.
type RunReport struct {
	ID         string
	Workflow   string
	Project    string
	State      RunState
	FailedStep int
	Error      string
	Steps      []StepReport
	Outputs    []Output
	StartedAt  time.Time
	FinishedAt time.Time
}

// Output returns the recorded value for (service, key).
func (r *RunReport) Output(service, key string) (Output, bool) {
	for _, o := range r.Outputs {
		if o.Service == service && o.Key == key {
			return o, true
		}
	}
	return Output{}, false
}

// PublicOutputs returns the outputs not marked secret.
func (r *RunReport) PublicOutputs() []Output {
	var out []Output
	for _, o := range r.Outputs {
		if !o.Secret {
			out = append(out, o)
		}
	}
	return out
}

// Duration returns how long the run took.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
