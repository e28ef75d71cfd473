package domain

import (
	"fmt"
	"slices"
)

// ContextRef names one unified context entry.
type ContextRef struct {
	Service string
	Key     string
}

func (r ContextRef) String() string {
	return r.Service + "." + r.Key
}

// ArgsBuilder builds a step's tool arguments. The reader only resolves the
// step's declared Reads.
type ArgsBuilder func(in ContextReader) (Value, error)

// Step is one (service, tool, arguments) unit of a workflow.
type Step struct {
	// Name is a short human-readable label, e.g. "Create repository".
	Name string

	// Service is the descriptor name the step runs against.
	Service string

	// Tool is the tool invoked on the service.
	Tool string

	// Reads declares the context entries the arguments consume.
	Reads []ContextRef

	// Produces lists export keys that must be extracted from the result.
	Produces []string

	// Args builds the tool arguments.
	Args ArgsBuilder
}

// Workflow is a fixed, linear sequence of steps.
type Workflow struct {
	name  string
	steps []Step
}

// NewWorkflow validates the static ordering constraint: a step may only read
// an entry that a strictly earlier step declares in Produces.
func NewWorkflow(name string, steps ...Step) (*Workflow, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: %s has no steps", ErrInvalidWorkflow, name)
	}

	produced := make(map[ContextRef]bool)
	for i, step := range steps {
		if step.Service == "" || step.Tool == "" {
			return nil, fmt.Errorf("%w: step %d needs a service and a tool", ErrInvalidWorkflow, i+1)
		}
		if step.Args == nil {
			return nil, fmt.Errorf("%w: step %d has no argument builder", ErrInvalidWorkflow, i+1)
		}
		for _, ref := range step.Reads {
			if !produced[ref] {
				return nil, fmt.Errorf("%w: step %d reads %s, which no earlier step produces",
					ErrInvalidWorkflow, i+1, ref)
			}
		}
		for _, key := range step.Produces {
			produced[ContextRef{Service: step.Service, Key: key}] = true
		}
	}

	return &Workflow{name: name, steps: slices.Clone(steps)}, nil
}

// Name returns the workflow name.
func (w *Workflow) Name() string { return w.name }

// Steps returns a copy of the steps.
func (w *Workflow) Steps() []Step { return slices.Clone(w.steps) }

// Len returns the number of steps.
func (w *Workflow) Len() int { return len(w.steps) }

// Services returns the distinct services in step order.
func (w *Workflow) Services() []string {
	var out []string
	for _, step := range w.steps {
		if !slices.Contains(out, step.Service) {
			out = append(out, step.Service)
		}
	}
	return out
}
