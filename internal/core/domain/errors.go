package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent orchestration failures.
// Each typed error below matches its sentinel through errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownService indicates no descriptor is registered under a name.
	ErrUnknownService = errors.New("unknown service")

	// ErrInvalidWorkflow indicates a workflow definition violates step ordering.
	ErrInvalidWorkflow = errors.New("invalid workflow")

	// ErrHistoryDisabled indicates no run history store is configured.
	ErrHistoryDisabled = errors.New("run history is disabled")

	// ErrInvalidArguments indicates tool arguments could not be built or
	// are not a key/value mapping.
	ErrInvalidArguments = errors.New("invalid tool arguments")

	// Precondition Errors.

	// ErrMissingCredentials indicates one or more required credentials are absent.
	ErrMissingCredentials = errors.New("missing credentials")

	// Session Errors.

	// ErrLaunchFailure indicates the tool-server subprocess could not be started.
	ErrLaunchFailure = errors.New("tool server launch failed")

	// ErrHandshakeFailure indicates the initialisation handshake timed out or was rejected.
	ErrHandshakeFailure = errors.New("tool server handshake failed")

	// ErrSessionConflict indicates a session is already registered under the name.
	ErrSessionConflict = errors.New("session already open")

	// ErrSessionNotOpen indicates a session was used before acquisition or after release.
	ErrSessionNotOpen = errors.New("session not open")

	// ErrToolInvocation indicates a tool call failed.
	ErrToolInvocation = errors.New("tool invocation failed")

	// Context Errors.

	// ErrKeyNotFound indicates a unified context key has not been written.
	ErrKeyNotFound = errors.New("context key not found")
)

// MissingCredentialsError lists the required credentials a service lacks.
type MissingCredentialsError struct {
	Service string
	Missing []string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrMissingCredentials, e.Service, strings.Join(e.Missing, ", "))
}

// Is reports whether target is ErrMissingCredentials.
func (e *MissingCredentialsError) Is(target error) bool {
	return target == ErrMissingCredentials
}

// ToolInvocationError wraps the cause of a failed tool call.
type ToolInvocationError struct {
	Tool  string
	Cause error
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrToolInvocation, e.Tool, e.Cause)
}

// Is reports whether target is ErrToolInvocation.
func (e *ToolInvocationError) Is(target error) bool {
	return target == ErrToolInvocation
}

func (e *ToolInvocationError) Unwrap() error {
	return e.Cause
}

// StepError is the terminal Failed(step, cause) state of a run.
// Step is 1-based.
type StepError struct {
	Step    int
	Name    string
	Service string
	Phase   StepPhase
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) failed while %s: %v", e.Step, e.Name, e.Phase, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// MissingCredentials collects every MissingCredentialsError found in err,
// including those joined with errors.Join.
func MissingCredentials(err error) []*MissingCredentialsError {
	switch e := err.(type) {
	case nil:
		return nil
	case *MissingCredentialsError:
		return []*MissingCredentialsError{e}
	case interface{ Unwrap() []error }:
		var out []*MissingCredentialsError
		for _, inner := range e.Unwrap() {
			out = append(out, MissingCredentials(inner)...)
		}
		return out
	default:
		return MissingCredentials(errors.Unwrap(err))
	}
}
