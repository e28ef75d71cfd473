package domain

import (
	"maps"
	"regexp"
	"slices"
)

// Export is the extraction convention for a value a service exposes in its
// tool results. Path is a dot-separated field path into the result. When the
// path resolves nothing, Pattern (if set) is matched against the text content.
type Export struct {
	// Key is the unified context key the value is recorded under.
	Key string

	// Path locates the value, e.g. "connection_uris.0.connection_uri".
	Path string

	// Pattern is an optional fallback matched against text content blocks.
	Pattern *regexp.Regexp

	// Secret marks credential-like values that must not be logged or persisted.
	Secret bool
}

// ServiceDescriptor describes how to launch one service's tool server.
// It is immutable: accessors hand out copies.
type ServiceDescriptor struct {
	name        string
	command     string
	args        []string
	credentials []string
	env         map[string]string
	exports     []Export
}

// ServiceSpec carries the fields used to build a ServiceDescriptor.
type ServiceSpec struct {
	Name        string
	Command     string
	Args        []string
	Credentials []string
	Env         map[string]string
	Exports     []Export
}

// NewServiceDescriptor builds a descriptor from spec, copying every slice and map.
func NewServiceDescriptor(spec ServiceSpec) ServiceDescriptor {
	return ServiceDescriptor{
		name:        spec.Name,
		command:     spec.Command,
		args:        slices.Clone(spec.Args),
		credentials: slices.Clone(spec.Credentials),
		env:         maps.Clone(spec.Env),
		exports:     slices.Clone(spec.Exports),
	}
}

// Name returns the service name.
func (d ServiceDescriptor) Name() string { return d.name }

// Command returns the launch command.
func (d ServiceDescriptor) Command() string { return d.command }

// Args returns a copy of the launch arguments.
func (d ServiceDescriptor) Args() []string { return slices.Clone(d.args) }

// RequiredCredentials returns a copy of the required credential names.
func (d ServiceDescriptor) RequiredCredentials() []string { return slices.Clone(d.credentials) }

// Env returns a copy of the extra environment for the subprocess.
func (d ServiceDescriptor) Env() map[string]string { return maps.Clone(d.env) }

// Exports returns a copy of the extraction conventions.
func (d ServiceDescriptor) Exports() []Export { return slices.Clone(d.exports) }

// Spec returns a mutable copy of the descriptor's fields.
func (d ServiceDescriptor) Spec() ServiceSpec {
	return ServiceSpec{
		Name:        d.name,
		Command:     d.command,
		Args:        d.Args(),
		Credentials: d.RequiredCredentials(),
		Env:         d.Env(),
		Exports:     d.Exports(),
	}
}

// ToolInfo describes a tool advertised by a tool server.
type ToolInfo struct {
	Name        string
	Description string
}

// ServiceCheck is the validation outcome for one service.
type ServiceCheck struct {
	Service string
	OK      bool
	Tools   []ToolInfo
	Err     error
}
