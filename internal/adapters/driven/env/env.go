// Package env provides driven.Environment implementations.
package env

import (
	"maps"
	"os"
	"slices"

	"github.com/custodia-labs/stackup-cli/internal/core/ports/driven"
)

var (
	_ driven.Environment = OS{}
	_ driven.Environment = Static(nil)
)

// OS reads the process environment.
type OS struct{}

// Lookup returns the value of name.
func (OS) Lookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

// Environ returns the environment as KEY=VALUE pairs.
func (OS) Environ() []string {
	return os.Environ()
}

// Static is a fixed environment, used in tests and for isolated runs.
type Static map[string]string

// Lookup returns the value of name.
func (s Static) Lookup(name string) (string, bool) {
	v, ok := s[name]
	return v, ok
}

// Environ returns the entries as sorted KEY=VALUE pairs.
func (s Static) Environ() []string {
	out := make([]string, 0, len(s))
	for _, k := range slices.Sorted(maps.Keys(s)) {
		out = append(out, k+"="+s[k])
	}
	return out
}
