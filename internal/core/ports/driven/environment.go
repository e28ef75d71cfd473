package driven

// Environment is the ambient configuration source for credentials and the
// base subprocess environment.
type Environment interface {
	// Lookup returns the value of name and whether it is set.
	Lookup(name string) (string, bool)

	// Environ returns the ambient environment in KEY=VALUE form.
	Environ() []string
}
