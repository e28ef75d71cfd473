package services

import (
	"errors"
	"strings"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driven"
)

// PreconditionChecker verifies that a service's required credentials are
// present before anything about the service is started.
type PreconditionChecker struct {
	env driven.Environment
}

// NewPreconditionChecker creates a checker reading from env.
func NewPreconditionChecker(env driven.Environment) *PreconditionChecker {
	return &PreconditionChecker{env: env}
}

// Missing returns the required credential names that are unset or blank,
// in descriptor order.
func (c *PreconditionChecker) Missing(desc domain.ServiceDescriptor) []string {
	var missing []string
	for _, name := range desc.RequiredCredentials() {
		value, ok := c.env.Lookup(name)
		if !ok || strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Verify fails with *domain.MissingCredentialsError listing exactly the
// missing names.
func (c *PreconditionChecker) Verify(desc domain.ServiceDescriptor) error {
	missing := c.Missing(desc)
	if len(missing) > 0 {
		return &domain.MissingCredentialsError{Service: desc.Name(), Missing: missing}
	}
	return nil
}

// VerifyAll verifies every descriptor and joins the failures.
func (c *PreconditionChecker) VerifyAll(descs []domain.ServiceDescriptor) error {
	var errs []error
	for _, desc := range descs {
		if err := c.Verify(desc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
