package driving

import "github.com/custodia-labs/stackup-cli/internal/core/domain"

// CatalogService exposes the known service descriptors.
type CatalogService interface {
	// List returns all descriptors in registration order.
	List() []domain.ServiceDescriptor

	// Get returns the descriptor registered under name.
	// Returns domain.ErrUnknownService if none exists.
	Get(name string) (domain.ServiceDescriptor, error)

	// Status reports which required credentials are missing per service.
	// Credential values are never returned.
	Status() []CredentialStatus

	// CheckCredentials verifies the named services (all when empty) and
	// joins every *domain.MissingCredentialsError found.
	CheckCredentials(names ...string) error
}

// CredentialStatus lists the missing credentials of one service.
type CredentialStatus struct {
	Service string
	Missing []string
}

// Ready reports whether every required credential is present.
func (s CredentialStatus) Ready() bool {
	return len(s.Missing) == 0
}
