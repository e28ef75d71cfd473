package driving

import (
	"context"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
)

// ServiceValidator checks that tool servers start and answer without
// mutating any external state.
type ServiceValidator interface {
	// Validate opens a session per service, lists its tools and releases it.
	// A failing service is reported in its ServiceCheck and does not stop
	// the pass. With no names, every known service is checked.
	// Returns an error only for unknown service names.
	Validate(ctx context.Context, names ...string) ([]domain.ServiceCheck, error)
}
