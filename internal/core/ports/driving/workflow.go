package driving

import (
	"context"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
)

// WorkflowRunner executes provisioning workflows.
type WorkflowRunner interface {
	// RunFullStack provisions a repository, a database, its schema and a
	// deployment for one project. Every involved service's credentials are
	// checked before anything is contacted. On failure the returned report
	// is still populated and the error is a *domain.StepError.
	RunFullStack(ctx context.Context, req FullStackRequest) (*domain.RunReport, error)
}

// FullStackRequest parameterises the full-stack workflow.
type FullStackRequest struct {
	// Project names the repository, database project and deployment.
	Project string

	// Description is the repository description. Optional.
	Description string

	// Private creates a private repository.
	Private bool

	// Region is the database region. Empty uses the provider default.
	Region string

	// Schema is the migration SQL. Empty uses the configured default.
	Schema string

	// Observer receives every state transition. Optional.
	Observer func(domain.Transition)
}
