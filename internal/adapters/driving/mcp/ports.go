package mcp

import (
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Workflow runs the provisioning workflow.
	Workflow driving.WorkflowRunner

	// Catalog lists the known services.
	Catalog driving.CatalogService

	// Validator checks tool servers. Optional.
	Validator driving.ServiceValidator

	// History reads past runs. Optional.
	History driving.HistoryService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Workflow == nil {
		return ErrMissingWorkflowService
	}
	if p.Catalog == nil {
		return ErrMissingCatalogService
	}
	return nil
}
