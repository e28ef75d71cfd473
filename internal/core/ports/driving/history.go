package driving

import (
	"context"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
)

// HistoryService reads past run reports.
type HistoryService interface {
	// List returns the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]*domain.RunReport, error)

	// Get returns one run by ID.
	Get(ctx context.Context, id string) (*domain.RunReport, error)
}
