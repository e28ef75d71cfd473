package driven

import (
	"context"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
)

// RunHistoryStore is an append-only ledger of orchestration run reports.
// It is never used to resume a run.
type RunHistoryStore interface {
	// Save stores a run report. Secret outputs must not be persisted.
	Save(ctx context.Context, report *domain.RunReport) error

	// Get retrieves a report by run ID.
	// Returns domain.ErrNotFound if the run does not exist.
	Get(ctx context.Context, id string) (*domain.RunReport, error)

	// List returns the most recent reports, newest first.
	List(ctx context.Context, limit int) ([]*domain.RunReport, error)
}
