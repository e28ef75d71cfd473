package services

import (
	"context"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driving"
)

// Ensure HistoryService implements the interface.
var _ driving.HistoryService = (*HistoryService)(nil)

// defaultHistoryLimit applies when List is called with limit <= 0.
const defaultHistoryLimit = 20

// HistoryService reads past run reports.
type HistoryService struct {
	store driven.RunHistoryStore
}

// NewHistoryService creates a history service. store may be nil, in which
// case every call fails with domain.ErrHistoryDisabled.
func NewHistoryService(store driven.RunHistoryStore) *HistoryService {
	return &HistoryService{store: store}
}

// List returns the most recent runs, newest first.
func (s *HistoryService) List(ctx context.Context, limit int) ([]*domain.RunReport, error) {
	if s.store == nil {
		return nil, domain.ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.List(ctx, limit)
}

// Get returns one run by ID.
func (s *HistoryService) Get(ctx context.Context, id string) (*domain.RunReport, error) {
	if s.store == nil {
		return nil, domain.ErrHistoryDisabled
	}
	return s.store.Get(ctx, id)
}
