package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driving"
	"github.com/custodia-labs/stackup-cli/internal/logger"
)

// Ensure ValidationService implements the interface.
var _ driving.ServiceValidator = (*ValidationService)(nil)

// ValidationService checks that tool servers start and list their tools.
// It never calls a tool, so no external state changes.
type ValidationService struct {
	catalog     *Catalog
	checker     *PreconditionChecker
	connector   driven.ToolServerConnector
	env         driven.Environment
	invoker     *ToolInvoker
	sessionOpts []SessionOption
}

// NewValidationService creates a validation service.
func NewValidationService(
	catalog *Catalog,
	checker *PreconditionChecker,
	connector driven.ToolServerConnector,
	env driven.Environment,
	opts ...SessionOption,
) *ValidationService {
	return &ValidationService{
		catalog:     catalog,
		checker:     checker,
		connector:   connector,
		env:         env,
		invoker:     NewToolInvoker(),
		sessionOpts: opts,
	}
}

// Validate checks each named service (all when empty) in order. A failing
// service is recorded and the pass continues.
func (v *ValidationService) Validate(ctx context.Context, names ...string) ([]domain.ServiceCheck, error) {
	descs, err := v.catalog.Resolve(names...)
	if err != nil {
		return nil, err
	}

	sessions := NewSessionManager("validate-"+uuid.New().String(), v.connector, v.env, v.sessionOpts...)
	logger.Section("Validating tool servers")

	checks := make([]domain.ServiceCheck, 0, len(descs))
	for _, desc := range descs {
		check := v.check(ctx, sessions, desc)
		if check.OK {
			logger.Info("%s is live with %d tools", desc.Name(), len(check.Tools))
		} else {
			logger.Warn("%s failed: %v", desc.Name(), check.Err)
		}
		checks = append(checks, check)
	}
	return checks, nil
}

func (v *ValidationService) check(
	ctx context.Context,
	sessions *SessionManager,
	desc domain.ServiceDescriptor,
) domain.ServiceCheck {
	check := domain.ServiceCheck{Service: desc.Name()}

	if err := v.checker.Verify(desc); err != nil {
		check.Err = err
		return check
	}

	err := sessions.WithSession(ctx, desc, nil, func(ctx context.Context, s *Session) error {
		tools, err := v.invoker.ListTools(ctx, s)
		check.Tools = tools
		return err
	})
	if err != nil {
		check.Err = err
		return check
	}

	check.OK = true
	return check
}
