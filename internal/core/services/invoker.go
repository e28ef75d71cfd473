package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
	"github.com/custodia-labs/stackup-cli/internal/logger"
)

// ToolInvoker performs single tool calls over open sessions.
// It never retries and does not interpret results.
type ToolInvoker struct{}

// NewToolInvoker creates a tool invoker.
func NewToolInvoker() *ToolInvoker {
	return &ToolInvoker{}
}

// Invoke performs one request/response exchange. args must be a map (or
// null, sent as an empty map). Any failure, including a result flagged as
// an error by the server, is a *domain.ToolInvocationError. A released
// session fails with domain.ErrSessionNotOpen.
func (i *ToolInvoker) Invoke(
	ctx context.Context,
	s *Session,
	tool string,
	args domain.Value,
) (*domain.ToolResult, error) {
	conn, err := s.channel()
	if err != nil {
		return nil, err
	}

	if args.IsNull() {
		args = domain.Map(nil)
	}
	if args.Kind() != domain.KindMap {
		return nil, &domain.ToolInvocationError{
			Tool:  tool,
			Cause: fmt.Errorf("%w: expected map, got %s", domain.ErrInvalidArguments, args.Kind()),
		}
	}
	native, _ := args.Native().(map[string]any)

	logger.Debug("run %s: calling %s.%s with keys %v", s.runID, s.service, tool, args.Keys())

	result, err := conn.CallTool(ctx, tool, native)
	if err != nil {
		return nil, &domain.ToolInvocationError{Tool: tool, Cause: err}
	}
	if result.IsError {
		msg := result.Message()
		if msg == "" {
			msg = "tool reported an error"
		}
		return nil, &domain.ToolInvocationError{Tool: tool, Cause: errors.New(msg)}
	}
	return result, nil
}

// ListTools returns the tools advertised over an open session.
func (i *ToolInvoker) ListTools(ctx context.Context, s *Session) ([]domain.ToolInfo, error) {
	conn, err := s.channel()
	if err != nil {
		return nil, err
	}

	tools, err := conn.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tools on %s: %w", s.service, err)
	}
	return tools, nil
}
