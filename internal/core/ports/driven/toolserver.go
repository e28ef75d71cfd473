package driven

import (
	"context"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
)

// LaunchSpec describes one tool-server subprocess to start.
type LaunchSpec struct {
	// Service is the owning service name, used for diagnostics.
	Service string

	// Command is the executable to run.
	Command string

	// Args are the command arguments.
	Args []string

	// Env is the complete subprocess environment in KEY=VALUE form.
	Env []string
}

// ToolServerConnector starts tool servers and completes their handshake.
type ToolServerConnector interface {
	// Connect starts the subprocess and performs the initialisation handshake.
	// Errors wrap domain.ErrLaunchFailure when the process could not be
	// started and domain.ErrHandshakeFailure when initialisation failed.
	// Cancelling ctx aborts the launch and the handshake.
	Connect(ctx context.Context, spec LaunchSpec) (ToolServerConn, error)
}

// ToolServerConn is an open request/response channel to one tool server.
type ToolServerConn interface {
	// ListTools returns the tools the server advertises.
	ListTools(ctx context.Context) ([]domain.ToolInfo, error)

	// CallTool performs exactly one request/response exchange.
	// A result with IsError set is returned without an error.
	CallTool(ctx context.Context, name string, args map[string]any) (*domain.ToolResult, error)

	// Close closes the channel and terminates the subprocess.
	Close() error
}
