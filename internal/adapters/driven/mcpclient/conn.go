package mcpclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stackup-cli/internal/logger"
)

var _ driven.ToolServerConn = (*conn)(nil)

// killGrace bounds the wait for the session to wind down after a kill.
const killGrace = 2 * time.Second

// conn is one initialised MCP client session.
type conn struct {
	service   string
	cs        *mcp.ClientSession
	proc      *process
	terminate time.Duration
}

// ListTools returns every advertised tool, following pagination.
func (c *conn) ListTools(ctx context.Context) ([]domain.ToolInfo, error) {
	var tools []domain.ToolInfo
	for tool, err := range c.cs.Tools(ctx, nil) {
		if err != nil {
			return nil, err
		}
		tools = append(tools, domain.ToolInfo{Name: tool.Name, Description: tool.Description})
	}
	return tools, nil
}

// CallTool performs one tools/call round trip.
func (c *conn) CallTool(ctx context.Context, name string, args map[string]any) (*domain.ToolResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	res, err := c.cs.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	return convertResult(res)
}

// Close ends the session and terminates the tool server. The SDK waits for
// in-flight calls before it closes stdin, so a server stuck in a call would
// hold Close forever; after the terminate timeout the process is killed,
// which ends the read loop and lets the close finish.
func (c *conn) Close() error {
	done := make(chan error, 1)
	go func() { done <- c.cs.Close() }()

	var err error
	select {
	case err = <-done:
	case <-time.After(c.terminate):
		if c.proc == nil {
			return fmt.Errorf("%s: session did not close within %s", c.service, c.terminate)
		}
		logger.Warn("%s: tool server did not shut down within %s, killing it", c.service, c.terminate)
		c.proc.kill()
		select {
		case err = <-done:
		case <-time.After(killGrace):
			return fmt.Errorf("%s: tool server did not exit after kill", c.service)
		}
	}

	// A server that exits on stdin close reports a closed connection, and
	// one we killed reports its signal.
	if errors.Is(err, mcp.ErrConnectionClosed) || c.proc.wasKilled() {
		return nil
	}
	return err
}

// convertResult keeps text blocks and structured content. Other content
// kinds (images, audio, resources) carry nothing the workflow consumes.
func convertResult(res *mcp.CallToolResult) (*domain.ToolResult, error) {
	out := &domain.ToolResult{IsError: res.IsError}
	for _, content := range res.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			out.Text = append(out.Text, text.Text)
		}
	}
	if res.StructuredContent != nil {
		v, err := domain.FromNative(res.StructuredContent)
		if err != nil {
			return nil, err
		}
		out.Structured = v
	}
	return out, nil
}
