package mcpclient

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stackup-cli/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.ToolServerConnector = (*Connector)(nil)

// TransportFactory builds the transport for one launch.
type TransportFactory func(spec driven.LaunchSpec) mcp.Transport

// Option configures a Connector.
type Option func(*Connector)

// WithTerminateTimeout sets how long a tool server may take to exit after
// its stdin is closed before it is signalled.
func WithTerminateTimeout(d time.Duration) Option {
	return func(c *Connector) {
		c.terminate = d
	}
}

// WithTransportFactory replaces subprocess launching. Used by tests to
// connect to in-memory servers.
func WithTransportFactory(f TransportFactory) Option {
	return func(c *Connector) {
		c.transport = f
	}
}

// defaultTerminate matches the SDK's own wait after closing stdin.
const defaultTerminate = 5 * time.Second

// Connector launches tool servers as subprocesses speaking MCP over stdio.
type Connector struct {
	impl      *mcp.Implementation
	terminate time.Duration
	transport TransportFactory
}

// NewConnector creates a connector that identifies itself as name/version
// during the handshake.
func NewConnector(name, version string, opts ...Option) *Connector {
	c := &Connector{
		impl:      &mcp.Implementation{Name: name, Version: version},
		terminate: defaultTerminate,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.terminate <= 0 {
		c.terminate = defaultTerminate
	}
	return c
}

// Connect starts the tool server and completes the MCP initialize
// handshake. Start errors wrap domain.ErrLaunchFailure; anything after the
// process is running wraps domain.ErrHandshakeFailure. When ctx ends
// before the handshake completes the process is killed, so Connect
// returns without waiting for the server to exit on its own.
func (c *Connector) Connect(ctx context.Context, spec driven.LaunchSpec) (driven.ToolServerConn, error) {
	transport, proc := c.newTransport(spec)
	lt := &launchTracker{inner: transport, proc: proc}
	client := mcp.NewClient(c.impl, nil)

	stopKill := context.AfterFunc(ctx, proc.kill)

	started := time.Now()
	cs, err := client.Connect(ctx, lt, nil)
	if !stopKill() && err == nil {
		// ctx ended right as the handshake finished; the process is gone.
		_ = (&conn{service: spec.Service, cs: cs, proc: proc, terminate: c.terminate}).Close()
		err = ctx.Err()
	}
	if err != nil {
		if lt.err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrLaunchFailure, commandLine(spec), lt.err)
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrHandshakeFailure, spec.Service, err)
	}

	if res := cs.InitializeResult(); res != nil && res.ServerInfo != nil {
		logger.Debug("%s: connected to %s %s in %s", spec.Service,
			res.ServerInfo.Name, res.ServerInfo.Version, time.Since(started).Round(time.Millisecond))
	}
	return &conn{service: spec.Service, cs: cs, proc: proc, terminate: c.terminate}, nil
}

// newTransport returns the transport for spec. Subprocess launches also
// return the process handle; injected transports have none.
func (c *Connector) newTransport(spec driven.LaunchSpec) (mcp.Transport, *process) {
	if c.transport != nil {
		return c.transport(spec), nil
	}

	// The process is not bound to ctx; it lives until the session is closed.
	cmd := exec.Command(spec.Command, spec.Args...) //nolint:gosec // command comes from the service catalog
	cmd.Env = spec.Env
	cmd.Stderr = logger.Writer(spec.Service)
	return &mcp.CommandTransport{
		Command:           cmd,
		TerminateDuration: c.terminate,
	}, newProcess(cmd)
}

// launchTracker records whether the transport itself failed to connect,
// which for a command transport means the process never started.
type launchTracker struct {
	inner mcp.Transport
	proc  *process
	err   error
}

func (t *launchTracker) Connect(ctx context.Context) (mcp.Connection, error) {
	conn, err := t.inner.Connect(ctx)
	if err != nil {
		t.err = err
		return nil, err
	}
	t.proc.markStarted()
	return conn, nil
}

func commandLine(spec driven.LaunchSpec) string {
	if len(spec.Args) == 0 {
		return spec.Command
	}
	return spec.Command + " " + strings.Join(spec.Args, " ")
}
