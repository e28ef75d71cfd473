package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stackup-cli/internal/adapters/driven/env"
	"github.com/custodia-labs/stackup-cli/internal/adapters/driven/mcpclient"
	"github.com/custodia-labs/stackup-cli/internal/adapters/driven/mcpclient/mcptest"
	"github.com/custodia-labs/stackup-cli/internal/core/domain"
)

func TestMain(m *testing.M) {
	mcptest.Main()
	os.Exit(m.Run())
}

func processManager() *SessionManager {
	connector := mcpclient.NewConnector("stackup-test", "dev",
		mcpclient.WithTerminateTimeout(200*time.Millisecond))
	return NewSessionManager("run-proc", connector, env.OS{}, WithHandshakeTimeout(5*time.Second))
}

func processDescriptor(server *mcptest.Server) domain.ServiceDescriptor {
	return domain.NewServiceDescriptor(domain.ServiceSpec{
		Name:    ServiceNeon,
		Command: server.Command,
		Args:    server.Args,
		Env:     server.Env,
	})
}

func requireServerExited(t *testing.T, server *mcptest.Server) {
	t.Helper()
	require.Eventually(t, func() bool { return server.Exited(t) }, 5*time.Second, 20*time.Millisecond,
		"tool server process is still running")
}

func TestWithSession_Process_ReleasesOnReturn(t *testing.T) {
	server := mcptest.New(t, mcptest.Cooperative)
	m := processManager()
	invoker := NewToolInvoker()

	var text []string
	err := m.WithSession(context.Background(), processDescriptor(server), nil, func(ctx context.Context, s *Session) error {
		res, err := invoker.Invoke(ctx, s, mcptest.ToolEcho, domain.Map(map[string]domain.Value{
			"text": domain.String("ok"),
		}))
		if err != nil {
			return err
		}
		text = res.Text
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, text)
	assert.Empty(t, m.Active())
	requireServerExited(t, server)
}

func TestWithSession_Process_ReleasesAfterToolError(t *testing.T) {
	server := mcptest.New(t, mcptest.Cooperative)
	m := processManager()
	invoker := NewToolInvoker()

	err := m.WithSession(context.Background(), processDescriptor(server), nil, func(ctx context.Context, s *Session) error {
		_, err := invoker.Invoke(ctx, s, mcptest.ToolFail, domain.Null())
		return err
	})

	require.ErrorIs(t, err, domain.ErrToolInvocation)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Empty(t, m.Active())
	requireServerExited(t, server)
}

func TestWithSession_Process_ReleasesOnCancellation(t *testing.T) {
	server := mcptest.New(t, mcptest.Stubborn)
	m := processManager()
	invoker := NewToolInvoker()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.WithSession(ctx, processDescriptor(server), nil, func(ctx context.Context, s *Session) error {
			_, err := invoker.Invoke(ctx, s, mcptest.ToolHang, domain.Null())
			return err
		})
	}()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, domain.ErrToolInvocation)
	case <-time.After(15 * time.Second):
		t.Fatal("session was not released on cancellation")
	}
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Empty(t, m.Active())
	requireServerExited(t, server)
}

func TestWithSession_Process_HandshakeTimeout(t *testing.T) {
	server := mcptest.New(t, mcptest.Silent)
	connector := mcpclient.NewConnector("stackup-test", "dev",
		mcpclient.WithTerminateTimeout(200*time.Millisecond))
	m := NewSessionManager("run-proc", connector, env.OS{}, WithHandshakeTimeout(500*time.Millisecond))

	called := false
	start := time.Now()
	err := m.WithSession(context.Background(), processDescriptor(server), nil, func(context.Context, *Session) error {
		called = true
		return nil
	})

	require.ErrorIs(t, err, domain.ErrHandshakeFailure)
	assert.False(t, called)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Empty(t, m.Active())
	requireServerExited(t, server)
}
