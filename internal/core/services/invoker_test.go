package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
)

func openSession(t *testing.T, connector *fakeConnector, service string) (*SessionManager, *Session) {
	t.Helper()
	m := NewSessionManager("run-1", connector, allCredentials())
	s, err := m.Acquire(context.Background(), service, "npx", nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Release(s) })
	return m, s
}

func TestToolInvoker_Invoke_Success(t *testing.T) {
	connector := referenceServers()
	_, s := openSession(t, connector, ServiceGitHub)

	res, err := NewToolInvoker().Invoke(context.Background(), s, "create_repository",
		domain.Map(map[string]domain.Value{"name": domain.String("acme"), "private": domain.Bool(true)}))

	require.NoError(t, err)
	v, ok := res.Lookup("full_name")
	require.True(t, ok)
	assert.Equal(t, "octo/acme", v.Text())

	c, ok := connector.callTo(ServiceGitHub)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"name": "acme", "private": true}, c.Args)
}

func TestToolInvoker_Invoke_NullArgsSendsEmptyMap(t *testing.T) {
	connector := referenceServers()
	_, s := openSession(t, connector, ServiceSupabase)

	_, err := NewToolInvoker().Invoke(context.Background(), s, "apply_migration", domain.Null())

	require.NoError(t, err)
	c, _ := connector.callTo(ServiceSupabase)
	assert.Equal(t, map[string]any{}, c.Args)
}

func TestToolInvoker_Invoke_NonMapArgs(t *testing.T) {
	connector := referenceServers()
	_, s := openSession(t, connector, ServiceSupabase)

	_, err := NewToolInvoker().Invoke(context.Background(), s, "apply_migration", domain.String("SELECT 1"))

	assert.ErrorIs(t, err, domain.ErrToolInvocation)
	assert.ErrorIs(t, err, domain.ErrInvalidArguments)
	assert.Empty(t, connector.recordedCalls())
}

func TestToolInvoker_Invoke_ToolReportedError(t *testing.T) {
	connector := newFakeConnector().serve(ServiceNeon,
		newFakeServer().on("create_project", toolError("project limit reached")))
	_, s := openSession(t, connector, ServiceNeon)

	_, err := NewToolInvoker().Invoke(context.Background(), s, "create_project", domain.Null())

	require.ErrorIs(t, err, domain.ErrToolInvocation)
	var tie *domain.ToolInvocationError
	require.ErrorAs(t, err, &tie)
	assert.Equal(t, "create_project", tie.Tool)
	assert.Contains(t, err.Error(), "project limit reached")
}

func TestToolInvoker_Invoke_ToolReportedErrorWithoutText(t *testing.T) {
	connector := newFakeConnector().serve(ServiceNeon,
		newFakeServer().on("create_project", toolError("")))
	_, s := openSession(t, connector, ServiceNeon)

	_, err := NewToolInvoker().Invoke(context.Background(), s, "create_project", domain.Null())

	assert.ErrorContains(t, err, "tool reported an error")
}

func TestToolInvoker_Invoke_TransportError(t *testing.T) {
	broken := errors.New("broken pipe")
	connector := newFakeConnector().serve(ServiceNeon,
		newFakeServer().on("create_project", transportError(broken)))
	_, s := openSession(t, connector, ServiceNeon)

	_, err := NewToolInvoker().Invoke(context.Background(), s, "create_project", domain.Null())

	assert.ErrorIs(t, err, domain.ErrToolInvocation)
	assert.ErrorIs(t, err, broken)
}

func TestToolInvoker_Invoke_ReleasedSession(t *testing.T) {
	connector := referenceServers()
	m, s := openSession(t, connector, ServiceNeon)
	require.NoError(t, m.Release(s))

	_, err := NewToolInvoker().Invoke(context.Background(), s, "create_project", domain.Null())

	assert.ErrorIs(t, err, domain.ErrSessionNotOpen)
	assert.Empty(t, connector.recordedCalls())
}

func TestToolInvoker_ListTools(t *testing.T) {
	connector := referenceServers()
	m, s := openSession(t, connector, ServiceVercel)
	invoker := NewToolInvoker()

	tools, err := invoker.ListTools(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []domain.ToolInfo{{Name: "create_deployment"}}, tools)

	require.NoError(t, m.Release(s))
	_, err = invoker.ListTools(context.Background(), s)
	assert.ErrorIs(t, err, domain.ErrSessionNotOpen)
}
