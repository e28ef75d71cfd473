package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stackup-cli/internal/logger"
)

// Session is an open, single-owner channel to one service's tool server.
// It is only usable between acquisition and release.
type Session struct {
	service string
	runID   string
	conn    driven.ToolServerConn

	mu       sync.RWMutex
	open     bool
	once     sync.Once
	closeErr error
}

// Service returns the owning service name.
func (s *Session) Service() string { return s.service }

// RunID returns the run the session belongs to.
func (s *Session) RunID() string { return s.runID }

// IsOpen reports whether the session has not been released.
func (s *Session) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

// channel returns the connection while the session is open.
func (s *Session) channel() (driven.ToolServerConn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotOpen, s.service)
	}
	return s.conn, nil
}

// close marks the session released and terminates the tool server once.
func (s *Session) close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.open = false
		s.mu.Unlock()
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithHandshakeTimeout bounds launch plus handshake. Zero means no bound
// beyond the caller's context.
func WithHandshakeTimeout(d time.Duration) SessionOption {
	return func(m *SessionManager) {
		m.handshakeTimeout = d
	}
}

// SessionManager owns the sessions of one orchestration run. At most one
// session per service name is registered at a time. Independent runs use
// independent managers.
type SessionManager struct {
	runID            string
	connector        driven.ToolServerConnector
	env              driven.Environment
	handshakeTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*Session // nil entry: launch in progress
}

// NewSessionManager creates a manager for one run.
func NewSessionManager(
	runID string,
	connector driven.ToolServerConnector,
	env driven.Environment,
	opts ...SessionOption,
) *SessionManager {
	m := &SessionManager{
		runID:     runID,
		connector: connector,
		env:       env,
		sessions:  make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunID returns the run the manager belongs to.
func (m *SessionManager) RunID() string { return m.runID }

// Acquire starts the tool server for name, completes the handshake and
// registers the session. The subprocess environment is the ambient
// environment merged with extraEnv; extraEnv wins on collisions.
// A second acquisition for a registered name fails with
// domain.ErrSessionConflict and leaves the existing session untouched.
// Callers must Release the session; prefer WithSession.
func (m *SessionManager) Acquire(
	ctx context.Context,
	name, command string,
	args []string,
	extraEnv map[string]string,
) (*Session, error) {
	if err := m.reserve(name); err != nil {
		return nil, err
	}

	spec := driven.LaunchSpec{
		Service: name,
		Command: command,
		Args:    slices.Clone(args),
		Env:     mergeEnv(m.env.Environ(), extraEnv),
	}

	connectCtx := ctx
	if m.handshakeTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, m.handshakeTimeout)
		defer cancel()
	}

	logger.Debug("run %s: starting %s: %s %s", m.runID, name, command, strings.Join(args, " "))

	conn, err := m.connector.Connect(connectCtx, spec)
	if err != nil {
		m.deregister(name, nil)
		if !errors.Is(err, domain.ErrLaunchFailure) && !errors.Is(err, domain.ErrHandshakeFailure) {
			err = fmt.Errorf("%w: %w", domain.ErrHandshakeFailure, err)
		}
		return nil, fmt.Errorf("acquire %s: %w", name, err)
	}

	s := &Session{service: name, runID: m.runID, conn: conn, open: true}

	m.mu.Lock()
	m.sessions[name] = s
	m.mu.Unlock()

	logger.Debug("run %s: session %s open", m.runID, name)
	return s, nil
}

// Open acquires a session from a descriptor. The descriptor's own
// environment is applied first, then overrides.
func (m *SessionManager) Open(
	ctx context.Context,
	desc domain.ServiceDescriptor,
	overrides map[string]string,
) (*Session, error) {
	env := desc.Env()
	if env == nil {
		env = make(map[string]string, len(overrides))
	}
	maps.Copy(env, overrides)
	return m.Acquire(ctx, desc.Name(), desc.Command(), desc.Args(), env)
}

// Release closes the session, terminates its tool server and deregisters
// the name. Releasing twice is a no-op.
func (m *SessionManager) Release(s *Session) error {
	if s == nil {
		return nil
	}
	err := s.close()
	m.deregister(s.service, s)
	logger.Debug("run %s: session %s released", m.runID, s.service)
	return err
}

// WithSession acquires a session for desc, runs fn and releases the
// session on every exit path. Cancelling ctx releases the session
// immediately, even while fn is still blocked on the tool server.
func (m *SessionManager) WithSession(
	ctx context.Context,
	desc domain.ServiceDescriptor,
	overrides map[string]string,
	fn func(ctx context.Context, s *Session) error,
) error {
	s, err := m.Open(ctx, desc, overrides)
	if err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		logger.Warn("run %s: %s cancelled, releasing session", m.runID, s.service)
		_ = m.Release(s)
	})
	defer func() {
		stop()
		if err := m.Release(s); err != nil {
			logger.Warn("run %s: releasing %s: %v", m.runID, s.service, err)
		}
	}()

	return fn(ctx, s)
}

// Registered reports whether a session (or a launch) is registered under name.
func (m *SessionManager) Registered(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[name]
	return ok
}

// Active returns the registered names, sorted.
func (m *SessionManager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.sessions))
}

// reserve claims name before launching so concurrent acquisitions conflict.
func (m *SessionManager) reserve(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[name]; exists {
		return fmt.Errorf("%w: %s in run %s", domain.ErrSessionConflict, name, m.runID)
	}
	m.sessions[name] = nil
	return nil
}

// deregister removes name if it still maps to s.
func (m *SessionManager) deregister(name string, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.sessions[name]; ok && current == s {
		delete(m.sessions, name)
	}
}

// mergeEnv overlays layers onto base. Later layers win. The result is sorted.
func mergeEnv(base []string, layers ...map[string]string) []string {
	merged := make(map[string]string, len(base))
	for _, kv := range base {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		merged[key] = value
	}
	for _, layer := range layers {
		maps.Copy(merged, layer)
	}

	out := make([]string, 0, len(merged))
	for _, key := range slices.Sorted(maps.Keys(merged)) {
		out = append(out, key+"="+merged[key])
	}
	return out
}
