package domain

import (
	"fmt"
	"time"
)

// Default setting values.
const (
	DefaultHandshakeTimeout = 60 * time.Second
	DefaultTerminateTimeout = 5 * time.Second
)

// SessionSettings bound tool server lifetimes.
type SessionSettings struct {
	// HandshakeTimeout bounds launch plus initialisation. Zero means only
	// the caller's context applies.
	HandshakeTimeout time.Duration

	// TerminateTimeout is how long a tool server may take to exit after its
	// input is closed before it is killed.
	TerminateTimeout time.Duration
}

// HistorySettings control the run ledger.
type HistorySettings struct {
	Enabled bool
}

// WorkflowSettings are defaults for the reference workflow.
type WorkflowSettings struct {
	// Schema is the migration SQL applied in the schema step. Empty means
	// the built-in default.
	Schema string

	// Region is the database region. Empty lets the provider choose.
	Region string
}

// AppSettings holds all persisted settings.
type AppSettings struct {
	Session  SessionSettings
	History  HistorySettings
	Workflow WorkflowSettings
}

// DefaultAppSettings returns settings used when nothing is configured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Session: SessionSettings{
			HandshakeTimeout: DefaultHandshakeTimeout,
			TerminateTimeout: DefaultTerminateTimeout,
		},
		History: HistorySettings{Enabled: true},
	}
}

// Validate rejects negative durations.
func (s AppSettings) Validate() error {
	if s.Session.HandshakeTimeout < 0 {
		return fmt.Errorf("handshake timeout must not be negative: %s", s.Session.HandshakeTimeout)
	}
	if s.Session.TerminateTimeout < 0 {
		return fmt.Errorf("terminate timeout must not be negative: %s", s.Session.TerminateTimeout)
	}
	return nil
}
