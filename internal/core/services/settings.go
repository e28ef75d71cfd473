package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	KeyHandshakeTimeout = "session.handshake_timeout"
	KeyTerminateTimeout = "session.terminate_timeout"
	KeyHistoryEnabled   = "history.enabled"
	KeyWorkflowSchema   = "workflow.schema"
	KeyWorkflowRegion   = "workflow.region"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings. Timeouts are stored as
// whole seconds.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Session: domain.SessionSettings{
			HandshakeTimeout: s.getSeconds(KeyHandshakeTimeout, defaults.Session.HandshakeTimeout),
			TerminateTimeout: s.getSeconds(KeyTerminateTimeout, defaults.Session.TerminateTimeout),
		},
		History: domain.HistorySettings{
			Enabled: s.getBool(KeyHistoryEnabled, defaults.History.Enabled),
		},
		Workflow: domain.WorkflowSettings{
			Schema: s.configStore.GetString(KeyWorkflowSchema),
			Region: s.configStore.GetString(KeyWorkflowRegion),
		},
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	if err := s.configStore.Set(KeyHandshakeTimeout, int(settings.Session.HandshakeTimeout/time.Second)); err != nil {
		return fmt.Errorf("save handshake timeout: %w", err)
	}
	if err := s.configStore.Set(KeyTerminateTimeout, int(settings.Session.TerminateTimeout/time.Second)); err != nil {
		return fmt.Errorf("save terminate timeout: %w", err)
	}
	if err := s.configStore.Set(KeyHistoryEnabled, settings.History.Enabled); err != nil {
		return fmt.Errorf("save history enabled: %w", err)
	}
	if err := s.configStore.Set(KeyWorkflowSchema, settings.Workflow.Schema); err != nil {
		return fmt.Errorf("save workflow schema: %w", err)
	}
	if err := s.configStore.Set(KeyWorkflowRegion, settings.Workflow.Region); err != nil {
		return fmt.Errorf("save workflow region: %w", err)
	}

	return s.configStore.Save()
}

// Set updates one setting from its string form.
func (s *SettingsService) Set(key, value string) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	switch key {
	case KeyHandshakeTimeout:
		d, err := parseSeconds(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		settings.Session.HandshakeTimeout = d
	case KeyTerminateTimeout:
		d, err := parseSeconds(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		settings.Session.TerminateTimeout = d
	case KeyHistoryEnabled:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: expected true or false, got %q", key, value)
		}
		settings.History.Enabled = b
	case KeyWorkflowSchema:
		settings.Workflow.Schema = value
	case KeyWorkflowRegion:
		settings.Workflow.Region = strings.TrimSpace(value)
	default:
		return fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(s.Keys(), ", "))
	}

	return s.Save(settings)
}

// Keys returns the setting keys accepted by Set.
func (s *SettingsService) Keys() []string {
	return []string{
		KeyHandshakeTimeout,
		KeyTerminateTimeout,
		KeyHistoryEnabled,
		KeyWorkflowSchema,
		KeyWorkflowRegion,
	}
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return time.Duration(s.configStore.GetInt(key)) * time.Second
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func parseSeconds(value string) (time.Duration, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("expected whole seconds, got %q", value)
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative, got %d", n)
	}
	return time.Duration(n) * time.Second, nil
}
