package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driving"
)

// mockWorkflowRunner is a mock implementation of driving.WorkflowRunner.
type mockWorkflowRunner struct {
	report      *domain.RunReport
	err         error
	req         driving.FullStackRequest
	transitions []domain.Transition
}

func (m *mockWorkflowRunner) RunFullStack(_ context.Context, req driving.FullStackRequest) (*domain.RunReport, error) {
	m.req = req
	if req.Observer != nil {
		for _, t := range m.transitions {
			req.Observer(t)
		}
	}
	return m.report, m.err
}

// mockValidator is a mock implementation of driving.ServiceValidator.
type mockValidator struct {
	checks []domain.ServiceCheck
	err    error
	names  []string
}

func (m *mockValidator) Validate(_ context.Context, names ...string) ([]domain.ServiceCheck, error) {
	m.names = names
	return m.checks, m.err
}

// mockCatalogService is a mock implementation of driving.CatalogService.
type mockCatalogService struct {
	descs  []domain.ServiceDescriptor
	status []driving.CredentialStatus
}

func (m *mockCatalogService) List() []domain.ServiceDescriptor { return m.descs }

func (m *mockCatalogService) Get(name string) (domain.ServiceDescriptor, error) {
	for _, d := range m.descs {
		if d.Name() == name {
			return d, nil
		}
	}
	return domain.ServiceDescriptor{}, domain.ErrUnknownService
}

func (m *mockCatalogService) Status() []driving.CredentialStatus { return m.status }

func (m *mockCatalogService) CheckCredentials(...string) error { return nil }

// mockHistoryService is a mock implementation of driving.HistoryService.
type mockHistoryService struct {
	reports []*domain.RunReport
	err     error
	limit   int
}

func (m *mockHistoryService) List(_ context.Context, limit int) ([]*domain.RunReport, error) {
	m.limit = limit
	return m.reports, m.err
}

func (m *mockHistoryService) Get(_ context.Context, id string) (*domain.RunReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, r := range m.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings domain.AppSettings
	setKey   string
	setValue string
	setErr   error
	saved    *domain.AppSettings
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.saved = s
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	m.setKey, m.setValue = key, value
	return m.setErr
}

func (m *mockSettingsService) Keys() []string {
	return []string{"session.handshake_timeout", "history.enabled"}
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	workflow  *mockWorkflowRunner
	validator *mockValidator
	catalog   *mockCatalogService
	history   *mockHistoryService
	settings  *mockSettingsService
}

// setupTestServices installs mock services and returns a cleanup function
// restoring the previous ones and the flag defaults.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		workflow:  &mockWorkflowRunner{report: completedReport()},
		validator: &mockValidator{},
		catalog: &mockCatalogService{
			descs: []domain.ServiceDescriptor{
				domain.NewServiceDescriptor(domain.ServiceSpec{
					Name: "github", Command: "npx", Args: []string{"-y", "@modelcontextprotocol/server-github"},
					Credentials: []string{"GITHUB_PERSONAL_ACCESS_TOKEN"},
				}),
				domain.NewServiceDescriptor(domain.ServiceSpec{
					Name: "neon", Command: "npx", Args: []string{"-y", "@neondatabase/mcp-server"},
					Credentials: []string{"NEON_API_KEY"},
				}),
			},
			status: []driving.CredentialStatus{
				{Service: "github"},
				{Service: "neon", Missing: []string{"NEON_API_KEY"}},
			},
		},
		history:  &mockHistoryService{},
		settings: &mockSettingsService{settings: domain.DefaultAppSettings()},
	}

	origWorkflow, origValidation, origCatalog := workflowService, validationService, catalogService
	origHistory, origSettings := historyService, settingsService

	SetServices(Services{
		Workflow:   ts.workflow,
		Validation: ts.validator,
		Catalog:    ts.catalog,
		History:    ts.history,
		Settings:   ts.settings,
	})

	return ts, func() {
		workflowService, validationService, catalogService = origWorkflow, origValidation, origCatalog
		historyService, settingsService = origHistory, origSettings
		resetFlags()
	}
}

// resetFlags restores package flag variables between executions.
func resetFlags() {
	verbose = false
	runDescription, runPrivate, runRegion, runSchemaFile, runJSON = "", false, "", "", false
	historyLimit, historyJSON = 20, false
}

// executeCommand runs rootCmd with args and returns everything it printed.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		resetFlags()
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func completedReport() *domain.RunReport {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.RunReport{
		ID:         "run-1",
		Workflow:   "full-stack",
		Project:    "acme",
		State:      domain.RunCompleted,
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Steps: []domain.StepReport{
			{Number: 1, Name: "Create repository", Service: "github", Tool: "create_repository", Status: domain.StepSucceeded, Phase: domain.PhaseDone},
			{Number: 2, Name: "Provision database", Service: "neon", Tool: "create_project", Status: domain.StepSucceeded, Phase: domain.PhaseDone},
		},
		Outputs: []domain.Output{
			{Service: "github", Key: "full_name", Value: "octo/acme"},
			{Service: "neon", Key: "connection_string", Value: "postgres://app:s3cret@db/acme", Secret: true},
		},
	}
}

func failedReport() *domain.RunReport {
	r := completedReport()
	r.ID = "run-2"
	r.State = domain.RunFailed
	r.FailedStep = 2
	r.Error = "step 2 (Provision database) failed while invoking: quota exceeded"
	r.Steps[1].Status = domain.StepFailed
	r.Steps[1].Phase = domain.PhaseInvoking
	r.Steps[1].Error = "quota exceeded"
	r.Outputs = r.Outputs[:1]
	return r
}

var errStepFailed = errors.New("step failed")
