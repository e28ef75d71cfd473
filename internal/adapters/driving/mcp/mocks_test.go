package mcp

import (
	"context"
	"errors"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driving"
)

// mockWorkflowRunner is a mock implementation of driving.WorkflowRunner.
type mockWorkflowRunner struct {
	report *domain.RunReport
	err    error
	req    driving.FullStackRequest
}

func (m *mockWorkflowRunner) RunFullStack(_ context.Context, req driving.FullStackRequest) (*domain.RunReport, error) {
	m.req = req
	return m.report, m.err
}

// mockCatalogService is a mock implementation of driving.CatalogService.
type mockCatalogService struct {
	descs  []domain.ServiceDescriptor
	status []driving.CredentialStatus
}

func (m *mockCatalogService) List() []domain.ServiceDescriptor {
	return m.descs
}

func (m *mockCatalogService) Get(name string) (domain.ServiceDescriptor, error) {
	for _, d := range m.descs {
		if d.Name() == name {
			return d, nil
		}
	}
	return domain.ServiceDescriptor{}, domain.ErrUnknownService
}

func (m *mockCatalogService) Status() []driving.CredentialStatus {
	return m.status
}

func (m *mockCatalogService) CheckCredentials(...string) error {
	var errs []error
	for _, st := range m.status {
		if !st.Ready() {
			errs = append(errs, &domain.MissingCredentialsError{Service: st.Service, Missing: st.Missing})
		}
	}
	return errors.Join(errs...)
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

// mockHistoryService is a mock implementation of driving.HistoryService.
type mockHistoryService struct {
	reports []*domain.RunReport
	err     error
}

func (m *mockHistoryService) List(_ context.Context, limit int) ([]*domain.RunReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.reports) {
		return m.reports[:limit], nil
	}
	return m.reports, nil
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

func testCatalog() *mockCatalogService {
	return &mockCatalogService{
		descs: []domain.ServiceDescriptor{
			domain.NewServiceDescriptor(domain.ServiceSpec{
				Name: "github", Command: "npx", Args: []string{"-y", "server-github"},
				Credentials: []string{"GITHUB_PERSONAL_ACCESS_TOKEN"},
			}),
			domain.NewServiceDescriptor(domain.ServiceSpec{
				Name: "neon", Command: "npx", Credentials: []string{"NEON_API_KEY"},
			}),
		},
		status: []driving.CredentialStatus{
			{Service: "github"},
			{Service: "neon", Missing: []string{"NEON_API_KEY"}},
		},
	}
}

func failedReport() *domain.RunReport {
	return &domain.RunReport{
		ID:         "run-1",
		Workflow:   "full-stack",
		Project:    "acme",
		State:      domain.RunFailed,
		FailedStep: 2,
		Error:      "step 2 (Provision database) failed while invoking: quota exceeded",
		Steps: []domain.StepReport{
			{Number: 1, Name: "Create repository", Service: "github", Tool: "create_repository",
				Status: domain.StepSucceeded, Phase: domain.PhaseDone},
			{Number: 2, Name: "Provision database", Service: "neon", Tool: "create_project",
				Status: domain.StepFailed, Phase: domain.PhaseInvoking, Error: "quota exceeded"},
		},
		Outputs: []domain.Output{
			{Service: "github", Key: "full_name", Value: "octo/acme"},
			{Service: "neon", Key: "connection_string", Value: "postgres://secret", Secret: true},
		},
	}
}
