package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driving"
)

// Ensure WorkflowService implements the interface.
var _ driving.WorkflowRunner = (*WorkflowService)(nil)

// FullStackWorkflowName identifies the reference workflow in reports.
const FullStackWorkflowName = "full-stack"

// DefaultSchema is the migration applied when none is configured.
const DefaultSchema = `CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// projectNamePattern accepts names valid as a repository and a deployment.
var projectNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,99}$`)

// FullStackParams parameterise the reference workflow.
type FullStackParams struct {
	Project     string
	Description string
	Private     bool
	Region      string
	Schema      string
}

// FullStackWorkflow builds the reference workflow:
//
//  1. github create_repository, recording repository_url and full_name
//  2. neon create_project, recording connection_string
//  3. supabase apply_migration, after the database exists
//  4. vercel create_deployment, with DATABASE_URL set from step 2
func FullStackWorkflow(p FullStackParams) (*domain.Workflow, error) {
	if !projectNamePattern.MatchString(p.Project) {
		return nil, fmt.Errorf("%w: project name %q must be 1-100 letters, digits, '.', '_' or '-'",
			domain.ErrInvalidArguments, p.Project)
	}
	schema := p.Schema
	if strings.TrimSpace(schema) == "" {
		schema = DefaultSchema
	}

	return domain.NewWorkflow(FullStackWorkflowName,
		domain.Step{
			Name:     "Create repository",
			Service:  ServiceGitHub,
			Tool:     "create_repository",
			Produces: []string{KeyRepositoryURL, KeyFullName},
			Args: func(domain.ContextReader) (domain.Value, error) {
				fields := map[string]domain.Value{
					"name":     domain.String(p.Project),
					"private":  domain.Bool(p.Private),
					"autoInit": domain.Bool(true),
				}
				if p.Description != "" {
					fields["description"] = domain.String(p.Description)
				}
				return domain.Map(fields), nil
			},
		},
		domain.Step{
			Name:     "Provision database",
			Service:  ServiceNeon,
			Tool:     "create_project",
			Produces: []string{KeyConnectionString},
			Args: func(domain.ContextReader) (domain.Value, error) {
				fields := map[string]domain.Value{"name": domain.String(p.Project)}
				if p.Region != "" {
					fields["region_id"] = domain.String(p.Region)
				}
				return domain.Map(fields), nil
			},
		},
		domain.Step{
			Name:    "Apply schema",
			Service: ServiceSupabase,
			Tool:    "apply_migration",
			Args: func(domain.ContextReader) (domain.Value, error) {
				return domain.Map(map[string]domain.Value{
					"name":  domain.String("initial_schema"),
					"query": domain.String(schema),
				}), nil
			},
		},
		domain.Step{
			Name:    "Deploy",
			Service: ServiceVercel,
			Tool:    "create_deployment",
			Reads: []domain.ContextRef{
				{Service: ServiceNeon, Key: KeyConnectionString},
				{Service: ServiceGitHub, Key: KeyFullName},
			},
			Args: func(in domain.ContextReader) (domain.Value, error) {
				conn, err := in.Get(ServiceNeon, KeyConnectionString)
				if err != nil {
					return domain.Value{}, err
				}
				repo, err := in.Get(ServiceGitHub, KeyFullName)
				if err != nil {
					return domain.Value{}, err
				}
				return domain.Map(map[string]domain.Value{
					"project":        domain.String(p.Project),
					"git_repository": repo,
					"env": domain.Map(map[string]domain.Value{
						"DATABASE_URL": conn,
					}),
				}), nil
			},
		},
	)
}

// WorkflowService runs the reference workflow after checking every involved
// service's credentials up front.
type WorkflowService struct {
	catalog      *Catalog
	orchestrator *Orchestrator
	settings     domain.WorkflowSettings
}

// NewWorkflowService creates a workflow service.
func NewWorkflowService(catalog *Catalog, orchestrator *Orchestrator, settings domain.WorkflowSettings) *WorkflowService {
	return &WorkflowService{
		catalog:      catalog,
		orchestrator: orchestrator,
		settings:     settings,
	}
}

// RunFullStack checks credentials for every service, then runs the
// reference workflow. Missing credentials are returned joined and no
// service is contacted.
func (s *WorkflowService) RunFullStack(ctx context.Context, req driving.FullStackRequest) (*domain.RunReport, error) {
	params := FullStackParams{
		Project:     strings.TrimSpace(req.Project),
		Description: req.Description,
		Private:     req.Private,
		Region:      req.Region,
		Schema:      req.Schema,
	}
	if params.Region == "" {
		params.Region = s.settings.Region
	}
	if params.Schema == "" {
		params.Schema = s.settings.Schema
	}

	wf, err := FullStackWorkflow(params)
	if err != nil {
		return nil, err
	}

	if err := s.catalog.CheckCredentials(wf.Services()...); err != nil {
		return nil, err
	}

	return s.orchestrator.Run(ctx, wf, RunOptions{
		Project:  params.Project,
		Observer: req.Observer,
	})
}
