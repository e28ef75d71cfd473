package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driving"
)

// RunWorkflowInput is the input schema for the run_workflow tool.
type RunWorkflowInput struct {
	Project     string `json:"project" jsonschema:"name of the repository, database project and deployment"`
	Description string `json:"description,omitempty" jsonschema:"repository description"`
	Private     bool   `json:"private,omitempty" jsonschema:"create a private repository"`
	Region      string `json:"region,omitempty" jsonschema:"database region, provider default when empty"`
	Schema      string `json:"schema,omitempty" jsonschema:"SQL migration to apply, configured default when empty"`
}

// RunWorkflowOutput is the output schema for the run_workflow tool.
type RunWorkflowOutput struct {
	RunID      string        `json:"run_id"`
	State      string        `json:"state"`
	FailedStep int           `json:"failed_step,omitempty"`
	Error      string        `json:"error,omitempty"`
	Steps      []StepOutput  `json:"steps"`
	Outputs    []OutputEntry `json:"outputs"`
}

// StepOutput describes one step of a run.
type StepOutput struct {
	Number  int    `json:"number"`
	Name    string `json:"name"`
	Service string `json:"service"`
	Tool    string `json:"tool"`
	Status  string `json:"status"`
	Phase   string `json:"phase"`
	Error   string `json:"error,omitempty"`
}

// OutputEntry is one non-secret value recorded by a run.
type OutputEntry struct {
	Service string `json:"service"`
	Key     string `json:"key"`
	Value   string `json:"value"`
}

// ValidateServicesInput is the input schema for the validate_services tool.
type ValidateServicesInput struct {
	Services []string `json:"services,omitempty" jsonschema:"services to check, all when empty"`
}

// ValidateServicesOutput is the output schema for the validate_services tool.
type ValidateServicesOutput struct {
	Checks  []CheckOutput `json:"checks"`
	Healthy int           `json:"healthy"`
	Failed  int           `json:"failed"`
}

// CheckOutput is the validation result for one service.
type CheckOutput struct {
	Service string   `json:"service"`
	OK      bool     `json:"ok"`
	Tools   []string `json:"tools"`
	Error   string   `json:"error,omitempty"`
}

// ListServicesInput is the (empty) input schema for the list_services tool.
type ListServicesInput struct{}

// ListServicesOutput is the output schema for the list_services tool.
type ListServicesOutput struct {
	Services []ServiceOutput `json:"services"`
}

// ServiceOutput describes one known service. Credential values are never
// included, only their names.
type ServiceOutput struct {
	Name        string   `json:"name"`
	Command     string   `json:"command"`
	Args        []string `json:"args"`
	Credentials []string `json:"credentials"`
	Missing     []string `json:"missing"`
	Ready       bool     `json:"ready"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "run_workflow",
		Description: "Provision a project end to end: create a GitHub repository, " +
			"a Neon database, apply the schema with Supabase and deploy on Vercel",
	}, s.handleRunWorkflow)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_services",
		Description: "List the known tool servers and which credentials each one is missing",
	}, s.handleListServices)

	if s.ports.Validator != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "validate_services",
			Description: "Start each tool server, list its tools and stop it, without changing anything",
		}, s.handleValidateServices)
	}
}

// handleRunWorkflow handles the run_workflow tool invocation. A run that
// fails part way is reported as a tool error carrying the full report.
func (s *Server) handleRunWorkflow(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunWorkflowInput,
) (*mcp.CallToolResult, RunWorkflowOutput, error) {
	report, err := s.ports.Workflow.RunFullStack(ctx, driving.FullStackRequest{
		Project:     input.Project,
		Description: input.Description,
		Private:     input.Private,
		Region:      input.Region,
		Schema:      input.Schema,
	})
	if report == nil {
		if err == nil {
			err = errors.New("workflow returned no report")
		}
		return nil, RunWorkflowOutput{}, err
	}

	output := toRunOutput(report)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, output, nil
	}
	return nil, output, nil
}

// handleListServices handles the list_services tool invocation.
func (s *Server) handleListServices(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListServicesInput,
) (*mcp.CallToolResult, ListServicesOutput, error) {
	missing := make(map[string][]string)
	for _, st := range s.ports.Catalog.Status() {
		missing[st.Service] = st.Missing
	}

	descs := s.ports.Catalog.List()
	output := ListServicesOutput{Services: make([]ServiceOutput, len(descs))}
	for i, desc := range descs {
		m := nonNil(missing[desc.Name()])
		output.Services[i] = ServiceOutput{
			Name:        desc.Name(),
			Command:     desc.Command(),
			Args:        nonNil(desc.Args()),
			Credentials: nonNil(desc.RequiredCredentials()),
			Missing:     m,
			Ready:       len(m) == 0,
		}
	}
	return nil, output, nil
}

// handleValidateServices handles the validate_services tool invocation.
func (s *Server) handleValidateServices(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ValidateServicesInput,
) (*mcp.CallToolResult, ValidateServicesOutput, error) {
	checks, err := s.ports.Validator.Validate(ctx, input.Services...)
	if err != nil {
		return nil, ValidateServicesOutput{}, err
	}

	output := ValidateServicesOutput{Checks: make([]CheckOutput, len(checks))}
	for i, c := range checks {
		out := CheckOutput{Service: c.Service, OK: c.OK, Tools: make([]string, 0, len(c.Tools))}
		for _, tool := range c.Tools {
			out.Tools = append(out.Tools, tool.Name)
		}
		if c.Err != nil {
			out.Error = c.Err.Error()
		}
		if c.OK {
			output.Healthy++
		} else {
			output.Failed++
		}
		output.Checks[i] = out
	}
	return nil, output, nil
}

func toRunOutput(report *domain.RunReport) RunWorkflowOutput {
	output := RunWorkflowOutput{
		RunID:      report.ID,
		State:      report.State.String(),
		FailedStep: report.FailedStep,
		Error:      report.Error,
		Steps:      make([]StepOutput, len(report.Steps)),
		Outputs:    []OutputEntry{},
	}
	for i, step := range report.Steps {
		output.Steps[i] = StepOutput{
			Number:  step.Number,
			Name:    step.Name,
			Service: step.Service,
			Tool:    step.Tool,
			Status:  string(step.Status),
			Phase:   step.Phase.String(),
			Error:   step.Error,
		}
	}
	for _, o := range report.PublicOutputs() {
		output.Outputs = append(output.Outputs, OutputEntry{Service: o.Service, Key: o.Key, Value: o.Value})
	}
	return output
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
