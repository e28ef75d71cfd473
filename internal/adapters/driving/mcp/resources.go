package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for stackup resources.
	uriScheme = "stackup://"

	// recentRuns is how many runs the runs resource lists.
	recentRuns = 20
)

// registerResources registers the run history resources when history is
// available.
func (s *Server) registerResources() {
	if s.ports.History == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "runs",
		Name:        "runs",
		Description: "Recent orchestration runs, newest first",
		MIMEType:    "application/json",
	}, s.handleRunsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "runs/{runId}",
		Name:        "run",
		Description: "Report of one orchestration run",
		MIMEType:    "application/json",
	}, s.handleRunResource)
}

// runSummary is one entry of the runs resource.
type runSummary struct {
	ID         string `json:"id"`
	Workflow   string `json:"workflow"`
	Project    string `json:"project"`
	State      string `json:"state"`
	FailedStep int    `json:"failed_step,omitempty"`
	StartedAt  string `json:"started_at"`
}

// handleRunsResource returns the most recent runs.
func (s *Server) handleRunsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	reports, err := s.ports.History.List(ctx, recentRuns)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	summaries := make([]runSummary, len(reports))
	for i, r := range reports {
		summaries[i] = runSummary{
			ID:         r.ID,
			Workflow:   r.Workflow,
			Project:    r.Project,
			State:      r.State.String(),
			FailedStep: r.FailedStep,
			StartedAt:  r.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}

	return jsonResource(req.Params.URI, summaries)
}

// handleRunResource returns one run report.
func (s *Server) handleRunResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	runID := extractRunID(req.Params.URI)
	if runID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	report, err := s.ports.History.Get(ctx, runID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}

	return jsonResource(req.Params.URI, toRunOutput(report))
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractRunID extracts the run ID from a URI like stackup://runs/{runId}.
func extractRunID(uri string) string {
	const prefix = uriScheme + "runs/"

	id, ok := strings.CutPrefix(uri, prefix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
