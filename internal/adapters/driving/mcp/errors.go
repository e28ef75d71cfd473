// Package mcp provides an MCP (Model Context Protocol) server adapter for stackup.
// It lets AI assistants run the provisioning workflow, validate tool servers
// and read run history.
package mcp

import "errors"

// ErrMissingWorkflowService is returned when the workflow runner is not provided.
var ErrMissingWorkflowService = errors.New("mcp: workflow service is required")

// ErrMissingCatalogService is returned when the service catalog is not provided.
var ErrMissingCatalogService = errors.New("mcp: catalog service is required")
