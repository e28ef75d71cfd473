package domain

import (
	"encoding/json"
	"strings"
)

// ToolResult is the raw outcome of one tool call. The core does not
// interpret it beyond Lookup and Extract.
type ToolResult struct {
	// Text holds the text content blocks in order.
	Text []string

	// Structured holds the structured content, null when absent.
	Structured Value

	// IsError reports a tool-level failure signalled by the server.
	IsError bool
}

// Message joins the text content blocks.
func (r *ToolResult) Message() string {
	return strings.Join(r.Text, "\n")
}

// Lookup resolves path against the structured content first, then against
// each text block that decodes as JSON.
func (r *ToolResult) Lookup(path string) (Value, bool) {
	if !r.Structured.IsNull() {
		if v, ok := r.Structured.Lookup(path); ok {
			return v, true
		}
	}

	for _, block := range r.Text {
		trimmed := strings.TrimSpace(block)
		if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
			continue
		}
		var decoded Value
		if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
			continue
		}
		if v, ok := decoded.Lookup(path); ok {
			return v, true
		}
	}
	return Value{}, false
}

// Extract applies an export convention to the result.
func (r *ToolResult) Extract(exp Export) (Value, bool) {
	if exp.Path != "" {
		if v, ok := r.Lookup(exp.Path); ok && !v.IsNull() {
			return v, true
		}
	}

	if exp.Pattern != nil {
		for _, block := range r.Text {
			if match := exp.Pattern.FindString(block); match != "" {
				return String(match), true
			}
		}
	}
	return Value{}, false
}
