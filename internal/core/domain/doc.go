// Package domain defines the core business entities for stackup.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ServiceDescriptor: How to launch one service's tool server
//   - Value: Tagged structured value for tool arguments and results
//   - ToolResult: The raw outcome of a tool call
//   - UnifiedContext: Cross-step state for one orchestration run
//   - Workflow: A fixed, linear sequence of steps
//   - RunReport: The record of one orchestration run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
