// Package services implements the driving port interfaces.
// Services contain the core orchestration logic and call driven
// ports (adapters) for tool servers, configuration and history.
//
// A run is driven by the Orchestrator. Each run owns one SessionManager,
// so at most one tool-server session per service is open at a time and
// every session is released before the next step starts.
//
// Services are pure Go with no CGO. Adapters are injected through ports.
package services
