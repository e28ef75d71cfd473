// Command stackup provisions a repository, database, schema and deployment
// for a project by driving MCP tool servers in a fixed order.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/stackup-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/stackup-cli/internal/adapters/driven/env"
	"github.com/custodia-labs/stackup-cli/internal/adapters/driven/mcpclient"
	"github.com/custodia-labs/stackup-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/stackup-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/stackup-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stackup-cli/internal/core/services"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	cleanup, err := wire()
	if err != nil {
		fmt.Fprintf(os.Stderr, "stackup: %v\n", err)
		return 1
	}
	defer cleanup()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// wire builds the services from config.toml and the environment and hands
// them to the CLI.
func wire() (func(), error) {
	dir, err := file.DefaultDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}

	var cfg driven.ConfigStore
	fileCfg, err := file.NewConfigStore(dir)
	if err != nil {
		// Unreadable home: run on built-in defaults, settings are not persisted.
		fmt.Fprintf(os.Stderr, "stackup: config unavailable, using defaults: %v\n", err)
		cfg = memory.NewConfigStore()
	} else {
		cfg = fileCfg
	}

	settingsService := services.NewSettingsService(cfg)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	environment := env.OS{}
	checker := services.NewPreconditionChecker(environment)
	catalog, err := services.NewCatalog(checker, services.ServicesFromConfig(services.DefaultServices(), cfg)...)
	if err != nil {
		return nil, fmt.Errorf("building service catalog: %w", err)
	}

	connector := mcpclient.NewConnector("stackup", version,
		mcpclient.WithTerminateTimeout(settings.Session.TerminateTimeout))
	sessionOpts := []services.SessionOption{services.WithHandshakeTimeout(settings.Session.HandshakeTimeout)}

	cleanup := func() {}
	var history driven.RunHistoryStore
	if settings.History.Enabled {
		store, err := sqlite.NewStore(filepath.Join(dir, "data"))
		if err != nil {
			// A broken history database must not block provisioning.
			fmt.Fprintf(os.Stderr, "stackup: run history unavailable: %v\n", err)
		} else {
			history = store.RunHistoryStore()
			cleanup = func() { _ = store.Close() }
		}
	}

	orchOpts := []services.OrchestratorOption{services.WithSessionOptions(sessionOpts...)}
	if history != nil {
		orchOpts = append(orchOpts, services.WithHistory(history))
	}
	orchestrator := services.NewOrchestrator(catalog, checker, connector, environment, orchOpts...)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Workflow:   services.NewWorkflowService(catalog, orchestrator, settings.Workflow),
		Validation: services.NewValidationService(catalog, checker, connector, environment, sessionOpts...),
		Catalog:    catalog,
		History:    services.NewHistoryService(history),
		Settings:   settingsService,
	})
	return cleanup, nil
}
