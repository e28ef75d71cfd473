// Package cli provides the stackup command-line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/stackup-cli/internal/core/ports/driving"
	"github.com/custodia-labs/stackup-cli/internal/logger"
)

// version is set at build time.
var version = "dev"

var verbose bool

// Services injected by main. Commands fail with a clear error when the
// service they need is nil.
var (
	workflowService   driving.WorkflowRunner
	validationService driving.ServiceValidator
	catalogService    driving.CatalogService
	historyService    driving.HistoryService
	settingsService   driving.SettingsService
)

// Services holds the driving ports used by the commands.
type Services struct {
	Workflow   driving.WorkflowRunner
	Validation driving.ServiceValidator
	Catalog    driving.CatalogService
	History    driving.HistoryService
	Settings   driving.SettingsService
}

var rootCmd = &cobra.Command{
	Use:   "stackup",
	Short: "Provision a full application stack through MCP tool servers",
	Long: `stackup creates a GitHub repository, provisions a Neon database, applies
a schema with Supabase and deploys on Vercel, driving each service through
its Model Context Protocol tool server.

Credentials are read from the environment:
  GITHUB_PERSONAL_ACCESS_TOKEN, SUPABASE_ACCESS_TOKEN, NEON_API_KEY, VERCEL_TOKEN`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print each workflow step to stderr")
}

// SetServices injects the services used by the commands.
func SetServices(s Services) {
	workflowService = s.Workflow
	validationService = s.Validation
	catalogService = s.Catalog
	historyService = s.History
	settingsService = s.Settings
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. Cancelling ctx cancels the running command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
