package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure session timeouts, run history and workflow defaults.

Settings are stored in config.toml under $STACKUP_HOME (default ~/.stackup).
Tool-server overrides live in the same file under [services.<name>].`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Change one setting.

Keys:
  session.handshake_timeout  seconds to wait for a tool server handshake (0 = no limit)
  session.terminate_timeout  seconds to wait for a tool server to exit
  history.enabled            record runs in the local history database
  workflow.region            default database region
  workflow.schema            default SQL migration`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all settings step by step.`,
	RunE:  runSettingsWizard,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Session]")
	cmd.Printf("  Handshake timeout: %s\n", formatTimeout(settings.Session.HandshakeTimeout))
	cmd.Printf("  Terminate timeout: %s\n", formatTimeout(settings.Session.TerminateTimeout))
	cmd.Println()

	cmd.Println("[History]")
	cmd.Printf("  Enabled: %t\n", settings.History.Enabled)
	cmd.Println()

	cmd.Println("[Workflow]")
	region := settings.Workflow.Region
	if region == "" {
		region = "(provider default)"
	}
	cmd.Printf("  Region: %s\n", region)
	if settings.Workflow.Schema == "" {
		cmd.Println("  Schema: (built-in users table)")
	} else {
		cmd.Printf("  Schema: %s\n", firstLine(settings.Workflow.Schema))
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.Set(args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("Set %s\n", args[0])
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("stackup Settings Wizard")
	cmd.Println("=======================")
	cmd.Println("Press Enter to keep the current value.")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Printf("Handshake timeout in seconds [%d]: ", int(settings.Session.HandshakeTimeout/time.Second))
	settings.Session.HandshakeTimeout = parseSecondsOr(readLine(reader), settings.Session.HandshakeTimeout)

	cmd.Printf("Terminate timeout in seconds [%d]: ", int(settings.Session.TerminateTimeout/time.Second))
	settings.Session.TerminateTimeout = parseSecondsOr(readLine(reader), settings.Session.TerminateTimeout)

	cmd.Printf("Record run history (y/n) [%s]: ", yesNo(settings.History.Enabled))
	settings.History.Enabled = parseYesNo(readLine(reader), settings.History.Enabled)

	cmd.Printf("Default database region [%s]: ", settings.Workflow.Region)
	if input := readLine(reader); input != "" {
		settings.Workflow.Region = input
	}

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Println()
	cmd.Println("Settings saved.")
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseSecondsOr(input string, defaultVal time.Duration) time.Duration {
	if input == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(input)
	if err != nil || n < 0 {
		return defaultVal
	}
	return time.Duration(n) * time.Second
}

func parseYesNo(input string, defaultVal bool) bool {
	switch strings.ToLower(input) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return defaultVal
	}
}

func yesNo(b bool) string {
	if b {
		return "y"
	}
	return "n"
}

func formatTimeout(d time.Duration) string {
	if d == 0 {
		return "none"
	}
	return d.String()
}

func firstLine(s string) string {
	line, _, more := strings.Cut(strings.TrimSpace(s), "\n")
	if more {
		return line + " ..."
	}
	return line
}
