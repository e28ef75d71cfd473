package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past runs",
	Long: `Lists recent runs, newest first, or shows one run in detail.
Secret outputs such as connection strings are never stored.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs to list")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}

	if len(args) == 1 {
		return showRun(cmd, args[0])
	}

	reports, err := historyService.List(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if historyJSON {
		views := make([]reportView, 0, len(reports))
		for _, r := range reports {
			views = append(views, newReportView(r))
		}
		return printJSON(cmd, views)
	}

	if len(reports) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	st := stylesFor(cmd.OutOrStderr())
	for _, r := range reports {
		mark := st.Success.Render(markOK)
		detail := ""
		if r.State == domain.RunFailed {
			mark = st.Error.Render(markFail)
			detail = st.Muted.Render(fmt.Sprintf(" (failed at step %d)", r.FailedStep))
		}
		cmd.Printf("%s %s  %s  %-20s %s%s\n", mark, r.ID, r.StartedAt.Local().Format(time.DateTime),
			r.Project, r.State, detail)
	}
	return nil
}

func showRun(cmd *cobra.Command, id string) error {
	report, err := historyService.Get(cmd.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	if historyJSON {
		return printJSON(cmd, newReportView(report))
	}

	st := stylesFor(cmd.OutOrStderr())
	cmd.Printf("%s %s\n", st.Title.Render("Run"), report.ID)
	cmd.Printf("  Workflow: %s\n", report.Workflow)
	cmd.Printf("  Project:  %s\n", report.Project)
	cmd.Printf("  State:    %s\n", report.State)
	cmd.Printf("  Started:  %s\n", report.StartedAt.Local().Format(time.DateTime))
	cmd.Printf("  Duration: %s\n", report.Duration().Round(time.Millisecond))
	if report.Error != "" {
		cmd.Printf("  Error:    %s\n", st.Error.Render(report.Error))
	}

	cmd.Println()
	cmd.Println(st.Title.Render("Steps"))
	for _, s := range report.Steps {
		mark := st.Muted.Render(markSkip)
		switch s.Status {
		case domain.StepSucceeded:
			mark = st.Success.Render(markOK)
		case domain.StepFailed:
			mark = st.Error.Render(markFail)
		}
		cmd.Printf("  %s %d. %s (%s.%s) %s\n", mark, s.Number, s.Name, s.Service, s.Tool, st.Muted.Render(string(s.Status)))
	}

	if outputs := report.PublicOutputs(); len(outputs) > 0 {
		cmd.Println()
		cmd.Println(st.Title.Render("Outputs"))
		for _, o := range outputs {
			cmd.Printf("  %s.%s = %s\n", o.Service, o.Key, o.Value)
		}
	}
	return nil
}
