package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driving"
)

var (
	runDescription string
	runPrivate     bool
	runRegion      string
	runSchemaFile  string
	runJSON        bool
)

var runCmd = &cobra.Command{
	Use:   "run <project>",
	Short: "Provision a repository, database, schema and deployment",
	Long: `Runs the full-stack workflow for one project:

  1. github    create_repository   (records the repository)
  2. neon      create_project      (records the connection string)
  3. supabase  apply_migration     (applies the schema)
  4. vercel    create_deployment   (DATABASE_URL from step 2)

Steps run strictly in order. Every service's credentials are checked before
anything is contacted. When a step fails, later steps are skipped and earlier
steps are not undone.`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflow,
}

func init() {
	runCmd.Flags().StringVarP(&runDescription, "description", "d", "", "repository description")
	runCmd.Flags().BoolVar(&runPrivate, "private", false, "create a private repository")
	runCmd.Flags().StringVar(&runRegion, "region", "", "database region (default from settings)")
	runCmd.Flags().StringVar(&runSchemaFile, "schema-file", "", "SQL file to apply instead of the configured schema")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "output the run report as JSON")
	rootCmd.AddCommand(runCmd)
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	if workflowService == nil {
		return errors.New("workflow service not configured")
	}

	req := driving.FullStackRequest{
		Project:     args[0],
		Description: runDescription,
		Private:     runPrivate,
		Region:      runRegion,
	}
	if runSchemaFile != "" {
		data, err := os.ReadFile(runSchemaFile)
		if err != nil {
			return fmt.Errorf("reading schema file: %w", err)
		}
		req.Schema = string(data)
	}

	st := stylesFor(cmd.OutOrStderr())
	if !runJSON {
		req.Observer = func(t domain.Transition) {
			if t.Step > 0 && t.Phase == domain.PhaseDone {
				cmd.Printf("%s [%d/%d] %s\n", st.Success.Render(markOK), t.Step, t.Total, t.Name)
			}
		}
	}

	report, err := workflowService.RunFullStack(cmd.Context(), req)
	if report == nil {
		if missing := domain.MissingCredentials(err); len(missing) > 0 {
			printMissingCredentials(cmd, st, missing)
			return fmt.Errorf("missing credentials for %d service(s)", len(missing))
		}
		return err
	}

	if runJSON {
		if jerr := printJSON(cmd, newReportView(report)); jerr != nil {
			return jerr
		}
	} else {
		printRunSummary(cmd, st, report)
	}

	if err != nil {
		return fmt.Errorf("run %s failed at step %d", report.ID, report.FailedStep)
	}
	return nil
}

func printMissingCredentials(cmd *cobra.Command, st styles, missing []*domain.MissingCredentialsError) {
	cmd.Println(st.Error.Render("Missing credentials:"))
	for _, m := range missing {
		for _, name := range m.Missing {
			cmd.Printf("  %s %-10s %s\n", st.Error.Render(markFail), m.Service, name)
		}
	}
	cmd.Println()
	cmd.Println(st.Muted.Render("Export them in your environment and run again."))
}

func printRunSummary(cmd *cobra.Command, st styles, report *domain.RunReport) {
	if report.State == domain.RunFailed && report.FailedStep > 0 {
		step := report.Steps[report.FailedStep-1]
		cmd.Printf("%s [%d/%d] %s\n", st.Error.Render(markFail), step.Number, len(report.Steps), step.Name)
		cmd.Printf("    %s\n", st.Error.Render(step.Error))
		for _, s := range report.Steps[report.FailedStep:] {
			cmd.Printf("%s [%d/%d] %s %s\n", st.Muted.Render(markSkip), s.Number, len(report.Steps), s.Name,
				st.Muted.Render("(not run)"))
		}
	}

	cmd.Println()
	cmd.Printf("%s %s (%s, %s)\n", st.Title.Render("Run"), report.ID, report.State,
		report.Duration().Round(time.Millisecond))

	if len(report.Outputs) == 0 {
		return
	}
	cmd.Println()
	cmd.Println(st.Title.Render("Outputs"))
	for _, o := range report.Outputs {
		value := o.Value
		if o.Secret {
			value = st.Muted.Render("(secret, not shown)")
		}
		cmd.Printf("  %s.%s = %s\n", o.Service, o.Key, value)
	}
}

// reportView is the JSON form of a run report. Secret outputs are left out.
type reportView struct {
	ID         string       `json:"id"`
	Workflow   string       `json:"workflow"`
	Project    string       `json:"project"`
	State      string       `json:"state"`
	FailedStep int          `json:"failed_step,omitempty"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Steps      []stepView   `json:"steps"`
	Outputs    []outputView `json:"outputs"`
}

type stepView struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Tool   string `json:"tool"`
	Status string `json:"status"`
	Phase  string `json:"phase"`
	Error  string `json:"error,omitempty"`
}

type outputView struct {
	Service string `json:"service"`
	Key     string `json:"key"`
	Value   string `json:"value"`
}

func newReportView(r *domain.RunReport) reportView {
	v := reportView{
		ID:         r.ID,
		Workflow:   r.Workflow,
		Project:    r.Project,
		State:      r.State.String(),
		FailedStep: r.FailedStep,
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Steps:      make([]stepView, 0, len(r.Steps)),
		Outputs:    make([]outputView, 0, len(r.Outputs)),
	}
	for _, s := range r.Steps {
		v.Steps = append(v.Steps, stepView{
			Number: s.Number,
			Name:   s.Name,
			Tool:   s.Service + "." + s.Tool,
			Status: string(s.Status),
			Phase:  s.Phase.String(),
			Error:  s.Error,
		})
	}
	for _, o := range r.PublicOutputs() {
		v.Outputs = append(v.Outputs, outputView{Service: o.Service, Key: o.Key, Value: o.Value})
	}
	return v
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
