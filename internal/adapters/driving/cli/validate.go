package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [service...]",
	Short: "Check that tool servers start and list their tools",
	Long: `Starts each tool server, completes the handshake, lists its tools and
stops it again. No tool is called, so nothing changes on any service.

With no arguments every known service is checked. A failing service does not
stop the others from being checked.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	if validationService == nil {
		return errors.New("validation service not configured")
	}

	checks, err := validationService.Validate(cmd.Context(), args...)
	if err != nil {
		return err
	}

	st := stylesFor(cmd.OutOrStderr())
	failed := 0
	for _, c := range checks {
		if c.OK {
			names := make([]string, 0, len(c.Tools))
			for _, tool := range c.Tools {
				names = append(names, tool.Name)
			}
			cmd.Printf("%s %-10s %d tools\n", st.Success.Render(markOK), c.Service, len(c.Tools))
			if verbose && len(names) > 0 {
				cmd.Printf("    %s\n", st.Muted.Render(strings.Join(names, ", ")))
			}
			continue
		}
		failed++
		cmd.Printf("%s %-10s %s\n", st.Error.Render(markFail), c.Service, st.Error.Render(c.Err.Error()))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d service(s) failed validation", failed, len(checks))
	}
	return nil
}
