package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List known services and their credential status",
	Long: `Lists every known tool server with its launch command and the
environment variables it requires. Credential values are never printed.`,
	Args: cobra.NoArgs,
	RunE: runServices,
}

func init() {
	rootCmd.AddCommand(servicesCmd)
}

func runServices(cmd *cobra.Command, _ []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	missing := make(map[string][]string)
	for _, st := range catalogService.Status() {
		missing[st.Service] = st.Missing
	}

	st := stylesFor(cmd.OutOrStderr())
	for _, desc := range catalogService.List() {
		mark := st.Success.Render(markOK)
		if len(missing[desc.Name()]) > 0 {
			mark = st.Warning.Render(markFail)
		}
		cmd.Printf("%s %s\n", mark, st.Title.Render(desc.Name()))
		cmd.Printf("    command:     %s\n", strings.Join(append([]string{desc.Command()}, desc.Args()...), " "))

		var creds []string
		for _, name := range desc.RequiredCredentials() {
			state := "set"
			for _, m := range missing[desc.Name()] {
				if m == name {
					state = "missing"
				}
			}
			creds = append(creds, name+" ("+state+")")
		}
		if len(creds) == 0 {
			creds = []string{"none"}
		}
		cmd.Printf("    credentials: %s\n", strings.Join(creds, ", "))
	}
	return nil
}
