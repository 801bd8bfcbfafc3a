package cli

import (
	"github.com/spf13/cobra"
)

func newPoliciesCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "policies",
		Short: "List company policy documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.requireSession()
			if err != nil {
				return err
			}
			policies, err := app.API.Policies(cmd.Context(), sess.Token())
			if err != nil {
				return app.failErr("list policies", err)
			}
			if len(policies) == 0 {
				app.Printer.Info("No policies published")
				return nil
			}

			rows := make([][]string, 0, len(policies))
			for _, p := range policies {
				rows = append(rows, []string{p.Title, p.URL})
			}
			app.Printer.Table([]string{"TITLE", "LINK"}, rows)
			return nil
		},
	}
}
