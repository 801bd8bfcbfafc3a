package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"onboard/internal/api"
	"onboard/internal/notify"
)

func newCelebrationsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "celebrations",
		Short: "Show today's birthdays and work anniversaries",
		Long: `Show today's birthdays and work anniversaries across the directory.

With --upcoming the next notify.lookahead_days days are listed. With --watch
the command keeps running and prints the digest once a day at notify.hour.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.requireSession()
			if err != nil {
				return err
			}
			dir := app.newDirectory(sess)
			source := func(ctx context.Context) ([]api.Employee, error) {
				return dir.All(ctx, "")
			}

			if watch, _ := cmd.Flags().GetBool("watch"); watch {
				s := notify.NewScheduler(app.Config.Notify.Hour, source, func(digest string) {
					app.Printer.Header("Celebrations")
					app.Printer.Info("%s", digest)
				})
				s.SetClock(app.Now)
				app.Printer.Info("Watching for celebrations daily at %02d:00", s.Hour())
				if err := s.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
					return app.failErr("watch celebrations", err)
				}
				return nil
			}

			employees, err := source(cmd.Context())
			if err != nil {
				return app.failErr("load the directory", err)
			}

			today := app.Now()
			if upcoming, _ := cmd.Flags().GetBool("upcoming"); upcoming {
				events := notify.Upcoming(today, app.Config.Notify.LookaheadDays, employees)
				if len(events) == 0 {
					app.Printer.Info("No celebrations in the next %d days", app.Config.Notify.LookaheadDays)
					return nil
				}
				rows := make([][]string, 0, len(events))
				for _, ev := range events {
					rows = append(rows, []string{ev.Date.Format("Mon Jan 2"), ev.Employee.Name, string(ev.Kind)})
				}
				app.Printer.Table([]string{"DATE", "NAME", "EVENT"}, rows)
				return nil
			}

			digest := notify.Digest(notify.Celebrations(today, employees))
			if digest == "" {
				app.Printer.Info("Nothing to celebrate today")
				return nil
			}
			app.Printer.Header("Celebrations")
			app.Printer.Info("%s", digest)
			return nil
		},
	}
	cmd.Flags().Bool("upcoming", false, "list the coming days instead of today")
	cmd.Flags().Bool("watch", false, "keep running and print the digest daily")
	return cmd
}
