package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"onboard/internal/api"
	"onboard/internal/directory"
	"onboard/internal/session"
)

func newDirectoryCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "directory [query]",
		Short: "Search the employee directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.requireSession()
			if err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			page, _ := cmd.Flags().GetInt("page")

			res, err := app.newDirectory(sess).Search(cmd.Context(), query, page)
			if err != nil {
				return app.failErr("view the directory", err)
			}
			if len(res.Items) == 0 {
				app.Printer.Info("No employees found")
				return nil
			}

			showIDs := sess.IsAdmin()
			app.Printer.Table(employeeHeader(showIDs), employeeRows(res.Items, showIDs))
			app.Printer.Info("Page %d of %d (%d employees)", res.Page, max(res.TotalPages, 1), res.Total)
			return nil
		},
	}
	cmd.Flags().Int("page", 1, "page number")
	return cmd
}

func employeeHeader(withID bool) []string {
	h := []string{"NAME", "EMAIL", "DEPARTMENT", "DESIGNATION"}
	if withID {
		h = append([]string{"ID"}, append(h, "TYPE", "EDIT", "ACTIVE")...)
	}
	return h
}

func employeeRows(items []api.Employee, withID bool) [][]string {
	rows := make([][]string, 0, len(items))
	for _, e := range items {
		row := []string{e.Name, e.Email, e.Department, e.Designation}
		if withID {
			row = append([]string{e.ID}, append(row, e.JoineeType, yesNo(e.EditRights), yesNo(e.Active))...)
		}
		rows = append(rows, row)
	}
	return rows
}

func newAdminCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage employee accounts (admins only)",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set-edit-rights <employee-id> <true|false>",
			Short: "Allow or lock profile editing",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				allowed, err := strconv.ParseBool(args[1])
				if err != nil {
					return app.fail("expected true or false, got %q", args[1])
				}
				return adminAction(app, "change edit rights", func(d *directory.Directory) error {
					return d.SetEditRights(cmd.Context(), args[0], allowed)
				}, fmt.Sprintf("Edit rights for %s set to %t", args[0], allowed))
			},
		},
		&cobra.Command{
			Use:   "deactivate <employee-id>",
			Short: "Deactivate an account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return adminAction(app, "deactivate employees", func(d *directory.Directory) error {
					return d.SetActive(cmd.Context(), args[0], false)
				}, "Deactivated "+args[0])
			},
		},
		&cobra.Command{
			Use:   "activate <employee-id>",
			Short: "Reactivate an account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return adminAction(app, "activate employees", func(d *directory.Directory) error {
					return d.SetActive(cmd.Context(), args[0], true)
				}, "Activated "+args[0])
			},
		},
		&cobra.Command{
			Use:   "set-joinee-type <employee-id> <NEW|EXISTING|EXPERIENCED>",
			Short: "Change how an employee is onboarded",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				jt := session.JoineeType(strings.ToUpper(args[1]))
				return adminAction(app, "change joinee types", func(d *directory.Directory) error {
					return d.SetJoineeType(cmd.Context(), args[0], jt)
				}, fmt.Sprintf("Joinee type for %s set to %s", args[0], jt))
			},
		},
	)
	return cmd
}

// adminAction runs fn against the session's directory and prints success.
func adminAction(app *App, action string, fn func(*directory.Directory) error, success string) error {
	sess, err := app.requireSession()
	if err != nil {
		return err
	}
	if err := fn(app.newDirectory(sess)); err != nil {
		return app.failErr(action, err)
	}
	app.Printer.Success("%s", success)
	return nil
}
