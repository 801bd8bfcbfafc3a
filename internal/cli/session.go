package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"onboard/internal/api"
	"onboard/internal/auth"
	"onboard/internal/router"
)

// passwordEnv supplies the password when --password is not given.
const passwordEnv = "ONBOARD_PASSWORD"

func passwordFlag(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("password"); p != "" {
		return p
	}
	return os.Getenv(passwordEnv)
}

func newLoginCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and resume where you left off",
		Long: `Sign in to the HR portal. The session is stored locally and the
onboarding wizard resumes at the first form you have not completed.

The password may be given with --password or the ONBOARD_PASSWORD
environment variable.

Example:
  onboard login --email asha@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")

			sess, decision, err := app.Auth.Login(cmd.Context(), email, passwordFlag(cmd))
			if err != nil {
				if errors.Is(err, auth.ErrLoginFailed) || errors.Is(err, auth.ErrInvalidInput) {
					return app.fail("%v", err)
				}
				return app.failErr("log in", err)
			}

			claims := sess.Claims()
			app.Printer.Success("Logged in as %s (%s)", claims.Name, claims.Role)
			app.Printer.Info("%s", landing(decision))
			return nil
		},
	}
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password (or set "+passwordEnv+")")
	return cmd
}

// landing describes where the user continues after login.
func landing(d router.Decision) string {
	switch {
	case d.Route == router.RouteDashboard:
		return "Admin dashboard: use 'onboard directory' and 'onboard admin'."
	case d.Route.IsForm():
		return "Onboarding resumes at form " + strings.TrimPrefix(string(d.Route), "form") +
			". Run 'onboard wizard status'."
	default:
		return "Your profile is up to date. Run 'onboard whoami' to review it."
	}
}

func newSignupCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")

			id, err := app.Auth.Signup(cmd.Context(), api.SignupRequest{
				Name:     name,
				Email:    email,
				Password: passwordFlag(cmd),
			})
			if err != nil {
				if errors.Is(err, auth.ErrInvalidInput) {
					return app.fail("%v", err)
				}
				if errors.Is(err, api.ErrNoResponse) {
					return app.fail("Signup was rejected. The email may already be registered.")
				}
				return app.failErr("sign up", err)
			}

			app.Printer.Success("Account created (%s). Run 'onboard login' to continue.", id)
			return nil
		},
	}
	cmd.Flags().String("name", "", "full name")
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password (or set "+passwordEnv+")")
	return cmd
}

func newLogoutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the local session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Auth.Logout(); err != nil {
				return app.fail("%v", err)
			}
			app.Printer.Success("Logged out")
			return nil
		},
	}
}

func newWhoamiCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.requireSession()
			if err != nil {
				return err
			}
			if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
				if sess, err = app.Auth.Refresh(cmd.Context()); err != nil {
					return app.failErr("refresh profile", err)
				}
			}

			c := sess.Claims()
			forms := c.FormsFilled()
			app.Printer.Header("%s", c.Name)
			app.Printer.Table([]string{"FIELD", "VALUE"}, [][]string{
				{"Email", c.Email},
				{"Role", string(c.Role)},
				{"Joinee type", string(c.JoineeType)},
				{"Edit rights", yesNo(c.EditRights)},
				{"Forms filled", formsSummary(forms[:])},
				{"Permissions", strings.Join(c.Permissions, ", ")},
			})
			return nil
		},
	}
	cmd.Flags().Bool("refresh", false, "fetch the latest profile from the server")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formsSummary(filled []bool) string {
	var b strings.Builder
	done := 0
	for _, f := range filled {
		if f {
			done++
			b.WriteString("■")
		} else {
			b.WriteString("□")
		}
	}
	return fmt.Sprintf("%s %d/%d", b.String(), done, len(filled))
}
