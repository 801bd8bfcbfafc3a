// Package cli implements the onboard command-line interface.
//
// Commands cover the session (login, signup, logout, whoami), the resumable
// onboarding wizard, the employee directory and admin actions, policy
// documents, celebrations and a local development API server.
//
// Key types:
//   - [App] wires configuration, the session store and the API client
//   - [ExitError] carries exit codes out of cobra RunE functions
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"onboard/internal/config"
	"onboard/internal/output"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "onboard",
		Short: "Employee onboarding from the terminal",
		Long: `onboard signs you in to the HR portal and walks new joinees through
the onboarding wizard: personal details, documents, bank details and the
agreement. Progress is saved after every step, so you can stop at any time
and pick up where you left off.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCommand(app),
		newSignupCommand(app),
		newLogoutCommand(app),
		newWhoamiCommand(app),
		newWizardCommand(app),
		newDirectoryCommand(app),
		newAdminCommand(app),
		newPoliciesCommand(app),
		newCelebrationsCommand(app),
		newDevServerCommand(app),
	)
	return root
}

// ExecuteResult is the outcome of a CLI run.
type ExecuteResult struct {
	ExitCode int
	Err      error
}

// RunWithConfig runs the CLI with the given configuration and arguments.
func RunWithConfig(ctx context.Context, cfg *config.Config, args []string) ExecuteResult {
	if cfg.Debug {
		output.SetDebug(true)
	}

	printer := output.NewPrinter()
	app, err := NewApp(cfg, printer)
	if err != nil {
		printer.Error("%v", err)
		return ExecuteResult{ExitCode: exitFailure, Err: err}
	}
	defer func() {
		if err := app.Close(); err != nil {
			output.Debugf("cli: close: %v", err)
		}
	}()

	cmd := NewRootCommand(app)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if code, ok := IsExitError(err); ok {
			return ExecuteResult{ExitCode: code, Err: err}
		}
		printer.Error("%v", err)
		return ExecuteResult{ExitCode: exitFailure, Err: err}
	}
	return ExecuteResult{}
}

// Execute loads configuration, runs the CLI with os.Args and exits with the
// resulting code.
func Execute() {
	cfg, err := config.NewLoader().Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFailure)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	res := RunWithConfig(ctx, cfg, os.Args[1:])
	stop()
	os.Exit(res.ExitCode)
}
