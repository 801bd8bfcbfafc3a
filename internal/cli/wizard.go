package cli

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"onboard/internal/session"
	"onboard/internal/steps"
	"onboard/internal/wizard"
)

func newWizardCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Work through the onboarding forms",
		Long: `Work through the onboarding forms one step at a time.

Form data is read from a YAML file with the step's field names:

  # personal.yaml
  firstName: Asha
  lastName: Rao
  dob: 1998-11-20
  phone: "9876543210"
  aadhaar: "123412341234"
  pan: ABCDE1234F
  accountNumber: "123456789012"

  # documents.yaml (file is relative to the YAML file)
  documentType: passport
  documentId: P1234567
  file: passport.pdf

  # bank.yaml
  accountNumber: "123456789012"
  ifsc: SBIN0001234

  # agreement.yaml
  accepted: true`,
	}

	cmd.AddCommand(
		newWizardStatusCommand(app),
		newWizardNextCommand(app),
		newWizardBackCommand(app),
		newWizardJumpCommand(app),
		newWizardSaveCommand(app),
	)
	return cmd
}

// mountWizard loads the session and mounts a wizard for it.
func mountWizard(app *App) (session.Context, *wizard.Controller, error) {
	sess, err := app.requireSession()
	if err != nil {
		return session.Context{}, nil, err
	}
	w, err := app.newWizard(sess)
	if err != nil {
		return session.Context{}, nil, app.failErr("start the wizard", err)
	}
	return sess, w, nil
}

func printWizardStatus(app *App, w *wizard.Controller) {
	st := w.State()
	app.Printer.Header("Onboarding")
	if st.Special {
		app.Printer.Info("Your account uses the single-page profile flow.")
	}
	app.Printer.Steps(w.Registry().Titles(), st.Current, st.Highest)
	app.Printer.Info("Step %d of %d", st.Current+1, st.StepCount)
}

func newWizardStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current onboarding step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, w, err := mountWizard(app)
			if err != nil {
				return err
			}
			printWizardStatus(app, w)
			return nil
		},
	}
}

func newWizardNextCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Submit the current step and continue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, w, err := mountWizard(app)
			if err != nil {
				return err
			}

			active := w.Active()
			if path, _ := cmd.Flags().GetString("file"); path != "" {
				closer, err := applyStepInput(active, path)
				if err != nil {
					return app.fail("%v", err)
				}
				defer closer.Close()
			}

			out, err := w.Next(cmd.Context())
			if err != nil {
				return app.failErr("submit "+active.Title(), err)
			}
			if !out.Accepted {
				app.Printer.Error("%s was not submitted", active.Title())
				if r, ok := active.(steps.FieldErrorReporter); ok {
					app.Printer.FieldErrors(r.Fields(), r.Errors())
				}
				return NewExitError(exitFailure)
			}

			if _, err := app.Auth.Refresh(cmd.Context()); err != nil {
				app.Printer.Warn("Saved, but the profile could not be refreshed: %v", err)
			}

			switch {
			case out.Route != "":
				app.Printer.Success("%s saved. Your profile is up to date.", active.Title())
			case out.Completed:
				app.Printer.Success("Onboarding complete!")
			default:
				app.Printer.Success("%s saved", active.Title())
				printWizardStatus(app, w)
			}
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", "", "YAML file with the step's form data")
	return cmd
}

func newWizardBackCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "back",
		Short: "Return to the previous step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, w, err := mountWizard(app)
			if err != nil {
				return err
			}
			moved, err := w.Back()
			if err != nil {
				return app.failErr("go back", err)
			}
			if !moved {
				app.Printer.Warn("Already at the first step")
			}
			printWizardStatus(app, w)
			return nil
		},
	}
}

func newWizardJumpCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "jump <step>",
		Short: "Go to a step you have already reached",
		Long: `Go directly to a step (numbered from 1) without re-submitting the steps
in between. Only steps up to the furthest one reached can be selected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return app.fail("step must be a positive number, got %q", args[0])
			}

			_, w, err := mountWizard(app)
			if err != nil {
				return err
			}
			moved, err := w.JumpTo(n - 1)
			if err != nil {
				return app.failErr("jump", err)
			}
			if !moved {
				app.Printer.Warn("Step %d is not available", n)
			}
			printWizardStatus(app, w)
			return nil
		},
	}
}

func newWizardSaveCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a draft of the current step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			if path == "" {
				return app.fail("--file is required")
			}

			_, w, err := mountWizard(app)
			if err != nil {
				return err
			}
			active := w.Active()
			closer, err := applyStepInput(active, path)
			if err != nil {
				return app.fail("%v", err)
			}
			defer closer.Close()

			saved, err := w.Save(cmd.Context())
			if err != nil {
				return app.failErr("save "+active.Title(), err)
			}
			if !saved {
				app.Printer.Warn("%s has no draft support", active.Title())
				return nil
			}
			app.Printer.Success("Draft of %s saved", active.Title())
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", "", "YAML file with the step's form data")
	return cmd
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// documentInput is the YAML form of the documents step.
type documentInput struct {
	steps.DocumentDetails `yaml:",inline"`
	File                  string `yaml:"file"`
}

// applyStepInput loads form data from a YAML file into the step. The returned
// closer releases an attached file and must be closed after submission.
func applyStepInput(step steps.Controller, path string) (io.Closer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read form data: %w", err)
	}
	decode := func(v any) error {
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return nil
	}

	switch s := step.(type) {
	case *steps.Personal:
		var d steps.PersonalDetails
		if err := decode(&d); err != nil {
			return nil, err
		}
		s.Set(d)

	case *steps.Bank:
		var d steps.BankDetails
		if err := decode(&d); err != nil {
			return nil, err
		}
		s.Set(d)

	case *steps.Agreement:
		var d steps.AgreementDetails
		if err := decode(&d); err != nil {
			return nil, err
		}
		s.Accept(d.Accepted)

	case *steps.Documents:
		var in documentInput
		if err := decode(&in); err != nil {
			return nil, err
		}
		s.Set(in.DocumentDetails)
		if in.File == "" {
			return nopCloser{}, nil
		}
		return attach(s, filepath.Dir(path), in.File)

	default:
		return nil, fmt.Errorf("step %q does not accept form data", step.Title())
	}
	return nopCloser{}, nil
}

func attach(s *steps.Documents, baseDir, name string) (io.Closer, error) {
	if !filepath.IsAbs(name) {
		name = filepath.Join(baseDir, name)
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open document: %w", err)
	}

	s.Attach(steps.Attachment{
		Name:        filepath.Base(name),
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		Body:        f,
		Size:        info.Size(),
	})
	return f, nil
}
