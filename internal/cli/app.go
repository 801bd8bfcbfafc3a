package cli

import (
	"errors"
	"fmt"
	"time"

	"onboard/internal/api"
	"onboard/internal/auth"
	"onboard/internal/config"
	"onboard/internal/directory"
	"onboard/internal/kvstore"
	"onboard/internal/manifest"
	"onboard/internal/output"
	"onboard/internal/progress"
	"onboard/internal/router"
	"onboard/internal/session"
	"onboard/internal/steps"
	"onboard/internal/upload"
	"onboard/internal/wizard"
)

// App wires the collaborators shared by all commands.
type App struct {
	Config   *config.Config
	Printer  *output.Printer
	Store    kvstore.KV
	API      *api.Client
	Auth     *auth.Service
	Manifest *manifest.Manifest

	// Now is the clock used for age checks and celebrations.
	Now func() time.Time

	closers []func() error
}

// NewApp opens the session store and builds the API client, auth service and
// step manifest from cfg.
func NewApp(cfg *config.Config, printer *output.Printer) (*App, error) {
	m := manifest.Default()
	if cfg.Wizard.ManifestPath != "" {
		var err error
		m, err = manifest.ReadFromFile(cfg.Wizard.ManifestPath)
		if err != nil {
			return nil, err
		}
	}

	opts := kvstore.Options{InMemory: cfg.Store.InMemory}
	if !opts.InMemory {
		dir, err := cfg.StoreDir()
		if err != nil {
			return nil, err
		}
		opts.Dir = dir
	}
	store, err := kvstore.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	app := newApp(cfg, printer, store, api.NewClient(cfg.API.BaseURL, cfg.API.Timeout), m)
	app.closers = append(app.closers, store.Close)
	return app, nil
}

// newApp assembles an App around existing collaborators.
func newApp(cfg *config.Config, printer *output.Printer, store kvstore.KV, client *api.Client, m *manifest.Manifest) *App {
	svc := auth.NewService(client, store)
	svc.SetRouter(router.NewRouterFromManifest(m))
	client.SetUnauthorizedHandler(svc.HandleUnauthorized)

	return &App{
		Config:   cfg,
		Printer:  printer,
		Store:    store,
		API:      client,
		Auth:     svc,
		Manifest: m,
		Now:      time.Now,
	}
}

// Close releases the session store.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// requireSession loads the session or prints a hint and returns an exit error.
func (a *App) requireSession() (session.Context, error) {
	sess, err := a.Auth.Current()
	if errors.Is(err, session.ErrNoSession) {
		a.Printer.Warn("Not logged in. Run: onboard login --email <email>")
		return session.Context{}, NewExitError(exitNoSession)
	}
	if err != nil {
		a.Printer.Error("Failed to read session: %v", err)
		return session.Context{}, NewExitError(exitFailure)
	}
	return sess, nil
}

// newWizard builds and mounts a wizard for the session.
func (a *App) newWizard(sess session.Context) (*wizard.Controller, error) {
	store := progress.NewStore(a.Store)
	deps := steps.Deps{
		API:      a.API,
		Progress: store,
		Uploader: upload.NewUploader(a.API),
		Token:    sess.Token(),
		Notify:   func(msg string) { a.Printer.Warn("%s", msg) },
		Now:      a.Now,
	}

	registry, err := steps.NewRegistry(a.Manifest, deps)
	if err != nil {
		return nil, err
	}

	w := wizard.NewController(registry, store)
	w.SetPersistOnJump(a.Config.Wizard.PersistOnJump)
	w.SetTransitionCallback(func(t wizard.Transition) {
		output.Debugf("wizard: step %d -> %d (%s)", t.From, t.To, t.Direction)
	})
	if err := w.Mount(sess); err != nil {
		return nil, err
	}
	return w, nil
}

// newDirectory builds a directory for the session.
func (a *App) newDirectory(sess session.Context) *directory.Directory {
	return directory.New(a.API, sess, a.Config.Directory.PageSize)
}

// fail prints err as an error line and returns a generic exit error.
func (a *App) fail(format string, args ...any) error {
	a.Printer.Error(format, args...)
	return NewExitError(exitFailure)
}

// failErr maps well-known errors to user-facing messages.
func (a *App) failErr(action string, err error) error {
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		a.Printer.Error("Session expired or access denied. Please log in again.")
		return NewExitError(exitNoSession)
	case errors.Is(err, directory.ErrForbidden):
		return a.fail("You do not have permission to %s.", action)
	case errors.Is(err, wizard.ErrBusy):
		return a.fail("Another action is in progress; try again.")
	}
	return a.fail("Failed to %s: %v", action, err)
}
