package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"onboard/internal/devapi"
)

func newDevServerCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory HR API for local use",
		Long: `Run an in-memory HR API implementing every endpoint the client uses.
Accounts and policies come from a YAML seed file (devapi.seed_path or
--seed) or a built-in sample organisation. All data is lost on exit.

Point the client at it with api.base_url or ONBOARD_API_URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = app.Config.DevAPI.Addr
			}
			seedPath, _ := cmd.Flags().GetString("seed")
			if seedPath == "" {
				seedPath = app.Config.DevAPI.SeedPath
			}

			seed := devapi.DefaultSeed()
			if seedPath != "" {
				var err error
				if seed, err = devapi.LoadSeed(seedPath); err != nil {
					return app.fail("%v", err)
				}
			}
			srv, err := devapi.New(seed)
			if err != nil {
				return app.fail("%v", err)
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return app.fail("failed to listen on %s: %v", addr, err)
			}
			return serveDevAPI(cmd.Context(), app, ln, srv, len(seed.Users))
		},
	}
	cmd.Flags().String("addr", "", "listen address (default from devapi.addr)")
	cmd.Flags().String("seed", "", "YAML seed file")
	return cmd
}

// serveDevAPI serves h on ln until ctx is cancelled.
func serveDevAPI(ctx context.Context, app *App, ln net.Listener, h http.Handler, users int) error {
	server := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(ln) }()
	app.Printer.Success("Dev API listening on http://%s (%d accounts)", ln.Addr(), users)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return app.fail("dev API stopped: %v", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return app.fail("dev API shutdown: %v", err)
	}
	app.Printer.Info("Dev API stopped")
	return nil
}
