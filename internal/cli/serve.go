package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/rflorenc/scm-migration-workbench/internal/api"
	"github.com/rflorenc/scm-migration-workbench/internal/exitcode"
	"github.com/rflorenc/scm-migration-workbench/internal/migration"
	"github.com/rflorenc/scm-migration-workbench/internal/models"
	"github.com/rflorenc/scm-migration-workbench/internal/platform"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close(context.Background())

			conns := models.NewConnectionStore()
			for _, cc := range a.cfg.Connections {
				conn := cc.ToConnection()
				conns.Create(conn)
				a.log.Info("loaded connection", "name", conn.Name, "role", conn.Role, "url", conn.BaseURL())
				platform.Discover(ctx, a.log, conn, conns)
			}

			server := &api.Server{
				Connections: conns,
				Jobs:        models.NewJobStore(),
				Service:     migration.New(st, a.log, a.serviceOptions()),
				Log:         a.log,
				LogLevel:    a.cfg.LogLevel,
				JobTimeout:  a.cfg.Timeout(),
			}
			srv := &http.Server{
				Addr:              a.cfg.Listen,
				Handler:           api.NewRouter(server),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("workbench listening", "addr", a.cfg.Listen, "version", a.build.Version)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return exitcode.Wrap(exitcode.IOErr, fmt.Errorf("listening on %s: %w", a.cfg.Listen, err))
			case <-ctx.Done():
				a.log.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().String("listen", "", "listen address (default :8080)")
	cmd.Flags().Int("job-timeout", 0, "per-job timeout in seconds (0 = none)")
	a.bind(cmd.Flags(), map[string]string{"listen": "listen", "job-timeout": "job_timeout"})
	return cmd
}
