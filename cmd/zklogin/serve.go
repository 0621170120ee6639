package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/layer-3/zklogin/core"
	transport "github.com/layer-3/zklogin/transport/http"
)

func (a *app) serveCmd() *cobra.Command {
	var login bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the redirect page and wallet API on the loopback address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := a.open(ctx, advance)
			if err != nil {
				return err
			}
			defer svc.Close()

			if login && svc.Status().State == core.StateLoggedOut.String() {
				if err := svc.Login(ctx); err != nil {
					a.logger.Error().Err(err).Msg("login failed, retry with POST /epoch or POST /login")
				}
			}

			gin.SetMode(gin.ReleaseMode)
			server := &http.Server{
				Addr:              a.cfg.HTTP.Addr,
				Handler:           transport.SetupRouter(svc, svc.MetricsHandler(), a.logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info().Str("addr", server.Addr).Msg("listening")
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&login, "login", true, "Start a login when no session is restored")
	return cmd
}
