package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	serverhttp "record-linkage/server/http"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /link with the persisted model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := a.logger
			r := serverhttp.NewRouter(a.cfg, a.fields, logger)

			srv := &http.Server{Addr: a.cfg.Addr(), Handler: r, ReadHeaderTimeout: 10 * time.Second}
			logger.Info().Str("addr", a.cfg.Addr()).Msg("server starting")

			errc := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			// graceful shutdown
			select {
			case err := <-errc:
				return err
			case <-cmd.Context().Done():
			}
			logger.Info().Msg("server shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
			logger.Info().Msg("bye")
			return nil
		},
	}
}
