package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/urdu-link/internal/convert"
	"github.com/thywilljoshua/urdu-link/internal/export"
	"github.com/thywilljoshua/urdu-link/internal/server"
)

func serveCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the translation and assistant API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			ctx := cmd.Context()
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}

			run := convert.Config{
				PDF:         export.PDFOptions{FontPath: a.cfg.Export.PDFFont},
				Quality:     a.cfg.Quality(),
				Concurrency: a.cfg.Translate.Concurrency,
				Limits:      a.cfg.SizeLimits(),
				Raster:      a.cfg.Raster,
				Logger:      a.log,
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
				run.Cache = st
				run.Runs = st
			}

			api := server.New(server.Options{AI: svc, Run: run, Logger: a.log})
			srv := &http.Server{
				Addr:              addr,
				Handler:           api.Router(),
				ReadHeaderTimeout: 30 * time.Second,
				ReadTimeout:       a.cfg.Server.ReadTimeout,
				WriteTimeout:      a.cfg.Server.WriteTimeout,
			}

			serverErrors := make(chan error, 1)
			go func() {
				a.log.Info().Str("addr", addr).Msg("HTTP server listening")
				serverErrors <- srv.ListenAndServe()
			}()

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-serverErrors:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case sig := <-shutdown:
				a.log.Info().Str("signal", sig.String()).Msg("shutting down")
			}

			sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				a.log.Error().Err(err).Msg("http shutdown")
			}
			return api.Shutdown(sctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
