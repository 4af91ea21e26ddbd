// ABOUTME: serve command running the HTTP API
// ABOUTME: Shuts down gracefully on SIGINT or SIGTERM

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"content-fetch-api/api"
	"content-fetch-api/api/handlers"
	"content-fetch-api/core/fetch"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, serve)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	svc := api.Services{
		Runner:   a.pool,
		Robots:   a.robots,
		Policies: a.orchestrator,
	}
	if a.collector != nil {
		svc.Collector = a.collector
	}

	srv := &http.Server{
		Addr: ":" + a.cfg.Server.Port,
		Handler: api.NewServer(api.APIConfig{
			Logger:     a.logger,
			RateLimit:  a.cfg.Server.RateLimit,
			RateWindow: a.cfg.Server.RateWindow,
		}, svc),
		ReadTimeout: 15 * time.Second,
		// Fetch batches can run long
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.logger.Error("HTTP server error", map[string]interface{}{"error": err.Error()})
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server...", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
		return err
	}
	a.logger.Info("Server stopped", nil)
	return nil
}

var _ handlers.Collector = (*fetch.Collector)(nil)
