package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wbru/vibematch/internal/server"
)

// Serve runs the HTTP API server until interrupted.
//
// The server exposes the OAuth login flow alongside the JSON API, so a
// fresh deployment can authorize and query from the same process.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.init(); err != nil {
		return err
	}

	port := cmd.Int("port")
	if port <= 0 {
		port = r.config.Server.Port
	}

	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))

	router.Handler(server.NewAuthHandler(server.AuthHandlerOpts{
		Config:  server.OAuthConfig(r.config.Spotify),
		Manager: r.manager,
		Logger:  r.logger,
	}))

	api := server.NewAPIHandler(server.APIHandlerOpts{
		Manager:      r.manager,
		Fetcher:      r.fetcher,
		Orchestrator: r.orchestrator,
		History:      r.history,
		PlaylistID:   r.config.Spotify.PlaylistID,
		Logger:       r.logger,
	})
	api.Register(router)

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
