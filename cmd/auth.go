package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wbru/vibematch/internal/server"
	"github.com/wbru/vibematch/internal/shared"
)

// authTimeout bounds how long the login command waits for the OAuth
// callback before giving up.
const authTimeout = 2 * time.Minute

// AuthLogin runs the OAuth2 authorization-code flow.
//
// Starts a temporary local server for the callback, opens the consent
// page in a browser, and persists the resulting credential once the
// account passes the allow-list check.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.init(); err != nil {
		return err
	}

	handler := server.NewAuthHandler(server.AuthHandlerOpts{
		Config:  server.OAuthConfig(r.config.Spotify),
		Manager: r.manager,
		Logger:  r.logger,
	})

	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(handler)

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	authURL := handler.AuthURL()
	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL in your browser to authorize:\n%s\n", authURL)
	} else {
		r.logger.Info("opening browser for authorization", "url", authURL)
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
			r.writePlain("Open this URL in your browser to authorize:\n%s\n", authURL)
		}
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = authTimeout
	}

	select {
	case result := <-handler.Result():
		if result.Err != nil {
			return fmt.Errorf("authorization failed: %w", result.Err)
		}
		r.logger.Info("authorization complete", "user", result.UserID)
		name := result.DisplayName
		if name == "" {
			name = result.UserID
		}
		return r.writePlain("✓ Authenticated as %s\n", name)
	case err := <-errCh:
		return fmt.Errorf("callback server failed: %w", err)
	case <-time.After(timeout):
		return fmt.Errorf("%w: timed out waiting for authorization", shared.ErrAuthDenied)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AuthLogout removes the stored credential.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.init(); err != nil {
		return err
	}

	if err := r.manager.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	return r.writePlain("✓ Credentials removed\n")
}

// Status reports whether stored credentials are present and usable.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	if err := r.init(); err != nil {
		return err
	}

	authorized, err := r.manager.Authorized(ctx)

	if cmd.Bool("json") {
		payload := map[string]any{"authenticated": authorized}
		if err != nil {
			payload["error"] = err.Error()
		}
		return r.writeJSON(payload, true)
	}

	if err != nil {
		r.writePlain("Authentication: ✗ Not authenticated\n")
		return r.writePlain("Reason: %v\n", err)
	}
	if authorized {
		return r.writePlain("Authentication: ✓ Authenticated\n")
	}
	return r.writePlain("Authentication: ✗ Not authenticated\nRun 'vibematch auth login' to authorize.\n")
}
