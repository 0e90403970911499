package server_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wbru/vibematch/internal/auth"
	"github.com/wbru/vibematch/internal/server"
	"github.com/wbru/vibematch/internal/shared"
	itest "github.com/wbru/vibematch/internal/testing"
	"golang.org/x/oauth2"
)

const allowedUser = "955wbru"

// authFixture wires an AuthHandler against fake token and profile endpoints.
type authFixture struct {
	handler *server.AuthHandler
	manager *auth.Manager
	store   *itest.MemoryStore
}

func newAuthFixture(t *testing.T, profileUserID string) *authFixture {
	t.Helper()

	// fake accounts service: always exchanges successfully
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "exchanged-token",
			"refresh_token": "exchanged-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(tokenSrv.Close)

	// fake API: serves the profile lookup
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": profileUserID, "display_name": "Station Manager"})
	}))
	t.Cleanup(apiSrv.Close)

	store := itest.NewMemoryStore(nil)
	manager := auth.NewManager(auth.ManagerOpts{
		ClientID:      "client-id",
		ClientSecret:  "client-secret",
		AllowedUserID: allowedUser,
		Store:         store,
	})

	handler := server.NewAuthHandler(server.AuthHandlerOpts{
		Config: &oauth2.Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost:3000/callback",
			Endpoint:     oauth2.Endpoint{AuthURL: "http://unused/authorize", TokenURL: tokenSrv.URL},
		},
		Manager:    manager,
		State:      "test-state",
		APIBaseURL: apiSrv.URL,
	})

	return &authFixture{handler: handler, manager: manager, store: store}
}

func waitResult(t *testing.T, h *server.AuthHandler) server.AuthResult {
	t.Helper()
	select {
	case result := <-h.Result():
		return result
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for auth result")
		return server.AuthResult{}
	}
}

func TestAuthHandler(t *testing.T) {
	t.Run("Login Redirects To Consent Page", func(t *testing.T) {
		fx := newAuthFixture(t, allowedUser)

		rec := httptest.NewRecorder()
		fx.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

		if rec.Code != http.StatusFound {
			t.Fatalf("status = %d, want 302", rec.Code)
		}
		loc := rec.Header().Get("Location")
		if !strings.Contains(loc, "state=test-state") {
			t.Errorf("redirect %q should carry the state token", loc)
		}
		if !strings.Contains(loc, "show_dialog=true") {
			t.Errorf("redirect %q should force the consent dialog", loc)
		}
	})

	t.Run("Callback Success Persists Credential", func(t *testing.T) {
		fx := newAuthFixture(t, allowedUser)

		rec := httptest.NewRecorder()
		fx.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=auth-code&state=test-state", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}

		result := waitResult(t, fx.handler)
		if result.Err != nil {
			t.Fatalf("expected no error, got %v", result.Err)
		}
		if result.UserID != allowedUser {
			t.Errorf("user id = %q, want %q", result.UserID, allowedUser)
		}

		cred := fx.store.Credential()
		if cred == nil {
			t.Fatal("expected credential persisted")
		}
		if cred.AccessToken != "exchanged-token" || cred.RefreshToken != "exchanged-refresh" {
			t.Errorf("unexpected credential: %+v", cred)
		}
		if cred.UserID != allowedUser {
			t.Errorf("credential user = %q, want %q", cred.UserID, allowedUser)
		}
	})

	t.Run("Callback Rejects Foreign Account", func(t *testing.T) {
		fx := newAuthFixture(t, "intruder")

		rec := httptest.NewRecorder()
		fx.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=auth-code&state=test-state", nil))

		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}

		result := waitResult(t, fx.handler)
		if !errors.Is(result.Err, shared.ErrWrongAccount) {
			t.Errorf("expected ErrWrongAccount, got %v", result.Err)
		}
		if fx.store.Credential() != nil {
			t.Error("foreign credential must not be persisted")
		}
	})

	t.Run("Callback Rejects Bad State", func(t *testing.T) {
		fx := newAuthFixture(t, allowedUser)

		rec := httptest.NewRecorder()
		fx.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=auth-code&state=forged", nil))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if result := waitResult(t, fx.handler); result.Err == nil {
			t.Error("expected an error result for forged state")
		}
	})

	t.Run("Callback Without Code Reports Denial", func(t *testing.T) {
		fx := newAuthFixture(t, allowedUser)

		rec := httptest.NewRecorder()
		fx.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=test-state&error=access_denied", nil))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		result := waitResult(t, fx.handler)
		if result.Err == nil || !strings.Contains(result.Err.Error(), "access_denied") {
			t.Errorf("expected denial error, got %v", result.Err)
		}
	})
}
