package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wbru/vibematch/internal/auth"
	"github.com/wbru/vibematch/internal/shared"
	itest "github.com/wbru/vibematch/internal/testing"
)

const allowedUser = "955wbru"

// tokenServer fakes the accounts token endpoint and counts refresh hits.
func tokenServer(t *testing.T, status int, resp map[string]any) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q, want refresh_token", got)
		}
		if _, _, ok := r.BasicAuth(); !ok {
			t.Error("expected basic auth on refresh request")
		}

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newManager(store auth.Store, tokenURL string) *auth.Manager {
	return auth.NewManager(auth.ManagerOpts{
		ClientID:      "client-id",
		ClientSecret:  "client-secret",
		TokenURL:      tokenURL,
		AllowedUserID: allowedUser,
		Store:         store,
	})
}

func TestManagerToken(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid Cached Token Avoids Network", func(t *testing.T) {
		srv, hits := tokenServer(t, http.StatusOK, nil)
		store := itest.NewMemoryStore(&auth.Credential{
			AccessToken:  "cached-token",
			RefreshToken: "refresh",
			ExpiresAt:    time.Now().Add(time.Hour),
			UserID:       allowedUser,
		})

		m := newManager(store, srv.URL)
		token, err := m.Token(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "cached-token" {
			t.Errorf("token = %q, want cached-token", token)
		}
		if hits.Load() != 0 {
			t.Errorf("expected no refresh calls, got %d", hits.Load())
		}
	})

	t.Run("Expiring Token Triggers Refresh", func(t *testing.T) {
		srv, hits := tokenServer(t, http.StatusOK, map[string]any{
			"access_token": "fresh-token",
			"expires_in":   3600,
		})
		store := itest.NewMemoryStore(&auth.Credential{
			AccessToken:  "stale-token",
			RefreshToken: "refresh",
			ExpiresAt:    time.Now().Add(30 * time.Second), // inside the refresh margin
			UserID:       allowedUser,
		})

		m := newManager(store, srv.URL)
		token, err := m.Token(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "fresh-token" {
			t.Errorf("token = %q, want fresh-token", token)
		}
		if hits.Load() != 1 {
			t.Errorf("expected 1 refresh call, got %d", hits.Load())
		}
		if store.Saves() != 1 {
			t.Errorf("expected refreshed credential persisted once, got %d saves", store.Saves())
		}
	})

	t.Run("Concurrent Callers Share One Refresh", func(t *testing.T) {
		srv, hits := tokenServer(t, http.StatusOK, map[string]any{
			"access_token": "fresh-token",
			"expires_in":   3600,
		})
		store := itest.NewMemoryStore(&auth.Credential{
			AccessToken:  "stale-token",
			RefreshToken: "refresh",
			ExpiresAt:    time.Now().Add(-time.Minute),
			UserID:       allowedUser,
		})

		m := newManager(store, srv.URL)

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				token, err := m.Token(ctx)
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				if token != "fresh-token" {
					t.Errorf("token = %q, want fresh-token", token)
				}
			}()
		}
		wg.Wait()

		if hits.Load() != 1 {
			t.Errorf("expected a single refresh for all callers, got %d", hits.Load())
		}
	})

	t.Run("Wrong Account Is Rejected On Every Call", func(t *testing.T) {
		srv, hits := tokenServer(t, http.StatusOK, nil)
		store := itest.NewMemoryStore(&auth.Credential{
			AccessToken:  "valid-token",
			RefreshToken: "refresh",
			ExpiresAt:    time.Now().Add(time.Hour),
			UserID:       "intruder",
		})

		m := newManager(store, srv.URL)
		for range 2 {
			if _, err := m.Token(ctx); !errors.Is(err, shared.ErrNotAuthorized) {
				t.Errorf("expected ErrNotAuthorized, got %v", err)
			}
		}
		if hits.Load() != 0 {
			t.Errorf("expected no refresh attempts for a foreign account, got %d", hits.Load())
		}
	})

	t.Run("No Stored Credential", func(t *testing.T) {
		srv, _ := tokenServer(t, http.StatusOK, nil)
		m := newManager(itest.NewMemoryStore(nil), srv.URL)

		_, err := m.Token(ctx)
		if !errors.Is(err, shared.ErrNotAuthorized) {
			t.Errorf("expected ErrNotAuthorized, got %v", err)
		}
		if !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}
	})

	t.Run("Rejected Refresh Token", func(t *testing.T) {
		srv, _ := tokenServer(t, http.StatusBadRequest, map[string]any{
			"error": "invalid_grant",
		})
		store := itest.NewMemoryStore(&auth.Credential{
			AccessToken:  "stale-token",
			RefreshToken: "revoked",
			ExpiresAt:    time.Now().Add(-time.Minute),
			UserID:       allowedUser,
		})

		m := newManager(store, srv.URL)
		if _, err := m.Token(ctx); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
	})

	t.Run("Refresh Token Retained When Not Rotated", func(t *testing.T) {
		srv, _ := tokenServer(t, http.StatusOK, map[string]any{
			"access_token": "fresh-token",
			"expires_in":   3600,
		})
		store := itest.NewMemoryStore(&auth.Credential{
			AccessToken:  "stale-token",
			RefreshToken: "keep-me",
			ExpiresAt:    time.Now().Add(-time.Minute),
			UserID:       allowedUser,
		})

		m := newManager(store, srv.URL)
		if _, err := m.Token(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := store.Credential().RefreshToken; got != "keep-me" {
			t.Errorf("refresh token = %q, want keep-me", got)
		}
	})

	t.Run("Save Failure Does Not Fail Refresh", func(t *testing.T) {
		srv, _ := tokenServer(t, http.StatusOK, map[string]any{
			"access_token": "fresh-token",
			"expires_in":   3600,
		})
		store := itest.NewMemoryStore(&auth.Credential{
			AccessToken:  "stale-token",
			RefreshToken: "refresh",
			ExpiresAt:    time.Now().Add(-time.Minute),
			UserID:       allowedUser,
		})
		store.FailSaves(fmt.Errorf("disk full"))

		m := newManager(store, srv.URL)
		token, err := m.Token(ctx)
		if err != nil {
			t.Fatalf("expected refresh to succeed despite save failure, got %v", err)
		}
		if token != "fresh-token" {
			t.Errorf("token = %q, want fresh-token", token)
		}
	})
}

func TestManagerInvalidate(t *testing.T) {
	ctx := context.Background()
	srv, hits := tokenServer(t, http.StatusOK, map[string]any{
		"access_token": "second-token",
		"expires_in":   3600,
	})
	store := itest.NewMemoryStore(&auth.Credential{
		AccessToken:  "first-token",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
		UserID:       allowedUser,
	})

	m := newManager(store, srv.URL)
	if _, err := m.Token(ctx); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no refresh before invalidation, got %d", hits.Load())
	}

	m.Invalidate()

	token, err := m.Token(ctx)
	if err != nil {
		t.Fatalf("expected no error after invalidation, got %v", err)
	}
	if token != "second-token" {
		t.Errorf("token = %q, want second-token", token)
	}
	if hits.Load() != 1 {
		t.Errorf("expected exactly one refresh after invalidation, got %d", hits.Load())
	}
}

func TestManagerSetCredential(t *testing.T) {
	ctx := context.Background()

	t.Run("Persists Allowed Account", func(t *testing.T) {
		store := itest.NewMemoryStore(nil)
		m := newManager(store, "http://unused")

		cred := &auth.Credential{
			AccessToken:  "token",
			RefreshToken: "refresh",
			ExpiresAt:    time.Now().Add(time.Hour),
			UserID:       allowedUser,
		}
		if err := m.SetCredential(ctx, cred); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if store.Credential() == nil {
			t.Error("expected credential to be persisted")
		}
	})

	t.Run("Rejects Foreign Account", func(t *testing.T) {
		store := itest.NewMemoryStore(nil)
		m := newManager(store, "http://unused")

		cred := &auth.Credential{AccessToken: "token", UserID: "intruder"}
		if err := m.SetCredential(ctx, cred); !errors.Is(err, shared.ErrWrongAccount) {
			t.Errorf("expected ErrWrongAccount, got %v", err)
		}
		if store.Credential() != nil {
			t.Error("foreign credential must not be persisted")
		}
	})

	t.Run("Rejects Nil", func(t *testing.T) {
		m := newManager(itest.NewMemoryStore(nil), "http://unused")
		if err := m.SetCredential(ctx, nil); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestCredentialValidFor(t *testing.T) {
	now := time.Now()
	margin := auth.RefreshMargin

	tc := []struct {
		name string
		cred *auth.Credential
		want bool
	}{
		{
			name: "valid well before expiry",
			cred: &auth.Credential{AccessToken: "t", ExpiresAt: now.Add(time.Hour)},
			want: true,
		},
		{
			name: "inside refresh margin",
			cred: &auth.Credential{AccessToken: "t", ExpiresAt: now.Add(30 * time.Second)},
			want: false,
		},
		{
			name: "expired",
			cred: &auth.Credential{AccessToken: "t", ExpiresAt: now.Add(-time.Minute)},
			want: false,
		},
		{
			name: "no access token",
			cred: &auth.Credential{ExpiresAt: now.Add(time.Hour)},
			want: false,
		},
		{
			name: "nil credential",
			cred: nil,
			want: false,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cred.ValidFor(now, margin); got != tt.want {
				t.Errorf("ValidFor() = %v, want %v", got, tt.want)
			}
		})
	}
}
