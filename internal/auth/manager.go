package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/wbru/vibematch/internal/shared"
)

const (
	// DefaultTokenURL is the Spotify accounts service token endpoint.
	DefaultTokenURL = "https://accounts.spotify.com/api/token"

	// RefreshMargin is how long before expiry a cached token is considered stale.
	RefreshMargin = 60 * time.Second
)

// Manager guarantees callers a currently valid access token or a definitive
// authorization failure.
//
// It exclusively owns the live [Credential]; all access is mutex-guarded so
// concurrent callers that observe an expiring token serialize into a single
// refresh against the token endpoint.
type Manager struct {
	clientID      string
	clientSecret  string
	tokenURL      string
	allowedUserID string
	store         Store
	httpClient    *http.Client
	logger        *log.Logger

	mu     sync.Mutex
	cred   *Credential
	loaded bool
	now    func() time.Time
}

// ManagerOpts contains configuration for creating a [Manager].
type ManagerOpts struct {
	ClientID      string
	ClientSecret  string
	TokenURL      string // defaults to DefaultTokenURL
	AllowedUserID string
	Store         Store
	HTTPClient    *http.Client
	Logger        *log.Logger
}

// NewManager creates a new token [Manager].
func NewManager(opts ManagerOpts) *Manager {
	if opts.TokenURL == "" {
		opts.TokenURL = DefaultTokenURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Manager{
		clientID:      opts.ClientID,
		clientSecret:  opts.ClientSecret,
		tokenURL:      opts.TokenURL,
		allowedUserID: opts.AllowedUserID,
		store:         opts.Store,
		httpClient:    opts.HTTPClient,
		logger:        opts.Logger,
		now:           time.Now,
	}
}

// tokenResponse mirrors the token endpoint's JSON payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// Token returns a valid access token, refreshing it if needed.
//
// Returns [shared.ErrNotAuthorized] when no refresh token exists or the stored
// credential belongs to an account other than the allow-listed one, and
// [shared.ErrRefreshFailed] when the token endpoint rejects the refresh token.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLoaded(ctx); err != nil {
		return "", err
	}

	// The account binding is checked on every call, not only at issuance, so
	// a swapped credential cannot silently grant access.
	if m.cred != nil && m.cred.UserID != "" && m.cred.UserID != m.allowedUserID {
		return "", fmt.Errorf("%w: %w", shared.ErrNotAuthorized, shared.ErrWrongAccount)
	}

	if m.cred.ValidFor(m.now(), RefreshMargin) {
		return m.cred.AccessToken, nil
	}

	if m.cred == nil || m.cred.RefreshToken == "" {
		return "", fmt.Errorf("%w: %w", shared.ErrNotAuthorized, shared.ErrNoRefreshToken)
	}

	return m.refresh(ctx)
}

// refresh exchanges the refresh token for a new access token. Caller must hold m.mu.
func (m *Manager) refresh(ctx context.Context) (string, error) {
	m.logger.Info("refreshing access token")

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {m.cred.RefreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(m.clientID, m.clientSecret)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", shared.ErrRefreshFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d: %s", shared.ErrRefreshFailed, resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", shared.ErrRefreshFailed, err)
	}

	m.cred.AccessToken = tr.AccessToken
	m.cred.ExpiresAt = m.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	// Spotify may rotate the refresh token; reuse the old one otherwise.
	if tr.RefreshToken != "" {
		m.cred.RefreshToken = tr.RefreshToken
	}

	if err := m.store.Save(ctx, m.cred); err != nil {
		// The in-memory token stays usable for this process; persistence
		// failure must not roll back an already-issued refresh.
		m.logger.Warn("failed to persist refreshed credential", "error", err)
	}

	return m.cred.AccessToken, nil
}

// ensureLoaded lazily loads the persisted credential. Caller must hold m.mu.
func (m *Manager) ensureLoaded(ctx context.Context) error {
	if m.loaded {
		return nil
	}

	cred, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load credential: %w", err)
	}
	if cred == nil {
		cred = &Credential{}
	}

	m.cred = cred
	m.loaded = true
	return nil
}

// Invalidate clears the cached access token, forcing a refresh on the next
// Token call. Used when the API rejects a bearer token with a 401.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cred != nil {
		m.cred.AccessToken = ""
		m.cred.ExpiresAt = time.Time{}
	}
}

// SetCredential replaces the live credential after a completed authorization
// flow and persists it. Rejects credentials bound to a non-allow-listed account.
func (m *Manager) SetCredential(ctx context.Context, cred *Credential) error {
	if cred == nil {
		return shared.ErrMissingCredentials
	}
	if cred.UserID != m.allowedUserID {
		return fmt.Errorf("%w: user %s", shared.ErrWrongAccount, cred.UserID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cred = cred
	m.loaded = true

	if err := m.store.Save(ctx, cred); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}

	return nil
}

// Clear destroys the live credential, e.g. when authorization is revoked.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cred = &Credential{}
	m.loaded = true

	if err := m.store.Save(ctx, m.cred); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}

	return nil
}

// Authorized reports whether a usable credential exists for the allowed
// account. A refresh may be performed as a side effect.
func (m *Manager) Authorized(ctx context.Context) (bool, error) {
	if _, err := m.Token(ctx); err != nil {
		return false, err
	}
	return true, nil
}
