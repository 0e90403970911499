package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/wbru/vibematch/internal/auth"
	"github.com/wbru/vibematch/internal/shared"
	"github.com/wbru/vibematch/internal/spotify"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// Scopes required by the playlist manager.
var oauthScopes = []string{
	"playlist-read-private",
	"playlist-modify-public",
	"playlist-modify-private",
	"user-read-email",
}

// OAuthConfig builds an [oauth2.Config] from application settings.
func OAuthConfig(cfg shared.SpotifyConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       oauthScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}
}

// AuthResult is the outcome of one authorization flow.
type AuthResult struct {
	UserID      string
	DisplayName string
	Err         error
}

// AuthHandler serves the OAuth2 authorization-code flow: /login redirects to
// the consent page, /callback exchanges the code, verifies the account against
// the allow-list, and hands the credential to the token manager.
//
// Implements the [Handler] interface for registration with a [Router].
type AuthHandler struct {
	config     *oauth2.Config
	manager    *auth.Manager
	state      string
	apiBaseURL string
	logger     *log.Logger

	resultChan chan AuthResult
	once       sync.Once
}

// AuthHandlerOpts contains configuration for creating an [AuthHandler].
type AuthHandlerOpts struct {
	Config     *oauth2.Config
	Manager    *auth.Manager
	State      string // CSRF state token; should be cryptographically random
	APIBaseURL string // defaults to the Spotify API root; overridden in tests
	Logger     *log.Logger
}

// NewAuthHandler creates a new [AuthHandler].
func NewAuthHandler(opts AuthHandlerOpts) *AuthHandler {
	if opts.State == "" {
		opts.State = shared.GenerateID()
	}
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = spotify.DefaultBaseURL
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &AuthHandler{
		config:     opts.Config,
		manager:    opts.Manager,
		state:      opts.State,
		apiBaseURL: opts.APIBaseURL,
		logger:     opts.Logger,
		resultChan: make(chan AuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"/login", "/callback"}
}

// AuthURL returns the consent page URL for this flow's state token.
func (h *AuthHandler) AuthURL() string {
	return h.config.AuthCodeURL(h.state, oauth2.SetAuthURLParam("show_dialog", "true"))
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/login":
		http.Redirect(w, r, h.AuthURL(), http.StatusFound)
	case "/callback":
		h.callback(w, r)
	default:
		http.NotFound(w, r)
	}
}

// callback validates state, exchanges the authorization code, verifies the
// authenticated account is the allow-listed one, and persists the credential.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	if state := r.URL.Query().Get("state"); state != h.state {
		err := fmt.Errorf("invalid state parameter")
		h.send(AuthResult{Err: err})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errParam := r.URL.Query().Get("error")
		errDesc := r.URL.Query().Get("error_description")
		err := fmt.Errorf("authorization failed: %s - %s", errParam, errDesc)
		h.send(AuthResult{Err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.send(AuthResult{Err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	user, err := h.fetchProfile(r.Context(), token.AccessToken)
	if err != nil {
		h.send(AuthResult{Err: err})
		http.Error(w, "Failed to fetch user information", http.StatusInternalServerError)
		return
	}

	h.logger.Info("authorization attempt", "user", user.ID, "name", user.DisplayName)

	cred := &auth.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
		UserID:       user.ID,
	}

	if err := h.manager.SetCredential(r.Context(), cred); err != nil {
		h.logger.Warn("authorization rejected", "user", user.ID, "error", err)
		h.send(AuthResult{UserID: user.ID, Err: err})
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, deniedPage)
		return
	}

	h.logger.Info("authorization granted", "user", user.ID)
	h.send(AuthResult{UserID: user.ID, DisplayName: user.DisplayName})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, successPage, user.DisplayName)
}

// fetchProfile looks up the profile bound to a fresh access token, before the
// credential has been accepted into the manager.
func (h *AuthHandler) fetchProfile(ctx context.Context, accessToken string) (*spotify.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.apiBaseURL+"/me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: profile lookup returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var user spotify.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}

	return &user, nil
}

// send delivers the flow result through the channel (only once).
func (h *AuthHandler) send(result AuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the channel that receives the flow's completion.
//
// The channel receives exactly one result and is then closed.
func (h *AuthHandler) Result() <-chan AuthResult {
	return h.resultChan
}

const successPage = `
<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Authorization Successful</h1>
        <p>Welcome, %s! You can close this window.</p>
    </div>
</body>
</html>
`

const deniedPage = `
<!DOCTYPE html>
<html>
<head>
    <title>Access Denied</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #c0392b; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Access Denied</h1>
        <p>This application is restricted to the station account.</p>
    </div>
</body>
</html>
`
