// package auth owns the Spotify OAuth2 credential lifecycle.
//
// A single [Credential] is live at a time: the application is bound to one
// station account, and every token access re-checks that binding.
package auth

import (
	"context"
	"time"
)

// Credential holds the current access/refresh token pair for the authorized account.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
}

// ValidFor reports whether the access token is usable for at least margin past now.
func (c *Credential) ValidFor(now time.Time, margin time.Duration) bool {
	return c != nil && c.AccessToken != "" && now.Before(c.ExpiresAt.Add(-margin))
}

// Store persists the credential blob.
//
// Load returns (nil, nil) when no credential has been stored yet.
type Store interface {
	Load(ctx context.Context) (*Credential, error)
	Save(ctx context.Context, cred *Credential) error
}
