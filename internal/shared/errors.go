package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrNotAuthorized  = fmt.Errorf("not authorized")
	ErrRefreshFailed  = fmt.Errorf("token refresh failed")
	ErrAuthDenied     = fmt.Errorf("authorization denied")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")
	ErrWrongAccount   = fmt.Errorf("account is not allowed to use this application")

	// API and service errors
	ErrAPIRequest       = fmt.Errorf("API request failed")
	ErrRateLimited      = fmt.Errorf("rate limited")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")

	// Recommendation errors
	ErrNoReferenceData = fmt.Errorf("no reference data")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
