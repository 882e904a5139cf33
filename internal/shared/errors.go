package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrStateMismatch       = fmt.Errorf("oauth state mismatch")
	ErrTokenExchangeFailed = fmt.Errorf("token exchange failed")
	ErrUnauthenticated     = fmt.Errorf("not authenticated")
	ErrRefreshFailed       = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken      = fmt.Errorf("no refresh token available")

	// Upstream errors
	ErrUpstream                  = fmt.Errorf("upstream request failed")
	ErrAPIRequest                = fmt.Errorf("API request failed")
	ErrRecommendationFetchFailed = fmt.Errorf("recommendation fetch failed")

	// Storage errors
	ErrSessionNotFound = fmt.Errorf("session not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
