package oauth

import "fmt"

// ExchangeError is returned when the token endpoint rejects an
// authorization-code exchange. StatusCode is the upstream HTTP status,
// so callers can distinguish bad credentials from no connectivity.
type ExchangeError struct {
	StatusCode int
	Body       string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("oauth code exchange failed with status %d", e.StatusCode)
}

// RefreshError is returned when the token endpoint rejects a refresh request.
type RefreshError struct {
	StatusCode int
	Body       string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("oauth token refresh failed with status %d", e.StatusCode)
}
