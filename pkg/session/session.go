// Package session provides the per-browser-session key-value storage the
// OAuth flow and API proxy read and write: the token pair and the single-use
// CSRF state. Session lifecycle (cookies, expiry) stays behind the Store
// interface.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// Well-known session keys owned by the Spotify integration.
const (
	KeyAccessToken  = "spotify_access_token"
	KeyRefreshToken = "spotify_refresh_token"
	KeyOAuthState   = "spotify_oauth_state"
	KeyPKCEVerifier = "spotify_pkce_verifier"
)

// ErrStateMismatch is returned when the callback state parameter does not
// match the state stored at authorization start.
var ErrStateMismatch = errors.New("oauth state mismatch")

// Session is an opaque per-browser key-value mapping. Implementations must
// be safe for concurrent use.
type Session interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// NewState generates a random URL-safe state token for CSRF protection.
func NewState() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// BeginAuth stores a fresh state token and the PKCE verifier in the
// session and returns the state.
func BeginAuth(sess Session, verifier string) string {
	state := NewState()
	sess.Set(KeyOAuthState, state)
	sess.Set(KeyPKCEVerifier, verifier)
	return state
}

// ConsumeState validates the callback state against the stored one and
// returns the stored PKCE verifier. Both are deleted regardless of outcome,
// so a state token can be used at most once. Returns ErrStateMismatch when
// got is empty or does not match.
func ConsumeState(sess Session, got string) (string, error) {
	want, ok := sess.Get(KeyOAuthState)
	verifier, _ := sess.Get(KeyPKCEVerifier)
	sess.Delete(KeyOAuthState)
	sess.Delete(KeyPKCEVerifier)
	if !ok || got == "" || got != want {
		return "", ErrStateMismatch
	}
	return verifier, nil
}

// AccessToken returns the session's access token, if any.
func AccessToken(sess Session) (string, bool) {
	return sess.Get(KeyAccessToken)
}

// RefreshToken returns the session's refresh token, if any.
func RefreshToken(sess Session) (string, bool) {
	return sess.Get(KeyRefreshToken)
}

// StoreTokens writes a token pair into the session. An empty refresh token
// leaves any previously stored refresh token in place, since providers may
// omit it on refresh responses.
func StoreTokens(sess Session, accessToken, refreshToken string) {
	sess.Set(KeyAccessToken, accessToken)
	if refreshToken != "" {
		sess.Set(KeyRefreshToken, refreshToken)
	}
}

// ClearTokens removes the token pair and any pending auth flow state from
// the session.
func ClearTokens(sess Session) {
	sess.Delete(KeyAccessToken)
	sess.Delete(KeyRefreshToken)
	sess.Delete(KeyOAuthState)
	sess.Delete(KeyPKCEVerifier)
}
