// Package oauth implements a generic OAuth 2.0 authorization-code client:
// authorization URL construction, code exchange, and token refresh against
// an arbitrary provider.
package oauth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const requestTimeout = 10 * time.Second

// Credentials holds the immutable configuration for an OAuth 2.0 provider.
type Credentials struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	Scopes       []string
}

// Configured reports whether both client credentials are present.
func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Token represents a token endpoint response.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"` // Optional, may not be present in all responses
	TokenType    string `json:"token_type"`              // e.g., "Bearer"
	ExpiresIn    int64  `json:"expires_in,omitempty"`    // Duration in seconds
	Scope        string `json:"scope,omitempty"`
}

// Client is an authorization-code grant client. It holds no mutable state
// besides its credentials, so every method is safe for concurrent use.
type Client struct {
	creds      Credentials
	httpClient *http.Client
}

// NewClient creates a client for the given provider credentials.
func NewClient(creds Credentials) *Client {
	return &Client{
		creds: creds,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Credentials returns the provider credentials the client was built with.
func (c *Client) Credentials() Credentials {
	return c.creds
}

// AuthorizeURL builds the authorization endpoint URL for a browser redirect.
// The scope list is space-joined; state is included only when non-empty.
func (c *Client) AuthorizeURL(redirectURI, state string) string {
	values := url.Values{}
	values.Set("client_id", c.creds.ClientID)
	values.Set("response_type", "code")
	values.Set("redirect_uri", redirectURI)
	values.Set("scope", strings.Join(c.creds.Scopes, " "))
	if state != "" {
		values.Set("state", state)
	}
	return c.creds.AuthURL + "?" + values.Encode()
}

// AuthorizeURLWithPKCE builds the authorization URL with an S256 code
// challenge derived from verifier. Use oauth2.GenerateVerifier to create
// the verifier and pass it back on Exchange via ExchangeOpts.
func (c *Client) AuthorizeURLWithPKCE(redirectURI, state, verifier string) string {
	values := url.Values{}
	values.Set("client_id", c.creds.ClientID)
	values.Set("response_type", "code")
	values.Set("redirect_uri", redirectURI)
	values.Set("scope", strings.Join(c.creds.Scopes, " "))
	values.Set("code_challenge", oauth2.S256ChallengeFromVerifier(verifier))
	values.Set("code_challenge_method", "S256")
	if state != "" {
		values.Set("state", state)
	}
	return c.creds.AuthURL + "?" + values.Encode()
}

// ExchangeOpts carries optional parameters for Exchange.
type ExchangeOpts struct {
	// CodeVerifier is the PKCE verifier matching the code challenge sent
	// on the authorization request, if PKCE was used.
	CodeVerifier string
}

// Exchange swaps an authorization code for a token pair. A non-2xx response
// from the token endpoint yields an *ExchangeError carrying the upstream
// status, never a silently empty token.
func (c *Client) Exchange(ctx context.Context, code, redirectURI string, opts ...ExchangeOpts) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	if len(opts) > 0 && opts[0].CodeVerifier != "" {
		form.Set("code_verifier", opts[0].CodeVerifier)
	}

	token, err := c.postToken(ctx, form)
	if err != nil {
		if te, ok := err.(*tokenEndpointError); ok {
			return nil, &ExchangeError{StatusCode: te.statusCode, Body: te.body}
		}
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}

// Refresh obtains a new token pair from a refresh token. Same authentication
// and failure contract as Exchange, with *RefreshError on non-2xx.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	token, err := c.postToken(ctx, form)
	if err != nil {
		if te, ok := err.(*tokenEndpointError); ok {
			return nil, &RefreshError{StatusCode: te.statusCode, Body: te.body}
		}
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return token, nil
}

// basicAuth returns the HTTP Basic credential base64(client_id:client_secret).
func (c *Client) basicAuth() string {
	return base64.StdEncoding.EncodeToString(
		[]byte(c.creds.ClientID + ":" + c.creds.ClientSecret))
}

// tokenEndpointError is the internal marker for non-2xx token responses,
// converted to the exported typed errors by Exchange and Refresh.
type tokenEndpointError struct {
	statusCode int
	body       string
}

func (e *tokenEndpointError) Error() string {
	return fmt.Sprintf("token endpoint returned status %d", e.statusCode)
}

func (c *Client) postToken(ctx context.Context, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.creds.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Basic "+c.basicAuth())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &tokenEndpointError{statusCode: resp.StatusCode, body: string(body)}
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token response: %w", err)
	}
	return &token, nil
}
