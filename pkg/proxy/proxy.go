// Package proxy performs authenticated calls against an upstream REST API on
// behalf of a session, transparently refreshing an expired access token and
// retrying the original request exactly once.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"portfolio/pkg/core"
	"portfolio/pkg/oauth"
	"portfolio/pkg/session"

	"go.opentelemetry.io/otel/attribute"
)

const requestTimeout = 10 * time.Second

// emptyObject is what a 204 upstream response is mapped to, so callers can
// tell "successful but empty" apart from a failure (which returns nil).
var emptyObject = json.RawMessage("{}")

// CallOpts carries optional parameters for Call. The zero value means a
// plain GET with no query parameters.
type CallOpts struct {
	Method string
	Params url.Values
	// Body is JSON-encoded into the request body when non-nil.
	Body any
}

// Proxy wraps an OAuth client and an upstream base URL.
type Proxy struct {
	oauthClient *oauth.Client
	baseURL     string
	httpClient  *http.Client
}

// New creates a proxy for the upstream API rooted at baseURL, e.g.
// "https://api.spotify.com/v1".
func New(oauthClient *oauth.Client, baseURL string) *Proxy {
	return &Proxy{
		oauthClient: oauthClient,
		baseURL:     baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Call performs one logical upstream request for the given session.
//
// Status mapping:
//   - no access token in the session: (nil, 401), no network call
//   - upstream 401 with a refresh token available: refresh, store the new
//     access token in the session, retry once; a second 401 is final
//   - upstream 204: ({}, 204)
//   - network error or timeout: (nil, 503)
//   - any other non-2xx: (nil, status) unchanged
//   - 2xx: (body, status)
func (p *Proxy) Call(ctx context.Context, sess session.Session, endpoint string, opts ...CallOpts) (json.RawMessage, int) {
	var opt CallOpts
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.Method == "" {
		opt.Method = http.MethodGet
	}

	logger := core.LoggerFromCtx(ctx)

	token, ok := session.AccessToken(sess)
	if !ok || token == "" {
		return nil, http.StatusUnauthorized
	}

	addSpanAttributes(ctx,
		attribute.String("upstream.endpoint", endpoint),
		attribute.String("upstream.method", opt.Method),
	)

	resp, err := p.do(ctx, token, endpoint, opt)
	if err != nil {
		logger.Error("Upstream request failed", "method", opt.Method, "endpoint", endpoint, "error", err)
		return nil, http.StatusServiceUnavailable
	}

	if resp.status == http.StatusUnauthorized {
		newToken, refreshed := p.refresh(ctx, sess)
		if refreshed {
			resp, err = p.do(ctx, newToken, endpoint, opt)
			if err != nil {
				logger.Error("Upstream retry failed", "method", opt.Method, "endpoint", endpoint, "error", err)
				return nil, http.StatusServiceUnavailable
			}
		}
	}

	addSpanAttributes(ctx, attribute.Int("upstream.status", resp.status))

	switch {
	case resp.status == http.StatusNoContent:
		return emptyObject, http.StatusNoContent
	case resp.status >= 200 && resp.status < 300:
		return resp.body, resp.status
	default:
		return nil, resp.status
	}
}

// refresh exchanges the session's refresh token for a new access token and
// writes it back into the session. A failed refresh leaves the stale token
// in place and returns false.
func (p *Proxy) refresh(ctx context.Context, sess session.Session) (string, bool) {
	logger := core.LoggerFromCtx(ctx)

	refreshToken, ok := session.RefreshToken(sess)
	if !ok || refreshToken == "" {
		return "", false
	}

	token, err := p.oauthClient.Refresh(ctx, refreshToken)
	if err != nil {
		logger.Warn("Token refresh failed", "error", err)
		return "", false
	}
	if token.AccessToken == "" {
		logger.Warn("Token refresh returned no access token")
		return "", false
	}

	session.StoreTokens(sess, token.AccessToken, token.RefreshToken)
	return token.AccessToken, true
}

type upstreamResponse struct {
	status int
	body   json.RawMessage
}

func (p *Proxy) do(ctx context.Context, token, endpoint string, opt CallOpts) (*upstreamResponse, error) {
	var reqBody io.Reader
	if opt.Body != nil {
		data, err := json.Marshal(opt.Body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	reqURL := p.baseURL + endpoint
	if len(opt.Params) > 0 {
		reqURL += "?" + opt.Params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, opt.Method, reqURL, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if opt.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &upstreamResponse{status: resp.StatusCode, body: body}, nil
}
