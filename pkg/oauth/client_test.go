package oauth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func testCredentials(tokenURL string) Credentials {
	return Credentials{
		ClientID:     "client_123",
		ClientSecret: "secret_456",
		AuthURL:      "https://provider.example.com/authorize",
		TokenURL:     tokenURL,
		Scopes:       []string{"user-read-recently-played", "user-top-read"},
	}
}

func TestCredentials_Configured(t *testing.T) {
	tests := []struct {
		name     string
		creds    Credentials
		expected bool
	}{
		{
			name:     "both present",
			creds:    Credentials{ClientID: "id", ClientSecret: "secret"},
			expected: true,
		},
		{
			name:     "missing secret",
			creds:    Credentials{ClientID: "id"},
			expected: false,
		},
		{
			name:     "missing both",
			creds:    Credentials{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.creds.Configured(); got != tt.expected {
				t.Errorf("Configured() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestClient_AuthorizeURL(t *testing.T) {
	client := NewClient(testCredentials("https://provider.example.com/token"))

	t.Run("with state", func(t *testing.T) {
		raw := client.AuthorizeURL("https://app.example.com/callback", "state_abc")

		u, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("AuthorizeURL() produced unparseable URL: %v", err)
		}
		if got := u.Scheme + "://" + u.Host + u.Path; got != "https://provider.example.com/authorize" {
			t.Errorf("base URL = %q, want the configured auth URL", got)
		}

		q := u.Query()
		if q.Get("client_id") != "client_123" {
			t.Errorf("client_id = %q, want %q", q.Get("client_id"), "client_123")
		}
		if q.Get("response_type") != "code" {
			t.Errorf("response_type = %q, want %q", q.Get("response_type"), "code")
		}
		if q.Get("redirect_uri") != "https://app.example.com/callback" {
			t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
		}
		if q.Get("scope") != "user-read-recently-played user-top-read" {
			t.Errorf("scope = %q, want space-joined scope list", q.Get("scope"))
		}
		if q.Get("state") != "state_abc" {
			t.Errorf("state = %q, want %q", q.Get("state"), "state_abc")
		}
	})

	t.Run("without state", func(t *testing.T) {
		raw := client.AuthorizeURL("https://app.example.com/callback", "")

		u, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("AuthorizeURL() produced unparseable URL: %v", err)
		}
		if _, present := u.Query()["state"]; present {
			t.Error("state should be omitted when not supplied")
		}
	})
}

func TestClient_AuthorizeURLWithPKCE(t *testing.T) {
	client := NewClient(testCredentials("https://provider.example.com/token"))

	raw := client.AuthorizeURLWithPKCE("https://app.example.com/callback", "state_abc", "verifier_string_value")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("AuthorizeURLWithPKCE() produced unparseable URL: %v", err)
	}

	q := u.Query()
	if q.Get("code_challenge") == "" {
		t.Error("code_challenge missing")
	}
	if q.Get("code_challenge") == "verifier_string_value" {
		t.Error("code_challenge should be the S256 digest, not the raw verifier")
	}
	if q.Get("code_challenge_method") != "S256" {
		t.Errorf("code_challenge_method = %q, want S256", q.Get("code_challenge_method"))
	}
}

func TestClient_Exchange(t *testing.T) {
	var gotForm url.Values
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		gotForm = r.PostForm
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at_1","refresh_token":"rt_1","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	client := NewClient(testCredentials(srv.URL))
	token, err := client.Exchange(context.Background(), "code_xyz", "https://app.example.com/callback")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}

	if token.AccessToken != "at_1" {
		t.Errorf("AccessToken = %q, want at_1", token.AccessToken)
	}
	if token.RefreshToken != "rt_1" {
		t.Errorf("RefreshToken = %q, want rt_1", token.RefreshToken)
	}
	if token.ExpiresIn != 3600 {
		t.Errorf("ExpiresIn = %d, want 3600", token.ExpiresIn)
	}

	if gotForm.Get("grant_type") != "authorization_code" {
		t.Errorf("grant_type = %q", gotForm.Get("grant_type"))
	}
	if gotForm.Get("code") != "code_xyz" {
		t.Errorf("code = %q", gotForm.Get("code"))
	}
	if gotForm.Get("redirect_uri") != "https://app.example.com/callback" {
		t.Errorf("redirect_uri = %q", gotForm.Get("redirect_uri"))
	}

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("client_123:secret_456"))
	if gotAuth != wantAuth {
		t.Errorf("Authorization = %q, want %q", gotAuth, wantAuth)
	}
}

func TestClient_Exchange_WithPKCEVerifier(t *testing.T) {
	var gotVerifier string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotVerifier = r.PostForm.Get("code_verifier")
		w.Write([]byte(`{"access_token":"at_1","token_type":"Bearer"}`))
	}))
	defer srv.Close()

	client := NewClient(testCredentials(srv.URL))
	_, err := client.Exchange(context.Background(), "code_xyz", "https://app.example.com/callback",
		ExchangeOpts{CodeVerifier: "verifier_value"})
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if gotVerifier != "verifier_value" {
		t.Errorf("code_verifier = %q, want verifier_value", gotVerifier)
	}
}

func TestClient_Exchange_UpstreamRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	client := NewClient(testCredentials(srv.URL))
	token, err := client.Exchange(context.Background(), "bad_code", "https://app.example.com/callback")
	if token != nil {
		t.Errorf("Exchange() token = %v, want nil on rejection", token)
	}

	var exchangeErr *ExchangeError
	if !errors.As(err, &exchangeErr) {
		t.Fatalf("Exchange() error = %T, want *ExchangeError", err)
	}
	if exchangeErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", exchangeErr.StatusCode)
	}
}

func TestClient_Exchange_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately closed: connection refused

	client := NewClient(testCredentials(srv.URL))
	_, err := client.Exchange(context.Background(), "code", "https://app.example.com/callback")
	if err == nil {
		t.Fatal("Exchange() should fail when the endpoint is unreachable")
	}

	var exchangeErr *ExchangeError
	if errors.As(err, &exchangeErr) {
		t.Error("connectivity failures must not be reported as *ExchangeError")
	}
}

func TestClient_Refresh(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotForm = r.PostForm
		w.Write([]byte(`{"access_token":"at_2","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	client := NewClient(testCredentials(srv.URL))
	token, err := client.Refresh(context.Background(), "rt_1")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if token.AccessToken != "at_2" {
		t.Errorf("AccessToken = %q, want at_2", token.AccessToken)
	}
	if gotForm.Get("grant_type") != "refresh_token" {
		t.Errorf("grant_type = %q", gotForm.Get("grant_type"))
	}
	if gotForm.Get("refresh_token") != "rt_1" {
		t.Errorf("refresh_token = %q", gotForm.Get("refresh_token"))
	}
}

func TestClient_Refresh_UpstreamRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(testCredentials(srv.URL))
	_, err := client.Refresh(context.Background(), "stale_rt")

	var refreshErr *RefreshError
	if !errors.As(err, &refreshErr) {
		t.Fatalf("Refresh() error = %T, want *RefreshError", err)
	}
	if refreshErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", refreshErr.StatusCode)
	}
}
