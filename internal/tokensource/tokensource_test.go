package tokensource

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func refreshEndpoint(url string) oauth2.Endpoint {
	return oauth2.Endpoint{TokenURL: url}
}

func TestTokenSourceRefreshes(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode refresh body: %v", err)
		}
		if req.GrantType != "refresh_token" || req.RefreshToken != "refresh-1" || req.ClientID != ClientID {
			t.Errorf("refresh body = %+v", req)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-2",
			"expires_in":    3600,
		})
	}))
	defer server.Close()

	source := NewTokenSource("refresh-1", refreshEndpoint(server.URL))

	token, err := source.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token.AccessToken != "access-1" {
		t.Errorf("access token = %q", token.AccessToken)
	}
	if token.RefreshToken != "refresh-2" {
		t.Errorf("refresh token not rotated: %q", token.RefreshToken)
	}
	if token.Expiry.IsZero() {
		t.Error("expiry not derived from expires_in")
	}

	// A fresh token is reused without another upstream call.
	if _, err := source.Token(); err != nil {
		t.Fatalf("second Token: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}
}

func TestTokenSourceKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-1",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	source := NewTokenSource("refresh-1", refreshEndpoint(server.URL))

	token, err := source.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token.RefreshToken != "refresh-1" {
		t.Errorf("refresh token = %q, want original kept", token.RefreshToken)
	}
}

func TestTokenSourceRefreshesNearExpiry(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-1",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	source := NewTokenSource("refresh-1", refreshEndpoint(server.URL)).(*tokenSource)

	if _, err := source.Token(); err != nil {
		t.Fatalf("Token: %v", err)
	}

	// Move the clock inside the renewal margin; the next call must refresh.
	source.now = func() time.Time {
		return time.Now().Add(time.Hour - refreshExpiryMargin + time.Second)
	}
	if _, err := source.Token(); err != nil {
		t.Fatalf("Token near expiry: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("refresh calls = %d, want 2", got)
	}
}

func TestTokenSourceRejectedRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	source := NewTokenSource("refresh-1", refreshEndpoint(server.URL))

	_, err := source.Token()
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("got %v, want AuthError", err)
	}
}

func TestTokenSourceMissingRefreshToken(t *testing.T) {
	source := NewTokenSource("", refreshEndpoint("http://localhost:0"))

	_, err := source.Token()
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("got %v, want AuthError", err)
	}
}

func TestTokenSourceMissingAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"expires_in": 3600})
	}))
	defer server.Close()

	source := NewTokenSource("refresh-1", refreshEndpoint(server.URL))

	_, err := source.Token()
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("got %v, want AuthError", err)
	}
}
