package tokensource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// AuthError reports that no usable bearer credential could be produced. It
// wraps the underlying refresh or storage failure.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return "authentication failed: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// refreshExpiryMargin renews a token this long before its wall-clock expiry,
// so in-flight requests never carry a token that expires mid-call.
const refreshExpiryMargin = 5 * time.Minute

// tokenSource is a self-refreshing oauth2.TokenSource for Anthropic's token
// endpoint. The endpoint deviates from RFC 6749: refresh requests are
// JSON-encoded rather than form-encoded, so the stock oauth2 refresh flow
// cannot be used.
//
// Concurrent callers needing a refresh are collapsed into one upstream
// request; the losers wait for and share the winner's result.
type tokenSource struct {
	endpoint  oauth2.Endpoint
	transport http.RoundTripper
	group     singleflight.Group
	now       func() time.Time

	// current is only read and written inside the singleflight callback,
	// which serializes access.
	current *oauth2.Token
}

// TokenSourceOption configures NewTokenSource.
type TokenSourceOption func(*tokenSource)

// WithTransport sets the base transport used for refresh requests.
func WithTransport(transport http.RoundTripper) TokenSourceOption {
	return func(ts *tokenSource) {
		ts.transport = transport
	}
}

// NewTokenSource builds a self-refreshing token source seeded with a refresh
// token. The returned source is safe for concurrent use and can back an
// oauth2.Transport.
func NewTokenSource(refreshToken string, endpoint oauth2.Endpoint, opts ...TokenSourceOption) oauth2.TokenSource {
	ts := &tokenSource{
		endpoint:  endpoint,
		transport: http.DefaultTransport,
		now:       time.Now,
		current:   &oauth2.Token{RefreshToken: refreshToken},
	}
	for _, opt := range opts {
		opt(ts)
	}
	return ts
}

// Token returns a valid access token, refreshing it first when missing or
// close to expiry.
func (ts *tokenSource) Token() (*oauth2.Token, error) {
	token, err, _ := ts.group.Do("token", func() (any, error) {
		if ts.valid(ts.current) {
			return ts.current, nil
		}
		refreshed, err := ts.refresh(context.Background(), ts.current.RefreshToken)
		if err != nil {
			return nil, err
		}
		ts.current = refreshed
		return refreshed, nil
	})
	if err != nil {
		return nil, err
	}
	return token.(*oauth2.Token), nil
}

func (ts *tokenSource) valid(token *oauth2.Token) bool {
	return token != nil &&
		token.AccessToken != "" &&
		!token.Expiry.IsZero() &&
		ts.now().Before(token.Expiry.Add(-refreshExpiryMargin))
}

// refreshRequest is the JSON body of Anthropic's token refresh call.
type refreshRequest struct {
	GrantType    string `json:"grant_type"`
	RefreshToken string `json:"refresh_token"`
	ClientID     string `json:"client_id"`
}

func (ts *tokenSource) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, &AuthError{Reason: "no refresh token available"}
	}

	body, err := json.Marshal(refreshRequest{
		GrantType:    "refresh_token",
		RefreshToken: refreshToken,
		ClientID:     ClientID,
	})
	if err != nil {
		return nil, &AuthError{Reason: "marshal refresh request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.endpoint.TokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, &AuthError{Reason: "build refresh request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Transport: ts.transport, Timeout: 30 * time.Second}
	now := ts.now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, &AuthError{Reason: "token refresh request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &AuthError{Reason: fmt.Sprintf("token refresh rejected with status %d: %s", resp.StatusCode, payload)}
	}

	var token oauth2.Token
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, &AuthError{Reason: "decode refresh response", Err: err}
	}
	if token.AccessToken == "" {
		return nil, &AuthError{Reason: "refresh response carried no access token"}
	}

	// Convert ExpiresIn to Expiry (see oauth2.Token.ExpiresIn field documentation)
	if token.ExpiresIn > 0 {
		token.Expiry = now.Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	// The endpoint may rotate the refresh token; keep the old one when it
	// doesn't.
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}

	return &token, nil
}
