package anthropicclaude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tidwall/sjson"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// newClient creates a new Anthropic client with the provided transport.
// The transport chain needs to handle authentication.
func newClient(transport http.RoundTripper, baseURL string) (*anthropic.Client, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}

	httpClient := &http.Client{
		Transport: transport,
		// Client.Timeout = 0 allows long-running SSE streams (bounded by server WriteTimeout)
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
		// Generous RequestTimeout bypasses SDK maxTokens checks - actual limit enforced by server WriteTimeout
		option.WithRequestTimeout(1*time.Hour),
	)

	return &client, nil
}

// openStream issues the streaming Messages call directly rather than through
// the SDK's stream decoder: the converter owns SSE parsing so it can run its
// own inactivity and total-duration timers against the raw byte stream.
//
// The params marshal without the stream field, so it is injected into the
// serialized body. The returned reader is the live SSE byte stream; the
// caller must close it.
func openStream(ctx context.Context, transport http.RoundTripper, baseURL string, params anthropic.MessageNewParams, betaFlags []string) (io.ReadCloser, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	body, err = sjson.SetBytes(body, "stream", true)
	if err != nil {
		return nil, fmt.Errorf("set stream flag: %w", err)
	}

	endpoint := strings.TrimSuffix(baseURL, "/") + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("anthropic-version", anthropicVersion)
	if len(betaFlags) > 0 {
		req.Header.Set("anthropic-beta", betaHeader(betaFlags))
	}

	httpClient := &http.Client{Transport: transport}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call upstream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		payload, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr != nil {
			return nil, &UpstreamProtocolError{Reason: fmt.Sprintf("status %d, unreadable body: %v", resp.StatusCode, readErr)}
		}
		if errorResp, parseErr := parseErrorResponseJSON(string(payload)); parseErr == nil && errorResp.Error.Message != "" {
			return nil, errorResponse(errorResp.Error.Message, mapAnthropicErrorType(errorResp.Error.Type), "")
		}
		return nil, &UpstreamProtocolError{Reason: fmt.Sprintf("status %d: %s", resp.StatusCode, string(payload))}
	}

	return resp.Body, nil
}
