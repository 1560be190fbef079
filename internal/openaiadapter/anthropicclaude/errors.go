package anthropicclaude

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/claudewire/claudewire/internal/openaiadapter"
	"github.com/claudewire/claudewire/internal/tokensource"
)

// ValidationError reports a malformed inbound request. It is raised before
// any upstream call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

// NotFoundError reports an unknown model identifier.
type NotFoundError struct {
	Model string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("model %q not found", e.Model)
}

// ToolSchemaError reports a malformed tool declaration or tool-call payload.
type ToolSchemaError struct {
	Tool   string
	Reason string
}

func (e *ToolSchemaError) Error() string {
	if e.Tool == "" {
		return "invalid tool: " + e.Reason
	}
	return fmt.Sprintf("invalid tool %q: %s", e.Tool, e.Reason)
}

// UpstreamTimeoutError is synthesized when one of the stream timers fires.
type UpstreamTimeoutError struct {
	After      time.Duration
	Inactivity bool
}

func (e *UpstreamTimeoutError) Error() string {
	if e.Inactivity {
		return fmt.Sprintf("stream stalled: no data for %s", e.After)
	}
	return fmt.Sprintf("stream timeout after %s", e.After)
}

// UpstreamProtocolError reports an upstream event shape the converter cannot
// continue past.
type UpstreamProtocolError struct {
	Reason string
}

func (e *UpstreamProtocolError) Error() string {
	return "unexpected upstream response: " + e.Reason
}

// toChatCompletionError converts any error into OpenAI-compatible error format.
// The Anthropic SDK returns different error shapes for streaming vs non-streaming
// requests, and the conversion layer raises its own typed errors; all are
// normalized into a consistent ErrorResponse for SSE/JSON responses.
func toChatCompletionError(err error) *openaiadapter.ErrorResponse {
	if err == nil {
		return nil
	}

	// Conversion-layer errors carry their own OpenAI error type.
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return errorResponse(validationErr.Error(), "invalid_request_error", "")
	}
	var notFoundErr *NotFoundError
	if errors.As(err, &notFoundErr) {
		return errorResponse(notFoundErr.Error(), "invalid_request_error", "model_not_found")
	}
	var toolErr *ToolSchemaError
	if errors.As(err, &toolErr) {
		return errorResponse(toolErr.Error(), "invalid_request_error", "")
	}
	var authErr *tokensource.AuthError
	if errors.As(err, &authErr) {
		return errorResponse(authErr.Error(), "authentication_error", "")
	}
	var timeoutErr *UpstreamTimeoutError
	if errors.As(err, &timeoutErr) {
		return errorResponse(timeoutErr.Error(), "api_error", "")
	}
	var protoErr *UpstreamProtocolError
	if errors.As(err, &protoErr) {
		return errorResponse(protoErr.Error(), "api_error", "")
	}

	// Already normalized further down the stack.
	var errResp *openaiadapter.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp
	}

	// Non-streaming: *anthropic.Error provides structured error via RawJSON()
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if errorResp, parseErr := parseErrorResponseJSON(apiErr.RawJSON()); parseErr == nil {
			return errorResponse(errorResp.Error.Message, mapAnthropicErrorType(errorResp.Error.Type), "")
		}
		// JSON parse failed, fall back to generic error wrapping
		return errorResponse(apiErr.Error(), "api_error", "")
	}

	// streamingErrorPrefix is the prefix used by the Anthropic SDK when wrapping streaming errors.
	const streamingErrorPrefix = "received error while streaming: "

	// Streaming: SDK embeds JSON in error string with known prefix
	if jsonStr, ok := strings.CutPrefix(err.Error(), streamingErrorPrefix); ok {
		if errorResp, parseErr := parseErrorResponseJSON(jsonStr); parseErr == nil {
			return errorResponse(errorResp.Error.Message, mapAnthropicErrorType(errorResp.Error.Type), "")
		}
	}

	// Fallback: wrap remaining errors (network, context cancellation, ...) as generic server_error
	return errorResponse(err.Error(), "server_error", "")
}

func errorResponse(message, errType, code string) *openaiadapter.ErrorResponse {
	return &openaiadapter.ErrorResponse{
		Err: openaiadapter.Error{
			Message: message,
			Type:    errType,
			Code:    code,
		},
	}
}

// parseErrorResponseJSON parses Anthropic error JSON into structured ErrorResponse.
// Shared by both non-streaming (RawJSON) and streaming (error string) error paths.
func parseErrorResponseJSON(jsonStr string) (*anthropic.ErrorResponse, error) {
	var errorResp anthropic.ErrorResponse
	if err := json.Unmarshal([]byte(jsonStr), &errorResp); err != nil {
		return nil, fmt.Errorf("failed to parse Anthropic error JSON: %w", err)
	}
	return &errorResp, nil
}

// mapAnthropicErrorType translates Anthropic error taxonomy to OpenAI-compatible error types.
func mapAnthropicErrorType(anthropicType string) string {
	switch anthropicType {
	case "overloaded_error":
		return "server_error"
	case "rate_limit_error":
		return "rate_limit_error"
	case "invalid_request_error":
		return "invalid_request_error"
	case "authentication_error":
		return "authentication_error"
	case "permission_error":
		return "permission_denied"
	case "not_found_error":
		return "invalid_request_error"
	case "timeout_error":
		return "server_error"
	case "api_error":
		return "api_error"
	case "billing_error":
		return "insufficient_quota"
	default:
		// Unknown error types default to api_error for safe handling
		return "api_error"
	}
}
