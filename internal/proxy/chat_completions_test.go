package proxy

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/claudewire/claudewire/internal/openaiadapter"
	"github.com/claudewire/claudewire/internal/openaiadapter/types"
)

// fakeAdapter returns canned results so handler behavior can be tested
// without an upstream.
type fakeAdapter struct {
	response  *openaiadapter.CreateChatCompletionResponse
	chunks    []*openaiadapter.CreateChatCompletionChunk
	streamErr error
	err       error
}

func (a *fakeAdapter) ProcessRequest(context.Context, openaiadapter.CreateChatCompletionRequest, http.RoundTripper) (*openaiadapter.CreateChatCompletionResponse, error) {
	return a.response, a.err
}

func (a *fakeAdapter) ProcessStreamingRequest(context.Context, openaiadapter.CreateChatCompletionRequest, http.RoundTripper) (iter.Seq2[*openaiadapter.CreateChatCompletionChunk, error], error) {
	if a.err != nil {
		return nil, a.err
	}
	return func(yield func(*openaiadapter.CreateChatCompletionChunk, error) bool) {
		for _, chunk := range a.chunks {
			if !yield(chunk, nil) {
				return
			}
		}
		if a.streamErr != nil {
			yield(nil, a.streamErr)
		}
	}, nil
}

func completionRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	return httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
}

func TestChatCompletionsNonStreaming(t *testing.T) {
	content := "hello"
	handler := &CreateChatCompletionsHandler{
		Adapter: &fakeAdapter{
			response: &openaiadapter.CreateChatCompletionResponse{
				ID:     "msg_1",
				Object: "chat.completion",
				Model:  "sonnet-4-5",
				Choices: []types.ChatCompletionChoice{{
					Message: types.ChatCompletionResponseMessage{Role: "assistant", Content: &content},
				}},
			},
		},
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, completionRequest(t, `{"model":"sonnet-4-5","messages":[{"role":"user","content":"hi"}]}`))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	var response openaiadapter.CreateChatCompletionResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.ID != "msg_1" || *response.Choices[0].Message.Content != "hello" {
		t.Errorf("response = %+v", response)
	}
}

func TestChatCompletionsMalformedBody(t *testing.T) {
	handler := &CreateChatCompletionsHandler{Adapter: &fakeAdapter{}}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, completionRequest(t, `{not json`))

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", recorder.Code)
	}
}

func TestChatCompletionsErrorStatusMapping(t *testing.T) {
	tests := []struct {
		errType string
		status  int
	}{
		{"invalid_request_error", http.StatusBadRequest},
		{"authentication_error", http.StatusUnauthorized},
		{"rate_limit_error", http.StatusTooManyRequests},
		{"api_error", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.errType, func(t *testing.T) {
			handler := &CreateChatCompletionsHandler{
				Adapter: &fakeAdapter{
					err: &openaiadapter.ErrorResponse{Err: openaiadapter.Error{Message: "nope", Type: tt.errType}},
				},
			}

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, completionRequest(t, `{"model":"m","messages":[{"role":"user","content":"hi"}]}`))

			if recorder.Code != tt.status {
				t.Errorf("status = %d, want %d", recorder.Code, tt.status)
			}
			var envelope openaiadapter.ErrorResponse
			if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if envelope.Err.Message != "nope" || envelope.Err.Type != tt.errType {
				t.Errorf("error = %+v", envelope.Err)
			}
		})
	}
}

func TestChatCompletionsStreaming(t *testing.T) {
	text := "hi"
	handler := &CreateChatCompletionsHandler{
		Adapter: &fakeAdapter{
			chunks: []*openaiadapter.CreateChatCompletionChunk{{
				ID:     "msg_1",
				Object: "chat.completion.chunk",
				Choices: []types.ChatCompletionStreamChoice{{
					Delta: types.ChatCompletionStreamDelta{Content: &text},
				}},
			}},
		},
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, completionRequest(t, `{"model":"m","messages":[{"role":"user","content":"hi"}],"stream":true}`))

	body := recorder.Body.String()
	if !strings.Contains(body, `"chat.completion.chunk"`) {
		t.Errorf("body missing chunk: %q", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Errorf("body missing [DONE] terminator: %q", body)
	}
	if ct := recorder.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
}

func TestChatCompletionsStreamingErrorEvent(t *testing.T) {
	handler := &CreateChatCompletionsHandler{
		Adapter: &fakeAdapter{
			streamErr: &openaiadapter.ErrorResponse{Err: openaiadapter.Error{Message: "stream stalled", Type: "api_error"}},
		},
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, completionRequest(t, `{"model":"m","messages":[{"role":"user","content":"hi"}],"stream":true}`))

	body := recorder.Body.String()
	if !strings.Contains(body, "event: error\n") {
		t.Errorf("body missing error event: %q", body)
	}
	if !strings.Contains(body, `"stream stalled"`) {
		t.Errorf("body missing error payload: %q", body)
	}
	if strings.Contains(body, "[DONE]") {
		t.Errorf("terminal error must not be followed by [DONE]: %q", body)
	}
}
