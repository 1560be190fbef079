package proxy

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// noFlushWriter hides httptest.ResponseRecorder's Flusher implementation.
type noFlushWriter struct {
	http.ResponseWriter
}

func TestNewSSEWriterRequiresFlusher(t *testing.T) {
	recorder := httptest.NewRecorder()
	if _, err := NewSSEWriter(noFlushWriter{recorder}); err == nil {
		t.Fatal("writer accepted without flush support")
	}
}

func TestSSEWriterHeaders(t *testing.T) {
	recorder := httptest.NewRecorder()
	if _, err := NewSSEWriter(recorder); err != nil {
		t.Fatalf("NewSSEWriter: %v", err)
	}

	headers := recorder.Header()
	want := map[string]string{
		"Content-Type":      "text/event-stream",
		"Cache-Control":     "no-cache",
		"X-Accel-Buffering": "no",
	}
	for key, value := range want {
		if got := headers.Get(key); got != value {
			t.Errorf("%s = %q, want %q", key, got, value)
		}
	}
}

func TestSSEWriterEventFraming(t *testing.T) {
	recorder := httptest.NewRecorder()
	writer, err := NewSSEWriter(recorder)
	if err != nil {
		t.Fatalf("NewSSEWriter: %v", err)
	}

	if err := writer.WriteEvent("error"); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if err := writer.WriteData(map[string]string{"message": "boom"}); err != nil {
		t.Fatalf("WriteData: %v", err)
	}
	if err := writer.WriteRaw("[DONE]"); err != nil {
		t.Fatalf("WriteRaw: %v", err)
	}

	want := "event: error\ndata: {\"message\":\"boom\"}\n\ndata: [DONE]\n\n"
	if got := recorder.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
	if !recorder.Flushed {
		t.Error("response not flushed")
	}
}
