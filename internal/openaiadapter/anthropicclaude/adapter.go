package anthropicclaude

import (
	"context"
	"iter"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/claudewire/claudewire/internal/openaiadapter"
)

// Default stream timer intervals, overridable via Config.
const (
	defaultReadTimeout   = 60 * time.Second
	defaultStreamTimeout = 600 * time.Second
)

// Config tunes the adapter's upstream endpoint and stream timers.
type Config struct {
	// BaseURL is the upstream API root. Empty selects the public endpoint.
	BaseURL string

	// ReadTimeout is the maximum gap between upstream bytes before the
	// stream is declared stalled.
	ReadTimeout time.Duration

	// StreamTimeout caps the total duration of one upstream stream.
	StreamTimeout time.Duration
}

// CreateChatCompletionAdapter translates OpenAI chat completion requests into
// Anthropic Messages calls and responses back. One adapter instance serves
// all requests; the only shared state is the thinking cache, which carries
// signed thinking blocks across the request/response boundary of a single
// conversation.
type CreateChatCompletionAdapter struct {
	baseURL  string
	timeouts streamTimeouts
	thinking *thinkingCache
}

var _ openaiadapter.CreateChatCompletionAdapter = (*CreateChatCompletionAdapter)(nil)

// NewCreateChatCompletionAdapter builds an adapter with the given timer
// configuration; zero values fall back to defaults.
func NewCreateChatCompletionAdapter(cfg Config) *CreateChatCompletionAdapter {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = defaultStreamTimeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &CreateChatCompletionAdapter{
		baseURL:  cfg.BaseURL,
		timeouts: streamTimeouts{Inactivity: cfg.ReadTimeout, Total: cfg.StreamTimeout},
		thinking: newThinkingCache(),
	}
}

// ProcessRequest handles one non-streaming chat completion.
func (a *CreateChatCompletionAdapter) ProcessRequest(
	ctx context.Context,
	clientReq openaiadapter.CreateChatCompletionRequest,
	transport http.RoundTripper,
) (*openaiadapter.CreateChatCompletionResponse, error) {
	converted, err := convertRequest(ctx, clientReq, a.thinking, false)
	if err != nil {
		return nil, toChatCompletionError(err)
	}

	client, err := newClient(transport, a.baseURL)
	if err != nil {
		return nil, toChatCompletionError(err)
	}

	message, err := client.Messages.New(ctx, converted.Params,
		option.WithHeader("anthropic-beta", betaHeader(converted.BetaFlags)),
	)
	if err != nil {
		return nil, toChatCompletionError(err)
	}

	return toChatCompletionResponse(message, clientReq.Model, a.thinking)
}

// ProcessStreamingRequest handles one streaming chat completion. The
// returned iterator drives the whole upstream stream; it terminates with an
// error value when the upstream fails mid-stream so the caller can deliver a
// terminal error chunk instead of dropping the connection.
func (a *CreateChatCompletionAdapter) ProcessStreamingRequest(
	ctx context.Context,
	clientReq openaiadapter.CreateChatCompletionRequest,
	transport http.RoundTripper,
) (iter.Seq2[*openaiadapter.CreateChatCompletionChunk, error], error) {
	converted, err := convertRequest(ctx, clientReq, a.thinking, true)
	if err != nil {
		return nil, toChatCompletionError(err)
	}

	body, err := openStream(ctx, transport, a.baseURL, converted.Params, converted.BetaFlags)
	if err != nil {
		return nil, toChatCompletionError(err)
	}

	includeUsage := clientReq.StreamOptions != nil && clientReq.StreamOptions.IncludeUsage
	return convertStream(ctx, body, clientReq.Model, includeUsage, a.timeouts, a.thinking), nil
}
