package anthropicclaude

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/claudewire/claudewire/internal/openaiadapter"
	"github.com/claudewire/claudewire/internal/openaiadapter/types"
)

// streamTimeouts bounds one upstream stream: Inactivity fires when no bytes
// arrive for the interval, Total caps the whole stream regardless of
// activity. Either firing synthesizes a timeout error that reaches the client
// as a terminal error chunk.
type streamTimeouts struct {
	Inactivity time.Duration
	Total      time.Duration
}

// toolCallState accumulates one streamed tool call. Argument fragments are
// buffered and released as a single complete string when the block closes:
// incremental JSON parsers on the client side treat any delivered prefix as a
// complete value, so a prefix must never go out.
type toolCallState struct {
	id          string
	name        string
	clientIndex int
	args        strings.Builder
	sealed      bool
}

// thinkingState accumulates one streamed thinking block up to its signature.
type thinkingState struct {
	text      strings.Builder
	signature string
}

// streamState is the per-stream conversion state machine. It is owned by
// exactly one convertStream invocation and never shared.
type streamState struct {
	responseID  string
	clientModel string
	created     int64

	thinking *thinkingCache

	toolCalls      map[int64]*toolCallState
	thinkingBlocks map[int64]*thinkingState
	nextToolIndex  int
	toolCallIDs    []string

	roleSent     bool
	reasoningLen int
	usage        anthropic.Usage
	stopReason   anthropic.StopReason
	finished     bool
}

func newStreamState(clientModel string, thinking *thinkingCache) *streamState {
	return &streamState{
		responseID:     newResponseID(),
		clientModel:    clientModel,
		created:        time.Now().Unix(),
		thinking:       thinking,
		toolCalls:      make(map[int64]*toolCallState),
		thinkingBlocks: make(map[int64]*thinkingState),
	}
}

// convertStream consumes the raw upstream SSE byte stream and yields OpenAI
// chunks. The iterator owns the body, both timers, and the single reader
// goroutine; it terminates on message_stop, upstream error, timer expiry, or
// context cancellation, always surfacing failures as a final yielded error
// rather than ending silently.
func convertStream(
	ctx context.Context,
	body io.ReadCloser,
	clientModel string,
	includeUsage bool,
	timeouts streamTimeouts,
	thinking *thinkingCache,
) iter.Seq2[*openaiadapter.CreateChatCompletionChunk, error] {
	return func(yield func(*openaiadapter.CreateChatCompletionChunk, error) bool) {
		defer body.Close()

		done := make(chan struct{})
		defer close(done)

		type readResult struct {
			data []byte
			err  error
		}
		reads := make(chan readResult)
		go func() {
			for {
				buf := make([]byte, 4096)
				n, err := body.Read(buf)
				var result readResult
				if n > 0 {
					result.data = buf[:n]
				}
				result.err = err
				select {
				case reads <- result:
				case <-done:
					return
				}
				if err != nil {
					return
				}
			}
		}()

		inactivity := time.NewTimer(timeouts.Inactivity)
		defer inactivity.Stop()
		total := time.NewTimer(timeouts.Total)
		defer total.Stop()

		state := newStreamState(clientModel, thinking)
		var parser sseParser

		emit := func(chunks []*openaiadapter.CreateChatCompletionChunk) bool {
			for _, chunk := range chunks {
				if !yield(chunk, nil) {
					return false
				}
			}
			return true
		}

		for {
			select {
			case <-ctx.Done():
				return

			case <-inactivity.C:
				yield(nil, toChatCompletionError(&UpstreamTimeoutError{After: timeouts.Inactivity, Inactivity: true}))
				return

			case <-total.C:
				yield(nil, toChatCompletionError(&UpstreamTimeoutError{After: timeouts.Total}))
				return

			case read := <-reads:
				if !inactivity.Stop() {
					<-inactivity.C
				}
				inactivity.Reset(timeouts.Inactivity)

				for _, event := range parser.feed(read.data) {
					chunks, err := state.handleEvent(event, includeUsage)
					if err != nil {
						yield(nil, toChatCompletionError(err))
						return
					}
					if !emit(chunks) {
						return
					}
					if state.finished {
						return
					}
				}

				if read.err != nil {
					if event, ok := parser.flush(); ok {
						chunks, err := state.handleEvent(event, includeUsage)
						if err != nil {
							yield(nil, toChatCompletionError(err))
							return
						}
						if !emit(chunks) {
							return
						}
					}
					if state.finished {
						return
					}
					if read.err == io.EOF {
						// Upstream closed without message_stop. Buffered
						// partial tool calls are discarded rather than
						// delivered incomplete; the closing chunk still
						// carries whatever terminal state arrived.
						if !emit(state.finalChunks(includeUsage)) {
							return
						}
						return
					}
					yield(nil, toChatCompletionError(&UpstreamProtocolError{Reason: fmt.Sprintf("read stream: %v", read.err)}))
					return
				}
			}
		}
	}
}

// handleEvent advances the state machine by one upstream SSE event and
// returns the client chunks it produces.
func (s *streamState) handleEvent(event sseEvent, includeUsage bool) ([]*openaiadapter.CreateChatCompletionChunk, error) {
	if event.Data == "" || event.Data == "[DONE]" {
		return nil, nil
	}

	// Probe the event type before handing it to the SDK decoder: ping is
	// noise, and error payloads need their own normalization because the
	// error field may be a plain string or a structured object.
	var probe struct {
		Type  string          `json:"type"`
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal([]byte(event.Data), &probe); err != nil {
		// A single garbled payload does not end the stream; later events
		// stay decodable because SSE frames are self-delimiting.
		slog.Warn("skipping undecodable stream event", "error", err)
		return nil, nil
	}

	switch probe.Type {
	case "ping":
		return nil, nil
	case "error":
		return nil, normalizeStreamError(probe.Error)
	}

	var ev anthropic.MessageStreamEventUnion
	if err := json.Unmarshal([]byte(event.Data), &ev); err != nil {
		slog.Warn("skipping undecodable stream event", "type", probe.Type, "error", err)
		return nil, nil
	}

	switch probe.Type {
	case "message_start":
		return s.onMessageStart(ev), nil
	case "content_block_start":
		return s.onBlockStart(ev), nil
	case "content_block_delta":
		return s.onBlockDelta(ev), nil
	case "content_block_stop":
		return s.onBlockStop(ev), nil
	case "message_delta":
		s.onMessageDelta(ev)
		return nil, nil
	case "message_stop":
		s.finished = true
		s.storeThinking()
		return s.finalChunks(includeUsage), nil
	default:
		// Unknown event types are ignored for forward compatibility.
		return nil, nil
	}
}

func (s *streamState) onMessageStart(ev anthropic.MessageStreamEventUnion) []*openaiadapter.CreateChatCompletionChunk {
	if ev.Message.ID != "" {
		s.responseID = ev.Message.ID
	}
	s.usage = ev.Message.Usage

	chunk := s.newChunk()
	chunk.Choices[0].Delta.Role = "assistant"
	s.roleSent = true
	return []*openaiadapter.CreateChatCompletionChunk{chunk}
}

func (s *streamState) onBlockStart(ev anthropic.MessageStreamEventUnion) []*openaiadapter.CreateChatCompletionChunk {
	switch ev.ContentBlock.Type {
	case "tool_use":
		toolCallID := ev.ContentBlock.ID
		if toolCallID == "" {
			toolCallID = newToolCallID()
		}
		call := &toolCallState{
			id:          toolCallID,
			name:        ev.ContentBlock.Name,
			clientIndex: s.nextToolIndex,
		}
		s.nextToolIndex++
		s.toolCalls[ev.Index] = call
		s.toolCallIDs = append(s.toolCallIDs, toolCallID)

		// Open the tool-call slot so the client can start tracking it; the
		// arguments stay empty until the block closes.
		chunk := s.newChunk()
		index := call.clientIndex
		chunk.Choices[0].Delta.ToolCalls = []types.ToolCall{{
			Index: &index,
			ID:    call.id,
			Type:  "function",
			Function: types.FunctionCall{
				Name:      call.name,
				Arguments: "",
			},
		}}
		return []*openaiadapter.CreateChatCompletionChunk{chunk}

	case "thinking":
		s.thinkingBlocks[ev.Index] = &thinkingState{}
		return nil

	default:
		// text and redacted_thinking blocks need no allocation.
		return nil
	}
}

func (s *streamState) onBlockDelta(ev anthropic.MessageStreamEventUnion) []*openaiadapter.CreateChatCompletionChunk {
	switch ev.Delta.Type {
	case "text_delta":
		if ev.Delta.Text == "" {
			return nil
		}
		chunk := s.newChunk()
		text := ev.Delta.Text
		chunk.Choices[0].Delta.Content = &text
		return []*openaiadapter.CreateChatCompletionChunk{chunk}

	case "thinking_delta":
		if ev.Delta.Thinking == "" {
			return nil
		}
		if block, ok := s.thinkingBlocks[ev.Index]; ok {
			block.text.WriteString(ev.Delta.Thinking)
		}
		s.reasoningLen += len(ev.Delta.Thinking)
		chunk := s.newChunk()
		chunk.Choices[0].Delta.ReasoningContent = ev.Delta.Thinking
		return []*openaiadapter.CreateChatCompletionChunk{chunk}

	case "input_json_delta":
		// Buffered only. Fragments of the arguments string go out solely as
		// one complete value at content_block_stop.
		if call, ok := s.toolCalls[ev.Index]; ok && !call.sealed {
			call.args.WriteString(ev.Delta.PartialJSON)
		}
		return nil

	case "signature_delta":
		if block, ok := s.thinkingBlocks[ev.Index]; ok {
			block.signature += ev.Delta.Signature
		}
		return nil

	default:
		return nil
	}
}

func (s *streamState) onBlockStop(ev anthropic.MessageStreamEventUnion) []*openaiadapter.CreateChatCompletionChunk {
	call, ok := s.toolCalls[ev.Index]
	if !ok || call.sealed {
		return nil
	}
	call.sealed = true

	arguments := call.args.String()
	if arguments == "" {
		arguments = "{}"
	}

	chunk := s.newChunk()
	index := call.clientIndex
	chunk.Choices[0].Delta.ToolCalls = []types.ToolCall{{
		Index: &index,
		Function: types.FunctionCall{
			Arguments: arguments,
		},
	}}
	return []*openaiadapter.CreateChatCompletionChunk{chunk}
}

func (s *streamState) onMessageDelta(ev anthropic.MessageStreamEventUnion) {
	if ev.Delta.StopReason != "" {
		s.stopReason = anthropic.StopReason(ev.Delta.StopReason)
	}
	if ev.Usage.OutputTokens > 0 {
		s.usage.OutputTokens = ev.Usage.OutputTokens
	}
	if ev.Usage.InputTokens > 0 {
		s.usage.InputTokens = ev.Usage.InputTokens
	}
	if ev.Usage.CacheReadInputTokens > 0 {
		s.usage.CacheReadInputTokens = ev.Usage.CacheReadInputTokens
	}
}

// finalChunks closes the stream: one chunk carrying the finish reason, plus a
// trailing usage-only chunk when the client asked for it via stream_options.
func (s *streamState) finalChunks(includeUsage bool) []*openaiadapter.CreateChatCompletionChunk {
	finishReason := toFinishReason(s.stopReason)

	final := s.newChunk()
	final.Choices[0].FinishReason = &finishReason

	chunks := []*openaiadapter.CreateChatCompletionChunk{final}
	if includeUsage {
		usageChunk := &openaiadapter.CreateChatCompletionChunk{
			ID:      s.responseID,
			Object:  "chat.completion.chunk",
			Created: s.created,
			Model:   s.clientModel,
			Choices: []types.ChatCompletionStreamChoice{},
			Usage:   s.completionUsage(),
		}
		chunks = append(chunks, usageChunk)
	}
	return chunks
}

func (s *streamState) completionUsage() *types.CompletionUsage {
	usage := toCompletionUsage(s.usage, "")
	if s.reasoningLen > 0 {
		usage.CompletionTokensDetails = &types.CompletionTokensDetails{
			ReasoningTokens: int64(s.reasoningLen / 4),
		}
	}
	return usage
}

// storeThinking caches the stream's signed thinking blocks under the tool
// call ids of the same turn, for reattachment on the follow-up request.
func (s *streamState) storeThinking() {
	if s.thinking == nil || len(s.toolCallIDs) == 0 {
		return
	}
	for _, block := range s.thinkingBlocks {
		if block.signature == "" {
			continue
		}
		param := anthropic.ThinkingBlockParam{
			Thinking:  block.text.String(),
			Signature: block.signature,
		}
		for _, id := range s.toolCallIDs {
			s.thinking.put(id, param)
		}
	}
}

func (s *streamState) newChunk() *openaiadapter.CreateChatCompletionChunk {
	return &openaiadapter.CreateChatCompletionChunk{
		ID:      s.responseID,
		Object:  "chat.completion.chunk",
		Created: s.created,
		Model:   s.clientModel,
		Choices: []types.ChatCompletionStreamChoice{{Index: 0}},
	}
}

// normalizeStreamError converts an upstream error event payload into the
// client-facing error shape. The payload is either a structured
// {type, message} object or a bare string; anything else is stringified with
// type api_error.
func normalizeStreamError(raw json.RawMessage) error {
	if len(raw) == 0 {
		return errorResponse("unknown upstream error", "api_error", "")
	}

	var message string
	if err := json.Unmarshal(raw, &message); err == nil {
		return errorResponse(message, "api_error", "")
	}

	var structured struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &structured); err == nil && structured.Message != "" {
		return errorResponse(structured.Message, mapAnthropicErrorType(structured.Type), "")
	}

	return errorResponse(string(raw), "api_error", "")
}
