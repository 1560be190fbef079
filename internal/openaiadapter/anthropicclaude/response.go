package anthropicclaude

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/claudewire/claudewire/internal/openaiadapter"
	"github.com/claudewire/claudewire/internal/openaiadapter/types"
)

// toChatCompletionResponse converts a complete Anthropic message into the
// OpenAI non-streaming response shape. Signed thinking blocks are stored in
// the thinking cache keyed by the turn's tool_use ids so follow-up requests
// can reattach them.
func toChatCompletionResponse(message *anthropic.Message, clientModel string, thinking *thinkingCache) (*openaiadapter.CreateChatCompletionResponse, error) {
	var textParts []string
	var reasoningParts []string
	var toolCalls []types.ToolCall
	var thinkingBlocks []anthropic.ThinkingBlockParam

	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			textParts = append(textParts, variant.Text)

		case anthropic.ThinkingBlock:
			reasoningParts = append(reasoningParts, variant.Thinking)
			thinkingBlocks = append(thinkingBlocks, anthropic.ThinkingBlockParam{
				Thinking:  variant.Thinking,
				Signature: variant.Signature,
			})

		case anthropic.RedactedThinkingBlock:
			// Redacted thinking carries no client-visible text.

		case anthropic.ToolUseBlock:
			toolCallID := variant.ID
			if toolCallID == "" {
				toolCallID = newToolCallID()
			}
			arguments := "{}"
			if len(variant.Input) > 0 {
				arguments = string(variant.Input)
			}
			toolCalls = append(toolCalls, types.ToolCall{
				ID:   toolCallID,
				Type: "function",
				Function: types.FunctionCall{
					Name:      variant.Name,
					Arguments: arguments,
				},
			})
		}
	}

	if thinking != nil {
		for _, call := range toolCalls {
			for _, block := range thinkingBlocks {
				thinking.put(call.ID, block)
			}
		}
	}

	responseID := message.ID
	if responseID == "" {
		responseID = newResponseID()
	}

	content := strings.Join(textParts, "")
	responseMessage := types.ChatCompletionResponseMessage{
		Role:             "assistant",
		Content:          &content,
		ReasoningContent: strings.Join(reasoningParts, ""),
		ToolCalls:        toolCalls,
	}

	return &openaiadapter.CreateChatCompletionResponse{
		ID:      responseID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   clientModel,
		Choices: []types.ChatCompletionChoice{{
			Index:        0,
			Message:      responseMessage,
			FinishReason: toFinishReason(message.StopReason),
		}},
		Usage: toCompletionUsage(message.Usage, responseMessage.ReasoningContent),
	}, nil
}

// toFinishReason maps Anthropic stop reasons to OpenAI finish reasons.
//
// Refusals stay embedded in content with finish_reason="content_filter":
// OpenAI's separate refusal field would break round-trips through
// conversation history, which carries refusal text as ordinary content.
func toFinishReason(stopReason anthropic.StopReason) string {
	switch stopReason {
	case anthropic.StopReasonEndTurn:
		return types.FinishReasonStop
	case anthropic.StopReasonMaxTokens:
		return types.FinishReasonLength
	case anthropic.StopReasonStopSequence:
		return types.FinishReasonStop
	case anthropic.StopReasonToolUse:
		return types.FinishReasonToolCalls
	case anthropic.StopReasonRefusal:
		return types.FinishReasonContentFilter
	default:
		// pause_turn has no OpenAI equivalent; "stop" is the closest match.
		return types.FinishReasonStop
	}
}

// newResponseID generates an OpenAI-compatible response ID (chatcmpl-<token>).
// Used as fallback when Anthropic doesn't provide an ID in the response.
func newResponseID() string {
	b := make([]byte, 24) // 24 bytes yields 32 URL-safe base64 characters
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	// Use RawURLEncoding to avoid '+', '/' and trailing '='
	token := base64.RawURLEncoding.EncodeToString(b)
	return "chatcmpl-" + token
}
