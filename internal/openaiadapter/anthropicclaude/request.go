package anthropicclaude

import (
	"context"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/go-playground/validator/v10"

	"github.com/claudewire/claudewire/internal/openaiadapter"
	"github.com/claudewire/claudewire/internal/openaiadapter/types"
)

// defaultMaxTokens applies when the client sets neither max_tokens nor
// max_completion_tokens; Anthropic requires the field.
const defaultMaxTokens = 4096

var validate = validator.New(validator.WithRequiredStructEnabled())

// convertedRequest is one fully translated outbound call: the message params,
// the resolved model, and the beta header flags to send alongside.
type convertedRequest struct {
	Params          anthropic.MessageNewParams
	Model           resolvedModel
	BetaFlags       []string
	ThinkingEnabled bool
}

// convertRequest translates one inbound OpenAI request into Anthropic
// MessageNewParams. Validation failures surface before any upstream call.
func convertRequest(
	ctx context.Context,
	clientReq openaiadapter.CreateChatCompletionRequest,
	thinking *thinkingCache,
	streaming bool,
) (convertedRequest, error) {
	if err := validate.Struct(clientReq); err != nil {
		return convertedRequest{}, &ValidationError{Reason: err.Error()}
	}

	model, err := resolveModel(clientReq.Model)
	if err != nil {
		return convertedRequest{}, err
	}

	tier := resolveReasoningTier(clientReq, model)
	thinkingConfig, budget := buildThinking(tier)
	thinkingEnabled := budget > 0

	conversation, err := convertMessages(clientReq.Messages, thinking, thinkingEnabled)
	if err != nil {
		return convertedRequest{}, err
	}
	if len(conversation.Messages) == 0 {
		return convertedRequest{}, &ValidationError{Reason: "conversation contains no user or assistant messages"}
	}

	// The API rejects a tool-using assistant turn that has no leading
	// thinking block while thinking is enabled. When the cached block for
	// that turn is gone, thinking is disabled for this request instead of
	// failing it.
	if thinkingEnabled && lastAssistantToolUseMissingThinking(conversation.Messages) {
		slog.InfoContext(ctx, "disabled thinking: last assistant tool call has no thinking block")
		thinkingConfig = anthropic.ThinkingConfigParamUnion{}
		budget = 0
		thinkingEnabled = false
	}

	tools := clientReq.Tools
	if len(tools) == 0 && len(clientReq.Functions) > 0 {
		// Legacy function-calling clients send declarations under "functions".
		tools = make([]types.ChatCompletionTool, 0, len(clientReq.Functions))
		for i := range clientReq.Functions {
			fn := clientReq.Functions[i]
			tools = append(tools, types.ChatCompletionTool{Type: "function", Function: &fn})
		}
	}

	params := anthropic.MessageNewParams{
		Model:    anthropic.Model(model.Spec.AnthropicID),
		Messages: conversation.Messages,
		System:   conversation.System,
	}

	anthropicTools, err := fromChatCompletionTools(tools)
	if err != nil {
		return convertedRequest{}, err
	}
	params.Tools = anthropicTools

	if len(anthropicTools) > 0 {
		toolChoice := clientReq.ToolChoice
		if toolChoice == nil {
			toolChoice = clientReq.FunctionCall
		}
		choice, err := fromToolChoiceOption(toolChoice)
		if err != nil {
			return convertedRequest{}, err
		}
		params.ToolChoice = choice
	}

	params.MaxTokens = resolveMaxTokens(ctx, clientReq, model, budget)

	if thinkingEnabled {
		params.Thinking = thinkingConfig
		// Thinking constrains sampling: temperature must stay at default.
	} else {
		if clientReq.Temperature != nil {
			params.Temperature = anthropic.Float(*clientReq.Temperature)
		}
		if clientReq.TopP != nil {
			params.TopP = anthropic.Float(*clientReq.TopP)
		}
	}

	if clientReq.Stop != nil && len(clientReq.Stop.Sequences) > 0 {
		params.StopSequences = clientReq.Stop.Sequences
	}

	annotatePromptCache(&params)

	return convertedRequest{
		Params:          params,
		Model:           model,
		BetaFlags:       betaFlags(model.Use1MContext, thinkingEnabled, len(anthropicTools) > 0, streaming),
		ThinkingEnabled: thinkingEnabled,
	}, nil
}

// lastAssistantToolUseMissingThinking reports whether the final assistant
// turn carries tool_use blocks without a thinking block at the front.
func lastAssistantToolUseMissingThinking(messages []anthropic.MessageParam) bool {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != anthropic.MessageParamRoleAssistant {
			continue
		}
		hasToolUse := false
		for _, block := range messages[i].Content {
			if block.OfToolUse != nil {
				hasToolUse = true
				break
			}
		}
		if !hasToolUse || len(messages[i].Content) == 0 {
			return false
		}
		return messages[i].Content[0].OfThinking == nil
	}
	return false
}

// resolveMaxTokens picks the outbound max_tokens: the client's
// max_completion_tokens wins over the legacy max_tokens, a default applies
// when neither is set, and an enabled thinking budget raises the floor so the
// visible answer is never starved. The raise is logged, never an error.
func resolveMaxTokens(ctx context.Context, clientReq openaiadapter.CreateChatCompletionRequest, model resolvedModel, thinkingBudget int64) int64 {
	maxTokens := int64(defaultMaxTokens)
	switch {
	case clientReq.MaxCompletionTokens != nil:
		maxTokens = *clientReq.MaxCompletionTokens
	case clientReq.MaxTokens != nil:
		maxTokens = *clientReq.MaxTokens
	}

	if thinkingBudget > 0 && maxTokens < thinkingBudget+minResponseTokens {
		adjusted := thinkingBudget + minResponseTokens
		slog.InfoContext(ctx, "raised max_tokens to fit thinking budget",
			"requested", maxTokens,
			"adjusted", adjusted,
			"thinking_budget", thinkingBudget,
		)
		maxTokens = adjusted
	}

	if limit := model.Spec.MaxCompletionTokens; limit > 0 && maxTokens > limit {
		maxTokens = limit
	}
	return maxTokens
}
