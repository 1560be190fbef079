package anthropicclaude

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/claudewire/claudewire/internal/openaiadapter/types"
)

// toCompletionUsage converts Anthropic usage metadata to OpenAI CompletionUsage.
// Anthropic does not break thinking tokens out of output_tokens, so
// reasoning_tokens is estimated from the extracted thinking text (~4 chars per
// token); clients treating it as exact get a close approximation rather than
// nothing.
func toCompletionUsage(usage anthropic.Usage, reasoningContent string) *types.CompletionUsage {
	completionUsage := &types.CompletionUsage{
		PromptTokens:     usage.InputTokens,
		CompletionTokens: usage.OutputTokens,
		TotalTokens:      usage.InputTokens + usage.OutputTokens,
	}

	// Anthropic's CacheReadInputTokens maps directly to OpenAI's cached_tokens.
	if usage.CacheReadInputTokens > 0 {
		completionUsage.PromptTokensDetails = &types.PromptTokensDetails{
			CachedTokens: usage.CacheReadInputTokens,
		}
	}

	if reasoningContent != "" {
		completionUsage.CompletionTokensDetails = &types.CompletionTokensDetails{
			ReasoningTokens: int64(len(reasoningContent) / 4),
		}
	}

	return completionUsage
}
