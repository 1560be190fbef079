package anthropicclaude

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/claudewire/claudewire/internal/openaiadapter"
	"github.com/claudewire/claudewire/internal/openaiadapter/types"
)

// reasoningBudgets maps a reasoning tier to Anthropic's explicit thinking
// token budget.
var reasoningBudgets = map[string]int64{
	types.ReasoningEffortLow:    8000,
	types.ReasoningEffortMedium: 16000,
	types.ReasoningEffortHigh:   32000,
}

// reasoningTiers lists the tiers in ascending budget order, for deterministic
// model listings.
var reasoningTiers = []string{
	types.ReasoningEffortLow,
	types.ReasoningEffortMedium,
	types.ReasoningEffortHigh,
}

// minResponseTokens is the floor reserved for the visible answer when
// thinking is enabled: max_tokens is raised to budget+minResponseTokens
// whenever the caller's value would leave less.
const minResponseTokens = 1024

// resolveReasoningTier picks the effective reasoning tier for a request.
// An explicit reasoning_effort parameter takes precedence over a tier
// selected by a model-id variant suffix; "none" disables thinking outright.
func resolveReasoningTier(clientReq openaiadapter.CreateChatCompletionRequest, model resolvedModel) string {
	if clientReq.ReasoningEffort != nil {
		effort := *clientReq.ReasoningEffort
		if effort == types.ReasoningEffortNone {
			return ""
		}
		if _, ok := reasoningBudgets[effort]; ok {
			return effort
		}
		// Unknown efforts are rejected by request validation before this point.
	}
	return model.ReasoningTier
}

// buildThinking builds Anthropic's thinking configuration for a tier.
// Returns the zero union and budget 0 when the tier is empty.
func buildThinking(tier string) (anthropic.ThinkingConfigParamUnion, int64) {
	budget, ok := reasoningBudgets[tier]
	if !ok {
		return anthropic.ThinkingConfigParamUnion{}, 0
	}
	return anthropic.ThinkingConfigParamOfEnabled(budget), budget
}
