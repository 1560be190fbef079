package anthropicclaude

import (
	"sort"
	"strings"

	"github.com/claudewire/claudewire/internal/openaiadapter/types"
)

// ModelSpec describes one servable base model and its capabilities.
type ModelSpec struct {
	OpenAIID            string
	AnthropicID         string
	Created             int64
	OwnedBy             string
	ContextLength       int64
	MaxCompletionTokens int64
	SupportsReasoning   bool
	SupportsVision      bool
	Supports1MContext   bool
}

var baseModels = []ModelSpec{
	{
		OpenAIID:            "sonnet-4-5",
		AnthropicID:         "claude-sonnet-4-5-20250929",
		Created:             1727654400,
		OwnedBy:             "anthropic",
		ContextLength:       200_000,
		MaxCompletionTokens: 65_536,
		SupportsReasoning:   true,
		SupportsVision:      true,
		Supports1MContext:   true,
	},
	{
		OpenAIID:            "haiku-4-5",
		AnthropicID:         "claude-haiku-4-5-20251001",
		Created:             1727827200,
		OwnedBy:             "anthropic",
		ContextLength:       200_000,
		MaxCompletionTokens: 65_536,
		SupportsReasoning:   true,
		SupportsVision:      true,
	},
	{
		OpenAIID:            "opus-4-1",
		AnthropicID:         "claude-opus-4-1-20250805",
		Created:             1722816000,
		OwnedBy:             "anthropic",
		ContextLength:       200_000,
		MaxCompletionTokens: 32_768,
		SupportsReasoning:   true,
		SupportsVision:      true,
	},
	{
		OpenAIID:            "sonnet-4",
		AnthropicID:         "claude-sonnet-4-20250514",
		Created:             1715644800,
		OwnedBy:             "anthropic",
		ContextLength:       200_000,
		MaxCompletionTokens: 65_536,
		SupportsReasoning:   true,
		SupportsVision:      true,
		Supports1MContext:   true,
	},
}

// modelRegistry maps both OpenAI-friendly ids and native Anthropic ids to
// their spec, so clients may use either family of names.
var modelRegistry = func() map[string]ModelSpec {
	registry := make(map[string]ModelSpec, 2*len(baseModels))
	for _, spec := range baseModels {
		registry[spec.OpenAIID] = spec
		registry[spec.AnthropicID] = spec
	}
	return registry
}()

// resolvedModel is the outcome of parsing a client-supplied model identifier.
type resolvedModel struct {
	Spec ModelSpec

	// ReasoningTier is the tier selected by a -reasoning-* suffix, empty
	// when the id carries none. An explicit reasoning_effort request
	// parameter overrides it.
	ReasoningTier string

	// Use1MContext is set by the -1m suffix on models that support it.
	Use1MContext bool
}

// resolveModel parses a model identifier into a base spec plus variant flags.
//
// Variant suffixes are recognized only in the documented order
// base[-1m][-reasoning-{low|medium|high}], stripped greedily from the right.
// An unrecognized trailing token is left as part of the base id rather than
// guessed at, so misordered variants fail the registry lookup and surface as
// NotFoundError instead of being silently reinterpreted.
func resolveModel(id string) (resolvedModel, error) {
	if spec, ok := modelRegistry[id]; ok {
		return resolvedModel{Spec: spec}, nil
	}

	base := id
	var tier string
	var use1M bool

	if rest, level, ok := cutReasoningSuffix(base); ok {
		base = rest
		tier = level
	}
	if rest, ok := strings.CutSuffix(base, "-1m"); ok {
		base = rest
		use1M = true
	}

	spec, ok := modelRegistry[base]
	if !ok {
		return resolvedModel{}, &NotFoundError{Model: id}
	}
	if tier != "" && !spec.SupportsReasoning {
		tier = ""
	}
	if use1M && !spec.Supports1MContext {
		use1M = false
	}
	return resolvedModel{Spec: spec, ReasoningTier: tier, Use1MContext: use1M}, nil
}

// cutReasoningSuffix strips a trailing -reasoning-{tier} token.
func cutReasoningSuffix(id string) (rest, tier string, ok bool) {
	rest, tier, found := strings.Cut(id, "-reasoning-")
	if !found || strings.Contains(tier, "-") {
		return id, "", false
	}
	if _, known := reasoningBudgets[tier]; !known {
		return id, "", false
	}
	return rest, tier, true
}

// Models returns the model listing advertised on /v1/models: each base model
// plus its reasoning variants, in stable id order.
func Models() []types.Model {
	listing := make([]types.Model, 0, 4*len(baseModels))
	for _, spec := range baseModels {
		listing = append(listing, toModelListing(spec, spec.OpenAIID, false))
		if spec.SupportsReasoning {
			for _, tier := range reasoningTiers {
				listing = append(listing, toModelListing(spec, spec.OpenAIID+"-reasoning-"+tier, true))
			}
		}
	}
	sort.Slice(listing, func(i, j int) bool { return listing[i].ID < listing[j].ID })
	return listing
}

func toModelListing(spec ModelSpec, id string, reasoning bool) types.Model {
	return types.Model{
		ID:                  id,
		Object:              "model",
		Created:             spec.Created,
		OwnedBy:             spec.OwnedBy,
		ContextLength:       spec.ContextLength,
		MaxCompletionTokens: spec.MaxCompletionTokens,
		ReasoningCapable:    reasoning,
		SupportsVision:      spec.SupportsVision,
	}
}
