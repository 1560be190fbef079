package anthropicclaude

import "strings"

// Beta feature identifiers sent to the Anthropic API via the anthropic-beta
// request header.
const (
	// betaOAuth enables Bearer-token authentication and is always present.
	betaOAuth = "oauth-2025-04-20"

	// beta1MContext opts into the 1M-token context window.
	beta1MContext = "context-1m-2025-08-07"

	// betaInterleavedThinking is required when a thinking directive is set.
	betaInterleavedThinking = "interleaved-thinking-2025-05-14"

	// betaFineGrainedToolStreaming improves tool-argument delivery on
	// buffered responses.
	betaFineGrainedToolStreaming = "fine-grained-tool-streaming-2025-05-14"
)

// betaFlags assembles the beta identifiers for one outbound request.
func betaFlags(use1MContext, thinkingEnabled, hasTools, streaming bool) []string {
	flags := []string{betaOAuth}
	if use1MContext {
		flags = append(flags, beta1MContext)
	}
	if thinkingEnabled {
		flags = append(flags, betaInterleavedThinking)
	}
	if hasTools && !streaming {
		flags = append(flags, betaFineGrainedToolStreaming)
	}
	return flags
}

// betaHeader renders the flags as the comma-separated header value.
func betaHeader(flags []string) string {
	return strings.Join(flags, ",")
}
