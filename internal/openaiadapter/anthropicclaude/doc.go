// Package anthropicclaude adapts OpenAI requests to Anthropic, enabling OpenAI SDK clients
// to work with Claude models without code changes.
//
// The adapter handles:
//
//   - Model resolution: Client-facing model ids may carry variant suffixes in the
//     form base[-1m][-reasoning-{low|medium|high}] selecting the 1M context window
//     and a thinking budget. An explicit reasoning_effort parameter overrides the
//     suffix.
//
//   - Message transformation: System/developer messages are hoisted to Anthropic's
//     System field while preserving conversation order. Adjacent same-role messages
//     are merged (required by Anthropic's role alternation rules), and tool results
//     are correlated to their originating tool calls strictly by id.
//
//   - Tool calling: Bidirectional translation between OpenAI function declarations
//     and Anthropic tools. Declarations already in Anthropic shape pass through
//     unchanged. Anthropic uses mixed content indices (text=0, tool=1, ...) while
//     OpenAI uses tool-only indices (tool=0, tool=1).
//
//   - Prompt caching: The last system block and the last block of each of the last
//     two user messages are marked with ephemeral cache_control, so repeat turns of
//     the same conversation hit the upstream prompt cache.
//
//   - Streaming: Translates Anthropic's SSE events to OpenAI chunks. Text and
//     thinking deltas are forwarded as they arrive; tool-call argument fragments
//     are buffered per content block and released as one complete string when the
//     block closes, because incremental JSON parsers on the client side treat any
//     delivered prefix as a complete value. Two timers (read inactivity, total
//     stream duration) convert a stalled upstream into a terminal error chunk.
//
// # Adapters
//
// CreateChatCompletionAdapter: OpenAI CreateChatCompletion → Anthropic Messages
package anthropicclaude
