// Package types provides OpenAI API types for server-side request/response handling.
//
// The types are written by hand rather than taken from the openai-go SDK:
//
//  1. SERVER-SIDE vs CLIENT-SIDE: The openai-go SDK is designed for making outbound
//     API calls TO OpenAI. This adapter receives inbound requests FROM clients and
//     translates them TO Anthropic. The client-oriented design would add unnecessary
//     complexity for server-side JSON decoding.
//
//  2. FIELD PATTERNS: SDK uses param.Opt[T] or similar for optional fields, requiring
//     additional checks. These types use standard Go pointers (*string, *int64),
//     which work naturally with standard library JSON unmarshaling via json.NewDecoder().
//
//  3. POLYMORPHIC FIELDS: The Chat Completions wire format has several
//     "string or array" / "string or object" shapes (message content, stop,
//     tool_choice). Each is a closed union type here, normalized once at decode
//     time instead of being type-switched at every use site.
package types
