package anthropicclaude

import (
	"github.com/anthropics/anthropic-sdk-go"
)

// annotatePromptCache marks cache boundaries on an outbound request: the last
// system block and the last content block of each of the last two user
// messages get an ephemeral cache_control marker. The upstream caches the
// request prefix up to each marker, so repeat turns of the same conversation
// skip re-processing the shared history.
//
// Short conversations are fine: whatever subset of the markers applies is
// set, the rest are skipped.
func annotatePromptCache(params *anthropic.MessageNewParams) {
	if n := len(params.System); n > 0 {
		params.System[n-1].CacheControl = anthropic.NewCacheControlEphemeralParam()
	}

	marked := 0
	for i := len(params.Messages) - 1; i >= 0 && marked < 2; i-- {
		if params.Messages[i].Role != anthropic.MessageParamRoleUser {
			continue
		}
		if markLastBlock(params.Messages[i].Content) {
			marked++
		}
	}
}

// markLastBlock sets the ephemeral marker on the last cacheable block of a
// message. Thinking blocks cannot carry cache_control and are skipped.
func markLastBlock(blocks []anthropic.ContentBlockParamUnion) bool {
	for i := len(blocks) - 1; i >= 0; i-- {
		block := &blocks[i]
		switch {
		case block.OfText != nil:
			block.OfText.CacheControl = anthropic.NewCacheControlEphemeralParam()
		case block.OfImage != nil:
			block.OfImage.CacheControl = anthropic.NewCacheControlEphemeralParam()
		case block.OfToolResult != nil:
			block.OfToolResult.CacheControl = anthropic.NewCacheControlEphemeralParam()
		case block.OfToolUse != nil:
			block.OfToolUse.CacheControl = anthropic.NewCacheControlEphemeralParam()
		case block.OfDocument != nil:
			block.OfDocument.CacheControl = anthropic.NewCacheControlEphemeralParam()
		default:
			continue
		}
		return true
	}
	return false
}
