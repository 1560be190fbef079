package anthropicclaude

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/claudewire/claudewire/internal/openaiadapter/types"
)

// convertedMessages is the outcome of mapping an OpenAI conversation onto the
// Anthropic message shape: a system-block list plus a strictly alternating
// user/assistant message list.
type convertedMessages struct {
	System   []anthropic.TextBlockParam
	Messages []anthropic.MessageParam
}

// convertMessages maps the ordered inbound message list to Anthropic form.
//
// System and developer messages are merged, in order, into the system block
// list regardless of where they appear. Tool-result messages become
// tool_result blocks inside user messages and must answer a tool call an
// earlier assistant message issued; an unmatched tool_call_id is rejected
// rather than silently forwarded, since the API would fail the request with a
// far less actionable error. Adjacent same-role messages are merged by
// concatenating their block lists, which the API's alternation rule requires.
func convertMessages(messages []types.ChatCompletionMessage, thinking *thinkingCache, thinkingEnabled bool) (convertedMessages, error) {
	var out convertedMessages
	seenToolCallIDs := make(map[string]struct{})

	for i, msg := range messages {
		switch msg.Role {
		case types.RoleSystem, types.RoleDeveloper:
			blocks, err := systemBlocks(msg.Content)
			if err != nil {
				return convertedMessages{}, &ValidationError{Reason: fmt.Sprintf("message %d: %v", i, err)}
			}
			out.System = append(out.System, blocks...)

		case types.RoleUser:
			blocks, err := fromMessageContent(msg.Content)
			if err != nil {
				return convertedMessages{}, &ValidationError{Reason: fmt.Sprintf("message %d: %v", i, err)}
			}
			if len(blocks) == 0 {
				continue
			}
			appendBlocks(&out.Messages, anthropic.MessageParamRoleUser, blocks)

		case types.RoleAssistant:
			blocks, err := assistantBlocks(msg, thinking, thinkingEnabled, seenToolCallIDs)
			if err != nil {
				return convertedMessages{}, fmt.Errorf("message %d: %w", i, err)
			}
			if len(blocks) == 0 {
				continue
			}
			appendBlocks(&out.Messages, anthropic.MessageParamRoleAssistant, blocks)

		case types.RoleTool, types.RoleFunction:
			block, err := toolResultBlock(msg, seenToolCallIDs)
			if err != nil {
				return convertedMessages{}, fmt.Errorf("message %d: %w", i, err)
			}
			appendBlocks(&out.Messages, anthropic.MessageParamRoleUser, []anthropic.ContentBlockParamUnion{block})

		default:
			return convertedMessages{}, &ValidationError{Reason: fmt.Sprintf("message %d: unsupported role %q", i, msg.Role)}
		}
	}

	// The API requires the conversation to open with a user turn.
	if len(out.Messages) > 0 && out.Messages[0].Role != anthropic.MessageParamRoleUser {
		out.Messages = append([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(".")),
		}, out.Messages...)
	}

	trimTrailingAssistantWhitespace(out.Messages)

	return out, nil
}

// appendBlocks adds content blocks for a role, merging into the previous
// message when it has the same role.
func appendBlocks(messages *[]anthropic.MessageParam, role anthropic.MessageParamRole, blocks []anthropic.ContentBlockParamUnion) {
	if n := len(*messages); n > 0 && (*messages)[n-1].Role == role {
		(*messages)[n-1].Content = append((*messages)[n-1].Content, blocks...)
		return
	}
	*messages = append(*messages, anthropic.MessageParam{Role: role, Content: blocks})
}

// assistantBlocks builds the content of one assistant turn: optional text,
// then a tool_use block per tool call. When thinking is enabled and a cached
// signed thinking block exists for one of the turn's tool calls, it is
// reattached ahead of everything else; the API rejects tool use in a thinking
// conversation whose assistant turn lacks its thinking block, and OpenAI
// clients have no field to echo it back through.
func assistantBlocks(msg types.ChatCompletionMessage, thinking *thinkingCache, thinkingEnabled bool, seenToolCallIDs map[string]struct{}) ([]anthropic.ContentBlockParamUnion, error) {
	textBlocks, err := fromMessageContent(msg.Content)
	if err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	toolCalls := msg.ToolCalls
	if len(toolCalls) == 0 && msg.FunctionCall != nil {
		toolCalls = []types.ToolCall{{
			ID:       newToolCallID(),
			Type:     "function",
			Function: *msg.FunctionCall,
		}}
	}

	var blocks []anthropic.ContentBlockParamUnion

	if thinkingEnabled && thinking != nil {
		for _, call := range toolCalls {
			if block, ok := thinking.get(call.ID); ok {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{OfThinking: &block})
				break
			}
		}
	}

	blocks = append(blocks, textBlocks...)

	for _, call := range toolCalls {
		block, err := toolUseBlockFromCall(call)
		if err != nil {
			return nil, err
		}
		seenToolCallIDs[call.ID] = struct{}{}
		blocks = append(blocks, block)
	}

	return blocks, nil
}

// toolResultBlock maps a role=tool message to a tool_result block, enforcing
// id correlation with a previously seen tool call.
func toolResultBlock(msg types.ChatCompletionMessage, seenToolCallIDs map[string]struct{}) (anthropic.ContentBlockParamUnion, error) {
	if msg.ToolCallID == "" {
		return anthropic.ContentBlockParamUnion{}, &ValidationError{Reason: "tool message missing tool_call_id"}
	}
	if _, ok := seenToolCallIDs[msg.ToolCallID]; !ok {
		return anthropic.ContentBlockParamUnion{}, &ValidationError{
			Reason: fmt.Sprintf("tool message references unknown tool_call_id %q", msg.ToolCallID),
		}
	}

	text, err := contentAsText(msg.Content)
	if err != nil {
		return anthropic.ContentBlockParamUnion{}, &ValidationError{Reason: err.Error()}
	}
	return anthropic.ContentBlockParamUnion{OfToolResult: &anthropic.ToolResultBlockParam{
		ToolUseID: msg.ToolCallID,
		Type:      "tool_result",
		Content: []anthropic.ToolResultBlockParamContentUnion{
			{OfText: &anthropic.TextBlockParam{Text: text}},
		},
	}}, nil
}

// systemBlocks maps system/developer message content to text blocks. System
// content is text only; images have no meaning there.
func systemBlocks(content types.MessageContent) ([]anthropic.TextBlockParam, error) {
	if !content.IsParts() {
		if content.Text == "" {
			return nil, nil
		}
		return []anthropic.TextBlockParam{{Text: content.Text}}, nil
	}

	blocks := make([]anthropic.TextBlockParam, 0, len(content.Parts))
	for i, part := range content.Parts {
		if part.Type != types.ContentPartTypeText {
			return nil, fmt.Errorf("content part %d: type %q not supported in system messages", i, part.Type)
		}
		blocks = append(blocks, anthropic.TextBlockParam{Text: part.Text})
	}
	return blocks, nil
}

// fromMessageContent converts message content to Anthropic content blocks.
// The mapping is a pure per-part transform.
func fromMessageContent(content types.MessageContent) ([]anthropic.ContentBlockParamUnion, error) {
	if !content.IsParts() {
		if content.Text == "" {
			return nil, nil
		}
		return []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(content.Text)}, nil
	}

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(content.Parts))
	for i, part := range content.Parts {
		switch part.Type {
		case types.ContentPartTypeText:
			blocks = append(blocks, anthropic.NewTextBlock(part.Text))
		case types.ContentPartTypeImageURL:
			if part.ImageURL == nil {
				return nil, fmt.Errorf("content part %d: image_url part missing image_url field", i)
			}
			block, err := fromImageURL(part.ImageURL.URL)
			if err != nil {
				return nil, fmt.Errorf("content part %d: %w", i, err)
			}
			blocks = append(blocks, block)
		default:
			return nil, fmt.Errorf("content part %d: unsupported type %q", i, part.Type)
		}
	}
	return blocks, nil
}

// fromImageURL converts an OpenAI image reference to an Anthropic image
// block. Data URIs become base64 source blocks, http(s) URLs become URL
// source blocks.
func fromImageURL(imageURL string) (anthropic.ContentBlockParamUnion, error) {
	switch {
	case strings.HasPrefix(imageURL, "data:"):
		header, encoded, found := strings.Cut(imageURL, ",")
		if !found {
			return anthropic.ContentBlockParamUnion{}, fmt.Errorf("invalid data URL, expected data:mime/type;base64,data")
		}

		mediaType := "image/jpeg"
		if after, ok := strings.CutPrefix(header, "data:"); ok {
			if mimeType, _, _ := strings.Cut(after, ";"); mimeType != "" {
				mediaType = mimeType
			}
		}

		if _, err := base64.StdEncoding.DecodeString(encoded); err != nil {
			return anthropic.ContentBlockParamUnion{}, fmt.Errorf("invalid base64 image data: %w", err)
		}
		return anthropic.NewImageBlockBase64(mediaType, encoded), nil

	case strings.HasPrefix(imageURL, "http://"), strings.HasPrefix(imageURL, "https://"):
		return anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: imageURL}), nil

	default:
		return anthropic.ContentBlockParamUnion{}, fmt.Errorf("invalid image URL: must be http(s):// or data: URI")
	}
}

// contentAsText flattens message content to plain text, joining text parts
// with newlines. Used where the target block only carries a string.
func contentAsText(content types.MessageContent) (string, error) {
	if !content.IsParts() {
		return content.Text, nil
	}
	parts := make([]string, 0, len(content.Parts))
	for i, part := range content.Parts {
		if part.Type != types.ContentPartTypeText {
			return "", fmt.Errorf("content part %d: type %q not supported here", i, part.Type)
		}
		parts = append(parts, part.Text)
	}
	return strings.Join(parts, "\n"), nil
}

// trimTrailingAssistantWhitespace trims trailing whitespace off the final
// assistant text block. The API rejects prefill text ending in whitespace.
func trimTrailingAssistantWhitespace(messages []anthropic.MessageParam) {
	if len(messages) == 0 {
		return
	}
	last := &messages[len(messages)-1]
	if last.Role != anthropic.MessageParamRoleAssistant {
		return
	}
	for i := len(last.Content) - 1; i >= 0; i-- {
		if text := last.Content[i].OfText; text != nil {
			text.Text = strings.TrimRight(text.Text, " \t\r\n")
			return
		}
	}
}
