package anthropicclaude

import (
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/claudewire/claudewire/internal/openaiadapter/types"
)

func TestConvertMessagesSystemHoisting(t *testing.T) {
	messages := []types.ChatCompletionMessage{
		{Role: types.RoleSystem, Content: types.ContentText("You are helpful.")},
		{Role: types.RoleUser, Content: types.ContentText("hi")},
		{Role: types.RoleDeveloper, Content: types.ContentText("Be terse.")},
		{Role: types.RoleUser, Content: types.ContentText("ok")},
	}

	out, err := convertMessages(messages, nil, false)
	if err != nil {
		t.Fatalf("convertMessages failed: %v", err)
	}

	if len(out.System) != 2 {
		t.Fatalf("system blocks = %d, want 2", len(out.System))
	}
	if out.System[0].Text != "You are helpful." || out.System[1].Text != "Be terse." {
		t.Errorf("system order not preserved: %+v", out.System)
	}

	// The two user messages become adjacent once system is hoisted and are
	// merged into one user turn.
	if len(out.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(out.Messages))
	}
	if len(out.Messages[0].Content) != 2 {
		t.Errorf("merged user blocks = %d, want 2", len(out.Messages[0].Content))
	}
}

func TestConvertMessagesRoleAlternationMerging(t *testing.T) {
	messages := []types.ChatCompletionMessage{
		{Role: types.RoleUser, Content: types.ContentText("first")},
		{Role: types.RoleUser, Content: types.ContentText("second")},
		{Role: types.RoleAssistant, Content: types.ContentText("reply")},
		{Role: types.RoleAssistant, Content: types.ContentText("more")},
		{Role: types.RoleUser, Content: types.ContentText("third")},
	}

	out, err := convertMessages(messages, nil, false)
	if err != nil {
		t.Fatalf("convertMessages failed: %v", err)
	}

	wantRoles := []anthropic.MessageParamRole{
		anthropic.MessageParamRoleUser,
		anthropic.MessageParamRoleAssistant,
		anthropic.MessageParamRoleUser,
	}
	if len(out.Messages) != len(wantRoles) {
		t.Fatalf("messages = %d, want %d", len(out.Messages), len(wantRoles))
	}
	for i, want := range wantRoles {
		if out.Messages[i].Role != want {
			t.Errorf("message %d role = %q, want %q", i, out.Messages[i].Role, want)
		}
	}
	if len(out.Messages[0].Content) != 2 {
		t.Errorf("merged user blocks = %d, want 2", len(out.Messages[0].Content))
	}
	if len(out.Messages[1].Content) != 2 {
		t.Errorf("merged assistant blocks = %d, want 2", len(out.Messages[1].Content))
	}
}

func TestConvertMessagesToolResultCorrelation(t *testing.T) {
	messages := []types.ChatCompletionMessage{
		{Role: types.RoleUser, Content: types.ContentText("what's the weather?")},
		{
			Role: types.RoleAssistant,
			ToolCalls: []types.ToolCall{{
				ID:       "call_1",
				Type:     "function",
				Function: types.FunctionCall{Name: "get_weather", Arguments: `{"location":"Berlin"}`},
			}},
		},
		{Role: types.RoleTool, ToolCallID: "call_1", Content: types.ContentText("sunny")},
	}

	out, err := convertMessages(messages, nil, false)
	if err != nil {
		t.Fatalf("convertMessages failed: %v", err)
	}

	last := out.Messages[len(out.Messages)-1]
	if last.Role != anthropic.MessageParamRoleUser {
		t.Errorf("tool result role = %q, want user", last.Role)
	}
	if last.Content[0].OfToolResult == nil {
		t.Fatal("expected tool_result block")
	}
	if last.Content[0].OfToolResult.ToolUseID != "call_1" {
		t.Errorf("tool_use_id = %q", last.Content[0].OfToolResult.ToolUseID)
	}
}

func TestConvertMessagesUnmatchedToolResult(t *testing.T) {
	messages := []types.ChatCompletionMessage{
		{Role: types.RoleUser, Content: types.ContentText("hi")},
		{Role: types.RoleTool, ToolCallID: "call_unknown", Content: types.ContentText("result")},
	}

	_, err := convertMessages(messages, nil, false)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("got %v, want ValidationError", err)
	}
}

func TestConvertMessagesLeadingAssistantGetsPlaceholder(t *testing.T) {
	messages := []types.ChatCompletionMessage{
		{Role: types.RoleAssistant, Content: types.ContentText("continuing from before")},
		{Role: types.RoleUser, Content: types.ContentText("go on")},
	}

	out, err := convertMessages(messages, nil, false)
	if err != nil {
		t.Fatalf("convertMessages failed: %v", err)
	}

	if out.Messages[0].Role != anthropic.MessageParamRoleUser {
		t.Fatalf("first role = %q, want user placeholder", out.Messages[0].Role)
	}
	if out.Messages[0].Content[0].OfText.Text != "." {
		t.Errorf("placeholder text = %q", out.Messages[0].Content[0].OfText.Text)
	}
}

func TestConvertMessagesTrailingAssistantWhitespaceTrimmed(t *testing.T) {
	messages := []types.ChatCompletionMessage{
		{Role: types.RoleUser, Content: types.ContentText("complete this")},
		{Role: types.RoleAssistant, Content: types.ContentText("The answer is \n\t ")},
	}

	out, err := convertMessages(messages, nil, false)
	if err != nil {
		t.Fatalf("convertMessages failed: %v", err)
	}

	last := out.Messages[len(out.Messages)-1]
	if got := last.Content[0].OfText.Text; got != "The answer is" {
		t.Errorf("trailing whitespace not trimmed: %q", got)
	}
}

func TestFromMessageContentParts(t *testing.T) {
	content := types.ContentParts(
		types.ContentPart{Type: types.ContentPartTypeText, Text: "look at this"},
		types.ContentPart{
			Type:     types.ContentPartTypeImageURL,
			ImageURL: &types.ImageURLPart{URL: "data:image/png;base64,aGVsbG8="},
		},
		types.ContentPart{
			Type:     types.ContentPartTypeImageURL,
			ImageURL: &types.ImageURLPart{URL: "https://example.com/cat.png"},
		},
	)

	blocks, err := fromMessageContent(content)
	if err != nil {
		t.Fatalf("fromMessageContent failed: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(blocks))
	}
	if blocks[0].OfText == nil {
		t.Error("expected text block first")
	}
	if blocks[1].OfImage == nil || blocks[1].OfImage.Source.OfBase64 == nil {
		t.Error("expected base64 image block")
	}
	if blocks[2].OfImage == nil || blocks[2].OfImage.Source.OfURL == nil {
		t.Error("expected URL image block")
	}
}

func TestFromMessageContentRejectsBadImage(t *testing.T) {
	tests := []string{
		"ftp://example.com/cat.png",
		"data:image/png;base64",          // no comma
		"data:image/png;base64,not$b64!", // invalid base64
	}
	for _, url := range tests {
		content := types.ContentParts(types.ContentPart{
			Type:     types.ContentPartTypeImageURL,
			ImageURL: &types.ImageURLPart{URL: url},
		})
		if _, err := fromMessageContent(content); err == nil {
			t.Errorf("expected error for %q", url)
		}
	}
}
