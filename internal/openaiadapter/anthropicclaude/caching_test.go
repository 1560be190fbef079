package anthropicclaude

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func userMessage(texts ...string) anthropic.MessageParam {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(texts))
	for _, text := range texts {
		blocks = append(blocks, anthropic.NewTextBlock(text))
	}
	return anthropic.MessageParam{Role: anthropic.MessageParamRoleUser, Content: blocks}
}

func assistantMessage(text string) anthropic.MessageParam {
	return anthropic.MessageParam{
		Role:    anthropic.MessageParamRoleAssistant,
		Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(text)},
	}
}

func countMarkers(params anthropic.MessageNewParams) (system, messages int) {
	for _, block := range params.System {
		if block.CacheControl.Type != "" {
			system++
		}
	}
	for _, message := range params.Messages {
		for _, block := range message.Content {
			if block.OfText != nil && block.OfText.CacheControl.Type != "" {
				messages++
			}
		}
	}
	return system, messages
}

func TestAnnotatePromptCacheMarkerPlacement(t *testing.T) {
	params := anthropic.MessageNewParams{
		System: []anthropic.TextBlockParam{{Text: "first"}, {Text: "second"}},
		Messages: []anthropic.MessageParam{
			userMessage("u1a", "u1b"),
			assistantMessage("a1"),
			userMessage("u2"),
			assistantMessage("a2"),
			userMessage("u3a", "u3b"),
		},
	}

	annotatePromptCache(&params)

	if params.System[0].CacheControl.Type != "" {
		t.Error("marker on non-final system block")
	}
	if params.System[1].CacheControl.Type == "" {
		t.Error("missing marker on final system block")
	}

	// Exactly the last block of each of the last two user messages.
	if params.Messages[4].Content[1].OfText.CacheControl.Type == "" {
		t.Error("missing marker on last block of last user message")
	}
	if params.Messages[4].Content[0].OfText.CacheControl.Type != "" {
		t.Error("marker on non-final block of last user message")
	}
	if params.Messages[2].Content[0].OfText.CacheControl.Type == "" {
		t.Error("missing marker on second-to-last user message")
	}
	if params.Messages[0].Content[1].OfText.CacheControl.Type != "" {
		t.Error("marker on third-to-last user message")
	}
	for _, i := range []int{1, 3} {
		if params.Messages[i].Content[0].OfText.CacheControl.Type != "" {
			t.Errorf("marker on assistant message %d", i)
		}
	}

	systemMarks, messageMarks := countMarkers(params)
	if systemMarks != 1 || messageMarks != 2 {
		t.Errorf("marker counts = (%d system, %d message), want (1, 2)", systemMarks, messageMarks)
	}
}

func TestAnnotatePromptCacheShortConversation(t *testing.T) {
	params := anthropic.MessageNewParams{
		Messages: []anthropic.MessageParam{userMessage("hello")},
	}

	annotatePromptCache(&params)

	systemMarks, messageMarks := countMarkers(params)
	if systemMarks != 0 {
		t.Error("system marker emitted without system blocks")
	}
	if messageMarks != 1 {
		t.Errorf("message markers = %d, want 1", messageMarks)
	}
}

func TestAnnotatePromptCacheNoMessages(t *testing.T) {
	params := anthropic.MessageNewParams{}
	annotatePromptCache(&params)

	systemMarks, messageMarks := countMarkers(params)
	if systemMarks != 0 || messageMarks != 0 {
		t.Error("markers emitted on empty request")
	}
}
