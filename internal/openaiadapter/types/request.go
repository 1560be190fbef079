package types

import (
	"encoding/json"
	"fmt"
)

// Message roles accepted on the Chat Completions endpoint.
const (
	RoleSystem    = "system"
	RoleDeveloper = "developer"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleFunction  = "function"
)

// Reasoning effort levels accepted on the Chat Completions endpoint.
const (
	ReasoningEffortNone   = "none"
	ReasoningEffortLow    = "low"
	ReasoningEffortMedium = "medium"
	ReasoningEffortHigh   = "high"
)

// CreateChatCompletionRequest is the inbound OpenAI chat completion request.
type CreateChatCompletionRequest struct {
	Model    string                  `json:"model" validate:"required"`
	Messages []ChatCompletionMessage `json:"messages" validate:"required,min=1,dive"`

	Tools      []ChatCompletionTool `json:"tools,omitempty"`
	ToolChoice *ToolChoice          `json:"tool_choice,omitempty"`

	// Legacy function-calling fields, still emitted by older clients.
	Functions    []FunctionDefinition `json:"functions,omitempty"`
	FunctionCall *ToolChoice          `json:"function_call,omitempty"`

	ReasoningEffort *string `json:"reasoning_effort,omitempty" validate:"omitempty,oneof=none low medium high"`

	Stream        *bool          `json:"stream,omitempty"`
	StreamOptions *StreamOptions `json:"stream_options,omitempty"`

	MaxTokens           *int64 `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	MaxCompletionTokens *int64 `json:"max_completion_tokens,omitempty" validate:"omitempty,gt=0"`

	Temperature *float64       `json:"temperature,omitempty"`
	TopP        *float64       `json:"top_p,omitempty"`
	Stop        *StopSequences `json:"stop,omitempty"`
	User        string         `json:"user,omitempty"`
}

// StreamOptions controls streaming extras.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage,omitempty"`
}

// ChatCompletionMessage is a single conversation message.
type ChatCompletionMessage struct {
	Role    string         `json:"role" validate:"required,oneof=system developer user assistant tool function"`
	Content MessageContent `json:"content"`

	// Name identifies the function on legacy role=function messages.
	Name string `json:"name,omitempty"`

	// ToolCallID correlates a role=tool message with the tool call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// ToolCalls are the calls issued by an assistant message.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// FunctionCall is the legacy single-call form of ToolCalls.
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
}

// MessageContent is the "string or content-part array" union of the message
// content field, decided once during decoding. Exactly one representation is
// populated; a JSON null yields the zero value (empty text).
type MessageContent struct {
	Text  string
	Parts []ContentPart

	isParts bool
}

// ContentParts constructs array-form content.
func ContentParts(parts ...ContentPart) MessageContent {
	return MessageContent{Parts: parts, isParts: true}
}

// ContentText constructs string-form content.
func ContentText(text string) MessageContent {
	return MessageContent{Text: text}
}

// IsParts reports whether the content arrived as a content-part array.
func (c MessageContent) IsParts() bool { return c.isParts }

// IsEmpty reports whether the content carries nothing at all.
func (c MessageContent) IsEmpty() bool { return !c.isParts && c.Text == "" }

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = MessageContent{}
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var parts []ContentPart
		if err := json.Unmarshal(data, &parts); err != nil {
			return fmt.Errorf("decode content parts: %w", err)
		}
		*c = MessageContent{Parts: parts, isParts: true}
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("decode content: expected string or array: %w", err)
	}
	*c = MessageContent{Text: text}
	return nil
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.isParts {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// Content part discriminators.
const (
	ContentPartTypeText     = "text"
	ContentPartTypeImageURL = "image_url"
)

// ContentPart is one unit of array-form message content.
type ContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *ImageURLPart `json:"image_url,omitempty"`
}

// ImageURLPart carries an image by http(s) URL or data: URI.
type ImageURLPart struct {
	URL string `json:"url"`
	// Detail ("low"/"high"/"auto") has no Anthropic equivalent and is ignored.
	Detail string `json:"detail,omitempty"`
}

// ChatCompletionTool is a tool declaration. Standard OpenAI declarations use
// Type="function" with the Function field. Some clients send declarations
// already in the backend shape (name/description/input_schema at the top
// level, no type); those fields are preserved so the conversion can pass
// them through untouched.
type ChatCompletionTool struct {
	Type     string              `json:"type,omitempty"`
	Function *FunctionDefinition `json:"function,omitempty"`

	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// FunctionDefinition declares a callable function and its parameter schema.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Tool choice modes.
const (
	ToolChoiceModeNone     = "none"
	ToolChoiceModeAuto     = "auto"
	ToolChoiceModeRequired = "required"
	ToolChoiceModeFunction = "function"
)

// ToolChoice is the "string or named-function object" union for tool_choice
// (and the legacy function_call field, whose object form is the bare
// function descriptor). Mode holds the string form or "function"; Function
// holds the target for named choices.
type ToolChoice struct {
	Mode     string
	Function *ToolChoiceFunction
}

// ToolChoiceFunction names the tool a named choice forces.
type ToolChoiceFunction struct {
	Name string `json:"name"`
}

func (t *ToolChoice) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var mode string
		if err := json.Unmarshal(data, &mode); err != nil {
			return err
		}
		*t = ToolChoice{Mode: mode}
		return nil
	}

	var obj struct {
		Type     string              `json:"type"`
		Function *ToolChoiceFunction `json:"function"`
		// Legacy function_call objects carry the name at the top level.
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode tool choice: expected string or object: %w", err)
	}

	switch {
	case obj.Function != nil:
		*t = ToolChoice{Mode: ToolChoiceModeFunction, Function: obj.Function}
	case obj.Name != "":
		*t = ToolChoice{Mode: ToolChoiceModeFunction, Function: &ToolChoiceFunction{Name: obj.Name}}
	case obj.Type != "":
		*t = ToolChoice{Mode: obj.Type}
	default:
		*t = ToolChoice{Mode: ToolChoiceModeAuto}
	}
	return nil
}

func (t ToolChoice) MarshalJSON() ([]byte, error) {
	if t.Mode == ToolChoiceModeFunction && t.Function != nil {
		return json.Marshal(struct {
			Type     string              `json:"type"`
			Function *ToolChoiceFunction `json:"function"`
		}{Type: ToolChoiceModeFunction, Function: t.Function})
	}
	return json.Marshal(t.Mode)
}

// StopSequences is the "string or string array" union of the stop field,
// normalized to a list.
type StopSequences struct {
	Sequences []string
}

func (s *StopSequences) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &s.Sequences)
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("decode stop: expected string or array: %w", err)
	}
	s.Sequences = []string{single}
	return nil
}

func (s StopSequences) MarshalJSON() ([]byte, error) {
	if len(s.Sequences) == 1 {
		return json.Marshal(s.Sequences[0])
	}
	return json.Marshal(s.Sequences)
}
