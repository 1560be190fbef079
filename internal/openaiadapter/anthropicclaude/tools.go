package anthropicclaude

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"

	"github.com/claudewire/claudewire/internal/openaiadapter/types"
)

// fromChatCompletionTools transforms the OpenAI tools array to Anthropic
// format. A declaration already carrying the Anthropic shape (top-level name
// and input_schema, no "function" wrapper) is passed through unchanged, so
// converting twice yields the same result.
func fromChatCompletionTools(tools []types.ChatCompletionTool) ([]anthropic.ToolUnionParam, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	anthropicTools := make([]anthropic.ToolUnionParam, 0, len(tools))
	for i, tool := range tools {
		switch {
		case tool.Function != nil:
			if tool.Type != "" && tool.Type != "function" {
				return nil, &ToolSchemaError{Tool: tool.Function.Name, Reason: fmt.Sprintf("unsupported tool type %q", tool.Type)}
			}
			param, err := fromFunctionDefinition(*tool.Function)
			if err != nil {
				return nil, err
			}
			anthropicTools = append(anthropicTools, anthropic.ToolUnionParam{OfTool: &param})

		case tool.Name != "":
			param := anthropic.ToolParam{Name: tool.Name}
			if tool.Description != "" {
				param.Description = anthropic.String(tool.Description)
			}
			param.InputSchema = splitInputSchema(tool.InputSchema)
			anthropicTools = append(anthropicTools, anthropic.ToolUnionParam{OfTool: &param})

		default:
			return nil, &ToolSchemaError{Tool: fmt.Sprintf("#%d", i), Reason: "tool declares neither a function nor a name"}
		}
	}

	return anthropicTools, nil
}

// fromFunctionDefinition maps one function declaration to an Anthropic tool.
func fromFunctionDefinition(fn types.FunctionDefinition) (anthropic.ToolParam, error) {
	if fn.Name == "" {
		return anthropic.ToolParam{}, &ToolSchemaError{Reason: "function tool missing name"}
	}

	param := anthropic.ToolParam{Name: fn.Name}
	if fn.Description != "" {
		param.Description = anthropic.String(fn.Description)
	}
	param.InputSchema = splitInputSchema(fn.Parameters)
	return param, nil
}

// splitInputSchema maps a flat JSON Schema object onto Anthropic's
// input_schema shape, which lifts properties/required into dedicated fields
// and keeps everything else (e.g. additionalProperties) in ExtraFields.
func splitInputSchema(schema map[string]any) anthropic.ToolInputSchemaParam {
	var out anthropic.ToolInputSchemaParam
	if schema == nil {
		return out
	}

	if props, ok := schema["properties"]; ok {
		out.Properties = props
	}
	if req, ok := schema["required"].([]any); ok {
		var required []string
		for _, r := range req {
			if s, ok := r.(string); ok {
				required = append(required, s)
			}
		}
		out.Required = required
	}

	var extraFields map[string]any
	for key, value := range schema {
		if key != "type" && key != "properties" && key != "required" {
			if extraFields == nil {
				extraFields = make(map[string]any)
			}
			extraFields[key] = value
		}
	}
	out.ExtraFields = extraFields
	return out
}

// fromToolChoiceOption converts OpenAI tool_choice to Anthropic form.
func fromToolChoiceOption(toolChoice *types.ToolChoice) (anthropic.ToolChoiceUnionParam, error) {
	if toolChoice == nil {
		// OpenAI defaults to auto when tools are provided but no choice is specified.
		return anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}, nil
	}

	switch toolChoice.Mode {
	case types.ToolChoiceModeNone:
		return anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}, nil
	case types.ToolChoiceModeAuto, "":
		return anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}, nil
	case types.ToolChoiceModeRequired:
		return anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}, nil
	case types.ToolChoiceModeFunction:
		if toolChoice.Function == nil || toolChoice.Function.Name == "" {
			return anthropic.ToolChoiceUnionParam{}, &ValidationError{Reason: "named tool choice missing function name"}
		}
		return anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: toolChoice.Function.Name},
		}, nil
	default:
		return anthropic.ToolChoiceUnionParam{}, &ValidationError{Reason: fmt.Sprintf("unsupported tool_choice %q", toolChoice.Mode)}
	}
}

// toolUseBlockFromCall converts a realized tool call from conversation
// history into a tool_use block, parsing the JSON arguments string back into
// a structured input object.
func toolUseBlockFromCall(call types.ToolCall) (anthropic.ContentBlockParamUnion, error) {
	if call.ID == "" {
		return anthropic.ContentBlockParamUnion{}, &ValidationError{Reason: "tool call missing id"}
	}
	name := call.Function.Name
	if name == "" {
		return anthropic.ContentBlockParamUnion{}, &ValidationError{Reason: fmt.Sprintf("tool call %s missing function name", call.ID)}
	}

	input := map[string]any{}
	if args := call.Function.Arguments; args != "" {
		if err := json.Unmarshal([]byte(args), &input); err != nil {
			return anthropic.ContentBlockParamUnion{}, &ToolSchemaError{
				Tool:   name,
				Reason: fmt.Sprintf("tool call %s arguments are not a JSON object: %v", call.ID, err),
			}
		}
	}

	return anthropic.ContentBlockParamUnion{OfToolUse: &anthropic.ToolUseBlockParam{
		ID:    call.ID,
		Type:  "tool_use",
		Name:  name,
		Input: input,
	}}, nil
}

// newToolCallID generates an OpenAI-style tool call ID (format: call_<8-char-uuid>).
func newToolCallID() string {
	return fmt.Sprintf("call_%s", uuid.New().String()[:8])
}
