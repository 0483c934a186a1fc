// Package llmbridge translates between dialogue nodes and the OpenAI
// function-calling wire format: node functions become tool definitions, and
// inbound tool calls become engine function calls.
package llmbridge

import (
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/brightline-health/intake-voice-agent/internal/intake"
)

// Tools renders the node's functions as OpenAI tool definitions.
func Tools(node intake.Node) []openai.Tool {
	tools := make([]openai.Tool, 0, len(node.Functions))
	for _, fn := range node.Functions {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionDefinition{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  parameterSchema(fn.Params),
			},
		})
	}
	return tools
}

// parameterSchema builds the JSON-schema object for one function.
func parameterSchema(params []intake.Param) map[string]any {
	properties := make(map[string]any, len(params))
	required := make([]string, 0, len(params))
	for _, p := range params {
		prop := map[string]any{"type": string(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Messages builds the chat context for one node activation: the node prompt
// rides as the system message so the model speaks it and then calls one of
// the node's functions.
func Messages(node intake.Node) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: node.Prompt,
	}}
}

// ParseToolCall decodes one model tool call into an engine function call.
func ParseToolCall(tc openai.ToolCall) (intake.FunctionCall, error) {
	if tc.Type != openai.ToolTypeFunction {
		return intake.FunctionCall{}, fmt.Errorf("llmbridge: unsupported tool call type %q", tc.Type)
	}
	call := intake.FunctionCall{
		Name:      tc.Function.Name,
		Arguments: intake.Args{},
	}
	if tc.Function.Arguments == "" {
		return call, nil
	}
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &call.Arguments); err != nil {
		return intake.FunctionCall{}, fmt.Errorf("llmbridge: decode arguments for %s: %w", tc.Function.Name, err)
	}
	return call, nil
}
