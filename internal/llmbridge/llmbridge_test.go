package llmbridge

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightline-health/intake-voice-agent/internal/intake"
)

func sampleNode() intake.Node {
	return intake.Node{
		ID:     "confirm_first_name",
		Prompt: "Is that correct?",
		Functions: []intake.FunctionSchema{{
			Name:        "confirm_first_name",
			Description: "Record the confirmation answer.",
			Params: []intake.Param{
				{Name: "confirmed", Type: intake.ParamBoolean, Description: "True if correct.", Required: true},
				{Name: "correction", Type: intake.ParamString},
			},
		}},
	}
}

func TestToolsRendersJSONSchema(t *testing.T) {
	tools := Tools(sampleNode())
	require.Len(t, tools, 1)

	tool := tools[0]
	assert.Equal(t, openai.ToolTypeFunction, tool.Type)
	assert.Equal(t, "confirm_first_name", tool.Function.Name)

	schema, ok := tool.Function.Parameters.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", schema["type"])

	props := schema["properties"].(map[string]any)
	confirmed := props["confirmed"].(map[string]any)
	assert.Equal(t, "boolean", confirmed["type"])
	assert.Equal(t, "True if correct.", confirmed["description"])

	assert.Equal(t, []string{"confirmed"}, schema["required"])
}

func TestToolsOmitsRequiredWhenAllOptional(t *testing.T) {
	node := intake.Node{
		Functions: []intake.FunctionSchema{{
			Name:   "restart_address_collection",
			Params: nil,
		}},
	}
	tools := Tools(node)
	require.Len(t, tools, 1)
	schema := tools[0].Function.Parameters.(map[string]any)
	_, hasRequired := schema["required"]
	assert.False(t, hasRequired)
}

func TestMessagesCarryNodePrompt(t *testing.T) {
	msgs := Messages(sampleNode())
	require.Len(t, msgs, 1)
	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Equal(t, "Is that correct?", msgs[0].Content)
}

func TestParseToolCall(t *testing.T) {
	call, err := ParseToolCall(openai.ToolCall{
		Type: openai.ToolTypeFunction,
		Function: openai.FunctionCall{
			Name:      "confirm_first_name",
			Arguments: `{"confirmed": true, "correction": "John"}`,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "confirm_first_name", call.Name)

	confirmed, ok := call.Arguments.Bool("confirmed")
	require.True(t, ok)
	assert.True(t, confirmed)
	correction, ok := call.Arguments.String("correction")
	require.True(t, ok)
	assert.Equal(t, "John", correction)
}

func TestParseToolCallEmptyArguments(t *testing.T) {
	call, err := ParseToolCall(openai.ToolCall{
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: "skip_email"},
	})
	require.NoError(t, err)
	assert.Equal(t, "skip_email", call.Name)
	assert.Empty(t, call.Arguments)
}

func TestParseToolCallRejectsMalformedJSON(t *testing.T) {
	_, err := ParseToolCall(openai.ToolCall{
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: "confirm_first_name", Arguments: "{not json"},
	})
	assert.Error(t, err)
}
