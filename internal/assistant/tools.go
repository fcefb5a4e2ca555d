package assistant

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
	"github.com/philview/philview/internal/genai"
	"github.com/philview/philview/internal/models"
)

// Tool names the model may call.
const (
	ToolNavigate = "navigate"
	ToolLogout   = "logout"
)

// ErrUnknownTool is returned for a tool call naming a tool outside the fixed set.
var ErrUnknownTool = errors.New("unknown tool")

// navigateArgs are the arguments of the navigate tool.
type navigateArgs struct {
	Target string `json:"target"`
}

// logoutArgs are the arguments of the logout tool. Confirm defaults to true.
type logoutArgs struct {
	Confirm *bool `json:"confirm,omitempty"`
}

// NavigateToolDefinition returns the OpenAI tool definition for UI navigation.
func NavigateToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        ToolNavigate,
			Description: openai.String("Navigate the Philview UI to a target section. Only use supported targets."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"target": map[string]interface{}{
						"type":        "string",
						"enum":        models.SectionNames(),
						"description": "The section to open",
					},
				},
				"required":             []string{"target"},
				"additionalProperties": false,
			},
		},
	}
}

// LogoutToolDefinition returns the OpenAI tool definition for signing out.
func LogoutToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        ToolLogout,
			Description: openai.String("Sign the current user out of the Philview UI."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"confirm": map[string]interface{}{
						"type":    "boolean",
						"default": true,
					},
				},
				"additionalProperties": false,
			},
		},
	}
}

// Tools returns the complete tool set bound to every classification call.
func Tools() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{NavigateToolDefinition(), LogoutToolDefinition()}
}

// ActionFromToolCall converts a model tool call into a validated Action.
// Unknown tools, malformed arguments and sections outside the fixed set are rejected.
func ActionFromToolCall(call genai.ToolCall) (models.Action, error) {
	args := bytes.TrimSpace(call.Function.Arguments)
	if len(args) == 0 {
		args = []byte("{}")
	}

	switch call.Function.Name {
	case ToolNavigate:
		var na navigateArgs
		if err := models.DecodeStrict(args, &na); err != nil {
			return nil, fmt.Errorf("invalid navigate arguments: %w", err)
		}
		target, err := models.ParseSection(na.Target)
		if err != nil {
			return nil, err
		}
		return models.Navigate{Target: target}, nil
	case ToolLogout:
		var la logoutArgs
		if err := models.DecodeStrict(args, &la); err != nil {
			return nil, fmt.Errorf("invalid logout arguments: %w", err)
		}
		return models.Logout{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, call.Function.Name)
	}
}
