package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp   openai.ChatCompletion
	err    error
	params openai.ChatCompletionNewParams
	calls  int
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	m.calls++
	m.params = params
	return m.resp, m.err
}

func testMessages() []openai.ChatCompletionMessageParamUnion {
	return []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("system prompt"),
		openai.UserMessage("User (client): open balance"),
	}
}

func TestGenerateWithTools_Content(t *testing.T) {
	mockResp := openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "  Hello World \n"}},
		},
	}
	svc := &mockChatService{resp: mockResp}
	client := &Client{chat: svc, model: "test-model", maxTokens: 256}

	out, err := client.GenerateWithTools(context.Background(), testMessages(), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.Content != "Hello World" {
		t.Errorf("expected trimmed content 'Hello World', got %q", out.Content)
	}
	if len(out.ToolCalls) != 0 {
		t.Errorf("expected no tool calls, got %d", len(out.ToolCalls))
	}
	if len(svc.params.Tools) != 0 {
		t.Errorf("expected no tools in request, got %d", len(svc.params.Tools))
	}
	if string(svc.params.Model) != "test-model" {
		t.Errorf("expected model test-model, got %q", svc.params.Model)
	}
}

func TestGenerateWithTools_ToolCalls(t *testing.T) {
	mockResp := openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{
				ToolCalls: []openai.ChatCompletionMessageToolCall{
					{ID: "call_1", Function: openai.ChatCompletionMessageToolCallFunction{Name: "navigate", Arguments: `{"target":"balance"}`}},
					{ID: "call_2", Function: openai.ChatCompletionMessageToolCallFunction{Name: "logout", Arguments: `{}`}},
				},
			}},
		},
	}
	svc := &mockChatService{resp: mockResp}
	client := &Client{chat: svc, model: "test-model"}

	tools := []openai.ChatCompletionToolParam{{Function: shared.FunctionDefinitionParam{Name: "navigate"}}}
	out, err := client.GenerateWithTools(context.Background(), testMessages(), tools)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(out.ToolCalls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(out.ToolCalls))
	}
	first := out.ToolCalls[0]
	if first.ID != "call_1" || first.Type != "function" || first.Function.Name != "navigate" {
		t.Errorf("unexpected first tool call: %+v", first)
	}
	if string(first.Function.Arguments) != `{"target":"balance"}` {
		t.Errorf("unexpected arguments: %s", first.Function.Arguments)
	}
	if len(svc.params.Tools) != 1 {
		t.Errorf("expected tools to be forwarded, got %d", len(svc.params.Tools))
	}
}

func TestGenerateWithTools_ServiceError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("service failure")}}
	_, err := client.GenerateWithTools(context.Background(), testMessages(), nil)
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestGenerateWithTools_NoChoices(t *testing.T) {
	mockResp := openai.ChatCompletion{Choices: []openai.ChatCompletionChoice{}}
	client := &Client{chat: &mockChatService{resp: mockResp}}
	_, err := client.GenerateWithTools(context.Background(), testMessages(), nil)
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected no choices returned error, got %v", err)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	_, err := NewClient()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithModel("gpt-test"), WithMaxTokens(64), WithTemperature(0.2))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli == nil {
		t.Fatal("expected client instance, got nil")
	}
	if cli.model != "gpt-test" || cli.maxTokens != 64 || cli.temperature != 0.2 {
		t.Errorf("options not applied: model=%q maxTokens=%d temperature=%v", cli.model, cli.maxTokens, cli.temperature)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cli.model != DefaultModel {
		t.Errorf("expected default model %q, got %q", DefaultModel, cli.model)
	}
	if cli.maxTokens != DefaultMaxTokens {
		t.Errorf("expected default max tokens %d, got %d", DefaultMaxTokens, cli.maxTokens)
	}
}
