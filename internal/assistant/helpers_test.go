package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/openai/openai-go"
	"github.com/philview/philview/internal/genai"
	"github.com/philview/philview/internal/models"
)

// mockModel implements genai.ClientInterface for testing.
type mockModel struct {
	mu       sync.Mutex
	resp     *genai.ToolCallResponse
	err      error
	block    bool
	calls    int
	lastMsgs []openai.ChatCompletionMessageParamUnion
	lastTool []openai.ChatCompletionToolParam
}

func (m *mockModel) GenerateWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam) (*genai.ToolCallResponse, error) {
	m.mu.Lock()
	m.calls++
	m.lastMsgs = messages
	m.lastTool = tools
	block := m.block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, fmt.Errorf("request aborted: %w", ctx.Err())
	}
	return m.resp, m.err
}

func (m *mockModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func toolCall(name, args string) genai.ToolCall {
	return genai.ToolCall{ID: "call_" + name, Type: "function", Function: genai.FunctionCall{Name: name, Arguments: json.RawMessage(args)}}
}

// navigation is one recorded Navigator call.
type navigation struct {
	target  models.Section
	payload *models.AppointmentPayload
	logout  bool
}

// recordingNavigator records every Navigator call.
type recordingNavigator struct {
	mu    sync.Mutex
	calls []navigation
	err   error
}

func (r *recordingNavigator) Navigate(ctx context.Context, target models.Section, payload *models.AppointmentPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, navigation{target: target, payload: payload})
	return r.err
}

func (r *recordingNavigator) Logout(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, navigation{logout: true})
	return r.err
}

func (r *recordingNavigator) recorded() []navigation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]navigation(nil), r.calls...)
}

// counterNonces returns a NonceSource yielding n1, n2, ...
func counterNonces() NonceSource {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("n%d", n)
	}
}

// staticCatalog implements PropertyCatalog.
type staticCatalog []models.Property

func (c staticCatalog) ListProperties(ctx context.Context) ([]models.Property, error) {
	return c, nil
}

var testCatalog = staticCatalog{
	{ID: "1", Name: "Skyline Residences", Status: models.PropertyStatusAvailable},
	{ID: "2", Name: "Garden Villas", Status: models.PropertyStatusAvailable},
	{ID: "3", Name: "Metro Heights", Status: models.PropertyStatusReserved},
}
