package assistant

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/philview/philview/internal/genai"
	"github.com/philview/philview/internal/models"
)

func newTestSession(nav Navigator, opts ...SessionOption) *Session {
	d := NewDispatcher(nav, WithNonceSource(counterNonces()))
	return NewSession("s1", NewClassifier(), d, opts...)
}

func mustHandle(t *testing.T, s *Session, text string) Turn {
	t.Helper()
	turn, err := s.HandleMessage(context.Background(), text)
	if err != nil {
		t.Fatalf("HandleMessage(%q) failed: %v", text, err)
	}
	return turn
}

func lastText(turn Turn) string {
	if len(turn.Messages) == 0 {
		return ""
	}
	return turn.Messages[len(turn.Messages)-1].Text
}

func TestSession_Greeting(t *testing.T) {
	s := newTestSession(nil)
	state := s.Snapshot()
	if len(state.Messages) != 1 || state.Messages[0].Text != GreetingText || state.Messages[0].Origin != models.OriginAssistant {
		t.Fatalf("expected greeting as first message, got %#v", state.Messages)
	}
	if s.State() != StateIdle {
		t.Errorf("expected idle, got %s", s.State())
	}
}

func TestSession_ConfirmationRoundTrip(t *testing.T) {
	nav := &recordingNavigator{}
	s := newTestSession(nav)

	turn := mustHandle(t, s, "I want to schedule an appointment")
	if s.State() != StateAwaitingConfirmation {
		t.Fatalf("expected awaiting confirmation, got %s", s.State())
	}
	if !strings.HasSuffix(lastText(turn), models.ConfirmationPrompt) {
		t.Errorf("plan description should end with the yes/no prompt: %q", lastText(turn))
	}
	if len(nav.recorded()) != 0 {
		t.Fatalf("nothing may be dispatched before confirmation")
	}

	turn = mustHandle(t, s, "yes go ahead")
	if s.State() != StateIdle {
		t.Errorf("expected idle after confirmation, got %s", s.State())
	}
	calls := nav.recorded()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one dispatch, got %d", len(calls))
	}
	got := calls[0]
	if got.target != models.SectionAppointments || got.payload == nil {
		t.Fatalf("expected navigate(appointments) with payload, got %#v", got)
	}
	if !got.payload.AutoSubmit || got.payload.Nonce == "" || got.payload.Cancel != nil {
		t.Errorf("unexpected payload: %#v", got.payload)
	}
	if len(turn.Actions) != 1 {
		t.Fatalf("expected the dispatched action in the turn, got %d", len(turn.Actions))
	}
	if lastText(turn) != ExecuteBookingText {
		t.Errorf("expected execute message, got %q", lastText(turn))
	}
}

func TestSession_Rejection(t *testing.T) {
	nav := &recordingNavigator{}
	s := newTestSession(nav)

	mustHandle(t, s, "I want to schedule an appointment")
	before := len(s.Snapshot().Messages)
	turn := mustHandle(t, s, "no, cancel that")

	if len(nav.recorded()) != 0 {
		t.Errorf("rejection must not dispatch, got %d calls", len(nav.recorded()))
	}
	if s.State() != StateIdle {
		t.Errorf("expected idle after rejection, got %s", s.State())
	}
	if lastText(turn) != RejectedText {
		t.Errorf("expected acknowledgment, got %q", lastText(turn))
	}
	if after := len(s.Snapshot().Messages); after != before+2 {
		t.Errorf("expected user message and acknowledgment appended, got %d new", after-before)
	}
}

func TestSession_NegativeNeverReclassified(t *testing.T) {
	nav := &recordingNavigator{}
	s := newTestSession(nav)

	mustHandle(t, s, "I want to schedule an appointment")
	// Contains "cancel" and "appointment", which would otherwise be a new plan.
	mustHandle(t, s, "cancel the appointment")
	if s.State() != StateIdle {
		t.Errorf("a negative reply must reject, not create a new plan; state %s", s.State())
	}
}

func TestSession_SinglePendingPlan(t *testing.T) {
	nav := &recordingNavigator{}
	s := newTestSession(nav, WithCatalog(testCatalog))

	mustHandle(t, s, "schedule an appointment at Skyline Residences")
	mustHandle(t, s, "schedule an appointment at Garden Villas on 2025-04-02")

	pending := s.Snapshot().PendingPlan
	want := models.ScheduleAppointment{PropertyID: "2", Date: "2025-04-02"}
	if pending != want {
		t.Fatalf("expected only the second plan pending, got %#v", pending)
	}

	mustHandle(t, s, "yes")
	calls := nav.recorded()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one dispatch, got %d", len(calls))
	}
	if calls[0].payload.PropertyID != "2" || calls[0].payload.Date != "2025-04-02" {
		t.Errorf("expected the second plan to execute, got %#v", calls[0].payload)
	}
}

func TestSession_AmbiguousReplyReprompts(t *testing.T) {
	nav := &recordingNavigator{}
	model := &mockModel{resp: &genai.ToolCallResponse{ToolCalls: []genai.ToolCall{toolCall(ToolNavigate, `{"target":"balance"}`)}}}
	d := NewDispatcher(nav, WithNonceSource(counterNonces()))
	s := NewSession("s1", NewClassifier(WithModel(model)), d)

	mustHandle(t, s, "I want to schedule an appointment")
	turn := mustHandle(t, s, "open my balance")

	if s.State() != StateAwaitingConfirmation {
		t.Fatalf("ambiguous reply must keep the plan, got %s", s.State())
	}
	if !strings.HasPrefix(lastText(turn), RepromptText) || !strings.HasSuffix(lastText(turn), models.ConfirmationPrompt) {
		t.Errorf("expected re-prompt with plan description, got %q", lastText(turn))
	}
	if model.callCount() != 0 {
		t.Errorf("model must not be called while a plan is pending, got %d calls", model.callCount())
	}
	if len(nav.recorded()) != 0 {
		t.Errorf("ambiguous reply must not dispatch")
	}

	mustHandle(t, s, "confirm")
	if len(nav.recorded()) != 1 {
		t.Errorf("expected the kept plan to dispatch after confirmation")
	}
}

func TestSession_CancelPlanPayload(t *testing.T) {
	nav := &recordingNavigator{}
	s := newTestSession(nav, WithCatalog(testCatalog))

	mustHandle(t, s, "please cancel my Metro Heights appointment at 15:00")
	turn := mustHandle(t, s, "yes")

	calls := nav.recorded()
	if len(calls) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(calls))
	}
	p := calls[0].payload
	if p.AutoSubmit {
		t.Errorf("cancel must not auto-submit")
	}
	if p.Cancel == nil || p.Cancel.PropertyName != "Metro Heights" || p.Cancel.Time != "15:00" {
		t.Errorf("unexpected cancel hints: %#v", p.Cancel)
	}
	if lastText(turn) != ExecuteCancelText {
		t.Errorf("expected cancel execute message, got %q", lastText(turn))
	}
}

func TestSession_DirectActions(t *testing.T) {
	nav := &recordingNavigator{}
	s := newTestSession(nav)

	turn := mustHandle(t, s, "logout and check my appointment")
	if lastText(turn) != "Signing you out." {
		t.Errorf("unexpected reply %q", lastText(turn))
	}
	turn = mustHandle(t, s, "show my appointments")
	if lastText(turn) != "Navigating to appointments." {
		t.Errorf("unexpected reply %q", lastText(turn))
	}

	calls := nav.recorded()
	if len(calls) != 2 || !calls[0].logout {
		t.Fatalf("expected logout then navigate, got %#v", calls)
	}
	p := calls[1].payload
	if p == nil || p.Nonce == "" || p.Mutating() {
		t.Errorf("bare appointment navigation must carry a non-mutating payload with a nonce, got %#v", p)
	}
}

func TestSession_PlainReply(t *testing.T) {
	nav := &recordingNavigator{}
	s := newTestSession(nav, WithUser(&models.User{ID: "u1", Role: models.RoleClient}))
	turn := mustHandle(t, s, "hello")
	if lastText(turn) != signedInHelpReply {
		t.Errorf("expected signed-in help reply, got %q", lastText(turn))
	}
	if len(turn.Actions) != 0 || len(nav.recorded()) != 0 {
		t.Errorf("plain reply must not dispatch")
	}
}

func TestSession_RejectsInvalidInput(t *testing.T) {
	s := newTestSession(nil)
	if _, err := s.HandleMessage(context.Background(), "   "); !errors.Is(err, models.ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
	long := strings.Repeat("a", models.MaxChatMessageLength+1)
	if _, err := s.HandleMessage(context.Background(), long); !errors.Is(err, models.ErrMessageTooLong) {
		t.Errorf("expected ErrMessageTooLong, got %v", err)
	}
	if n := len(s.Snapshot().Messages); n != 1 {
		t.Errorf("invalid input must not be logged, got %d messages", n)
	}
}

func TestSession_DispatchErrorIsAbsorbed(t *testing.T) {
	nav := &recordingNavigator{err: errors.New("page gone")}
	s := newTestSession(nav)
	turn := mustHandle(t, s, "open balance")
	if lastText(turn) != "Navigating to balance." {
		t.Errorf("unexpected reply %q", lastText(turn))
	}
}

func TestSession_MessageIDsMonotonic(t *testing.T) {
	s := newTestSession(nil)
	mustHandle(t, s, "I want to schedule an appointment")
	mustHandle(t, s, "yes")
	mustHandle(t, s, "hello")

	msgs := s.Snapshot().Messages
	for i, m := range msgs {
		if m.ID != strconv.Itoa(i+1) {
			t.Errorf("message %d has id %q, want %d", i, m.ID, i+1)
		}
	}
}

func TestSession_ConcurrentMessagesAreSerialized(t *testing.T) {
	nav := &recordingNavigator{}
	s := newTestSession(nav)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.HandleMessage(context.Background(), "open balance"); err != nil {
				t.Errorf("HandleMessage failed: %v", err)
			}
		}()
	}
	wg.Wait()

	msgs := s.Snapshot().Messages
	if len(msgs) != 1+2*n {
		t.Fatalf("expected %d messages, got %d", 1+2*n, len(msgs))
	}
	seen := make(map[string]bool)
	for i := 1; i < len(msgs); i += 2 {
		if msgs[i].Origin != models.OriginUser || msgs[i+1].Origin != models.OriginAssistant {
			t.Fatalf("messages interleaved at %d", i)
		}
	}
	for _, m := range msgs {
		if seen[m.ID] {
			t.Fatalf("duplicate message id %q", m.ID)
		}
		seen[m.ID] = true
	}
	if len(nav.recorded()) != n {
		t.Errorf("expected %d dispatches, got %d", n, len(nav.recorded()))
	}
}

func TestSession_View(t *testing.T) {
	s := newTestSession(nil)
	mustHandle(t, s, "cancel my appointment on 2025-05-05")
	v := s.View()
	if v.SessionID != "s1" || v.PendingPlan == nil || v.PendingPlan.Kind != models.PlanKindCancelAppointment {
		t.Fatalf("unexpected view: %#v", v)
	}
	if v.PendingPlan.Date != "2025-05-05" {
		t.Errorf("expected date in view, got %q", v.PendingPlan.Date)
	}
}
