package assistant

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/philview/philview/internal/models"
)

// Assistant messages emitted by the confirmation flow.
const (
	GreetingText       = "Hello! I'm Philip, your virtual assistant. How can I help you today?"
	RejectedText       = "Okay, cancelled that request."
	RepromptText       = "I still need a yes or no for the pending request."
	ExecuteBookingText = "Executing: opening Appointments and prefilling details."
	ExecuteCancelText  = "Executing: opening Appointments to cancel a pending request."
)

// State is the confirmation state of a session.
type State int

const (
	// StateIdle means no plan is pending.
	StateIdle State = iota
	// StateAwaitingConfirmation means a plan waits for yes or no.
	StateAwaitingConfirmation
)

func (s State) String() string {
	if s == StateAwaitingConfirmation {
		return "awaiting_confirmation"
	}
	return "idle"
}

// PropertyCatalog lists the properties a plan may refer to by name.
type PropertyCatalog interface {
	ListProperties(ctx context.Context) ([]models.Property, error)
}

// Turn is what one user message produced.
type Turn struct {
	Messages []models.Message
	Actions  []models.Action
}

// Session owns one conversation. Messages are processed one at a time, in submission order.
type Session struct {
	mu         sync.Mutex
	id         string
	classifier IntentClassifier
	dispatcher *Dispatcher
	catalog    PropertyCatalog
	user       *models.User
	now        func() time.Time

	pending    models.Plan
	messages   []models.Message
	lastID     int
	lastActive time.Time
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithUser sets the signed-in user. Without it the session is a guest session.
func WithUser(u *models.User) SessionOption {
	return func(s *Session) { s.user = u }
}

// WithCatalog lets plans resolve property names.
func WithCatalog(c PropertyCatalog) SessionOption {
	return func(s *Session) { s.catalog = c }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession creates a session in the idle state with the greeting as its first message.
func NewSession(id string, classifier IntentClassifier, dispatcher *Dispatcher, opts ...SessionOption) *Session {
	s := &Session{
		id:         id,
		classifier: classifier,
		dispatcher: dispatcher,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastActive = s.now()
	s.appendMessage(GreetingText, models.OriginAssistant)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// User returns the session's user, or nil for a guest.
func (s *Session) User() *models.User { return s.user }

// HandleMessage applies one user message. The only errors are input validation errors.
func (s *Session) HandleMessage(ctx context.Context, text string) (Turn, error) {
	text, err := models.NormalizeChatText(text)
	if err != nil {
		return Turn{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = s.now()
	start := len(s.messages)
	s.appendMessage(text, models.OriginUser)

	var actions []models.Action
	if s.pending != nil {
		actions = s.resolvePending(ctx, text)
	} else {
		actions = s.classify(ctx, text)
	}

	turn := Turn{Messages: append([]models.Message(nil), s.messages[start:]...), Actions: actions}
	slog.Debug("Session.HandleMessage: turn complete", "sessionID", s.id, "state", s.stateLocked(), "actionCount", len(actions))
	return turn, nil
}

// resolvePending handles a message while a plan awaits confirmation. Affirmative wins over negative.
func (s *Session) resolvePending(ctx context.Context, text string) []models.Action {
	plan := s.pending
	switch {
	case IsAffirmative(text):
		s.pending = nil
		return s.execute(ctx, plan)
	case IsNegative(text):
		s.pending = nil
		slog.Info("Session.resolvePending: plan rejected", "sessionID", s.id, "kind", plan.Kind())
		s.appendMessage(RejectedText, models.OriginAssistant)
		return nil
	}

	if next, ok := DetectPlan(text, s.properties(ctx)); ok {
		slog.Info("Session.resolvePending: plan superseded", "sessionID", s.id, "old", plan.Kind(), "new", next.Kind())
		s.propose(next)
		return nil
	}
	s.appendMessage(RepromptText+"\n"+plan.Describe(), models.OriginAssistant)
	return nil
}

func (s *Session) classify(ctx context.Context, text string) []models.Action {
	cctx := ClassifyContext{Properties: s.properties(ctx), SignedIn: s.user.SignedIn()}
	if s.user != nil {
		cctx.Role = s.user.Role
	}

	switch out := s.classifier.Classify(ctx, text, cctx).(type) {
	case NeedsConfirmation:
		s.propose(out.Plan)
		return nil
	case Direct:
		delivered, err := s.dispatcher.Dispatch(ctx, out.Action)
		if err != nil {
			slog.Error("Session.classify: dispatch failed", "sessionID", s.id, "error", err)
		}
		s.appendMessage(out.Reply, models.OriginAssistant)
		if delivered == nil {
			return nil
		}
		return []models.Action{delivered}
	case Reply:
		s.appendMessage(out.Text, models.OriginAssistant)
		return nil
	default:
		slog.Error("Session.classify: unexpected outcome", "sessionID", s.id, "outcome", out)
		s.appendMessage(emptyModelReply, models.OriginAssistant)
		return nil
	}
}

func (s *Session) propose(plan models.Plan) {
	s.pending = plan
	s.appendMessage(plan.Describe(), models.OriginAssistant)
}

func (s *Session) execute(ctx context.Context, plan models.Plan) []models.Action {
	text := ExecuteBookingText
	if plan.Kind() == models.PlanKindCancelAppointment {
		text = ExecuteCancelText
	}
	s.appendMessage(text, models.OriginAssistant)

	delivered, err := s.dispatcher.DispatchPlan(ctx, plan)
	if err != nil {
		slog.Error("Session.execute: dispatch failed", "sessionID", s.id, "kind", plan.Kind(), "error", err)
	}
	if delivered == nil {
		return nil
	}
	slog.Info("Session.execute: plan dispatched", "sessionID", s.id, "kind", plan.Kind())
	return []models.Action{delivered}
}

func (s *Session) properties(ctx context.Context) []models.Property {
	if s.catalog == nil {
		return nil
	}
	props, err := s.catalog.ListProperties(ctx)
	if err != nil {
		slog.Warn("Session.properties: catalog unavailable", "sessionID", s.id, "error", err)
		return nil
	}
	return props
}

// appendMessage adds a message with the next id. Ids are never reused within a session.
func (s *Session) appendMessage(text string, origin models.Origin) {
	s.lastID++
	s.messages = append(s.messages, models.Message{
		ID:        strconv.Itoa(s.lastID),
		Text:      text,
		Origin:    origin,
		Timestamp: s.now(),
	})
}

// State returns the current confirmation state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	if s.pending != nil {
		return StateAwaitingConfirmation
	}
	return StateIdle
}

// Snapshot returns a copy of the conversation state.
func (s *Session) Snapshot() models.ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.ConversationState{
		PendingPlan: s.pending,
		Messages:    append([]models.Message(nil), s.messages...),
	}
}

// View returns the JSON view of the conversation.
func (s *Session) View() models.ConversationView {
	state := s.Snapshot()
	return models.ConversationView{
		SessionID:   s.id,
		PendingPlan: models.ViewPlan(state.PendingPlan),
		Messages:    state.Messages,
	}
}

// LastActive returns when the session last received a message.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
