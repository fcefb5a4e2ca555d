// Package models defines conversation state owned by a single chat session.
package models

import "time"

// Origin identifies who authored a chat message.
type Origin string

const (
	// OriginUser marks a message typed by the user.
	OriginUser Origin = "user"
	// OriginAssistant marks a message produced by the assistant.
	OriginAssistant Origin = "assistant"
)

// Message is one entry of a session's append-only message log.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Origin    Origin    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationState is the state of one chat session: at most one pending plan and the
// ordered message log.
type ConversationState struct {
	PendingPlan Plan
	Messages    []Message
}

// ConversationView is the JSON representation of a ConversationState.
type ConversationView struct {
	SessionID   string    `json:"sessionId"`
	PendingPlan *PlanView `json:"pendingPlan,omitempty"`
	Messages    []Message `json:"messages"`
}

// ChatUser is the user context sent alongside a chat message.
type ChatUser struct {
	ID   string `json:"id,omitempty"`
	Role Role   `json:"role,omitempty"`
	Name string `json:"name,omitempty"`
}

// ChatRequest is the body of the stateless chat endpoint.
type ChatRequest struct {
	Message string    `json:"message"`
	User    *ChatUser `json:"user,omitempty"`
}

// ChatResult is the reply of the stateless chat endpoint.
type ChatResult struct {
	Reply  string          `json:"reply"`
	Action *ActionEnvelope `json:"action,omitempty"`
}

// SessionMessageRequest is the body posted to a chat session.
type SessionMessageRequest struct {
	Text string `json:"text"`
}

// TurnView is the result of one user message applied to a session.
type TurnView struct {
	SessionID   string            `json:"sessionId"`
	Messages    []Message         `json:"messages"`
	Actions     []*ActionEnvelope `json:"actions,omitempty"`
	PendingPlan *PlanView         `json:"pendingPlan,omitempty"`
}
