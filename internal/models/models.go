// Package models defines the core data structures for the Philview assistant.
//
// It includes the chat action and plan unions exchanged between the assistant and the host
// application, the directory records the appointment consumer works on, and the shared API
// response envelope.
package models

import (
	"errors"
	"strings"
)

// Validation constants for input validation
const (
	// MaxChatMessageLength defines the maximum allowed length of a single chat message.
	MaxChatMessageLength = 2000
	// MaxInquiryMessageLength defines the maximum allowed length of an inquiry body.
	MaxInquiryMessageLength = 4096
)

// Error variables for better error handling and testability
var (
	ErrEmptyMessage       = errors.New("message cannot be empty")
	ErrMessageTooLong     = errors.New("message exceeds maximum length")
	ErrUnknownSection     = errors.New("unknown section")
	ErrUnknownActionType  = errors.New("unknown action type")
	ErrPayloadNotAllowed  = errors.New("payload is only allowed when navigating to appointments")
	ErrUnknownPlanKind    = errors.New("unknown plan kind")
	ErrMissingUserID      = errors.New("user id is required")
	ErrMissingPropertyID  = errors.New("property id is required")
	ErrInquiryTooLong     = errors.New("inquiry message exceeds maximum length")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidAptStatus   = errors.New("invalid appointment status")
	ErrInvalidInqStatus   = errors.New("invalid inquiry status")
	ErrEmptyInquiryClient = errors.New("inquiry client email is required")
)

// NormalizeChatText trims the message and validates it for classification.
func NormalizeChatText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyMessage
	}
	if len(trimmed) > MaxChatMessageLength {
		return "", ErrMessageTooLong
	}
	return trimmed, nil
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}
