// Package models defines the chat action types exchanged with the host application.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Section is one of the fixed navigation destinations of the Philview UI.
type Section string

const (
	SectionDashboard    Section = "dashboard"
	SectionProperties   Section = "properties"
	SectionAppointments Section = "appointments"
	SectionBalance      Section = "balance"
	SectionInquiries    Section = "inquiries"
	SectionClients      Section = "clients"
	SectionEvents       Section = "events"
)

// Sections lists every valid navigation target in a stable order.
var Sections = []Section{
	SectionDashboard,
	SectionProperties,
	SectionAppointments,
	SectionBalance,
	SectionInquiries,
	SectionClients,
	SectionEvents,
}

// Valid reports whether s is a member of the enumerated section set.
func (s Section) Valid() bool {
	for _, known := range Sections {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSection converts raw text into a Section, rejecting unknown targets.
func ParseSection(raw string) (Section, error) {
	s := Section(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSection, raw)
	}
	return s, nil
}

// SectionNames returns the section set as plain strings, e.g. for tool enums.
func SectionNames() []string {
	names := make([]string, len(Sections))
	for i, s := range Sections {
		names[i] = string(s)
	}
	return names
}

// ActionType discriminates the Action union on the wire.
type ActionType string

const (
	// ActionTypeNavigate moves the UI to a section, optionally with a payload.
	ActionTypeNavigate ActionType = "navigate"
	// ActionTypeLogout signs the current user out.
	ActionTypeLogout ActionType = "logout"
)

// Action is a structured instruction emitted by the assistant to the host application.
// The set of implementations is closed: Navigate and Logout.
type Action interface {
	Type() ActionType
	isAction()
}

// Navigate moves the UI to Target. Payload is only meaningful for the appointments section.
type Navigate struct {
	Target  Section
	Payload *AppointmentPayload
}

// Type implements Action.
func (Navigate) Type() ActionType { return ActionTypeNavigate }
func (Navigate) isAction()        {}

// Logout signs the current user out.
type Logout struct{}

// Type implements Action.
func (Logout) Type() ActionType { return ActionTypeLogout }
func (Logout) isAction()        {}

// CancelHints narrows down which pending appointment a cancel payload refers to.
type CancelHints struct {
	PropertyName string `json:"propertyName,omitempty"`
	Date         string `json:"date,omitempty"`
	Time         string `json:"time,omitempty"`
}

// AppointmentPayload is the structured payload carried by Navigate(appointments).
type AppointmentPayload struct {
	PropertyID string       `json:"propertyId,omitempty"`
	Date       string       `json:"date,omitempty"`
	Time       string       `json:"time,omitempty"`
	AutoSubmit bool         `json:"autoSubmit"`
	Nonce      string       `json:"nonce,omitempty"`
	Cancel     *CancelHints `json:"cancel,omitempty"`
}

// Mutating reports whether applying the payload changes stored state.
func (p *AppointmentPayload) Mutating() bool {
	return p != nil && (p.AutoSubmit || p.Cancel != nil)
}

// DecodeAppointmentPayload strictly decodes a payload, rejecting unknown fields and trailing data.
func DecodeAppointmentPayload(data []byte) (*AppointmentPayload, error) {
	var p AppointmentPayload
	if err := DecodeStrict(data, &p); err != nil {
		return nil, fmt.Errorf("invalid appointment payload: %w", err)
	}
	return &p, nil
}

// ValidateAction checks the invariants of an Action regardless of where it came from.
func ValidateAction(a Action) error {
	switch act := a.(type) {
	case Navigate:
		if !act.Target.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownSection, act.Target)
		}
		if act.Payload != nil && act.Target != SectionAppointments {
			return ErrPayloadNotAllowed
		}
		return nil
	case Logout:
		return nil
	case nil:
		return fmt.Errorf("%w: nil action", ErrUnknownActionType)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownActionType, a)
	}
}

// actionWire is the JSON representation of an Action.
type actionWire struct {
	Type    ActionType      `json:"type"`
	Target  Section         `json:"target,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MarshalAction encodes an Action as {"type":...,"target":...,"payload":...}.
func MarshalAction(a Action) ([]byte, error) {
	if err := ValidateAction(a); err != nil {
		return nil, err
	}
	wire := actionWire{Type: a.Type()}
	if nav, ok := a.(Navigate); ok {
		wire.Target = nav.Target
		if nav.Payload != nil {
			raw, err := json.Marshal(nav.Payload)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal payload: %w", err)
			}
			wire.Payload = raw
		}
	}
	return json.Marshal(wire)
}

// UnmarshalAction decodes and validates an Action. Unknown types, sections and fields are rejected.
func UnmarshalAction(data []byte) (Action, error) {
	var wire actionWire
	if err := DecodeStrict(data, &wire); err != nil {
		return nil, fmt.Errorf("invalid action: %w", err)
	}

	switch wire.Type {
	case ActionTypeLogout:
		if wire.Target != "" || len(wire.Payload) > 0 {
			return nil, fmt.Errorf("invalid action: logout takes no target or payload")
		}
		return Logout{}, nil
	case ActionTypeNavigate:
		target, err := ParseSection(string(wire.Target))
		if err != nil {
			return nil, err
		}
		nav := Navigate{Target: target}
		if len(wire.Payload) > 0 && !bytes.Equal(wire.Payload, []byte("null")) {
			payload, err := DecodeAppointmentPayload(wire.Payload)
			if err != nil {
				return nil, err
			}
			nav.Payload = payload
		}
		if err := ValidateAction(nav); err != nil {
			return nil, err
		}
		return nav, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionType, wire.Type)
	}
}

// ActionEnvelope lets an Action be embedded in JSON documents.
type ActionEnvelope struct {
	Action Action
}

// MarshalJSON implements json.Marshaler.
func (e ActionEnvelope) MarshalJSON() ([]byte, error) {
	return MarshalAction(e.Action)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *ActionEnvelope) UnmarshalJSON(data []byte) error {
	a, err := UnmarshalAction(data)
	if err != nil {
		return err
	}
	e.Action = a
	return nil
}

// Wrap returns an envelope for a, or nil when there is no action.
func Wrap(a Action) *ActionEnvelope {
	if a == nil {
		return nil
	}
	return &ActionEnvelope{Action: a}
}

// DecodeStrict decodes a single JSON value into v, rejecting unknown fields and trailing data.
func DecodeStrict(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected trailing data")
	}
	return nil
}
