// Package models defines the directory records read and written by the appointment consumer.
package models

import "time"

// Coordinates is a map position of a property.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PropertyStatus is the availability of a listed property.
type PropertyStatus string

const (
	PropertyStatusAvailable PropertyStatus = "Available"
	PropertyStatusReserved  PropertyStatus = "Reserved"
	PropertyStatusSold      PropertyStatus = "Sold"
)

// Property is a catalog entry.
type Property struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Location    string         `json:"location"`
	Coordinates Coordinates    `json:"coordinates"`
	Price       float64        `json:"price"`
	Type        string         `json:"type"`
	Status      PropertyStatus `json:"status"`
	Description string         `json:"description"`
	Image       string         `json:"image"`
	Features    []string       `json:"features"`
}

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "Pending"
	AppointmentStatusConfirmed AppointmentStatus = "Confirmed"
	AppointmentStatusCompleted AppointmentStatus = "Completed"
	AppointmentStatusCancelled AppointmentStatus = "Cancelled"
)

// IsValidAppointmentStatus checks if the given status is supported.
func IsValidAppointmentStatus(s AppointmentStatus) bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	default:
		return false
	}
}

// AppointmentType is the purpose of an appointment.
type AppointmentType string

const (
	AppointmentTypeViewing       AppointmentType = "Viewing"
	AppointmentTypeConsultation  AppointmentType = "Consultation"
	AppointmentTypeDocumentation AppointmentType = "Documentation"
)

// DefaultAppointmentTime is used when a booking does not name a time.
const DefaultAppointmentTime = "10:00"

// DateLayout is the wire format of appointment dates.
const DateLayout = "2006-01-02"

// Appointment is a booking made by a user for a property.
type Appointment struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"`
	ClientName   string            `json:"clientName"`
	ClientEmail  string            `json:"clientEmail"`
	PropertyID   string            `json:"propertyId"`
	PropertyName string            `json:"propertyName"`
	Date         string            `json:"date"`
	Time         string            `json:"time"`
	Status       AppointmentStatus `json:"status"`
	Type         AppointmentType   `json:"type"`
	Notes        string            `json:"notes,omitempty"`
	Contact      string            `json:"contact,omitempty"`
	ResponseNote string            `json:"responseNote,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Validate checks the fields required to persist an appointment.
func (a *Appointment) Validate() error {
	if a.UserID == "" {
		return ErrMissingUserID
	}
	if a.PropertyID == "" {
		return ErrMissingPropertyID
	}
	if !IsValidAppointmentStatus(a.Status) {
		return ErrInvalidAptStatus
	}
	return nil
}

// InquiryStatus is the handling state of an inquiry.
type InquiryStatus string

const (
	InquiryStatusNew        InquiryStatus = "New"
	InquiryStatusInProgress InquiryStatus = "In Progress"
	InquiryStatusResolved   InquiryStatus = "Resolved"
)

// IsValidInquiryStatus checks if the given status is supported.
func IsValidInquiryStatus(s InquiryStatus) bool {
	switch s {
	case InquiryStatusNew, InquiryStatusInProgress, InquiryStatusResolved:
		return true
	default:
		return false
	}
}

// Inquiry is a question a client sent about a property.
type Inquiry struct {
	ID           string        `json:"id"`
	UserID       string        `json:"userId,omitempty"`
	ClientName   string        `json:"clientName"`
	ClientEmail  string        `json:"clientEmail"`
	PropertyID   string        `json:"propertyId"`
	PropertyName string        `json:"propertyName"`
	Message      string        `json:"message"`
	Date         string        `json:"date"`
	Status       InquiryStatus `json:"status"`
	Response     string        `json:"response,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Validate checks the fields required to persist an inquiry.
func (i *Inquiry) Validate() error {
	if i.ClientEmail == "" {
		return ErrEmptyInquiryClient
	}
	if i.Message == "" {
		return ErrEmptyMessage
	}
	if len(i.Message) > MaxInquiryMessageLength {
		return ErrInquiryTooLong
	}
	if !IsValidInquiryStatus(i.Status) {
		return ErrInvalidInqStatus
	}
	return nil
}

// InquiryResponseRequest is the body of an inquiry reply.
type InquiryResponseRequest struct {
	Response string        `json:"response"`
	Status   InquiryStatus `json:"status,omitempty"`
}

// InquiryRequest is the body of a new inquiry. Client fields default to the signed-in user.
type InquiryRequest struct {
	PropertyID  string `json:"propertyId"`
	Message     string `json:"message"`
	ClientName  string `json:"clientName,omitempty"`
	ClientEmail string `json:"clientEmail,omitempty"`
}
