// Package models defines pending multi-step plans awaiting user confirmation.
package models

import (
	"fmt"
	"strings"
)

// PlanKind discriminates the Plan union.
type PlanKind string

const (
	// PlanKindScheduleAppointment books a viewing once confirmed.
	PlanKindScheduleAppointment PlanKind = "appointment"
	// PlanKindCancelAppointment cancels a pending appointment once confirmed.
	PlanKindCancelAppointment PlanKind = "cancel_appointment"
)

// ConfirmationPrompt ends every plan description.
const ConfirmationPrompt = `Type "yes" to proceed or "no" to cancel.`

// Plan is a proposed multi-step action awaiting explicit confirmation.
// The set of implementations is closed: ScheduleAppointment and CancelAppointment.
type Plan interface {
	Kind() PlanKind
	Describe() string
	isPlan()
}

// ScheduleAppointment proposes opening the appointments page and submitting a booking.
type ScheduleAppointment struct {
	PropertyID string
	Date       string
	Time       string
}

// Kind implements Plan.
func (ScheduleAppointment) Kind() PlanKind { return PlanKindScheduleAppointment }
func (ScheduleAppointment) isPlan()        {}

// Describe lists the steps the assistant will take, ending with a yes/no prompt.
func (p ScheduleAppointment) Describe() string {
	lines := []string{
		"Plan:",
		"1) Open Appointments page",
		"2) Fill property, date, and time",
		"3) Submit after your confirmation",
	}
	if details := joinDetails("property", p.PropertyID, "date", p.Date, "time", p.Time); details != "" {
		lines = append(lines, "Details: "+details)
	}
	lines = append(lines, ConfirmationPrompt)
	return strings.Join(lines, "\n")
}

// CancelAppointment proposes removing a pending appointment that matches the hints.
type CancelAppointment struct {
	PropertyName string
	Date         string
	Time         string
}

// Kind implements Plan.
func (CancelAppointment) Kind() PlanKind { return PlanKindCancelAppointment }
func (CancelAppointment) isPlan()        {}

// Describe lists the steps the assistant will take, ending with a yes/no prompt.
func (p CancelAppointment) Describe() string {
	lines := []string{
		"Plan:",
		"1) Open Appointments page",
		"2) Find a pending appointment (by property/date/time if given)",
		"3) Remove it after your confirmation",
	}
	if details := joinDetails("property", p.PropertyName, "date", p.Date, "time", p.Time); details != "" {
		lines = append(lines, "Details: "+details)
	}
	lines = append(lines, ConfirmationPrompt)
	return strings.Join(lines, "\n")
}

func joinDetails(kv ...string) string {
	var parts []string
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			parts = append(parts, kv[i]+" "+kv[i+1])
		}
	}
	return strings.Join(parts, ", ")
}

// PlanView is the JSON representation of a pending plan.
type PlanView struct {
	Kind         PlanKind `json:"kind"`
	PropertyID   string   `json:"propertyId,omitempty"`
	PropertyName string   `json:"propertyName,omitempty"`
	Date         string   `json:"date,omitempty"`
	Time         string   `json:"time,omitempty"`
	Description  string   `json:"description"`
}

// ViewPlan converts a Plan into its JSON view. A nil plan yields nil.
func ViewPlan(p Plan) *PlanView {
	switch plan := p.(type) {
	case ScheduleAppointment:
		return &PlanView{Kind: plan.Kind(), PropertyID: plan.PropertyID, Date: plan.Date, Time: plan.Time, Description: plan.Describe()}
	case CancelAppointment:
		return &PlanView{Kind: plan.Kind(), PropertyName: plan.PropertyName, Date: plan.Date, Time: plan.Time, Description: plan.Describe()}
	default:
		return nil
	}
}

// Plan converts the view back into a Plan; the description is ignored.
func (v PlanView) Plan() (Plan, error) {
	switch v.Kind {
	case PlanKindScheduleAppointment:
		return ScheduleAppointment{PropertyID: v.PropertyID, Date: v.Date, Time: v.Time}, nil
	case PlanKindCancelAppointment:
		return CancelAppointment{PropertyName: v.PropertyName, Date: v.Date, Time: v.Time}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlanKind, v.Kind)
	}
}
