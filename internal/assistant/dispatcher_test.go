package assistant

import (
	"context"
	"testing"

	"github.com/philview/philview/internal/models"
)

func TestDispatcher_PlanPayloads(t *testing.T) {
	nav := &recordingNavigator{}
	d := NewDispatcher(nav, WithNonceSource(counterNonces()))

	if _, err := d.DispatchPlan(context.Background(), models.ScheduleAppointment{PropertyID: "1", Date: "2025-06-01", Time: "10:30"}); err != nil {
		t.Fatalf("DispatchPlan failed: %v", err)
	}
	if _, err := d.DispatchPlan(context.Background(), models.CancelAppointment{PropertyName: "Garden Villas", Date: "2025-06-02"}); err != nil {
		t.Fatalf("DispatchPlan failed: %v", err)
	}

	calls := nav.recorded()
	if len(calls) != 2 {
		t.Fatalf("expected 2 navigations, got %d", len(calls))
	}
	schedule := calls[0].payload
	want := models.AppointmentPayload{PropertyID: "1", Date: "2025-06-01", Time: "10:30", AutoSubmit: true, Nonce: "n1"}
	if *schedule != want {
		t.Errorf("schedule payload = %#v, want %#v", *schedule, want)
	}
	cancel := calls[1].payload
	if cancel.AutoSubmit || cancel.Nonce != "n2" || cancel.Cancel == nil {
		t.Fatalf("unexpected cancel payload: %#v", cancel)
	}
	if *cancel.Cancel != (models.CancelHints{PropertyName: "Garden Villas", Date: "2025-06-02"}) {
		t.Errorf("unexpected cancel hints: %#v", cancel.Cancel)
	}
}

func TestDispatcher_DirectActions(t *testing.T) {
	nav := &recordingNavigator{}
	d := NewDispatcher(nav, WithNonceSource(counterNonces()))

	got, err := d.Dispatch(context.Background(), models.Navigate{Target: models.SectionEvents})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if got != (models.Navigate{Target: models.SectionEvents}) {
		t.Errorf("non-appointment navigation must carry no payload, got %#v", got)
	}

	// A payload supplied with a direct action never turns it into a mutation.
	got, err = d.Dispatch(context.Background(), models.Navigate{
		Target:  models.SectionAppointments,
		Payload: &models.AppointmentPayload{PropertyID: "3", AutoSubmit: true, Cancel: &models.CancelHints{}},
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	nav2 := got.(models.Navigate)
	if nav2.Payload.Mutating() || nav2.Payload.PropertyID != "3" || nav2.Payload.Nonce != "n1" {
		t.Errorf("unexpected appointment payload: %#v", nav2.Payload)
	}

	if _, err := d.Dispatch(context.Background(), models.Logout{}); err != nil {
		t.Fatalf("Dispatch logout failed: %v", err)
	}

	calls := nav.recorded()
	if len(calls) != 3 || !calls[2].logout {
		t.Fatalf("expected exactly one callback per dispatch, got %#v", calls)
	}
}

func TestDispatcher_FreshNoncePerDispatch(t *testing.T) {
	nav := &recordingNavigator{}
	d := NewDispatcher(nav)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		if _, err := d.DispatchPlan(context.Background(), models.ScheduleAppointment{}); err != nil {
			t.Fatalf("DispatchPlan failed: %v", err)
		}
	}
	for _, c := range nav.recorded() {
		if c.payload.Nonce == "" || seen[c.payload.Nonce] {
			t.Fatalf("nonce %q empty or reused", c.payload.Nonce)
		}
		seen[c.payload.Nonce] = true
	}
}

func TestDispatcher_NilNavigator(t *testing.T) {
	d := NewDispatcher(nil)
	if _, err := d.Dispatch(context.Background(), models.Logout{}); err != nil {
		t.Errorf("expected nil navigator to discard actions, got %v", err)
	}
}
