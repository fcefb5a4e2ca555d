package appointments

import (
	"context"
	"testing"

	"github.com/philview/philview/internal/models"
	"github.com/philview/philview/internal/store"
)

func TestFindCancelTarget(t *testing.T) {
	apts := []models.Appointment{
		{ID: "a1", PropertyName: "Skyline Residences", Date: "2025-04-01", Time: "10:00", Status: models.AppointmentStatusCancelled},
		{ID: "a2", PropertyName: "Skyline Residences", Date: "2025-04-02", Time: "10:00", Status: models.AppointmentStatusPending},
		{ID: "a3", PropertyName: "Garden Villas", Date: "2025-04-03", Time: "14:00", Status: models.AppointmentStatusPending},
		{ID: "a4", PropertyName: "Metro Heights", Date: "2025-04-03", Time: "16:00", Status: models.AppointmentStatusPending},
		{ID: "a5", PropertyName: "Garden Villas", Date: "2025-04-05", Time: "09:00", Status: models.AppointmentStatusConfirmed},
	}

	tests := []struct {
		name   string
		hints  models.CancelHints
		wantID string
	}{
		{"no hints picks first pending", models.CancelHints{}, "a2"},
		{"containment ignores case", models.CancelHints{PropertyName: "GARDEN"}, "a3"},
		{"date narrows", models.CancelHints{Date: "2025-04-03"}, "a3"},
		{"date and time", models.CancelHints{Date: "2025-04-03", Time: "16:00"}, "a4"},
		{"fuzzy name", models.CancelHints{PropertyName: "metro hts"}, "a4"},
		{"name with date", models.CancelHints{PropertyName: "skyline", Date: "2025-04-02"}, "a2"},
		{"cancelled is skipped", models.CancelHints{Date: "2025-04-01"}, ""},
		{"confirmed is skipped", models.CancelHints{Date: "2025-04-05"}, ""},
		{"name not found", models.CancelHints{PropertyName: "zzqx"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindCancelTarget(apts, tt.hints)
			if tt.wantID == "" {
				if ok {
					t.Errorf("Expected no match, got %s", got.ID)
				}
				return
			}
			if !ok || got.ID != tt.wantID {
				t.Errorf("Expected %s, got %s (ok=%v)", tt.wantID, got.ID, ok)
			}
		})
	}
}

func TestPickProperty(t *testing.T) {
	props := store.DemoProperties()

	if p, _ := pickProperty(props, "3"); p.ID != "3" {
		t.Errorf("Expected property by id, got %s", p.ID)
	}
	if p, _ := pickProperty(props, "missing"); p.ID != "1" {
		t.Errorf("Expected first available, got %s", p.ID)
	}
	if _, ok := pickProperty(nil, ""); ok {
		t.Error("Expected no property from empty catalog")
	}
}

func TestNavigator(t *testing.T) {
	a, s := newTestApplier(t)
	ctx := context.Background()
	nav := NewNavigator(a, testUser)

	if err := nav.Navigate(ctx, models.SectionProperties, nil); err != nil {
		t.Fatalf("Navigate(properties) failed: %v", err)
	}
	if err := nav.Navigate(ctx, models.SectionAppointments, &models.AppointmentPayload{PropertyID: "2", AutoSubmit: true, Nonce: "n1"}); err != nil {
		t.Fatalf("Navigate(appointments) failed: %v", err)
	}
	// Redelivery of the same payload is absorbed by the ledger.
	if err := nav.Navigate(ctx, models.SectionAppointments, &models.AppointmentPayload{PropertyID: "2", AutoSubmit: true, Nonce: "n1"}); err != nil {
		t.Fatalf("Navigate redelivery failed: %v", err)
	}
	if apts, _ := s.ListAppointments(ctx, "u1"); len(apts) != 1 {
		t.Errorf("Expected 1 appointment, got %d", len(apts))
	}
	if err := nav.Logout(ctx); err != nil {
		t.Errorf("Logout failed: %v", err)
	}

	guest := NewNavigator(a, nil)
	if err := guest.Navigate(ctx, models.SectionAppointments, &models.AppointmentPayload{AutoSubmit: true, Nonce: "n2"}); err != nil {
		t.Errorf("Expected guest navigation to be ignored, got %v", err)
	}
	if err := guest.Logout(ctx); err != nil {
		t.Errorf("guest Logout failed: %v", err)
	}
	if apts, _ := s.ListAppointments(ctx, ""); len(apts) != 1 {
		t.Errorf("Expected guest navigation not to book, got %d appointments", len(apts))
	}
}
