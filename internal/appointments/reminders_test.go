package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/philview/philview/internal/models"
	"github.com/philview/philview/internal/store"
)

func TestApplier_SendReminders(t *testing.T) {
	_, s := newTestApplier(t)
	a := NewApplier(s, WithLedger(s), WithClock(fixedClock), WithNotifications(s, "+639170000000"))
	ctx := context.Background()

	for _, apt := range []models.Appointment{
		{UserID: "u1", ClientName: "Ana Cruz", PropertyID: "1", PropertyName: "Skyline Residences", Date: "2025-03-14", Time: "10:00", Status: models.AppointmentStatusPending},
		{UserID: "u2", ClientEmail: "ben@example.com", PropertyID: "2", PropertyName: "Garden Villas", Date: "2025-03-14", Time: "15:30", Status: models.AppointmentStatusConfirmed},
		{UserID: "u1", PropertyID: "3", Date: "2025-03-14", Time: "09:00", Status: models.AppointmentStatusCancelled},
		{UserID: "u1", PropertyID: "3", Date: "2025-03-15", Time: "09:00", Status: models.AppointmentStatusPending},
	} {
		if _, err := s.CreateAppointment(ctx, apt); err != nil {
			t.Fatalf("CreateAppointment failed: %v", err)
		}
	}

	n, err := a.SendReminders(ctx)
	if err != nil {
		t.Fatalf("SendReminders failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("Expected 2 reminders, got %d", n)
	}
	msgs := s.OutboxMessages()
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 queued messages, got %d", len(msgs))
	}
	if msgs[0].Kind != store.OutboxKindAppointmentReminder || msgs[0].Recipient != "+639170000000" {
		t.Errorf("Unexpected message %+v", msgs[0])
	}
	want := "Reminder: Ana Cruz viewing of Skyline Residences today at 10:00 (Pending)."
	if msgs[0].Body != want {
		t.Errorf("Expected body %q, got %q", want, msgs[0].Body)
	}
	want = "Reminder: ben@example.com viewing of Garden Villas today at 15:30 (Confirmed)."
	if msgs[1].Body != want {
		t.Errorf("Expected body %q, got %q", want, msgs[1].Body)
	}

	// A second run the same day is absorbed by the dedupe keys.
	if _, err := a.SendReminders(ctx); err != nil {
		t.Fatalf("second SendReminders failed: %v", err)
	}
	if got := len(s.OutboxMessages()); got != 2 {
		t.Errorf("Expected reminders to be deduplicated, got %d messages", got)
	}
}

func TestApplier_SendRemindersDisabled(t *testing.T) {
	a, s := newTestApplier(t)
	ctx := context.Background()
	s.CreateAppointment(ctx, models.Appointment{UserID: "u1", PropertyID: "1", Date: "2025-03-14", Status: models.AppointmentStatusPending})

	n, err := a.SendReminders(ctx)
	if err != nil || n != 0 {
		t.Errorf("Expected no-op without notifications, got %d, %v", n, err)
	}
	if got := len(s.OutboxMessages()); got != 0 {
		t.Errorf("Expected nothing queued, got %d", got)
	}
}

func TestApplier_SendRemindersAfterDelivery(t *testing.T) {
	_, s := newTestApplier(t)
	a := NewApplier(s, WithLedger(s), WithClock(fixedClock), WithNotifications(s, "+639170000000"))
	ctx := context.Background()
	s.CreateAppointment(ctx, models.Appointment{UserID: "u1", ClientName: "Ana Cruz", PropertyID: "1", PropertyName: "Skyline Residences", Date: "2025-03-14", Time: "10:00", Status: models.AppointmentStatusPending})

	if _, err := a.SendReminders(ctx); err != nil {
		t.Fatalf("SendReminders failed: %v", err)
	}
	sender := store.NewOutboxSender(s, func(ctx context.Context, msg store.OutboxMessage) error { return nil }, time.Second)
	if sent := sender.Poll(ctx); sent != 1 {
		t.Fatalf("Expected 1 reminder delivered, got %d", sent)
	}

	// A rerun the same day must not queue the delivered reminder again.
	if _, err := a.SendReminders(ctx); err != nil {
		t.Fatalf("second SendReminders failed: %v", err)
	}
	msgs := s.OutboxMessages()
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 outbox message after rerun, got %d", len(msgs))
	}
	if msgs[0].Status != store.OutboxStatusSent {
		t.Errorf("Expected reminder to stay sent, got %q", msgs[0].Status)
	}
}

func TestApplier_RemindersUseBookingDate(t *testing.T) {
	// 07:00 in Manila is still the previous day in UTC.
	manila := time.FixedZone("PHT", 8*60*60)
	clock := func() time.Time { return time.Date(2025, 3, 15, 7, 0, 0, 0, manila) }

	_, s := newTestApplier(t)
	a := NewApplier(s, WithLedger(s), WithClock(clock), WithNotifications(s, "+639170000000"))
	ctx := context.Background()

	res, err := a.Apply(ctx, testUser, &models.AppointmentPayload{PropertyID: "1", Time: "16:00", AutoSubmit: true, Nonce: "n1"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if res.Appointment == nil || res.Appointment.Date != "2025-03-14" {
		t.Fatalf("Expected defaulted date in UTC, got %+v", res.Appointment)
	}

	before := len(s.OutboxMessages())
	n, err := a.SendReminders(ctx)
	if err != nil {
		t.Fatalf("SendReminders failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected the booking to be reminded, got %d reminders", n)
	}
	if got := len(s.OutboxMessages()) - before; got != 1 {
		t.Errorf("Expected 1 reminder queued, got %d", got)
	}
}
