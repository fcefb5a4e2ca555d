package appointments

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/philview/philview/internal/models"
	"github.com/philview/philview/internal/store"
)

// SendReminders queues one reminder for each pending or confirmed appointment dated today.
// Reminders are deduplicated per appointment and day, so running it twice queues nothing new.
// It returns the number of appointments reminded; with notifications disabled it does nothing.
func (a *Applier) SendReminders(ctx context.Context) (int, error) {
	if a.outbox == nil || a.recipient == "" {
		return 0, nil
	}
	today := a.today()

	apts, err := a.dir.ListAppointments(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("failed to list appointments: %w", err)
	}

	sent := 0
	for _, apt := range apts {
		if apt.Date != today {
			continue
		}
		if apt.Status != models.AppointmentStatusPending && apt.Status != models.AppointmentStatusConfirmed {
			continue
		}
		client := apt.ClientName
		if client == "" {
			client = apt.ClientEmail
		}
		body := fmt.Sprintf("Reminder: %s viewing of %s today at %s (%s).", client, apt.PropertyName, apt.Time, apt.Status)
		if _, err := a.outbox.EnqueueOutboxMessage(ctx, a.recipient, store.OutboxKindAppointmentReminder, body, "reminder:"+apt.ID+":"+today); err != nil {
			return sent, fmt.Errorf("failed to queue reminder for %s: %w", apt.ID, err)
		}
		sent++
	}
	slog.Info("Applier.SendReminders: reminders queued", "date", today, "count", sent)
	return sent, nil
}
