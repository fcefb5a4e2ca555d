// Package appointments applies dispatched appointment payloads to the directory store.
//
// It is the consumer side of the assistant's appointments navigation: a payload either
// prefills the booking form, books a viewing (autoSubmit) or cancels a pending appointment.
// Every mutating payload carries a nonce and is applied at most once per user.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/philview/philview/internal/models"
	"github.com/philview/philview/internal/store"
)

// Consumer is the ledger namespace used for appointment payloads.
const Consumer = "appointments"

var (
	// ErrMissingNonce is returned for a mutating payload that carries no nonce.
	ErrMissingNonce = errors.New("mutating appointment payload requires a nonce")
	// ErrNotSignedIn is returned when no signed-in user is supplied.
	ErrNotSignedIn = errors.New("appointments require a signed-in user")
)

// Outcome names what applying a payload did.
type Outcome string

const (
	OutcomePrefilled Outcome = "prefilled"
	OutcomeBooked    Outcome = "booked"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeNoMatch   Outcome = "no_match"
	OutcomeDuplicate Outcome = "duplicate"
)

// Prefill is the booking form state a payload produces.
type Prefill struct {
	PropertyID   string `json:"propertyId,omitempty"`
	PropertyName string `json:"propertyName,omitempty"`
	Date         string `json:"date"`
	Time         string `json:"time"`
}

// Result reports the effect of one Apply call.
type Result struct {
	Outcome     Outcome             `json:"outcome"`
	Applied     bool                `json:"applied"`
	Nonce       string              `json:"nonce,omitempty"`
	Prefill     *Prefill            `json:"prefill,omitempty"`
	Appointment *models.Appointment `json:"appointment,omitempty"`
}

// Opts holds configuration for an Applier.
type Opts struct {
	Ledger          store.NonceLedger
	Outbox          store.OutboxRepo
	NotifyRecipient string
	Clock           func() time.Time
}

// Option configures an Applier.
type Option func(*Opts)

// WithLedger sets the nonce ledger. Defaults to a LastNonceLedger.
func WithLedger(l store.NonceLedger) Option {
	return func(o *Opts) { o.Ledger = l }
}

// WithNotifications queues a notice to recipient for every booking and cancellation.
func WithNotifications(outbox store.OutboxRepo, recipient string) Option {
	return func(o *Opts) {
		o.Outbox = outbox
		o.NotifyRecipient = recipient
	}
}

// WithClock overrides the time source used for date defaults.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) { o.Clock = now }
}

// Applier applies appointment payloads for signed-in users.
type Applier struct {
	dir       store.Directory
	ledger    store.NonceLedger
	outbox    store.OutboxRepo
	recipient string
	now       func() time.Time
}

// NewApplier creates an Applier over dir.
func NewApplier(dir store.Directory, opts ...Option) *Applier {
	cfg := Opts{Clock: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Ledger == nil {
		cfg.Ledger = NewLastNonceLedger()
	}
	return &Applier{
		dir:       dir,
		ledger:    cfg.Ledger,
		outbox:    cfg.Outbox,
		recipient: cfg.NotifyRecipient,
		now:       cfg.Clock,
	}
}

// Apply applies p on behalf of user. A nil payload is a bare prefill.
//
// A mutating payload whose nonce was already claimed returns OutcomeDuplicate without touching
// the directory. If applying a claimed payload fails, the claim is released so that the same
// payload can be retried. Bare prefills change nothing and never claim their nonce.
func (a *Applier) Apply(ctx context.Context, user *models.User, p *models.AppointmentPayload) (Result, error) {
	if !user.SignedIn() {
		return Result{}, ErrNotSignedIn
	}
	if p == nil {
		p = &models.AppointmentPayload{}
	}
	if p.Mutating() && p.Nonce == "" {
		return Result{}, ErrMissingNonce
	}

	consumer := Consumer + ":" + user.ID
	claim := p.Mutating()
	if claim {
		claimed, err := a.ledger.ClaimNonce(ctx, consumer, p.Nonce)
		if err != nil {
			return Result{}, fmt.Errorf("failed to claim nonce: %w", err)
		}
		if !claimed {
			slog.Info("Applier.Apply: duplicate payload skipped", "userID", user.ID, "nonce", p.Nonce)
			return Result{Outcome: OutcomeDuplicate, Nonce: p.Nonce}, nil
		}
	}

	var res Result
	var err error
	if p.Cancel != nil {
		res, err = a.cancel(ctx, user, *p.Cancel)
	} else {
		res, err = a.prefillOrBook(ctx, user, p)
	}
	res.Nonce = p.Nonce

	if err != nil && claim {
		if relErr := a.ledger.ReleaseNonce(ctx, consumer, p.Nonce); relErr != nil {
			slog.Error("Applier.Apply: failed to release nonce", "nonce", p.Nonce, "error", relErr)
		}
	}
	return res, err
}

// today is the current date in UTC, the zone used for defaulted booking dates and reminders.
func (a *Applier) today() string {
	return a.now().UTC().Format(models.DateLayout)
}

func (a *Applier) prefillOrBook(ctx context.Context, user *models.User, p *models.AppointmentPayload) (Result, error) {
	props, err := a.dir.ListProperties(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list properties: %w", err)
	}

	prefill := &Prefill{Date: p.Date, Time: p.Time}
	if prefill.Date == "" {
		prefill.Date = a.today()
	}
	if prefill.Time == "" {
		prefill.Time = models.DefaultAppointmentTime
	}
	property, found := pickProperty(props, p.PropertyID)
	if found {
		prefill.PropertyID = property.ID
		prefill.PropertyName = property.Name
	}

	if !p.AutoSubmit || !found {
		return Result{Outcome: OutcomePrefilled, Prefill: prefill}, nil
	}

	apt, err := a.dir.CreateAppointment(ctx, models.Appointment{
		UserID:       user.ID,
		ClientName:   user.Name,
		ClientEmail:  user.Email,
		PropertyID:   property.ID,
		PropertyName: property.Name,
		Date:         prefill.Date,
		Time:         prefill.Time,
		Status:       models.AppointmentStatusPending,
		Type:         models.AppointmentTypeViewing,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to create appointment: %w", err)
	}
	slog.Info("Applier.Apply: appointment booked", "userID", user.ID, "appointmentID", apt.ID, "propertyID", apt.PropertyID)

	a.notify(ctx, store.OutboxKindAppointmentBooked, "booked:"+apt.ID,
		fmt.Sprintf("New viewing request from %s for %s on %s at %s.", displayName(user), apt.PropertyName, apt.Date, apt.Time))
	return Result{Outcome: OutcomeBooked, Applied: true, Prefill: prefill, Appointment: &apt}, nil
}

func (a *Applier) cancel(ctx context.Context, user *models.User, hints models.CancelHints) (Result, error) {
	apts, err := a.dir.ListAppointments(ctx, user.ID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list appointments: %w", err)
	}
	target, ok := FindCancelTarget(apts, hints)
	if !ok {
		slog.Info("Applier.Apply: no pending appointment matches cancel request", "userID", user.ID, "property", hints.PropertyName)
		return Result{Outcome: OutcomeNoMatch}, nil
	}
	if err := a.dir.UpdateAppointmentStatus(ctx, target.ID, models.AppointmentStatusCancelled); err != nil {
		return Result{}, fmt.Errorf("failed to cancel appointment %s: %w", target.ID, err)
	}
	target.Status = models.AppointmentStatusCancelled
	slog.Info("Applier.Apply: appointment cancelled", "userID", user.ID, "appointmentID", target.ID)

	a.notify(ctx, store.OutboxKindAppointmentCancelled, "cancelled:"+target.ID,
		fmt.Sprintf("%s cancelled the viewing of %s on %s at %s.", displayName(user), target.PropertyName, target.Date, target.Time))
	return Result{Outcome: OutcomeCancelled, Applied: true, Appointment: &target}, nil
}

// notify queues a notice. Failures are logged; the appointment change stands.
func (a *Applier) notify(ctx context.Context, kind, dedupeKey, body string) {
	if a.outbox == nil || a.recipient == "" {
		return
	}
	if _, err := a.outbox.EnqueueOutboxMessage(ctx, a.recipient, kind, body, dedupeKey); err != nil {
		slog.Error("Applier.notify: failed to enqueue notice", "kind", kind, "error", err)
	}
}

func displayName(u *models.User) string {
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}
