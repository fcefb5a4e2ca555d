package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/philview/philview/internal/models"
)

// Navigator receives dispatched actions: the host application's navigation and logout hooks.
type Navigator interface {
	Navigate(ctx context.Context, target models.Section, payload *models.AppointmentPayload) error
	Logout(ctx context.Context) error
}

// NavigatorFuncs adapts plain functions to Navigator. Nil functions are no-ops.
type NavigatorFuncs struct {
	OnNavigate func(ctx context.Context, target models.Section, payload *models.AppointmentPayload) error
	OnLogout   func(ctx context.Context) error
}

// Navigate implements Navigator.
func (f NavigatorFuncs) Navigate(ctx context.Context, target models.Section, payload *models.AppointmentPayload) error {
	if f.OnNavigate == nil {
		return nil
	}
	return f.OnNavigate(ctx, target, payload)
}

// Logout implements Navigator.
func (f NavigatorFuncs) Logout(ctx context.Context) error {
	if f.OnLogout == nil {
		return nil
	}
	return f.OnLogout(ctx)
}

// NonceSource mints dispatch nonces. Every call must return a value never returned before.
type NonceSource func() string

// UUIDNonces is the default NonceSource.
func UUIDNonces() string { return uuid.NewString() }

// Dispatcher turns actions and confirmed plans into exactly one Navigator call each.
// It does not validate; actions are validated where they are produced.
type Dispatcher struct {
	nav    Navigator
	nonces NonceSource
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithNonceSource replaces the uuid nonce source.
func WithNonceSource(src NonceSource) DispatcherOption {
	return func(d *Dispatcher) {
		if src != nil {
			d.nonces = src
		}
	}
}

// NewDispatcher creates a Dispatcher delivering to nav. A nil nav discards actions.
func NewDispatcher(nav Navigator, opts ...DispatcherOption) *Dispatcher {
	if nav == nil {
		nav = NavigatorFuncs{}
	}
	d := &Dispatcher{nav: nav, nonces: UUIDNonces}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers a directly classified action and returns it as delivered.
// Appointment navigation gets a non-mutating payload carrying a fresh nonce.
func (d *Dispatcher) Dispatch(ctx context.Context, action models.Action) (models.Action, error) {
	switch act := action.(type) {
	case models.Logout:
		slog.Debug("Dispatcher.Dispatch: logout")
		if err := d.nav.Logout(ctx); err != nil {
			return act, fmt.Errorf("logout callback failed: %w", err)
		}
		return act, nil
	case models.Navigate:
		delivered := models.Navigate{Target: act.Target}
		if act.Target == models.SectionAppointments {
			payload := &models.AppointmentPayload{}
			if act.Payload != nil {
				copied := *act.Payload
				payload = &copied
			}
			payload.AutoSubmit = false
			payload.Cancel = nil
			payload.Nonce = d.nonces()
			delivered.Payload = payload
		}
		return delivered, d.navigate(ctx, delivered)
	default:
		return nil, fmt.Errorf("%w: %T", models.ErrUnknownActionType, action)
	}
}

// DispatchPlan converts a confirmed plan into Navigate(appointments) with a mutating payload.
func (d *Dispatcher) DispatchPlan(ctx context.Context, plan models.Plan) (models.Action, error) {
	var payload *models.AppointmentPayload
	switch p := plan.(type) {
	case models.ScheduleAppointment:
		payload = &models.AppointmentPayload{
			PropertyID: p.PropertyID,
			Date:       p.Date,
			Time:       p.Time,
			AutoSubmit: true,
		}
	case models.CancelAppointment:
		payload = &models.AppointmentPayload{
			Date:   p.Date,
			Time:   p.Time,
			Cancel: &models.CancelHints{PropertyName: p.PropertyName, Date: p.Date, Time: p.Time},
		}
	default:
		return nil, fmt.Errorf("%w: %T", models.ErrUnknownPlanKind, plan)
	}
	payload.Nonce = d.nonces()
	delivered := models.Navigate{Target: models.SectionAppointments, Payload: payload}
	return delivered, d.navigate(ctx, delivered)
}

func (d *Dispatcher) navigate(ctx context.Context, nav models.Navigate) error {
	nonce := ""
	if nav.Payload != nil {
		nonce = nav.Payload.Nonce
	}
	slog.Debug("Dispatcher.navigate: navigating", "section", nav.Target, "nonce", nonce)
	if err := d.nav.Navigate(ctx, nav.Target, nav.Payload); err != nil {
		return fmt.Errorf("navigate callback failed: %w", err)
	}
	return nil
}
