package appointments

import (
	"context"
	"log/slog"

	"github.com/philview/philview/internal/models"
)

// Navigator applies appointment payloads on the server as soon as the assistant dispatches them.
// It satisfies the assistant's Navigator interface. Navigation to other sections and logout
// are client concerns and are only logged.
type Navigator struct {
	applier *Applier
	user    *models.User
}

// NewNavigator binds an Applier to the user of one chat session.
func NewNavigator(applier *Applier, user *models.User) *Navigator {
	return &Navigator{applier: applier, user: user}
}

// Navigate applies payload when target is the appointments section and the user is signed in.
func (n *Navigator) Navigate(ctx context.Context, target models.Section, payload *models.AppointmentPayload) error {
	if target != models.SectionAppointments || payload == nil {
		slog.Debug("appointments.Navigator: ignoring navigation", "section", target)
		return nil
	}
	if !n.user.SignedIn() {
		slog.Debug("appointments.Navigator: guest navigation, nothing to apply", "nonce", payload.Nonce)
		return nil
	}
	res, err := n.applier.Apply(ctx, n.user, payload)
	if err != nil {
		return err
	}
	slog.Debug("appointments.Navigator: payload applied", "userID", n.user.ID, "outcome", res.Outcome, "nonce", res.Nonce)
	return nil
}

// Logout is a no-op on the server.
func (n *Navigator) Logout(ctx context.Context) error {
	slog.Debug("appointments.Navigator: logout requested", "signedIn", n.user.SignedIn())
	return nil
}
