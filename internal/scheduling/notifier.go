package scheduling

import (
	"context"

	"github.com/careloop/clinic-scheduling/internal/logging"
)

// Notifier receives one event per successful status transition, to be
// delivered to the non-acting party. Delivery is fire-and-forget: the
// service never fails an operation because notification failed.
type Notifier interface {
	Notify(ctx context.Context, ev TransitionEvent)
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, TransitionEvent) {}

// LogNotifier writes transition events to the structured log. Stands in for
// the external notification collaborator in deployments that lack one.
type LogNotifier struct {
	Logger *logging.Logger
}

func (n LogNotifier) Notify(ctx context.Context, ev TransitionEvent) {
	logger := n.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger.InfoContext(ctx, "appointment transition",
		"appointment_id", ev.AppointmentID,
		"old_status", string(ev.OldStatus),
		"new_status", string(ev.NewStatus),
		"actor_id", ev.Actor.ID,
		"actor_role", string(ev.Actor.Role),
		"at", ev.At,
	)
}
