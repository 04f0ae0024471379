package scheduling

import (
	"fmt"
	"time"
)

// DefaultCancelWindow is how far ahead of the appointment a confirmed booking
// can still be cancelled. Requested appointments bypass the window: no
// clinical resource is committed until a doctor confirms.
const DefaultCancelWindow = 24 * time.Hour

// Lifecycle encodes the legal status transitions and the time-based policies
// gating them. It is pure: callers pass the current time explicitly.
type Lifecycle struct {
	cancelWindow time.Duration
}

func NewLifecycle(cancelWindow time.Duration) Lifecycle {
	if cancelWindow <= 0 {
		cancelWindow = DefaultCancelWindow
	}
	return Lifecycle{cancelWindow: cancelWindow}
}

// transitions lists the reachable statuses from each non-terminal state.
// Terminal states (cancelled, completed, no_show) have no entry.
var transitions = map[Status][]Status{
	StatusRequested:   {StatusConfirmed, StatusCancelled, StatusRescheduled, StatusCompleted, StatusNoShow},
	StatusConfirmed:   {StatusCancelled, StatusRescheduled, StatusCompleted, StatusNoShow},
	StatusRescheduled: {StatusConfirmed, StatusCompleted, StatusNoShow},
}

// CanTransition checks the transition table alone; time-based guards live in
// the Can* methods below.
func (l Lifecycle) CanTransition(from, to Status) error {
	if from.Terminal() {
		return &PolicyViolation{
			Rule:   RuleTerminalStatus,
			Detail: fmt.Sprintf("%s appointments accept no further transition", from),
		}
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &PolicyViolation{
		Rule:   RuleStatusTransition,
		Detail: fmt.Sprintf("%s -> %s is not allowed", from, to),
	}
}

// CanCancel reports whether the appointment may be cancelled at now.
// Requested appointments cancel at any time. Confirmed appointments cancel
// only up to the cancel window before the appointment start; exactly at the
// window boundary still counts as outside it.
func (l Lifecycle) CanCancel(a *Appointment, now time.Time) error {
	switch a.Status {
	case StatusRequested:
		return nil
	case StatusConfirmed:
		cutoff := a.StartTime().Add(-l.cancelWindow)
		if now.After(cutoff) {
			return &PolicyViolation{
				Rule:   RuleCancelWindow,
				Detail: fmt.Sprintf("confirmed appointments cannot be cancelled within %s of the start time", l.cancelWindow),
			}
		}
		return nil
	default:
		return &PolicyViolation{
			Rule:   RuleStatusTransition,
			Detail: fmt.Sprintf("a %s appointment cannot be cancelled", a.Status),
		}
	}
}

// CanReschedule reports whether a new slot may be proposed or picked.
// Rescheduled appointments stay eligible so the patient can recover by
// picking a fresh slot.
func (l Lifecycle) CanReschedule(a *Appointment, now time.Time) error {
	switch a.Status {
	case StatusRequested, StatusRescheduled:
		return nil
	case StatusConfirmed:
		if !a.StartTime().After(now) {
			return &PolicyViolation{
				Rule:   RuleStatusTransition,
				Detail: "a confirmed appointment whose start time has passed cannot be rescheduled",
			}
		}
		return nil
	default:
		return &PolicyViolation{
			Rule:   RuleStatusTransition,
			Detail: fmt.Sprintf("a %s appointment cannot be rescheduled", a.Status),
		}
	}
}

// CanConfirm allows requested appointments (doctor confirmation) and
// rescheduled ones (patient accepting the proposed slot).
func (l Lifecycle) CanConfirm(a *Appointment) error {
	return l.CanTransition(a.Status, StatusConfirmed)
}

// CanClose guards the post-hoc completed/no_show transitions: only once the
// appointment start time has passed.
func (l Lifecycle) CanClose(a *Appointment, to Status, now time.Time) error {
	if to != StatusCompleted && to != StatusNoShow {
		return &PolicyViolation{
			Rule:   RuleStatusTransition,
			Detail: fmt.Sprintf("%s is not a closing status", to),
		}
	}
	if err := l.CanTransition(a.Status, to); err != nil {
		return err
	}
	if now.Before(a.StartTime()) {
		return &PolicyViolation{
			Rule:   RuleNotYetDue,
			Detail: fmt.Sprintf("appointment starts at %s", a.StartTime().Format(time.RFC3339)),
		}
	}
	return nil
}

// CanHardDelete gates the destructive path outside the state machine.
// Only already-terminal cancelled records and orphaned rescheduled ones may
// be permanently removed.
func (l Lifecycle) CanHardDelete(a *Appointment) error {
	if a.Status == StatusCancelled || a.Status == StatusRescheduled {
		return nil
	}
	return &PolicyViolation{
		Rule:   RuleRemovableStatus,
		Detail: fmt.Sprintf("appointment is %s", a.Status),
	}
}
