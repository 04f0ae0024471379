package scheduling

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/clinic-scheduling/internal/slotgrid"
)

// ValidationError reports malformed or missing input. Raised before any I/O.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

// PolicyViolation reports a lifecycle guard failure. The Rule names which
// guard failed so callers can explain why, not just that, the action was
// rejected. Never downgraded to a no-op.
type PolicyViolation struct {
	Rule   string
	Detail string
}

func (e *PolicyViolation) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("policy violation: %s", e.Rule)
	}
	return fmt.Sprintf("policy violation: %s: %s", e.Rule, e.Detail)
}

// Guard rule names carried by PolicyViolation.
const (
	RuleCancelWindow     = "cancellation window"
	RuleTerminalStatus   = "terminal status"
	RuleStatusTransition = "status transition"
	RuleNotYetDue        = "appointment not yet due"
	RuleRemovableStatus  = "only cancelled or rescheduled appointments may be removed"
	RuleReasonRequired   = "reason required"
	RuleActorNotParty    = "actor is not a party to the appointment"
)

// SlotConflict reports that the desired (doctor, date, slot) tuple is already
// held by a non-cancelled appointment. Authoritative when raised from the
// storage unique index, advisory when raised from the availability pre-check.
type SlotConflict struct {
	DoctorID uuid.UUID
	Date     time.Time
	Slot     slotgrid.Slot
}

func (e *SlotConflict) Error() string {
	return fmt.Sprintf("slot %s on %s is already booked for doctor %s",
		e.Slot, e.Date.Format("2006-01-02"), e.DoctorID)
}

// NotFoundError reports a missing entity reference.
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	if e.ID == uuid.Nil {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// TransientError wraps a remote-call failure that did not complete, such as a
// timeout. Reads and idempotent writes may retry; creates must not retry
// blindly since the write may have landed.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func IsSlotConflict(err error) bool {
	var sc *SlotConflict
	return errors.As(err, &sc)
}

func IsPolicyViolation(err error) bool {
	var pv *PolicyViolation
	return errors.As(err, &pv)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
