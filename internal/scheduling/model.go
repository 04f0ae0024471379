package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/careloop/clinic-scheduling/internal/slotgrid"
)

// Status is the closed set of appointment lifecycle states. New states must
// be added to the transition table in lifecycle.go or Valid will reject them.
type Status string

const (
	StatusRequested   Status = "requested"
	StatusConfirmed   Status = "confirmed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
	StatusCompleted   Status = "completed"
	StatusNoShow      Status = "no_show"
)

func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusConfirmed, StatusCancelled, StatusRescheduled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// Terminal statuses accept no further lifecycle transition. A cancelled or
// rescheduled record may still be hard-deleted, which is outside the state
// machine.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusNoShow
}

// Actor identifies who is performing an operation. Always passed explicitly;
// the service never reads identity from ambient state.
type ActorRole string

const (
	RolePatient ActorRole = "patient"
	RoleDoctor  ActorRole = "doctor"
	RoleSystem  ActorRole = "system"
)

type Actor struct {
	ID   uuid.UUID
	Role ActorRole
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID

	// Date is the calendar day (midnight UTC); Slot is the grid-aligned time
	// of day. While status is completed or no_show they record the historical
	// slot that was fulfilled or missed.
	Date            time.Time
	Slot            slotgrid.Slot
	DurationMinutes int

	Status Status

	Reason           string
	DoctorNotes      *string
	CancelReason     *string
	RescheduleReason *string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ConfirmedAt *time.Time
	CancelledAt *time.Time
}

// StartTime is the instant the appointment begins.
func (a *Appointment) StartTime() time.Time {
	return a.Slot.At(a.Date)
}

// DateOnly truncates an instant to its calendar day at midnight UTC, the
// canonical form for Appointment.Date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TransitionEvent is emitted after every successful status change and
// delivered to the notification collaborator for the non-acting party.
type TransitionEvent struct {
	AppointmentID uuid.UUID
	OldStatus     Status
	NewStatus     Status
	Actor         Actor
	At            time.Time
}

// SlotAvailability tags one grid slot for a doctor/date availability query.
type SlotAvailability struct {
	Slot   slotgrid.Slot
	Booked bool
}
