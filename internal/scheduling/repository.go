package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/clinic-scheduling/internal/slotgrid"
)

// Repository contains all DB interactions needed by the service. Status
// changes are compare-and-swap: they only apply when the stored status still
// matches the expected one, so a concurrent transition surfaces as a miss
// instead of silently overwriting.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ListActiveByDoctorDate returns all non-cancelled appointments for the
	// doctor on the calendar day, ordered by slot.
	ListActiveByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error)

	// Read-only projections ordered by date then slot ascending.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error)

	// InsertRequested writes a new appointment with status=requested. A
	// violation of the (doctor, date, slot) uniqueness backstop is returned
	// as SlotConflict.
	InsertRequested(ctx context.Context, a *Appointment) (*Appointment, error)

	// Compare-and-swap status updates. A miss (no row in the expected
	// status) is returned as NotFoundError on the appointment.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) (*Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID, from Status, reason string, at time.Time) (*Appointment, error)
	RescheduleAppointment(ctx context.Context, id uuid.UUID, from Status, newDate time.Time, newSlot slotgrid.Slot, reason string) (*Appointment, error)

	// DeleteAppointment is the hard-delete path for terminal records.
	DeleteAppointment(ctx context.Context, id uuid.UUID) error

	// FindDueOpen returns requested/confirmed/rescheduled appointments whose
	// start instant is before the cutoff. Used by the follow-up worker.
	FindDueOpen(ctx context.Context, cutoff time.Time) ([]Appointment, error)

	// InsertEvent appends to the transition audit log.
	InsertEvent(ctx context.Context, ev TransitionEvent) error
}
