package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careloop/clinic-scheduling/internal/slotgrid"
)

// uniqueViolation is the Postgres error code raised by the partial unique
// index on (doctor_id, date, slot) for non-cancelled rows.
const uniqueViolation = "23505"

// DBTX is the subset of pgxpool.Pool the repository needs; pgxmock pools
// satisfy it in tests.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db DBTX
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: pool}
}

// NewPgRepositoryWithDB allows injecting a mock pool for tests.
func NewPgRepositoryWithDB(db DBTX) *PgRepository {
	return &PgRepository{db: db}
}

const appointmentColumns = `id, patient_id, doctor_id, date, slot, duration_minutes, status,
	reason, doctor_notes, cancel_reason, reschedule_reason,
	created_at, updated_at, confirmed_at, cancelled_at`

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "patient"}
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var specialty *string

	err := row.Scan(
		&d.ID,
		&d.Name,
		&specialty,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "doctor"}
		}
		return nil, err
	}

	d.Specialty = specialty
	return &d, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var slotText string
	var status string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.Date,
		&slotText,
		&a.DurationMinutes,
		&status,
		&a.Reason,
		&a.DoctorNotes,
		&a.CancelReason,
		&a.RescheduleReason,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.ConfirmedAt,
		&a.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "appointment"}
		}
		return nil, err
	}

	slot, err := slotgrid.Parse24(slotText)
	if err != nil {
		return nil, fmt.Errorf("stored slot %q: %w", slotText, err)
	}
	a.Slot = slot
	a.Status = Status(status)
	a.Date = DateOnly(a.Date)
	return &a, nil
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListActiveByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND date = $2
		  AND status <> 'cancelled'
		ORDER BY slot
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY date, slot
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY date, slot
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) InsertRequested(ctx context.Context, a *Appointment) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, date, slot, duration_minutes, status, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'requested', $7, now(), now())
		RETURNING `+appointmentColumns+`
	`, a.ID, a.PatientID, a.DoctorID, a.Date, a.Slot.String(), a.DurationMinutes, a.Reason)

	created, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &SlotConflict{DoctorID: a.DoctorID, Date: a.Date, Slot: a.Slot}
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    confirmed_at = CASE WHEN $2 = 'confirmed' THEN $4 ELSE confirmed_at END,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, string(to), string(from), at)

	return scanAppointment(row)
}

func (r *PgRepository) CancelAppointment(ctx context.Context, id uuid.UUID, from Status, reason string, at time.Time) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    cancel_reason = NULLIF($3, ''),
		    cancelled_at = $4,
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
		RETURNING `+appointmentColumns+`
	`, id, string(from), reason, at)

	return scanAppointment(row)
}

func (r *PgRepository) RescheduleAppointment(ctx context.Context, id uuid.UUID, from Status, newDate time.Time, newSlot slotgrid.Slot, reason string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'rescheduled',
		    date = $3,
		    slot = $4,
		    reschedule_reason = $5,
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
		RETURNING `+appointmentColumns+`
	`, id, string(from), newDate, newSlot.String(), reason)

	updated, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &SlotConflict{Date: newDate, Slot: newSlot}
		}
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM appointments
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "appointment", ID: id}
	}
	return nil
}

func (r *PgRepository) FindDueOpen(ctx context.Context, cutoff time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status IN ('requested', 'confirmed', 'rescheduled')
		  AND (date + slot::time) < $1
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev TransitionEvent) error {
	var actorID *uuid.UUID
	if ev.Actor.ID != uuid.Nil {
		id := ev.Actor.ID
		actorID = &id
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO transition_events (appointment_id, old_status, new_status, actor_id, actor_role, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, COALESCE($6, now()))
	`, ev.AppointmentID, string(ev.OldStatus), string(ev.NewStatus), actorID, string(ev.Actor.Role), nullableTime(ev.At))
	if err != nil {
		return fmt.Errorf("insert transition event: %w", err)
	}

	return nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
