package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/clinic-scheduling/internal/logging"
	"github.com/careloop/clinic-scheduling/internal/metrics"
	"github.com/careloop/clinic-scheduling/internal/redisclient"
	"github.com/careloop/clinic-scheduling/internal/slotgrid"
)

// MinReasonLen is the default minimum length for a patient-supplied booking
// reason.
const MinReasonLen = 10

// Service orchestrates appointment operations against the lifecycle rules,
// the availability resolver and the persistence layer. Every method takes
// the acting party explicitly; there is no ambient identity.
type Service struct {
	repo      Repository
	resolver  *AvailabilityResolver
	locker    redisclient.Locker
	lifecycle Lifecycle
	notifier  Notifier
	logger    *logging.Logger
	metrics   *metrics.SchedulingMetrics

	minReasonLen int
	now          func() time.Time
}

type ServiceOptions struct {
	CancelWindow time.Duration
	MinReasonLen int
	Notifier     Notifier
	Logger       *logging.Logger
	Metrics      *metrics.SchedulingMetrics
}

func NewService(repo Repository, locker redisclient.Locker, opts ServiceOptions) *Service {
	if opts.MinReasonLen <= 0 {
		opts.MinReasonLen = MinReasonLen
	}
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	return &Service{
		repo:         repo,
		resolver:     NewAvailabilityResolver(repo),
		locker:       locker,
		lifecycle:    NewLifecycle(opts.CancelWindow),
		notifier:     opts.Notifier,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		minReasonLen: opts.MinReasonLen,
		now:          time.Now,
	}
}

// GetAvailableSlots is the availability projection exposed to the UI.
func (s *Service) GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]SlotAvailability, error) {
	return s.resolver.Resolve(ctx, doctorID, DateOnly(date))
}

// Get returns a single appointment by id.
func (s *Service) Get(ctx context.Context, apptID uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, apptID)
}

// Request creates a patient-initiated appointment with status=requested.
// Availability is re-checked under the booking lock right before the write;
// the unique index still has the final say and a violation comes back as
// SlotConflict with no row written.
func (s *Service) Request(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time, slot slotgrid.Slot, reason string) (*Appointment, error) {
	if len(reason) < s.minReasonLen {
		return nil, s.reject("request", &ValidationError{
			Field:  "reason",
			Detail: fmt.Sprintf("must be at least %d characters", s.minReasonLen),
		})
	}
	if !slotgrid.Contains(slot) {
		return nil, s.reject("request", &ValidationError{
			Field:  "slot",
			Detail: fmt.Sprintf("%s is not a bookable clinic slot", slot),
		})
	}
	date = DateOnly(date)

	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, s.reject("request", fmt.Errorf("load patient: %w", err))
	}
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, s.reject("request", fmt.Errorf("load doctor: %w", err))
	}

	var created *Appointment

	err := s.locker.WithBookingLock(ctx, doctorID, date, slot, func(lockCtx context.Context) error {
		// Advisory pre-check inside the critical section so well-behaved
		// clients see the conflict before the insert does.
		if err := s.resolver.Check(lockCtx, doctorID, date, slot, uuid.Nil); err != nil {
			return err
		}

		appt, err := s.repo.InsertRequested(lockCtx, &Appointment{
			ID:              uuid.New(),
			PatientID:       patientID,
			DoctorID:        doctorID,
			Date:            date,
			Slot:            slot,
			DurationMinutes: int(slotgrid.SlotDuration.Minutes()),
			Status:          StatusRequested,
			Reason:          reason,
		})
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			err = &SlotConflict{DoctorID: doctorID, Date: date, Slot: slot}
		}
		return nil, s.reject("request", err)
	}

	s.metrics.ObserveOperation("request", "ok")
	s.recordTransition(ctx, created, "", StatusRequested, Actor{ID: patientID, Role: RolePatient})
	return created, nil
}

// Confirm moves a requested appointment to confirmed (the doctor honoring
// the request) or a rescheduled one to confirmed (the patient accepting the
// proposed slot).
func (s *Service) Confirm(ctx context.Context, actor Actor, apptID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, apptID)
	if err != nil {
		return nil, s.reject("confirm", fmt.Errorf("load appointment: %w", err))
	}

	if err := s.lifecycle.CanConfirm(appt); err != nil {
		return nil, s.reject("confirm", err)
	}
	switch appt.Status {
	case StatusRequested:
		if actor.Role != RoleDoctor || actor.ID != appt.DoctorID {
			return nil, s.reject("confirm", &PolicyViolation{
				Rule:   RuleActorNotParty,
				Detail: "only the appointment's doctor can confirm a request",
			})
		}
	case StatusRescheduled:
		if actor.Role != RolePatient || actor.ID != appt.PatientID {
			return nil, s.reject("confirm", &PolicyViolation{
				Rule:   RuleActorNotParty,
				Detail: "only the patient can accept a proposed slot",
			})
		}
	}

	updated, err := s.repo.UpdateStatus(ctx, apptID, appt.Status, StatusConfirmed, s.now())
	if err != nil {
		return nil, s.reject("confirm", s.classifyCASMiss(ctx, apptID, err))
	}

	s.metrics.ObserveOperation("confirm", "ok")
	s.recordTransition(ctx, updated, appt.Status, StatusConfirmed, actor)
	return updated, nil
}

// Cancel applies the cancellation policy: requested cancels at any time,
// confirmed only outside the cancel window.
func (s *Service) Cancel(ctx context.Context, actor Actor, apptID uuid.UUID, reason string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, apptID)
	if err != nil {
		return nil, s.reject("cancel", fmt.Errorf("load appointment: %w", err))
	}

	if err := s.requireParty(appt, actor); err != nil {
		return nil, s.reject("cancel", err)
	}
	if err := s.lifecycle.CanCancel(appt, s.now()); err != nil {
		return nil, s.reject("cancel", err)
	}

	updated, err := s.repo.CancelAppointment(ctx, apptID, appt.Status, reason, s.now())
	if err != nil {
		return nil, s.reject("cancel", s.classifyCASMiss(ctx, apptID, err))
	}

	s.metrics.ObserveOperation("cancel", "ok")
	s.recordTransition(ctx, updated, appt.Status, StatusCancelled, actor)
	return updated, nil
}

// Reschedule is the doctor proposing a different slot. The record keeps its
// id: the row is updated in place to the new date/slot with
// status=rescheduled, and the patient re-confirms via Confirm. On conflict
// the original appointment is untouched.
func (s *Service) Reschedule(ctx context.Context, actor Actor, apptID uuid.UUID, newDate time.Time, newSlot slotgrid.Slot, reason string) (*Appointment, error) {
	if reason == "" {
		return nil, s.reject("reschedule", &ValidationError{Field: "reason", Detail: "a reschedule reason is required"})
	}
	if !slotgrid.Contains(newSlot) {
		return nil, s.reject("reschedule", &ValidationError{
			Field:  "slot",
			Detail: fmt.Sprintf("%s is not a bookable clinic slot", newSlot),
		})
	}
	newDate = DateOnly(newDate)

	appt, err := s.repo.GetAppointmentByID(ctx, apptID)
	if err != nil {
		return nil, s.reject("reschedule", fmt.Errorf("load appointment: %w", err))
	}

	if actor.Role != RoleDoctor || actor.ID != appt.DoctorID {
		return nil, s.reject("reschedule", &PolicyViolation{
			Rule:   RuleActorNotParty,
			Detail: "only the appointment's doctor can propose a reschedule",
		})
	}
	if err := s.lifecycle.CanReschedule(appt, s.now()); err != nil {
		return nil, s.reject("reschedule", err)
	}

	var updated *Appointment

	err = s.locker.WithBookingLock(ctx, appt.DoctorID, newDate, newSlot, func(lockCtx context.Context) error {
		if err := s.resolver.Check(lockCtx, appt.DoctorID, newDate, newSlot, appt.ID); err != nil {
			return err
		}

		up, err := s.repo.RescheduleAppointment(lockCtx, apptID, appt.Status, newDate, newSlot, reason)
		if err != nil {
			return err
		}
		updated = up
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			err = &SlotConflict{DoctorID: appt.DoctorID, Date: newDate, Slot: newSlot}
		}
		return nil, s.reject("reschedule", s.classifyCASMiss(ctx, apptID, err))
	}

	s.metrics.ObserveOperation("reschedule", "ok")
	s.recordTransition(ctx, updated, appt.Status, StatusRescheduled, actor)
	return updated, nil
}

// MarkCompleted closes a past appointment as fulfilled.
func (s *Service) MarkCompleted(ctx context.Context, actor Actor, apptID uuid.UUID) (*Appointment, error) {
	return s.close(ctx, actor, apptID, StatusCompleted)
}

// MarkNoShow closes a past appointment as missed.
func (s *Service) MarkNoShow(ctx context.Context, actor Actor, apptID uuid.UUID) (*Appointment, error) {
	return s.close(ctx, actor, apptID, StatusNoShow)
}

func (s *Service) close(ctx context.Context, actor Actor, apptID uuid.UUID, to Status) (*Appointment, error) {
	op := string(to)

	appt, err := s.repo.GetAppointmentByID(ctx, apptID)
	if err != nil {
		return nil, s.reject(op, fmt.Errorf("load appointment: %w", err))
	}

	if actor.Role != RoleSystem && (actor.Role != RoleDoctor || actor.ID != appt.DoctorID) {
		return nil, s.reject(op, &PolicyViolation{
			Rule:   RuleActorNotParty,
			Detail: "only the appointment's doctor or the system can close an appointment",
		})
	}
	if err := s.lifecycle.CanClose(appt, to, s.now()); err != nil {
		return nil, s.reject(op, err)
	}

	updated, err := s.repo.UpdateStatus(ctx, apptID, appt.Status, to, s.now())
	if err != nil {
		return nil, s.reject(op, s.classifyCASMiss(ctx, apptID, err))
	}

	s.metrics.ObserveOperation(op, "ok")
	s.recordTransition(ctx, updated, appt.Status, to, actor)
	return updated, nil
}

// PermanentlyRemove hard-deletes a cancelled or rescheduled record. This is
// destructive and outside the state machine; no transition event is emitted.
func (s *Service) PermanentlyRemove(ctx context.Context, actor Actor, apptID uuid.UUID) error {
	appt, err := s.repo.GetAppointmentByID(ctx, apptID)
	if err != nil {
		return s.reject("remove", fmt.Errorf("load appointment: %w", err))
	}

	if err := s.requireParty(appt, actor); err != nil {
		return s.reject("remove", err)
	}
	if err := s.lifecycle.CanHardDelete(appt); err != nil {
		return s.reject("remove", err)
	}

	if err := s.repo.DeleteAppointment(ctx, apptID); err != nil {
		return s.reject("remove", fmt.Errorf("delete appointment: %w", err))
	}

	s.metrics.ObserveOperation("remove", "ok")
	s.logger.InfoContext(ctx, "appointment permanently removed",
		"appointment_id", apptID, "actor_id", actor.ID, "actor_role", string(actor.Role))
	return nil
}

// ListForPatient returns the patient's appointments ordered by date and slot.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	appts, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appts, nil
}

// ListForDoctor returns the doctor's appointments ordered by date and slot.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	appts, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by doctor: %w", err)
	}
	return appts, nil
}

// SweepNoShows closes every open appointment whose start time passed more
// than grace ago. Intended to be called by the follow-up worker.
func (s *Service) SweepNoShows(ctx context.Context, grace time.Duration) (int, error) {
	cutoff := s.now().Add(-grace)
	due, err := s.repo.FindDueOpen(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find due appointments: %w", err)
	}

	marked := 0
	for i := range due {
		appt := due[i]
		updated, err := s.repo.UpdateStatus(ctx, appt.ID, appt.Status, StatusNoShow, s.now())
		if err != nil {
			// Likely a concurrent transition; skip and keep sweeping.
			if IsNotFound(err) {
				continue
			}
			s.logger.WarnContext(ctx, "failed to mark no-show", "appointment_id", appt.ID, "error", err)
			continue
		}
		marked++
		s.recordTransition(ctx, updated, appt.Status, StatusNoShow, Actor{Role: RoleSystem})
	}

	s.metrics.ObserveSweep(marked)
	return marked, nil
}

func (s *Service) requireParty(appt *Appointment, actor Actor) error {
	switch actor.Role {
	case RolePatient:
		if actor.ID == appt.PatientID {
			return nil
		}
	case RoleDoctor:
		if actor.ID == appt.DoctorID {
			return nil
		}
	}
	return &PolicyViolation{Rule: RuleActorNotParty}
}

// classifyCASMiss distinguishes "row gone" from "row moved on concurrently"
// after a compare-and-swap update found no matching row.
func (s *Service) classifyCASMiss(ctx context.Context, apptID uuid.UUID, err error) error {
	if !IsNotFound(err) {
		return err
	}
	if _, reloadErr := s.repo.GetAppointmentByID(ctx, apptID); reloadErr == nil {
		return &PolicyViolation{
			Rule:   RuleStatusTransition,
			Detail: "appointment status changed concurrently",
		}
	}
	return err
}

// reject counts the failure and passes the error through unchanged.
func (s *Service) reject(operation string, err error) error {
	switch {
	case IsSlotConflict(err):
		s.metrics.ObserveOperation(operation, "conflict")
		s.metrics.ObserveSlotConflict()
	case IsPolicyViolation(err):
		var pv *PolicyViolation
		errors.As(err, &pv)
		s.metrics.ObserveOperation(operation, "policy_rejected")
		s.metrics.ObservePolicyRejection(pv.Rule)
	case IsNotFound(err):
		s.metrics.ObserveOperation(operation, "not_found")
	default:
		s.metrics.ObserveOperation(operation, "error")
	}
	return err
}

// recordTransition appends the audit row and notifies the counterparty.
// Neither failure mode fails the operation that already committed.
func (s *Service) recordTransition(ctx context.Context, appt *Appointment, from, to Status, actor Actor) {
	ev := TransitionEvent{
		AppointmentID: appt.ID,
		OldStatus:     from,
		NewStatus:     to,
		Actor:         actor,
		At:            s.now(),
	}
	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "failed to insert transition event",
			"appointment_id", appt.ID, "new_status", string(to), "error", err)
	}
	s.notifier.Notify(ctx, ev)
}
