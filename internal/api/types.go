package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/careloop/clinic-scheduling/internal/scheduling"
)

// ActorPayload identifies the party performing a lifecycle action. Every
// mutating request names its actor explicitly; nothing is inferred from
// headers or sessions.
type ActorPayload struct {
	ActorID   string `json:"actor_id" validate:"required,uuid"`
	ActorRole string `json:"actor_role" validate:"required,oneof=patient doctor system"`
}

type RequestAppointmentRequest struct {
	PatientID string `json:"patient_id" validate:"required,uuid"`
	DoctorID  string `json:"doctor_id" validate:"required,uuid"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Slot      string `json:"slot" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

type ConfirmAppointmentRequest struct {
	ActorPayload
}

type CancelAppointmentRequest struct {
	ActorPayload
	Reason string `json:"reason"`
}

type RescheduleAppointmentRequest struct {
	ActorPayload
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	Slot   string `json:"slot" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}

type CloseAppointmentRequest struct {
	ActorPayload
}

type RemoveAppointmentRequest struct {
	ActorPayload
}

type AppointmentResponse struct {
	ID               uuid.UUID  `json:"id"`
	PatientID        uuid.UUID  `json:"patient_id"`
	DoctorID         uuid.UUID  `json:"doctor_id"`
	Date             string     `json:"date"`
	Slot             string     `json:"slot"`
	SlotDisplay      string     `json:"slot_display"`
	DurationMinutes  int        `json:"duration_minutes"`
	Status           string     `json:"status"`
	Reason           string     `json:"reason"`
	DoctorNotes      *string    `json:"doctor_notes,omitempty"`
	CancelReason     *string    `json:"cancel_reason,omitempty"`
	RescheduleReason *string    `json:"reschedule_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
}

type SlotResponse struct {
	Slot      string `json:"slot"`
	Display   string `json:"display"`
	Available bool   `json:"available"`
}

type AvailabilityResponse struct {
	DoctorID uuid.UUID      `json:"doctor_id"`
	Date     string         `json:"date"`
	Slots    []SlotResponse `json:"slots"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
}

type CalendarDayResponse struct {
	Date           string   `json:"date"`
	Day            int      `json:"day"`
	HasAppointment bool     `json:"has_appointment"`
	Indicators     []string `json:"indicators,omitempty"`
	IsPast         bool     `json:"is_past"`
}

type CalendarResponse struct {
	Year  int                   `json:"year"`
	Month int                   `json:"month"`
	Days  []CalendarDayResponse `json:"days"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:               a.ID,
		PatientID:        a.PatientID,
		DoctorID:         a.DoctorID,
		Date:             a.Date.Format("2006-01-02"),
		Slot:             a.Slot.String(),
		SlotDisplay:      a.Slot.Display(),
		DurationMinutes:  a.DurationMinutes,
		Status:           string(a.Status),
		Reason:           a.Reason,
		DoctorNotes:      a.DoctorNotes,
		CancelReason:     a.CancelReason,
		RescheduleReason: a.RescheduleReason,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
		ConfirmedAt:      a.ConfirmedAt,
		CancelledAt:      a.CancelledAt,
	}
}

func toAppointmentListResponse(appts []scheduling.Appointment) AppointmentListResponse {
	out := AppointmentListResponse{Appointments: make([]AppointmentResponse, 0, len(appts))}
	for i := range appts {
		out.Appointments = append(out.Appointments, toAppointmentResponse(&appts[i]))
	}
	return out
}
