package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/careloop/clinic-scheduling/internal/calendar"
	"github.com/careloop/clinic-scheduling/internal/scheduling"
	"github.com/careloop/clinic-scheduling/internal/slotgrid"
)

// SchedulingService is the slice of the scheduling service the handlers
// depend on. Tests substitute a stub.
type SchedulingService interface {
	GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]scheduling.SlotAvailability, error)
	Request(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time, slot slotgrid.Slot, reason string) (*scheduling.Appointment, error)
	Get(ctx context.Context, apptID uuid.UUID) (*scheduling.Appointment, error)
	Confirm(ctx context.Context, actor scheduling.Actor, apptID uuid.UUID) (*scheduling.Appointment, error)
	Cancel(ctx context.Context, actor scheduling.Actor, apptID uuid.UUID, reason string) (*scheduling.Appointment, error)
	Reschedule(ctx context.Context, actor scheduling.Actor, apptID uuid.UUID, newDate time.Time, newSlot slotgrid.Slot, reason string) (*scheduling.Appointment, error)
	MarkCompleted(ctx context.Context, actor scheduling.Actor, apptID uuid.UUID) (*scheduling.Appointment, error)
	MarkNoShow(ctx context.Context, actor scheduling.Actor, apptID uuid.UUID) (*scheduling.Appointment, error)
	PermanentlyRemove(ctx context.Context, actor scheduling.Actor, apptID uuid.UUID) error
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]scheduling.Appointment, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]scheduling.Appointment, error)
}

type Handler struct {
	svc      SchedulingService
	validate *validator.Validate
}

func NewHandler(svc SchedulingService) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+param, param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseActor(w http.ResponseWriter, p ActorPayload) (scheduling.Actor, bool) {
	id, err := uuid.Parse(p.ActorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_actor_id", "actor_id must be a valid UUID")
		return scheduling.Actor{}, false
	}
	return scheduling.Actor{ID: id, Role: scheduling.ActorRole(p.ActorRole)}, true
}

func parseDate(w http.ResponseWriter, v string) (time.Time, bool) {
	d, err := time.Parse("2006-01-02", v)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be formatted YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

func parseSlot(w http.ResponseWriter, v string) (slotgrid.Slot, bool) {
	s, err := slotgrid.Parse24(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_slot", "slot must be a 24-hour HH:MM value")
		return slotgrid.Slot{}, false
	}
	return s, true
}

func (h *Handler) getAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "doctorID")
	if !ok {
		return
	}
	date, ok := parseDate(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}

	slots, err := h.svc.GetAvailableSlots(r.Context(), doctorID, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := AvailabilityResponse{
		DoctorID: doctorID,
		Date:     date.Format("2006-01-02"),
		Slots:    make([]SlotResponse, 0, len(slots)),
	}
	for _, s := range slots {
		resp.Slots = append(resp.Slots, SlotResponse{
			Slot:      s.Slot.String(),
			Display:   s.Slot.Display(),
			Available: !s.Booked,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) requestAppointment(w http.ResponseWriter, r *http.Request) {
	var req RequestAppointmentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
		return
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return
	}
	date, ok := parseDate(w, req.Date)
	if !ok {
		return
	}
	slot, ok := parseSlot(w, req.Slot)
	if !ok {
		return
	}

	appt, err := h.svc.Request(r.Context(), patientID, doctorID, date, slot, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *Handler) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	appt, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) confirmAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req ConfirmAppointmentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	actor, ok := parseActor(w, req.ActorPayload)
	if !ok {
		return
	}

	appt, err := h.svc.Confirm(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req CancelAppointmentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	actor, ok := parseActor(w, req.ActorPayload)
	if !ok {
		return
	}

	appt, err := h.svc.Cancel(r.Context(), actor, id, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) rescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req RescheduleAppointmentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	actor, ok := parseActor(w, req.ActorPayload)
	if !ok {
		return
	}
	date, ok := parseDate(w, req.Date)
	if !ok {
		return
	}
	slot, ok := parseSlot(w, req.Slot)
	if !ok {
		return
	}

	appt, err := h.svc.Reschedule(r.Context(), actor, id, date, slot, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) completeAppointment(w http.ResponseWriter, r *http.Request) {
	h.closeAppointment(w, r, h.svc.MarkCompleted)
}

func (h *Handler) markNoShow(w http.ResponseWriter, r *http.Request) {
	h.closeAppointment(w, r, h.svc.MarkNoShow)
}

func (h *Handler) closeAppointment(w http.ResponseWriter, r *http.Request, op func(context.Context, scheduling.Actor, uuid.UUID) (*scheduling.Appointment, error)) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req CloseAppointmentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	actor, ok := parseActor(w, req.ActorPayload)
	if !ok {
		return
	}

	appt, err := op(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) removeAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req RemoveAppointmentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	actor, ok := parseActor(w, req.ActorPayload)
	if !ok {
		return
	}

	if err := h.svc.PermanentlyRemove(r.Context(), actor, id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPatientAppointments(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathUUID(w, r, "patientID")
	if !ok {
		return
	}

	appts, err := h.svc.ListForPatient(r.Context(), patientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentListResponse(appts))
}

func (h *Handler) listDoctorAppointments(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "doctorID")
	if !ok {
		return
	}

	appts, err := h.svc.ListForDoctor(r.Context(), doctorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentListResponse(appts))
}

func (h *Handler) getPatientCalendar(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathUUID(w, r, "patientID")
	if !ok {
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1 {
		writeError(w, http.StatusBadRequest, "invalid_year", "year must be a positive integer")
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "invalid_month", "month must be between 1 and 12")
		return
	}

	appts, err := h.svc.ListForPatient(r.Context(), patientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	cells := calendar.MonthGrid(year, time.Month(month), appts, nil, time.Now())

	resp := CalendarResponse{
		Year:  year,
		Month: month,
		Days:  make([]CalendarDayResponse, 0, len(cells)),
	}
	for _, c := range cells {
		resp.Days = append(resp.Days, CalendarDayResponse{
			Date:           c.Date.Format("2006-01-02"),
			Day:            c.Day,
			HasAppointment: c.HasAppointment,
			Indicators:     c.Indicators,
			IsPast:         c.IsPast,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
