package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/clinic-scheduling/internal/redisclient"
	"github.com/careloop/clinic-scheduling/internal/slotgrid"
)

var errLockContended = redisclient.ErrLockNotAcquired

// fakeRepo is an in-memory Repository honoring the same contracts as the
// Postgres implementation: CAS status updates and the uniqueness backstop on
// (doctor, date, slot) for non-cancelled rows.
type fakeRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*Patient
	doctors  map[uuid.UUID]*Doctor
	appts    map[uuid.UUID]*Appointment
	events   []TransitionEvent
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		patients: make(map[uuid.UUID]*Patient),
		doctors:  make(map[uuid.UUID]*Doctor),
		appts:    make(map[uuid.UUID]*Appointment),
	}
}

func (f *fakeRepo) addPatient() uuid.UUID {
	id := uuid.New()
	f.patients[id] = &Patient{ID: id, Name: "patient"}
	return id
}

func (f *fakeRepo) addDoctor() uuid.UUID {
	id := uuid.New()
	f.doctors[id] = &Doctor{ID: id, Name: "doctor"}
	return id
}

func (f *fakeRepo) put(a *Appointment) {
	cp := *a
	f.appts[a.ID] = &cp
}

func (f *fakeRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patients[id]
	if !ok {
		return nil, &NotFoundError{Entity: "patient", ID: id}
	}
	return p, nil
}

func (f *fakeRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.doctors[id]
	if !ok {
		return nil, &NotFoundError{Entity: "doctor", ID: id}
	}
	return d, nil
}

func (f *fakeRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok {
		return nil, &NotFoundError{Entity: "appointment", ID: id}
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) ListActiveByDoctorDate(_ context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Appointment
	for _, a := range f.appts {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Status != StatusCancelled {
			out = append(out, *a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (f *fakeRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Appointment
	for _, a := range f.appts {
		if a.PatientID == patientID {
			out = append(out, *a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (f *fakeRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Appointment
	for _, a := range f.appts {
		if a.DoctorID == doctorID {
			out = append(out, *a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (f *fakeRepo) slotTaken(doctorID uuid.UUID, date time.Time, slot slotgrid.Slot, exclude uuid.UUID) bool {
	for _, a := range f.appts {
		if a.ID != exclude && a.DoctorID == doctorID && a.Date.Equal(date) && a.Slot == slot && a.Status != StatusCancelled {
			return true
		}
	}
	return false
}

func (f *fakeRepo) InsertRequested(_ context.Context, a *Appointment) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.slotTaken(a.DoctorID, a.Date, a.Slot, uuid.Nil) {
		return nil, &SlotConflict{DoctorID: a.DoctorID, Date: a.Date, Slot: a.Slot}
	}
	cp := *a
	cp.Status = StatusRequested
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.appts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status, at time.Time) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok || a.Status != from {
		return nil, &NotFoundError{Entity: "appointment", ID: id}
	}
	a.Status = to
	a.UpdatedAt = at
	if to == StatusConfirmed {
		t := at
		a.ConfirmedAt = &t
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) CancelAppointment(_ context.Context, id uuid.UUID, from Status, reason string, at time.Time) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok || a.Status != from {
		return nil, &NotFoundError{Entity: "appointment", ID: id}
	}
	a.Status = StatusCancelled
	if reason != "" {
		a.CancelReason = &reason
	}
	t := at
	a.CancelledAt = &t
	a.UpdatedAt = at
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) RescheduleAppointment(_ context.Context, id uuid.UUID, from Status, newDate time.Time, newSlot slotgrid.Slot, reason string) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok || a.Status != from {
		return nil, &NotFoundError{Entity: "appointment", ID: id}
	}
	if f.slotTaken(a.DoctorID, newDate, newSlot, id) {
		return nil, &SlotConflict{DoctorID: a.DoctorID, Date: newDate, Slot: newSlot}
	}
	a.Status = StatusRescheduled
	a.Date = newDate
	a.Slot = newSlot
	a.RescheduleReason = &reason
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) DeleteAppointment(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.appts[id]; !ok {
		return &NotFoundError{Entity: "appointment", ID: id}
	}
	delete(f.appts, id)
	return nil
}

func (f *fakeRepo) FindDueOpen(_ context.Context, cutoff time.Time) ([]Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Appointment
	for _, a := range f.appts {
		if a.Status.Terminal() {
			continue
		}
		if a.StartTime().Before(cutoff) {
			out = append(out, *a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (f *fakeRepo) InsertEvent(_ context.Context, ev TransitionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func sortAppointments(appts []Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		if !appts[i].Date.Equal(appts[j].Date) {
			return appts[i].Date.Before(appts[j].Date)
		}
		return appts[i].Slot.Before(appts[j].Slot)
	})
}

// fakeLocker runs the critical section inline; set contended to simulate a
// concurrent holder.
type fakeLocker struct {
	contended bool
	keys      []string
}

func (l *fakeLocker) WithBookingLock(ctx context.Context, doctorID uuid.UUID, date time.Time, slot slotgrid.Slot, fn func(ctx context.Context) error) error {
	if l.contended {
		return errLockContended
	}
	l.keys = append(l.keys, doctorID.String()+":"+date.Format("2006-01-02")+":"+slot.String())
	return fn(ctx)
}

// captureNotifier records delivered events.
type captureNotifier struct {
	events []TransitionEvent
}

func (n *captureNotifier) Notify(_ context.Context, ev TransitionEvent) {
	n.events = append(n.events, ev)
}
