package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/clinic-scheduling/internal/slotgrid"
)

func TestResolveFullGridWhenEmpty(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor()
	resolver := NewAvailabilityResolver(repo)

	got, err := resolver.Resolve(context.Background(), doctorID, testDate)
	require.NoError(t, err)

	grid := slotgrid.All()
	require.Len(t, got, len(grid))
	for i, sa := range got {
		assert.Equal(t, grid[i], sa.Slot, "grid order preserved")
		assert.False(t, sa.Booked)
	}
}

func TestResolveExcludesBookedSlot(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor()
	patientID := repo.addPatient()
	resolver := NewAvailabilityResolver(repo)

	// Confirmed appointment at 2024-06-10 09:00.
	repo.put(&Appointment{
		ID: uuid.New(), DoctorID: doctorID, PatientID: patientID,
		Date: testDate, Slot: slotgrid.New(9, 0), Status: StatusConfirmed,
	})

	got, err := resolver.Resolve(context.Background(), doctorID, testDate)
	require.NoError(t, err)

	byDisplay := make(map[string]bool)
	for _, sa := range got {
		byDisplay[sa.Slot.Display()] = sa.Booked
	}
	assert.True(t, byDisplay["9:00 AM"], "9:00 AM is booked")
	assert.False(t, byDisplay["9:30 AM"], "9:30 AM stays available")
}

func TestResolveComplementProperty(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor()
	patientID := repo.addPatient()
	resolver := NewAvailabilityResolver(repo)

	statuses := []Status{StatusRequested, StatusConfirmed, StatusCancelled, StatusRescheduled, StatusCompleted, StatusNoShow}
	grid := slotgrid.All()
	wantBooked := make(map[slotgrid.Slot]bool)
	for i, st := range statuses {
		slot := grid[i*2]
		repo.put(&Appointment{
			ID: uuid.New(), DoctorID: doctorID, PatientID: patientID,
			Date: testDate, Slot: slot, Status: st,
		})
		if st != StatusCancelled {
			wantBooked[slot] = true
		}
	}

	got, err := resolver.Resolve(context.Background(), doctorID, testDate)
	require.NoError(t, err)
	require.Len(t, got, len(grid))
	for _, sa := range got {
		assert.Equal(t, wantBooked[sa.Slot], sa.Booked, "slot %s", sa.Slot)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor()
	patientID := repo.addPatient()
	resolver := NewAvailabilityResolver(repo)

	repo.put(&Appointment{
		ID: uuid.New(), DoctorID: doctorID, PatientID: patientID,
		Date: testDate, Slot: slotgrid.New(13, 30), Status: StatusRequested,
	})

	first, err := resolver.Resolve(context.Background(), doctorID, testDate)
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), doctorID, testDate)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveUnknownDoctor(t *testing.T) {
	resolver := NewAvailabilityResolver(newFakeRepo())

	_, err := resolver.Resolve(context.Background(), uuid.New(), testDate)
	assert.True(t, IsNotFound(err))
}

func TestResolveIgnoresOtherDoctorsAndDates(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor()
	otherDoctor := repo.addDoctor()
	patientID := repo.addPatient()
	resolver := NewAvailabilityResolver(repo)

	otherDate := time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)
	repo.put(&Appointment{
		ID: uuid.New(), DoctorID: otherDoctor, PatientID: patientID,
		Date: testDate, Slot: slotgrid.New(9, 0), Status: StatusConfirmed,
	})
	repo.put(&Appointment{
		ID: uuid.New(), DoctorID: doctorID, PatientID: patientID,
		Date: otherDate, Slot: slotgrid.New(9, 0), Status: StatusConfirmed,
	})

	got, err := resolver.Resolve(context.Background(), doctorID, testDate)
	require.NoError(t, err)
	for _, sa := range got {
		assert.False(t, sa.Booked, "slot %s", sa.Slot)
	}
}

func TestCheckExcludesSelf(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor()
	patientID := repo.addPatient()
	resolver := NewAvailabilityResolver(repo)

	id := uuid.New()
	repo.put(&Appointment{
		ID: id, DoctorID: doctorID, PatientID: patientID,
		Date: testDate, Slot: slotgrid.New(9, 0), Status: StatusConfirmed,
	})

	err := resolver.Check(context.Background(), doctorID, testDate, slotgrid.New(9, 0), id)
	assert.NoError(t, err, "an appointment does not conflict with itself")

	err = resolver.Check(context.Background(), doctorID, testDate, slotgrid.New(9, 0), uuid.Nil)
	assert.True(t, IsSlotConflict(err))
}
