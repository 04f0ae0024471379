package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/clinic-scheduling/internal/slotgrid"
)

func apptAt(status Status, date time.Time, slot slotgrid.Slot) *Appointment {
	return &Appointment{
		Status: status,
		Date:   date,
		Slot:   slot,
	}
}

func TestCanTransitionTable(t *testing.T) {
	l := NewLifecycle(0)

	allowed := []struct{ from, to Status }{
		{StatusRequested, StatusConfirmed},
		{StatusRequested, StatusCancelled},
		{StatusRequested, StatusRescheduled},
		{StatusRequested, StatusNoShow},
		{StatusConfirmed, StatusCancelled},
		{StatusConfirmed, StatusRescheduled},
		{StatusConfirmed, StatusCompleted},
		{StatusConfirmed, StatusNoShow},
		{StatusRescheduled, StatusConfirmed},
	}
	for _, tc := range allowed {
		assert.NoError(t, l.CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	denied := []struct{ from, to Status }{
		{StatusConfirmed, StatusRequested},
		{StatusRescheduled, StatusCancelled},
		{StatusRequested, StatusRequested},
	}
	for _, tc := range denied {
		err := l.CanTransition(tc.from, tc.to)
		assert.True(t, IsPolicyViolation(err), "%s -> %s should be rejected", tc.from, tc.to)
	}
}

func TestTerminalStatusesAcceptNoTransition(t *testing.T) {
	l := NewLifecycle(0)
	targets := []Status{StatusRequested, StatusConfirmed, StatusCancelled, StatusRescheduled, StatusCompleted, StatusNoShow}

	for _, from := range []Status{StatusCancelled, StatusCompleted, StatusNoShow} {
		for _, to := range targets {
			err := l.CanTransition(from, to)
			require.Error(t, err, "%s -> %s", from, to)
			var pv *PolicyViolation
			require.ErrorAs(t, err, &pv)
			assert.Equal(t, RuleTerminalStatus, pv.Rule)
		}
	}
}

func TestCanCancelRequestedAnyTime(t *testing.T) {
	l := NewLifecycle(0)
	date := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	a := apptAt(StatusRequested, date, slotgrid.New(10, 0))

	// Even five minutes before the requested slot.
	now := time.Date(2024, 6, 15, 9, 55, 0, 0, time.UTC)
	assert.NoError(t, l.CanCancel(a, now))
}

func TestCanCancelConfirmedWindow(t *testing.T) {
	l := NewLifecycle(24 * time.Hour)
	date := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	a := apptAt(StatusConfirmed, date, slotgrid.New(10, 0)) // starts 2024-06-15 10:00

	cases := []struct {
		name string
		now  time.Time
		ok   bool
	}{
		{"well outside window", time.Date(2024, 6, 14, 9, 30, 0, 0, time.UTC), true},
		{"exactly 24h before", time.Date(2024, 6, 14, 10, 0, 0, 0, time.UTC), true},
		{"one second inside window", time.Date(2024, 6, 14, 10, 0, 1, 0, time.UTC), false},
		{"inside window", time.Date(2024, 6, 14, 10, 30, 0, 0, time.UTC), false},
		{"after start", time.Date(2024, 6, 15, 11, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := l.CanCancel(a, tc.now)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			var pv *PolicyViolation
			require.ErrorAs(t, err, &pv)
			assert.Equal(t, RuleCancelWindow, pv.Rule)
		})
	}
}

func TestCanCancelOtherStatuses(t *testing.T) {
	l := NewLifecycle(0)
	date := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, st := range []Status{StatusCancelled, StatusRescheduled, StatusCompleted, StatusNoShow} {
		err := l.CanCancel(apptAt(st, date, slotgrid.New(10, 0)), now)
		assert.True(t, IsPolicyViolation(err), "status %s", st)
	}
}

func TestCanReschedule(t *testing.T) {
	l := NewLifecycle(0)
	date := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	slot := slotgrid.New(10, 0)
	before := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	after := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	assert.NoError(t, l.CanReschedule(apptAt(StatusRequested, date, slot), after), "requested ignores timing")
	assert.NoError(t, l.CanReschedule(apptAt(StatusRescheduled, date, slot), after), "rescheduled recovers via new slot")
	assert.NoError(t, l.CanReschedule(apptAt(StatusConfirmed, date, slot), before))
	assert.True(t, IsPolicyViolation(l.CanReschedule(apptAt(StatusConfirmed, date, slot), after)), "confirmed past start")

	for _, st := range []Status{StatusCancelled, StatusCompleted, StatusNoShow} {
		assert.True(t, IsPolicyViolation(l.CanReschedule(apptAt(st, date, slot), before)), "status %s", st)
	}
}

func TestCanClose(t *testing.T) {
	l := NewLifecycle(0)
	date := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	slot := slotgrid.New(10, 0)
	beforeStart := time.Date(2024, 6, 15, 9, 59, 0, 0, time.UTC)
	afterStart := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	assert.NoError(t, l.CanClose(apptAt(StatusConfirmed, date, slot), StatusCompleted, afterStart))
	assert.NoError(t, l.CanClose(apptAt(StatusRequested, date, slot), StatusNoShow, afterStart))

	err := l.CanClose(apptAt(StatusConfirmed, date, slot), StatusCompleted, beforeStart)
	var pv *PolicyViolation
	require.ErrorAs(t, err, &pv)
	assert.Equal(t, RuleNotYetDue, pv.Rule)

	assert.True(t, IsPolicyViolation(l.CanClose(apptAt(StatusCancelled, date, slot), StatusNoShow, afterStart)))
	assert.True(t, IsPolicyViolation(l.CanClose(apptAt(StatusConfirmed, date, slot), StatusCancelled, afterStart)), "cancelled is not a closing status")
}

func TestCanHardDelete(t *testing.T) {
	l := NewLifecycle(0)
	date := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	slot := slotgrid.New(10, 0)

	assert.NoError(t, l.CanHardDelete(apptAt(StatusCancelled, date, slot)))
	assert.NoError(t, l.CanHardDelete(apptAt(StatusRescheduled, date, slot)))

	for _, st := range []Status{StatusRequested, StatusConfirmed, StatusCompleted, StatusNoShow} {
		err := l.CanHardDelete(apptAt(st, date, slot))
		var pv *PolicyViolation
		require.ErrorAs(t, err, &pv, "status %s", st)
		assert.Equal(t, RuleRemovableStatus, pv.Rule)
	}
}
