package slotgrid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllIsOrderedAndSkipsLunch(t *testing.T) {
	slots := All()
	require.Len(t, slots, 16)

	assert.Equal(t, "08:00", slots[0].String())
	assert.Equal(t, "11:30", slots[7].String())
	assert.Equal(t, "13:00", slots[8].String())
	assert.Equal(t, "16:30", slots[15].String())

	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i-1].Before(slots[i]), "slots out of order at %d", i)
	}
	for _, s := range slots {
		assert.NotEqual(t, 12, s.Minutes()/60, "lunch slot leaked into grid: %s", s)
	}
}

func TestAllReturnsFreshCopy(t *testing.T) {
	a := All()
	a[0] = New(23, 0)
	assert.Equal(t, "08:00", All()[0].String())
}

func TestDisplayRoundTrip(t *testing.T) {
	for _, s := range All() {
		got, err := Parse12(s.Display())
		require.NoError(t, err, "slot %s", s)
		assert.Equal(t, s, got, "12-hour round trip for %s", s)
	}
}

func TestStorageRoundTrip(t *testing.T) {
	for _, s := range All() {
		got, err := Parse24(s.String())
		require.NoError(t, err, "slot %s", s)
		assert.Equal(t, s, got, "24-hour round trip for %s", s)
	}
}

func TestDisplayForms(t *testing.T) {
	cases := []struct {
		hour, minute int
		display      string
	}{
		{8, 0, "8:00 AM"},
		{11, 30, "11:30 AM"},
		{12, 0, "12:00 PM"},
		{13, 0, "1:00 PM"},
		{16, 30, "4:30 PM"},
		{0, 15, "12:15 AM"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.display, New(tc.hour, tc.minute).Display())
	}
}

func TestParse12Midnight(t *testing.T) {
	s, err := Parse12("12:00 AM")
	require.NoError(t, err)
	assert.Equal(t, 0, s.Minutes())
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, v := range []string{"", "9", "25:00", "09:61", "nine am"} {
		_, err := Parse24(v)
		assert.ErrorIs(t, err, ErrInvalidSlot, "Parse24(%q)", v)
	}
	for _, v := range []string{"", "9:00", "13:00 PM", "9:00 XM", "0:30 AM"} {
		_, err := Parse12(v)
		assert.ErrorIs(t, err, ErrInvalidSlot, "Parse12(%q)", v)
	}
}

func TestContains(t *testing.T) {
	assert.True(t, Contains(New(9, 0)))
	assert.True(t, Contains(New(16, 30)))
	assert.False(t, Contains(New(12, 0)), "lunch")
	assert.False(t, Contains(New(9, 15)), "off-grid minute")
	assert.False(t, Contains(New(17, 0)), "after closing")
	assert.False(t, Contains(New(7, 30)), "before opening")
}

func TestAt(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	got := New(9, 30).At(day)
	assert.Equal(t, time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC), got)
}
