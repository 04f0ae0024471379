package slotgrid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Slot is a bookable time of day from the clinic grid, stored as minutes
// since midnight. Equality is plain value equality, so two slots parsed
// from "09:00" and "9:00 AM" compare equal.
type Slot struct {
	minutes int
}

var ErrInvalidSlot = errors.New("invalid slot time")

const SlotDuration = 30 * time.Minute

// Clinic day: half-hour slots 08:00-11:30 and 13:00-16:30, lunch excluded.
const (
	morningStart   = 8 * 60
	morningEnd     = 12 * 60
	afternoonStart = 13 * 60
	afternoonEnd   = 17 * 60
	stepMinutes    = 30
)

// All returns the canonical ordered slot catalog. The content is fixed and
// ascending; callers may not mutate the returned slice assumptions but get
// a fresh copy each call.
func All() []Slot {
	var slots []Slot
	for m := morningStart; m < morningEnd; m += stepMinutes {
		slots = append(slots, Slot{minutes: m})
	}
	for m := afternoonStart; m < afternoonEnd; m += stepMinutes {
		slots = append(slots, Slot{minutes: m})
	}
	return slots
}

// New builds a slot from an hour and minute without grid membership checks.
// Used by tests and seeding; persisted values go through Parse24.
func New(hour, minute int) Slot {
	return Slot{minutes: hour*60 + minute}
}

// Contains reports whether s is a member of the clinic grid.
func Contains(s Slot) bool {
	if s.minutes%stepMinutes != 0 {
		return false
	}
	if s.minutes >= morningStart && s.minutes < morningEnd {
		return true
	}
	return s.minutes >= afternoonStart && s.minutes < afternoonEnd
}

// String renders the 24-hour storage form, e.g. "09:00" or "15:30".
func (s Slot) String() string {
	return fmt.Sprintf("%02d:%02d", s.minutes/60, s.minutes%60)
}

// Display renders the 12-hour presentation form, e.g. "9:00 AM" or "3:30 PM".
func (s Slot) Display() string {
	h := s.minutes / 60
	m := s.minutes % 60
	meridiem := "AM"
	switch {
	case h == 0:
		h = 12
	case h == 12:
		meridiem = "PM"
	case h > 12:
		h -= 12
		meridiem = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", h, m, meridiem)
}

// Minutes returns minutes since midnight.
func (s Slot) Minutes() int {
	return s.minutes
}

// At anchors the slot on a calendar day, yielding the appointment start instant.
func (s Slot) At(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), s.minutes/60, s.minutes%60, 0, 0, day.Location())
}

// Before reports grid ordering.
func (s Slot) Before(other Slot) bool {
	return s.minutes < other.minutes
}

// Parse24 parses the storage form "15:04".
func Parse24(v string) (Slot, error) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidSlot, v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidSlot, v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidSlot, v)
	}
	return Slot{minutes: h*60 + m}, nil
}

// Parse12 parses the display form "3:04 PM". Inverse of Display for every
// grid slot.
func Parse12(v string) (Slot, error) {
	fields := strings.Fields(strings.TrimSpace(v))
	if len(fields) != 2 {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidSlot, v)
	}
	meridiem := strings.ToUpper(fields[1])
	if meridiem != "AM" && meridiem != "PM" {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidSlot, v)
	}
	parts := strings.SplitN(fields[0], ":", 2)
	if len(parts) != 2 {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidSlot, v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 1 || h > 12 {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidSlot, v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidSlot, v)
	}
	if meridiem == "AM" {
		if h == 12 {
			h = 0
		}
	} else if h != 12 {
		h += 12
	}
	return Slot{minutes: h*60 + m}, nil
}
