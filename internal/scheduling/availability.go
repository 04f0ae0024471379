package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/clinic-scheduling/internal/slotgrid"
)

// AvailabilityResolver computes the free subset of the clinic grid for a
// doctor on a calendar day. It is a read-only, advisory check: two callers
// can both see a slot as free, and the storage uniqueness backstop decides
// who actually gets it at write time.
type AvailabilityResolver struct {
	repo Repository
}

func NewAvailabilityResolver(repo Repository) *AvailabilityResolver {
	return &AvailabilityResolver{repo: repo}
}

// Resolve returns every grid slot in catalog order, tagged booked when a
// non-cancelled appointment for the doctor occupies it on that date.
// Past dates are permitted; filtering them is the caller's concern.
func (r *AvailabilityResolver) Resolve(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]SlotAvailability, error) {
	if _, err := r.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	appts, err := r.repo.ListActiveByDoctorDate(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	booked := make(map[slotgrid.Slot]bool, len(appts))
	for _, a := range appts {
		booked[a.Slot] = true
	}

	grid := slotgrid.All()
	out := make([]SlotAvailability, 0, len(grid))
	for _, s := range grid {
		out = append(out, SlotAvailability{Slot: s, Booked: booked[s]})
	}
	return out, nil
}

// Check reports a SlotConflict when the slot is already held by a
// non-cancelled appointment other than exclude (pass uuid.Nil for none).
// Advisory only; the write still re-verifies via the unique index.
func (r *AvailabilityResolver) Check(ctx context.Context, doctorID uuid.UUID, date time.Time, slot slotgrid.Slot, exclude uuid.UUID) error {
	appts, err := r.repo.ListActiveByDoctorDate(ctx, doctorID, date)
	if err != nil {
		return fmt.Errorf("list appointments: %w", err)
	}
	for _, a := range appts {
		if a.Slot == slot && a.ID != exclude {
			return &SlotConflict{DoctorID: doctorID, Date: date, Slot: slot}
		}
	}
	return nil
}
