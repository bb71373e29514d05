package schedule

import (
	"context"

	"github.com/google/uuid"
)

// SlotSource is the slice of the store the resolver needs.
type SlotSource interface {
	SlotsByDate(ctx context.Context, doctorID uuid.UUID, date DateKey) ([]Slot, error)
	SlotsByWeekday(ctx context.Context, doctorID uuid.UUID, weekday int) ([]Slot, error)
}

// Resolver produces the authoritative slot set for a doctor and date.
//
// Date-specific slots win by presence: when any exist for the date they are
// returned regardless of status and recurring slots are ignored entirely.
// Otherwise the recurring slots for the date's ISO weekday apply. An empty
// result means "no schedule info", not "day off" — a day holding only
// vacation or sick-leave slots resolves non-empty and marks the doctor
// explicitly unavailable.
type Resolver struct {
	slots SlotSource
}

// NewResolver creates a resolver over the given slot source.
func NewResolver(slots SlotSource) *Resolver {
	return &Resolver{slots: slots}
}

// Resolve returns the effective slots for the doctor on the date, ordered by
// start minute.
func (r *Resolver) Resolve(ctx context.Context, doctorID uuid.UUID, date DateKey) ([]Slot, error) {
	dated, err := r.slots.SlotsByDate(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	if len(dated) > 0 {
		return dated, nil
	}
	return r.slots.SlotsByWeekday(ctx, doctorID, date.ISOWeekday())
}
