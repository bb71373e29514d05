package schedule

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSlotSource struct {
	byDate    map[DateKey][]Slot
	byWeekday map[int][]Slot
}

func (f *fakeSlotSource) SlotsByDate(_ context.Context, _ uuid.UUID, date DateKey) ([]Slot, error) {
	return f.byDate[date], nil
}

func (f *fakeSlotSource) SlotsByWeekday(_ context.Context, _ uuid.UUID, weekday int) ([]Slot, error) {
	return f.byWeekday[weekday], nil
}

func TestResolveOverrideWins(t *testing.T) {
	doctorID := uuid.New()
	monday := DateKey("2026-03-02")

	recurring := Slot{ID: uuid.New(), DayOfWeek: intPtr(1), StartMinute: 9 * 60, EndMinute: 12 * 60, Status: StatusWorking, Type: TypeNFZ}
	override := Slot{ID: uuid.New(), SpecificDate: &monday, StartMinute: 8 * 60, EndMinute: 16 * 60, Status: StatusVacation}

	src := &fakeSlotSource{
		byDate:    map[DateKey][]Slot{monday: {override}},
		byWeekday: map[int][]Slot{1: {recurring}},
	}
	resolver := NewResolver(src)

	slots, err := resolver.Resolve(context.Background(), doctorID, monday)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, override.ID, slots[0].ID, "date-specific slot must shadow the recurring one")
	assert.Equal(t, StatusVacation, slots[0].Status, "override wins regardless of status")
}

func TestResolveFallsBackToRecurring(t *testing.T) {
	doctorID := uuid.New()
	monday := DateKey("2026-03-02")

	recurring := Slot{ID: uuid.New(), DayOfWeek: intPtr(1), StartMinute: 9 * 60, EndMinute: 12 * 60, Status: StatusWorking, Type: TypeNFZ}
	src := &fakeSlotSource{
		byDate:    map[DateKey][]Slot{},
		byWeekday: map[int][]Slot{1: {recurring}},
	}

	slots, err := NewResolver(src).Resolve(context.Background(), doctorID, monday)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, recurring.ID, slots[0].ID)

	// Tuesday has neither overrides nor recurring slots: empty means
	// "no schedule info", not an error.
	tuesday := DateKey("2026-03-03")
	slots, err = NewResolver(src).Resolve(context.Background(), doctorID, tuesday)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestResolveAbsenceOnlyDayIsValid(t *testing.T) {
	doctorID := uuid.New()
	monday := DateKey("2026-03-02")
	sick := Slot{ID: uuid.New(), SpecificDate: &monday, StartMinute: 8 * 60, EndMinute: 16 * 60, Status: StatusSickLeave}

	src := &fakeSlotSource{
		byDate:    map[DateKey][]Slot{monday: {sick}},
		byWeekday: map[int][]Slot{},
	}
	slots, err := NewResolver(src).Resolve(context.Background(), doctorID, monday)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.True(t, slots[0].Status.Absence(), "explicitly unavailable is distinct from unscheduled")
}
