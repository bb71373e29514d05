package appointments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clinicore/scheduling-engine/internal/schedule"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		legal    bool
	}{
		{StatusAwaiting, StatusAccepted, true},
		{StatusAwaiting, StatusCancelled, true},
		{StatusAwaiting, StatusScheduled, false},
		{StatusAwaiting, StatusCompleted, false},
		{StatusAccepted, StatusScheduled, true},
		{StatusAccepted, StatusCompleted, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusAccepted, StatusAwaiting, false},
		{StatusScheduled, StatusAccepted, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusCompleted, false},
		{StatusCancelled, StatusAccepted, false},
		{StatusCompleted, StatusCancelled, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.legal, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusAwaiting.Terminal())
	assert.False(t, StatusAccepted.Terminal())
	assert.False(t, StatusScheduled.Terminal())
}

func TestAppointmentDateAndMinute(t *testing.T) {
	a := Appointment{ScheduledAt: time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)}
	assert.Equal(t, schedule.DateKey("2026-03-02"), a.DateKey())
	assert.Equal(t, 10*60+30, a.MinuteOfDay())
}
