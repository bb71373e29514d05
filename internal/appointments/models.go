// Package appointments governs the appointment lifecycle: a single-status
// state machine with optimistic updates and explicit rollback.
package appointments

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling-engine/internal/schedule"
)

// Sentinel errors surfaced by lifecycle operations.
var (
	ErrNotFound               = errors.New("appointments: not found")
	ErrIllegalStateTransition = errors.New("appointments: illegal state transition")
	ErrOperationInFlight      = errors.New("appointments: operation already in flight")
	ErrPersistenceFailure     = errors.New("appointments: persistence failure")
)

// Status is the single authoritative lifecycle state of an appointment.
// The historical tag-set representation collapsed into this enum; the
// separate IsCompleted flag stays authoritative for "did the visit happen".
type Status string

const (
	StatusAwaiting  Status = "awaiting"
	StatusAccepted  Status = "accepted"
	StatusScheduled Status = "scheduled" // rescheduled, pending the new time
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

var transitions = map[Status][]Status{
	StatusAwaiting:  {StatusAccepted, StatusCancelled},
	StatusAccepted:  {StatusScheduled, StatusCompleted, StatusCancelled},
	StatusScheduled: {StatusAccepted, StatusCancelled},
}

// Terminal reports whether no transition leads out of the status.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// CanTransitionTo reports whether the move s -> to is legal.
func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Appointment is one patient visit with one doctor.
type Appointment struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	PatientRef  string    `json:"patient_ref"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      Status    `json:"status"`
	// IsCompleted is checked before the status when a caller needs to know
	// whether the visit actually happened.
	IsCompleted        bool      `json:"is_completed"`
	Note               string    `json:"note,omitempty"`
	CancellationReason string    `json:"cancellation_reason,omitempty"`
	RescheduleNote     string    `json:"reschedule_note,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DateKey returns the calendar date of the visit.
func (a *Appointment) DateKey() schedule.DateKey {
	return schedule.DateKeyFromTime(a.ScheduledAt.UTC())
}

// MinuteOfDay returns the visit start as a minute of day.
func (a *Appointment) MinuteOfDay() int {
	t := a.ScheduledAt.UTC()
	return t.Hour()*60 + t.Minute()
}
