package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinicore/scheduling-engine/internal/schedule"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides persistence for appointments.
type Store struct {
	db DB
}

// NewStore creates an appointment store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const appointmentColumns = `id, doctor_id, patient_ref, scheduled_at, status, is_completed, note, cancellation_reason, reschedule_note, created_at, updated_at`

// Create inserts a new appointment in the awaiting state.
func (s *Store) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Status = StatusAwaiting
	a.IsCompleted = false
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.db.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.DoctorID, a.PatientRef, a.ScheduledAt, string(a.Status), a.IsCompleted,
		a.Note, a.CancellationReason, a.RescheduleNote, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("appointments: create: %w", err)
	}
	return nil
}

// Get loads a single appointment by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	var (
		a      Appointment
		status string
	)
	err := s.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id).
		Scan(&a.ID, &a.DoctorID, &a.PatientRef, &a.ScheduledAt, &status, &a.IsCompleted,
			&a.Note, &a.CancellationReason, &a.RescheduleNote, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: appointment %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: load: %w", err)
	}
	a.Status = Status(status)
	return &a, nil
}

// SaveTransition writes the mutable lifecycle fields of an appointment.
// The state machine uses it both to apply a transition and to roll one
// back, so it overwrites all fields a transition may touch.
func (s *Store) SaveTransition(ctx context.Context, a *Appointment) error {
	a.UpdatedAt = time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments
		SET doctor_id = $1, scheduled_at = $2, status = $3, is_completed = $4,
		    cancellation_reason = $5, reschedule_note = $6, updated_at = $7
		WHERE id = $8`,
		a.DoctorID, a.ScheduledAt, string(a.Status), a.IsCompleted,
		a.CancellationReason, a.RescheduleNote, a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("appointments: save transition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: appointment %s", ErrNotFound, a.ID)
	}
	return nil
}

// BookedMinutes returns the start minutes of the doctor's non-cancelled
// appointments on the date. Feeds availability generation and makes an
// exact-minute match the conflict rule.
func (s *Store) BookedMinutes(ctx context.Context, doctorID uuid.UUID, date schedule.DateKey) (map[int]struct{}, error) {
	dayStart := date.Time()
	dayEnd := dayStart.AddDate(0, 0, 1)
	rows, err := s.db.Query(ctx, `
		SELECT scheduled_at FROM appointments
		WHERE doctor_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3 AND status <> 'cancelled'`,
		doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("appointments: booked minutes: %w", err)
	}
	defer rows.Close()

	minutes := make(map[int]struct{})
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("appointments: scan booked minute: %w", err)
		}
		at = at.UTC()
		minutes[at.Hour()*60+at.Minute()] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate booked minutes: %w", err)
	}
	return minutes, nil
}
