package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store provides persistence for doctors, schedules and slots.
type Store struct {
	db DB
}

// NewStore creates a schedule store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const slotColumns = `id, schedule_id, doctor_id, day_of_week, specific_date, start_minute, end_minute, status, slot_type, room, consultation_fee_cents, appointment_duration_minutes, created_at, updated_at`

// GetDoctor loads the scheduling attributes of a doctor.
func (s *Store) GetDoctor(ctx context.Context, doctorID uuid.UUID) (*Doctor, error) {
	var d Doctor
	err := s.db.QueryRow(ctx, `
		SELECT id, full_name, appointment_duration_minutes, break_duration_minutes, active
		FROM doctors WHERE id = $1`, doctorID).
		Scan(&d.ID, &d.FullName, &d.AppointmentDurationMins, &d.BreakDurationMins, &d.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: doctor %s", ErrNotFound, doctorID)
	}
	if err != nil {
		return nil, fmt.Errorf("schedule: load doctor: %w", err)
	}
	return &d, nil
}

// EnsureActiveSchedule returns the doctor's active schedule, creating one
// lazily on first use. A partial unique index on (doctor_id) WHERE is_active
// makes concurrent creation safe.
func (s *Store) EnsureActiveSchedule(ctx context.Context, doctorID uuid.UUID) (*Schedule, error) {
	now := time.Now().UTC()
	weekStart := now.AddDate(0, 0, -(isoWeekday(now) - 1))
	weekEnd := weekStart.AddDate(0, 0, 6)

	_, err := s.db.Exec(ctx, `
		INSERT INTO schedules (id, doctor_id, week_start, week_end, is_active, created_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		ON CONFLICT (doctor_id) WHERE is_active DO NOTHING`,
		uuid.New(), doctorID, weekStart, weekEnd, now)
	if err != nil {
		return nil, fmt.Errorf("schedule: ensure active schedule: %w", err)
	}

	var (
		sched  Schedule
		ws, we time.Time
	)
	err = s.db.QueryRow(ctx, `
		SELECT id, doctor_id, week_start, week_end, is_active, created_at
		FROM schedules WHERE doctor_id = $1 AND is_active`, doctorID).
		Scan(&sched.ID, &sched.DoctorID, &ws, &we, &sched.IsActive, &sched.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: active schedule for doctor %s", ErrNotFound, doctorID)
	}
	if err != nil {
		return nil, fmt.Errorf("schedule: load active schedule: %w", err)
	}
	sched.WeekStart = DateKeyFromTime(ws)
	sched.WeekEnd = DateKeyFromTime(we)
	return &sched, nil
}

// CreateSlot inserts a validated slot row.
func (s *Store) CreateSlot(ctx context.Context, slot *Slot) error {
	if err := slot.Validate(); err != nil {
		return err
	}
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	now := time.Now().UTC()
	slot.CreatedAt = now
	slot.UpdatedAt = now

	var specific any
	if slot.SpecificDate != nil {
		specific = slot.SpecificDate.Time()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO schedule_slots (`+slotColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		slot.ID, slot.ScheduleID, slot.DoctorID, slot.DayOfWeek, specific,
		slot.StartMinute, slot.EndMinute, string(slot.Status), string(slot.Type),
		slot.Room, slot.ConsultationFeeCents, slot.AppointmentDurationMins,
		slot.CreatedAt, slot.UpdatedAt)
	if err != nil {
		return fmt.Errorf("schedule: create slot: %w", err)
	}
	return nil
}

// GetSlot loads a single slot by id.
func (s *Store) GetSlot(ctx context.Context, slotID uuid.UUID) (*Slot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+slotColumns+` FROM schedule_slots WHERE id = $1`, slotID)
	if err != nil {
		return nil, fmt.Errorf("schedule: load slot: %w", err)
	}
	defer rows.Close()
	slots, err := scanSlots(rows)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("%w: slot %s", ErrNotFound, slotID)
	}
	return &slots[0], nil
}

// DeleteSlot removes a slot row.
func (s *Store) DeleteSlot(ctx context.Context, slotID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM schedule_slots WHERE id = $1`, slotID)
	if err != nil {
		return fmt.Errorf("schedule: delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: slot %s", ErrNotFound, slotID)
	}
	return nil
}

// SlotsByDate returns the doctor's date-specific slots for the exact date,
// ordered by start minute.
func (s *Store) SlotsByDate(ctx context.Context, doctorID uuid.UUID, date DateKey) ([]Slot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+slotColumns+` FROM schedule_slots
		WHERE doctor_id = $1 AND specific_date = $2
		ORDER BY start_minute ASC`, doctorID, date.Time())
	if err != nil {
		return nil, fmt.Errorf("schedule: slots by date: %w", err)
	}
	defer rows.Close()
	return scanSlots(rows)
}

// SlotsByWeekday returns the doctor's recurring slots for an ISO weekday,
// ordered by start minute.
func (s *Store) SlotsByWeekday(ctx context.Context, doctorID uuid.UUID, weekday int) ([]Slot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+slotColumns+` FROM schedule_slots
		WHERE doctor_id = $1 AND day_of_week = $2
		ORDER BY start_minute ASC`, doctorID, weekday)
	if err != nil {
		return nil, fmt.Errorf("schedule: slots by weekday: %w", err)
	}
	defer rows.Close()
	return scanSlots(rows)
}

// MaterializeDates copies the recurring template into date-specific rows for
// every listed date that has none yet. Runs in one transaction; calling it
// again is a no-op for already-materialized dates.
func (s *Store) MaterializeDates(ctx context.Context, doctorID uuid.UUID, dates []DateKey) (int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("schedule: materialize begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created := 0
	now := time.Now().UTC()
	for _, date := range dates {
		var exists bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM schedule_slots WHERE doctor_id = $1 AND specific_date = $2)`,
			doctorID, date.Time()).Scan(&exists)
		if err != nil {
			return 0, fmt.Errorf("schedule: materialize check %s: %w", date, err)
		}
		if exists {
			continue
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO schedule_slots (`+slotColumns+`)
			SELECT gen_random_uuid(), schedule_id, doctor_id, NULL, $3, start_minute, end_minute, status, slot_type, room, consultation_fee_cents, appointment_duration_minutes, $4, $4
			FROM schedule_slots
			WHERE doctor_id = $1 AND day_of_week = $2`,
			doctorID, date.ISOWeekday(), date.Time(), now)
		if err != nil {
			return 0, fmt.Errorf("schedule: materialize %s: %w", date, err)
		}
		created += int(tag.RowsAffected())
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("schedule: materialize commit: %w", err)
	}
	return created, nil
}

func scanSlots(rows pgx.Rows) ([]Slot, error) {
	var slots []Slot
	for rows.Next() {
		var (
			slot     Slot
			dow      *int
			specific *time.Time
			status   string
			slotType string
		)
		if err := rows.Scan(&slot.ID, &slot.ScheduleID, &slot.DoctorID, &dow, &specific,
			&slot.StartMinute, &slot.EndMinute, &status, &slotType, &slot.Room,
			&slot.ConsultationFeeCents, &slot.AppointmentDurationMins,
			&slot.CreatedAt, &slot.UpdatedAt); err != nil {
			return nil, fmt.Errorf("schedule: scan slot: %w", err)
		}
		slot.DayOfWeek = dow
		if specific != nil {
			d := DateKeyFromTime(*specific)
			slot.SpecificDate = &d
		}
		slot.Status = SlotStatus(status)
		slot.Type = SlotType(slotType)
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: iterate slots: %w", err)
	}
	return slots, nil
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
