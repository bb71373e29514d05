package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the store needs. pgxmock satisfies
// it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists rollup rows. Writes are upserts keyed by doctor and
// period, so recomputation is idempotent.
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	if db == nil {
		panic("stats: store requires a database")
	}
	return &Store{db: db}
}

func (s *Store) UpsertMonthly(ctx context.Context, m *MonthlyStats) error {
	const q = `
		INSERT INTO monthly_stats (doctor_id, year, month, total_hours, working_days, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (doctor_id, year, month) DO UPDATE SET
			total_hours = EXCLUDED.total_hours,
			working_days = EXCLUDED.working_days,
			updated_at = EXCLUDED.updated_at`

	m.UpdatedAt = time.Now().UTC()
	_, err := s.db.Exec(ctx, q, m.DoctorID, m.Year, int(m.Month), m.TotalHours, m.WorkingDays, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("stats: upsert monthly: %w", err)
	}
	return nil
}

func (s *Store) GetMonthly(ctx context.Context, doctorID uuid.UUID, year int, month time.Month) (*MonthlyStats, error) {
	const q = `
		SELECT doctor_id, year, month, total_hours, working_days, updated_at
		FROM monthly_stats
		WHERE doctor_id = $1 AND year = $2 AND month = $3`

	var (
		m        MonthlyStats
		monthInt int
	)
	err := s.db.QueryRow(ctx, q, doctorID, year, int(month)).Scan(
		&m.DoctorID, &m.Year, &monthInt, &m.TotalHours, &m.WorkingDays, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stats: get monthly: %w", err)
	}
	m.Month = time.Month(monthInt)
	return &m, nil
}

func (s *Store) UpsertYearly(ctx context.Context, y *YearlyVacationStats) error {
	const q = `
		INSERT INTO yearly_vacation_stats (doctor_id, year, vacation_days, sick_leave_days, remaining_vacation_days, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (doctor_id, year) DO UPDATE SET
			vacation_days = EXCLUDED.vacation_days,
			sick_leave_days = EXCLUDED.sick_leave_days,
			remaining_vacation_days = EXCLUDED.remaining_vacation_days,
			updated_at = EXCLUDED.updated_at`

	y.UpdatedAt = time.Now().UTC()
	_, err := s.db.Exec(ctx, q, y.DoctorID, y.Year, y.VacationDays, y.SickLeaveDays, y.RemainingVacationDays, y.UpdatedAt)
	if err != nil {
		return fmt.Errorf("stats: upsert yearly: %w", err)
	}
	return nil
}

func (s *Store) GetYearly(ctx context.Context, doctorID uuid.UUID, year int) (*YearlyVacationStats, error) {
	const q = `
		SELECT doctor_id, year, vacation_days, sick_leave_days, remaining_vacation_days, updated_at
		FROM yearly_vacation_stats
		WHERE doctor_id = $1 AND year = $2`

	var y YearlyVacationStats
	err := s.db.QueryRow(ctx, q, doctorID, year).Scan(
		&y.DoctorID, &y.Year, &y.VacationDays, &y.SickLeaveDays, &y.RemainingVacationDays, &y.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stats: get yearly: %w", err)
	}
	return &y, nil
}
