// Package booking enforces at-most-one-appointment-per-minute-slot-per-doctor.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinicore/scheduling-engine/internal/observability/metrics"
	"github.com/clinicore/scheduling-engine/internal/schedule"
	"github.com/clinicore/scheduling-engine/pkg/logging"
)

// ErrConflict means the minute slot is already reserved for the doctor.
var ErrConflict = errors.New("booking: minute slot already reserved")

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Guard serializes reservation attempts through a database unique
// constraint on (doctor_id, date, minute_of_day). A plain read-then-write
// could race; the constraint cannot.
type Guard struct {
	db      DB
	metrics *metrics.SchedulingMetrics
	logger  *logging.Logger
}

// NewGuard creates a booking conflict guard. metrics may be nil.
func NewGuard(db DB, m *metrics.SchedulingMetrics, logger *logging.Logger) *Guard {
	if logger == nil {
		logger = logging.Default()
	}
	return &Guard{db: db, metrics: m, logger: logger}
}

// Reserve claims the minute slot for the doctor on the date. Exactly one of
// any number of concurrent callers succeeds; the rest get ErrConflict.
func (g *Guard) Reserve(ctx context.Context, doctorID uuid.UUID, date schedule.DateKey, minuteOfDay int) error {
	if minuteOfDay < 0 || minuteOfDay >= 24*60 {
		return fmt.Errorf("booking: minute of day %d out of range", minuteOfDay)
	}
	tag, err := g.db.Exec(ctx, `
		INSERT INTO bookings (id, doctor_id, date, minute_of_day, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (doctor_id, date, minute_of_day) DO NOTHING`,
		uuid.New(), doctorID, date.Time(), minuteOfDay, time.Now().UTC())
	if err != nil {
		g.metrics.ObserveReservation("error")
		return fmt.Errorf("booking: reserve: %w", err)
	}
	if tag.RowsAffected() == 0 {
		g.metrics.ObserveReservation("conflict")
		return fmt.Errorf("%w: doctor %s at %s %s", ErrConflict,
			doctorID, date, schedule.FormatMinute(minuteOfDay))
	}
	g.metrics.ObserveReservation("ok")
	g.logger.Info("minute slot reserved", "doctor_id", doctorID, "date", date, "minute", minuteOfDay)
	return nil
}

// Release frees a reserved minute slot, e.g. after a cancellation or
// reschedule. Releasing a minute that is not held is a no-op.
func (g *Guard) Release(ctx context.Context, doctorID uuid.UUID, date schedule.DateKey, minuteOfDay int) error {
	_, err := g.db.Exec(ctx, `
		DELETE FROM bookings WHERE doctor_id = $1 AND date = $2 AND minute_of_day = $3`,
		doctorID, date.Time(), minuteOfDay)
	if err != nil {
		return fmt.Errorf("booking: release: %w", err)
	}
	return nil
}
