package stats

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewStore(mock)
}

func TestUpsertMonthly(t *testing.T) {
	mock, store := newMockStore(t)
	doctorID := uuid.New()

	mock.ExpectExec("INSERT INTO monthly_stats").
		WithArgs(doctorID, 2026, 3, 152.5, 21, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.UpsertMonthly(context.Background(), &MonthlyStats{
		DoctorID:    doctorID,
		Year:        2026,
		Month:       time.March,
		TotalHours:  152.5,
		WorkingDays: 21,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMonthly(t *testing.T) {
	mock, store := newMockStore(t)
	doctorID := uuid.New()
	updated := time.Now().UTC()

	mock.ExpectQuery("SELECT doctor_id, year, month, total_hours").
		WithArgs(doctorID, 2026, 3).
		WillReturnRows(pgxmock.NewRows([]string{"doctor_id", "year", "month", "total_hours", "working_days", "updated_at"}).
			AddRow(doctorID, 2026, 3, 152.5, 21, updated))

	m, err := store.GetMonthly(context.Background(), doctorID, 2026, time.March)
	require.NoError(t, err)
	assert.Equal(t, time.March, m.Month)
	assert.Equal(t, 152.5, m.TotalHours)
	assert.Equal(t, 21, m.WorkingDays)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMonthlyNotFound(t *testing.T) {
	mock, store := newMockStore(t)
	doctorID := uuid.New()

	mock.ExpectQuery("SELECT doctor_id, year, month, total_hours").
		WithArgs(doctorID, 2026, 3).
		WillReturnRows(pgxmock.NewRows([]string{"doctor_id", "year", "month", "total_hours", "working_days", "updated_at"}))

	_, err := store.GetMonthly(context.Background(), doctorID, 2026, time.March)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertYearly(t *testing.T) {
	mock, store := newMockStore(t)
	doctorID := uuid.New()

	mock.ExpectExec("INSERT INTO yearly_vacation_stats").
		WithArgs(doctorID, 2026, 14, 2, 7, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.UpsertYearly(context.Background(), &YearlyVacationStats{
		DoctorID:              doctorID,
		Year:                  2026,
		VacationDays:          14,
		SickLeaveDays:         2,
		RemainingVacationDays: 7,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetYearlyNotFound(t *testing.T) {
	mock, store := newMockStore(t)
	doctorID := uuid.New()

	mock.ExpectQuery("SELECT doctor_id, year, vacation_days").
		WithArgs(doctorID, 2026).
		WillReturnRows(pgxmock.NewRows([]string{"doctor_id", "year", "vacation_days", "sick_leave_days", "remaining_vacation_days", "updated_at"}))

	_, err := store.GetYearly(context.Background(), doctorID, 2026)
	assert.ErrorIs(t, err, ErrNotFound)
}
