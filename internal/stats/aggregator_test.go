package stats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/scheduling-engine/internal/schedule"
)

type fakeResolver struct {
	byDate map[schedule.DateKey][]schedule.Slot
}

func (f *fakeResolver) Resolve(_ context.Context, _ uuid.UUID, date schedule.DateKey) ([]schedule.Slot, error) {
	return f.byDate[date], nil
}

func workingSlot(start, end int) schedule.Slot {
	return schedule.Slot{Status: schedule.StatusWorking, Type: schedule.TypeNFZ, StartMinute: start, EndMinute: end}
}

func absenceSlot(status schedule.SlotStatus) schedule.Slot {
	return schedule.Slot{Status: status, StartMinute: 0, EndMinute: 24 * 60}
}

func newAggregator(t *testing.T, resolver *fakeResolver) (pgxmock.PgxPoolIface, *Aggregator) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewAggregator(NewStore(mock), resolver, 21, nil, nil)
}

func TestRecalculateMonthSumsWorkingHours(t *testing.T) {
	resolver := &fakeResolver{byDate: map[schedule.DateKey][]schedule.Slot{
		"2026-02-02": {workingSlot(9*60, 13*60), workingSlot(14*60, 18*60)},
		"2026-02-03": {workingSlot(9*60, 13*60)},
		"2026-02-04": {absenceSlot(schedule.StatusVacation)},
	}}
	mock, agg := newAggregator(t, resolver)
	doctorID := uuid.New()

	mock.ExpectExec("INSERT INTO monthly_stats").
		WithArgs(doctorID, 2026, 2, 12.0, 2, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, agg.RecalculateMonth(context.Background(), doctorID, 2026, time.February))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecalculateMonthIgnoresAbsenceHours(t *testing.T) {
	// A day holding only absence slots contributes neither hours nor a
	// working day.
	resolver := &fakeResolver{byDate: map[schedule.DateKey][]schedule.Slot{
		"2026-02-02": {absenceSlot(schedule.StatusSickLeave)},
	}}
	mock, agg := newAggregator(t, resolver)
	doctorID := uuid.New()

	mock.ExpectExec("INSERT INTO monthly_stats").
		WithArgs(doctorID, 2026, 2, 0.0, 0, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, agg.RecalculateMonth(context.Background(), doctorID, 2026, time.February))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecalculateYearCountsDistinctDays(t *testing.T) {
	resolver := &fakeResolver{byDate: map[schedule.DateKey][]schedule.Slot{
		"2026-07-06": {absenceSlot(schedule.StatusVacation)},
		"2026-07-07": {absenceSlot(schedule.StatusVacation), absenceSlot(schedule.StatusVacation)},
		"2026-07-08": {absenceSlot(schedule.StatusVacation)},
		"2026-11-02": {absenceSlot(schedule.StatusSickLeave)},
	}}
	mock, agg := newAggregator(t, resolver)
	doctorID := uuid.New()

	mock.ExpectExec("INSERT INTO yearly_vacation_stats").
		WithArgs(doctorID, 2026, 3, 1, 18, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, agg.RecalculateYear(context.Background(), doctorID, 2026))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecalculateYearClampsRemainingAtZero(t *testing.T) {
	byDate := make(map[schedule.DateKey][]schedule.Slot)
	for day := 1; day <= 25; day++ {
		key := schedule.DateKey(fmt.Sprintf("2026-08-%02d", day))
		byDate[key] = []schedule.Slot{absenceSlot(schedule.StatusVacation)}
	}
	mock, agg := newAggregator(t, &fakeResolver{byDate: byDate})
	doctorID := uuid.New()

	mock.ExpectExec("INSERT INTO yearly_vacation_stats").
		WithArgs(doctorID, 2026, 25, 0, 0, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, agg.RecalculateYear(context.Background(), doctorID, 2026))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemainingVacationDaysReadsStoredRollup(t *testing.T) {
	mock, agg := newAggregator(t, &fakeResolver{})
	doctorID := uuid.New()

	mock.ExpectQuery("SELECT doctor_id, year, vacation_days").
		WithArgs(doctorID, 2026).
		WillReturnRows(pgxmock.NewRows([]string{"doctor_id", "year", "vacation_days", "sick_leave_days", "remaining_vacation_days", "updated_at"}).
			AddRow(doctorID, 2026, 14, 0, 7, time.Now().UTC()))

	remaining, err := agg.RemainingVacationDays(context.Background(), doctorID, 2026)
	require.NoError(t, err)
	assert.Equal(t, 7, remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestYearlyStatsComputedOnFirstRead(t *testing.T) {
	mock, agg := newAggregator(t, &fakeResolver{})
	doctorID := uuid.New()

	columns := []string{"doctor_id", "year", "vacation_days", "sick_leave_days", "remaining_vacation_days", "updated_at"}
	mock.ExpectQuery("SELECT doctor_id, year, vacation_days").
		WithArgs(doctorID, 2026).
		WillReturnRows(pgxmock.NewRows(columns))
	mock.ExpectExec("INSERT INTO yearly_vacation_stats").
		WithArgs(doctorID, 2026, 0, 0, 21, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT doctor_id, year, vacation_days").
		WithArgs(doctorID, 2026).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow(doctorID, 2026, 0, 0, 21, time.Now().UTC()))

	stats, err := agg.YearlyStats(context.Background(), doctorID, 2026)
	require.NoError(t, err)
	assert.Equal(t, 21, stats.RemainingVacationDays)
	assert.NoError(t, mock.ExpectationsWereMet())
}
