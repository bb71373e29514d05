package stats

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling-engine/internal/observability/metrics"
	"github.com/clinicore/scheduling-engine/internal/schedule"
	"github.com/clinicore/scheduling-engine/pkg/logging"
)

// SlotResolver yields the effective slots for a doctor on a single day.
type SlotResolver interface {
	Resolve(ctx context.Context, doctorID uuid.UUID, date schedule.DateKey) ([]schedule.Slot, error)
}

// Aggregator recomputes rollups from the effective schedule. It walks
// every date of the period through the resolver, so date-specific
// overrides are counted exactly as availability sees them.
type Aggregator struct {
	store       *Store
	resolver    SlotResolver
	entitlement int
	metrics     *metrics.SchedulingMetrics
	logger      *logging.Logger
}

func NewAggregator(store *Store, resolver SlotResolver, entitlementDays int, m *metrics.SchedulingMetrics, logger *logging.Logger) *Aggregator {
	if store == nil {
		panic("stats: aggregator requires a store")
	}
	if resolver == nil {
		panic("stats: aggregator requires a resolver")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Aggregator{
		store:       store,
		resolver:    resolver,
		entitlement: entitlementDays,
		metrics:     m,
		logger:      logger,
	}
}

// RecalculateMonth rebuilds the monthly rollup: total working hours and
// the count of days with at least one working slot.
func (a *Aggregator) RecalculateMonth(ctx context.Context, doctorID uuid.UUID, year int, month time.Month) error {
	var (
		totalHours  float64
		workingDays int
	)
	for _, date := range schedule.MonthDates(year, month) {
		slots, err := a.resolver.Resolve(ctx, doctorID, date)
		if err != nil {
			return err
		}
		dayWorked := false
		for i := range slots {
			if slots[i].Status != schedule.StatusWorking {
				continue
			}
			totalHours += slots[i].Hours()
			dayWorked = true
		}
		if dayWorked {
			workingDays++
		}
	}

	err := a.store.UpsertMonthly(ctx, &MonthlyStats{
		DoctorID:    doctorID,
		Year:        year,
		Month:       month,
		TotalHours:  totalHours,
		WorkingDays: workingDays,
	})
	if err != nil {
		return err
	}
	a.metrics.ObserveRecalculation("monthly")

	a.logger.Debug("monthly stats recalculated",
		"doctor_id", doctorID,
		"year", year,
		"month", int(month),
		"total_hours", totalHours,
		"working_days", workingDays,
	)
	return nil
}

// RecalculateYear rebuilds the yearly vacation rollup. A date counts at
// most once per category no matter how many slots mark it.
func (a *Aggregator) RecalculateYear(ctx context.Context, doctorID uuid.UUID, year int) error {
	var vacationDays, sickDays int
	for month := time.January; month <= time.December; month++ {
		for _, date := range schedule.MonthDates(year, month) {
			slots, err := a.resolver.Resolve(ctx, doctorID, date)
			if err != nil {
				return err
			}
			var vacation, sick bool
			for i := range slots {
				switch slots[i].Status {
				case schedule.StatusVacation:
					vacation = true
				case schedule.StatusSickLeave:
					sick = true
				}
			}
			if vacation {
				vacationDays++
			}
			if sick {
				sickDays++
			}
		}
	}

	remaining := a.entitlement - vacationDays
	if remaining < 0 {
		remaining = 0
	}
	err := a.store.UpsertYearly(ctx, &YearlyVacationStats{
		DoctorID:              doctorID,
		Year:                  year,
		VacationDays:          vacationDays,
		SickLeaveDays:         sickDays,
		RemainingVacationDays: remaining,
	})
	if err != nil {
		return err
	}
	a.metrics.ObserveRecalculation("yearly")

	a.logger.Debug("yearly stats recalculated",
		"doctor_id", doctorID,
		"year", year,
		"vacation_days", vacationDays,
		"sick_leave_days", sickDays,
		"remaining_vacation_days", remaining,
	)
	return nil
}

// RemainingVacationDays returns the doctor's unused vacation balance for
// the year. A missing rollup row is computed on first use.
func (a *Aggregator) RemainingVacationDays(ctx context.Context, doctorID uuid.UUID, year int) (int, error) {
	stats, err := a.YearlyStats(ctx, doctorID, year)
	if err != nil {
		return 0, err
	}
	return stats.RemainingVacationDays, nil
}

// MonthlyStats returns the stored monthly rollup, computing it first if
// the doctor has never been rolled up for that month.
func (a *Aggregator) MonthlyStats(ctx context.Context, doctorID uuid.UUID, year int, month time.Month) (*MonthlyStats, error) {
	m, err := a.store.GetMonthly(ctx, doctorID, year, month)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err := a.RecalculateMonth(ctx, doctorID, year, month); err != nil {
		return nil, err
	}
	return a.store.GetMonthly(ctx, doctorID, year, month)
}

// YearlyStats returns the stored yearly rollup, computing it first if
// absent.
func (a *Aggregator) YearlyStats(ctx context.Context, doctorID uuid.UUID, year int) (*YearlyVacationStats, error) {
	y, err := a.store.GetYearly(ctx, doctorID, year)
	if err == nil {
		return y, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err := a.RecalculateYear(ctx, doctorID, year); err != nil {
		return nil, err
	}
	return a.store.GetYearly(ctx, doctorID, year)
}
