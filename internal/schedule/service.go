package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling-engine/pkg/logging"
)

// StatsRecalculator keeps derived statistics current after slot mutations
// and answers vacation-balance queries. Implemented by the stats aggregator.
type StatsRecalculator interface {
	RecalculateMonth(ctx context.Context, doctorID uuid.UUID, year int, month time.Month) error
	RecalculateYear(ctx context.Context, doctorID uuid.UUID, year int) error
	RemainingVacationDays(ctx context.Context, doctorID uuid.UUID, year int) (int, error)
}

// AvailabilityInvalidator drops cached availability after slot mutations.
type AvailabilityInvalidator interface {
	Invalidate(ctx context.Context, doctorID uuid.UUID, date DateKey) error
	InvalidateDoctor(ctx context.Context, doctorID uuid.UUID) error
}

// Service orchestrates slot writes: validation, vacation-balance checks,
// past-record immutability, stats recomputation and cache invalidation.
type Service struct {
	store       *Store
	stats       StatsRecalculator
	invalidator AvailabilityInvalidator
	logger      *logging.Logger
	now         func() time.Time
}

// NewService constructs a schedule service. The invalidator may be nil when
// no availability cache is wired.
func NewService(store *Store, stats StatsRecalculator, invalidator AvailabilityInvalidator, logger *logging.Logger) *Service {
	if store == nil {
		panic("schedule: store required")
	}
	if stats == nil {
		panic("schedule: stats recalculator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:       store,
		stats:       stats,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) today() DateKey {
	return DateKeyFromTime(s.now().UTC())
}

// CreateSlot validates and persists a slot, then refreshes derived state.
// Vacation slots are rejected with ErrInsufficientVacationBalance when the
// doctor's yearly allowance is exhausted; nothing is written in that case.
func (s *Service) CreateSlot(ctx context.Context, slot *Slot) error {
	if err := slot.Validate(); err != nil {
		return err
	}
	if _, err := s.store.GetDoctor(ctx, slot.DoctorID); err != nil {
		return err
	}

	if slot.Status == StatusVacation {
		year := s.now().UTC().Year()
		if slot.SpecificDate != nil {
			year = slot.SpecificDate.Year()
		}
		remaining, err := s.stats.RemainingVacationDays(ctx, slot.DoctorID, year)
		if err != nil {
			return fmt.Errorf("schedule: vacation balance check: %w", err)
		}
		if remaining <= 0 {
			return fmt.Errorf("%w: doctor %s has no vacation days left in %d",
				ErrInsufficientVacationBalance, slot.DoctorID, year)
		}
	}

	if slot.ScheduleID == uuid.Nil {
		sched, err := s.store.EnsureActiveSchedule(ctx, slot.DoctorID)
		if err != nil {
			return err
		}
		slot.ScheduleID = sched.ID
	}

	if err := s.store.CreateSlot(ctx, slot); err != nil {
		return err
	}
	return s.afterSlotMutation(ctx, slot)
}

// DeleteSlot removes a slot. Past-dated vacation and sick-leave records are
// immutable history and cannot be deleted.
func (s *Service) DeleteSlot(ctx context.Context, slotID uuid.UUID) error {
	slot, err := s.store.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if slot.SpecificDate != nil && slot.Status.Absence() && slot.SpecificDate.Before(s.today()) {
		return fmt.Errorf("%w: slot %s dated %s", ErrPastRecordImmutable, slotID, *slot.SpecificDate)
	}
	if err := s.store.DeleteSlot(ctx, slotID); err != nil {
		return err
	}
	return s.afterSlotMutation(ctx, slot)
}

// EnsureMonthMaterialized copies the recurring template into date-specific
// rows for every not-yet-materialized date of the month. Idempotent; safe to
// call on every month navigation.
func (s *Service) EnsureMonthMaterialized(ctx context.Context, doctorID uuid.UUID, year int, month time.Month) (int, error) {
	if _, err := s.store.GetDoctor(ctx, doctorID); err != nil {
		return 0, err
	}
	created, err := s.store.MaterializeDates(ctx, doctorID, MonthDates(year, month))
	if err != nil {
		return 0, err
	}
	if created == 0 {
		return 0, nil
	}
	if err := s.stats.RecalculateMonth(ctx, doctorID, year, month); err != nil {
		return created, fmt.Errorf("schedule: recalculate month after materialize: %w", err)
	}
	if err := s.stats.RecalculateYear(ctx, doctorID, year); err != nil {
		return created, fmt.Errorf("schedule: recalculate year after materialize: %w", err)
	}
	s.invalidateDoctor(ctx, doctorID)
	return created, nil
}

// afterSlotMutation recomputes stats for the affected month and year and
// drops cached availability. Stats errors propagate; the aggregator is
// idempotent so the caller can re-trigger recomputation.
func (s *Service) afterSlotMutation(ctx context.Context, slot *Slot) error {
	year := s.now().UTC().Year()
	month := s.now().UTC().Month()
	if slot.SpecificDate != nil {
		year = slot.SpecificDate.Year()
		month = slot.SpecificDate.Month()
	}
	if err := s.stats.RecalculateMonth(ctx, slot.DoctorID, year, month); err != nil {
		return fmt.Errorf("schedule: recalculate month: %w", err)
	}
	if err := s.stats.RecalculateYear(ctx, slot.DoctorID, year); err != nil {
		return fmt.Errorf("schedule: recalculate year: %w", err)
	}
	if slot.SpecificDate != nil {
		s.invalidateDate(ctx, slot.DoctorID, *slot.SpecificDate)
	} else {
		s.invalidateDoctor(ctx, slot.DoctorID)
	}
	return nil
}

// Cache invalidation is best effort: a stale entry expires with its TTL.
func (s *Service) invalidateDate(ctx context.Context, doctorID uuid.UUID, date DateKey) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, doctorID, date); err != nil {
		s.logger.Warn("availability cache invalidation failed", "doctor_id", doctorID, "date", date, "error", err)
	}
}

func (s *Service) invalidateDoctor(ctx context.Context, doctorID uuid.UUID) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.InvalidateDoctor(ctx, doctorID); err != nil {
		s.logger.Warn("availability cache invalidation failed", "doctor_id", doctorID, "error", err)
	}
}
