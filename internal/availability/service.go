package availability

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling-engine/internal/observability/metrics"
	"github.com/clinicore/scheduling-engine/internal/schedule"
	"github.com/clinicore/scheduling-engine/pkg/logging"
)

// SlotResolver yields the effective slots for a doctor and date.
type SlotResolver interface {
	Resolve(ctx context.Context, doctorID uuid.UUID, date schedule.DateKey) ([]schedule.Slot, error)
}

// DoctorSource yields doctor scheduling defaults.
type DoctorSource interface {
	GetDoctor(ctx context.Context, doctorID uuid.UUID) (*schedule.Doctor, error)
}

// BookedMinutesSource yields the start minutes of non-cancelled
// appointments for a doctor and date.
type BookedMinutesSource interface {
	BookedMinutes(ctx context.Context, doctorID uuid.UUID, date schedule.DateKey) (map[int]struct{}, error)
}

// Service resolves slots, loads booked minutes and generates candidate
// start times, with a read-through day cache.
type Service struct {
	resolver SlotResolver
	doctors  DoctorSource
	booked   BookedMinutesSource
	cache    *Cache
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger

	// Fallbacks for doctor rows without explicit scheduling values.
	defaultDurationMins int
	defaultBreakMins    int
}

// NewService constructs an availability service. cache and metrics may be nil.
func NewService(resolver SlotResolver, doctors DoctorSource, booked BookedMinutesSource, cache *Cache, m *metrics.SchedulingMetrics, logger *logging.Logger) *Service {
	if resolver == nil {
		panic("availability: resolver required")
	}
	if doctors == nil {
		panic("availability: doctor source required")
	}
	if booked == nil {
		panic("availability: booked minutes source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		resolver: resolver,
		doctors:  doctors,
		booked:   booked,
		cache:    cache,
		metrics:  m,
		logger:   logger,

		defaultDurationMins: 30,
	}
}

// WithDefaults overrides the fallback duration and break applied when a
// doctor row carries no explicit values.
func (s *Service) WithDefaults(durationMins, breakMins int) *Service {
	s.defaultDurationMins = durationMins
	s.defaultBreakMins = breakMins
	return s
}

// Availability returns the sorted bookable start minutes for the doctor on
// the date. durationOverride, when non-nil, replaces the doctor default for
// this request; overridden requests bypass the cache.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID, date schedule.DateKey, durationOverride *int) ([]int, error) {
	cacheable := durationOverride == nil && s.cache != nil
	if cacheable {
		minutes, hit, err := s.cache.Get(ctx, doctorID, date)
		if err != nil {
			s.logger.Warn("availability cache read failed", "doctor_id", doctorID, "date", date, "error", err)
		} else if hit {
			s.metrics.ObserveAvailability("ok", len(minutes))
			return minutes, nil
		}
	}

	doctor, err := s.doctors.GetDoctor(ctx, doctorID)
	if err != nil {
		s.metrics.ObserveAvailability("error", 0)
		return nil, err
	}
	slots, err := s.resolver.Resolve(ctx, doctorID, date)
	if err != nil {
		s.metrics.ObserveAvailability("error", 0)
		return nil, err
	}
	booked, err := s.booked.BookedMinutes(ctx, doctorID, date)
	if err != nil {
		s.metrics.ObserveAvailability("error", 0)
		return nil, err
	}

	duration := doctor.AppointmentDurationMins
	if duration <= 0 {
		duration = s.defaultDurationMins
	}
	if durationOverride != nil {
		duration = *durationOverride
	}
	breakMins := doctor.BreakDurationMins
	if breakMins < 0 {
		breakMins = s.defaultBreakMins
	}
	minutes := Generate(slots, duration, breakMins, booked)

	if cacheable {
		if err := s.cache.Set(ctx, doctorID, date, minutes); err != nil {
			s.logger.Warn("availability cache write failed", "doctor_id", doctorID, "date", date, "error", err)
		}
	}
	s.metrics.ObserveAvailability("ok", len(minutes))
	return minutes, nil
}
