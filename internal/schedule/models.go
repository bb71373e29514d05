// Package schedule owns doctor work schedules: recurring weekly slots,
// date-specific overrides, and the resolution rules between them.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors surfaced by slot operations.
var (
	ErrNotFound                    = errors.New("schedule: not found")
	ErrInvalidSlot                 = errors.New("schedule: invalid slot")
	ErrInsufficientVacationBalance = errors.New("schedule: insufficient vacation balance")
	ErrPastRecordImmutable         = errors.New("schedule: past vacation/sick-leave records are immutable")
)

// DateKey is a calendar-local date in YYYY-MM-DD form. Dates cross every
// boundary as DateKeys so date equality never involves timezone arithmetic.
type DateKey string

const dateKeyLayout = "2006-01-02"

// ParseDateKey validates s as a YYYY-MM-DD calendar date.
func ParseDateKey(s string) (DateKey, error) {
	if _, err := time.Parse(dateKeyLayout, s); err != nil {
		return "", fmt.Errorf("schedule: parse date key %q: %w", s, err)
	}
	return DateKey(s), nil
}

// DateKeyFromTime derives the date key from t's calendar date.
func DateKeyFromTime(t time.Time) DateKey {
	return DateKey(t.Format(dateKeyLayout))
}

// Time returns the date at midnight UTC. Only the calendar fields are
// meaningful.
func (d DateKey) Time() time.Time {
	t, _ := time.Parse(dateKeyLayout, string(d))
	return t
}

// ISOWeekday returns the ISO weekday, Monday=1 through Sunday=7.
func (d DateKey) ISOWeekday() int {
	wd := int(d.Time().Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// Year returns the calendar year.
func (d DateKey) Year() int { return d.Time().Year() }

// Month returns the calendar month.
func (d DateKey) Month() time.Month { return d.Time().Month() }

// Before reports whether d is strictly earlier than other. Lexicographic
// comparison is correct for the fixed-width layout.
func (d DateKey) Before(other DateKey) bool { return string(d) < string(other) }

// MonthDates returns every date of the given month in order.
func MonthDates(year int, month time.Month) []DateKey {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	var dates []DateKey
	for t := first; t.Month() == month; t = t.AddDate(0, 0, 1) {
		dates = append(dates, DateKeyFromTime(t))
	}
	return dates
}

// FormatMinute renders a minute-of-day as HH:MM.
func FormatMinute(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// ParseMinute converts an HH:MM string to a minute-of-day.
func ParseMinute(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("schedule: parse time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// SlotStatus describes what a slot means for the doctor's day.
type SlotStatus string

const (
	StatusWorking   SlotStatus = "working"
	StatusVacation  SlotStatus = "vacation"
	StatusSickLeave SlotStatus = "sick_leave"
)

// Absence reports whether the status marks the doctor unavailable.
func (s SlotStatus) Absence() bool {
	return s == StatusVacation || s == StatusSickLeave
}

// SlotType distinguishes billing class of a working slot.
type SlotType string

const (
	TypeCommercial SlotType = "commercial"
	TypeNFZ        SlotType = "nfz"
)

// Doctor carries the scheduling-relevant attributes of a practitioner.
// The authoritative doctor record lives outside this engine.
type Doctor struct {
	ID                      uuid.UUID `json:"id"`
	FullName                string    `json:"full_name"`
	AppointmentDurationMins int       `json:"appointment_duration_minutes"`
	BreakDurationMins       int       `json:"break_duration_minutes"`
	Active                  bool      `json:"active"`
}

// Schedule groups the slots of one doctor for an active period. Created
// lazily the first time a doctor's availability is edited.
type Schedule struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	WeekStart DateKey   `json:"week_start"`
	WeekEnd   DateKey   `json:"week_end"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Slot is a time range on a day for one doctor. Exactly one of DayOfWeek
// (recurring) or SpecificDate (override) is set.
type Slot struct {
	ID           uuid.UUID  `json:"id"`
	ScheduleID   uuid.UUID  `json:"schedule_id"`
	DoctorID     uuid.UUID  `json:"doctor_id"`
	DayOfWeek    *int       `json:"day_of_week,omitempty"`
	SpecificDate *DateKey   `json:"specific_date,omitempty"`
	StartMinute  int        `json:"start_minute"`
	EndMinute    int        `json:"end_minute"`
	Status       SlotStatus `json:"status"`
	Type         SlotType   `json:"type,omitempty"`
	Room         string     `json:"room,omitempty"`
	// ConsultationFeeCents applies to commercial working slots.
	ConsultationFeeCents int `json:"consultation_fee_cents,omitempty"`
	// AppointmentDurationMins overrides the doctor default when set.
	AppointmentDurationMins *int      `json:"appointment_duration_minutes,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// Validate enforces the slot invariants before any write.
func (s *Slot) Validate() error {
	recurring := s.DayOfWeek != nil
	dated := s.SpecificDate != nil
	if recurring == dated {
		return fmt.Errorf("%w: exactly one of day_of_week or specific_date must be set", ErrInvalidSlot)
	}
	if recurring && (*s.DayOfWeek < 1 || *s.DayOfWeek > 7) {
		return fmt.Errorf("%w: day_of_week %d out of range 1..7", ErrInvalidSlot, *s.DayOfWeek)
	}
	if s.StartMinute < 0 || s.EndMinute > 24*60 {
		return fmt.Errorf("%w: minutes out of day bounds", ErrInvalidSlot)
	}
	if s.StartMinute >= s.EndMinute {
		return fmt.Errorf("%w: start %s not before end %s", ErrInvalidSlot,
			FormatMinute(s.StartMinute), FormatMinute(s.EndMinute))
	}
	switch s.Status {
	case StatusWorking, StatusVacation, StatusSickLeave:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidSlot, s.Status)
	}
	if s.Status == StatusWorking {
		switch s.Type {
		case TypeCommercial, TypeNFZ:
		default:
			return fmt.Errorf("%w: working slot needs type commercial or nfz", ErrInvalidSlot)
		}
	}
	if s.AppointmentDurationMins != nil && *s.AppointmentDurationMins <= 0 {
		return fmt.Errorf("%w: appointment duration override must be positive", ErrInvalidSlot)
	}
	return nil
}

// DurationMinutes returns the effective appointment duration for the slot,
// falling back to the doctor default.
func (s *Slot) DurationMinutes(doctorDefault int) int {
	if s.AppointmentDurationMins != nil {
		return *s.AppointmentDurationMins
	}
	return doctorDefault
}

// Hours returns the slot length in fractional hours.
func (s *Slot) Hours() float64 {
	return float64(s.EndMinute-s.StartMinute) / 60.0
}
