// Package stats maintains derived monthly and yearly rollups of doctor
// schedules: worked hours, working days, vacation and sick-leave
// consumption.
package stats

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound means no rollup row exists for the requested period.
var ErrNotFound = errors.New("stats: not found")

// MonthlyStats is the per-doctor rollup of one calendar month.
type MonthlyStats struct {
	DoctorID    uuid.UUID  `json:"doctor_id"`
	Year        int        `json:"year"`
	Month       time.Month `json:"month"`
	TotalHours  float64    `json:"total_hours"`
	WorkingDays int        `json:"working_days"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// YearlyVacationStats is the per-doctor rollup of one calendar year.
type YearlyVacationStats struct {
	DoctorID      uuid.UUID `json:"doctor_id"`
	Year          int       `json:"year"`
	VacationDays  int       `json:"vacation_days"`
	SickLeaveDays int       `json:"sick_leave_days"`
	// RemainingVacationDays is the entitlement minus consumed days,
	// floored at zero.
	RemainingVacationDays int       `json:"remaining_vacation_days"`
	UpdatedAt             time.Time `json:"updated_at"`
}
