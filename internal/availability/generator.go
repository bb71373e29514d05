// Package availability turns resolved working slots into bookable
// appointment start times.
package availability

import (
	"sort"

	"github.com/clinicore/scheduling-engine/internal/schedule"
)

// Generate expands working slots into candidate start minutes.
//
// Each working slot is stepped from its start in increments of the
// effective appointment duration (per-slot override, else the doctor
// default) plus the break. A step only becomes a candidate when the full
// appointment still fits before the slot end, so a slot of length L with
// step S yields exactly floor(L/S) candidates. Vacation and sick-leave
// slots contribute nothing. Minutes present in booked are suppressed:
// exact-minute match is the only conflict rule. The merged result is
// deduplicated and sorted ascending.
func Generate(slots []schedule.Slot, defaultDurationMins, breakMins int, booked map[int]struct{}) []int {
	seen := make(map[int]struct{})
	candidates := make([]int, 0)

	for _, slot := range slots {
		if slot.Status != schedule.StatusWorking {
			continue
		}
		step := slot.DurationMinutes(defaultDurationMins) + breakMins
		if step <= 0 {
			continue
		}
		for minute := slot.StartMinute; minute+step <= slot.EndMinute; minute += step {
			if _, taken := booked[minute]; taken {
				continue
			}
			if _, dup := seen[minute]; dup {
				continue
			}
			seen[minute] = struct{}{}
			candidates = append(candidates, minute)
		}
	}

	sort.Ints(candidates)
	return candidates
}
