package schedule

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Slot is one fixed-duration candidate appointment unit.
type Slot struct {
	ID              string
	ProviderID      uuid.UUID
	Date            Date
	Start           Clock
	DurationMinutes int
	IsBreak         bool
	IsBooked        bool
	AppointmentID   *uuid.UUID
}

// SlotID is the synthetic identity of a slot: provider|date|start.
func SlotID(providerID uuid.UUID, d Date, start Clock) string {
	return fmt.Sprintf("%s|%s|%s", providerID, d, start)
}

func (s Slot) End() Clock {
	return s.Start.Add(s.DurationMinutes)
}

// Bookable reports whether the slot may be offered to a patient.
func (s Slot) Bookable() bool {
	return !s.IsBreak && !s.IsBooked
}

// GenerateSlots expands the windows that apply to d into slots ordered by
// start time. Steps that would run past the window end are dropped. When
// grid-compatible windows overlap, a start time is emitted once.
//
// It does not look at "now": callers decide whether d is acceptable.
func GenerateSlots(providerID uuid.UUID, d Date, windows []Window, breaks []Break) []Slot {
	day := d.Weekday()

	var todays []Break
	for _, b := range breaks {
		if b.AppliesTo(d) {
			todays = append(todays, b)
		}
	}

	byStart := make(map[Clock]int)
	slots := make([]Slot, 0)
	for _, w := range windows {
		if w.DayOfWeek != day || w.SlotMinutes <= 0 {
			continue
		}
		for t := w.Start; t.Add(w.SlotMinutes) <= w.End; t = t.Add(w.SlotMinutes) {
			end := t.Add(w.SlotMinutes)
			isBreak := false
			for _, b := range todays {
				if b.intersects(t, end) {
					isBreak = true
					break
				}
			}

			if i, ok := byStart[t]; ok {
				slots[i].IsBreak = slots[i].IsBreak || isBreak
				continue
			}
			byStart[t] = len(slots)
			slots = append(slots, Slot{
				ID:              SlotID(providerID, d, t),
				ProviderID:      providerID,
				Date:            d,
				Start:           t,
				DurationMinutes: w.SlotMinutes,
				IsBreak:         isBreak,
			})
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Start < slots[j].Start })
	return slots
}

// Find returns the slot starting at start, if any.
func Find(slots []Slot, start Clock) (Slot, bool) {
	for _, s := range slots {
		if s.Start == start {
			return s, true
		}
	}
	return Slot{}, false
}
