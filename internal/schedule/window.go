package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

const DefaultSlotMinutes = 30

var ErrInvalidWindow = errors.New("invalid schedule window")

func invalidWindow(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidWindow, fmt.Sprintf(format, args...))
}

// Window is one weekly recurring availability window of a provider.
type Window struct {
	ID          uuid.UUID
	ProviderID  uuid.UUID
	DayOfWeek   time.Weekday
	Start       Clock
	End         Clock
	SlotMinutes int
	CreatedAt   time.Time
}

func (w Window) Validate() error {
	if w.ProviderID == uuid.Nil {
		return invalidWindow("provider_id is required")
	}
	if w.DayOfWeek < time.Sunday || w.DayOfWeek > time.Saturday {
		return invalidWindow("day_of_week must be between 0 and 6")
	}
	if !w.Start.Valid() || !w.End.Valid() {
		return invalidWindow("times must be within the day")
	}
	if w.Start >= w.End {
		return invalidWindow("start_time %s must be before end_time %s", w.Start, w.End)
	}
	if w.SlotMinutes <= 0 {
		return invalidWindow("slot duration must be positive")
	}
	if int(w.End-w.Start) < w.SlotMinutes {
		return invalidWindow("window %s-%s is shorter than one %d minute slot", w.Start, w.End, w.SlotMinutes)
	}
	return nil
}

func (w Window) overlaps(o Window) bool {
	return w.DayOfWeek == o.DayOfWeek && w.Start < o.End && o.Start < w.End
}

// gridCompatible reports whether two overlapping windows would emit the same
// slot starts where they intersect.
func (w Window) gridCompatible(o Window) bool {
	if w.SlotMinutes != o.SlotMinutes {
		return false
	}
	return int(w.Start-o.Start)%w.SlotMinutes == 0
}

// Break is a sub-interval of a window that never yields bookable slots.
// Exactly one of DayOfWeek and Date is set.
type Break struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	DayOfWeek  *time.Weekday
	Date       *Date
	Start      Clock
	End        Clock
	Label      string
	CreatedAt  time.Time
}

func (b Break) Validate() error {
	if b.ProviderID == uuid.Nil {
		return invalidWindow("provider_id is required")
	}
	if (b.DayOfWeek == nil) == (b.Date == nil) {
		return invalidWindow("break needs either day_of_week or date")
	}
	if b.DayOfWeek != nil && (*b.DayOfWeek < time.Sunday || *b.DayOfWeek > time.Saturday) {
		return invalidWindow("day_of_week must be between 0 and 6")
	}
	if !b.Start.Valid() || !b.End.Valid() {
		return invalidWindow("times must be within the day")
	}
	if b.Start >= b.End {
		return invalidWindow("break start %s must be before end %s", b.Start, b.End)
	}
	return nil
}

// AppliesTo reports whether the break is in force on d.
func (b Break) AppliesTo(d Date) bool {
	if b.Date != nil {
		return *b.Date == d
	}
	return b.DayOfWeek != nil && *b.DayOfWeek == d.Weekday()
}

func (b Break) weekday() time.Weekday {
	if b.Date != nil {
		return b.Date.Weekday()
	}
	return *b.DayOfWeek
}

// intersects uses half-open intervals: [start,end) and [b.Start,b.End) meet
// only if they share a positive duration.
func (b Break) intersects(start, end Clock) bool {
	return start < b.End && b.Start < end
}

// Schedule holds the windows and breaks of a single provider.
type Schedule struct {
	providerID uuid.UUID
	windows    []Window
	breaks     []Break
}

// NewSchedule wraps already persisted state. Use AddWindow and AddBreak for
// new entries so they are validated.
func NewSchedule(providerID uuid.UUID, windows []Window, breaks []Break) *Schedule {
	return &Schedule{
		providerID: providerID,
		windows:    append([]Window(nil), windows...),
		breaks:     append([]Break(nil), breaks...),
	}
}

func (s *Schedule) ProviderID() uuid.UUID { return s.providerID }

// AddWindow validates w against the schedule and appends it.
func (s *Schedule) AddWindow(w Window) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if w.ProviderID != s.providerID {
		return invalidWindow("window belongs to provider %s, schedule to %s", w.ProviderID, s.providerID)
	}
	for _, existing := range s.windows {
		if !w.overlaps(existing) {
			continue
		}
		if !w.gridCompatible(existing) {
			return invalidWindow("overlaps %s %s-%s with a conflicting slot grid",
				existing.DayOfWeek, existing.Start, existing.End)
		}
	}
	s.windows = append(s.windows, w)
	return nil
}

// AddBreak validates that b is fully contained in one window of its day.
func (s *Schedule) AddBreak(b Break) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.ProviderID != s.providerID {
		return invalidWindow("break belongs to provider %s, schedule to %s", b.ProviderID, s.providerID)
	}
	day := b.weekday()
	for _, w := range s.windows {
		if w.DayOfWeek == day && w.Start <= b.Start && b.End <= w.End {
			s.breaks = append(s.breaks, b)
			return nil
		}
	}
	return invalidWindow("break %s-%s is not inside any %s window", b.Start, b.End, day)
}

// WindowsFor returns the windows in force on the weekday of d, ordered by
// start time. The result is a fresh slice on every call.
func (s *Schedule) WindowsFor(d Date) []Window {
	day := d.Weekday()
	var out []Window
	for _, w := range s.windows {
		if w.DayOfWeek == day {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// BreaksFor returns the breaks in force on d.
func (s *Schedule) BreaksFor(d Date) []Break {
	var out []Break
	for _, b := range s.breaks {
		if b.AppliesTo(d) {
			out = append(out, b)
		}
	}
	return out
}

// Slots expands the schedule for d.
func (s *Schedule) Slots(d Date) []Slot {
	return GenerateSlots(s.providerID, d, s.WindowsFor(d), s.BreaksFor(d))
}
