package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-01-05 is a Monday.
var monday = Date{Year: 2026, Month: time.January, Day: 5}

func mustClock(t *testing.T, s string) Clock {
	t.Helper()
	c, err := ParseClock(s)
	require.NoError(t, err)
	return c
}

func starts(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start.String())
	}
	return out
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{"09:00", NewClock(9, 0), false},
		{"09:30:00", NewClock(9, 30), false},
		{" 17:45 ", NewClock(17, 45), false},
		{"24:00", MinutesPerDay, false},
		{"09:00:30", 0, true},
		{"9am", 0, true},
		{"25:00", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDateAtAndWeekday(t *testing.T) {
	assert.Equal(t, time.Monday, monday.Weekday())
	assert.Equal(t, "2026-01-05", monday.String())

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	at := monday.At(NewClock(9, 30), loc)
	assert.Equal(t, 9, at.Hour())
	assert.Equal(t, 30, at.Minute())
	assert.Equal(t, loc, at.Location())

	d, err := ParseDate("2026-01-06")
	require.NoError(t, err)
	assert.Equal(t, monday.AddDays(1), d)
	assert.True(t, monday.Before(d))
}

func TestGenerateSlots_SimpleWindow(t *testing.T) {
	provider := uuid.New()
	windows := []Window{{
		ProviderID: provider, DayOfWeek: time.Monday,
		Start: NewClock(9, 0), End: NewClock(10, 0), SlotMinutes: 30,
	}}

	slots := GenerateSlots(provider, monday, windows, nil)

	assert.Equal(t, []string{"09:00", "09:30"}, starts(slots))
	for _, s := range slots {
		assert.False(t, s.IsBreak)
		assert.Equal(t, 30, s.DurationMinutes)
		assert.Equal(t, SlotID(provider, monday, s.Start), s.ID)
	}
}

func TestGenerateSlots_OtherWeekdayIsEmpty(t *testing.T) {
	provider := uuid.New()
	windows := []Window{{
		ProviderID: provider, DayOfWeek: time.Tuesday,
		Start: NewClock(9, 0), End: NewClock(10, 0), SlotMinutes: 30,
	}}

	slots := GenerateSlots(provider, monday, windows, nil)
	assert.Empty(t, slots)
}

func TestGenerateSlots_BreakMarksIntersectingSteps(t *testing.T) {
	provider := uuid.New()
	mon := time.Monday
	windows := []Window{{
		ProviderID: provider, DayOfWeek: time.Monday,
		Start: NewClock(11, 0), End: NewClock(13, 0), SlotMinutes: 30,
	}}
	breaks := []Break{{
		ProviderID: provider, DayOfWeek: &mon,
		Start: NewClock(12, 0), End: NewClock(12, 30), Label: "Lunch",
	}}

	slots := GenerateSlots(provider, monday, windows, breaks)

	require.Equal(t, []string{"11:00", "11:30", "12:00", "12:30"}, starts(slots))
	assert.False(t, slots[1].IsBreak, "11:30 ends exactly when the break starts")
	assert.True(t, slots[2].IsBreak)
	assert.False(t, slots[3].IsBreak, "12:30 starts exactly when the break ends")
}

func TestGenerateSlots_PartialOverlapIsBreak(t *testing.T) {
	provider := uuid.New()
	windows := []Window{{
		ProviderID: provider, DayOfWeek: time.Monday,
		Start: NewClock(9, 0), End: NewClock(11, 0), SlotMinutes: 30,
	}}
	d := monday
	breaks := []Break{{
		ProviderID: provider, Date: &d,
		Start: NewClock(9, 45), End: NewClock(10, 15),
	}}

	slots := GenerateSlots(provider, monday, windows, breaks)

	var flagged []string
	for _, s := range slots {
		if s.IsBreak {
			flagged = append(flagged, s.Start.String())
		}
	}
	assert.Equal(t, []string{"09:30", "10:00"}, flagged)

	nextWeek := GenerateSlots(provider, monday.AddDays(7), windows, breaks)
	for _, s := range nextWeek {
		assert.False(t, s.IsBreak, "one-off break must not repeat")
	}
}

func TestGenerateSlots_DropsTrailingPartialStep(t *testing.T) {
	provider := uuid.New()
	windows := []Window{{
		ProviderID: provider, DayOfWeek: time.Monday,
		Start: NewClock(9, 0), End: NewClock(10, 15), SlotMinutes: 30,
	}}

	slots := GenerateSlots(provider, monday, windows, nil)
	assert.Equal(t, []string{"09:00", "09:30"}, starts(slots))
}

func TestGenerateSlots_MultipleWindowsAreOrdered(t *testing.T) {
	provider := uuid.New()
	windows := []Window{
		{ProviderID: provider, DayOfWeek: time.Monday, Start: NewClock(14, 0), End: NewClock(15, 0), SlotMinutes: 30},
		{ProviderID: provider, DayOfWeek: time.Monday, Start: NewClock(9, 0), End: NewClock(10, 0), SlotMinutes: 20},
	}

	slots := GenerateSlots(provider, monday, windows, nil)
	assert.Equal(t, []string{"09:00", "09:20", "09:40", "14:00", "14:30"}, starts(slots))
}

func TestGenerateSlots_BreaksAloneYieldNothing(t *testing.T) {
	provider := uuid.New()
	mon := time.Monday
	breaks := []Break{{ProviderID: provider, DayOfWeek: &mon, Start: NewClock(12, 0), End: NewClock(13, 0)}}

	assert.Empty(t, GenerateSlots(provider, monday, nil, breaks))
}

func TestScheduleAddWindow_Validation(t *testing.T) {
	provider := uuid.New()
	base := Window{ProviderID: provider, DayOfWeek: time.Monday, Start: NewClock(9, 0), End: NewClock(12, 0), SlotMinutes: 30}

	tests := []struct {
		name   string
		mutate func(w *Window)
	}{
		{"start equals end", func(w *Window) { w.End = w.Start }},
		{"start after end", func(w *Window) { w.Start, w.End = w.End, w.Start }},
		{"bad weekday", func(w *Window) { w.DayOfWeek = 7 }},
		{"zero duration", func(w *Window) { w.SlotMinutes = 0 }},
		{"shorter than a slot", func(w *Window) { w.End = w.Start.Add(15) }},
		{"missing provider", func(w *Window) { w.ProviderID = uuid.Nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := base
			tt.mutate(&w)
			err := NewSchedule(provider, nil, nil).AddWindow(w)
			assert.True(t, errors.Is(err, ErrInvalidWindow), "got %v", err)
		})
	}
}

func TestScheduleAddWindow_Overlaps(t *testing.T) {
	provider := uuid.New()
	s := NewSchedule(provider, nil, nil)
	require.NoError(t, s.AddWindow(Window{ProviderID: provider, DayOfWeek: time.Monday, Start: NewClock(9, 0), End: NewClock(12, 0), SlotMinutes: 30}))

	// Disjoint on the same day is fine.
	require.NoError(t, s.AddWindow(Window{ProviderID: provider, DayOfWeek: time.Monday, Start: NewClock(13, 0), End: NewClock(17, 0), SlotMinutes: 20}))

	// Same grid overlap is accepted and collapses when generating.
	require.NoError(t, s.AddWindow(Window{ProviderID: provider, DayOfWeek: time.Monday, Start: NewClock(11, 0), End: NewClock(12, 30), SlotMinutes: 30}))

	// Different duration over the same interval conflicts.
	err := s.AddWindow(Window{ProviderID: provider, DayOfWeek: time.Monday, Start: NewClock(10, 0), End: NewClock(11, 0), SlotMinutes: 15})
	assert.ErrorIs(t, err, ErrInvalidWindow)

	// Same duration but misaligned grid conflicts.
	err = s.AddWindow(Window{ProviderID: provider, DayOfWeek: time.Monday, Start: NewClock(9, 15), End: NewClock(10, 15), SlotMinutes: 30})
	assert.ErrorIs(t, err, ErrInvalidWindow)

	slots := s.Slots(monday)
	assert.Equal(t, []string{
		"09:00", "09:30", "10:00", "10:30", "11:00", "11:30", "12:00",
		"13:00", "13:20", "13:40", "14:00", "14:20", "14:40", "15:00", "15:20", "15:40", "16:00", "16:20", "16:40",
	}, starts(slots))
}

func TestScheduleAddBreak_MustBeContained(t *testing.T) {
	provider := uuid.New()
	s := NewSchedule(provider, []Window{
		{ProviderID: provider, DayOfWeek: time.Monday, Start: NewClock(9, 0), End: NewClock(17, 0), SlotMinutes: 30},
	}, nil)
	mon := time.Monday
	tue := time.Tuesday

	require.NoError(t, s.AddBreak(Break{ProviderID: provider, DayOfWeek: &mon, Start: NewClock(12, 0), End: NewClock(12, 30), Label: "Lunch"}))

	err := s.AddBreak(Break{ProviderID: provider, DayOfWeek: &mon, Start: NewClock(16, 30), End: NewClock(17, 30)})
	assert.ErrorIs(t, err, ErrInvalidWindow)

	err = s.AddBreak(Break{ProviderID: provider, DayOfWeek: &tue, Start: NewClock(12, 0), End: NewClock(12, 30)})
	assert.ErrorIs(t, err, ErrInvalidWindow)

	d := monday
	err = s.AddBreak(Break{ProviderID: provider, DayOfWeek: &mon, Date: &d, Start: NewClock(10, 0), End: NewClock(10, 30)})
	assert.ErrorIs(t, err, ErrInvalidWindow, "day_of_week and date are exclusive")

	require.NoError(t, s.AddBreak(Break{ProviderID: provider, Date: &d, Start: NewClock(10, 0), End: NewClock(10, 30)}))
	assert.Len(t, s.BreaksFor(monday), 2)
	assert.Len(t, s.BreaksFor(monday.AddDays(7)), 1)
}

func TestScheduleWindowsForIsRestartable(t *testing.T) {
	provider := uuid.New()
	s := NewSchedule(provider, []Window{
		{ProviderID: provider, DayOfWeek: time.Monday, Start: NewClock(14, 0), End: NewClock(15, 0), SlotMinutes: 30},
		{ProviderID: provider, DayOfWeek: time.Monday, Start: NewClock(9, 0), End: NewClock(10, 0), SlotMinutes: 30},
		{ProviderID: provider, DayOfWeek: time.Friday, Start: NewClock(9, 0), End: NewClock(10, 0), SlotMinutes: 30},
	}, nil)

	first := s.WindowsFor(monday)
	require.Len(t, first, 2)
	assert.Equal(t, NewClock(9, 0), first[0].Start)

	first[0].Start = NewClock(8, 0)
	second := s.WindowsFor(monday)
	assert.Equal(t, NewClock(9, 0), second[0].Start)
}

func TestManagerAddWindowAndBreak(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store, 30, nil)
	provider := uuid.New()

	w, err := m.AddWindow(ctx, Window{ProviderID: provider, DayOfWeek: time.Monday, Start: NewClock(9, 0), End: NewClock(12, 0)})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, w.ID)
	assert.Equal(t, 30, w.SlotMinutes, "default slot duration applied")

	_, err = m.AddWindow(ctx, Window{ProviderID: provider, DayOfWeek: time.Monday, Start: NewClock(10, 0), End: NewClock(11, 0), SlotMinutes: 45})
	assert.ErrorIs(t, err, ErrInvalidWindow)

	mon := time.Monday
	_, err = m.AddBreak(ctx, Break{ProviderID: provider, DayOfWeek: &mon, Start: NewClock(10, 30), End: NewClock(11, 0), Label: "Break"})
	require.NoError(t, err)

	sched, err := m.Load(ctx, provider, monday)
	require.NoError(t, err)
	slots := sched.Slots(monday)
	require.Len(t, slots, 6)
	assert.True(t, slots[3].IsBreak)
}

func TestManagerConcurrentOverlappingWindows(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), 30, nil)
	provider := uuid.New()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		added   int
		invalid int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := NewClock(9, 0) + Clock(i%3*30)
			_, err := m.AddWindow(ctx, Window{ProviderID: provider, DayOfWeek: time.Tuesday, Start: start, End: start + Clock(120)})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				added++
				return
			}
			assert.ErrorIs(t, err, ErrInvalidWindow)
			invalid++
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, added)
	assert.Equal(t, 19, invalid)
	windows, err := m.Windows(ctx, provider)
	require.NoError(t, err)
	assert.Len(t, windows, 1)
}
