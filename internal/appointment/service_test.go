package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hackgods/careslot/internal/db"
	"github.com/hackgods/careslot/internal/metrics"
	"github.com/hackgods/careslot/internal/notification"
	redisclient "github.com/hackgods/careslot/internal/redis"
	"github.com/hackgods/careslot/internal/schedule"
)

// 2026-01-04 is a Sunday; the provider works the following Monday.
var (
	sunday = time.Date(2026, time.January, 4, 8, 0, 0, 0, time.UTC)
	monday = schedule.Date{Year: 2026, Month: time.January, Day: 5}
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (r *recordingNotifier) Enqueue(n notification.Notification) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return true
}

func (r *recordingNotifier) take() []notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sent
	r.sent = nil
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fixture struct {
	svc      *Service
	repo     *MemoryRepository
	manager  *schedule.Manager
	notifier *recordingNotifier
	clock    *fakeClock
	provider uuid.UUID
}

type fixtureOption func(*Options)

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	f := &fixture{
		repo:     NewMemoryRepository(),
		notifier: &recordingNotifier{},
		clock:    &fakeClock{now: sunday},
		provider: uuid.New(),
	}
	logger := zaptest.NewLogger(t)
	f.manager = schedule.NewManager(schedule.NewMemoryStore(), 30, logger)

	o := Options{
		Notifier: f.notifier,
		Metrics:  metrics.NewSchedulingMetrics(prometheus.NewRegistry()),
		Logger:   logger,
		Location: time.UTC,
		Now:      f.clock.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	f.svc = NewService(f.repo, f.manager, o)
	return f
}

func (f *fixture) window(t *testing.T, day time.Weekday, start, end string, minutes int) {
	t.Helper()
	_, err := f.svc.AddScheduleWindow(context.Background(), schedule.Window{
		ProviderID:  f.provider,
		DayOfWeek:   day,
		Start:       clock(t, start),
		End:         clock(t, end),
		SlotMinutes: minutes,
	})
	require.NoError(t, err)
}

func (f *fixture) book(t *testing.T, at string) (*Appointment, error) {
	t.Helper()
	return f.svc.BookAppointment(context.Background(), BookingRequest{
		PatientID:  uuid.New(),
		ProviderID: f.provider,
		Date:       monday,
		Time:       clock(t, at),
		Reason:     "annual check",
	})
}

func (f *fixture) available(t *testing.T) []string {
	t.Helper()
	slots, err := f.svc.ListAvailableSlots(context.Background(), f.provider, monday)
	require.NoError(t, err)
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start.String())
	}
	return out
}

func clock(t *testing.T, s string) schedule.Clock {
	t.Helper()
	c, err := schedule.ParseClock(s)
	require.NoError(t, err)
	return c
}

func TestListAvailableSlots_Window(t *testing.T) {
	f := newFixture(t)
	f.window(t, time.Monday, "09:00", "10:00", 30)

	assert.Equal(t, []string{"09:00", "09:30"}, f.available(t))
}

func TestListAvailableSlots_NoWindowIsEmpty(t *testing.T) {
	f := newFixture(t)
	f.window(t, time.Tuesday, "09:00", "10:00", 30)

	slots, err := f.svc.ListAvailableSlots(context.Background(), f.provider, monday)
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestListAvailableSlots_PastDate(t *testing.T) {
	f := newFixture(t)
	f.window(t, time.Monday, "09:00", "10:00", 30)

	_, err := f.svc.ListAvailableSlots(context.Background(), f.provider, monday.AddDays(-7))
	assert.ErrorIs(t, err, ErrPastDate)
}

func TestListAvailableSlots_TodaySkipsStartedSlots(t *testing.T) {
	f := newFixture(t)
	f.window(t, time.Monday, "09:00", "10:30", 30)
	f.clock.Set(monday.At(clock(t, "09:10"), time.UTC))

	assert.Equal(t, []string{"09:30", "10:00"}, f.available(t))
}

func TestBooking_ConflictOnSameSlot(t *testing.T) {
	f := newFixture(t)
	f.window(t, time.Monday, "09:00", "10:00", 30)

	a, err := f.book(t, "09:00")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, a.Status)
	assert.Equal(t, TypeConsultation, a.Type)
	assert.Equal(t, 30, a.DurationMinutes)

	_, err = f.book(t, "09:00")
	assert.ErrorIs(t, err, ErrSlotConflict)

	assert.Equal(t, []string{"09:30"}, f.available(t))
}

func TestBooking_NotifiesProviderOnly(t *testing.T) {
	f := newFixture(t)
	f.window(t, time.Monday, "09:00", "10:00", 30)

	a, err := f.book(t, "09:30")
	require.NoError(t, err)

	sent := f.notifier.take()
	require.Len(t, sent, 1)
	assert.Equal(t, a.ProviderID, sent[0].UserID)
	assert.Equal(t, notification.TypeAppointmentRequested, sent[0].Type)
	require.NotNil(t, sent[0].RelatedEntityID)
	assert.Equal(t, a.ID, *sent[0].RelatedEntityID)
}

func TestBooking_Validation(t *testing.T) {
	f := newFixture(t)
	f.window(t, time.Monday, "09:00", "10:00", 30)
	ctx := context.Background()

	tests := []struct {
		name string
		req  BookingRequest
		want error
	}{
		{"past date", BookingRequest{PatientID: uuid.New(), ProviderID: f.provider, Date: monday.AddDays(-7), Time: clock(t, "09:00")}, ErrPastDate},
		{"off grid", BookingRequest{PatientID: uuid.New(), ProviderID: f.provider, Date: monday, Time: clock(t, "09:15")}, ErrInvalidSlot},
		{"outside window", BookingRequest{PatientID: uuid.New(), ProviderID: f.provider, Date: monday, Time: clock(t, "10:00")}, ErrInvalidSlot},
		{"wrong weekday", BookingRequest{PatientID: uuid.New(), ProviderID: f.provider, Date: monday.AddDays(1), Time: clock(t, "09:00")}, ErrInvalidSlot},
		{"duration mismatch", BookingRequest{PatientID: uuid.New(), ProviderID: f.provider, Date: monday, Time: clock(t, "09:00"), DurationMinutes: 60}, ErrInvalidSlot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.BookAppointment(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := f.svc.BookAppointment(ctx, BookingRequest{ProviderID: f.provider, Date: monday, Time: clock(t, "09:00")})
	assert.True(t, IsValidation(err), "missing patient: %v", err)

	_, err = f.svc.BookAppointment(ctx, BookingRequest{PatientID: uuid.New(), ProviderID: f.provider, Date: monday, Time: clock(t, "09:00"), Type: "surgery"})
	assert.True(t, IsValidation(err), "unknown type: %v", err)

	assert.Empty(t, f.notifier.take(), "failed bookings notify nobody")
}

func TestRejectFreesSlot(t *testing.T) {
	f := newFixture(t)
	f.window(t, time.Monday, "09:00", "10:00", 30)
	ctx := context.Background()

	a, err := f.book(t, "09:00")
	require.NoError(t, err)
	f.notifier.take()

	_, err = f.svc.RejectAppointment(ctx, a.ID, "   ")
	assert.True(t, IsValidation(err))

	rejected, err := f.svc.RejectAppointment(ctx, a.ID, "scheduling conflict")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "scheduling conflict", *rejected.RejectionReason)

	sent := f.notifier.take()
	require.Len(t, sent, 1)
	assert.Equal(t, a.PatientID, sent[0].UserID)
	assert.Equal(t, notification.TypeAppointmentRejected, sent[0].Type)
	assert.Contains(t, sent[0].Message, "scheduling conflict")

	assert.Equal(t, []string{"09:00", "09:30"}, f.available(t))

	again, err := f.book(t, "09:00")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, again.ID)

	_, err = f.book(t, "09:00")
	assert.ErrorIs(t, err, ErrSlotConflict, "the freed slot is bookable exactly once")
}

func TestConfirmTwiceFails(t *testing.T) {
	f := newFixture(t)
	f.window(t, time.Monday, "09:00", "10:00", 30)
	ctx := context.Background()

	a, err := f.book(t, "09:00")
	require.NoError(t, err)

	confirmed, err := f.svc.ConfirmAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	assert.Equal(t, sunday, *confirmed.ConfirmedAt)

	_, err = f.svc.ConfirmAppointment(ctx, a.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.RejectAppointment(ctx, a.ID, "too late")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, err := f.svc.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, stored.Status, "failed transitions leave state alone")
	assert.Equal(t, []string{"09:30"}, f.available(t), "confirmed keeps the slot")
}

func TestConfirmRejected(t *testing.T) {
	f := newFixture(t)
	f.window(t, time.Monday, "09:00", "10:00", 30)
	ctx := context.Background()

	a, err := f.book(t, "09:00")
	require.NoError(t, err)
	_, err = f.svc.RejectAppointment(ctx, a.ID, "unavailable")
	require.NoError(t, err)

	_, err = f.svc.ConfirmAppointment(ctx, a.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBreakSlotIsNeverBookable(t *testing.T) {
	f := newFixture(t)
	f.window(t, time.Monday, "11:00", "13:00", 30)
	ctx := context.Background()

	mon := time.Monday
	_, err := f.svc.AddBreakWindow(ctx, schedule.Break{
		ProviderID: f.provider, DayOfWeek: &mon,
		Start: clock(t, "12:00"), End: clock(t, "12:30"), Label: "Lunch",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"11:00", "11:30", "12:30"}, f.available(t))

	day, err := f.svc.DaySchedule(ctx, f.provider, monday)
	require.NoError(t, err)
	slot, ok := schedule.Find(day, clock(t, "12:00"))
	require.True(t, ok)
	assert.True(t, slot.IsBreak)

	_, err = f.book(t, "12:00")
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestCompleteBeforeStartIsPremature(t *testing.T) {
	f := newFixture(t)
	f.window(t, time.Monday, "09:00", "10:00", 30)
	ctx := context.Background()

	a, err := f.book(t, "09:00")
	require.NoError(t, err)

	_, err = f.svc.CompleteAppointment(ctx, a.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition, "pending cannot complete")

	_, err = f.svc.ConfirmAppointment(ctx, a.ID)
	require.NoError(t, err)

	_, err = f.svc.CompleteAppointment(ctx, a.ID)
	assert.ErrorIs(t, err, ErrPrematureCompletion)

	f.clock.Set(monday.At(clock(t, "09:00"), time.UTC))
	done, err := f.svc.CompleteAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	_, err = f.svc.CompleteAppointment(ctx, a.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelNotifiesCounterparty(t *testing.T) {
	f := newFixture(t)
	f.window(t, time.Monday, "09:00", "10:00", 30)
	ctx := context.Background()

	byPatient, err := f.book(t, "09:00")
	require.NoError(t, err)
	byProvider, err := f.book(t, "09:30")
	require.NoError(t, err)
	_, err = f.svc.ConfirmAppointment(ctx, byProvider.ID)
	require.NoError(t, err)
	f.notifier.take()

	cancelled, err := f.svc.CancelAppointment(ctx, byPatient.ID, "", RolePatient)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.CancellationReason)

	sent := f.notifier.take()
	require.Len(t, sent, 1)
	assert.Equal(t, byPatient.ProviderID, sent[0].UserID)

	cancelled, err = f.svc.CancelAppointment(ctx, byProvider.ID, "provider is ill", RoleProvider)
	require.NoError(t, err)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "provider is ill", *cancelled.CancellationReason)

	sent = f.notifier.take()
	require.Len(t, sent, 1)
	assert.Equal(t, byProvider.PatientID, sent[0].UserID)
	assert.Equal(t, notification.TypeAppointmentCancelled, sent[0].Type)

	assert.Equal(t, []string{"09:00", "09:30"}, f.available(t))

	_, err = f.svc.CancelAppointment(ctx, byProvider.ID, "", RoleProvider)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ConfirmAppointment(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestConcurrentBookingsYieldOneAppointment(t *testing.T) {
	f := newFixture(t)
	f.window(t, time.Monday, "09:00", "10:00", 30)

	const attempts = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.BookAppointment(context.Background(), BookingRequest{
				PatientID: uuid.New(), ProviderID: f.provider, Date: monday, Time: schedule.NewClock(9, 0),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)

	active, err := f.repo.ListActiveForDay(context.Background(), f.provider, monday)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestConcurrentBookingsWithRedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := redisclient.NewSlotLocker(client, 2*time.Second, zaptest.NewLogger(t))

	f := newFixture(t, func(o *Options) { o.Locker = locker })
	f.window(t, time.Monday, "09:00", "10:00", 30)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.BookAppointment(context.Background(), BookingRequest{
				PatientID: uuid.New(), ProviderID: f.provider, Date: monday, Time: schedule.NewClock(9, 30),
			})
			if err != nil {
				assert.True(t, errors.Is(err, ErrSlotConflict) || errors.Is(err, ErrTransientStore), "unexpected error: %v", err)
				return
			}
			mu.Lock()
			successes++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.False(t, mr.Exists("lock:slot:"+schedule.SlotID(f.provider, monday, schedule.NewClock(9, 30))))
}

type stubLocker struct{ err error }

func (l stubLocker) WithSlotLock(context.Context, string, func(context.Context) error) error {
	return l.err
}

func TestBookingLockContentionIsTransient(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Locker = stubLocker{err: redisclient.ErrLockNotAcquired} })
	f.window(t, time.Monday, "09:00", "10:00", 30)

	_, err := f.book(t, "09:00")
	assert.ErrorIs(t, err, ErrTransientStore)
}

// busyLocker runs fn until busy is set, then reports contention.
type busyLocker struct{ busy bool }

func (l *busyLocker) WithSlotLock(ctx context.Context, _ string, fn func(context.Context) error) error {
	if l.busy {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}

func TestBookingLockContentionOnTakenSlotConflicts(t *testing.T) {
	locker := &busyLocker{}
	f := newFixture(t, func(o *Options) { o.Locker = locker })
	f.window(t, time.Monday, "09:00", "10:00", 30)

	first, err := f.book(t, "09:00")
	require.NoError(t, err)

	locker.busy = true
	_, err = f.book(t, "09:00")
	require.ErrorIs(t, err, ErrSlotConflict)
	assert.NotErrorIs(t, err, ErrTransientStore)
	assert.Contains(t, err.Error(), first.ID.String())

	_, err = f.book(t, "09:30")
	assert.ErrorIs(t, err, ErrTransientStore, "a free slot under contention is still retryable")
}

func TestBookingSurvivesLockOutage(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Locker = stubLocker{err: errors.New("dial tcp: connection refused")} })
	f.window(t, time.Monday, "09:00", "10:00", 30)

	a, err := f.book(t, "09:00")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, a.Status)
}

type flakyRepo struct {
	*MemoryRepository
	failInserts int
}

func (r *flakyRepo) InsertAppointmentIfAbsent(ctx context.Context, a Appointment) (*Appointment, error) {
	if r.failInserts > 0 {
		r.failInserts--
		return nil, db.Wrap("insert appointment", context.DeadlineExceeded)
	}
	return r.MemoryRepository.InsertAppointmentIfAbsent(ctx, a)
}

func TestRetryAfterTransientFailureBooksOnce(t *testing.T) {
	repo := &flakyRepo{MemoryRepository: NewMemoryRepository(), failInserts: 1}
	clk := &fakeClock{now: sunday}
	manager := schedule.NewManager(schedule.NewMemoryStore(), 30, nil)
	svc := NewService(repo, manager, Options{Now: clk.Now})
	provider := uuid.New()
	ctx := context.Background()

	_, err := svc.AddScheduleWindow(ctx, schedule.Window{ProviderID: provider, DayOfWeek: time.Monday, Start: schedule.NewClock(9, 0), End: schedule.NewClock(10, 0)})
	require.NoError(t, err)

	req := BookingRequest{PatientID: uuid.New(), ProviderID: provider, Date: monday, Time: schedule.NewClock(9, 0)}
	_, err = svc.BookAppointment(ctx, req)
	require.ErrorIs(t, err, ErrTransientStore)

	_, err = svc.BookAppointment(ctx, req)
	require.NoError(t, err)

	_, err = svc.BookAppointment(ctx, req)
	assert.ErrorIs(t, err, ErrSlotConflict)

	active, err := repo.ListActiveForDay(ctx, provider, monday)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

type staleReadRepo struct {
	*MemoryRepository
}

// GetAppointment always reports pending, as if the read raced with another writer.
func (r staleReadRepo) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := r.MemoryRepository.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Status = StatusPending
	return a, nil
}

func TestConcurrentTransitionLosesCompareAndSwap(t *testing.T) {
	inner := NewMemoryRepository()
	manager := schedule.NewManager(schedule.NewMemoryStore(), 30, nil)
	clk := &fakeClock{now: sunday}
	svc := NewService(staleReadRepo{inner}, manager, Options{Now: clk.Now})
	provider := uuid.New()
	ctx := context.Background()

	_, err := svc.AddScheduleWindow(ctx, schedule.Window{ProviderID: provider, DayOfWeek: time.Monday, Start: schedule.NewClock(9, 0), End: schedule.NewClock(10, 0)})
	require.NoError(t, err)
	a, err := svc.BookAppointment(ctx, BookingRequest{PatientID: uuid.New(), ProviderID: provider, Date: monday, Time: schedule.NewClock(9, 0)})
	require.NoError(t, err)

	_, err = svc.ConfirmAppointment(ctx, a.ID)
	require.NoError(t, err)

	_, err = svc.RejectAppointment(ctx, a.ID, "double click")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, err, ErrStaleStatus)

	stored, err := inner.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, stored.Status)
}

func TestListAppointmentsFilters(t *testing.T) {
	f := newFixture(t)
	f.window(t, time.Monday, "09:00", "11:00", 30)
	ctx := context.Background()

	a, err := f.book(t, "09:00")
	require.NoError(t, err)
	b, err := f.book(t, "10:00")
	require.NoError(t, err)
	_, err = f.svc.ConfirmAppointment(ctx, b.ID)
	require.NoError(t, err)

	pending, err := f.svc.ListAppointments(ctx, ListFilter{ProviderID: &f.provider, Statuses: []Status{StatusPending}})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, a.ID, pending[0].ID)

	all, err := f.svc.ListAppointments(ctx, ListFilter{ProviderID: &f.provider, From: &monday, To: &monday})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID, "ordered by start")

	mine, err := f.svc.ListAppointments(ctx, ListFilter{PatientID: &b.PatientID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, b.ID, mine[0].ID)

	_, err = f.svc.ListAppointments(ctx, ListFilter{})
	assert.True(t, IsValidation(err))

	tuesday := monday.AddDays(1)
	_, err = f.svc.ListAppointments(ctx, ListFilter{ProviderID: &f.provider, From: &tuesday, To: &monday})
	assert.True(t, IsValidation(err))
}

func TestDayScheduleMarksBookedSlots(t *testing.T) {
	f := newFixture(t)
	f.window(t, time.Monday, "09:00", "10:00", 30)

	a, err := f.book(t, "09:30")
	require.NoError(t, err)

	day, err := f.svc.DaySchedule(context.Background(), f.provider, monday)
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.False(t, day[0].IsBooked)
	assert.Nil(t, day[0].AppointmentID)
	assert.True(t, day[1].IsBooked)
	require.NotNil(t, day[1].AppointmentID)
	assert.Equal(t, a.ID, *day[1].AppointmentID)
}

func TestNextTable(t *testing.T) {
	tests := []struct {
		from Status
		t    Transition
		want Status
		ok   bool
	}{
		{StatusPending, TransitionConfirm, StatusConfirmed, true},
		{StatusPending, TransitionReject, StatusRejected, true},
		{StatusPending, TransitionCancel, StatusCancelled, true},
		{StatusConfirmed, TransitionCancel, StatusCancelled, true},
		{StatusConfirmed, TransitionComplete, StatusCompleted, true},
		{StatusConfirmed, TransitionConfirm, "", false},
		{StatusConfirmed, TransitionReject, "", false},
		{StatusPending, TransitionComplete, "", false},
		{StatusRejected, TransitionCancel, "", false},
		{StatusCancelled, TransitionConfirm, "", false},
		{StatusCompleted, TransitionCancel, "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.t), func(t *testing.T) {
			got, err := Next(tt.from, tt.t)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
