package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hackgods/careslot/internal/metrics"
	"github.com/hackgods/careslot/internal/notification"
	redisclient "github.com/hackgods/careslot/internal/redis"
	"github.com/hackgods/careslot/internal/schedule"
)

var tracer = otel.Tracer("careslot.internal.appointment")

// Locker guards the booking of one slot across processes.
type Locker interface {
	WithSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// Notifier takes notifications off the request path.
type Notifier interface {
	Enqueue(n notification.Notification) bool
}

type Options struct {
	Locker   Locker // optional
	Notifier Notifier
	Metrics  *metrics.SchedulingMetrics
	Logger   *zap.Logger
	Location *time.Location // clinic time zone, UTC if nil
	Now      func() time.Time
}

type Service struct {
	repo      Repository
	schedules *schedule.Manager
	locker    Locker
	notifier  Notifier
	metrics   *metrics.SchedulingMetrics
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
}

func NewService(repo Repository, schedules *schedule.Manager, opts Options) *Service {
	s := &Service{
		repo:      repo,
		schedules: schedules,
		locker:    opts.Locker,
		notifier:  opts.Notifier,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		loc:       opts.Location,
		now:       opts.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) today() schedule.Date {
	return schedule.DateOf(s.now().In(s.loc))
}

// DaySchedule returns every slot of the provider's day with its break and
// booking state, for the provider calendar. Past dates are allowed.
func (s *Service) DaySchedule(ctx context.Context, providerID uuid.UUID, date schedule.Date) ([]schedule.Slot, error) {
	if providerID == uuid.Nil {
		return nil, invalid("provider_id", "is required")
	}
	return s.daySlots(ctx, providerID, date)
}

func (s *Service) daySlots(ctx context.Context, providerID uuid.UUID, date schedule.Date) ([]schedule.Slot, error) {
	sched, err := s.schedules.Load(ctx, providerID, date)
	if err != nil {
		return nil, err
	}
	slots := sched.Slots(date)
	if len(slots) == 0 {
		return slots, nil
	}

	active, err := s.repo.ListActiveForDay(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("load booked slots: %w", err)
	}
	booked := make(map[schedule.Clock]uuid.UUID, len(active))
	for _, a := range active {
		booked[a.Time] = a.ID
	}
	for i := range slots {
		if id, ok := booked[slots[i].Start]; ok {
			slots[i].IsBooked = true
			slots[i].AppointmentID = &id
		}
	}
	return slots, nil
}

// ListAvailableSlots returns the slots of date that a patient can book right
// now, in start order. An empty result is not an error.
func (s *Service) ListAvailableSlots(ctx context.Context, providerID uuid.UUID, date schedule.Date) ([]schedule.Slot, error) {
	if providerID == uuid.Nil {
		return nil, invalid("provider_id", "is required")
	}
	if date.IsZero() {
		return nil, invalid("date", "is required")
	}
	today := s.today()
	if date.Before(today) {
		return nil, fmt.Errorf("%w: %s", ErrPastDate, date)
	}

	slots, err := s.daySlots(ctx, providerID, date)
	if err != nil {
		return nil, err
	}

	now := s.now()
	available := make([]schedule.Slot, 0, len(slots))
	for _, slot := range slots {
		if !slot.Bookable() {
			continue
		}
		if date == today && !date.At(slot.Start, s.loc).After(now) {
			continue
		}
		available = append(available, slot)
	}
	return available, nil
}

// BookAppointment reserves the requested slot with a pending appointment and
// tells the provider about it.
func (s *Service) BookAppointment(ctx context.Context, req BookingRequest) (*Appointment, error) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "appointment.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("careslot.provider_id", req.ProviderID.String()),
		attribute.String("careslot.date", req.Date.String()),
		attribute.String("careslot.time", req.Time.String()),
	)

	appt, err := s.book(ctx, req)
	s.metrics.ObserveBooking(bookingOutcome(err), time.Since(started))
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("careslot.appointment_id", appt.ID.String()))

	s.logger.Info("appointment booked",
		zap.String("appointment_id", appt.ID.String()),
		zap.String("provider_id", appt.ProviderID.String()),
		zap.String("patient_id", appt.PatientID.String()),
		zap.String("slot", appt.SlotID()),
	)
	s.notify(notification.New(appt.ProviderID, notification.TypeAppointmentRequested,
		"New appointment request",
		fmt.Sprintf("A patient requested a %s appointment on %s at %s.", appt.Type, appt.Date, appt.Time),
		&appt.ID,
	))
	return appt, nil
}

func (s *Service) book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if req.PatientID == uuid.Nil {
		return nil, invalid("patient_id", "is required")
	}
	if req.ProviderID == uuid.Nil {
		return nil, invalid("provider_id", "is required")
	}
	if req.Date.IsZero() {
		return nil, invalid("date", "is required")
	}
	if !req.Time.Valid() || req.Time == schedule.MinutesPerDay {
		return nil, invalid("time", "must be within the day")
	}
	if req.DurationMinutes < 0 {
		return nil, invalid("duration_minutes", "must not be negative")
	}
	typ := req.Type
	if typ == "" {
		typ = TypeConsultation
	}
	if _, err := ParseType(string(typ)); err != nil {
		return nil, invalid("type", "%v", err)
	}

	now := s.now()
	if !req.Date.At(req.Time, s.loc).After(now) {
		return nil, fmt.Errorf("%w: %s %s", ErrPastDate, req.Date, req.Time)
	}

	sched, err := s.schedules.Load(ctx, req.ProviderID, req.Date)
	if err != nil {
		return nil, err
	}
	slot, ok := schedule.Find(sched.Slots(req.Date), req.Time)
	if !ok {
		return nil, fmt.Errorf("%w: provider has no slot at %s %s", ErrInvalidSlot, req.Date, req.Time)
	}
	if slot.IsBreak {
		return nil, fmt.Errorf("%w: %s %s falls in a break", ErrInvalidSlot, req.Date, req.Time)
	}
	if req.DurationMinutes != 0 && req.DurationMinutes != slot.DurationMinutes {
		return nil, fmt.Errorf("%w: slot is %d minutes, requested %d", ErrInvalidSlot, slot.DurationMinutes, req.DurationMinutes)
	}

	candidate := Appointment{
		ID:              uuid.New(),
		PatientID:       req.PatientID,
		ProviderID:      req.ProviderID,
		Date:            req.Date,
		Time:            req.Time,
		DurationMinutes: slot.DurationMinutes,
		Status:          StatusPending,
		Type:            typ,
		Reason:          strings.TrimSpace(req.Reason),
		Notes:           req.Notes,
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}

	// slotFree reports ErrSlotConflict when an active appointment holds the slot.
	slotFree := func(ctx context.Context) error {
		existing, err := s.repo.FindAppointment(ctx, candidate.ProviderID, candidate.Date, candidate.Time, ActiveStatuses)
		if err == nil {
			return fmt.Errorf("%w: held by appointment %s", ErrSlotConflict, existing.ID)
		}
		if !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check slot: %w", err)
		}
		return nil
	}

	var created *Appointment
	commit := func(ctx context.Context) error {
		if err := slotFree(ctx); err != nil {
			return err
		}
		saved, err := s.repo.InsertAppointmentIfAbsent(ctx, candidate)
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
		created = saved
		return nil
	}

	err = s.withSlotLock(ctx, slot.ID, commit)
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		// The lock holder may already have won the slot.
		if err := slotFree(ctx); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: slot is being booked, retry", ErrTransientStore)
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

// withSlotLock runs fn under the slot lock when a locker is configured. The
// lock only narrows contention; the repository's atomic insert decides. If
// the lock backend itself fails, fn runs unlocked. Contention is returned as
// redisclient.ErrLockNotAcquired without running fn.
func (s *Service) withSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}

	ran := false
	err := s.locker.WithSlotLock(ctx, key, func(ctx context.Context) error {
		ran = true
		return fn(ctx)
	})
	switch {
	case ran || err == nil:
		return err
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		return err
	default:
		s.logger.Warn("slot lock unavailable, booking without it",
			zap.String("slot", key),
			zap.Error(err),
		)
		return fn(ctx)
	}
}

// ConfirmAppointment accepts a pending request.
func (s *Service) ConfirmAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.transition(ctx, id, TransitionConfirm, func(_ *Appointment, now time.Time) (StatusFields, error) {
		at := now.UTC()
		return StatusFields{ConfirmedAt: &at}, nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(notification.New(appt.PatientID, notification.TypeAppointmentConfirmed,
		"Appointment confirmed",
		fmt.Sprintf("Your appointment on %s at %s has been confirmed.", appt.Date, appt.Time),
		&appt.ID,
	))
	return appt, nil
}

// RejectAppointment declines a pending request and frees its slot.
func (s *Service) RejectAppointment(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("reason", "is required to reject an appointment")
	}

	appt, err := s.transition(ctx, id, TransitionReject, func(*Appointment, time.Time) (StatusFields, error) {
		return StatusFields{RejectionReason: &reason}, nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(notification.New(appt.PatientID, notification.TypeAppointmentRejected,
		"Appointment request declined",
		fmt.Sprintf("Your appointment request for %s at %s was declined: %s", appt.Date, appt.Time, reason),
		&appt.ID,
	))
	return appt, nil
}

// CancelAppointment withdraws a pending or confirmed appointment and frees
// its slot. The other party is notified; an admin cancellation notifies both.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, reason string, by Role) (*Appointment, error) {
	reason = strings.TrimSpace(reason)

	appt, err := s.transition(ctx, id, TransitionCancel, func(*Appointment, time.Time) (StatusFields, error) {
		if reason == "" {
			return StatusFields{}, nil
		}
		return StatusFields{CancellationReason: &reason}, nil
	})
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("The appointment on %s at %s was cancelled.", appt.Date, appt.Time)
	if reason != "" {
		msg = fmt.Sprintf("The appointment on %s at %s was cancelled: %s", appt.Date, appt.Time, reason)
	}
	var recipients []uuid.UUID
	switch by {
	case RolePatient:
		recipients = []uuid.UUID{appt.ProviderID}
	case RoleProvider:
		recipients = []uuid.UUID{appt.PatientID}
	default:
		recipients = []uuid.UUID{appt.PatientID, appt.ProviderID}
	}
	for _, to := range recipients {
		s.notify(notification.New(to, notification.TypeAppointmentCancelled, "Appointment cancelled", msg, &appt.ID))
	}
	return appt, nil
}

// CompleteAppointment closes a confirmed appointment once it has started.
func (s *Service) CompleteAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, TransitionComplete, func(a *Appointment, now time.Time) (StatusFields, error) {
		if now.Before(a.StartsAt(s.loc)) {
			return StatusFields{}, fmt.Errorf("%w: starts at %s", ErrPrematureCompletion, a.StartsAt(s.loc).Format(time.RFC3339))
		}
		return StatusFields{}, nil
	})
}

type fieldsFunc func(current *Appointment, now time.Time) (StatusFields, error)

func (s *Service) transition(ctx context.Context, id uuid.UUID, t Transition, prepare fieldsFunc) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment."+string(t))
	defer span.End()
	span.SetAttributes(attribute.String("careslot.appointment_id", id.String()))

	appt, err := s.applyTransition(ctx, id, t, prepare)
	s.metrics.ObserveTransition(string(t), transitionOutcome(err))
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	fields := []zap.Field{
		zap.String("appointment_id", appt.ID.String()),
		zap.String("transition", string(t)),
		zap.String("status", string(appt.Status)),
	}
	if releasesSlot(appt.Status) {
		fields = append(fields, zap.String("released_slot", appt.SlotID()))
	}
	s.logger.Info("appointment status changed", fields...)
	return appt, nil
}

func (s *Service) applyTransition(ctx context.Context, id uuid.UUID, t Transition, prepare fieldsFunc) (*Appointment, error) {
	current, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Next(current.Status, t)
	if err != nil {
		return nil, err
	}

	now := s.now()
	fields, err := prepare(current, now)
	if err != nil {
		return nil, err
	}
	fields.UpdatedAt = now.UTC()

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, current.Status, next, fields)
	if err != nil {
		if errors.Is(err, ErrStaleStatus) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTransition, err)
		}
		return nil, fmt.Errorf("%s appointment: %w", t, err)
	}
	return updated, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointment(ctx, id)
}

// ListAppointments backs the calendar views and the provider's queue.
func (s *Service) ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, error) {
	if f.PatientID == nil && f.ProviderID == nil {
		return nil, invalid("filter", "patient_id or provider_id is required")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, invalid("from", "must not be after to")
	}
	if f.Limit <= 0 {
		f.Limit = 20 // default
	}
	if f.Limit > 100 {
		f.Limit = 100 // max
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	list, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return list, nil
}

func (s *Service) ScheduleWindows(ctx context.Context, providerID uuid.UUID) ([]schedule.Window, error) {
	return s.schedules.Windows(ctx, providerID)
}

func (s *Service) AddScheduleWindow(ctx context.Context, w schedule.Window) (*schedule.Window, error) {
	return s.schedules.AddWindow(ctx, w)
}

func (s *Service) AddBreakWindow(ctx context.Context, b schedule.Break) (*schedule.Break, error) {
	return s.schedules.AddBreak(ctx, b)
}

func (s *Service) BreakWindows(ctx context.Context, providerID uuid.UUID, date schedule.Date) ([]schedule.Break, error) {
	return s.schedules.Breaks(ctx, providerID, date)
}

func (s *Service) RemoveScheduleWindow(ctx context.Context, providerID, id uuid.UUID) error {
	return s.schedules.RemoveWindow(ctx, providerID, id)
}

func (s *Service) RemoveBreakWindow(ctx context.Context, providerID, id uuid.UUID) error {
	return s.schedules.RemoveBreak(ctx, providerID, id)
}

func (s *Service) notify(n notification.Notification) {
	if s.notifier == nil {
		return
	}
	s.notifier.Enqueue(n)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeBooked
	case errors.Is(err, ErrSlotConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, ErrTransientStore):
		return metrics.OutcomeTransient
	case IsValidation(err), errors.Is(err, ErrPastDate), errors.Is(err, ErrInvalidSlot):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}

func transitionOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrPrematureCompletion), IsValidation(err):
		return "invalid"
	case errors.Is(err, ErrAppointmentNotFound):
		return "not_found"
	default:
		return "error"
	}
}
