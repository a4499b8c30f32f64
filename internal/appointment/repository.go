package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/careslot/internal/db"
	"github.com/hackgods/careslot/internal/schedule"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrSlotConflict means another pending or confirmed appointment holds the slot.
	ErrSlotConflict = errors.New("slot already booked")
	// ErrStaleStatus is returned by a conditional update whose expected
	// status no longer matches.
	ErrStaleStatus = errors.New("appointment status changed concurrently")
	// ErrTransientStore is safe to retry.
	ErrTransientStore = db.ErrTransient
)

// Repository contains all appointment persistence needed by the service.
type Repository interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// FindAppointment returns the appointment at the slot whose status is in
	// statuses, or ErrAppointmentNotFound.
	FindAppointment(ctx context.Context, providerID uuid.UUID, date schedule.Date, at schedule.Clock, statuses []Status) (*Appointment, error)

	// InsertAppointmentIfAbsent stores a as long as no active appointment
	// holds its slot, and fails with ErrSlotConflict otherwise. The check and
	// the write are atomic.
	InsertAppointmentIfAbsent(ctx context.Context, a Appointment) (*Appointment, error)
	// UpdateAppointmentStatus moves id from expected to next only if it is
	// still in expected.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, expected, next Status, fields StatusFields) (*Appointment, error)

	ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, error)
	// ListActiveForDay returns the provider's pending and confirmed appointments on date.
	ListActiveForDay(ctx context.Context, providerID uuid.UUID, date schedule.Date) ([]Appointment, error)
}
