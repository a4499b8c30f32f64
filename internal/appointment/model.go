package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/careslot/internal/schedule"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// ActiveStatuses are the statuses that hold a slot.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled || s == StatusCompleted
}

func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Active() && !s.Terminal() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}

type Type string

const (
	TypeConsultation Type = "consultation"
	TypeFollowUp     Type = "follow-up"
	TypeCheckUp      Type = "check-up"
	TypeEmergency    Type = "emergency"
	TypeOther        Type = "other"
)

func ParseType(v string) (Type, error) {
	switch t := Type(v); t {
	case TypeConsultation, TypeFollowUp, TypeCheckUp, TypeEmergency, TypeOther:
		return t, nil
	}
	return "", fmt.Errorf("unknown appointment type %q", v)
}

// Role is the caller's role as asserted by the auth service.
type Role string

const (
	RolePatient  Role = "patient"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

type Appointment struct {
	ID                 uuid.UUID
	PatientID          uuid.UUID
	ProviderID         uuid.UUID
	Date               schedule.Date
	Time               schedule.Clock
	DurationMinutes    int
	Status             Status
	Type               Type
	Reason             string
	Notes              *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ConfirmedAt        *time.Time
	CancellationReason *string
	RejectionReason    *string
}

// StartsAt is the scheduled start as an instant in the clinic's zone.
func (a Appointment) StartsAt(loc *time.Location) time.Time {
	return a.Date.At(a.Time, loc)
}

// SlotID identifies the slot the appointment occupies.
func (a Appointment) SlotID() string {
	return schedule.SlotID(a.ProviderID, a.Date, a.Time)
}

type BookingRequest struct {
	PatientID  uuid.UUID
	ProviderID uuid.UUID
	Date       schedule.Date
	Time       schedule.Clock
	// DurationMinutes is optional; zero means the slot's own length.
	DurationMinutes int
	Type            Type
	Reason          string
	Notes           *string
}

// StatusFields are written together with a status change. Nil fields leave
// the stored value untouched.
type StatusFields struct {
	ConfirmedAt        *time.Time
	CancellationReason *string
	RejectionReason    *string
	UpdatedAt          time.Time
}

// ListFilter selects appointments for calendar and queue views. At least one
// of PatientID and ProviderID should be set.
type ListFilter struct {
	PatientID  *uuid.UUID
	ProviderID *uuid.UUID
	Statuses   []Status
	Type       Type
	From       *schedule.Date // inclusive
	To         *schedule.Date // inclusive
	Limit      int
	Offset     int
}
