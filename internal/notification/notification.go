package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeAppointmentRequested Type = "appointment-requested"
	TypeAppointmentConfirmed Type = "appointment-confirmed"
	TypeAppointmentRejected  Type = "appointment-rejected"
	TypeAppointmentCancelled Type = "appointment-cancelled"
	TypeAppointmentReminder  Type = "appointment-reminder"
	TypeSystemMessage        Type = "system-message"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	Type            Type       `json:"type"`
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	IsRead          bool       `json:"is_read"`
	RelatedEntityID *uuid.UUID `json:"related_entity_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// New stamps a fresh unread notification. The id is assigned here so that a
// redelivered stream entry maps onto the same row.
func New(userID uuid.UUID, typ Type, title, message string, relatedEntityID *uuid.UUID) Notification {
	return Notification{
		ID:              uuid.New(),
		UserID:          userID,
		Type:            typ,
		Title:           title,
		Message:         message,
		RelatedEntityID: relatedEntityID,
		CreatedAt:       time.Now().UTC(),
	}
}

// Sink receives notifications from the dispatcher.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

type ListOptions struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

// Store holds the notification records users read in their inbox.
type Store interface {
	// Insert is idempotent on ID.
	Insert(ctx context.Context, n Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id uuid.UUID) (*Notification, error)
	ToggleRead(ctx context.Context, id uuid.UUID) (*Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
