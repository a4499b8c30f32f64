package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/careslot/internal/appointment"
	"github.com/hackgods/careslot/internal/notification"
	"github.com/hackgods/careslot/internal/schedule"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type BookAppointmentRequest struct {
	PatientID       string  `json:"patient_id"`
	ProviderID      string  `json:"provider_id"`
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	DurationMinutes int     `json:"duration_minutes,omitempty"`
	Type            string  `json:"type,omitempty"`
	Reason          string  `json:"reason,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID  `json:"id"`
	PatientID          uuid.UUID  `json:"patient_id"`
	ProviderID         uuid.UUID  `json:"provider_id"`
	Date               string     `json:"date"`
	Time               string     `json:"time"`
	DurationMinutes    int        `json:"duration_minutes"`
	Status             string     `json:"status"`
	Type               string     `json:"type"`
	Reason             string     `json:"reason"`
	Notes              *string    `json:"notes,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	RejectionReason    *string    `json:"rejection_reason,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		PatientID:          a.PatientID,
		ProviderID:         a.ProviderID,
		Date:               a.Date.String(),
		Time:               a.Time.String(),
		DurationMinutes:    a.DurationMinutes,
		Status:             string(a.Status),
		Type:               string(a.Type),
		Reason:             a.Reason,
		Notes:              a.Notes,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
		ConfirmedAt:        a.ConfirmedAt,
		CancellationReason: a.CancellationReason,
		RejectionReason:    a.RejectionReason,
	}
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

type SlotResponse struct {
	ID              string     `json:"id"`
	ProviderID      uuid.UUID  `json:"provider_id"`
	Date            string     `json:"date"`
	StartTime       string     `json:"start_time"`
	EndTime         string     `json:"end_time"`
	DurationMinutes int        `json:"duration_minutes"`
	IsBreak         bool       `json:"is_break"`
	IsBooked        bool       `json:"is_booked"`
	AppointmentID   *uuid.UUID `json:"appointment_id,omitempty"`
}

func toSlotResponses(slots []schedule.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{
			ID:              s.ID,
			ProviderID:      s.ProviderID,
			Date:            s.Date.String(),
			StartTime:       s.Start.String(),
			EndTime:         s.End().String(),
			DurationMinutes: s.DurationMinutes,
			IsBreak:         s.IsBreak,
			IsBooked:        s.IsBooked,
			AppointmentID:   s.AppointmentID,
		})
	}
	return out
}

type SlotsResponse struct {
	ProviderID uuid.UUID      `json:"provider_id"`
	Date       string         `json:"date"`
	Slots      []SlotResponse `json:"slots"`
}

type WindowRequest struct {
	DayOfWeek           int    `json:"day_of_week"`
	StartTime           string `json:"start_time"`
	EndTime             string `json:"end_time"`
	SlotDurationMinutes int    `json:"slot_duration_minutes,omitempty"`
}

type WindowResponse struct {
	ID                  uuid.UUID `json:"id"`
	ProviderID          uuid.UUID `json:"provider_id"`
	DayOfWeek           int       `json:"day_of_week"`
	StartTime           string    `json:"start_time"`
	EndTime             string    `json:"end_time"`
	SlotDurationMinutes int       `json:"slot_duration_minutes"`
}

func toWindowResponse(w schedule.Window) WindowResponse {
	return WindowResponse{
		ID:                  w.ID,
		ProviderID:          w.ProviderID,
		DayOfWeek:           int(w.DayOfWeek),
		StartTime:           w.Start.String(),
		EndTime:             w.End.String(),
		SlotDurationMinutes: w.SlotMinutes,
	}
}

type BreakRequest struct {
	DayOfWeek *int   `json:"day_of_week,omitempty"`
	Date      string `json:"date,omitempty"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Label     string `json:"label,omitempty"`
}

type BreakResponse struct {
	ID         uuid.UUID `json:"id"`
	ProviderID uuid.UUID `json:"provider_id"`
	DayOfWeek  *int      `json:"day_of_week,omitempty"`
	Date       string    `json:"date,omitempty"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	Label      string    `json:"label"`
}

func toBreakResponse(b schedule.Break) BreakResponse {
	resp := BreakResponse{
		ID:         b.ID,
		ProviderID: b.ProviderID,
		StartTime:  b.Start.String(),
		EndTime:    b.End.String(),
		Label:      b.Label,
	}
	if b.DayOfWeek != nil {
		day := int(*b.DayOfWeek)
		resp.DayOfWeek = &day
	}
	if b.Date != nil {
		resp.Date = b.Date.String()
	}
	return resp
}

type NotificationListResponse struct {
	Notifications []notification.Notification `json:"notifications"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
