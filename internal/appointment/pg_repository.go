package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/careslot/internal/db"
	"github.com/hackgods/careslot/internal/schedule"
)

// activeSlotIndex is the partial unique index that keeps one active
// appointment per provider slot.
const activeSlotIndex = "appointments_active_slot_uniq"

const appointmentColumns = `id, patient_id, provider_id, date, start_minute, duration_minutes, status, type,
	reason, notes, created_at, updated_at, confirmed_at, cancellation_reason, rejection_reason`

type PgRepository struct {
	db db.DB
}

func NewPgRepository(conn db.DB) *PgRepository {
	return &PgRepository{db: conn}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date time.Time
	var start int
	var status, typ string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ProviderID,
		&date,
		&start,
		&a.DurationMinutes,
		&status,
		&typ,
		&a.Reason,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.ConfirmedAt,
		&a.CancellationReason,
		&a.RejectionReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = schedule.DateOf(date)
	a.Time = schedule.Clock(start)
	a.Status = Status(status)
	a.Type = Type(typ)
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	result := make([]Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Interface methods

func (r *PgRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, db.Wrap("load appointment", err)
	}
	return a, nil
}

func (r *PgRepository) FindAppointment(ctx context.Context, providerID uuid.UUID, date schedule.Date, at schedule.Clock, statuses []Status) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1
		  AND date = $2
		  AND start_minute = $3
		  AND status = ANY($4)
		ORDER BY created_at DESC
		LIMIT 1
	`, providerID, date.Time(), int(at), statusStrings(statuses))
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, db.Wrap("find appointment", err)
	}
	return a, nil
}

func (r *PgRepository) InsertAppointmentIfAbsent(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (
			id, patient_id, provider_id, date, start_minute, duration_minutes, status, type,
			reason, notes, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING `+appointmentColumns,
		a.ID, a.PatientID, a.ProviderID, a.Date.Time(), int(a.Time), a.DurationMinutes,
		string(a.Status), string(a.Type), a.Reason, a.Notes, a.CreatedAt)

	saved, err := scanAppointment(row)
	if err != nil {
		if db.IsUniqueViolation(err, activeSlotIndex) {
			return nil, ErrSlotConflict
		}
		return nil, db.Wrap("insert appointment", err)
	}
	return saved, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, expected, next Status, fields StatusFields) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3,
		    updated_at = $4,
		    confirmed_at = COALESCE($5, confirmed_at),
		    cancellation_reason = COALESCE($6, cancellation_reason),
		    rejection_reason = COALESCE($7, rejection_reason)
		WHERE id = $1
		  AND status = $2
		RETURNING `+appointmentColumns,
		id, string(expected), string(next), fields.UpdatedAt,
		fields.ConfirmedAt, fields.CancellationReason, fields.RejectionReason)

	updated, err := scanAppointment(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, ErrAppointmentNotFound) {
		if db.IsUniqueViolation(err, activeSlotIndex) {
			return nil, ErrSlotConflict
		}
		return nil, db.Wrap("update appointment status", err)
	}

	// Nothing matched: either the row is gone or someone else moved it first.
	var current string
	err = r.db.QueryRow(ctx, `SELECT status FROM appointments WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, db.Wrap("reload appointment status", err)
	}
	return nil, fmt.Errorf("%w: expected %s, found %s", ErrStaleStatus, expected, current)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.PatientID != nil {
		add("patient_id = $%d", *f.PatientID)
	}
	if f.ProviderID != nil {
		add("provider_id = $%d", *f.ProviderID)
	}
	if len(f.Statuses) > 0 {
		add("status = ANY($%d)", statusStrings(f.Statuses))
	}
	if f.Type != "" {
		add("type = $%d", string(f.Type))
	}
	if f.From != nil {
		add("date >= $%d", f.From.Time())
	}
	if f.To != nil {
		add("date <= $%d", f.To.Time())
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + appointmentColumns + "\n\t\tFROM appointments")
	if len(conds) > 0 {
		sb.WriteString("\n\t\tWHERE " + strings.Join(conds, " AND "))
	}
	args = append(args, f.Limit, f.Offset)
	fmt.Fprintf(&sb, "\n\t\tORDER BY date, start_minute\n\t\tLIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, db.Wrap("list appointments", err)
	}
	result, err := collectAppointments(rows)
	if err != nil {
		return nil, db.Wrap("scan appointments", err)
	}
	return result, nil
}

func (r *PgRepository) ListActiveForDay(ctx context.Context, providerID uuid.UUID, date schedule.Date) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1
		  AND date = $2
		  AND status IN ('pending', 'confirmed')
		ORDER BY start_minute
	`, providerID, date.Time())
	if err != nil {
		return nil, db.Wrap("list active appointments", err)
	}
	result, err := collectAppointments(rows)
	if err != nil {
		return nil, db.Wrap("scan active appointments", err)
	}
	return result, nil
}
