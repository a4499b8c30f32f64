package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/careslot/internal/db"
)

type PgStore struct {
	db db.DB
}

func NewPgStore(conn db.DB) *PgStore {
	return &PgStore{db: conn}
}

func scanWindow(row pgx.Row) (*Window, error) {
	var w Window
	var day int16
	var start, end int

	err := row.Scan(
		&w.ID,
		&w.ProviderID,
		&day,
		&start,
		&end,
		&w.SlotMinutes,
		&w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.DayOfWeek = time.Weekday(day)
	w.Start = Clock(start)
	w.End = Clock(end)
	return &w, nil
}

func scanBreak(row pgx.Row) (*Break, error) {
	var b Break
	var day *int16
	var onDate *time.Time
	var start, end int

	err := row.Scan(
		&b.ID,
		&b.ProviderID,
		&day,
		&onDate,
		&start,
		&end,
		&b.Label,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if day != nil {
		wd := time.Weekday(*day)
		b.DayOfWeek = &wd
	}
	if onDate != nil {
		d := DateOf(*onDate)
		b.Date = &d
	}
	b.Start = Clock(start)
	b.End = Clock(end)
	return &b, nil
}

func (s *PgStore) ScheduleWindows(ctx context.Context, providerID uuid.UUID) ([]Window, error) {
	return selectWindows(ctx, s.db, providerID)
}

func selectWindows(ctx context.Context, q db.DB, providerID uuid.UUID) ([]Window, error) {
	rows, err := q.Query(ctx, `
		SELECT id, provider_id, day_of_week, start_minute, end_minute, slot_minutes, created_at
		FROM schedule_windows
		WHERE provider_id = $1
		ORDER BY day_of_week, start_minute
	`, providerID)
	if err != nil {
		return nil, db.Wrap("query schedule windows", err)
	}
	defer rows.Close()

	var result []Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, db.Wrap("scan schedule window", err)
		}
		result = append(result, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Wrap("iterate schedule windows", err)
	}
	return result, nil
}

func (s *PgStore) BreakWindows(ctx context.Context, providerID uuid.UUID, date Date) ([]Break, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, provider_id, day_of_week, on_date, start_minute, end_minute, label, created_at
		FROM break_windows
		WHERE provider_id = $1
		  AND (on_date = $2 OR (on_date IS NULL AND day_of_week = $3))
		ORDER BY start_minute
	`, providerID, date.Time(), int16(date.Weekday()))
	if err != nil {
		return nil, db.Wrap("query break windows", err)
	}
	defer rows.Close()

	var result []Break
	for rows.Next() {
		b, err := scanBreak(rows)
		if err != nil {
			return nil, db.Wrap("scan break window", err)
		}
		result = append(result, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Wrap("iterate break windows", err)
	}
	return result, nil
}

// InsertWindow runs check and the insert in one transaction holding the
// provider's advisory lock, so concurrent writers see each other's windows.
func (s *PgStore) InsertWindow(ctx context.Context, w Window, check func(existing []Window) error) (*Window, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, db.Wrap("begin schedule write", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, w.ProviderID.String()); err != nil {
		return nil, db.Wrap("lock provider schedule", err)
	}
	existing, err := selectWindows(ctx, tx, w.ProviderID)
	if err != nil {
		return nil, err
	}
	if err := check(existing); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO schedule_windows (id, provider_id, day_of_week, start_minute, end_minute, slot_minutes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, provider_id, day_of_week, start_minute, end_minute, slot_minutes, created_at
	`, w.ID, w.ProviderID, int16(w.DayOfWeek), int(w.Start), int(w.End), w.SlotMinutes, w.CreatedAt)

	saved, err := scanWindow(row)
	if err != nil {
		return nil, db.Wrap("insert schedule window", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, db.Wrap("commit schedule write", err)
	}
	return saved, nil
}

func (s *PgStore) InsertBreak(ctx context.Context, b Break) (*Break, error) {
	var day *int16
	if b.DayOfWeek != nil {
		v := int16(*b.DayOfWeek)
		day = &v
	}
	var onDate *time.Time
	if b.Date != nil {
		t := b.Date.Time()
		onDate = &t
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO break_windows (id, provider_id, day_of_week, on_date, start_minute, end_minute, label, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, provider_id, day_of_week, on_date, start_minute, end_minute, label, created_at
	`, b.ID, b.ProviderID, day, onDate, int(b.Start), int(b.End), b.Label, b.CreatedAt)

	saved, err := scanBreak(row)
	if err != nil {
		return nil, db.Wrap("insert break window", err)
	}
	return saved, nil
}

func (s *PgStore) DeleteWindow(ctx context.Context, providerID, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM schedule_windows WHERE id = $1 AND provider_id = $2`, id, providerID)
	if err != nil {
		return db.Wrap("delete schedule window", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) DeleteBreak(ctx context.Context, providerID, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM break_windows WHERE id = $1 AND provider_id = $2`, id, providerID)
	if err != nil {
		return db.Wrap("delete break window", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
