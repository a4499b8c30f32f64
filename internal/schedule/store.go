package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store persists provider windows and breaks.
type Store interface {
	ScheduleWindows(ctx context.Context, providerID uuid.UUID) ([]Window, error)
	// BreakWindows returns the breaks that apply on date: weekly ones for its
	// weekday and one-off ones for the exact date.
	BreakWindows(ctx context.Context, providerID uuid.UUID, date Date) ([]Break, error)

	// InsertWindow persists w if check accepts the provider's current
	// windows. No other window of the provider is inserted in between.
	InsertWindow(ctx context.Context, w Window, check func(existing []Window) error) (*Window, error)
	InsertBreak(ctx context.Context, b Break) (*Break, error)

	// DeleteWindow and DeleteBreak return ErrNotFound when no row of the
	// provider has the id.
	DeleteWindow(ctx context.Context, providerID, id uuid.UUID) error
	DeleteBreak(ctx context.Context, providerID, id uuid.UUID) error
}

var ErrNotFound = errors.New("schedule entry not found")

// Manager is the write side of provider schedules.
type Manager struct {
	store              Store
	defaultSlotMinutes int
	logger             *zap.Logger
}

func NewManager(store Store, defaultSlotMinutes int, logger *zap.Logger) *Manager {
	if defaultSlotMinutes <= 0 {
		defaultSlotMinutes = DefaultSlotMinutes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, defaultSlotMinutes: defaultSlotMinutes, logger: logger}
}

// Load returns the provider's schedule with the breaks in force on date.
func (m *Manager) Load(ctx context.Context, providerID uuid.UUID, date Date) (*Schedule, error) {
	windows, err := m.store.ScheduleWindows(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("load schedule windows: %w", err)
	}
	breaks, err := m.store.BreakWindows(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("load break windows: %w", err)
	}
	return NewSchedule(providerID, windows, breaks), nil
}

func (m *Manager) Windows(ctx context.Context, providerID uuid.UUID) ([]Window, error) {
	windows, err := m.store.ScheduleWindows(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("load schedule windows: %w", err)
	}
	return windows, nil
}

// AddWindow validates w against the provider's current windows and persists
// it. The check and the insert are atomic per provider.
func (m *Manager) AddWindow(ctx context.Context, w Window) (*Window, error) {
	if w.SlotMinutes == 0 {
		w.SlotMinutes = m.defaultSlotMinutes
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}

	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	w.CreatedAt = time.Now().UTC()
	saved, err := m.store.InsertWindow(ctx, w, func(existing []Window) error {
		return NewSchedule(w.ProviderID, existing, nil).AddWindow(w)
	})
	if errors.Is(err, ErrInvalidWindow) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("insert schedule window: %w", err)
	}
	m.logger.Info("schedule window added",
		zap.String("provider_id", saved.ProviderID.String()),
		zap.Stringer("day_of_week", saved.DayOfWeek),
		zap.Stringer("start", saved.Start),
		zap.Stringer("end", saved.End),
	)
	return saved, nil
}

// AddBreak checks that b sits inside one of the provider's windows and persists it.
func (m *Manager) AddBreak(ctx context.Context, b Break) (*Break, error) {
	windows, err := m.store.ScheduleWindows(ctx, b.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("load schedule windows: %w", err)
	}
	if err := NewSchedule(b.ProviderID, windows, nil).AddBreak(b); err != nil {
		return nil, err
	}

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now().UTC()
	saved, err := m.store.InsertBreak(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("insert break window: %w", err)
	}
	return saved, nil
}

// Breaks returns every break of the provider that is in force on date.
func (m *Manager) Breaks(ctx context.Context, providerID uuid.UUID, date Date) ([]Break, error) {
	breaks, err := m.store.BreakWindows(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("load break windows: %w", err)
	}
	return breaks, nil
}

// RemoveWindow deletes a window. Breaks that were inside it are left alone;
// they stop producing anything once no window covers them.
func (m *Manager) RemoveWindow(ctx context.Context, providerID, id uuid.UUID) error {
	if err := m.store.DeleteWindow(ctx, providerID, id); err != nil {
		return fmt.Errorf("delete schedule window: %w", err)
	}
	m.logger.Info("schedule window removed",
		zap.String("provider_id", providerID.String()),
		zap.String("window_id", id.String()),
	)
	return nil
}

func (m *Manager) RemoveBreak(ctx context.Context, providerID, id uuid.UUID) error {
	if err := m.store.DeleteBreak(ctx, providerID, id); err != nil {
		return fmt.Errorf("delete break window: %w", err)
	}
	return nil
}
