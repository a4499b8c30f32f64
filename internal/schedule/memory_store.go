package schedule

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps schedules in process. It backs tests and local runs
// without Postgres.
type MemoryStore struct {
	mu      sync.RWMutex
	windows map[uuid.UUID][]Window
	breaks  map[uuid.UUID][]Break
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[uuid.UUID][]Window),
		breaks:  make(map[uuid.UUID][]Break),
	}
}

func (m *MemoryStore) ScheduleWindows(_ context.Context, providerID uuid.UUID) ([]Window, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := append([]Window(nil), m.windows[providerID]...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func (m *MemoryStore) BreakWindows(_ context.Context, providerID uuid.UUID, date Date) ([]Break, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Break
	for _, b := range m.breaks[providerID] {
		if b.AppliesTo(date) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *MemoryStore) InsertWindow(_ context.Context, w Window, check func(existing []Window) error) (*Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := check(append([]Window(nil), m.windows[w.ProviderID]...)); err != nil {
		return nil, err
	}
	m.windows[w.ProviderID] = append(m.windows[w.ProviderID], w)
	return &w, nil
}

func (m *MemoryStore) InsertBreak(_ context.Context, b Break) (*Break, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.breaks[b.ProviderID] = append(m.breaks[b.ProviderID], b)
	return &b, nil
}

func (m *MemoryStore) DeleteWindow(_ context.Context, providerID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	windows := m.windows[providerID]
	for i, w := range windows {
		if w.ID == id {
			m.windows[providerID] = append(windows[:i:i], windows[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) DeleteBreak(_ context.Context, providerID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	breaks := m.breaks[providerID]
	for i, b := range breaks {
		if b.ID == id {
			m.breaks[providerID] = append(breaks[:i:i], breaks[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
