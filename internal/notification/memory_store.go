package notification

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store and Sink.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[uuid.UUID]Notification)}
}

func (m *MemoryStore) Insert(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[n.ID]; !ok {
		m.items[n.ID] = n
	}
	return nil
}

func (m *MemoryStore) Deliver(ctx context.Context, n Notification) error {
	return m.Insert(ctx, n)
}

func (m *MemoryStore) ListByUser(_ context.Context, userID uuid.UUID, opts ListOptions) ([]Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Notification, 0)
	for _, n := range m.items {
		if n.UserID != userID || (opts.UnreadOnly && n.IsRead) {
			continue
		}
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	offset := max(opts.Offset, 0)
	if offset >= len(result) {
		return []Notification{}, nil
	}
	result = result[offset:]
	if limit := clampLimit(opts.Limit); len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MemoryStore) UnreadCount(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, n := range m.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) MarkRead(_ context.Context, id uuid.UUID) (*Notification, error) {
	return m.update(id, func(n *Notification) { n.IsRead = true })
}

func (m *MemoryStore) ToggleRead(_ context.Context, id uuid.UUID) (*Notification, error) {
	return m.update(id, func(n *Notification) { n.IsRead = !n.IsRead })
}

func (m *MemoryStore) update(id uuid.UUID, fn func(n *Notification)) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	fn(&n)
	m.items[id] = n
	return &n, nil
}

func (m *MemoryStore) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var changed int64
	for id, n := range m.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			m.items[id] = n
			changed++
		}
	}
	return changed, nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}
