package appointment

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hackgods/careslot/internal/schedule"
)

// MemoryRepository keeps appointments in process. A single mutex makes the
// slot check and the insert one atomic step, matching the unique index the
// Postgres repository relies on.
type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]Appointment
	active map[string]uuid.UUID // slot id -> active appointment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[uuid.UUID]Appointment),
		active: make(map[string]uuid.UUID),
	}
}

func (r *MemoryRepository) GetAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) FindAppointment(_ context.Context, providerID uuid.UUID, date schedule.Date, at schedule.Clock, statuses []Status) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *Appointment
	for _, a := range r.byID {
		if a.ProviderID != providerID || a.Date != date || a.Time != at || !slices.Contains(statuses, a.Status) {
			continue
		}
		if found == nil || a.CreatedAt.After(found.CreatedAt) {
			found = &a
		}
	}
	if found == nil {
		return nil, ErrAppointmentNotFound
	}
	return found, nil
}

func (r *MemoryRepository) InsertAppointmentIfAbsent(_ context.Context, a Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := a.SlotID()
	if a.Status.Active() {
		if _, taken := r.active[key]; taken {
			return nil, ErrSlotConflict
		}
		r.active[key] = a.ID
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	r.byID[a.ID] = a
	return &a, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, expected, next Status, fields StatusFields) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if a.Status != expected {
		return nil, fmt.Errorf("%w: expected %s, found %s", ErrStaleStatus, expected, a.Status)
	}

	key := a.SlotID()
	if next.Active() && !a.Status.Active() {
		if _, taken := r.active[key]; taken {
			return nil, ErrSlotConflict
		}
	}

	a.Status = next
	a.UpdatedAt = fields.UpdatedAt
	if fields.ConfirmedAt != nil {
		a.ConfirmedAt = fields.ConfirmedAt
	}
	if fields.CancellationReason != nil {
		a.CancellationReason = fields.CancellationReason
	}
	if fields.RejectionReason != nil {
		a.RejectionReason = fields.RejectionReason
	}

	if next.Active() {
		r.active[key] = a.ID
	} else if r.active[key] == a.ID {
		delete(r.active, key)
	}
	r.byID[id] = a
	return &a, nil
}

func (r *MemoryRepository) ListAppointments(_ context.Context, f ListFilter) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Appointment, 0)
	for _, a := range r.byID {
		if matches(a, f) {
			result = append(result, a)
		}
	}
	sortByStart(result)

	offset := max(f.Offset, 0)
	if offset >= len(result) {
		return []Appointment{}, nil
	}
	result = result[offset:]
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func (r *MemoryRepository) ListActiveForDay(_ context.Context, providerID uuid.UUID, date schedule.Date) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Appointment, 0)
	for _, id := range r.active {
		a := r.byID[id]
		if a.ProviderID == providerID && a.Date == date {
			result = append(result, a)
		}
	}
	sortByStart(result)
	return result, nil
}

func matches(a Appointment, f ListFilter) bool {
	if f.PatientID != nil && a.PatientID != *f.PatientID {
		return false
	}
	if f.ProviderID != nil && a.ProviderID != *f.ProviderID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status) {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if f.From != nil && a.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && a.Date.After(*f.To) {
		return false
	}
	return true
}

func sortByStart(list []Appointment) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Date != list[j].Date {
			return list[i].Date.Before(list[j].Date)
		}
		return list[i].Time < list[j].Time
	})
}
