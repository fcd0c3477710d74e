package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MemberSync/internal/domain"
	"MemberSync/internal/ports"
)

// MemoryStore is an in-process MemberStore for dry runs and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records []domain.MemberRecord
	changes map[int64]domain.NameChange
	nextID  int64
	writes  int
	now     func() time.Time
}

var _ ports.MemberStore = (*MemoryStore)(nil)

// NewMemoryStore seeds the store with records, keeping their order.
func NewMemoryStore(records ...domain.MemberRecord) *MemoryStore {
	return &MemoryStore{
		records: append([]domain.MemberRecord(nil), records...),
		changes: map[int64]domain.NameChange{},
		now:     time.Now,
	}
}

// Writes counts successful record mutations.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MemoryStore) Get(_ context.Context, filter domain.Filter) (domain.MemberRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if filter.Empty() {
		return domain.MemberRecord{}, fmt.Errorf("empty member filter: %w", domain.ErrInvalidInput)
	}
	if i := m.find(filter); i >= 0 {
		return m.records[i], nil
	}
	return domain.MemberRecord{}, fmt.Errorf("member %s: %w", describe(filter), domain.ErrNotFound)
}

func (m *MemoryStore) Update(_ context.Context, filter domain.Filter, patch domain.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if filter.Empty() {
		return fmt.Errorf("empty member filter: %w", domain.ErrInvalidInput)
	}
	updated := 0
	for i, rec := range m.records {
		if matches(filter, rec) {
			m.records[i] = patch.Apply(rec)
			updated++
		}
	}
	if updated == 0 {
		return fmt.Errorf("update member %s: %w", describe(filter), domain.ErrNotFound)
	}
	m.writes++
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, filter domain.Filter) (domain.MemberRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.find(filter)
	if filter.Empty() || i < 0 {
		return domain.MemberRecord{}, fmt.Errorf("member %s: %w", describe(filter), domain.ErrNotFound)
	}
	rec := m.records[i]
	kept := m.records[:0]
	for _, r := range m.records {
		if !matches(filter, r) {
			kept = append(kept, r)
		}
	}
	m.records = kept
	m.writes++
	return rec, nil
}

func (m *MemoryStore) CreateNameChange(_ context.Context, memberID, requestedName string) (domain.NameChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	change := domain.NameChange{
		ID:            m.nextID,
		MemberID:      memberID,
		RequestedName: requestedName,
		CreatedAt:     m.now().UTC(),
	}
	m.changes[change.ID] = change
	return change, nil
}

func (m *MemoryStore) GetNameChange(_ context.Context, id int64) (domain.NameChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	change, ok := m.changes[id]
	if !ok {
		return domain.NameChange{}, fmt.Errorf("name change %d: %w", id, domain.ErrNotFound)
	}
	return change, nil
}

func (m *MemoryStore) DeleteNameChange(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.changes[id]; !ok {
		return fmt.Errorf("name change %d: %w", id, domain.ErrNotFound)
	}
	delete(m.changes, id)
	return nil
}

func (m *MemoryStore) find(filter domain.Filter) int {
	for i, rec := range m.records {
		if matches(filter, rec) {
			return i
		}
	}
	return -1
}

func matches(filter domain.Filter, rec domain.MemberRecord) bool {
	if filter.MemberID != "" && rec.MemberID == filter.MemberID {
		return true
	}
	return filter.StudentNumber != "" && rec.StudentNumber == filter.StudentNumber
}
