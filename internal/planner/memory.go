package planner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"contentplanner/internal/domain"
	"contentplanner/internal/filter"
)

// MemoryStore is an in-process Store keeping insertion order.
type MemoryStore struct {
	Now       func() time.Time
	CreatedBy string

	mu    sync.Mutex
	seq   int
	items []domain.Item
	calls map[string]int
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Now: time.Now, CreatedBy: "local-user", calls: map[string]int{}}
}

func (m *MemoryStore) Create(_ context.Context, p domain.ItemPatch) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["create"]++
	m.seq++
	it, err := domain.NewItem(p, fmt.Sprintf("item-%d", m.seq), m.CreatedBy, m.now())
	if err != nil {
		return domain.Item{}, err
	}
	m.items = append(m.items, it)
	return it.Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, id string, p domain.ItemPatch) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["update"]++
	for i := range m.items {
		if m.items[i].ID != id {
			continue
		}
		next := m.items[i].Clone()
		if err := next.Apply(p, m.now()); err != nil {
			return domain.Item{}, err
		}
		m.items[i] = next
		return next.Clone(), nil
	}
	return domain.Item{}, domain.ErrNotFound
}

func (m *MemoryStore) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["remove"]++
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MemoryStore) List(_ context.Context, f domain.Filter) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["list"]++
	matched := filter.Apply(m.items, f)
	out := make([]domain.Item, len(matched))
	for i, it := range matched {
		out[i] = it.Clone()
	}
	return out, nil
}

// Calls reports how many times op ("create", "update", "remove", "list") ran.
func (m *MemoryStore) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MemoryStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
