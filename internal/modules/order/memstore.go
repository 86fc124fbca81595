// README: In-memory order store; stands in for the key-value substrate in tests and demo mode.
package order

import (
	"context"
	"sync"

	"feast/internal/types"
)

type MemoryStore struct {
	mu     sync.RWMutex
	orders map[types.ID]*Order
	// ids holds order ids newest first; writes of new orders prepend.
	ids    []types.ID
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[types.ID]*Order)}
}

func (m *MemoryStore) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; ok {
		return ErrConflict
	}
	m.orders[o.ID] = o.Clone()
	m.ids = append([]types.ID{o.ID}, m.ids...)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id types.ID) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, o *Order, version int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.orders[o.ID]
	if !ok {
		return false, ErrNotFound
	}
	if cur.StatusVersion != version {
		return false, nil
	}
	m.orders[o.ID] = o.Clone()
	return true, nil
}

func (m *MemoryStore) List(_ context.Context, f Filter) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Order, 0)
	for _, id := range m.ids {
		o := m.orders[id]
		if !f.Match(o) {
			continue
		}
		out = append(out, o.Clone())
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) AppendEvent(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := *e
	ev.ID = int64(len(m.events) + 1)
	m.events = append(m.events, ev)
	return nil
}

// Events returns the recorded state events for an order, oldest first.
func (m *MemoryStore) Events(id types.ID) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Event
	for _, e := range m.events {
		if e.OrderID == id {
			out = append(out, e)
		}
	}
	return out
}
