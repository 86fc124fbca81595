package account

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*Account)}
}

func (m *MemoryStore) Create(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.Email]; ok {
		return ErrDuplicate
	}
	if a.MerchantID != "" {
		for _, cur := range m.accounts {
			if cur.MerchantID == a.MerchantID {
				return ErrDuplicate
			}
		}
	}
	cp := *a
	m.accounts[a.Email] = &cp
	return nil
}

func (m *MemoryStore) Get(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) FindMerchant(_ context.Context, merchantID, name string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Role != RoleMerchant {
			continue
		}
		if merchantID != "" && a.MerchantID == merchantID {
			cp := *a
			return &cp, nil
		}
	}
	if name == "" {
		return nil, ErrNotFound
	}
	for _, a := range m.accounts {
		if a.Role == RoleMerchant && a.Name == name {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Credit(_ context.Context, email string, d Delta) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[email]
	if !ok {
		return nil, ErrNotFound
	}
	a.apply(d)
	cp := *a
	return &cp, nil
}
