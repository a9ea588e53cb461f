package access

import (
	"context"
	"slices"
	"sync"

	"rwaledger/internal/ledger"
	"rwaledger/pkg/domain"
)

// InMemoryStore holds role membership. Writes register their undo with the
// ledger step in ctx.
type InMemoryStore struct {
	mu      sync.RWMutex
	members map[Role]map[domain.Address]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{members: make(map[Role]map[domain.Address]struct{})}
}

func (s *InMemoryStore) Has(_ context.Context, role Role, account domain.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[role][account]
	return ok, nil
}

// Add grants role to account and reports whether membership changed.
func (s *InMemoryStore) Add(ctx context.Context, role Role, account domain.Address) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.members[role]
	if !ok {
		set = make(map[domain.Address]struct{})
		s.members[role] = set
	}
	if _, exists := set[account]; exists {
		return false, nil
	}
	set[account] = struct{}{}
	ledger.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.members[role], account)
	})
	return true, nil
}

// Remove revokes role from account and reports whether membership changed.
func (s *InMemoryStore) Remove(ctx context.Context, role Role, account domain.Address) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.members[role][account]; !exists {
		return false, nil
	}
	delete(s.members[role], account)
	ledger.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.members[role][account] = struct{}{}
	})
	return true, nil
}

// Members returns the accounts holding role, sorted by address.
func (s *InMemoryStore) Members(_ context.Context, role Role) ([]domain.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Address, 0, len(s.members[role]))
	for a := range s.members[role] {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b domain.Address) int {
		return a.Compare(b)
	})
	return out, nil
}
