package verification

import (
	"context"
	"sync"

	"rwaledger/internal/ledger"
	"rwaledger/pkg/domain"
)

// InMemoryStore holds the verified flag per account. Absent accounts are
// unverified.
type InMemoryStore struct {
	mu       sync.RWMutex
	verified map[domain.Address]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{verified: make(map[domain.Address]bool)}
}

func (s *InMemoryStore) IsVerified(_ context.Context, account domain.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verified[account], nil
}

// Set stores status and returns the previous value.
func (s *InMemoryStore) Set(ctx context.Context, account domain.Address, status bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, existed := s.verified[account]
	s.verified[account] = status
	ledger.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existed {
			s.verified[account] = old
		} else {
			delete(s.verified, account)
		}
	})
	return old, nil
}

// CountVerified returns how many accounts are currently verified.
func (s *InMemoryStore) CountVerified(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, v := range s.verified {
		if v {
			n++
		}
	}
	return n, nil
}
