package asset

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"rwaledger/internal/ledger"
	"rwaledger/pkg/domain"
	"rwaledger/pkg/platform/sentinel"
)

// InMemoryStore holds assets, their provenance, and an owner index. Returned
// values are copies.
type InMemoryStore struct {
	mu      sync.RWMutex
	assets  []*Asset
	history map[domain.AssetID][]TransferRecord
	owned   map[domain.Address]map[domain.AssetID]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		history: make(map[domain.AssetID][]TransferRecord),
		owned:   make(map[domain.Address]map[domain.AssetID]struct{}),
	}
}

// NextID returns the id the next Create must use.
func (s *InMemoryStore) NextID(_ context.Context) (domain.AssetID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.AssetID(len(s.assets)), nil
}

// Create stores a new asset. IDs are dense: a.ID must equal NextID.
func (s *InMemoryStore) Create(ctx context.Context, a *Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID != domain.AssetID(len(s.assets)) {
		return fmt.Errorf("asset %d out of sequence: %w", a.ID, sentinel.ErrConflict)
	}
	s.assets = append(s.assets, a.Clone())
	s.index(a.Owner, a.ID)
	ledger.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.assets = s.assets[:len(s.assets)-1]
		s.unindex(a.Owner, a.ID)
	})
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.AssetID) (*Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if uint64(id) >= uint64(len(s.assets)) {
		return nil, sentinel.ErrNotFound
	}
	return s.assets[id].Clone(), nil
}

// Update replaces a stored asset, keeping the owner index in step.
func (s *InMemoryStore) Update(ctx context.Context, a *Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uint64(a.ID) >= uint64(len(s.assets)) {
		return sentinel.ErrNotFound
	}
	prev := s.assets[a.ID]
	s.assets[a.ID] = a.Clone()
	if prev.Owner != a.Owner {
		s.unindex(prev.Owner, a.ID)
		s.index(a.Owner, a.ID)
	}
	ledger.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		cur := s.assets[prev.ID]
		if cur.Owner != prev.Owner {
			s.unindex(cur.Owner, prev.ID)
			s.index(prev.Owner, prev.ID)
		}
		s.assets[prev.ID] = prev
	})
	return nil
}

// AppendTransfer adds a provenance record for an existing asset.
func (s *InMemoryStore) AppendTransfer(ctx context.Context, r TransferRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uint64(r.AssetID) >= uint64(len(s.assets)) {
		return sentinel.ErrNotFound
	}
	s.history[r.AssetID] = append(s.history[r.AssetID], r.clone())
	ledger.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		h := s.history[r.AssetID]
		s.history[r.AssetID] = h[:len(h)-1]
	})
	return nil
}

// History returns the provenance of an asset in append order.
func (s *InMemoryStore) History(_ context.Context, id domain.AssetID) ([]TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if uint64(id) >= uint64(len(s.assets)) {
		return nil, sentinel.ErrNotFound
	}
	h := s.history[id]
	out := make([]TransferRecord, len(h))
	for i, r := range h {
		out[i] = r.clone()
	}
	return out, nil
}

// ListByOwner returns the ids owned by owner in ascending order.
func (s *InMemoryStore) ListByOwner(_ context.Context, owner domain.Address) ([]domain.AssetID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]domain.AssetID, 0, len(s.owned[owner]))
	for id := range s.owned[owner] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *InMemoryStore) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.assets)), nil
}

func (s *InMemoryStore) index(owner domain.Address, id domain.AssetID) {
	set, ok := s.owned[owner]
	if !ok {
		set = make(map[domain.AssetID]struct{})
		s.owned[owner] = set
	}
	set[id] = struct{}{}
}

func (s *InMemoryStore) unindex(owner domain.Address, id domain.AssetID) {
	delete(s.owned[owner], id)
	if len(s.owned[owner]) == 0 {
		delete(s.owned, owner)
	}
}
