package events

import (
	"context"
	"sort"
	"sync"
)

// MemorySink keeps delivered events in memory, ignoring redelivered Seqs.
// Useful in tests and as an in-process subscriber.
type MemorySink struct {
	name string

	mu       sync.RWMutex
	bySeq    map[uint64]Event
	received int
}

func NewMemorySink(name string) *MemorySink {
	return &MemorySink{name: name, bySeq: make(map[uint64]Event)}
}

func (s *MemorySink) Name() string { return s.name }

func (s *MemorySink) Publish(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range batch {
		s.received++
		if _, ok := s.bySeq[e.Seq]; ok {
			continue
		}
		s.bySeq[e.Seq] = e
	}
	return nil
}

// Events returns the distinct events in Seq order.
func (s *MemorySink) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, 0, len(s.bySeq))
	for _, e := range s.bySeq {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// OfType returns the distinct events of type t in Seq order.
func (s *MemorySink) OfType(t Type) []Event {
	var out []Event
	for _, e := range s.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Received counts every delivery, including duplicates.
func (s *MemorySink) Received() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.received
}
