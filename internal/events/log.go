package events

import (
	"sync"

	"github.com/google/uuid"
)

// Log is the in-process ordered event log. Appends happen only at ledger commit,
// which the ledger executor serializes, so Seq order equals commit order.
type Log struct {
	mu      sync.RWMutex
	base    uint64 // Seq of the last compacted event
	events  []Event
	changed chan struct{}
}

// NewLog returns an empty log. The first appended event gets Seq 1.
func NewLog() *Log {
	return &Log{changed: make(chan struct{})}
}

// Append assigns Seq and ID to evs, stores them, and wakes waiters.
// It returns the stored events.
func (l *Log) Append(evs ...Event) []Event {
	if len(evs) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.base + uint64(len(l.events)) + 1
	out := make([]Event, len(evs))
	for i, e := range evs {
		e.Seq = next + uint64(i)
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		out[i] = e
	}
	l.events = append(l.events, out...)

	close(l.changed)
	l.changed = make(chan struct{})
	return out
}

// Since returns up to limit events with Seq greater than after, in order.
// A limit <= 0 returns all of them.
func (l *Log) Since(after uint64, limit int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	start := 0
	if after > l.base {
		start = int(after - l.base)
	}
	if start >= len(l.events) {
		return nil
	}
	end := len(l.events)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return append([]Event(nil), l.events[start:end]...)
}

// LastSeq returns the Seq of the newest event, or 0 when nothing was appended.
func (l *Log) LastSeq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.base + uint64(len(l.events))
}

// Changed returns a channel closed on the next Append.
func (l *Log) Changed() <-chan struct{} {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.changed
}

// Compact drops events with Seq <= upTo. Sequence numbering is unaffected.
func (l *Log) Compact(upTo uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if upTo <= l.base {
		return
	}
	n := upTo - l.base
	if n > uint64(len(l.events)) {
		n = uint64(len(l.events))
	}
	l.events = append([]Event(nil), l.events[n:]...)
	l.base += n
}
