package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rwaledger/internal/platform/metrics"
)

//go:generate mockgen -source=relay.go -destination=mocks/mocks.go -package=mocks Sink

// Sink receives committed events. Publish must be idempotent per Seq: the relay
// redelivers a batch whenever a previous attempt was not acknowledged.
type Sink interface {
	Name() string
	Publish(ctx context.Context, batch []Event) error
}

const (
	defaultBatchSize    = 100
	defaultPollInterval = time.Second
	defaultBackoff      = 200 * time.Millisecond
	defaultMaxBackoff   = 30 * time.Second
)

// Relay delivers the Log to every Sink at-least-once. Each sink has its own
// cursor, so a failing sink never holds back the others.
type Relay struct {
	log   *Log
	sinks []Sink

	mu      sync.Mutex
	cursors map[string]uint64

	batchSize    int
	pollInterval time.Duration
	backoff      time.Duration
	maxBackoff   time.Duration
	compact      bool

	logger  *slog.Logger
	metrics *metrics.Metrics
}

type RelayOption func(*Relay)

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithPollInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// WithBackoff sets the initial and maximum wait after a failed delivery round.
func WithBackoff(initial, max time.Duration) RelayOption {
	return func(r *Relay) {
		if initial > 0 {
			r.backoff = initial
		}
		if max >= r.backoff {
			r.maxBackoff = max
		}
	}
}

// WithCompaction drops events from the Log once every sink acknowledged them.
func WithCompaction() RelayOption {
	return func(r *Relay) {
		r.compact = true
	}
}

// WithStartCursor resumes a sink after seq, e.g. from a checkpoint the sink
// itself persisted.
func WithStartCursor(sink string, seq uint64) RelayOption {
	return func(r *Relay) {
		r.cursors[sink] = seq
	}
}

func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithRelayMetrics(m *metrics.Metrics) RelayOption {
	return func(r *Relay) {
		r.metrics = m
	}
}

// NewRelay builds a relay over log. Sink names must be unique.
func NewRelay(log *Log, sinks []Sink, opts ...RelayOption) (*Relay, error) {
	if log == nil {
		return nil, errors.New("event log is required")
	}
	r := &Relay{
		log:          log,
		sinks:        sinks,
		cursors:      make(map[string]uint64, len(sinks)),
		batchSize:    defaultBatchSize,
		pollInterval: defaultPollInterval,
		backoff:      defaultBackoff,
		maxBackoff:   defaultMaxBackoff,
		logger:       slog.Default(),
	}
	seen := make(map[string]struct{}, len(sinks))
	for _, s := range sinks {
		if _, dup := seen[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate sink name %q", s.Name())
		}
		seen[s.Name()] = struct{}{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run delivers until ctx is cancelled. Failed rounds back off exponentially;
// successful rounds wait for the next append or the poll interval.
func (r *Relay) Run(ctx context.Context) error {
	wait := r.backoff
	for {
		changed := r.log.Changed()
		err := r.deliverAll(ctx)

		var next time.Duration
		if err != nil {
			r.logger.WarnContext(ctx, "event delivery round failed",
				"error", err,
				"retry_in", wait,
			)
			next = wait
			wait = min(wait*2, r.maxBackoff)
		} else {
			wait = r.backoff
			next = r.pollInterval
		}

		timer := time.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-changed:
			if err != nil {
				// Still honour the backoff after a failure.
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil
				case <-timer.C:
				}
			}
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Flush delivers everything committed so far, once, without retrying.
func (r *Relay) Flush(ctx context.Context) error {
	return r.deliverAll(ctx)
}

// Cursor returns the last Seq the named sink acknowledged.
func (r *Relay) Cursor(sink string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursors[sink]
}

func (r *Relay) deliverAll(ctx context.Context) error {
	var g errgroup.Group
	for _, s := range r.sinks {
		g.Go(func() error {
			return r.deliver(ctx, s)
		})
	}
	err := g.Wait()
	if r.compact && len(r.sinks) > 0 {
		r.log.Compact(r.minCursor())
	}
	return err
}

func (r *Relay) deliver(ctx context.Context, s Sink) error {
	name := s.Name()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		cursor := r.Cursor(name)
		batch := r.log.Since(cursor, r.batchSize)
		if len(batch) == 0 {
			r.metrics.SetLag(name, 0)
			return nil
		}
		if err := s.Publish(ctx, batch); err != nil {
			r.metrics.IncDeliveryErrors(name)
			return fmt.Errorf("sink %s: publish seq %d..%d: %w", name, batch[0].Seq, batch[len(batch)-1].Seq, err)
		}
		last := batch[len(batch)-1].Seq
		r.mu.Lock()
		r.cursors[name] = last
		r.mu.Unlock()

		r.metrics.AddDelivered(name, len(batch))
		r.metrics.SetLag(name, r.log.LastSeq()-last)
		r.logger.DebugContext(ctx, "events delivered",
			"sink", name,
			"count", len(batch),
			"cursor", last,
		)
	}
}

func (r *Relay) minCursor() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var lowest uint64
	for i, s := range r.sinks {
		c := r.cursors[s.Name()]
		if i == 0 || c < lowest {
			lowest = c
		}
	}
	return lowest
}
