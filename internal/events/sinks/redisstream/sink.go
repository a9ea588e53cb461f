// Package redisstream appends ledger events to a Redis stream.
//
// Each entry id is "<seq>-1". Redis rejects an XADD whose id is not greater
// than the stream's last id, so a redelivered event is refused and counted as
// already published.
package redisstream

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"rwaledger/internal/events"
)

// Streamer is the part of *redis.Client the sink uses.
type Streamer interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XRevRangeN(ctx context.Context, stream, end, start string, count int64) *redis.XMessageSliceCmd
}

type Sink struct {
	client Streamer
	stream string
	maxLen int64
}

type Option func(*Sink)

// WithMaxLen caps the stream length approximately.
func WithMaxLen(n int64) Option {
	return func(s *Sink) {
		s.maxLen = n
	}
}

func New(client Streamer, stream string, opts ...Option) *Sink {
	s := &Sink{client: client, stream: stream}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) Name() string { return "redis" }

// EntryID is the stream id used for an event.
func EntryID(seq uint64) string {
	return strconv.FormatUint(seq, 10) + "-1"
}

func (s *Sink) Publish(ctx context.Context, batch []events.Event) error {
	for _, e := range batch {
		payload, err := events.Encode(e)
		if err != nil {
			return err
		}
		args := &redis.XAddArgs{
			Stream: s.stream,
			ID:     EntryID(e.Seq),
			Values: map[string]any{
				"type":  string(e.Type),
				"key":   e.Key(),
				"event": payload,
			},
		}
		if s.maxLen > 0 {
			args.MaxLen = s.maxLen
			args.Approx = true
		}
		if err := s.client.XAdd(ctx, args).Err(); err != nil {
			if isDuplicate(err) {
				continue
			}
			return fmt.Errorf("xadd seq %d to %s: %w", e.Seq, s.stream, err)
		}
	}
	return nil
}

// LastSeq returns the seq of the newest entry, or 0 for an empty stream.
// It is the relay start cursor after a restart.
func (s *Sink) LastSeq(ctx context.Context) (uint64, error) {
	msgs, err := s.client.XRevRangeN(ctx, s.stream, "+", "-", 1).Result()
	if err != nil {
		return 0, fmt.Errorf("read last entry of %s: %w", s.stream, err)
	}
	if len(msgs) == 0 {
		return 0, nil
	}
	ms, _, _ := strings.Cut(msgs[0].ID, "-")
	seq, err := strconv.ParseUint(ms, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse entry id %q: %w", msgs[0].ID, err)
	}
	return seq, nil
}

func isDuplicate(err error) bool {
	return strings.Contains(err.Error(), "equal or smaller than the target stream top item")
}
