package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"rwaledger/internal/events"
	kafkasink "rwaledger/internal/events/sinks/kafka"
	"rwaledger/internal/events/sinks/outbox"
	"rwaledger/internal/events/sinks/redisstream"
	"rwaledger/internal/platform/config"
	"rwaledger/internal/platform/kafka"
	"rwaledger/internal/platform/postgres"
	"rwaledger/internal/platform/redis"
	httptransport "rwaledger/internal/transport/http"
)

// connections holds the configured event sinks and the clients behind them.
type connections struct {
	sinks    []events.Sink
	checkers []httptransport.Checker
	closers  []io.Closer
}

func (c *connections) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i].Close())
	}
	return errors.Join(errs...)
}

// seqSource is a sink that can report what it already holds.
type seqSource interface {
	LastSeq(ctx context.Context) (uint64, error)
}

// connect opens every configured sink. A sink that already holds events
// belongs to an earlier ledger instance; seqs restart at 1 on every start, so
// delivering into it would be silently dropped as duplicates.
func connect(ctx context.Context, cfg config.Config, log *slog.Logger) (*connections, error) {
	c := &connections{}
	fail := func(err error) (*connections, error) {
		_ = c.Close()
		return nil, err
	}

	if rc, err := redis.New(ctx, cfg.Redis); err != nil {
		return fail(err)
	} else if rc != nil {
		c.closers = append(c.closers, rc)
		c.checkers = append(c.checkers, rc)
		c.sinks = append(c.sinks, redisstream.New(rc.Client, cfg.Redis.Stream))
	}

	if kc, err := kafka.New(ctx, cfg.Kafka); err != nil {
		return fail(err)
	} else if kc != nil {
		c.closers = append(c.closers, closerFunc(func() error { kc.Close(); return nil }))
		c.checkers = append(c.checkers, kc)
		if err := kc.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			return fail(err)
		}
		c.sinks = append(c.sinks, kafkasink.New(kc, kc.Topic()))
	}

	if db, err := postgres.Open(ctx, cfg.Postgres); err != nil {
		return fail(err)
	} else if db != nil {
		c.closers = append(c.closers, db)
		c.checkers = append(c.checkers, db)
		sink := outbox.New(db.DB)
		if err := sink.EnsureSchema(ctx); err != nil {
			return fail(err)
		}
		c.sinks = append(c.sinks, sink)
	}

	for _, s := range c.sinks {
		src, ok := s.(seqSource)
		if !ok {
			continue
		}
		last, err := src.LastSeq(ctx)
		if err != nil {
			return fail(fmt.Errorf("sink %s: %w", s.Name(), err))
		}
		if last > 0 {
			return fail(fmt.Errorf("sink %s already holds events up to seq %d from a previous ledger", s.Name(), last))
		}
	}

	names := make([]string, 0, len(c.sinks))
	for _, s := range c.sinks {
		names = append(names, s.Name())
	}
	log.Info("event sinks connected", "sinks", names)
	return c, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
