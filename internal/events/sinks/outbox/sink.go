// Package outbox writes ledger events to a Postgres table that downstream
// workers tail. Rows are keyed by seq, so redelivery is a no-op.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"rwaledger/internal/events"
)

const schema = `
	CREATE TABLE IF NOT EXISTS ledger_events (
		seq           BIGINT PRIMARY KEY,
		id            UUID NOT NULL,
		type          TEXT NOT NULL,
		partition_key TEXT NOT NULL,
		payload       JSONB NOT NULL,
		occurred_at   TIMESTAMPTZ NOT NULL,
		recorded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

type Sink struct {
	db *sql.DB
}

func New(db *sql.DB) *Sink {
	return &Sink{db: db}
}

func (s *Sink) Name() string { return "postgres" }

// EnsureSchema creates the outbox table if it does not exist.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create ledger_events: %w", err)
	}
	return nil
}

type rows struct {
	seqs     []int64
	ids      []string
	types    []string
	keys     []string
	payloads []string
	times    []string
}

func buildRows(batch []events.Event) (rows, error) {
	r := rows{
		seqs:     make([]int64, 0, len(batch)),
		ids:      make([]string, 0, len(batch)),
		types:    make([]string, 0, len(batch)),
		keys:     make([]string, 0, len(batch)),
		payloads: make([]string, 0, len(batch)),
		times:    make([]string, 0, len(batch)),
	}
	for _, e := range batch {
		payload, err := events.Encode(e)
		if err != nil {
			return rows{}, err
		}
		r.seqs = append(r.seqs, int64(e.Seq))
		r.ids = append(r.ids, e.ID.String())
		r.types = append(r.types, string(e.Type))
		r.keys = append(r.keys, e.Key())
		r.payloads = append(r.payloads, string(payload))
		r.times = append(r.times, e.Timestamp.UTC().Format(time.RFC3339Nano))
	}
	return r, nil
}

// Publish inserts the batch in one statement.
func (s *Sink) Publish(ctx context.Context, batch []events.Event) error {
	if len(batch) == 0 {
		return nil
	}
	r, err := buildRows(batch)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO ledger_events (seq, id, type, partition_key, payload, occurred_at)
		SELECT * FROM unnest($1::bigint[], $2::uuid[], $3::text[], $4::text[], $5::jsonb[], $6::timestamptz[])
		ON CONFLICT (seq) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		pq.Array(r.seqs),
		pq.Array(r.ids),
		pq.Array(r.types),
		pq.Array(r.keys),
		pq.Array(r.payloads),
		pq.Array(r.times),
	)
	if err != nil {
		return fmt.Errorf("insert ledger events %d..%d: %w", batch[0].Seq, batch[len(batch)-1].Seq, err)
	}
	return nil
}

// LastSeq returns the highest stored seq, or 0 for an empty table.
func (s *Sink) LastSeq(ctx context.Context) (uint64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM ledger_events`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("read last seq: %w", err)
	}
	return uint64(seq), nil
}

// Count returns the number of stored events.
func (s *Sink) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ledger events: %w", err)
	}
	return n, nil
}
