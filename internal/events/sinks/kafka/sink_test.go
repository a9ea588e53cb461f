package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"rwaledger/internal/events"
	"rwaledger/pkg/domain"
	tu "rwaledger/pkg/testutil"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.records = append(p.records, rs...)
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func batch() []events.Event {
	log := events.NewLog()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return log.Append(
		events.Event{Type: events.TypeAssetRegistered, AssetID: events.ForAsset(7), To: tu.Account(2), Timestamp: ts},
		events.Event{Type: events.TypeVerificationChanged, Account: tu.Account(3), Old: "false", New: "true", Timestamp: ts},
		events.Event{Type: events.TypePaused, Actor: tu.Account(1), Timestamp: ts},
	)
}

func TestPublishBuildsKeyedRecords(t *testing.T) {
	p := &fakeProducer{}
	sink := New(p, "ledger")

	require.NoError(t, sink.Publish(context.Background(), batch()))
	require.Len(t, p.records, 3)

	keys := []string{"asset:7", "account:" + tu.Account(3).String(), "ledger"}
	for i, r := range p.records {
		assert.Equal(t, "ledger", r.Topic)
		assert.Equal(t, keys[i], string(r.Key))
		seq, ok := Seq(r)
		assert.True(t, ok)
		assert.Equal(t, uint64(i+1), seq)

		decoded, err := events.Decode(r.Value)
		require.NoError(t, err)
		assert.Equal(t, seq, decoded.Seq)
	}

	first, err := events.Decode(p.records[0].Value)
	require.NoError(t, err)
	require.NotNil(t, first.AssetID)
	assert.Equal(t, domain.AssetID(7), *first.AssetID)
}

func TestPublishSurfacesProduceError(t *testing.T) {
	p := &fakeProducer{err: errors.New("broker down")}
	err := New(p, "ledger").Publish(context.Background(), batch())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestSeqWithoutHeader(t *testing.T) {
	_, ok := Seq(&kgo.Record{})
	assert.False(t, ok)
}
