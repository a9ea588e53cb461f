// Package kafka publishes ledger events to a Kafka topic.
//
// Records are keyed by Event.Key so events about one asset or account land on
// one partition in commit order. The seq header lets consumers drop
// redelivered events.
package kafka

import (
	"context"
	"fmt"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	"rwaledger/internal/events"
)

const (
	HeaderSeq  = "seq"
	HeaderType = "type"
	HeaderID   = "event_id"
)

// Producer is the part of *kgo.Client the sink uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Sink struct {
	producer Producer
	topic    string
}

func New(producer Producer, topic string) *Sink {
	return &Sink{producer: producer, topic: topic}
}

func (s *Sink) Name() string { return "kafka" }

// Publish produces the batch and waits for every ack.
func (s *Sink) Publish(ctx context.Context, batch []events.Event) error {
	records := make([]*kgo.Record, 0, len(batch))
	for _, e := range batch {
		r, err := s.record(e)
		if err != nil {
			return err
		}
		records = append(records, r)
	}
	if err := s.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", s.topic, err)
	}
	return nil
}

func (s *Sink) record(e events.Event) (*kgo.Record, error) {
	value, err := events.Encode(e)
	if err != nil {
		return nil, err
	}
	return &kgo.Record{
		Topic:     s.topic,
		Key:       []byte(e.Key()),
		Value:     value,
		Timestamp: e.Timestamp,
		Headers: []kgo.RecordHeader{
			{Key: HeaderSeq, Value: []byte(strconv.FormatUint(e.Seq, 10))},
			{Key: HeaderType, Value: []byte(e.Type)},
			{Key: HeaderID, Value: []byte(e.ID.String())},
		},
	}, nil
}

// Seq reads the seq header of a consumed record.
func Seq(r *kgo.Record) (uint64, bool) {
	for _, h := range r.Headers {
		if h.Key == HeaderSeq {
			v, err := strconv.ParseUint(string(h.Value), 10, 64)
			return v, err == nil
		}
	}
	return 0, false
}
