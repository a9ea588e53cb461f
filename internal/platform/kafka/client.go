// Package kafka builds the franz-go producer used by the event sink.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"rwaledger/internal/platform/config"
	"rwaledger/pkg/platform/sentinel"
)

// Client is a producer bound to one topic.
type Client struct {
	*kgo.Client
	topic string
}

// New connects to the brokers and returns nil, nil when none are configured.
// Producing is idempotent and acks from all in-sync replicas.
func New(ctx context.Context, cfg config.KafkaConfig, opts ...kgo.Opt) (*Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.AllowAutoTopicCreation(),
	}
	cl, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := cl.Ping(ctx); err != nil {
		cl.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}
	return &Client{Client: cl, topic: cfg.Topic}, nil
}

func (c *Client) Topic() string { return c.topic }

func (c *Client) Name() string { return "kafka" }

func (c *Client) Health(ctx context.Context) error {
	if err := c.Ping(ctx); err != nil {
		return fmt.Errorf("%w: kafka: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

// EnsureTopic creates the topic unless it already exists.
func (c *Client) EnsureTopic(ctx context.Context, partitions int32, replication int16) error {
	adm := kadm.NewClient(c.Client)
	resp, err := adm.CreateTopic(ctx, partitions, replication, nil, c.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", c.topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", c.topic, resp.Err)
	}
	return nil
}
