//go:build integration

package outbox_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"rwaledger/internal/events"
	"rwaledger/internal/events/sinks/outbox"
	tu "rwaledger/pkg/testutil"
	"rwaledger/pkg/testutil/containers"
)

type OutboxSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	sink     *outbox.Sink
}

func TestOutboxSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OutboxSuite))
}

func (s *OutboxSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.sink = outbox.New(s.postgres.DB)
	s.Require().NoError(s.sink.EnsureSchema(context.Background()))
}

func (s *OutboxSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "ledger_events"))
}

func (s *OutboxSuite) appended(n int) []events.Event {
	log := events.NewLog()
	out := make([]events.Event, 0, n)
	for i := range n {
		out = append(out, log.Append(events.Event{
			Type:    events.TypeVerificationChanged,
			Account: tu.Account(int64(i + 1)),
			Old:     "false",
			New:     "true",
		})...)
	}
	return out
}

func (s *OutboxSuite) TestRedeliveryIsIgnored() {
	ctx := context.Background()
	evs := s.appended(5)

	s.Require().NoError(s.sink.Publish(ctx, evs[:3]))
	s.Require().NoError(s.sink.Publish(ctx, evs[1:]))

	n, err := s.sink.Count(ctx)
	s.Require().NoError(err)
	s.Equal(5, n)

	last, err := s.sink.LastSeq(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(5), last)
}

func (s *OutboxSuite) TestEnsureSchemaIsRepeatable() {
	s.Require().NoError(s.sink.EnsureSchema(context.Background()))
}

func (s *OutboxSuite) TestRelayDeliversLedgerStream() {
	ctx := context.Background()
	log := events.NewLog()
	for i := range 250 {
		log.Append(events.Event{Type: events.TypeRoleGranted, Account: tu.Account(int64(i + 1)), Role: "MINTER"})
	}
	relay, err := events.NewRelay(log, []events.Sink{s.sink}, events.WithBatchSize(100))
	s.Require().NoError(err)
	s.Require().NoError(relay.Flush(ctx))

	s.Equal(uint64(250), relay.Cursor("postgres"))
	last, err := s.sink.LastSeq(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(250), last)
}
