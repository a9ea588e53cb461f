package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"rwaledger/internal/access"
	"rwaledger/internal/events"
	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
	"rwaledger/pkg/testutil"
)

type DeploySuite struct {
	suite.Suite
	ctx      context.Context
	ledger   *Ledger
	deployer domain.Address
}

func TestDeploySuite(t *testing.T) {
	suite.Run(t, new(DeploySuite))
}

func (s *DeploySuite) SetupTest() {
	s.ctx = context.Background()
	s.ledger = New(Options{})
	s.deployer = testutil.Account(1)
}

func (s *DeploySuite) TestGenesisLargerThanOneBatch() {
	genesis := testutil.Accounts(100, 250)
	s.Require().NoError(s.ledger.Deploy(s.ctx, s.deployer, genesis))

	for _, role := range access.AllRoles {
		s.True(s.ledger.Access.HasRole(s.ctx, role, s.deployer), role)
	}
	count, err := s.ledger.Verification.CountVerified(s.ctx)
	s.Require().NoError(err)
	s.Equal(251, count)

	var summaries int
	for _, e := range s.ledger.Events.Since(0, 0) {
		if e.Type == events.TypeBatchVerificationChanged {
			summaries++
		}
	}
	s.Equal(3, summaries)
}

func (s *DeploySuite) TestSecondDeployConflictsAndChangesNothing() {
	s.Require().NoError(s.ledger.Deploy(s.ctx, s.deployer, nil))
	seq := s.ledger.Events.LastSeq()

	err := s.ledger.Deploy(s.ctx, testutil.Account(2), testutil.Accounts(10, 3))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Equal(seq, s.ledger.Events.LastSeq())
	s.False(s.ledger.Verification.IsVerified(s.ctx, testutil.Account(10)))
}

func (s *DeploySuite) TestZeroDeployerRejected() {
	err := s.ledger.Deploy(s.ctx, domain.ZeroAddress, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	s.Zero(s.ledger.Events.LastSeq())
}
