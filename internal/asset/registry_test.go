package asset

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"rwaledger/internal/access"
	"rwaledger/internal/events"
	"rwaledger/internal/ledger"
	"rwaledger/internal/platform/metrics"
	"rwaledger/internal/verification"
	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
	tu "rwaledger/pkg/testutil"
)

type RegistrySuite struct {
	suite.Suite
	log      *events.Log
	metrics  *metrics.Metrics
	exec     *ledger.Executor
	registry *Registry
	verifier *verification.Service
	ctx      context.Context
	now      time.Time

	admin    domain.Address
	alice    domain.Address
	bob      domain.Address
	outsider domain.Address
}

func (s *RegistrySuite) SetupTest() {
	s.log = events.NewLog()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	s.exec = ledger.NewExecutor(s.log, ledger.WithClock(func() time.Time { return s.now }))
	roles := access.New(s.exec, access.NewInMemoryStore())
	s.verifier = verification.New(s.exec, roles, verification.NewInMemoryStore())
	s.registry = NewRegistry(s.exec, roles, s.verifier, NewInMemoryStore(), WithMetrics(s.metrics))
	s.ctx = context.Background()

	s.admin = tu.Account(1)
	s.alice = tu.Account(2)
	s.bob = tu.Account(3)
	s.outsider = tu.Account(4)
	s.Require().NoError(roles.Bootstrap(s.ctx, s.admin))
	s.Require().NoError(s.verifier.SetVerification(s.ctx, s.admin, s.alice, true))
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) register(owner domain.Address) domain.AssetID {
	id, err := s.registry.RegisterAsset(s.ctx, s.admin, owner, "ipfs://meta", domain.AssetTypeProperty, big.NewInt(1_000))
	s.Require().NoError(err)
	return id
}

func (s *RegistrySuite) TestRegisterAsset() {
	s.Run("assigns sequential ids from zero", func() {
		first := s.register(s.alice)
		second := s.register(s.alice)
		s.Equal(domain.AssetID(0), first)
		s.Equal(domain.AssetID(1), second)

		total, err := s.registry.TotalAssets(s.ctx)
		s.Require().NoError(err)
		s.Equal(uint64(2), total)
		s.Equal(2.0, testutil.ToFloat64(s.metrics.AssetsRegistered))
	})

	s.Run("new asset is pending and non-compliant", func() {
		a, err := s.registry.GetAssetInfo(s.ctx, 0)
		s.Require().NoError(err)
		s.Equal(s.alice, a.Owner)
		s.Equal(domain.AssetStatusPending, a.Status)
		s.False(a.Compliant)
		s.Equal(s.now, a.RegisteredAt)
		s.Equal(0, a.Valuation.Cmp(big.NewInt(1_000)))
	})

	s.Run("event names asset and owner", func() {
		var found bool
		for _, e := range s.log.Since(0, 0) {
			if e.Type == events.TypeAssetRegistered && *e.AssetID == 1 {
				found = true
				s.Equal(s.alice, e.To)
				s.Equal("1000", e.Price)
			}
		}
		s.True(found)
	})
}

func (s *RegistrySuite) TestRegisterAssetFailures() {
	s.Run("non-minter is unauthorized", func() {
		_, err := s.registry.RegisterAsset(s.ctx, s.outsider, s.alice, "uri", domain.AssetTypeShare, big.NewInt(1))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unverified owner is rejected", func() {
		_, err := s.registry.RegisterAsset(s.ctx, s.admin, s.bob, "uri", domain.AssetTypeShare, big.NewInt(1))
		s.True(dErrors.HasCode(err, dErrors.CodeRecipientNotVerified))
	})

	s.Run("unknown type is invalid", func() {
		_, err := s.registry.RegisterAsset(s.ctx, s.admin, s.alice, "uri", domain.AssetType("vehicle"), big.NewInt(1))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("negative or missing valuation is invalid", func() {
		_, err := s.registry.RegisterAsset(s.ctx, s.admin, s.alice, "uri", domain.AssetTypeShare, big.NewInt(-1))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		_, err = s.registry.RegisterAsset(s.ctx, s.admin, s.alice, "uri", domain.AssetTypeShare, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("failed registrations do not consume ids", func() {
		s.Equal(domain.AssetID(0), s.register(s.alice))
	})
}

func (s *RegistrySuite) TestValuationIsCopied() {
	v := big.NewInt(500)
	id, err := s.registry.RegisterAsset(s.ctx, s.admin, s.alice, "uri", domain.AssetTypeDocument, v)
	s.Require().NoError(err)
	v.SetInt64(1)

	a, err := s.registry.GetAssetInfo(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("500", a.Valuation.String())

	a.Valuation.SetInt64(2)
	again, err := s.registry.GetAssetInfo(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("500", again.Valuation.String())
}

func (s *RegistrySuite) TestSetCompliance() {
	id := s.register(s.alice)

	s.Run("compliance role sets flag", func() {
		s.Require().NoError(s.registry.SetCompliance(s.ctx, s.admin, id, true))
		a, err := s.registry.GetAssetInfo(s.ctx, id)
		s.Require().NoError(err)
		s.True(a.Compliant)
	})

	s.Run("setting the same value again succeeds", func() {
		s.Require().NoError(s.registry.SetCompliance(s.ctx, s.admin, id, true))
	})

	s.Run("outsider is unauthorized", func() {
		err := s.registry.SetCompliance(s.ctx, s.outsider, id, false)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown asset", func() {
		err := s.registry.SetCompliance(s.ctx, s.admin, 99, true)
		s.True(dErrors.HasCode(err, dErrors.CodeAssetNotFound))
	})
}

// TestSetStatusHasNoTransitionGraph documents that any status may follow any
// other, including leaving Delisted.
func (s *RegistrySuite) TestSetStatusHasNoTransitionGraph() {
	id := s.register(s.alice)
	path := []domain.AssetStatus{
		domain.AssetStatusDelisted,
		domain.AssetStatusActive,
		domain.AssetStatusPending,
		domain.AssetStatusFrozen,
		domain.AssetStatusActive,
	}
	for _, st := range path {
		s.Require().NoError(s.registry.SetStatus(s.ctx, s.admin, id, st))
		a, err := s.registry.GetAssetInfo(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(st, a.Status)
	}

	last := s.log.Since(s.log.LastSeq()-1, 0)
	s.Require().Len(last, 1)
	s.Equal(events.TypeStatusChanged, last[0].Type)
	s.Equal(string(domain.AssetStatusFrozen), last[0].Old)
	s.Equal(string(domain.AssetStatusActive), last[0].New)
}

func (s *RegistrySuite) TestSetStatusFailures() {
	id := s.register(s.alice)

	err := s.registry.SetStatus(s.ctx, s.outsider, id, domain.AssetStatusActive)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	err = s.registry.SetStatus(s.ctx, s.admin, id, domain.AssetStatus("burned"))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	err = s.registry.SetStatus(s.ctx, s.admin, 42, domain.AssetStatusActive)
	s.True(dErrors.HasCode(err, dErrors.CodeAssetNotFound))
}

func (s *RegistrySuite) TestUpdateValuationAndMetadata() {
	id := s.register(s.alice)

	s.Require().NoError(s.registry.UpdateValuation(s.ctx, s.admin, id, big.NewInt(2_500)))
	e := s.log.Since(s.log.LastSeq()-1, 0)[0]
	s.Equal(events.TypeValuationChanged, e.Type)
	s.Equal("1000", e.Old)
	s.Equal("2500", e.New)

	s.Require().NoError(s.registry.UpdateMetadata(s.ctx, s.admin, id, "ipfs://v2"))
	e = s.log.Since(s.log.LastSeq()-1, 0)[0]
	s.Equal(events.TypeMetadataChanged, e.Type)
	s.Equal("ipfs://meta", e.Old)
	s.Equal("ipfs://v2", e.New)

	a, err := s.registry.GetAssetInfo(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("2500", a.Valuation.String())
	s.Equal("ipfs://v2", a.MetadataURI)

	s.True(dErrors.HasCode(s.registry.UpdateValuation(s.ctx, s.outsider, id, big.NewInt(1)), dErrors.CodeUnauthorized))
	s.True(dErrors.HasCode(s.registry.UpdateMetadata(s.ctx, s.outsider, id, "x"), dErrors.CodeUnauthorized))
	s.True(dErrors.HasCode(s.registry.UpdateValuation(s.ctx, s.admin, id, big.NewInt(-5)), dErrors.CodeInvalidInput))
	s.True(dErrors.HasCode(s.registry.UpdateMetadata(s.ctx, s.admin, 7, "x"), dErrors.CodeAssetNotFound))
}

func (s *RegistrySuite) TestReads() {
	s.Run("unknown asset is not found", func() {
		_, err := s.registry.GetAssetInfo(s.ctx, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeAssetNotFound))
		_, err = s.registry.GetTransferHistory(s.ctx, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeAssetNotFound))
	})

	s.Run("owned assets and empty history", func() {
		s.Require().NoError(s.verifier.SetVerification(s.ctx, s.admin, s.bob, true))
		a0 := s.register(s.alice)
		b0 := s.register(s.bob)
		a1 := s.register(s.alice)

		owned, err := s.registry.GetAssetsOwnedBy(s.ctx, s.alice)
		s.Require().NoError(err)
		s.Equal([]domain.AssetID{a0, a1}, owned)

		owned, err = s.registry.GetAssetsOwnedBy(s.ctx, s.bob)
		s.Require().NoError(err)
		s.Equal([]domain.AssetID{b0}, owned)

		owned, err = s.registry.GetAssetsOwnedBy(s.ctx, s.outsider)
		s.Require().NoError(err)
		s.Empty(owned)

		history, err := s.registry.GetTransferHistory(s.ctx, a0)
		s.Require().NoError(err)
		s.Empty(history)
	})
}

func (s *RegistrySuite) TestNestedRegistrationCountsOnlyOnCommit() {
	err := s.exec.RunInTx(s.ctx, "outer", func(ctx context.Context, _ *ledger.Tx) error {
		_, err := s.registry.RegisterAsset(ctx, s.admin, s.alice, "ipfs://meta", domain.AssetTypeShare, big.NewInt(5))
		s.Require().NoError(err)
		s.Zero(testutil.ToFloat64(s.metrics.AssetsRegistered), "counter waits for the outer commit")
		return errors.New("abort")
	})
	s.Require().Error(err)

	total, err := s.registry.TotalAssets(s.ctx)
	s.Require().NoError(err)
	s.Zero(total)
	s.Zero(testutil.ToFloat64(s.metrics.AssetsRegistered))

	s.register(s.alice)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.AssetsRegistered))
}
