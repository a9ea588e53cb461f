package core

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"rwaledger/internal/events"
	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
	"rwaledger/pkg/testutil"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "ledger",
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

// scenarioState is reset before every scenario.
type scenarioState struct {
	ledger   *Ledger
	deployer domain.Address
	accounts map[string]domain.Address
	next     int64

	asset      domain.AssetID
	registered []domain.AssetID
	batch      []domain.Address
	err        error
}

func initializeScenario(sc *godog.ScenarioContext) {
	st := &scenarioState{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		*st = scenarioState{accounts: make(map[string]domain.Address), next: 1}
		return ctx, nil
	})

	sc.Step(`^a ledger deployed by "([^"]*)"$`, st.ledgerDeployedBy)
	sc.Step(`^account "([^"]*)" is verified$`, st.accountIsVerified)
	sc.Step(`^an active compliant "([^"]*)" asset worth (\d+) owned by "([^"]*)"$`, st.activeCompliantAsset)

	sc.Step(`^"([^"]*)" registers a "([^"]*)" asset worth (\d+) owned by "([^"]*)"$`, st.registers)
	sc.Step(`^"([^"]*)" sets the asset compliance to (true|false)$`, st.setsCompliance)
	sc.Step(`^"([^"]*)" sets the asset status to "([^"]*)"$`, st.setsStatus)
	sc.Step(`^"([^"]*)" transfers the asset to "([^"]*)"$`, st.transfers)
	sc.Step(`^"([^"]*)" transfers the asset to "([^"]*)" for (\d+)$`, st.transfersForPrice)
	sc.Step(`^"([^"]*)" verifies "([^"]*)"$`, st.verifies)
	sc.Step(`^"([^"]*)" verifies a batch of (\d+) new accounts$`, st.verifiesNewBatch)
	sc.Step(`^"([^"]*)" verifies (.+) in one batch$`, st.verifiesNamedBatch)
	sc.Step(`^"([^"]*)" pauses the ledger$`, st.pauses)
	sc.Step(`^"([^"]*)" unpauses the ledger$`, st.unpauses)

	sc.Step(`^the operation succeeds$`, st.operationSucceeds)
	sc.Step(`^the operation fails with "([^"]*)"$`, st.operationFailsWith)
	sc.Step(`^the asset status is "([^"]*)"$`, st.assetStatusIs)
	sc.Step(`^the asset is not compliant$`, st.assetIsNotCompliant)
	sc.Step(`^the asset is owned by "([^"]*)"$`, st.assetIsOwnedBy)
	sc.Step(`^the transfer history has (\d+) records$`, st.historyHasRecords)
	sc.Step(`^transfer record (\d+) has price (\d+)$`, st.recordHasPrice)
	sc.Step(`^a transfer event with price (\d+) was emitted$`, st.transferEventWithPrice)
	sc.Step(`^the ledger holds (\d+) assets$`, st.ledgerHoldsAssets)
	sc.Step(`^the registered identifiers are ([\d, ]+)$`, st.registeredIdentifiersAre)
	sc.Step(`^looking up asset (\d+) fails with "([^"]*)"$`, st.lookupFailsWith)
	sc.Step(`^all batch accounts are verified$`, st.allBatchAccountsVerified)
	sc.Step(`^"([^"]*)" should be verified$`, st.shouldBeVerified)
}

func (st *scenarioState) account(name string) domain.Address {
	if a, ok := st.accounts[name]; ok {
		return a
	}
	a := testutil.Account(st.next)
	st.next++
	st.accounts[name] = a
	return a
}

func (st *scenarioState) ledgerDeployedBy(ctx context.Context, name string) error {
	st.ledger = New(Options{})
	st.deployer = st.account(name)
	return st.ledger.Deploy(ctx, st.deployer, nil)
}

func (st *scenarioState) accountIsVerified(ctx context.Context, name string) error {
	return st.ledger.Verification.SetVerification(ctx, st.deployer, st.account(name), true)
}

func (st *scenarioState) activeCompliantAsset(ctx context.Context, assetType string, worth int64, owner string) error {
	id, err := st.ledger.Assets.RegisterAsset(ctx, st.deployer, st.account(owner), "ipfs://fixture", domain.AssetType(assetType), big.NewInt(worth))
	if err != nil {
		return err
	}
	if err := st.ledger.Assets.SetCompliance(ctx, st.deployer, id, true); err != nil {
		return err
	}
	if err := st.ledger.Assets.SetStatus(ctx, st.deployer, id, domain.AssetStatusActive); err != nil {
		return err
	}
	st.asset = id
	return nil
}

func (st *scenarioState) registers(ctx context.Context, caller, assetType string, worth int64, owner string) error {
	id, err := st.ledger.Assets.RegisterAsset(ctx, st.account(caller), st.account(owner), "ipfs://meta", domain.AssetType(assetType), big.NewInt(worth))
	st.err = err
	if err == nil {
		st.asset = id
		st.registered = append(st.registered, id)
	}
	return nil
}

func (st *scenarioState) setsCompliance(ctx context.Context, caller, value string) error {
	compliant, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	return st.ledger.Assets.SetCompliance(ctx, st.account(caller), st.asset, compliant)
}

func (st *scenarioState) setsStatus(ctx context.Context, caller, status string) error {
	parsed, err := domain.ParseAssetStatus(status)
	if err != nil {
		return err
	}
	return st.ledger.Assets.SetStatus(ctx, st.account(caller), st.asset, parsed)
}

func (st *scenarioState) transfers(ctx context.Context, caller, to string) error {
	st.err = st.ledger.Transfers.Transfer(ctx, st.account(caller), st.asset, st.account(to))
	return nil
}

func (st *scenarioState) transfersForPrice(ctx context.Context, caller, to string, price int64) error {
	from := st.account(caller)
	st.err = st.ledger.Transfers.TransferWithPrice(ctx, from, from, st.account(to), st.asset, big.NewInt(price))
	return nil
}

func (st *scenarioState) verifies(ctx context.Context, caller, account string) error {
	st.err = st.ledger.Verification.SetVerification(ctx, st.account(caller), st.account(account), true)
	return nil
}

func (st *scenarioState) verifiesNewBatch(ctx context.Context, caller string, size int) error {
	st.batch = testutil.Accounts(10_000, size)
	st.err = st.ledger.Verification.BatchSetVerification(ctx, st.account(caller), st.batch, true)
	return nil
}

func (st *scenarioState) verifiesNamedBatch(ctx context.Context, caller, list string) error {
	st.batch = nil
	for _, name := range strings.Split(list, ",") {
		st.batch = append(st.batch, st.account(strings.Trim(strings.TrimSpace(name), `"`)))
	}
	st.err = st.ledger.Verification.BatchSetVerification(ctx, st.account(caller), st.batch, true)
	return nil
}

func (st *scenarioState) pauses(ctx context.Context, caller string) error {
	st.err = st.ledger.Breaker.Pause(ctx, st.account(caller))
	return nil
}

func (st *scenarioState) unpauses(ctx context.Context, caller string) error {
	st.err = st.ledger.Breaker.Unpause(ctx, st.account(caller))
	return nil
}

func (st *scenarioState) operationSucceeds() error {
	if st.err != nil {
		return fmt.Errorf("expected success, got %w", st.err)
	}
	return nil
}

func (st *scenarioState) operationFailsWith(code string) error {
	if st.err == nil {
		return fmt.Errorf("expected failure %q, operation succeeded", code)
	}
	if !dErrors.HasCode(st.err, dErrors.Code(code)) {
		return fmt.Errorf("expected failure %q, got %v", code, st.err)
	}
	return nil
}

func (st *scenarioState) assetStatusIs(ctx context.Context, status string) error {
	a, err := st.ledger.Assets.GetAssetInfo(ctx, st.asset)
	if err != nil {
		return err
	}
	if string(a.Status) != status {
		return fmt.Errorf("expected status %q, got %q", status, a.Status)
	}
	return nil
}

func (st *scenarioState) assetIsNotCompliant(ctx context.Context) error {
	a, err := st.ledger.Assets.GetAssetInfo(ctx, st.asset)
	if err != nil {
		return err
	}
	if a.Compliant {
		return fmt.Errorf("asset %s is compliant", a.ID)
	}
	return nil
}

func (st *scenarioState) assetIsOwnedBy(ctx context.Context, name string) error {
	a, err := st.ledger.Assets.GetAssetInfo(ctx, st.asset)
	if err != nil {
		return err
	}
	if want := st.account(name); a.Owner != want {
		return fmt.Errorf("expected owner %s (%s), got %s", name, want, a.Owner)
	}
	return nil
}

func (st *scenarioState) historyHasRecords(ctx context.Context, n int) error {
	h, err := st.ledger.Assets.GetTransferHistory(ctx, st.asset)
	if err != nil {
		return err
	}
	if len(h) != n {
		return fmt.Errorf("expected %d transfer records, got %d", n, len(h))
	}
	return nil
}

func (st *scenarioState) recordHasPrice(ctx context.Context, index int, price int64) error {
	h, err := st.ledger.Assets.GetTransferHistory(ctx, st.asset)
	if err != nil {
		return err
	}
	if index < 1 || index > len(h) {
		return fmt.Errorf("no transfer record %d in history of %d", index, len(h))
	}
	if got := h[index-1].Price; got.Cmp(big.NewInt(price)) != 0 {
		return fmt.Errorf("expected price %d, got %s", price, got)
	}
	return nil
}

func (st *scenarioState) transferEventWithPrice(price int64) error {
	want := strconv.FormatInt(price, 10)
	for _, e := range st.ledger.Events.Since(0, 0) {
		if e.Type == events.TypeAssetTransferred && e.AssetID != nil && *e.AssetID == st.asset && e.Price == want {
			return nil
		}
	}
	return fmt.Errorf("no transfer event with price %s for asset %s", want, st.asset)
}

func (st *scenarioState) ledgerHoldsAssets(ctx context.Context, n int) error {
	total, err := st.ledger.Assets.TotalAssets(ctx)
	if err != nil {
		return err
	}
	if total != uint64(n) {
		return fmt.Errorf("expected %d assets, got %d", n, total)
	}
	return nil
}

func (st *scenarioState) registeredIdentifiersAre(list string) error {
	var want []string
	for _, part := range strings.Split(list, ",") {
		want = append(want, strings.TrimSpace(part))
	}
	if len(want) != len(st.registered) {
		return fmt.Errorf("expected %d registrations, got %d", len(want), len(st.registered))
	}
	for i, id := range st.registered {
		if id.String() != want[i] {
			return fmt.Errorf("registration %d got id %s, want %s", i, id, want[i])
		}
	}
	return nil
}

func (st *scenarioState) lookupFailsWith(ctx context.Context, id int64, code string) error {
	_, err := st.ledger.Assets.GetAssetInfo(ctx, domain.AssetID(id))
	if !dErrors.HasCode(err, dErrors.Code(code)) {
		return fmt.Errorf("expected %q looking up asset %d, got %v", code, id, err)
	}
	return nil
}

func (st *scenarioState) allBatchAccountsVerified(ctx context.Context) error {
	if err := st.operationSucceeds(); err != nil {
		return err
	}
	for _, a := range st.batch {
		if !st.ledger.Verification.IsVerified(ctx, a) {
			return fmt.Errorf("account %s is not verified", a)
		}
	}
	return nil
}

func (st *scenarioState) shouldBeVerified(ctx context.Context, name string) error {
	if !st.ledger.Verification.IsVerified(ctx, st.account(name)) {
		return fmt.Errorf("account %s is not verified", name)
	}
	return nil
}
