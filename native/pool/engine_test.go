package pool

import (
	"errors"
	"testing"

	"monkeydao/core/state"
	"monkeydao/crypto"
	"monkeydao/native/bank"
	"monkeydao/native/deals"
	"monkeydao/native/escrow"
	"monkeydao/native/reputation"
	"monkeydao/storage"
)

const testNow int64 = 1_700_000_000

type fixture struct {
	engine     *Engine
	ledger     *bank.Ledger
	deals      *deals.Engine
	escrow     *escrow.Controller
	reputation *reputation.Engine
	clock      int64
	seller     [20]byte
	starter    [20]byte
	alice      [20]byte
	bob        [20]byte
	carol      [20]byte
	deal       *deals.Deal
}

func account(b byte) [20]byte {
	var out [20]byte
	out[0] = b
	return out
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:   testNow,
		seller:  account(1),
		starter: account(2),
		alice:   account(3),
		bob:     account(4),
		carol:   account(5),
	}
	now := func() int64 { return f.clock }
	manager := state.NewManager(storage.NewMemDB())
	mint := crypto.NewAuthority(crypto.SeedTokenAuthority)

	f.ledger = bank.NewLedger(manager)
	f.reputation = reputation.NewEngine()
	f.reputation.SetState(manager)
	f.reputation.SetNowFunc(now)

	f.deals = deals.NewEngine()
	f.deals.SetState(manager)
	f.deals.SetLedger(f.ledger)
	f.deals.SetReputation(f.reputation)
	f.deals.SetMintAuthority(mint)
	f.deals.SetNowFunc(now)

	f.escrow = escrow.NewController()
	f.escrow.SetLedger(f.ledger)

	f.engine = NewEngine()
	f.engine.SetState(manager)
	f.engine.SetDeals(f.deals)
	f.engine.SetEscrow(f.escrow)
	f.engine.SetMinter(f.ledger, mint)
	f.engine.SetReputation(f.reputation)
	f.engine.SetNowFunc(now)

	merchant := account(9)
	if _, err := f.deals.RegisterMerchant(merchant, "Banana Bar"); err != nil {
		t.Fatalf("register merchant: %v", err)
	}
	deal, err := f.deals.ListDeal(f.seller, deals.ListParams{
		Merchant:           merchant,
		Price:              600,
		IsGroupDeal:        true,
		GroupPrices:        &deals.GroupPrices{PriceFor2: 1_000, PriceFor4: 1_800, PriceFor8: 3_200},
		DiscountPercentage: 10,
		ExpiresAt:          testNow + 30*86_400,
		MaxSupply:          10,
	})
	if err != nil {
		t.Fatalf("list deal: %v", err)
	}
	f.deal = deal
	for _, a := range [][20]byte{f.alice, f.bob, f.carol} {
		if err := f.ledger.Credit(a, 5_000); err != nil {
			t.Fatalf("credit: %v", err)
		}
	}
	return f
}

func (f *fixture) start(t *testing.T) *Pool {
	t.Helper()
	pool, err := f.engine.StartPool(f.starter, f.deal.ID, 1_000, 2)
	if err != nil {
		t.Fatalf("start pool: %v", err)
	}
	return pool
}

func assertInvariants(t *testing.T, f *fixture, addr [20]byte) {
	t.Helper()
	pool, err := f.engine.Pool(addr)
	if err != nil {
		t.Fatalf("load pool: %v", err)
	}
	if pool.CurrentAmount > pool.TargetAmount {
		t.Fatalf("current %d above target %d", pool.CurrentAmount, pool.TargetAmount)
	}
	if int(pool.CurrentParticipants) != len(pool.Participants) {
		t.Fatalf("participant count %d != %d", pool.CurrentParticipants, len(pool.Participants))
	}
	seen := make(map[[20]byte]bool)
	var sum uint64
	for _, p := range pool.Participants {
		if seen[p.User] {
			t.Fatalf("duplicate participant")
		}
		seen[p.User] = true
		sum += p.Contribution
	}
	if sum != pool.CurrentAmount {
		t.Fatalf("contributions %d != current %d", sum, pool.CurrentAmount)
	}
	if pool.IsActive {
		balance, _ := f.escrow.Balance(addr)
		if balance != pool.CurrentAmount {
			t.Fatalf("escrow %d != current %d", balance, pool.CurrentAmount)
		}
	}
}

func TestStartPoolValidation(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.StartPool(f.starter, f.deal.ID, 1_000, 3); !errors.Is(err, ErrInvalidParticipants) {
		t.Fatalf("expected invalid participants, got %v", err)
	}
	if _, err := f.engine.StartPool(f.starter, f.deal.ID, 999, 2); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected invalid price, got %v", err)
	}
	if _, err := f.engine.StartPool(f.starter, account(0x55), 1_000, 2); !errors.Is(err, deals.ErrDealNotFound) {
		t.Fatalf("expected missing deal, got %v", err)
	}
	pool := f.start(t)
	if pool.ExpiresAt != testNow+DefaultHorizon || !pool.IsActive || pool.CurrentAmount != 0 {
		t.Fatalf("unexpected pool %+v", pool)
	}
	if pool.Address != Address(f.deal.ID, f.starter) {
		t.Fatalf("pool address mismatch")
	}
	if _, err := f.engine.StartPool(f.starter, f.deal.ID, 1_000, 2); !errors.Is(err, ErrPoolExists) {
		t.Fatalf("expected duplicate pool rejection, got %v", err)
	}
	f.clock = f.deal.ExpiresAt + 1
	if _, err := f.engine.StartPool(f.alice, f.deal.ID, 1_000, 2); !errors.Is(err, deals.ErrDealExpired) {
		t.Fatalf("expected expired deal, got %v", err)
	}
}

func TestStartPoolRequiresGroupDeal(t *testing.T) {
	f := newFixture(t)
	solo, err := f.deals.ListDeal(f.seller, deals.ListParams{
		Merchant:           account(9),
		Price:              100,
		DiscountPercentage: 5,
		ExpiresAt:          testNow + 86_400,
		MaxSupply:          1,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := f.engine.StartPool(f.starter, solo.ID, 100, 2); !errors.Is(err, ErrNotGroupDeal) {
		t.Fatalf("expected not group deal, got %v", err)
	}
}

func TestPoolPurchaseScenario(t *testing.T) {
	f := newFixture(t)
	pool := f.start(t)

	_, reached, err := f.engine.JoinPool(f.alice, pool.Address, 500)
	if err != nil {
		t.Fatalf("alice join: %v", err)
	}
	if reached {
		t.Fatalf("target must not be reached after first join")
	}
	assertInvariants(t, f, pool.Address)
	if _, err := f.engine.ExecutePurchase(f.starter, pool.Address); !errors.Is(err, ErrTargetNotReached) {
		t.Fatalf("expected target not reached, got %v", err)
	}

	_, reached, err = f.engine.JoinPool(f.bob, pool.Address, 500)
	if err != nil {
		t.Fatalf("bob join: %v", err)
	}
	if !reached {
		t.Fatalf("target must be reached at equality")
	}
	assertInvariants(t, f, pool.Address)

	if _, err := f.engine.ExecutePurchase(f.alice, pool.Address); !errors.Is(err, ErrNotPoolStarter) {
		t.Fatalf("expected not starter, got %v", err)
	}
	sellerBefore, _ := f.ledger.Balance(f.seller)
	executed, err := f.engine.ExecutePurchase(f.starter, pool.Address)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !executed.IsExecuted || executed.IsActive || executed.ExecutedAt != testNow {
		t.Fatalf("unexpected pool flags %+v", executed)
	}
	sellerAfter, _ := f.ledger.Balance(f.seller)
	if sellerAfter-sellerBefore != 1_000 {
		t.Fatalf("seller received %d", sellerAfter-sellerBefore)
	}
	if balance, _ := f.escrow.Balance(pool.Address); balance != 0 {
		t.Fatalf("escrow not drained: %d", balance)
	}
	deal, _ := f.deals.Deal(f.deal.ID)
	if deal.Owner != f.starter || deal.TimesSold != 1 || deal.CurrentSupply != 1 {
		t.Fatalf("deal not transferred %+v", deal)
	}
	merchant, _ := f.deals.Merchant(account(9))
	if merchant.TotalDealsSold != 1 || merchant.TotalRevenue != 1_000 {
		t.Fatalf("merchant stats %+v", merchant)
	}

	if _, _, err := f.engine.JoinPool(f.carol, pool.Address, 1); !errors.Is(err, ErrPoolNotActive) {
		t.Fatalf("expected inactive pool, got %v", err)
	}
	if _, err := f.engine.ExecutePurchase(f.starter, pool.Address); !errors.Is(err, ErrPoolNotActive) {
		t.Fatalf("expected inactive pool on re-execute, got %v", err)
	}
	if err := f.engine.CancelPool(f.starter, pool.Address); !errors.Is(err, ErrPoolAlreadyExecuted) {
		t.Fatalf("expected executed pool cancel rejection, got %v", err)
	}
}

func TestJoinPoolRules(t *testing.T) {
	f := newFixture(t)
	pool := f.start(t)
	if _, _, err := f.engine.JoinPool(f.alice, pool.Address, 0); !errors.Is(err, ErrInsufficientContribution) {
		t.Fatalf("expected zero contribution rejection, got %v", err)
	}
	if _, _, err := f.engine.JoinPool(f.alice, pool.Address, 1_001); !errors.Is(err, ErrTargetExceeded) {
		t.Fatalf("expected target exceeded, got %v", err)
	}
	if _, _, err := f.engine.JoinPool(f.alice, pool.Address, 700); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, _, err := f.engine.JoinPool(f.alice, pool.Address, 100); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("expected duplicate participant rejection, got %v", err)
	}
	if _, _, err := f.engine.JoinPool(f.bob, pool.Address, 301); !errors.Is(err, ErrTargetExceeded) {
		t.Fatalf("expected target exceeded, got %v", err)
	}
	assertInvariants(t, f, pool.Address)

	profile, _ := f.reputation.Profile(f.alice)
	if profile.ReputationPoints != 8 || profile.TotalPoolsJoined != 1 || profile.TotalRewardsEarned != 20_000_000 {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if monk, _ := f.ledger.RewardBalance(f.alice); monk != 20_000_000 {
		t.Fatalf("participation reward %d", monk)
	}
	if bal, _ := f.ledger.Balance(f.alice); bal != 4_300 {
		t.Fatalf("alice balance %d", bal)
	}

	f.clock = pool.ExpiresAt + 1
	if _, _, err := f.engine.JoinPool(f.bob, pool.Address, 300); !errors.Is(err, ErrPoolExpired) {
		t.Fatalf("expected expired pool, got %v", err)
	}
}

func TestJoinPoolInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	pool := f.start(t)
	poor := account(0x44)
	if _, _, err := f.engine.JoinPool(poor, pool.Address, 10); !errors.Is(err, bank.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestCancelPoolRefundsEveryone(t *testing.T) {
	f := newFixture(t)
	pool, err := f.engine.StartPool(f.starter, f.deal.ID, 1_800, 4)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, _, err := f.engine.JoinPool(f.alice, pool.Address, 400); err != nil {
		t.Fatalf("alice join: %v", err)
	}
	if _, _, err := f.engine.JoinPool(f.bob, pool.Address, 250); err != nil {
		t.Fatalf("bob join: %v", err)
	}
	if err := f.engine.CancelPool(f.alice, pool.Address); !errors.Is(err, ErrNotPoolStarter) {
		t.Fatalf("expected not starter, got %v", err)
	}
	f.clock = pool.ExpiresAt + 10
	if err := f.engine.CancelPool(f.starter, pool.Address); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if bal, _ := f.ledger.Balance(f.alice); bal != 5_000 {
		t.Fatalf("alice not refunded: %d", bal)
	}
	if bal, _ := f.ledger.Balance(f.bob); bal != 5_000 {
		t.Fatalf("bob not refunded: %d", bal)
	}
	if bal, _ := f.escrow.Balance(pool.Address); bal != 0 {
		t.Fatalf("escrow not drained: %d", bal)
	}
	if _, err := f.engine.Pool(pool.Address); !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("expected pool record removed, got %v", err)
	}
	if _, err := f.engine.StartPool(f.starter, f.deal.ID, 1_000, 2); err != nil {
		t.Fatalf("restart after cancel: %v", err)
	}
}

func TestPoolStatus(t *testing.T) {
	f := newFixture(t)
	pool := f.start(t)
	if pool.Status(testNow) != StatusActive {
		t.Fatalf("expected active, got %s", pool.Status(testNow))
	}
	if pool.Status(pool.ExpiresAt+1) != StatusExpired {
		t.Fatalf("expected expired")
	}
	pool.CurrentAmount, pool.CurrentParticipants = 1_000, 2
	if pool.Status(testNow) != StatusTargetReached {
		t.Fatalf("expected target reached")
	}
	pool.IsExecuted = true
	if pool.Status(testNow) != StatusExecuted {
		t.Fatalf("expected executed")
	}
}

func TestEscrowRejectsOutsideTransfers(t *testing.T) {
	f := newFixture(t)
	pool := f.start(t)
	for _, a := range [][20]byte{f.alice, f.bob} {
		if _, _, err := f.engine.JoinPool(a, pool.Address, 500); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	if err := f.ledger.Transfer(f.carol, escrow.Address(pool.Address), 1); !errors.Is(err, bank.ErrControlledAccount) {
		t.Fatalf("transfer into pool escrow must fail, got %v", err)
	}
	assertInvariants(t, f, pool.Address)
	if _, err := f.engine.ExecutePurchase(f.starter, pool.Address); err != nil {
		t.Fatalf("execute: %v", err)
	}
}

func TestPrefundedEscrowDoesNotLockPool(t *testing.T) {
	f := newFixture(t)
	addr := Address(f.deal.ID, f.starter)
	// The escrow address is public before the pool exists.
	if err := f.ledger.Transfer(f.carol, escrow.Address(addr), 3); err != nil {
		t.Fatalf("prefund: %v", err)
	}
	pool := f.start(t)
	for _, a := range [][20]byte{f.alice, f.bob} {
		if _, _, err := f.engine.JoinPool(a, pool.Address, 500); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	sellerBefore, _ := f.ledger.Balance(f.seller)
	if _, err := f.engine.ExecutePurchase(f.starter, pool.Address); err != nil {
		t.Fatalf("execute with surplus: %v", err)
	}
	sellerAfter, _ := f.ledger.Balance(f.seller)
	if sellerAfter-sellerBefore != 1_000 {
		t.Fatalf("seller received %d", sellerAfter-sellerBefore)
	}
	if bal, _ := f.ledger.Balance(f.starter); bal != 3 {
		t.Fatalf("starter should receive the surplus, got %d", bal)
	}
	if bal, _ := f.escrow.Balance(pool.Address); bal != 0 {
		t.Fatalf("escrow not drained: %d", bal)
	}
}

func TestPrefundedEscrowStillRefundsOnCancel(t *testing.T) {
	f := newFixture(t)
	addr := Address(f.deal.ID, f.starter)
	if err := f.ledger.Transfer(f.carol, escrow.Address(addr), 3); err != nil {
		t.Fatalf("prefund: %v", err)
	}
	pool := f.start(t)
	if _, _, err := f.engine.JoinPool(f.alice, pool.Address, 400); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := f.engine.CancelPool(f.starter, pool.Address); err != nil {
		t.Fatalf("cancel with surplus: %v", err)
	}
	if bal, _ := f.ledger.Balance(f.alice); bal != 5_000 {
		t.Fatalf("alice not refunded: %d", bal)
	}
	if bal, _ := f.ledger.Balance(f.starter); bal != 3 {
		t.Fatalf("starter should receive the surplus, got %d", bal)
	}
	if bal, _ := f.escrow.Balance(pool.Address); bal != 0 {
		t.Fatalf("escrow not drained: %d", bal)
	}
}
