package deals

import (
	"errors"
	"strings"
	"testing"

	"monkeydao/core/state"
	"monkeydao/crypto"
	"monkeydao/native/bank"
	"monkeydao/native/reputation"
	"monkeydao/storage"
)

const testNow int64 = 1_700_000_000

type fixture struct {
	engine     *Engine
	ledger     *bank.Ledger
	reputation *reputation.Engine
	merchant   [20]byte
	seller     [20]byte
	buyer      [20]byte
}

func account(b byte) [20]byte {
	var out [20]byte
	out[0] = b
	return out
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	now := func() int64 { return testNow }
	ledger := bank.NewLedger(manager)
	rep := reputation.NewEngine()
	rep.SetState(manager)
	rep.SetNowFunc(now)
	engine := NewEngine()
	engine.SetState(manager)
	engine.SetLedger(ledger)
	engine.SetReputation(rep)
	engine.SetMintAuthority(crypto.NewAuthority(crypto.SeedTokenAuthority))
	params := DefaultParams()
	params.Admin = account(0xAA)
	engine.SetParams(params)
	engine.SetNowFunc(now)
	f := &fixture{
		engine:     engine,
		ledger:     ledger,
		reputation: rep,
		merchant:   account(1),
		seller:     account(2),
		buyer:      account(3),
	}
	if _, err := engine.RegisterMerchant(f.merchant, "Monkey Cafe"); err != nil {
		t.Fatalf("register merchant: %v", err)
	}
	if err := ledger.Credit(f.buyer, 10_000); err != nil {
		t.Fatalf("credit buyer: %v", err)
	}
	return f
}

func (f *fixture) listParams() ListParams {
	return ListParams{
		Merchant:           f.merchant,
		Price:              1_000,
		Location:           "Lisbon",
		IsGroupDeal:        true,
		GroupPrices:        &GroupPrices{PriceFor2: 1_000, PriceFor4: 1_800, PriceFor8: 3_200},
		DiscountPercentage: 20,
		ExpiresAt:          testNow + 86_400*30,
		MerchantID:         "cafe-01",
		MaxSupply:          5,
	}
}

func TestListDeal(t *testing.T) {
	f := newFixture(t)
	deal, err := f.engine.ListDeal(f.seller, f.listParams())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if deal.ID != DealAddress(deal.Mint) || deal.Owner != f.seller {
		t.Fatalf("unexpected deal identity %+v", deal)
	}
	stored, err := f.engine.Deal(deal.ID)
	if err != nil {
		t.Fatalf("load deal: %v", err)
	}
	if price, ok := stored.GroupPrice(4); !ok || price != 1_800 {
		t.Fatalf("group price not persisted: %d %v", price, ok)
	}
	if _, ok := stored.GroupPrice(3); ok {
		t.Fatalf("unexpected price for 3 participants")
	}
	profile, _ := f.reputation.Profile(f.seller)
	if profile.ReputationPoints != 10 || profile.TotalDealsListed != 1 || profile.TotalRewardsEarned != 50_000_000 {
		t.Fatalf("unexpected seller profile %+v", profile)
	}
	if monk, _ := f.ledger.RewardBalance(f.seller); monk != 50_000_000 {
		t.Fatalf("listing reward not minted: %d", monk)
	}
	merchant, _ := f.engine.Merchant(f.merchant)
	if merchant.TotalDealsListed != 1 {
		t.Fatalf("merchant listing counter %d", merchant.TotalDealsListed)
	}
	second, err := f.engine.ListDeal(f.seller, f.listParams())
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if second.ID == deal.ID {
		t.Fatalf("listings must get distinct ids")
	}
}

func TestListDealValidation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name   string
		mutate func(*ListParams)
		want   error
	}{
		{"price", func(p *ListParams) { p.Price = 0 }, ErrInvalidPrice},
		{"location", func(p *ListParams) { p.Location = strings.Repeat("x", MaxLocationLength+1) }, ErrLocationTooLong},
		{"merchant id", func(p *ListParams) { p.MerchantID = strings.Repeat("x", MaxMerchantIDLength+1) }, ErrMerchantIDTooLong},
		{"discount low", func(p *ListParams) { p.DiscountPercentage = 0 }, ErrInvalidDiscount},
		{"discount high", func(p *ListParams) { p.DiscountPercentage = 100 }, ErrInvalidDiscount},
		{"group prices", func(p *ListParams) { p.GroupPrices = nil }, ErrGroupPricesRequired},
		{"event details", func(p *ListParams) { p.IsCryptoBased = true }, ErrEventDetailsRequired},
		{"event name", func(p *ListParams) {
			p.IsCryptoBased = true
			p.EventName = strings.Repeat("e", MaxEventNameLength+1)
			p.EventDescription = "desc"
		}, ErrEventNameTooLong},
		{"event description", func(p *ListParams) {
			p.IsCryptoBased = true
			p.EventName = "Breakpoint"
			p.EventDescription = strings.Repeat("d", MaxEventDescLength+1)
		}, ErrEventDescriptionTooLong},
		{"supply", func(p *ListParams) { p.MaxSupply = 0 }, ErrInvalidSupply},
		{"expiry", func(p *ListParams) { p.ExpiresAt = testNow }, ErrInvalidExpiry},
		{"merchant", func(p *ListParams) { p.Merchant = account(0x77) }, ErrMerchantNotFound},
	}
	for _, tc := range cases {
		params := f.listParams()
		tc.mutate(&params)
		if _, err := f.engine.ListDeal(f.seller, params); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestBuyDeal(t *testing.T) {
	f := newFixture(t)
	deal, err := f.engine.ListDeal(f.seller, f.listParams())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := f.engine.BuyDeal(f.seller, deal.ID); !errors.Is(err, ErrCannotBuyOwnDeal) {
		t.Fatalf("expected own-deal rejection, got %v", err)
	}
	bought, err := f.engine.BuyDeal(f.buyer, deal.ID)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if bought.Owner != f.buyer || bought.TimesSold != 1 || bought.CurrentSupply != 1 {
		t.Fatalf("unexpected deal after buy %+v", bought)
	}
	if bal, _ := f.ledger.Balance(f.seller); bal != 1_000 {
		t.Fatalf("seller not paid: %d", bal)
	}
	if bal, _ := f.ledger.Balance(f.buyer); bal != 9_000 {
		t.Fatalf("buyer not debited: %d", bal)
	}
	merchant, _ := f.engine.Merchant(f.merchant)
	if merchant.TotalDealsSold != 1 || merchant.TotalRevenue != 1_000 {
		t.Fatalf("merchant stats %+v", merchant)
	}
	profile, _ := f.reputation.Profile(f.buyer)
	if profile.ReputationPoints != 5 || profile.TotalDealsPurchased != 1 {
		t.Fatalf("buyer profile %+v", profile)
	}
}

func TestBuyDealRejectsExpiredAndSoldOut(t *testing.T) {
	f := newFixture(t)
	params := f.listParams()
	params.MaxSupply = 1
	deal, err := f.engine.ListDeal(f.seller, params)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := f.engine.BuyDeal(f.buyer, deal.ID); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if _, err := f.engine.BuyDeal(f.seller, deal.ID); !errors.Is(err, ErrMaxSupplyReached) {
		t.Fatalf("expected sold out, got %v", err)
	}
	other, err := f.engine.ListDeal(f.seller, f.listParams())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	f.engine.SetNowFunc(func() int64 { return other.ExpiresAt + 1 })
	if _, err := f.engine.BuyDeal(f.buyer, other.ID); !errors.Is(err, ErrDealExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestRedeemDeal(t *testing.T) {
	f := newFixture(t)
	deal, err := f.engine.ListDeal(f.seller, f.listParams())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := f.engine.RedeemDeal(f.buyer, deal.ID, []byte("sig")); !errors.Is(err, ErrNotDealOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
	if _, err := f.engine.RedeemDeal(f.seller, deal.ID, nil); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected proof required, got %v", err)
	}
	redeemed, err := f.engine.RedeemDeal(f.seller, deal.ID, []byte("sig"))
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if !redeemed.IsRedeemed || !redeemed.IsUsed {
		t.Fatalf("flags not set %+v", redeemed)
	}
	if _, err := f.engine.RedeemDeal(f.seller, deal.ID, []byte("sig")); !errors.Is(err, ErrDealAlreadyRedeemed) {
		t.Fatalf("expected already redeemed, got %v", err)
	}
	if monk, _ := f.ledger.RewardBalance(f.seller); monk != 150_000_000 {
		t.Fatalf("expected listing+redemption reward, got %d", monk)
	}
	merchant, _ := f.engine.Merchant(f.merchant)
	if merchant.TotalDealsRedeemed != 1 {
		t.Fatalf("merchant redeemed counter %d", merchant.TotalDealsRedeemed)
	}
	if _, err := f.engine.RelistDeal(f.seller, deal.ID, 10); !errors.Is(err, ErrDealAlreadyUsed) {
		t.Fatalf("expected relist of used deal to fail, got %v", err)
	}
}

func TestRateDeal(t *testing.T) {
	f := newFixture(t)
	deal, err := f.engine.ListDeal(f.seller, f.listParams())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := f.engine.RateDeal(f.buyer, deal.ID, 0, ""); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected invalid rating, got %v", err)
	}
	if _, err := f.engine.RateDeal(f.buyer, deal.ID, 4, strings.Repeat("c", MaxCommentLength+1)); !errors.Is(err, ErrCommentTooLong) {
		t.Fatalf("expected comment too long, got %v", err)
	}
	rating, err := f.engine.RateDeal(f.buyer, deal.ID, 4, "great coffee")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if rating.IsVerifiedPurchase {
		t.Fatalf("unsold deal cannot have a verified purchase rating")
	}
	if _, err := f.engine.RateDeal(f.buyer, deal.ID, 5, ""); !errors.Is(err, ErrAlreadyRated) {
		t.Fatalf("expected duplicate rating rejection, got %v", err)
	}
	if _, err := f.engine.RateDeal(f.seller, deal.ID, 2, ""); err != nil {
		t.Fatalf("second rater: %v", err)
	}
	stored, _ := f.engine.Deal(deal.ID)
	if stored.TotalRatings != 2 || stored.TotalRatingValue != 6 || stored.AverageRating() != 300 {
		t.Fatalf("unexpected aggregates %+v", stored)
	}
	profile, _ := f.reputation.Profile(f.buyer)
	if profile.ReputationPoints != 3 || profile.TotalRatingsGiven != 1 {
		t.Fatalf("rater profile %+v", profile)
	}
}

func TestMerchantLifecycle(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.RegisterMerchant(f.merchant, "Again"); !errors.Is(err, ErrMerchantRegistered) {
		t.Fatalf("expected duplicate registration, got %v", err)
	}
	if _, err := f.engine.RegisterMerchant(account(9), strings.Repeat("n", MaxMerchantNameLength+1)); !errors.Is(err, ErrMerchantNameTooLong) {
		t.Fatalf("expected name too long, got %v", err)
	}
	if _, err := f.engine.RegisterMerchant(account(9), "   "); !errors.Is(err, ErrMerchantNameTooLong) {
		t.Fatalf("expected empty name rejection, got %v", err)
	}
	if _, err := f.engine.VerifyMerchant(f.buyer, f.merchant); !errors.Is(err, ErrNotAuthorizedAdmin) {
		t.Fatalf("expected admin check, got %v", err)
	}
	merchant, err := f.engine.VerifyMerchant(account(0xAA), f.merchant)
	if err != nil || !merchant.IsVerified {
		t.Fatalf("verify: %+v %v", merchant, err)
	}
}

func TestCustody(t *testing.T) {
	f := newFixture(t)
	deal, err := f.engine.ListDeal(f.seller, f.listParams())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	vault := account(0xEE)
	if _, err := f.engine.Lock(deal.ID, f.buyer, vault); !errors.Is(err, ErrNotDealOwner) {
		t.Fatalf("expected owner check, got %v", err)
	}
	if _, err := f.engine.Lock(deal.ID, f.seller, vault); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := f.engine.Lock(deal.ID, f.seller, vault); !errors.Is(err, ErrDealLocked) {
		t.Fatalf("expected double lock rejection, got %v", err)
	}
	if _, err := f.engine.BuyDeal(f.buyer, deal.ID); !errors.Is(err, ErrDealLocked) {
		t.Fatalf("locked deal must not be sold, got %v", err)
	}
	if _, err := f.engine.Release(deal.ID, account(0x01)); !errors.Is(err, ErrDealNotLocked) {
		t.Fatalf("foreign custodian release must fail, got %v", err)
	}
	released, err := f.engine.Release(deal.ID, vault)
	if err != nil || released.Locked() {
		t.Fatalf("release: %+v %v", released, err)
	}
}
