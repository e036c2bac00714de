package deals

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	coreerrors "monkeydao/core/errors"
	"monkeydao/core/events"
	"monkeydao/core/types"
	"monkeydao/crypto"
	"monkeydao/native/common"
	"monkeydao/native/reputation"
)

var (
	ErrDealNotFound            = coreerrors.New(coreerrors.KindNotFound, "DealNotFound", "deals: deal not found")
	ErrMerchantNotFound        = coreerrors.New(coreerrors.KindNotFound, "MerchantNotFound", "deals: merchant not registered")
	ErrInvalidPrice            = coreerrors.New(coreerrors.KindValidation, "InvalidPrice", "deals: invalid price")
	ErrLocationTooLong         = coreerrors.New(coreerrors.KindValidation, "LocationTooLong", "deals: location too long")
	ErrMerchantIDTooLong       = coreerrors.New(coreerrors.KindValidation, "MerchantIdTooLong", "deals: merchant id too long")
	ErrInvalidDiscount         = coreerrors.New(coreerrors.KindValidation, "InvalidDiscountPercentage", "deals: discount must be between 1 and 99")
	ErrGroupPricesRequired     = coreerrors.New(coreerrors.KindValidation, "GroupPricesRequired", "deals: group deals require group prices")
	ErrEventDetailsRequired    = coreerrors.New(coreerrors.KindValidation, "EventDetailsRequired", "deals: crypto deals require event details")
	ErrEventNameTooLong        = coreerrors.New(coreerrors.KindValidation, "EventNameTooLong", "deals: event name too long")
	ErrEventDescriptionTooLong = coreerrors.New(coreerrors.KindValidation, "EventDescriptionTooLong", "deals: event description too long")
	ErrInvalidSupply           = coreerrors.New(coreerrors.KindValidation, "InvalidSupply", "deals: max supply must be positive")
	ErrInvalidExpiry           = coreerrors.New(coreerrors.KindValidation, "InvalidExpiry", "deals: expiry must be in the future")
	ErrDealExpired             = coreerrors.New(coreerrors.KindState, "DealExpired", "deals: deal expired")
	ErrDealAlreadyUsed         = coreerrors.New(coreerrors.KindState, "DealAlreadyUsed", "deals: deal already used")
	ErrDealAlreadyRedeemed     = coreerrors.New(coreerrors.KindState, "DealAlreadyRedeemed", "deals: deal already redeemed")
	ErrMaxSupplyReached        = coreerrors.New(coreerrors.KindState, "MaxSupplyReached", "deals: max supply reached")
	ErrDealLocked              = coreerrors.New(coreerrors.KindState, "DealLocked", "deals: deal is held in custody")
	ErrDealNotLocked           = coreerrors.New(coreerrors.KindState, "DealNotLocked", "deals: deal is not held by custodian")
	ErrNotDealOwner            = coreerrors.New(coreerrors.KindAuthorization, "NotDealOwner", "deals: caller does not own deal")
	ErrCannotBuyOwnDeal        = coreerrors.New(coreerrors.KindValidation, "CannotBuyOwnDeal", "deals: buyer already owns deal")
	ErrInvalidSignature        = coreerrors.New(coreerrors.KindValidation, "InvalidRedemptionSignature", "deals: redemption proof required")
	ErrInvalidRating           = coreerrors.New(coreerrors.KindValidation, "InvalidRating", "deals: rating must be between 1 and 5")
	ErrCommentTooLong          = coreerrors.New(coreerrors.KindValidation, "CommentTooLong", "deals: comment too long")
	ErrAlreadyRated            = coreerrors.New(coreerrors.KindState, "AlreadyRated", "deals: deal already rated by user")
	ErrMerchantNameTooLong     = coreerrors.New(coreerrors.KindValidation, "MerchantNameTooLong", "deals: merchant name must be 1 to 100 characters")
	ErrMerchantRegistered      = coreerrors.New(coreerrors.KindState, "MerchantAlreadyRegistered", "deals: merchant already registered")
	ErrNotAuthorizedAdmin      = coreerrors.New(coreerrors.KindAuthorization, "NotAuthorizedMerchant", "deals: caller is not the platform admin")

	errNilState = errors.New("deals engine: state not configured")
)

type valueLedger interface {
	Transfer(from, to [20]byte, amount uint64) error
	Mint(auth *crypto.Authority, to [20]byte, amount uint64) error
}

type reputationRecorder interface {
	Record(owner [20]byte, activity reputation.ActivityType, mutate func(*reputation.Profile) error) (*reputation.Profile, error)
}

// Engine stores deals, merchants and ratings and runs the direct purchase,
// redemption and custody transitions.
type Engine struct {
	state      stateStore
	ledger     valueLedger
	reputation reputationRecorder
	mint       *crypto.Authority
	params     Params
	emitter    events.Emitter
	nowFn      func() int64
}

// NewEngine creates a deals engine with default params and a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		params:  DefaultParams(),
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state stateStore) { e.state = state }

// SetLedger configures the value ledger used for payments and rewards.
func (e *Engine) SetLedger(ledger valueLedger) { e.ledger = ledger }

// SetReputation configures the reputation engine credited by deal activity.
func (e *Engine) SetReputation(rep reputationRecorder) { e.reputation = rep }

// SetMintAuthority configures the token authority used for reward mints.
func (e *Engine) SetMintAuthority(auth *crypto.Authority) { e.mint = auth }

// SetParams overrides the reward params.
func (e *Engine) SetParams(params Params) { e.params = params }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

// Deal returns the deal stored under id.
func (e *Engine) Deal(id [20]byte) (*Deal, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.loadDeal(id)
}

// Merchant returns the merchant registered by authority.
func (e *Engine) Merchant(authority [20]byte) (*Merchant, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	merchant, ok, err := e.loadMerchant(authority)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMerchantNotFound
	}
	return merchant, nil
}

// Rating returns user's rating of deal.
func (e *Engine) Rating(deal, user [20]byte) (*Rating, bool, error) {
	if err := e.ready(); err != nil {
		return nil, false, err
	}
	return e.loadRating(deal, user)
}

func validateListing(p ListParams, now int64) error {
	if p.Price == 0 {
		return ErrInvalidPrice
	}
	if utf8.RuneCountInString(p.Location) > MaxLocationLength {
		return ErrLocationTooLong
	}
	if utf8.RuneCountInString(p.MerchantID) > MaxMerchantIDLength {
		return ErrMerchantIDTooLong
	}
	if p.DiscountPercentage < MinDiscountPercentage || p.DiscountPercentage > MaxDiscountPercentage {
		return ErrInvalidDiscount
	}
	if p.IsGroupDeal {
		g := p.GroupPrices
		if g == nil || g.PriceFor2 == 0 || g.PriceFor4 == 0 || g.PriceFor8 == 0 {
			return ErrGroupPricesRequired
		}
	}
	if p.IsCryptoBased {
		if strings.TrimSpace(p.EventName) == "" || strings.TrimSpace(p.EventDescription) == "" {
			return ErrEventDetailsRequired
		}
		if utf8.RuneCountInString(p.EventName) > MaxEventNameLength {
			return ErrEventNameTooLong
		}
		if utf8.RuneCountInString(p.EventDescription) > MaxEventDescLength {
			return ErrEventDescriptionTooLong
		}
	}
	if p.MaxSupply == 0 {
		return ErrInvalidSupply
	}
	if p.ExpiresAt <= now {
		return ErrInvalidExpiry
	}
	return nil
}

// ListDeal creates a new deal owned by owner under a registered merchant,
// awards listing reputation and mints the listing reward.
func (e *Engine) ListDeal(owner [20]byte, params ListParams) (*Deal, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	now := e.now()
	if err := validateListing(params, now); err != nil {
		return nil, err
	}
	merchant, ok, err := e.loadMerchant(params.Merchant)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMerchantNotFound
	}
	seq, err := e.nextSequence()
	if err != nil {
		return nil, err
	}
	mint := MintAddress(seq)
	deal := &Deal{
		ID:                 DealAddress(mint),
		Mint:               mint,
		Owner:              owner,
		Merchant:           params.Merchant,
		Price:              params.Price,
		Location:           params.Location,
		IsGroupDeal:        params.IsGroupDeal,
		IsCryptoBased:      params.IsCryptoBased,
		DiscountPercentage: params.DiscountPercentage,
		ExpiresAt:          params.ExpiresAt,
		MerchantID:         params.MerchantID,
		CreatedAt:          now,
		MaxSupply:          params.MaxSupply,
	}
	if params.IsGroupDeal {
		prices := *params.GroupPrices
		deal.GroupPrices = &prices
	}
	if params.IsCryptoBased {
		deal.EventName = params.EventName
		deal.EventDescription = params.EventDescription
	}
	if err := e.storeDeal(deal); err != nil {
		return nil, err
	}
	if err := common.Increment(&merchant.TotalDealsListed); err != nil {
		return nil, err
	}
	merchant.LastActivityAt = now
	if err := e.storeMerchant(merchant); err != nil {
		return nil, err
	}
	reward := e.params.ListingReward
	if err := e.award(owner, reputation.ActivityListDeal, reward, func(p *reputation.Profile) error {
		return common.Increment(&p.TotalDealsListed)
	}); err != nil {
		return nil, err
	}
	e.emit(NewDealListedEvent(deal, now))
	return deal, nil
}

// RelistDeal changes the asking price of an unused deal.
func (e *Engine) RelistDeal(owner, id [20]byte, price uint64) (*Deal, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if price == 0 {
		return nil, ErrInvalidPrice
	}
	deal, err := e.loadDeal(id)
	if err != nil {
		return nil, err
	}
	if deal.Owner != owner {
		return nil, ErrNotDealOwner
	}
	if deal.IsUsed {
		return nil, ErrDealAlreadyUsed
	}
	if deal.IsRedeemed {
		return nil, ErrDealAlreadyRedeemed
	}
	old := deal.Price
	deal.Price = price
	if err := e.storeDeal(deal); err != nil {
		return nil, err
	}
	e.emit(NewDealRelistedEvent(deal, old, e.now()))
	return deal, nil
}

// BuyDeal pays the asking price to the current owner and transfers the deal
// to buyer.
func (e *Engine) BuyDeal(buyer, id [20]byte) (*Deal, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	deal, err := e.loadDeal(id)
	if err != nil {
		return nil, err
	}
	if deal.Owner == buyer {
		return nil, ErrCannotBuyOwnDeal
	}
	if err := e.checkSaleable(deal, e.now()); err != nil {
		return nil, err
	}
	if e.ledger == nil {
		return nil, errors.New("deals engine: ledger not configured")
	}
	seller := deal.Owner
	if err := e.ledger.Transfer(buyer, seller, deal.Price); err != nil {
		return nil, err
	}
	if _, err := e.RecordSale(id, buyer, deal.Price); err != nil {
		return nil, err
	}
	if err := e.award(buyer, reputation.ActivityBuyDeal, 0, func(p *reputation.Profile) error {
		return common.Increment(&p.TotalDealsPurchased)
	}); err != nil {
		return nil, err
	}
	updated, err := e.loadDeal(id)
	if err != nil {
		return nil, err
	}
	e.emit(NewDealPurchasedEvent(updated, seller, deal.Price, e.now()))
	return updated, nil
}

func (e *Engine) checkSaleable(deal *Deal, now int64) error {
	if deal.IsUsed {
		return ErrDealAlreadyUsed
	}
	if deal.IsExpired(now) {
		return ErrDealExpired
	}
	if deal.Locked() {
		return ErrDealLocked
	}
	if deal.CurrentSupply >= deal.MaxSupply {
		return ErrMaxSupplyReached
	}
	return nil
}

// RecordSale transfers ownership of the deal to buyer and books the sale on
// the deal and its merchant. Payment is the caller's responsibility.
func (e *Engine) RecordSale(id, buyer [20]byte, amount uint64) (*Deal, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	now := e.now()
	deal, err := e.loadDeal(id)
	if err != nil {
		return nil, err
	}
	if err := e.checkSaleable(deal, now); err != nil {
		return nil, err
	}
	merchant, ok, err := e.loadMerchant(deal.Merchant)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMerchantNotFound
	}
	deal.Owner = buyer
	if err := common.Increment(&deal.TimesSold); err != nil {
		return nil, err
	}
	if err := common.Increment(&deal.CurrentSupply); err != nil {
		return nil, err
	}
	if err := common.Increment(&merchant.TotalDealsSold); err != nil {
		return nil, err
	}
	if merchant.TotalRevenue, err = common.AddUint64(merchant.TotalRevenue, amount); err != nil {
		return nil, err
	}
	merchant.LastActivityAt = now
	if err := e.storeDeal(deal); err != nil {
		return nil, err
	}
	if err := e.storeMerchant(merchant); err != nil {
		return nil, err
	}
	return deal, nil
}

// RedeemDeal marks the deal as used by its owner. The proof is only checked
// for presence; verification happens off-ledger.
func (e *Engine) RedeemDeal(owner, id [20]byte, proof []byte) (*Deal, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	now := e.now()
	deal, err := e.loadDeal(id)
	if err != nil {
		return nil, err
	}
	if deal.Owner != owner {
		return nil, ErrNotDealOwner
	}
	if deal.IsRedeemed {
		return nil, ErrDealAlreadyRedeemed
	}
	if deal.IsExpired(now) {
		return nil, ErrDealExpired
	}
	if deal.Locked() {
		return nil, ErrDealLocked
	}
	if len(proof) == 0 {
		return nil, ErrInvalidSignature
	}
	merchant, ok, err := e.loadMerchant(deal.Merchant)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMerchantNotFound
	}
	deal.IsRedeemed = true
	deal.IsUsed = true
	if err := e.storeDeal(deal); err != nil {
		return nil, err
	}
	if err := common.Increment(&merchant.TotalDealsRedeemed); err != nil {
		return nil, err
	}
	merchant.LastActivityAt = now
	if err := e.storeMerchant(merchant); err != nil {
		return nil, err
	}
	reward := e.params.RedemptionReward
	if err := e.award(owner, reputation.ActivityRedeemDeal, reward, func(p *reputation.Profile) error {
		return common.Increment(&p.TotalDealsRedeemed)
	}); err != nil {
		return nil, err
	}
	e.emit(NewDealRedeemedEvent(deal, reward, now))
	return deal, nil
}

// RateDeal records a 1..5 star rating with an optional comment. Each user
// rates a deal once.
func (e *Engine) RateDeal(rater, id [20]byte, value uint8, comment string) (*Rating, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if value < MinRating || value > MaxRating {
		return nil, ErrInvalidRating
	}
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return nil, ErrCommentTooLong
	}
	deal, err := e.loadDeal(id)
	if err != nil {
		return nil, err
	}
	if _, exists, err := e.loadRating(id, rater); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrAlreadyRated
	}
	now := e.now()
	rating := &Rating{
		Deal:               id,
		User:               rater,
		Value:              value,
		Comment:            comment,
		CreatedAt:          now,
		IsVerifiedPurchase: deal.TimesSold > 0,
	}
	if err := e.storeRating(rating); err != nil {
		return nil, err
	}
	if err := common.Increment(&deal.TotalRatings); err != nil {
		return nil, err
	}
	if deal.TotalRatingValue, err = common.AddUint64(deal.TotalRatingValue, uint64(value)); err != nil {
		return nil, err
	}
	if err := e.storeDeal(deal); err != nil {
		return nil, err
	}
	if err := e.award(rater, reputation.ActivityRateDeal, 0, func(p *reputation.Profile) error {
		return common.Increment(&p.TotalRatingsGiven)
	}); err != nil {
		return nil, err
	}
	e.emit(NewDealRatedEvent(rating))
	return rating, nil
}

// award records the activity on user's profile and mints reward MONK when
// reward is non-zero.
func (e *Engine) award(user [20]byte, activity reputation.ActivityType, reward uint64, mutate func(*reputation.Profile) error) error {
	if e.reputation == nil {
		return errors.New("deals engine: reputation not configured")
	}
	_, err := e.reputation.Record(user, activity, func(p *reputation.Profile) error {
		if mutate != nil {
			if err := mutate(p); err != nil {
				return err
			}
		}
		if reward == 0 {
			return nil
		}
		total, err := common.AddUint64(p.TotalRewardsEarned, reward)
		if err != nil {
			return err
		}
		p.TotalRewardsEarned = total
		return nil
	})
	if err != nil {
		return err
	}
	if reward == 0 {
		return nil
	}
	if e.ledger == nil {
		return errors.New("deals engine: ledger not configured")
	}
	return e.ledger.Mint(e.mint, user, reward)
}
