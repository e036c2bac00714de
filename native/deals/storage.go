package deals

import (
	"encoding/binary"
	"fmt"

	"monkeydao/crypto"
)

type stateStore interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var (
	dealPrefix     = []byte("deals/deal/")
	merchantPrefix = []byte("deals/merchant/")
	ratingPrefix   = []byte("deals/rating/")
	dealSeqKey     = []byte("deals/sequence")
)

// MintAddress returns the item identifier of the n-th listing.
func MintAddress(seq uint64) [20]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return crypto.Derive([]byte("deal_mint"), buf[:])
}

// DealAddress returns the deterministic address of the deal for an item.
func DealAddress(mint [20]byte) [20]byte {
	return crypto.Derive([]byte(crypto.SeedDeal), mint[:])
}

// MerchantAddress returns the deterministic address of a merchant record.
func MerchantAddress(authority [20]byte) [20]byte {
	return crypto.Derive([]byte(crypto.SeedMerchant), authority[:])
}

// RatingAddress returns the deterministic address of user's rating of deal.
func RatingAddress(deal, user [20]byte) [20]byte {
	return crypto.Derive([]byte(crypto.SeedRating), deal[:], user[:])
}

func dealKey(id [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", dealPrefix, id))
}

func merchantKey(authority [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", merchantPrefix, MerchantAddress(authority)))
}

func ratingKey(deal, user [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", ratingPrefix, RatingAddress(deal, user)))
}

type storedDeal struct {
	ID                 [20]byte
	Mint               [20]byte
	Owner              [20]byte
	Merchant           [20]byte
	Price              uint64
	Location           string
	IsUsed             bool
	IsRedeemed         bool
	IsGroupDeal        bool
	HasGroupPrices     bool
	GroupPrices        GroupPrices
	IsCryptoBased      bool
	EventName          string
	EventDescription   string
	DiscountPercentage uint8
	ExpiresAt          uint64
	MerchantID         string
	CreatedAt          uint64
	TotalRatings       uint64
	TotalRatingValue   uint64
	TimesSold          uint64
	CurrentSupply      uint64
	MaxSupply          uint64
	Custodian          [20]byte
}

func newStoredDeal(d *Deal) storedDeal {
	stored := storedDeal{
		ID:                 d.ID,
		Mint:               d.Mint,
		Owner:              d.Owner,
		Merchant:           d.Merchant,
		Price:              d.Price,
		Location:           d.Location,
		IsUsed:             d.IsUsed,
		IsRedeemed:         d.IsRedeemed,
		IsGroupDeal:        d.IsGroupDeal,
		IsCryptoBased:      d.IsCryptoBased,
		EventName:          d.EventName,
		EventDescription:   d.EventDescription,
		DiscountPercentage: d.DiscountPercentage,
		ExpiresAt:          toUnsigned(d.ExpiresAt),
		MerchantID:         d.MerchantID,
		CreatedAt:          toUnsigned(d.CreatedAt),
		TotalRatings:       d.TotalRatings,
		TotalRatingValue:   d.TotalRatingValue,
		TimesSold:          d.TimesSold,
		CurrentSupply:      d.CurrentSupply,
		MaxSupply:          d.MaxSupply,
		Custodian:          d.Custodian,
	}
	if d.GroupPrices != nil {
		stored.HasGroupPrices = true
		stored.GroupPrices = *d.GroupPrices
	}
	return stored
}

func (s storedDeal) deal() *Deal {
	d := &Deal{
		ID:                 s.ID,
		Mint:               s.Mint,
		Owner:              s.Owner,
		Merchant:           s.Merchant,
		Price:              s.Price,
		Location:           s.Location,
		IsUsed:             s.IsUsed,
		IsRedeemed:         s.IsRedeemed,
		IsGroupDeal:        s.IsGroupDeal,
		IsCryptoBased:      s.IsCryptoBased,
		EventName:          s.EventName,
		EventDescription:   s.EventDescription,
		DiscountPercentage: s.DiscountPercentage,
		ExpiresAt:          int64(s.ExpiresAt),
		MerchantID:         s.MerchantID,
		CreatedAt:          int64(s.CreatedAt),
		TotalRatings:       s.TotalRatings,
		TotalRatingValue:   s.TotalRatingValue,
		TimesSold:          s.TimesSold,
		CurrentSupply:      s.CurrentSupply,
		MaxSupply:          s.MaxSupply,
		Custodian:          s.Custodian,
	}
	if s.HasGroupPrices {
		prices := s.GroupPrices
		d.GroupPrices = &prices
	}
	return d
}

type storedMerchant struct {
	Authority          [20]byte
	Name               string
	TotalDealsListed   uint64
	TotalDealsSold     uint64
	TotalDealsRedeemed uint64
	TotalRevenue       uint64
	IsVerified         bool
	RegisteredAt       uint64
	LastActivityAt     uint64
}

type storedRating struct {
	Deal               [20]byte
	User               [20]byte
	Value              uint8
	Comment            string
	CreatedAt          uint64
	IsVerifiedPurchase bool
}

func toUnsigned(ts int64) uint64 {
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) loadDeal(id [20]byte) (*Deal, error) {
	var stored storedDeal
	ok, err := e.state.KVGet(dealKey(id), &stored)
	if err != nil {
		return nil, fmt.Errorf("deals: load deal: %w", err)
	}
	if !ok {
		return nil, ErrDealNotFound
	}
	return stored.deal(), nil
}

func (e *Engine) storeDeal(d *Deal) error {
	return e.state.KVPut(dealKey(d.ID), newStoredDeal(d))
}

func (e *Engine) loadMerchant(authority [20]byte) (*Merchant, bool, error) {
	var stored storedMerchant
	ok, err := e.state.KVGet(merchantKey(authority), &stored)
	if err != nil {
		return nil, false, fmt.Errorf("deals: load merchant: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Merchant{
		Authority:          stored.Authority,
		Name:               stored.Name,
		TotalDealsListed:   stored.TotalDealsListed,
		TotalDealsSold:     stored.TotalDealsSold,
		TotalDealsRedeemed: stored.TotalDealsRedeemed,
		TotalRevenue:       stored.TotalRevenue,
		IsVerified:         stored.IsVerified,
		RegisteredAt:       int64(stored.RegisteredAt),
		LastActivityAt:     int64(stored.LastActivityAt),
	}, true, nil
}

func (e *Engine) storeMerchant(m *Merchant) error {
	return e.state.KVPut(merchantKey(m.Authority), storedMerchant{
		Authority:          m.Authority,
		Name:               m.Name,
		TotalDealsListed:   m.TotalDealsListed,
		TotalDealsSold:     m.TotalDealsSold,
		TotalDealsRedeemed: m.TotalDealsRedeemed,
		TotalRevenue:       m.TotalRevenue,
		IsVerified:         m.IsVerified,
		RegisteredAt:       toUnsigned(m.RegisteredAt),
		LastActivityAt:     toUnsigned(m.LastActivityAt),
	})
}

func (e *Engine) loadRating(deal, user [20]byte) (*Rating, bool, error) {
	var stored storedRating
	ok, err := e.state.KVGet(ratingKey(deal, user), &stored)
	if err != nil {
		return nil, false, fmt.Errorf("deals: load rating: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Rating{
		Deal:               stored.Deal,
		User:               stored.User,
		Value:              stored.Value,
		Comment:            stored.Comment,
		CreatedAt:          int64(stored.CreatedAt),
		IsVerifiedPurchase: stored.IsVerifiedPurchase,
	}, true, nil
}

func (e *Engine) storeRating(r *Rating) error {
	return e.state.KVPut(ratingKey(r.Deal, r.User), storedRating{
		Deal:               r.Deal,
		User:               r.User,
		Value:              r.Value,
		Comment:            r.Comment,
		CreatedAt:          toUnsigned(r.CreatedAt),
		IsVerifiedPurchase: r.IsVerifiedPurchase,
	})
}

func (e *Engine) nextSequence() (uint64, error) {
	var seq uint64
	if _, err := e.state.KVGet(dealSeqKey, &seq); err != nil {
		return 0, fmt.Errorf("deals: load sequence: %w", err)
	}
	seq++
	if err := e.state.KVPut(dealSeqKey, seq); err != nil {
		return 0, err
	}
	return seq, nil
}
