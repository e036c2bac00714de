package deals

import (
	"strconv"

	"monkeydao/core/types"
	"monkeydao/crypto"
)

const (
	EventTypeDealListed         = "deals.listed"
	EventTypeDealRelisted       = "deals.relisted"
	EventTypeDealPurchased      = "deals.purchased"
	EventTypeDealRedeemed       = "deals.redeemed"
	EventTypeDealRated          = "deals.rated"
	EventTypeMerchantRegistered = "deals.merchantRegistered"
	EventTypeMerchantVerified   = "deals.merchantVerified"
)

func addr(a [20]byte) string { return crypto.FromArray(a).String() }

func NewDealListedEvent(d *Deal, at int64) *types.Event {
	return &types.Event{
		Type: EventTypeDealListed,
		Attributes: map[string]string{
			"deal":          addr(d.ID),
			"mint":          addr(d.Mint),
			"owner":         addr(d.Owner),
			"merchant":      addr(d.Merchant),
			"price":         strconv.FormatUint(d.Price, 10),
			"isGroupDeal":   strconv.FormatBool(d.IsGroupDeal),
			"isCryptoBased": strconv.FormatBool(d.IsCryptoBased),
			"timestamp":     strconv.FormatInt(at, 10),
		},
	}
}

func NewDealRelistedEvent(d *Deal, oldPrice uint64, at int64) *types.Event {
	return &types.Event{
		Type: EventTypeDealRelisted,
		Attributes: map[string]string{
			"deal":      addr(d.ID),
			"owner":     addr(d.Owner),
			"oldPrice":  strconv.FormatUint(oldPrice, 10),
			"newPrice":  strconv.FormatUint(d.Price, 10),
			"timestamp": strconv.FormatInt(at, 10),
		},
	}
}

func NewDealPurchasedEvent(d *Deal, seller [20]byte, price uint64, at int64) *types.Event {
	return &types.Event{
		Type: EventTypeDealPurchased,
		Attributes: map[string]string{
			"deal":      addr(d.ID),
			"buyer":     addr(d.Owner),
			"seller":    addr(seller),
			"price":     strconv.FormatUint(price, 10),
			"timestamp": strconv.FormatInt(at, 10),
		},
	}
}

func NewDealRedeemedEvent(d *Deal, reward uint64, at int64) *types.Event {
	return &types.Event{
		Type: EventTypeDealRedeemed,
		Attributes: map[string]string{
			"deal":      addr(d.ID),
			"owner":     addr(d.Owner),
			"merchant":  addr(d.Merchant),
			"reward":    strconv.FormatUint(reward, 10),
			"timestamp": strconv.FormatInt(at, 10),
		},
	}
}

func NewDealRatedEvent(r *Rating) *types.Event {
	return &types.Event{
		Type: EventTypeDealRated,
		Attributes: map[string]string{
			"deal":             addr(r.Deal),
			"user":             addr(r.User),
			"rating":           strconv.Itoa(int(r.Value)),
			"verifiedPurchase": strconv.FormatBool(r.IsVerifiedPurchase),
			"timestamp":        strconv.FormatInt(r.CreatedAt, 10),
		},
	}
}

func NewMerchantRegisteredEvent(m *Merchant) *types.Event {
	return &types.Event{
		Type: EventTypeMerchantRegistered,
		Attributes: map[string]string{
			"merchant":  addr(m.Authority),
			"name":      m.Name,
			"timestamp": strconv.FormatInt(m.RegisteredAt, 10),
		},
	}
}

func NewMerchantVerifiedEvent(m *Merchant) *types.Event {
	return &types.Event{
		Type: EventTypeMerchantVerified,
		Attributes: map[string]string{
			"merchant":  addr(m.Authority),
			"timestamp": strconv.FormatInt(m.LastActivityAt, 10),
		},
	}
}
