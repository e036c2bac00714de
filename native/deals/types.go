package deals

// Maximum field lengths. They bound record size and are part of the public
// contract.
const (
	MaxLocationLength     = 100
	MaxEventNameLength    = 50
	MaxEventDescLength    = 200
	MaxMerchantIDLength   = 50
	MaxCommentLength      = 500
	MaxMerchantNameLength = 100

	MinDiscountPercentage = 1
	MaxDiscountPercentage = 99

	MinRating = 1
	MaxRating = 5
)

// GroupPrices quotes the total price of a deal for each supported pool size.
type GroupPrices struct {
	PriceFor2 uint64
	PriceFor4 uint64
	PriceFor8 uint64
}

// Deal is a redeemable offer. Custodian is non-zero while the item is locked
// by a program authority (for example while staked).
type Deal struct {
	ID                 [20]byte
	Mint               [20]byte
	Owner              [20]byte
	Merchant           [20]byte
	Price              uint64
	Location           string
	IsUsed             bool
	IsRedeemed         bool
	IsGroupDeal        bool
	GroupPrices        *GroupPrices
	IsCryptoBased      bool
	EventName          string
	EventDescription   string
	DiscountPercentage uint8
	ExpiresAt          int64
	MerchantID         string
	CreatedAt          int64
	TotalRatings       uint64
	TotalRatingValue   uint64
	TimesSold          uint64
	CurrentSupply      uint64
	MaxSupply          uint64
	Custodian          [20]byte
}

// IsExpired reports whether the deal has expired at now.
func (d *Deal) IsExpired(now int64) bool {
	return now > d.ExpiresAt
}

// Locked reports whether the item is held in program custody.
func (d *Deal) Locked() bool {
	return d.Custodian != [20]byte{}
}

// GroupPrice returns the quoted price for the participant count.
func (d *Deal) GroupPrice(participants uint8) (uint64, bool) {
	if d == nil || d.GroupPrices == nil {
		return 0, false
	}
	switch participants {
	case 2:
		return d.GroupPrices.PriceFor2, true
	case 4:
		return d.GroupPrices.PriceFor4, true
	case 8:
		return d.GroupPrices.PriceFor8, true
	default:
		return 0, false
	}
}

// AverageRating returns the mean rating scaled by 100 to avoid floats.
func (d *Deal) AverageRating() uint64 {
	if d.TotalRatings == 0 {
		return 0
	}
	return d.TotalRatingValue * 100 / d.TotalRatings
}

// Merchant tracks a registered business and its sales counters.
type Merchant struct {
	Authority          [20]byte
	Name               string
	TotalDealsListed   uint64
	TotalDealsSold     uint64
	TotalDealsRedeemed uint64
	TotalRevenue       uint64
	IsVerified         bool
	RegisteredAt       int64
	LastActivityAt     int64
}

// SuccessRate returns redeemed/sold in percent.
func (m *Merchant) SuccessRate() uint64 {
	if m.TotalDealsSold == 0 {
		return 0
	}
	return m.TotalDealsRedeemed * 100 / m.TotalDealsSold
}

// Rating is a single review left by a user on a deal.
type Rating struct {
	Deal               [20]byte
	User               [20]byte
	Value              uint8
	Comment            string
	CreatedAt          int64
	IsVerifiedPurchase bool
}

// ListParams carries the user supplied fields of a new listing.
type ListParams struct {
	Merchant           [20]byte
	Price              uint64
	Location           string
	IsGroupDeal        bool
	GroupPrices        *GroupPrices
	IsCryptoBased      bool
	EventName          string
	EventDescription   string
	DiscountPercentage uint8
	ExpiresAt          int64
	MerchantID         string
	MaxSupply          uint64
}

// Params are the reward amounts paid by deal operations, in MONK base units.
type Params struct {
	ListingReward    uint64
	RedemptionReward uint64
	Admin            [20]byte
}

// DefaultParams mirrors the platform defaults.
func DefaultParams() Params {
	return Params{
		ListingReward:    50_000_000,
		RedemptionReward: 100_000_000,
	}
}
