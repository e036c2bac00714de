package reputation

import (
	"fmt"

	coreerrors "monkeydao/core/errors"
)

// ActivityType enumerates the platform activities that earn reputation.
type ActivityType uint8

const (
	ActivityListDeal ActivityType = iota + 1
	ActivityBuyDeal
	ActivityRedeemDeal
	ActivityJoinPool
	ActivityStakeNFT
	ActivityRateDeal
)

var ErrInvalidActivityType = coreerrors.New(coreerrors.KindValidation, "InvalidActivityType", "reputation: invalid activity type")

// ParseActivity converts a wire-level code into an ActivityType, rejecting
// unknown codes.
func ParseActivity(code uint8) (ActivityType, error) {
	activity := ActivityType(code)
	if !activity.Valid() {
		return 0, ErrInvalidActivityType.Wrapf("code %d", code)
	}
	return activity, nil
}

// Valid reports whether the activity is a known kind.
func (a ActivityType) Valid() bool {
	return a >= ActivityListDeal && a <= ActivityRateDeal
}

// Points returns the fixed award for the activity.
func (a ActivityType) Points() uint64 {
	switch a {
	case ActivityListDeal:
		return 10
	case ActivityBuyDeal:
		return 5
	case ActivityRedeemDeal:
		return 15
	case ActivityJoinPool:
		return 8
	case ActivityStakeNFT:
		return 12
	case ActivityRateDeal:
		return 3
	default:
		return 0
	}
}

func (a ActivityType) String() string {
	switch a {
	case ActivityListDeal:
		return "list_deal"
	case ActivityBuyDeal:
		return "buy_deal"
	case ActivityRedeemDeal:
		return "redeem_deal"
	case ActivityJoinPool:
		return "join_pool"
	case ActivityStakeNFT:
		return "stake_nft"
	case ActivityRateDeal:
		return "rate_deal"
	default:
		return fmt.Sprintf("activity(%d)", uint8(a))
	}
}

// BadgeLevel is a rank on the reputation ladder. Zero means no badge.
type BadgeLevel uint8

const (
	BadgeNone BadgeLevel = iota
	BadgeBronze
	BadgeSilver
	BadgeGold
	BadgePlatinum
	BadgeDiamond
)

// Point thresholds unlocking each badge level.
const (
	ThresholdBronze   uint64 = 50
	ThresholdSilver   uint64 = 200
	ThresholdGold     uint64 = 500
	ThresholdPlatinum uint64 = 1000
	ThresholdDiamond  uint64 = 2500
)

var ladder = []struct {
	level     BadgeLevel
	threshold uint64
}{
	{BadgeDiamond, ThresholdDiamond},
	{BadgePlatinum, ThresholdPlatinum},
	{BadgeGold, ThresholdGold},
	{BadgeSilver, ThresholdSilver},
	{BadgeBronze, ThresholdBronze},
}

// EligibleTier returns the highest badge level whose threshold points meets.
func EligibleTier(points uint64) BadgeLevel {
	for _, rung := range ladder {
		if points >= rung.threshold {
			return rung.level
		}
	}
	return BadgeNone
}

// Valid reports whether level names a mintable badge.
func (l BadgeLevel) Valid() bool {
	return l >= BadgeBronze && l <= BadgeDiamond
}

// Multiplier returns the staking reward multiplier in percent.
func (l BadgeLevel) Multiplier() uint64 {
	switch l {
	case BadgeBronze:
		return 110
	case BadgeSilver:
		return 125
	case BadgeGold:
		return 150
	case BadgePlatinum:
		return 200
	case BadgeDiamond:
		return 300
	default:
		return 100
	}
}

func (l BadgeLevel) String() string {
	switch l {
	case BadgeNone:
		return "None"
	case BadgeBronze:
		return "Bronze"
	case BadgeSilver:
		return "Silver"
	case BadgeGold:
		return "Gold"
	case BadgePlatinum:
		return "Platinum"
	case BadgeDiamond:
		return "Diamond"
	default:
		return "Unknown"
	}
}

// Name returns the display name of a minted badge.
func (l BadgeLevel) Name() string {
	if !l.Valid() {
		return "Unknown Badge"
	}
	return l.String() + " Member"
}

// Profile is the per-user activity and reputation record.
type Profile struct {
	Owner               [20]byte
	TotalDealsListed    uint64
	TotalDealsPurchased uint64
	TotalDealsRedeemed  uint64
	TotalPoolsJoined    uint64
	TotalNFTsStaked     uint64
	TotalRatingsGiven   uint64
	TotalRewardsEarned  uint64
	ReputationPoints    uint64
	CurrentBadgeLevel   BadgeLevel
	CreatedAt           int64
	LastActivityAt      int64
}

// EligibleTier returns the highest tier the profile's points unlock.
func (p *Profile) EligibleTier() BadgeLevel {
	if p == nil {
		return BadgeNone
	}
	return EligibleTier(p.ReputationPoints)
}

// CanMint reports whether a badge at level may be minted for the profile.
func (p *Profile) CanMint(level BadgeLevel) bool {
	if p == nil {
		return false
	}
	return p.EligibleTier() >= level && p.CurrentBadgeLevel < level
}

// Badge records a minted reputation badge.
type Badge struct {
	Owner            [20]byte
	Level            BadgeLevel
	Mint             [20]byte
	MintedAt         int64
	ReputationAtMint uint64
}
