package staking

import (
	"github.com/holiman/uint256"

	coreerrors "monkeydao/core/errors"
	"monkeydao/native/reputation"
)

// SecondsPerDay is the accrual granularity. Partial days earn nothing.
const SecondsPerDay int64 = 86_400

// Stake marks an item as locked for reward accrual.
type Stake struct {
	Item                [20]byte
	Owner               [20]byte
	StakedAt            int64
	LastClaimAt         int64
	TotalRewardsClaimed uint64
	IsActive            bool
}

// Params configures reward accrual.
type Params struct {
	RewardPerDay uint64
}

// DefaultParams returns 10 MONK per staked item per day.
func DefaultParams() Params {
	return Params{RewardPerDay: 10_000_000}
}

// WholeDays returns the number of complete days between the last claim and
// now.
func (s *Stake) WholeDays(now int64) uint64 {
	if s == nil || now <= s.LastClaimAt {
		return 0
	}
	return uint64((now - s.LastClaimAt) / SecondsPerDay)
}

// ComputeReward returns floor(days) x perDay x multiplier / 100. Claims and
// previews both go through it so they can never disagree.
func ComputeReward(days, perDay uint64, level reputation.BadgeLevel) (uint64, error) {
	if days == 0 || perDay == 0 {
		return 0, nil
	}
	multiplier := level.Multiplier()
	if multiplier == 0 {
		multiplier = 100
	}
	acc := uint256.NewInt(days)
	if _, overflow := acc.MulOverflow(acc, uint256.NewInt(perDay)); overflow {
		return 0, coreerrors.ErrArithmeticOverflow
	}
	if _, overflow := acc.MulOverflow(acc, uint256.NewInt(multiplier)); overflow {
		return 0, coreerrors.ErrArithmeticOverflow
	}
	acc.Div(acc, uint256.NewInt(100))
	if !acc.IsUint64() {
		return 0, coreerrors.ErrArithmeticOverflow
	}
	return acc.Uint64(), nil
}
