package staking

import (
	"strconv"

	"monkeydao/core/types"
	"monkeydao/crypto"
)

const (
	EventTypeStaked   = "staking.staked"
	EventTypeClaimed  = "staking.claimed"
	EventTypeUnstaked = "staking.unstaked"
)

func addr(a [20]byte) string { return crypto.FromArray(a).String() }

// NewStakedEvent returns the canonical payload for a new stake.
func NewStakedEvent(s *Stake, vault [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeStaked,
		Attributes: map[string]string{
			"item":     addr(s.Item),
			"owner":    addr(s.Owner),
			"vault":    addr(vault),
			"stakedAt": strconv.FormatInt(s.StakedAt, 10),
		},
	}
}

// NewClaimedEvent returns the canonical payload for a reward claim.
func NewClaimedEvent(s *Stake, reward, days uint64) *types.Event {
	return &types.Event{
		Type: EventTypeClaimed,
		Attributes: map[string]string{
			"item":         addr(s.Item),
			"owner":        addr(s.Owner),
			"reward":       strconv.FormatUint(reward, 10),
			"days":         strconv.FormatUint(days, 10),
			"totalClaimed": strconv.FormatUint(s.TotalRewardsClaimed, 10),
			"timestamp":    strconv.FormatInt(s.LastClaimAt, 10),
		},
	}
}

// NewUnstakedEvent returns the canonical payload for a closed stake.
func NewUnstakedEvent(s *Stake, settled uint64, at int64) *types.Event {
	return &types.Event{
		Type: EventTypeUnstaked,
		Attributes: map[string]string{
			"item":         addr(s.Item),
			"owner":        addr(s.Owner),
			"settled":      strconv.FormatUint(settled, 10),
			"totalClaimed": strconv.FormatUint(s.TotalRewardsClaimed, 10),
			"timestamp":    strconv.FormatInt(at, 10),
		},
	}
}
