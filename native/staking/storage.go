package staking

import (
	"fmt"

	"monkeydao/crypto"
)

type stateStore interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVRemove(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

var (
	stakePrefix = []byte("staking/stake/")
	ownerPrefix = []byte("staking/owner/")
)

// Address returns the deterministic address of the stake record for item.
func Address(item [20]byte) [20]byte {
	return crypto.Derive([]byte(crypto.SeedStake), item[:])
}

func stakeKey(item [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", stakePrefix, Address(item)))
}

func ownerKey(owner [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", ownerPrefix, owner))
}

type storedStake struct {
	Item                [20]byte
	Owner               [20]byte
	StakedAt            uint64
	LastClaimAt         uint64
	TotalRewardsClaimed uint64
	IsActive            bool
}

func toUnsigned(ts int64) uint64 {
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) loadStake(item [20]byte) (*Stake, error) {
	var stored storedStake
	ok, err := e.state.KVGet(stakeKey(item), &stored)
	if err != nil {
		return nil, fmt.Errorf("staking: load: %w", err)
	}
	if !ok {
		return nil, ErrStakeNotFound
	}
	return &Stake{
		Item:                stored.Item,
		Owner:               stored.Owner,
		StakedAt:            int64(stored.StakedAt),
		LastClaimAt:         int64(stored.LastClaimAt),
		TotalRewardsClaimed: stored.TotalRewardsClaimed,
		IsActive:            stored.IsActive,
	}, nil
}

func (e *Engine) storeStake(s *Stake) error {
	return e.state.KVPut(stakeKey(s.Item), storedStake{
		Item:                s.Item,
		Owner:               s.Owner,
		StakedAt:            toUnsigned(s.StakedAt),
		LastClaimAt:         toUnsigned(s.LastClaimAt),
		TotalRewardsClaimed: s.TotalRewardsClaimed,
		IsActive:            s.IsActive,
	})
}

func (e *Engine) ownedItems(owner [20]byte) ([][20]byte, error) {
	var raw [][]byte
	if err := e.state.KVGetList(ownerKey(owner), &raw); err != nil {
		return nil, fmt.Errorf("staking: load owner index: %w", err)
	}
	items := make([][20]byte, 0, len(raw))
	for _, entry := range raw {
		if len(entry) != 20 {
			continue
		}
		var item [20]byte
		copy(item[:], entry)
		items = append(items, item)
	}
	return items, nil
}
