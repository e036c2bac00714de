package reputation

import (
	"fmt"

	"monkeydao/crypto"
)

// stateStore abstracts the subset of state manager functionality required by the
// reputation engine.
type stateStore interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var (
	profilePrefix = []byte("reputation/profile/")
	badgePrefix   = []byte("reputation/badge/")
)

// ProfileAddress returns the deterministic address of owner's profile.
func ProfileAddress(owner [20]byte) [20]byte {
	return crypto.Derive([]byte(crypto.SeedUserProfile), owner[:])
}

// BadgeAddress returns the deterministic address of the badge minted for
// owner at level.
func BadgeAddress(owner [20]byte, level BadgeLevel) [20]byte {
	return crypto.Derive([]byte(crypto.SeedBadge), owner[:], []byte{byte(level)})
}

func profileKey(owner [20]byte) []byte {
	addr := ProfileAddress(owner)
	return []byte(fmt.Sprintf("%s%x", profilePrefix, addr))
}

func badgeKey(owner [20]byte, level BadgeLevel) []byte {
	addr := BadgeAddress(owner, level)
	return []byte(fmt.Sprintf("%s%x", badgePrefix, addr))
}

type storedProfile struct {
	Owner               [20]byte
	TotalDealsListed    uint64
	TotalDealsPurchased uint64
	TotalDealsRedeemed  uint64
	TotalPoolsJoined    uint64
	TotalNFTsStaked     uint64
	TotalRatingsGiven   uint64
	TotalRewardsEarned  uint64
	ReputationPoints    uint64
	CurrentBadgeLevel   uint8
	CreatedAt           uint64
	LastActivityAt      uint64
}

func newStoredProfile(p *Profile) storedProfile {
	return storedProfile{
		Owner:               p.Owner,
		TotalDealsListed:    p.TotalDealsListed,
		TotalDealsPurchased: p.TotalDealsPurchased,
		TotalDealsRedeemed:  p.TotalDealsRedeemed,
		TotalPoolsJoined:    p.TotalPoolsJoined,
		TotalNFTsStaked:     p.TotalNFTsStaked,
		TotalRatingsGiven:   p.TotalRatingsGiven,
		TotalRewardsEarned:  p.TotalRewardsEarned,
		ReputationPoints:    p.ReputationPoints,
		CurrentBadgeLevel:   uint8(p.CurrentBadgeLevel),
		CreatedAt:           toUnsigned(p.CreatedAt),
		LastActivityAt:      toUnsigned(p.LastActivityAt),
	}
}

func (s storedProfile) profile() *Profile {
	return &Profile{
		Owner:               s.Owner,
		TotalDealsListed:    s.TotalDealsListed,
		TotalDealsPurchased: s.TotalDealsPurchased,
		TotalDealsRedeemed:  s.TotalDealsRedeemed,
		TotalPoolsJoined:    s.TotalPoolsJoined,
		TotalNFTsStaked:     s.TotalNFTsStaked,
		TotalRatingsGiven:   s.TotalRatingsGiven,
		TotalRewardsEarned:  s.TotalRewardsEarned,
		ReputationPoints:    s.ReputationPoints,
		CurrentBadgeLevel:   BadgeLevel(s.CurrentBadgeLevel),
		CreatedAt:           int64(s.CreatedAt),
		LastActivityAt:      int64(s.LastActivityAt),
	}
}

type storedBadge struct {
	Owner            [20]byte
	Level            uint8
	Mint             [20]byte
	MintedAt         uint64
	ReputationAtMint uint64
}

func toUnsigned(ts int64) uint64 {
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func loadProfile(store stateStore, owner [20]byte) (*Profile, bool, error) {
	var stored storedProfile
	ok, err := store.KVGet(profileKey(owner), &stored)
	if err != nil {
		return nil, false, fmt.Errorf("reputation: load profile: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return stored.profile(), true, nil
}

func storeProfile(store stateStore, p *Profile) error {
	return store.KVPut(profileKey(p.Owner), newStoredProfile(p))
}

func loadBadge(store stateStore, owner [20]byte, level BadgeLevel) (*Badge, bool, error) {
	var stored storedBadge
	ok, err := store.KVGet(badgeKey(owner, level), &stored)
	if err != nil {
		return nil, false, fmt.Errorf("reputation: load badge: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Badge{
		Owner:            stored.Owner,
		Level:            BadgeLevel(stored.Level),
		Mint:             stored.Mint,
		MintedAt:         int64(stored.MintedAt),
		ReputationAtMint: stored.ReputationAtMint,
	}, true, nil
}

func storeBadge(store stateStore, b *Badge) error {
	return store.KVPut(badgeKey(b.Owner, b.Level), storedBadge{
		Owner:            b.Owner,
		Level:            uint8(b.Level),
		Mint:             b.Mint,
		MintedAt:         toUnsigned(b.MintedAt),
		ReputationAtMint: b.ReputationAtMint,
	})
}
