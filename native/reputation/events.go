package reputation

import (
	"strconv"

	"monkeydao/core/types"
	"monkeydao/crypto"
)

const (
	// EventTypeReputationUpdated is emitted whenever an activity awards points.
	EventTypeReputationUpdated = "reputation.updated"
	// EventTypeBadgeMinted is emitted when a badge is issued.
	EventTypeBadgeMinted = "reputation.badgeMinted"
)

// NewReputationUpdatedEvent returns the canonical event payload for a point
// award.
func NewReputationUpdatedEvent(p *Profile, activity ActivityType, points uint64, at int64) *types.Event {
	attrs := make(map[string]string)
	if p == nil {
		return &types.Event{Type: EventTypeReputationUpdated, Attributes: attrs}
	}
	attrs["user"] = crypto.FromArray(p.Owner).String()
	attrs["activity"] = activity.String()
	attrs["pointsEarned"] = strconv.FormatUint(points, 10)
	attrs["totalReputation"] = strconv.FormatUint(p.ReputationPoints, 10)
	attrs["eligibleBadgeLevel"] = strconv.Itoa(int(p.EligibleTier()))
	attrs["timestamp"] = strconv.FormatInt(at, 10)
	return &types.Event{Type: EventTypeReputationUpdated, Attributes: attrs}
}

// NewBadgeMintedEvent returns the canonical event payload for a badge mint.
func NewBadgeMintedEvent(b *Badge) *types.Event {
	attrs := make(map[string]string)
	if b == nil {
		return &types.Event{Type: EventTypeBadgeMinted, Attributes: attrs}
	}
	attrs["user"] = crypto.FromArray(b.Owner).String()
	attrs["badgeLevel"] = strconv.Itoa(int(b.Level))
	attrs["badgeName"] = b.Level.Name()
	attrs["badgeMint"] = crypto.FromArray(b.Mint).String()
	attrs["reputationAtMint"] = strconv.FormatUint(b.ReputationAtMint, 10)
	attrs["timestamp"] = strconv.FormatInt(b.MintedAt, 10)
	return &types.Event{Type: EventTypeBadgeMinted, Attributes: attrs}
}
