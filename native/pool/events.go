package pool

import (
	"strconv"

	"monkeydao/core/types"
	"monkeydao/crypto"
)

const (
	EventTypePoolStarted   = "pool.started"
	EventTypePoolJoined    = "pool.joined"
	EventTypePoolExecuted  = "pool.executed"
	EventTypePoolCancelled = "pool.cancelled"
)

func addr(a [20]byte) string { return crypto.FromArray(a).String() }

// NewPoolStartedEvent returns the canonical payload for a new pool.
func NewPoolStartedEvent(p *Pool) *types.Event {
	return &types.Event{
		Type: EventTypePoolStarted,
		Attributes: map[string]string{
			"pool":               addr(p.Address),
			"deal":               addr(p.Deal),
			"starter":            addr(p.Starter),
			"targetAmount":       strconv.FormatUint(p.TargetAmount, 10),
			"targetParticipants": strconv.Itoa(int(p.TargetParticipants)),
			"expiresAt":          strconv.FormatInt(p.ExpiresAt, 10),
		},
	}
}

// NewPoolJoinedEvent returns the canonical payload for a contribution.
func NewPoolJoinedEvent(p *Pool, participant [20]byte, amount uint64, reached bool, at int64) *types.Event {
	return &types.Event{
		Type: EventTypePoolJoined,
		Attributes: map[string]string{
			"pool":                addr(p.Address),
			"participant":         addr(participant),
			"amount":              strconv.FormatUint(amount, 10),
			"currentAmount":       strconv.FormatUint(p.CurrentAmount, 10),
			"currentParticipants": strconv.Itoa(int(p.CurrentParticipants)),
			"targetReached":       strconv.FormatBool(reached),
			"timestamp":           strconv.FormatInt(at, 10),
		},
	}
}

// NewPoolExecutedEvent returns the canonical payload for a completed purchase.
func NewPoolExecutedEvent(p *Pool, seller [20]byte, amount uint64) *types.Event {
	return &types.Event{
		Type: EventTypePoolExecuted,
		Attributes: map[string]string{
			"pool":         addr(p.Address),
			"deal":         addr(p.Deal),
			"starter":      addr(p.Starter),
			"seller":       addr(seller),
			"amount":       strconv.FormatUint(amount, 10),
			"participants": strconv.Itoa(int(p.CurrentParticipants)),
			"timestamp":    strconv.FormatInt(p.ExecutedAt, 10),
		},
	}
}

// NewPoolCancelledEvent returns the canonical payload for a cancelled pool.
func NewPoolCancelledEvent(p *Pool, at int64) *types.Event {
	return &types.Event{
		Type: EventTypePoolCancelled,
		Attributes: map[string]string{
			"pool":         addr(p.Address),
			"starter":      addr(p.Starter),
			"refunded":     strconv.FormatUint(p.CurrentAmount, 10),
			"participants": strconv.Itoa(int(p.CurrentParticipants)),
			"timestamp":    strconv.FormatInt(at, 10),
		},
	}
}
