package escrow

import (
	"strconv"

	"monkeydao/core/types"
	"monkeydao/crypto"
)

const (
	EventTypeEscrowDeposited = "escrow.deposited"
	EventTypeEscrowReleased  = "escrow.released"
	EventTypeEscrowRefunded  = "escrow.refunded"
	EventTypeEscrowSwept     = "escrow.swept"
)

// NewDepositedEvent returns the canonical payload for a contribution.
func NewDepositedEvent(pool, from [20]byte, amount uint64) *types.Event {
	return newEscrowEvent(EventTypeEscrowDeposited, pool, "from", from, amount)
}

// NewReleasedEvent returns the canonical payload for a release to a seller.
func NewReleasedEvent(pool, to [20]byte, amount uint64) *types.Event {
	return newEscrowEvent(EventTypeEscrowReleased, pool, "to", to, amount)
}

// NewRefundedEvent returns the canonical payload for a participant refund.
func NewRefundedEvent(pool, to [20]byte, amount uint64) *types.Event {
	return newEscrowEvent(EventTypeEscrowRefunded, pool, "to", to, amount)
}

// NewSweptEvent returns the canonical payload for leftover value swept out of
// escrow once every contribution has been settled.
func NewSweptEvent(pool, to [20]byte, amount uint64) *types.Event {
	return newEscrowEvent(EventTypeEscrowSwept, pool, "to", to, amount)
}

func newEscrowEvent(eventType string, pool [20]byte, party string, counterparty [20]byte, amount uint64) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"pool":   crypto.FromArray(pool).String(),
			"escrow": crypto.FromArray(Address(pool)).String(),
			party:    crypto.FromArray(counterparty).String(),
			"amount": strconv.FormatUint(amount, 10),
		},
	}
}
