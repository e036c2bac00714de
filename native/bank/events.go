package bank

import (
	"strconv"

	"monkeydao/core/types"
	"monkeydao/crypto"
)

const (
	EventTypeTransfer = "bank.transfer"
	EventTypeMint     = "bank.mint"
)

// NewTransferEvent describes a base currency movement.
func NewTransferEvent(from, to [20]byte, asset string, amount uint64) *types.Event {
	return &types.Event{
		Type: EventTypeTransfer,
		Attributes: map[string]string{
			"from":   crypto.FromArray(from).String(),
			"to":     crypto.FromArray(to).String(),
			"asset":  asset,
			"amount": strconv.FormatUint(amount, 10),
		},
	}
}

// NewMintEvent describes newly issued reward tokens.
func NewMintEvent(to [20]byte, amount uint64) *types.Event {
	return &types.Event{
		Type: EventTypeMint,
		Attributes: map[string]string{
			"to":     crypto.FromArray(to).String(),
			"asset":  AssetMONK,
			"amount": strconv.FormatUint(amount, 10),
		},
	}
}
