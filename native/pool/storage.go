package pool

import (
	"fmt"

	"monkeydao/crypto"
)

type stateStore interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

var poolPrefix = []byte("pool/record/")

// Address returns the deterministic address of starter's pool on deal.
func Address(deal, starter [20]byte) [20]byte {
	return crypto.Derive([]byte(crypto.SeedPool), deal[:], starter[:])
}

func poolKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", poolPrefix, addr))
}

type storedPool struct {
	Address             [20]byte
	Deal                [20]byte
	Starter             [20]byte
	TargetAmount        uint64
	CurrentAmount       uint64
	TargetParticipants  uint8
	CurrentParticipants uint8
	Participants        []Participant
	IsActive            bool
	IsExecuted          bool
	CreatedAt           uint64
	ExpiresAt           uint64
	ExecutedAt          uint64
}

func toUnsigned(ts int64) uint64 {
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) loadPool(addr [20]byte) (*Pool, error) {
	var stored storedPool
	ok, err := e.state.KVGet(poolKey(addr), &stored)
	if err != nil {
		return nil, fmt.Errorf("pool: load: %w", err)
	}
	if !ok {
		return nil, ErrPoolNotFound
	}
	return &Pool{
		Address:             stored.Address,
		Deal:                stored.Deal,
		Starter:             stored.Starter,
		TargetAmount:        stored.TargetAmount,
		CurrentAmount:       stored.CurrentAmount,
		TargetParticipants:  stored.TargetParticipants,
		CurrentParticipants: stored.CurrentParticipants,
		Participants:        append([]Participant(nil), stored.Participants...),
		IsActive:            stored.IsActive,
		IsExecuted:          stored.IsExecuted,
		CreatedAt:           int64(stored.CreatedAt),
		ExpiresAt:           int64(stored.ExpiresAt),
		ExecutedAt:          int64(stored.ExecutedAt),
	}, nil
}

func (e *Engine) storePool(p *Pool) error {
	return e.state.KVPut(poolKey(p.Address), storedPool{
		Address:             p.Address,
		Deal:                p.Deal,
		Starter:             p.Starter,
		TargetAmount:        p.TargetAmount,
		CurrentAmount:       p.CurrentAmount,
		TargetParticipants:  p.TargetParticipants,
		CurrentParticipants: p.CurrentParticipants,
		Participants:        p.Participants,
		IsActive:            p.IsActive,
		IsExecuted:          p.IsExecuted,
		CreatedAt:           toUnsigned(p.CreatedAt),
		ExpiresAt:           toUnsigned(p.ExpiresAt),
		ExecutedAt:          toUnsigned(p.ExecutedAt),
	})
}

func (e *Engine) poolExists(addr [20]byte) (bool, error) {
	return e.state.KVGet(poolKey(addr), nil)
}
