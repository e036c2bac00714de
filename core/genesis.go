package core

import (
	"context"
	"fmt"

	"monkeydao/config"
	"monkeydao/core/state"
)

var genesisMarkerKey = []byte("node/genesis")

type genesisMarker struct {
	AppliedAt   uint64
	Allocations uint64
	Merchants   uint64
}

// ApplyGenesis seeds balances and merchants on an empty ledger. Applying a
// second genesis is an error; the first one stays in place.
func (n *Node) ApplyGenesis(ctx context.Context, genesis *config.Genesis) error {
	if genesis == nil {
		return fmt.Errorf("genesis: nil")
	}
	allocations, err := genesis.Allocations()
	if err != nil {
		return err
	}
	return n.apply(ctx, "node.genesis", "", func(s *session) error {
		if applied, err := s.state.KVGet(genesisMarkerKey, nil); err != nil {
			return err
		} else if applied {
			return fmt.Errorf("genesis: already applied")
		}
		for _, alloc := range allocations {
			if err := s.ledger.Credit(alloc.Account, alloc.Amount); err != nil {
				return fmt.Errorf("genesis: credit: %w", err)
			}
		}
		for i, m := range genesis.Merchants {
			authority, err := config.ParseAddress(m.Authority)
			if err != nil {
				return fmt.Errorf("genesis: merchants[%d]: %w", i, err)
			}
			if _, err := s.deals.RegisterMerchant(authority, m.Name); err != nil {
				return fmt.Errorf("genesis: merchants[%d]: %w", i, err)
			}
			if !m.Verified {
				continue
			}
			if _, err := s.deals.VerifyMerchant(n.deals.Admin, authority); err != nil {
				return fmt.Errorf("genesis: merchants[%d]: verify: %w", i, err)
			}
		}
		if err := s.state.SetStateVersion(state.StateVersion); err != nil {
			return err
		}
		var at uint64
		if s.now > 0 {
			at = uint64(s.now)
		}
		return s.state.KVPut(genesisMarkerKey, genesisMarker{
			AppliedAt:   at,
			Allocations: uint64(len(allocations)),
			Merchants:   uint64(len(genesis.Merchants)),
		})
	})
}

// GenesisApplied reports whether the ledger has been seeded.
func (n *Node) GenesisApplied() (bool, error) {
	var applied bool
	err := n.view(func(s *session) error {
		var err error
		applied, err = s.state.KVGet(genesisMarkerKey, nil)
		return err
	})
	return applied, err
}

// CheckStateVersion fails when the data directory was written with an
// incompatible record layout.
func (n *Node) CheckStateVersion() error {
	return n.view(func(s *session) error {
		return state.EnsureStateVersion(s.state)
	})
}
