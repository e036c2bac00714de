package core

import (
	"monkeydao/native/deals"
	"monkeydao/native/pool"
	"monkeydao/native/reputation"
	"monkeydao/native/staking"
)

// Balances is an account's holdings in both assets.
type Balances struct {
	Base uint64
	MONK uint64
}

// PoolView is a pool together with its status at query time.
type PoolView struct {
	Pool   *pool.Pool
	Status pool.Status
}

func (n *Node) Balance(addr [20]byte) (Balances, error) {
	var out Balances
	err := n.view(func(s *session) error {
		var err error
		if out.Base, err = s.ledger.Balance(addr); err != nil {
			return err
		}
		out.MONK, err = s.ledger.RewardBalance(addr)
		return err
	})
	return out, err
}

func (n *Node) Deal(id [20]byte) (*deals.Deal, error) {
	var out *deals.Deal
	err := n.view(func(s *session) error {
		var err error
		out, err = s.deals.Deal(id)
		return err
	})
	return out, err
}

func (n *Node) Merchant(authority [20]byte) (*deals.Merchant, error) {
	var out *deals.Merchant
	err := n.view(func(s *session) error {
		var err error
		out, err = s.deals.Merchant(authority)
		return err
	})
	return out, err
}

// Pool returns the pool at addr and its status now.
func (n *Node) Pool(addr [20]byte) (*PoolView, error) {
	var out *PoolView
	err := n.view(func(s *session) error {
		p, err := s.pool.Pool(addr)
		if err != nil {
			return err
		}
		out = &PoolView{Pool: p, Status: p.Status(s.now)}
		return nil
	})
	return out, err
}

// StakeRecord returns the stake on item.
func (n *Node) StakeRecord(item [20]byte) (*staking.Stake, error) {
	var out *staking.Stake
	err := n.view(func(s *session) error {
		var err error
		out, err = s.staking.Stake(item)
		return err
	})
	return out, err
}

// Stakes lists the active stakes of owner.
func (n *Node) Stakes(owner [20]byte) ([]*staking.Stake, error) {
	var out []*staking.Stake
	err := n.view(func(s *session) error {
		var err error
		out, err = s.staking.Stakes(owner)
		return err
	})
	return out, err
}

// ClaimableRewards previews the reward owner would receive by claiming all
// stakes now.
func (n *Node) ClaimableRewards(owner [20]byte) (uint64, error) {
	var out uint64
	err := n.view(func(s *session) error {
		var err error
		out, err = s.staking.ClaimableRewards(owner)
		return err
	})
	return out, err
}

func (n *Node) Profile(owner [20]byte) (*reputation.Profile, error) {
	var out *reputation.Profile
	err := n.view(func(s *session) error {
		var err error
		out, err = s.reputation.Profile(owner)
		return err
	})
	return out, err
}

func (n *Node) Badge(owner [20]byte, level reputation.BadgeLevel) (*reputation.Badge, bool, error) {
	var (
		out *reputation.Badge
		ok  bool
	)
	err := n.view(func(s *session) error {
		var err error
		out, ok, err = s.reputation.Badge(owner, level)
		return err
	})
	return out, ok, err
}
