package core

import (
	"context"

	"monkeydao/native/common"
	"monkeydao/native/deals"
	"monkeydao/native/pool"
	"monkeydao/native/reputation"
	"monkeydao/native/staking"
)

// Transfer moves base-asset value between two plain accounts.
func (n *Node) Transfer(ctx context.Context, from, to [20]byte, amount uint64) error {
	return n.apply(ctx, "bank.transfer", "", func(s *session) error {
		return s.ledger.Transfer(from, to, amount)
	})
}

// RegisterMerchant creates a merchant record for caller.
func (n *Node) RegisterMerchant(ctx context.Context, caller [20]byte, name string) (*deals.Merchant, error) {
	var out *deals.Merchant
	err := n.apply(ctx, "deals.registerMerchant", common.ModuleDeals, func(s *session) error {
		var err error
		out, err = s.deals.RegisterMerchant(caller, name)
		return err
	})
	return out, err
}

// VerifyMerchant marks a merchant verified. caller must be the admin.
func (n *Node) VerifyMerchant(ctx context.Context, caller, authority [20]byte) (*deals.Merchant, error) {
	var out *deals.Merchant
	err := n.apply(ctx, "deals.verifyMerchant", common.ModuleDeals, func(s *session) error {
		var err error
		out, err = s.deals.VerifyMerchant(caller, authority)
		return err
	})
	return out, err
}

// ListDeal lists a new deal owned by caller.
func (n *Node) ListDeal(ctx context.Context, caller [20]byte, params deals.ListParams) (*deals.Deal, error) {
	var out *deals.Deal
	err := n.apply(ctx, "deals.list", common.ModuleDeals, func(s *session) error {
		var err error
		out, err = s.deals.ListDeal(caller, params)
		return err
	})
	return out, err
}

// RelistDeal changes the asking price of caller's deal.
func (n *Node) RelistDeal(ctx context.Context, caller, id [20]byte, price uint64) (*deals.Deal, error) {
	var out *deals.Deal
	err := n.apply(ctx, "deals.relist", common.ModuleDeals, func(s *session) error {
		var err error
		out, err = s.deals.RelistDeal(caller, id, price)
		return err
	})
	return out, err
}

// BuyDeal purchases a deal outright.
func (n *Node) BuyDeal(ctx context.Context, caller, id [20]byte) (*deals.Deal, error) {
	var out *deals.Deal
	err := n.apply(ctx, "deals.buy", common.ModuleDeals, func(s *session) error {
		var err error
		out, err = s.deals.BuyDeal(caller, id)
		return err
	})
	return out, err
}

// RedeemDeal marks caller's deal as used.
func (n *Node) RedeemDeal(ctx context.Context, caller, id [20]byte, proof []byte) (*deals.Deal, error) {
	var out *deals.Deal
	err := n.apply(ctx, "deals.redeem", common.ModuleDeals, func(s *session) error {
		var err error
		out, err = s.deals.RedeemDeal(caller, id, proof)
		return err
	})
	return out, err
}

// RateDeal records caller's rating of a deal.
func (n *Node) RateDeal(ctx context.Context, caller, id [20]byte, value uint8, comment string) (*deals.Rating, error) {
	var out *deals.Rating
	err := n.apply(ctx, "deals.rate", common.ModuleDeals, func(s *session) error {
		var err error
		out, err = s.deals.RateDeal(caller, id, value, comment)
		return err
	})
	return out, err
}

// StartPool opens a group-purchase pool on a deal.
func (n *Node) StartPool(ctx context.Context, caller, deal [20]byte, targetAmount uint64, targetParticipants uint8) (*pool.Pool, error) {
	var out *pool.Pool
	err := n.apply(ctx, "pool.start", common.ModulePool, func(s *session) error {
		var err error
		out, err = s.pool.StartPool(caller, deal, targetAmount, targetParticipants)
		return err
	})
	return out, err
}

// JoinPool contributes amount to a pool. The flag reports whether the pool
// reached its target.
func (n *Node) JoinPool(ctx context.Context, caller, addr [20]byte, amount uint64) (*pool.Pool, bool, error) {
	var (
		out     *pool.Pool
		reached bool
	)
	err := n.apply(ctx, "pool.join", common.ModulePool, func(s *session) error {
		var err error
		out, reached, err = s.pool.JoinPool(caller, addr, amount)
		return err
	})
	return out, reached, err
}

// ExecutePool completes a funded pool purchase.
func (n *Node) ExecutePool(ctx context.Context, caller, addr [20]byte) (*pool.Pool, error) {
	var out *pool.Pool
	err := n.apply(ctx, "pool.execute", common.ModulePool, func(s *session) error {
		var err error
		out, err = s.pool.ExecutePurchase(caller, addr)
		return err
	})
	return out, err
}

// CancelPool refunds every participant and removes the pool.
func (n *Node) CancelPool(ctx context.Context, caller, addr [20]byte) error {
	return n.apply(ctx, "pool.cancel", common.ModulePool, func(s *session) error {
		return s.pool.CancelPool(caller, addr)
	})
}

// Stake locks caller's item for reward accrual.
func (n *Node) Stake(ctx context.Context, caller, item [20]byte) (*staking.Stake, error) {
	var out *staking.Stake
	err := n.apply(ctx, "staking.stake", common.ModuleStaking, func(s *session) error {
		var err error
		out, err = s.staking.StakeItem(caller, item)
		return err
	})
	return out, err
}

// ClaimRewards mints the whole-day reward accrued on item.
func (n *Node) ClaimRewards(ctx context.Context, caller, item [20]byte) (*staking.Stake, uint64, error) {
	var (
		out    *staking.Stake
		reward uint64
	)
	err := n.apply(ctx, "staking.claim", common.ModuleStaking, func(s *session) error {
		var err error
		out, reward, err = s.staking.ClaimRewards(caller, item)
		return err
	})
	return out, reward, err
}

// Unstake settles and closes caller's stake on item.
func (n *Node) Unstake(ctx context.Context, caller, item [20]byte) (uint64, error) {
	var settled uint64
	err := n.apply(ctx, "staking.unstake", common.ModuleStaking, func(s *session) error {
		var err error
		settled, err = s.staking.Unstake(caller, item)
		return err
	})
	return settled, err
}

// UpdateReputation awards the points of the activity with the given wire
// code to caller.
func (n *Node) UpdateReputation(ctx context.Context, caller [20]byte, code uint8) (*reputation.Profile, error) {
	var out *reputation.Profile
	err := n.apply(ctx, "reputation.update", common.ModuleReputation, func(s *session) error {
		var err error
		out, err = s.reputation.UpdateReputation(caller, code)
		return err
	})
	return out, err
}

// MintBadge issues the badge at level to caller.
func (n *Node) MintBadge(ctx context.Context, caller [20]byte, level reputation.BadgeLevel) (*reputation.Badge, error) {
	var out *reputation.Badge
	err := n.apply(ctx, "reputation.mintBadge", common.ModuleReputation, func(s *session) error {
		var err error
		out, err = s.reputation.MintBadge(caller, level)
		return err
	})
	return out, err
}
