package staking

import (
	"errors"
	"time"

	coreerrors "monkeydao/core/errors"
	"monkeydao/core/events"
	"monkeydao/core/types"
	"monkeydao/crypto"
	"monkeydao/native/common"
	"monkeydao/native/deals"
	"monkeydao/native/reputation"
)

var (
	ErrStakeNotFound  = coreerrors.New(coreerrors.KindNotFound, "StakeNotFound", "staking: stake not found")
	ErrAlreadyStaked  = coreerrors.New(coreerrors.KindState, "AlreadyStaked", "staking: item already staked")
	ErrStakeNotActive = coreerrors.New(coreerrors.KindState, "StakeNotActive", "staking: stake not active")
	ErrNotStakeOwner  = coreerrors.New(coreerrors.KindAuthorization, "NotStakeOwner", "staking: caller does not own stake")
	ErrNothingToClaim = coreerrors.New(coreerrors.KindState, "NoRewardsToClaim", "staking: nothing to claim")

	errNotConfigured = errors.New("staking engine: dependencies not configured")
)

type custody interface {
	Lock(id, owner, custodian [20]byte) (*deals.Deal, error)
	Release(id, custodian [20]byte) (*deals.Deal, error)
}

type rewardMinter interface {
	Mint(auth *crypto.Authority, to [20]byte, amount uint64) error
}

type reputationBook interface {
	Profile(owner [20]byte) (*reputation.Profile, error)
	Record(owner [20]byte, activity reputation.ActivityType, mutate func(*reputation.Profile) error) (*reputation.Profile, error)
}

// Engine tracks staked items and pays their daily accrual.
type Engine struct {
	state      stateStore
	custody    custody
	minter     rewardMinter
	reputation reputationBook
	mint       *crypto.Authority
	vault      *crypto.Authority
	params     Params
	emitter    events.Emitter
	nowFn      func() int64
}

// NewEngine creates a staking engine that owns the stake vault authority.
func NewEngine() *Engine {
	return &Engine{
		vault:   crypto.NewAuthority(crypto.SeedStakeVault),
		params:  DefaultParams(),
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state stateStore) { e.state = state }

// SetCustody configures the deal book that holds staked items.
func (e *Engine) SetCustody(book custody) { e.custody = book }

// SetMinter configures the reward minter and the authority it requires.
func (e *Engine) SetMinter(minter rewardMinter, auth *crypto.Authority) {
	e.minter = minter
	e.mint = auth
}

// SetReputation configures the reputation engine.
func (e *Engine) SetReputation(rep reputationBook) { e.reputation = rep }

// SetParams overrides the accrual parameters.
func (e *Engine) SetParams(params Params) { e.params = params }

// Params returns the active accrual parameters.
func (e *Engine) Params() Params { return e.params }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil || e.custody == nil || e.minter == nil || e.reputation == nil {
		return errNotConfigured
	}
	return nil
}

// VaultAddress returns the custody address of a staked item.
func (e *Engine) VaultAddress(item [20]byte) [20]byte {
	return e.vault.Account(item[:]).Address()
}

// Stake returns the stake record for item.
func (e *Engine) Stake(item [20]byte) (*Stake, error) {
	if e == nil || e.state == nil {
		return nil, errNotConfigured
	}
	return e.loadStake(item)
}

// Stakes lists owner's active stakes in staking order.
func (e *Engine) Stakes(owner [20]byte) ([]*Stake, error) {
	if e == nil || e.state == nil {
		return nil, errNotConfigured
	}
	items, err := e.ownedItems(owner)
	if err != nil {
		return nil, err
	}
	out := make([]*Stake, 0, len(items))
	for _, item := range items {
		stake, err := e.loadStake(item)
		if errors.Is(err, ErrStakeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if stake.IsActive && stake.Owner == owner {
			out = append(out, stake)
		}
	}
	return out, nil
}

// StakeItem locks item in the vault and opens an active stake for owner.
func (e *Engine) StakeItem(owner, item [20]byte) (*Stake, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	now := e.now()
	if exists, err := e.state.KVGet(stakeKey(item), nil); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrAlreadyStaked
	}
	vault := e.VaultAddress(item)
	if _, err := e.custody.Lock(item, owner, vault); err != nil {
		if errors.Is(err, deals.ErrDealLocked) {
			return nil, ErrAlreadyStaked
		}
		return nil, err
	}
	stake := &Stake{
		Item:        item,
		Owner:       owner,
		StakedAt:    now,
		LastClaimAt: now,
		IsActive:    true,
	}
	if err := e.storeStake(stake); err != nil {
		return nil, err
	}
	if err := e.state.KVAppend(ownerKey(owner), item[:]); err != nil {
		return nil, err
	}
	if _, err := e.reputation.Record(owner, reputation.ActivityStakeNFT, func(p *reputation.Profile) error {
		return common.Increment(&p.TotalNFTsStaked)
	}); err != nil {
		return nil, err
	}
	e.emit(NewStakedEvent(stake, vault))
	return stake, nil
}

func (e *Engine) pending(stake *Stake, now int64) (uint64, uint64, error) {
	profile, err := e.reputation.Profile(stake.Owner)
	if err != nil {
		return 0, 0, err
	}
	days := stake.WholeDays(now)
	reward, err := ComputeReward(days, e.params.RewardPerDay, profile.CurrentBadgeLevel)
	if err != nil {
		return 0, 0, err
	}
	return reward, days, nil
}

func (e *Engine) activeStake(owner, item [20]byte) (*Stake, error) {
	stake, err := e.loadStake(item)
	if err != nil {
		return nil, err
	}
	if stake.Owner != owner {
		return nil, ErrNotStakeOwner
	}
	if !stake.IsActive {
		return nil, ErrStakeNotActive
	}
	return stake, nil
}

// settle pays the pending reward of stake and advances its claim clock to
// now. Whatever fraction of a day remains is dropped.
func (e *Engine) settle(stake *Stake, now int64) (uint64, error) {
	reward, days, err := e.pending(stake, now)
	if err != nil {
		return 0, err
	}
	if reward == 0 {
		return 0, nil
	}
	total, err := common.AddUint64(stake.TotalRewardsClaimed, reward)
	if err != nil {
		return 0, err
	}
	if _, err := e.reputation.Record(stake.Owner, 0, func(p *reputation.Profile) error {
		earned, err := common.AddUint64(p.TotalRewardsEarned, reward)
		if err != nil {
			return err
		}
		p.TotalRewardsEarned = earned
		return nil
	}); err != nil {
		return 0, err
	}
	if err := e.minter.Mint(e.mint, stake.Owner, reward); err != nil {
		return 0, err
	}
	stake.TotalRewardsClaimed = total
	stake.LastClaimAt = now
	e.emit(NewClaimedEvent(stake, reward, days))
	return reward, nil
}

// ClaimRewards mints the whole-day reward accrued on item since the last
// claim.
func (e *Engine) ClaimRewards(owner, item [20]byte) (*Stake, uint64, error) {
	if err := e.ready(); err != nil {
		return nil, 0, err
	}
	now := e.now()
	stake, err := e.activeStake(owner, item)
	if err != nil {
		return nil, 0, err
	}
	reward, err := e.settle(stake, now)
	if err != nil {
		return nil, 0, err
	}
	if reward == 0 {
		return nil, 0, ErrNothingToClaim
	}
	if err := e.storeStake(stake); err != nil {
		return nil, 0, err
	}
	return stake, reward, nil
}

// Unstake settles any pending reward, hands the item back to its owner and
// removes the stake record. It returns the amount settled.
func (e *Engine) Unstake(owner, item [20]byte) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	now := e.now()
	stake, err := e.activeStake(owner, item)
	if err != nil {
		return 0, err
	}
	settled, err := e.settle(stake, now)
	if err != nil {
		return 0, err
	}
	if _, err := e.custody.Release(item, e.VaultAddress(item)); err != nil {
		return 0, err
	}
	if err := e.state.KVDelete(stakeKey(item)); err != nil {
		return 0, err
	}
	if err := e.state.KVRemove(ownerKey(owner), item[:]); err != nil {
		return 0, err
	}
	stake.IsActive = false
	e.emit(NewUnstakedEvent(stake, settled, now))
	return settled, nil
}

// ClaimableRewards previews what owner would receive by claiming every
// active stake now.
func (e *Engine) ClaimableRewards(owner [20]byte) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	now := e.now()
	stakes, err := e.Stakes(owner)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, stake := range stakes {
		reward, _, err := e.pending(stake, now)
		if err != nil {
			return 0, err
		}
		if total, err = common.AddUint64(total, reward); err != nil {
			return 0, err
		}
	}
	return total, nil
}
