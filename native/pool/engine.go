package pool

import (
	"errors"
	"time"

	coreerrors "monkeydao/core/errors"
	"monkeydao/core/events"
	"monkeydao/core/types"
	"monkeydao/crypto"
	"monkeydao/native/common"
	"monkeydao/native/deals"
	"monkeydao/native/escrow"
	"monkeydao/native/reputation"
)

var (
	ErrPoolNotFound             = coreerrors.New(coreerrors.KindNotFound, "PoolNotFound", "pool: not found")
	ErrPoolExists               = coreerrors.New(coreerrors.KindState, "PoolAlreadyExists", "pool: already started for deal")
	ErrNotGroupDeal             = coreerrors.New(coreerrors.KindValidation, "NotGroupDeal", "pool: deal is not a group deal")
	ErrInvalidParticipants      = coreerrors.New(coreerrors.KindValidation, "InvalidPoolParticipants", "pool: invalid participant count")
	ErrInvalidPrice             = coreerrors.New(coreerrors.KindValidation, "InvalidPrice", "pool: target amount does not match group price")
	ErrPoolNotActive            = coreerrors.New(coreerrors.KindState, "PoolNotActive", "pool: not active")
	ErrPoolAlreadyExecuted      = coreerrors.New(coreerrors.KindState, "PoolAlreadyExecuted", "pool: already executed")
	ErrPoolExpired              = coreerrors.New(coreerrors.KindState, "PoolExpired", "pool: expired")
	ErrPoolFull                 = coreerrors.New(coreerrors.KindState, "PoolFull", "pool: participant list full")
	ErrAlreadyJoined            = coreerrors.New(coreerrors.KindState, "AlreadyJoinedPool", "pool: already joined")
	ErrInsufficientContribution = coreerrors.New(coreerrors.KindValidation, "InsufficientPoolContribution", "pool: contribution must be positive")
	ErrTargetExceeded           = coreerrors.New(coreerrors.KindValidation, "PoolTargetExceeded", "pool: contribution exceeds target")
	ErrTargetNotReached         = coreerrors.New(coreerrors.KindState, "PoolTargetNotReached", "pool: target not reached")
	ErrNotPoolStarter           = coreerrors.New(coreerrors.KindAuthorization, "NotPoolStarter", "pool: caller is not the starter")
	ErrDealMismatch             = coreerrors.New(coreerrors.KindNotFound, "DealMismatch", "pool: deal does not belong to pool")

	errNotConfigured = errors.New("pool engine: dependencies not configured")
)

type dealBook interface {
	Deal(id [20]byte) (*deals.Deal, error)
	RecordSale(id, buyer [20]byte, amount uint64) (*deals.Deal, error)
}

type escrowController interface {
	Deposit(pool, from [20]byte, amount uint64) error
	Open(pool [20]byte) error
	Release(pool, destination [20]byte, amount uint64) error
	RefundAll(pool [20]byte, refunds []escrow.Refund) error
	Sweep(pool, destination [20]byte) (uint64, error)
	Balance(pool [20]byte) (uint64, error)
}

type rewardMinter interface {
	Mint(auth *crypto.Authority, to [20]byte, amount uint64) error
}

type reputationRecorder interface {
	Record(owner [20]byte, activity reputation.ActivityType, mutate func(*reputation.Profile) error) (*reputation.Profile, error)
}

// Engine runs the pooled group-purchase state machine.
type Engine struct {
	state      stateStore
	deals      dealBook
	escrow     escrowController
	minter     rewardMinter
	reputation reputationRecorder
	mint       *crypto.Authority
	params     Params
	emitter    events.Emitter
	nowFn      func() int64
}

// NewEngine creates a pool engine with default params and a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		params:  DefaultParams(),
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state stateStore) { e.state = state }

// SetDeals configures the deal book consulted and updated by pools.
func (e *Engine) SetDeals(book dealBook) { e.deals = book }

// SetEscrow configures the escrow controller holding contributions.
func (e *Engine) SetEscrow(controller escrowController) { e.escrow = controller }

// SetMinter configures the reward minter and the authority it requires.
func (e *Engine) SetMinter(minter rewardMinter, auth *crypto.Authority) {
	e.minter = minter
	e.mint = auth
}

// SetReputation configures the reputation engine credited on joins.
func (e *Engine) SetReputation(rep reputationRecorder) { e.reputation = rep }

// SetParams overrides pool policy.
func (e *Engine) SetParams(params Params) { e.params = params }

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
	if e == nil || e.state == nil || e.deals == nil || e.escrow == nil || e.reputation == nil || e.minter == nil {
		return errNotConfigured
	}
	return nil
}

// Pool returns the pool stored at addr.
func (e *Engine) Pool(addr [20]byte) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNotConfigured
	}
	return e.loadPool(addr)
}

// StartPool opens a pool on a group deal. The target must be one of the
// allowed participant counts and the amount must equal the deal's quoted
// group price for that count.
func (e *Engine) StartPool(starter, dealID [20]byte, targetAmount uint64, targetParticipants uint8) (*Pool, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	now := e.now()
	deal, err := e.deals.Deal(dealID)
	if err != nil {
		return nil, err
	}
	if !deal.IsGroupDeal {
		return nil, ErrNotGroupDeal
	}
	if deal.IsUsed {
		return nil, deals.ErrDealAlreadyUsed
	}
	if deal.IsExpired(now) {
		return nil, deals.ErrDealExpired
	}
	if deal.Locked() {
		return nil, deals.ErrDealLocked
	}
	if !e.params.allows(targetParticipants) {
		return nil, ErrInvalidParticipants
	}
	price, ok := deal.GroupPrice(targetParticipants)
	if !ok {
		return nil, ErrInvalidParticipants
	}
	if targetAmount == 0 || targetAmount != price {
		return nil, ErrInvalidPrice
	}
	addr := Address(dealID, starter)
	if exists, err := e.poolExists(addr); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrPoolExists
	}
	if err := e.escrow.Open(addr); err != nil {
		return nil, err
	}
	pool := &Pool{
		Address:            addr,
		Deal:               dealID,
		Starter:            starter,
		TargetAmount:       targetAmount,
		TargetParticipants: targetParticipants,
		Participants:       []Participant{},
		IsActive:           true,
		CreatedAt:          now,
		ExpiresAt:          now + e.params.Horizon,
	}
	if err := e.storePool(pool); err != nil {
		return nil, err
	}
	if _, err := e.reputation.Record(starter, 0, nil); err != nil {
		return nil, err
	}
	e.emit(NewPoolStartedEvent(pool))
	return pool, nil
}

// JoinPool deposits amount from contributor into the pool's escrow. A
// contribution that would push the pool past its target is rejected, never
// clamped. The returned flag reports whether the target is now reached.
func (e *Engine) JoinPool(contributor, addr [20]byte, amount uint64) (*Pool, bool, error) {
	if err := e.ready(); err != nil {
		return nil, false, err
	}
	now := e.now()
	pool, err := e.loadPool(addr)
	if err != nil {
		return nil, false, err
	}
	if !pool.IsActive {
		return nil, false, ErrPoolNotActive
	}
	if pool.IsExecuted {
		return nil, false, ErrPoolAlreadyExecuted
	}
	if pool.IsExpired(now) {
		return nil, false, ErrPoolExpired
	}
	if pool.HasParticipant(contributor) {
		return nil, false, ErrAlreadyJoined
	}
	if amount == 0 {
		return nil, false, ErrInsufficientContribution
	}
	if len(pool.Participants) >= MaxParticipants {
		return nil, false, ErrPoolFull
	}
	total, err := common.AddUint64(pool.CurrentAmount, amount)
	if err != nil {
		return nil, false, err
	}
	if total > pool.TargetAmount {
		return nil, false, ErrTargetExceeded
	}
	if err := e.escrow.Deposit(pool.Address, contributor, amount); err != nil {
		return nil, false, err
	}
	pool.CurrentAmount = total
	pool.Participants = append(pool.Participants, Participant{User: contributor, Contribution: amount})
	pool.CurrentParticipants = uint8(len(pool.Participants))
	if err := e.storePool(pool); err != nil {
		return nil, false, err
	}
	reward := e.params.ParticipationReward
	if _, err := e.reputation.Record(contributor, reputation.ActivityJoinPool, func(p *reputation.Profile) error {
		if err := common.Increment(&p.TotalPoolsJoined); err != nil {
			return err
		}
		earned, err := common.AddUint64(p.TotalRewardsEarned, reward)
		if err != nil {
			return err
		}
		p.TotalRewardsEarned = earned
		return nil
	}); err != nil {
		return nil, false, err
	}
	if reward > 0 {
		if err := e.minter.Mint(e.mint, contributor, reward); err != nil {
			return nil, false, err
		}
	}
	reached := pool.TargetReached()
	e.emit(NewPoolJoinedEvent(pool, contributor, amount, reached, now))
	return pool, reached, nil
}

// ExecutePurchase completes a funded pool: the whole escrow goes to the
// deal's current owner and the deal passes to the starter.
func (e *Engine) ExecutePurchase(starter, addr [20]byte) (*Pool, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	now := e.now()
	pool, err := e.loadPool(addr)
	if err != nil {
		return nil, err
	}
	if !pool.IsActive {
		return nil, ErrPoolNotActive
	}
	if pool.IsExecuted {
		return nil, ErrPoolAlreadyExecuted
	}
	if pool.Starter != starter {
		return nil, ErrNotPoolStarter
	}
	if !pool.TargetReached() {
		return nil, ErrTargetNotReached
	}
	deal, err := e.deals.Deal(pool.Deal)
	if err != nil {
		return nil, err
	}
	if deal.ID != pool.Deal {
		return nil, ErrDealMismatch
	}
	balance, err := e.escrow.Balance(pool.Address)
	if err != nil {
		return nil, err
	}
	if balance < pool.CurrentAmount {
		return nil, escrow.ErrEscrowMismatch.Wrapf("escrow %d, pool %d", balance, pool.CurrentAmount)
	}
	seller := deal.Owner
	paid := pool.CurrentAmount
	if err := e.escrow.Release(pool.Address, seller, paid); err != nil {
		return nil, err
	}
	// Value that reached the escrow outside of JoinPool goes back to the starter.
	if _, err := e.escrow.Sweep(pool.Address, pool.Starter); err != nil {
		return nil, err
	}
	if _, err := e.deals.RecordSale(pool.Deal, pool.Starter, paid); err != nil {
		return nil, err
	}
	pool.IsExecuted = true
	pool.IsActive = false
	pool.ExecutedAt = now
	if err := e.storePool(pool); err != nil {
		return nil, err
	}
	e.emit(NewPoolExecutedEvent(pool, seller, paid))
	return pool, nil
}

// CancelPool refunds every participant's exact contribution out of escrow
// and removes the pool record. Participants are read from the pool record,
// so the refund set is fixed by the pool itself. Any surplus in the escrow
// is swept to the starter. Allowed after expiry.
func (e *Engine) CancelPool(starter, addr [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	now := e.now()
	pool, err := e.loadPool(addr)
	if err != nil {
		return err
	}
	if pool.Starter != starter {
		return ErrNotPoolStarter
	}
	if pool.IsExecuted {
		return ErrPoolAlreadyExecuted
	}
	if !pool.IsActive {
		return ErrPoolNotActive
	}
	refunds := make([]escrow.Refund, 0, len(pool.Participants))
	for _, participant := range pool.Participants {
		refunds = append(refunds, escrow.Refund{To: participant.User, Amount: participant.Contribution})
	}
	if err := e.escrow.RefundAll(pool.Address, refunds); err != nil {
		return err
	}
	if _, err := e.escrow.Sweep(pool.Address, pool.Starter); err != nil {
		return err
	}
	if balance, err := e.escrow.Balance(pool.Address); err != nil {
		return err
	} else if balance != 0 {
		return escrow.ErrEscrowMismatch.Wrapf("%d left after cancel", balance)
	}
	if err := e.state.KVDelete(poolKey(pool.Address)); err != nil {
		return err
	}
	e.emit(NewPoolCancelledEvent(pool, now))
	return nil
}
