package core

import (
	"monkeydao/core/events"
	"monkeydao/core/state"
	"monkeydao/native/bank"
	"monkeydao/native/deals"
	"monkeydao/native/escrow"
	"monkeydao/native/pool"
	"monkeydao/native/reputation"
	"monkeydao/native/staking"
)

// session is the set of engines bound to one operation's state overlay and
// event buffer.
type session struct {
	state      *state.Manager
	buffer     *events.Buffer
	now        int64
	ledger     *bank.Ledger
	reputation *reputation.Engine
	deals      *deals.Engine
	escrow     *escrow.Controller
	pool       *pool.Engine
	staking    *staking.Engine
}

func (n *Node) newSession(manager *state.Manager, now int64) *session {
	s := &session{state: manager, buffer: &events.Buffer{}, now: now}
	clock := func() int64 { return now }

	s.ledger = bank.NewLedger(manager)
	s.ledger.SetEmitter(s.buffer)

	s.reputation = reputation.NewEngine()
	s.reputation.SetState(manager)
	s.reputation.SetEmitter(s.buffer)
	s.reputation.SetNowFunc(clock)

	s.deals = deals.NewEngine()
	s.deals.SetState(manager)
	s.deals.SetLedger(s.ledger)
	s.deals.SetReputation(s.reputation)
	s.deals.SetMintAuthority(n.mint)
	s.deals.SetParams(n.deals)
	s.deals.SetEmitter(s.buffer)
	s.deals.SetNowFunc(clock)

	s.escrow = escrow.NewController()
	s.escrow.SetLedger(s.ledger)
	s.escrow.SetEmitter(s.buffer)

	s.pool = pool.NewEngine()
	s.pool.SetState(manager)
	s.pool.SetDeals(s.deals)
	s.pool.SetEscrow(s.escrow)
	s.pool.SetMinter(s.ledger, n.mint)
	s.pool.SetReputation(s.reputation)
	s.pool.SetParams(n.pool)
	s.pool.SetEmitter(s.buffer)
	s.pool.SetNowFunc(clock)

	s.staking = staking.NewEngine()
	s.staking.SetState(manager)
	s.staking.SetCustody(s.deals)
	s.staking.SetMinter(s.ledger, n.mint)
	s.staking.SetReputation(s.reputation)
	s.staking.SetParams(n.staking)
	s.staking.SetEmitter(s.buffer)
	s.staking.SetNowFunc(clock)
	return s
}
