package escrow

import (
	"errors"

	coreerrors "monkeydao/core/errors"
	"monkeydao/core/events"
	"monkeydao/core/types"
	"monkeydao/crypto"
	"monkeydao/native/common"
)

var (
	// ErrEscrowMismatch is returned when the escrow balance does not match
	// what the pool expects it to hold.
	ErrEscrowMismatch = coreerrors.New(coreerrors.KindNotFound, "EscrowMismatch", "escrow: balance does not match pool")
	// ErrEscrowEmpty is returned when releasing an escrow with nothing in it.
	ErrEscrowEmpty = coreerrors.New(coreerrors.KindState, "EscrowEmpty", "escrow: nothing to release")

	errNilLedger = errors.New("escrow controller: ledger not configured")
)

type custodyLedger interface {
	Deposit(from [20]byte, to crypto.SubAccount, amount uint64) error
	Withdraw(from crypto.SubAccount, to [20]byte, amount uint64) error
	Balance(addr [20]byte) (uint64, error)
	Open(account crypto.SubAccount) error
}

// Refund is one repayment out of escrow.
type Refund struct {
	To     [20]byte
	Amount uint64
}

// Controller holds the escrow authority. It is the only component able to
// move value out of a pool's escrow sub-account.
type Controller struct {
	ledger  custodyLedger
	auth    *crypto.Authority
	emitter events.Emitter
}

// NewController creates a controller owning the escrow seed domain.
func NewController() *Controller {
	return &Controller{
		auth:    crypto.NewAuthority(crypto.SeedEscrow),
		emitter: events.NoopEmitter{},
	}
}

// SetLedger configures the value ledger backing escrow balances.
func (c *Controller) SetLedger(ledger custodyLedger) { c.ledger = ledger }

// SetEmitter configures the event emitter used by the controller. Passing
// nil resets the emitter to a no-op implementation.
func (c *Controller) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		c.emitter = events.NoopEmitter{}
		return
	}
	c.emitter = emitter
}

func (c *Controller) emit(evt *types.Event) {
	if c == nil || c.emitter == nil || evt == nil {
		return
	}
	c.emitter.Emit(events.Wrap(evt))
}

// Address returns the escrow sub-account of pool.
func Address(pool [20]byte) [20]byte {
	return crypto.Derive([]byte(crypto.SeedEscrow), pool[:])
}

func (c *Controller) account(pool [20]byte) crypto.SubAccount {
	return c.auth.Account(pool[:])
}

// Balance returns the value held for pool.
func (c *Controller) Balance(pool [20]byte) (uint64, error) {
	if c == nil || c.ledger == nil {
		return 0, errNilLedger
	}
	return c.ledger.Balance(Address(pool))
}

// Deposit moves amount from contributor into the pool's escrow.
func (c *Controller) Deposit(pool, from [20]byte, amount uint64) error {
	if c == nil || c.ledger == nil {
		return errNilLedger
	}
	if err := c.ledger.Deposit(from, c.account(pool), amount); err != nil {
		return err
	}
	c.emit(NewDepositedEvent(pool, from, amount))
	return nil
}

// Open claims the escrow sub-account of pool for the escrow authority. Once
// claimed, the ledger refuses plain transfers into it.
func (c *Controller) Open(pool [20]byte) error {
	if c == nil || c.ledger == nil {
		return errNilLedger
	}
	return c.ledger.Open(c.account(pool))
}

// Release pays amount out of the pool's escrow to destination. The escrow
// must hold at least amount.
func (c *Controller) Release(pool, destination [20]byte, amount uint64) error {
	if amount == 0 {
		return ErrEscrowEmpty
	}
	balance, err := c.Balance(pool)
	if err != nil {
		return err
	}
	if balance < amount {
		return ErrEscrowMismatch.Wrapf("escrow %d, release %d", balance, amount)
	}
	if err := c.ledger.Withdraw(c.account(pool), destination, amount); err != nil {
		return err
	}
	c.emit(NewReleasedEvent(pool, destination, amount))
	return nil
}

// RefundAll repays every listed contribution. The escrow must cover the sum
// of the refunds; anything left over stays in escrow for Sweep.
func (c *Controller) RefundAll(pool [20]byte, refunds []Refund) error {
	balance, err := c.Balance(pool)
	if err != nil {
		return err
	}
	var owed uint64
	for _, refund := range refunds {
		if owed, err = common.AddUint64(owed, refund.Amount); err != nil {
			return err
		}
	}
	if owed > balance {
		return ErrEscrowMismatch.Wrapf("escrow %d, refunds %d", balance, owed)
	}
	for _, refund := range refunds {
		if refund.Amount == 0 {
			continue
		}
		if err := c.ledger.Withdraw(c.account(pool), refund.To, refund.Amount); err != nil {
			return err
		}
		c.emit(NewRefundedEvent(pool, refund.To, refund.Amount))
	}
	return nil
}

// Sweep moves whatever remains in the pool's escrow to destination and
// returns the amount moved. An empty escrow is not an error.
func (c *Controller) Sweep(pool, destination [20]byte) (uint64, error) {
	balance, err := c.Balance(pool)
	if err != nil {
		return 0, err
	}
	if balance == 0 {
		return 0, nil
	}
	if err := c.ledger.Withdraw(c.account(pool), destination, balance); err != nil {
		return 0, err
	}
	c.emit(NewSweptEvent(pool, destination, balance))
	return balance, nil
}
