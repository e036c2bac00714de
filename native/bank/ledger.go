package bank

import (
	"errors"

	coreerrors "monkeydao/core/errors"
	"monkeydao/core/events"
	"monkeydao/core/types"
	"monkeydao/crypto"
	"monkeydao/native/common"
)

const (
	// AssetBase is the currency used for purchases and pool contributions.
	AssetBase = "BASE"
	// AssetMONK is the platform reward token.
	AssetMONK = "MONK"
	// MONKDecimals is the number of decimals of the reward token.
	MONKDecimals = 9
)

var (
	ErrInvalidAmount      = coreerrors.New(coreerrors.KindValidation, "InvalidAmount", "bank: amount must be positive")
	ErrInsufficientFunds  = coreerrors.New(coreerrors.KindState, "InsufficientFunds", "bank: insufficient funds")
	ErrControlledAccount  = coreerrors.New(coreerrors.KindAuthorization, "ControlledAccount", "bank: account is controlled by a program authority")
	ErrWrongController    = coreerrors.New(coreerrors.KindAuthorization, "WrongController", "bank: sub-account not owned by authority")
	ErrMintUnauthorized   = coreerrors.New(coreerrors.KindAuthorization, "MintUnauthorized", "bank: mint authority mismatch")
	ErrInvalidSubAccount  = coreerrors.New(coreerrors.KindValidation, "InvalidSubAccount", "bank: invalid sub-account handle")
	errStateNotConfigured = errors.New("bank: state not configured")
)

var supplyKey = []byte("bank/supply/MONK")

type ledgerState interface {
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Ledger moves base currency between accounts and mints the reward token
// under the configured token authority.
type Ledger struct {
	state   ledgerState
	emitter events.Emitter
	mint    [20]byte
}

// NewLedger constructs a ledger bound to the provided state. The mint
// authority defaults to the token_authority derived address.
func NewLedger(state ledgerState) *Ledger {
	return &Ledger{
		state:   state,
		emitter: events.NoopEmitter{},
		mint:    crypto.NewAuthority(crypto.SeedTokenAuthority).Address(),
	}
}

// SetEmitter configures the event emitter used by the ledger. Passing nil
// resets the emitter to a no-op implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

func (l *Ledger) emit(evt *types.Event) {
	if l == nil || l.emitter == nil || evt == nil {
		return
	}
	l.emitter.Emit(events.Wrap(evt))
}

// Balance returns the base currency balance of addr.
func (l *Ledger) Balance(addr [20]byte) (uint64, error) {
	account, err := l.load(addr)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// RewardBalance returns the MONK balance of addr.
func (l *Ledger) RewardBalance(addr [20]byte) (uint64, error) {
	account, err := l.load(addr)
	if err != nil {
		return 0, err
	}
	return account.BalanceMONK, nil
}

// Supply returns the total MONK minted so far.
func (l *Ledger) Supply() (uint64, error) {
	if l == nil || l.state == nil {
		return 0, errStateNotConfigured
	}
	var supply uint64
	if _, err := l.state.KVGet(supplyKey, &supply); err != nil {
		return 0, err
	}
	return supply, nil
}

// Credit adds base currency to addr without a source account. Only used for
// genesis allocations. Program controlled accounts cannot be credited.
func (l *Ledger) Credit(addr [20]byte, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	account, err := l.load(addr)
	if err != nil {
		return err
	}
	if account.Controller != "" {
		return ErrControlledAccount
	}
	if account.Balance, err = common.AddUint64(account.Balance, amount); err != nil {
		return err
	}
	return l.state.PutAccount(addr, account)
}

// Transfer moves base currency between two externally owned accounts.
// Program controlled sub-accounts can be neither debited nor credited this
// way; their balances only move through Deposit and Withdraw.
func (l *Ledger) Transfer(from, to [20]byte, amount uint64) error {
	source, err := l.load(from)
	if err != nil {
		return err
	}
	if source.Controller != "" {
		return ErrControlledAccount
	}
	dest, err := l.load(to)
	if err != nil {
		return err
	}
	if dest.Controller != "" {
		return ErrControlledAccount
	}
	if err := l.move(from, to, amount, ""); err != nil {
		return err
	}
	l.emit(NewTransferEvent(from, to, AssetBase, amount))
	return nil
}

// Deposit moves base currency from an externally owned account into a
// derived sub-account, tagging the destination with its controller.
func (l *Ledger) Deposit(from [20]byte, to crypto.SubAccount, amount uint64) error {
	if !to.Valid() {
		return ErrInvalidSubAccount
	}
	source, err := l.load(from)
	if err != nil {
		return err
	}
	if source.Controller != "" {
		return ErrControlledAccount
	}
	if err := l.move(from, to.Address(), amount, to.Domain()); err != nil {
		return err
	}
	l.emit(NewTransferEvent(from, to.Address(), AssetBase, amount))
	return nil
}

// Open tags a derived sub-account with its controller before any value
// reaches it. Opening an account already held by another domain fails.
func (l *Ledger) Open(sub crypto.SubAccount) error {
	if !sub.Valid() {
		return ErrInvalidSubAccount
	}
	account, err := l.load(sub.Address())
	if err != nil {
		return err
	}
	switch account.Controller {
	case sub.Domain():
		return nil
	case "":
		account.Controller = sub.Domain()
		return l.state.PutAccount(sub.Address(), account)
	default:
		return ErrWrongController
	}
}

// Withdraw moves base currency out of a derived sub-account. The handle must
// belong to the authority recorded on the account.
func (l *Ledger) Withdraw(from crypto.SubAccount, to [20]byte, amount uint64) error {
	if !from.Valid() {
		return ErrInvalidSubAccount
	}
	source, err := l.load(from.Address())
	if err != nil {
		return err
	}
	if source.Controller != from.Domain() {
		return ErrWrongController
	}
	if err := l.move(from.Address(), to, amount, ""); err != nil {
		return err
	}
	l.emit(NewTransferEvent(from.Address(), to, AssetBase, amount))
	return nil
}

// Mint issues MONK to addr. The supplied authority must be the configured
// token authority.
func (l *Ledger) Mint(auth *crypto.Authority, to [20]byte, amount uint64) error {
	if auth == nil || auth.Address() != l.mint {
		return ErrMintUnauthorized
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	supply, err := l.Supply()
	if err != nil {
		return err
	}
	if supply, err = common.AddUint64(supply, amount); err != nil {
		return err
	}
	account, err := l.load(to)
	if err != nil {
		return err
	}
	if account.BalanceMONK, err = common.AddUint64(account.BalanceMONK, amount); err != nil {
		return err
	}
	if err := l.state.PutAccount(to, account); err != nil {
		return err
	}
	if err := l.state.KVPut(supplyKey, supply); err != nil {
		return err
	}
	l.emit(NewMintEvent(to, amount))
	return nil
}

func (l *Ledger) move(from, to [20]byte, amount uint64, controller string) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	source, err := l.load(from)
	if err != nil {
		return err
	}
	if source.Balance < amount {
		return ErrInsufficientFunds
	}
	if source.Balance, err = common.SubUint64(source.Balance, amount); err != nil {
		return err
	}
	if err := l.state.PutAccount(from, source); err != nil {
		return err
	}
	dest, err := l.load(to)
	if err != nil {
		return err
	}
	if dest.Balance, err = common.AddUint64(dest.Balance, amount); err != nil {
		return err
	}
	if controller != "" {
		dest.Controller = controller
	}
	return l.state.PutAccount(to, dest)
}

func (l *Ledger) load(addr [20]byte) (*types.Account, error) {
	if l == nil || l.state == nil {
		return nil, errStateNotConfigured
	}
	account, err := l.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account = &types.Account{}
	}
	return account, nil
}
