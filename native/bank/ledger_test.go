package bank

import (
	"errors"
	"testing"

	"monkeydao/core/state"
	"monkeydao/crypto"
	"monkeydao/storage"
)

func newTestLedger(t *testing.T) (*Ledger, *state.Manager) {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	return NewLedger(manager), manager
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func TestTransfer(t *testing.T) {
	ledger, _ := newTestLedger(t)
	alice, bob := addr(1), addr(2)
	if err := ledger.Credit(alice, 100); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := ledger.Transfer(alice, bob, 40); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if bal, _ := ledger.Balance(alice); bal != 60 {
		t.Fatalf("alice balance %d", bal)
	}
	if bal, _ := ledger.Balance(bob); bal != 40 {
		t.Fatalf("bob balance %d", bal)
	}
	if err := ledger.Transfer(alice, bob, 61); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if err := ledger.Transfer(alice, bob, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if err := ledger.Transfer(alice, alice, 10); err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	if bal, _ := ledger.Balance(alice); bal != 60 {
		t.Fatalf("self transfer changed balance: %d", bal)
	}
}

func TestSubAccountCustody(t *testing.T) {
	ledger, _ := newTestLedger(t)
	alice, bob := addr(1), addr(2)
	if err := ledger.Credit(alice, 100); err != nil {
		t.Fatalf("credit: %v", err)
	}
	escrow := crypto.NewAuthority(crypto.SeedEscrow)
	vault := escrow.Account([]byte("pool-1"))
	if err := ledger.Deposit(alice, vault, 70); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := ledger.Transfer(vault.Address(), bob, 10); !errors.Is(err, ErrControlledAccount) {
		t.Fatalf("direct debit of sub-account must fail, got %v", err)
	}
	foreign := crypto.NewAuthority(crypto.SeedStakeVault).Account([]byte("pool-1"))
	if err := ledger.Withdraw(foreign, bob, 10); err == nil {
		t.Fatalf("foreign authority withdraw should fail")
	}
	if err := ledger.Withdraw(vault, bob, 70); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if bal, _ := ledger.Balance(vault.Address()); bal != 0 {
		t.Fatalf("vault balance %d", bal)
	}
	if bal, _ := ledger.Balance(bob); bal != 70 {
		t.Fatalf("bob balance %d", bal)
	}
	if err := ledger.Withdraw(vault, bob, 1); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestMint(t *testing.T) {
	ledger, _ := newTestLedger(t)
	user := addr(3)
	if err := ledger.Mint(crypto.NewAuthority(crypto.SeedEscrow), user, 5); !errors.Is(err, ErrMintUnauthorized) {
		t.Fatalf("expected unauthorized mint, got %v", err)
	}
	auth := crypto.NewAuthority(crypto.SeedTokenAuthority)
	if err := ledger.Mint(auth, user, 20_000_000); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Mint(auth, user, 5); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if bal, _ := ledger.RewardBalance(user); bal != 20_000_005 {
		t.Fatalf("reward balance %d", bal)
	}
	if supply, _ := ledger.Supply(); supply != 20_000_005 {
		t.Fatalf("supply %d", supply)
	}
}

func TestControlledAccountRejectsDirectCredit(t *testing.T) {
	ledger, _ := newTestLedger(t)
	alice := addr(1)
	if err := ledger.Credit(alice, 100); err != nil {
		t.Fatalf("credit: %v", err)
	}
	vault := crypto.NewAuthority(crypto.SeedEscrow).Account([]byte("pool-2"))
	if err := ledger.Open(vault); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := ledger.Open(vault); err != nil {
		t.Fatalf("reopen by same domain: %v", err)
	}
	if err := ledger.Transfer(alice, vault.Address(), 1); !errors.Is(err, ErrControlledAccount) {
		t.Fatalf("transfer into opened sub-account must fail, got %v", err)
	}
	if err := ledger.Credit(vault.Address(), 1); !errors.Is(err, ErrControlledAccount) {
		t.Fatalf("credit into opened sub-account must fail, got %v", err)
	}
	if bal, _ := ledger.Balance(alice); bal != 100 {
		t.Fatalf("rejected transfer moved funds: %d", bal)
	}
	if err := ledger.Deposit(alice, vault, 40); err != nil {
		t.Fatalf("deposit into opened sub-account: %v", err)
	}
	if err := ledger.Open(crypto.NewAuthority(crypto.SeedStakeVault).Account([]byte("x"))); err != nil {
		t.Fatalf("open stake vault: %v", err)
	}
	var stolen crypto.SubAccount
	if err := ledger.Open(stolen); !errors.Is(err, ErrInvalidSubAccount) {
		t.Fatalf("expected invalid sub-account, got %v", err)
	}
}
