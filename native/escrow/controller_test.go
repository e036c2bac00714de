package escrow

import (
	"errors"
	"testing"

	"monkeydao/core/state"
	"monkeydao/native/bank"
	"monkeydao/storage"
)

func addr(b byte) [20]byte {
	var out [20]byte
	out[0] = b
	return out
}

func newController(t *testing.T) (*Controller, *bank.Ledger) {
	t.Helper()
	ledger := bank.NewLedger(state.NewManager(storage.NewMemDB()))
	controller := NewController()
	controller.SetLedger(ledger)
	return controller, ledger
}

func TestDepositAndRelease(t *testing.T) {
	controller, ledger := newController(t)
	pool, alice, bob, seller := addr(9), addr(1), addr(2), addr(3)
	for _, a := range [][20]byte{alice, bob} {
		if err := ledger.Credit(a, 1_000); err != nil {
			t.Fatalf("credit: %v", err)
		}
	}
	if err := controller.Deposit(pool, alice, 500); err != nil {
		t.Fatalf("deposit alice: %v", err)
	}
	if err := controller.Deposit(pool, bob, 500); err != nil {
		t.Fatalf("deposit bob: %v", err)
	}
	if bal, _ := controller.Balance(pool); bal != 1_000 {
		t.Fatalf("escrow balance %d", bal)
	}
	if err := ledger.Transfer(Address(pool), alice, 1); !errors.Is(err, bank.ErrControlledAccount) {
		t.Fatalf("escrow must not be debited directly, got %v", err)
	}
	if err := controller.Release(pool, seller, 1_001); !errors.Is(err, ErrEscrowMismatch) {
		t.Fatalf("release beyond balance must fail, got %v", err)
	}
	if err := controller.Release(pool, seller, 1_000); err != nil {
		t.Fatalf("release: %v", err)
	}
	if bal, _ := controller.Balance(pool); bal != 0 {
		t.Fatalf("escrow not drained: %d", bal)
	}
	if bal, _ := ledger.Balance(seller); bal != 1_000 {
		t.Fatalf("seller balance %d", bal)
	}
	if err := controller.Release(pool, seller, 0); !errors.Is(err, ErrEscrowEmpty) {
		t.Fatalf("expected empty escrow, got %v", err)
	}
}

func TestRefundAll(t *testing.T) {
	controller, ledger := newController(t)
	pool, alice, bob := addr(9), addr(1), addr(2)
	for _, a := range [][20]byte{alice, bob} {
		if err := ledger.Credit(a, 1_000); err != nil {
			t.Fatalf("credit: %v", err)
		}
	}
	if err := controller.Deposit(pool, alice, 300); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := controller.Deposit(pool, bob, 200); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := controller.RefundAll(pool, []Refund{{To: alice, Amount: 400}, {To: bob, Amount: 200}}); !errors.Is(err, ErrEscrowMismatch) {
		t.Fatalf("over-refund must fail, got %v", err)
	}
	if err := controller.RefundAll(pool, []Refund{{To: alice, Amount: 300}, {To: bob, Amount: 200}}); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if bal, _ := ledger.Balance(alice); bal != 1_000 {
		t.Fatalf("alice not refunded: %d", bal)
	}
	if bal, _ := ledger.Balance(bob); bal != 1_000 {
		t.Fatalf("bob not refunded: %d", bal)
	}
	if bal, _ := controller.Balance(pool); bal != 0 {
		t.Fatalf("escrow not drained: %d", bal)
	}
}

func TestSweepReturnsSurplus(t *testing.T) {
	controller, ledger := newController(t)
	pool, alice, starter := addr(9), addr(1), addr(4)
	if err := ledger.Credit(alice, 1_000); err != nil {
		t.Fatalf("credit: %v", err)
	}
	// Value parked on the escrow address before the pool claims it.
	if err := ledger.Transfer(alice, Address(pool), 7); err != nil {
		t.Fatalf("pre-open transfer: %v", err)
	}
	if err := controller.Open(pool); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := ledger.Transfer(alice, Address(pool), 1); !errors.Is(err, bank.ErrControlledAccount) {
		t.Fatalf("transfer into opened escrow must fail, got %v", err)
	}
	if err := controller.Deposit(pool, alice, 300); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := controller.RefundAll(pool, []Refund{{To: alice, Amount: 300}}); err != nil {
		t.Fatalf("refund: %v", err)
	}
	swept, err := controller.Sweep(pool, starter)
	if err != nil || swept != 7 {
		t.Fatalf("sweep: %d %v", swept, err)
	}
	if bal, _ := ledger.Balance(starter); bal != 7 {
		t.Fatalf("starter balance %d", bal)
	}
	if swept, err := controller.Sweep(pool, starter); err != nil || swept != 0 {
		t.Fatalf("sweep of empty escrow: %d %v", swept, err)
	}
}
